// Package tablens embeds the tablens ingestion and question-answering
// pipeline in a Go program, without the HTTP server.
//
// The client talks to the same Redis vector index, SQLite metadata file
// and bbolt blob file as the server, so both can share one deployment.
//
//	client, _ := tablens.New(ctx,
//	    tablens.WithRedis("localhost:6379", ""),
//	    tablens.WithEmbedder(myEmbedder),
//	    tablens.WithDataDir("data"),
//	)
//	defer client.Close(ctx)
//
//	ds, _ := client.Datasets().Upload(ctx, tablens.UploadRequest{Filename: "sales.xlsx", Data: data})
//	ds, _ = client.Datasets().Wait(ctx, ds.ID, time.Second)
//	answer, _ := client.Ask(ctx, "total sales by region")
//
// Uploads are processed in the background; Wait polls the stage statuses
// until the dataset is searchable or a stage fails.
package tablens
