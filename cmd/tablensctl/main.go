// Command tablensctl inspects tabular files with the tablens parser.
package main

import (
	"os"

	"github.com/kailas-cloud/tablens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
