package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// DatasetID is the {id} path parameter.
type DatasetID = openapi_types.UUID

// StageName is the {stage} path parameter.
type StageName = string

// ListDatasetsParams are the query parameters of GET /datasets.
type ListDatasetsParams struct {
	Limit  *int `form:"limit,omitempty" json:"limit,omitempty"`
	Offset *int `form:"offset,omitempty" json:"offset,omitempty"`
}

// ServerInterface is the route table of the HTTP API.
type ServerInterface interface {
	// (GET /health)
	Health(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
	// (POST /datasets)
	UploadDataset(w http.ResponseWriter, r *http.Request)
	// (GET /datasets)
	ListDatasets(w http.ResponseWriter, r *http.Request, params ListDatasetsParams)
	// (GET /datasets/{id})
	GetDataset(w http.ResponseWriter, r *http.Request, id DatasetID)
	// (DELETE /datasets/{id})
	DeleteDataset(w http.ResponseWriter, r *http.Request, id DatasetID)
	// (GET /datasets/{id}/columns)
	ListColumns(w http.ResponseWriter, r *http.Request, id DatasetID)
	// (POST /datasets/{id}/stages/{stage}/retry)
	RetryStage(w http.ResponseWriter, r *http.Request, id DatasetID, stage StageName)
	// (POST /datasets/{id}/stages/{stage}/fail)
	FailStage(w http.ResponseWriter, r *http.Request, id DatasetID, stage StageName)
	// (POST /search/columns)
	SearchColumns(w http.ResponseWriter, r *http.Request)
	// (POST /ask)
	Ask(w http.ResponseWriter, r *http.Request)
}

// MiddlewareFunc wraps a single route handler.
type MiddlewareFunc func(http.Handler) http.Handler

// InvalidParamFormatError reports a path or query parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ServerInterfaceWrapper binds parameters and dispatches to the handler.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, h http.Handler) {
	for _, m := range siw.HandlerMiddlewares {
		h = m(h)
	}
	h.ServeHTTP(w, r)
}

func (siw *ServerInterfaceWrapper) bindID(w http.ResponseWriter, r *http.Request) (DatasetID, bool) {
	var id DatasetID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return id, false
	}
	return id, true
}

func (siw *ServerInterfaceWrapper) bindStage(w http.ResponseWriter, r *http.Request) (StageName, bool) {
	var stage StageName
	err := runtime.BindStyledParameterWithOptions("simple", "stage", chi.URLParam(r, "stage"), &stage,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "stage", Err: err})
		return stage, false
	}
	return stage, true
}

// Health operation middleware.
func (siw *ServerInterfaceWrapper) Health(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.Health))
}

// Metrics operation middleware.
func (siw *ServerInterfaceWrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.Metrics))
}

// UploadDataset operation middleware.
func (siw *ServerInterfaceWrapper) UploadDataset(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.UploadDataset))
}

// ListDatasets operation middleware.
func (siw *ServerInterfaceWrapper) ListDatasets(w http.ResponseWriter, r *http.Request) {
	var params ListDatasetsParams
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", r.URL.Query(), &params.Offset); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "offset", Err: err})
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListDatasets(w, r, params)
	}))
}

// GetDataset operation middleware.
func (siw *ServerInterfaceWrapper) GetDataset(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetDataset(w, r, id)
	}))
}

// DeleteDataset operation middleware.
func (siw *ServerInterfaceWrapper) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DeleteDataset(w, r, id)
	}))
}

// ListColumns operation middleware.
func (siw *ServerInterfaceWrapper) ListColumns(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListColumns(w, r, id)
	}))
}

// RetryStage operation middleware.
func (siw *ServerInterfaceWrapper) RetryStage(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	stage, ok := siw.bindStage(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.RetryStage(w, r, id, stage)
	}))
}

// FailStage operation middleware.
func (siw *ServerInterfaceWrapper) FailStage(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	stage, ok := siw.bindStage(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.FailStage(w, r, id, stage)
	}))
}

// SearchColumns operation middleware.
func (siw *ServerInterfaceWrapper) SearchColumns(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.SearchColumns))
}

// Ask operation middleware.
func (siw *ServerInterfaceWrapper) Ask(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.Ask))
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions mounts every route of si on the base router.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Get(options.BaseURL+"/health", wrapper.Health)
	r.Get(options.BaseURL+"/metrics", wrapper.Metrics)
	r.Post(options.BaseURL+"/datasets", wrapper.UploadDataset)
	r.Get(options.BaseURL+"/datasets", wrapper.ListDatasets)
	r.Get(options.BaseURL+"/datasets/{id}", wrapper.GetDataset)
	r.Delete(options.BaseURL+"/datasets/{id}", wrapper.DeleteDataset)
	r.Get(options.BaseURL+"/datasets/{id}/columns", wrapper.ListColumns)
	r.Post(options.BaseURL+"/datasets/{id}/stages/{stage}/retry", wrapper.RetryStage)
	r.Post(options.BaseURL+"/datasets/{id}/stages/{stage}/fail", wrapper.FailStage)
	r.Post(options.BaseURL+"/search/columns", wrapper.SearchColumns)
	r.Post(options.BaseURL+"/ask", wrapper.Ask)
	return r
}
