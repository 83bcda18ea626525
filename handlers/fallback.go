package handlers

import (
	"errors"
	"net/http"

	"github.com/jfi/employee-api/middleware"
	"github.com/jfi/employee-api/utils"
)

var (
	// ErrRouteNotFound is the cause recorded for requests no route matches
	ErrRouteNotFound = errors.New("route not found")
	// ErrMethodNotAllowed is the cause recorded for a known path with the wrong verb
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// NotFound answers unmatched routes
func NotFound(w http.ResponseWriter, r *http.Request) {
	middleware.RecordError(r.Context(), ErrRouteNotFound)
	_ = utils.WriteNotFound(w, "No route for "+r.Method+" "+r.URL.Path)
}

// MethodNotAllowed answers matched paths requested with an unsupported verb
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	middleware.RecordError(r.Context(), ErrMethodNotAllowed)
	_ = utils.WriteMethodNotAllowed(w, "Method "+r.Method+" is not allowed for "+r.URL.Path)
}
