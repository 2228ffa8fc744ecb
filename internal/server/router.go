package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ChiRouter implements [Router] on top of a [chi.Mux].
//
// chi applies middleware in the order it is added and requires all middleware to be added before the first route.
type ChiRouter struct {
	mux *chi.Mux
}

// NewRouter creates a new [ChiRouter].
func NewRouter() *ChiRouter {
	return &ChiRouter{mux: chi.NewRouter()}
}

// Use adds [Middleware] to the router's stack.
func (r *ChiRouter) Use(middleware ...Middleware) {
	for _, mw := range middleware {
		r.mux.Use(mw)
	}
}

// Handle registers handler for method and path. Paths may contain chi URL parameters such as {id}.
func (r *ChiRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Method(method, path, handler)
}

// Handler registers a custom [Handler] on all of its routes, for any method.
func (r *ChiRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		r.mux.Handle(route, handler)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *ChiRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
