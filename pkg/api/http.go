// Package api assembles the versioned HTTP surface. Authentication and
// telemetry wrap the router at the app layer; handlers here assume the
// gateway has already resolved a role.
package api

import (
	"github.com/gorilla/mux"

	"chatforum/pkg/api/handlers"
)

// NewRouter builds the /v1 router with all endpoints registered.
func NewRouter(d handlers.Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterDigest(v1, d)
	handlers.RegisterUsers(v1, d)
	handlers.RegisterChannels(v1, d)
	handlers.RegisterSigning(v1)
	return r
}
