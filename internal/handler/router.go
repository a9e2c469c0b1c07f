package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"newsletteradmin/internal/middleware"
)

// NewRouter wires the admin API routes
func NewRouter(newsletters *NewsletterHandler, health *HealthHandler, logger *slog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery(logger))

	r.HandleFunc("/health", health.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/messages", newsletters.Messages).Methods(http.MethodGet)

	r.HandleFunc("/newsletters/new", newsletters.New).Methods(http.MethodGet)
	r.HandleFunc("/newsletters", newsletters.Create).Methods(http.MethodPost)
	r.HandleFunc("/newsletters/{id:[0-9]+}", newsletters.Details).Methods(http.MethodGet)
	r.HandleFunc("/newsletters/{id:[0-9]+}", newsletters.Update).Methods(http.MethodPut)
	r.HandleFunc("/newsletters/{id:[0-9]+}/edit", newsletters.Edit).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	return r
}
