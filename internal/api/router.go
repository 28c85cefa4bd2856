package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates the control surface router with all routes and standard
// middleware.
func NewRouter(service TaskService, library ItemLibrary, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	taskHandler := NewTaskHandler(service, logger)
	itemHandler := NewItemHandler(library, logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", "error", err)
		}
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", taskHandler.ListTasks)
		r.Post("/", taskHandler.SubmitTasks)
		r.Get("/history", taskHandler.ListHistory)
		r.Post("/{attachmentID}/retry", taskHandler.RetryTask)
		r.Post("/{attachmentID}/cancel", taskHandler.CancelTask)
	})

	r.Route("/items", func(r chi.Router) {
		r.Get("/", itemHandler.ListItems)
		r.Post("/", itemHandler.CreateItem)
	})

	return r
}
