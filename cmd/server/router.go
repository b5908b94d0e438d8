package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/skillmatch-api/internal/api"
	apiMiddleware "github.com/phrazzld/skillmatch-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authHandler := api.NewAuthHandler(app.userService, app.jwtService, &app.config.Auth, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	userHandler := api.NewUserHandler(app.userService, app.importService, app.exportService, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.importService, app.exportService, app.logger)
	assignmentHandler := api.NewAssignmentHandler(app.assignmentService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/token", authHandler.Token)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/users", userHandler.ListUsers)
			r.Post("/users", userHandler.CreateUser)
			r.Post("/users/import", userHandler.ImportUsers)
			r.Get("/users/export", userHandler.ExportUsers)

			r.Get("/tasks", taskHandler.ListTasks)
			r.Post("/tasks", taskHandler.CreateTask)
			r.Post("/tasks/import", taskHandler.ImportTasks)
			r.Get("/tasks/export", taskHandler.ExportTasks)
			r.Get("/tasks/{id}", taskHandler.GetTask)
			r.Put("/tasks/{id}", taskHandler.UpdateTask)
			r.Delete("/tasks/{id}", taskHandler.DeleteTask)

			r.With(middleware.Timeout(app.runTimeout())).Post("/assignments/run", assignmentHandler.RunAssignments)
			r.Post("/assignments/preview", assignmentHandler.PreviewAssignments)
			r.Get("/assignments", assignmentHandler.ListAssignments)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
