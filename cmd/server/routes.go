package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// routes sets up the HTTP router: a JSON API over the site manager plus a static
// preview of the build directory.
func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// --- API ---
	r.Route("/api", func(r chi.Router) {
		r.Get("/widgets", app.listWidgetsHandler)
		r.Post("/widgets", app.createWidgetHandler)
		r.Route("/widgets/{folder}/{templateId}", func(r chi.Router) {
			r.Get("/", app.getWidgetHandler)
			r.Delete("/", app.deleteWidgetHandler)
			r.Post("/form", app.widgetFormHandler)
		})

		r.Post("/render", app.renderHandler)
		r.Post("/extract", app.extractHandler)
		r.Post("/publish", app.publishHandler)
		r.Get("/pages", app.listPagesHandler)
	})

	// --- Preview of published pages ---
	buildDir := app.manager.GetBuildDir()
	app.logger.Info("Serving build directory", "path", buildDir, "url_prefix", "/preview")
	r.Get("/preview", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/preview/", http.StatusMovedPermanently)
	})
	r.Get("/preview/*", app.previewHandler(buildDir))

	return r
}
