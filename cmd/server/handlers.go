package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"go-site-builder/internal/extract"
	"go-site-builder/internal/model"
	"go-site-builder/internal/publish"
	"go-site-builder/internal/schema"
	"go-site-builder/internal/storage"

	"github.com/go-chi/chi/v5"
	"go.uber.org/multierr"
)

// maxBodyBytes bounds request bodies; pages with many widgets stay well below it.
const maxBodyBytes = 4 << 20

// CreateWidgetRequest is the body of POST /api/widgets.
type CreateWidgetRequest struct {
	Title      string `json:"title"`
	Folder     string `json:"folder"`
	TemplateID string `json:"templateId"`
}

// FormRequest is the body of POST /api/widgets/{folder}/{templateId}/form.
// Edits are applied to Data (or the default data) before the form is built.
type FormRequest struct {
	Data  map[string]any `json:"data"`
	Edits []schema.Edit  `json:"edits,omitempty"`
}

// FormResponse carries the edited data, its editing form and any validation errors.
type FormResponse struct {
	Data   map[string]any       `json:"data"`
	Form   model.Form           `json:"form"`
	Errors []*schema.FieldError `json:"errors"`
}

// ExtractRequest is the body of POST /api/extract.
type ExtractRequest struct {
	HTML string `json:"html"`
}

// ExtractResponse lists the recovered instances and any attribute that could not be decoded.
type ExtractResponse struct {
	Widgets []model.WidgetInstance `json:"widgets"`
	Errors  []string               `json:"errors,omitempty"`
}

// PublishRequest is the body of POST /api/publish.
type PublishRequest struct {
	Pages []model.Page `json:"pages"`
	Clean bool         `json:"clean"`
}

// PublishResponse reports the pages written and the pages that failed.
type PublishResponse struct {
	Published []publish.PublishedPage `json:"published"`
	Errors    []string                `json:"errors,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Widget definitions ---

// listWidgetsHandler returns all definitions, optionally filtered by ?folder=.
func (app *application) listWidgetsHandler(w http.ResponseWriter, r *http.Request) {
	defs, err := app.manager.ListWidgets(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if folder := r.URL.Query().Get("folder"); folder != "" {
		defs = storage.GroupByFolder(defs)[folder]
	}
	if defs == nil {
		defs = []*model.WidgetDefinition{}
	}
	app.writeJSON(w, http.StatusOK, defs)
}

func (app *application) getWidgetHandler(w http.ResponseWriter, r *http.Request) {
	def, err := app.manager.GetWidget(r.Context(), chi.URLParam(r, "folder"), chi.URLParam(r, "templateId"))
	if err != nil {
		app.storageError(w, r, err)
		return
	}
	app.writeJSON(w, http.StatusOK, def)
}

func (app *application) createWidgetHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateWidgetRequest
	if !app.readJSON(w, r, &req) {
		return
	}
	if req.Title == "" {
		app.clientError(w, http.StatusBadRequest, "title is required")
		return
	}
	def, err := app.manager.CreateWidget(r.Context(), req.Title, req.Folder, req.TemplateID)
	if err != nil {
		app.logger.Warn("createWidgetHandler: Error creating widget", "error", err, "title", req.Title)
		app.clientError(w, http.StatusConflict, err.Error())
		return
	}
	app.writeJSON(w, http.StatusCreated, def)
}

func (app *application) deleteWidgetHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.manager.DeleteWidget(chi.URLParam(r, "folder"), chi.URLParam(r, "templateId")); err != nil {
		app.clientError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// widgetFormHandler applies any posted edits and builds the editing form for the
// resulting data. An empty body edits the definition's default data.
func (app *application) widgetFormHandler(w http.ResponseWriter, r *http.Request) {
	folder, templateID := chi.URLParam(r, "folder"), chi.URLParam(r, "templateId")

	var req FormRequest
	if r.ContentLength != 0 && !app.readJSON(w, r, &req) {
		return
	}
	def, err := app.manager.GetWidget(r.Context(), folder, templateID)
	if err != nil {
		app.storageError(w, r, err)
		return
	}

	data := req.Data
	if data == nil {
		data = def.DefaultData
	}
	if len(req.Edits) > 0 {
		if data, err = schema.Apply(def.Schema, data, req.Edits); err != nil {
			app.clientError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	resp := FormResponse{Data: data, Form: schema.GenerateForm(def, data), Errors: []*schema.FieldError{}}
	for _, e := range multierr.Errors(schema.Validate(def.Schema, data)) {
		var fe *schema.FieldError
		if errors.As(e, &fe) {
			resp.Errors = append(resp.Errors, fe)
		}
	}
	app.writeJSON(w, http.StatusOK, resp)
}

// --- Pages ---

func (app *application) renderHandler(w http.ResponseWriter, r *http.Request) {
	var page model.Page
	if !app.readJSON(w, r, &page) {
		return
	}
	rendered := app.manager.RenderPage(r.Context(), page)
	app.writeJSON(w, http.StatusOK, model.Fragment{Component: rendered.Component, Styles: rendered.Styles})
}

func (app *application) extractHandler(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if !app.readJSON(w, r, &req) {
		return
	}
	instances, err := extract.Widgets(req.HTML)
	resp := ExtractResponse{Widgets: instances}
	for _, e := range multierr.Errors(err) {
		resp.Errors = append(resp.Errors, e.Error())
	}
	app.writeJSON(w, http.StatusOK, resp)
}

func (app *application) publishHandler(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if !app.readJSON(w, r, &req) {
		return
	}
	published, err := app.manager.PublishAll(r.Context(), req.Pages, req.Clean)
	if published == nil && err != nil {
		app.serverError(w, r, err)
		return
	}
	resp := PublishResponse{Published: published}
	for _, e := range multierr.Errors(err) {
		resp.Errors = append(resp.Errors, e.Error())
	}
	status := http.StatusOK
	if len(resp.Errors) > 0 {
		status = http.StatusMultiStatus
	}
	app.writeJSON(w, status, resp)
}

func (app *application) listPagesHandler(w http.ResponseWriter, r *http.Request) {
	pages, err := app.manager.ListPages()
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, http.StatusOK, pages)
}

// previewHandler serves the build directory with home.html as the landing page.
func (app *application) previewHandler(buildDir string) http.HandlerFunc {
	fs := http.StripPrefix("/preview", http.FileServer(http.Dir(buildDir)))
	return func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "*") == "" {
			http.ServeFile(w, r, filepath.Join(buildDir, "home.html"))
			return
		}
		fs.ServeHTTP(w, r)
	}
}

// --- Helpers ---

func (app *application) readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		app.logger.Warn("Invalid request body", "path", r.URL.Path, "error", err)
		app.clientError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (app *application) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		app.logger.Error("Error writing JSON response", "error", err)
	}
}

func (app *application) clientError(w http.ResponseWriter, status int, msg string) {
	app.writeJSON(w, status, errorResponse{Error: msg})
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Error("Internal server error", "path", r.URL.Path, "error", err)
	app.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

// storageError maps definition lookup failures to 400, 404 or 500.
func (app *application) storageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidReference):
		app.clientError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, storage.ErrNotFound):
		app.clientError(w, http.StatusNotFound, err.Error())
		return
	}
	app.serverError(w, r, err)
}
