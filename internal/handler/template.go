package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/guitar-ai/internal/service"
)

// TemplateHandler manages prompt templates.
type TemplateHandler struct {
	svc    *service.TemplateService
	logger *slog.Logger
}

func NewTemplateHandler(svc *service.TemplateService, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{svc: svc, logger: logger}
}

type templateRequest struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Active  bool   `json:"active"`
}

func (req templateRequest) input() service.TemplateInput {
	return service.TemplateInput{
		Category: req.Type,
		Title:    req.Title,
		Content:  req.Content,
		Active:   req.Active,
	}
}

// HTTP: GET /api/templates
func (h *TemplateHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	list, err := h.svc.List(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(list))
}

// HTTP: POST /api/templates
// REQUEST BODY: {"type": "guitar", "title": "short", "content": "Describe {input}.\n{context}", "active": true}
func (h *TemplateHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req templateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	t, err := h.svc.Create(r.Context(), p, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, t)
}

// HTTP: GET /api/templates/{id}
func (h *TemplateHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := h.svc.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

// HandleUpdate bumps the template version. The type in the body is ignored.
//
// HTTP: PUT /api/templates/{id}
func (h *TemplateHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req templateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	t, err := h.svc.Update(r.Context(), p, chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

// HTTP: DELETE /api/templates/{id}
func (h *TemplateHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "template deleted"})
}

// HandleGetActive returns the caller's active template for a type. 404 means
// generations of that type use the built-in prompt.
//
// HTTP: GET /api/templates/active/{type}
func (h *TemplateHandler) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := h.svc.GetActive(r.Context(), p, chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

// HTTP: POST /api/templates/{id}/activate
func (h *TemplateHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := h.svc.Activate(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, t)
}
