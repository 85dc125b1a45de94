package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/guitar-ai/internal/service"
)

// ExampleHandler manages CRUD operations for reference examples.
type ExampleHandler struct {
	svc    *service.ExampleService
	logger *slog.Logger
}

func NewExampleHandler(svc *service.ExampleService, logger *slog.Logger) *ExampleHandler {
	return &ExampleHandler{svc: svc, logger: logger}
}

// exampleRequest is the wire form of service.ExampleInput. "type" is
// guitar/company; "category" is the free-form subcategory.
type exampleRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Type       string   `json:"type"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Visibility string   `json:"visibility"`
}

func (req exampleRequest) input() service.ExampleInput {
	return service.ExampleInput{
		Title:       req.Title,
		Content:     req.Content,
		Category:    req.Type,
		Subcategory: req.Category,
		Tags:        req.Tags,
		Visibility:  req.Visibility,
	}
}

// HandleList returns the caller's examples.
//
// HTTP: GET /api/examples?type=guitar&limit=20&offset=0
func (h *ExampleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, err)
		return
	}

	examples, err := h.svc.List(r.Context(), p, r.URL.Query().Get("type"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(examples))
}

// HandleListPublic returns public examples of every user.
//
// HTTP: GET /api/examples/public?type=company&limit=50
func (h *ExampleHandler) HandleListPublic(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}

	examples, err := h.svc.ListPublic(r.Context(), r.URL.Query().Get("type"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(examples))
}

// HandleCreate stores a new example.
//
// HTTP: POST /api/examples
func (h *ExampleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req exampleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	ex, err := h.svc.Create(r.Context(), p, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, ex)
}

// HandleGet returns one of the caller's examples.
//
// HTTP: GET /api/examples/{id}
func (h *ExampleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ex, err := h.svc.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, ex)
}

// HandleUpdate replaces an example's editable fields.
//
// HTTP: PUT /api/examples/{id}
func (h *ExampleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req exampleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	ex, err := h.svc.Update(r.Context(), p, chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, ex)
}

// HandleDelete removes one of the caller's examples.
//
// HTTP: DELETE /api/examples/{id}
func (h *ExampleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "example deleted"})
}
