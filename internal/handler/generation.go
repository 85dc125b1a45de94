package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/service"
)

// Generator is the part of service.GenerationService the HTTP layer uses.
//
// INTERFACE FOR TESTABILITY:
// Handler tests pass a mock, so they exercise request parsing and error
// mapping without a model provider or a database.
type Generator interface {
	Generate(ctx context.Context, p model.Principal, category, input string) (*service.GenerationResult, error)
	List(ctx context.Context, p model.Principal, limit, offset int) ([]model.GenerationRecord, error)
	SaveAsExample(ctx context.Context, p model.Principal, generationID string, in service.SaveInput) (*model.Example, error)
}

// GenerationHandler serves description generation and the generation log.
type GenerationHandler struct {
	svc    Generator
	logger *slog.Logger
}

func NewGenerationHandler(svc Generator, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{svc: svc, logger: logger}
}

type generateRequest struct {
	Type      string `json:"type"`
	InputText string `json:"inputText"`
}

// HandleGenerate runs one generation.
//
// HTTP: POST /api/generate
// REQUEST BODY: {"type": "guitar", "inputText": "Fender Stratocaster, 1962"}
//
// A failing model provider answers 502 with the provider's own message.
func (h *GenerationHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.svc.Generate(r.Context(), p, req.Type, req.InputText)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// HandleList returns the caller's generation records, newest first.
//
// HTTP: GET /api/generations?limit=20&offset=0
func (h *GenerationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
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

	records, err := h.svc.List(r.Context(), p, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(records))
}

type saveRequest struct {
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Visibility string   `json:"visibility"`
}

// HandleSave keeps a generation as a reference example.
//
// HTTP: POST /api/generations/{id}/save
// REQUEST BODY (all optional): {"title": "...", "category": "Electric", "tags": [...], "visibility": "public"}
func (h *GenerationHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req saveRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	ex, err := h.svc.SaveAsExample(r.Context(), p, chi.URLParam(r, "id"), service.SaveInput{
		Title:       req.Title,
		Subcategory: req.Category,
		Tags:        req.Tags,
		Visibility:  req.Visibility,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, ex)
}

// nonNil turns a nil slice into an empty one, so lists encode as [] and
// not null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
