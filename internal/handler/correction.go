package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/guitar-ai/internal/service"
)

// CorrectionHandler records user fixes of generated text.
type CorrectionHandler struct {
	svc    *service.CorrectionService
	logger *slog.Logger
}

func NewCorrectionHandler(svc *service.CorrectionService, logger *slog.Logger) *CorrectionHandler {
	return &CorrectionHandler{svc: svc, logger: logger}
}

type correctionRequest struct {
	OriginalText   string `json:"originalText"`
	CorrectedText  string `json:"correctedText"`
	Type           string `json:"type"`
	CorrectionKind string `json:"correctionKind"`
	GenerationID   string `json:"generationId"`
	Notes          string `json:"notes"`
}

// HandleCreate submits a correction.
//
// HTTP: POST /api/corrections
// REQUEST BODY: {"originalText": "...", "correctedText": "...", "type": "guitar", "correctionKind": "factual"}
func (h *CorrectionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req correctionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.svc.Submit(r.Context(), p, service.CorrectionInput{
		OriginalText:  req.OriginalText,
		CorrectedText: req.CorrectedText,
		Category:      req.Type,
		Kind:          req.CorrectionKind,
		GenerationID:  req.GenerationID,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, c)
}

// HandleList returns the caller's corrections, newest first.
//
// HTTP: GET /api/corrections?limit=20&offset=0
func (h *CorrectionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
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

	list, err := h.svc.List(r.Context(), p, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(list))
}

// HandleApply marks a correction as applied.
//
// HTTP: POST /api/corrections/{id}/apply
func (h *CorrectionHandler) HandleApply(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := h.svc.Apply(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, c)
}
