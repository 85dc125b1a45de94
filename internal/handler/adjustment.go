package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/guitar-ai/internal/service"
)

// AdjustmentHandler manages the adjustment registry.
type AdjustmentHandler struct {
	svc    *service.AdjustmentService
	logger *slog.Logger
}

func NewAdjustmentHandler(svc *service.AdjustmentService, logger *slog.Logger) *AdjustmentHandler {
	return &AdjustmentHandler{svc: svc, logger: logger}
}

// scalar accepts a JSON string or a bare number, so {"value": 0.4} and
// {"value": "0.4"} both reach the service as "0.4".
type scalar string

func (s *scalar) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = scalar(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = scalar(n)
	return nil
}

type adjustmentRequest struct {
	Kind       string `json:"kind"`
	Key        string `json:"key"`
	Value      scalar `json:"value"`
	Type       string `json:"type"`
	Active     *bool  `json:"active"`
	Priority   int    `json:"priority"`
	SystemWide bool   `json:"systemWide"`
}

func (req adjustmentRequest) input() service.AdjustmentInput {
	return service.AdjustmentInput{
		Kind:       req.Kind,
		Key:        req.Key,
		Value:      string(req.Value),
		Category:   req.Type,
		Active:     req.Active,
		Priority:   req.Priority,
		SystemWide: req.SystemWide,
	}
}

// HandleList returns the caller's and the system-wide adjustments.
//
// HTTP: GET /api/adjustments
func (h *AdjustmentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
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

// HandleCreate adds an adjustment. Only admins may set systemWide.
//
// HTTP: POST /api/adjustments
// REQUEST BODY: {"kind": "temperature", "value": 0.4, "type": "guitar", "priority": 5}
func (h *AdjustmentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req adjustmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.svc.Create(r.Context(), p, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, a)
}

// HandleUpdate replaces an adjustment.
//
// HTTP: PUT /api/adjustments/{id}
func (h *AdjustmentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req adjustmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.svc.Update(r.Context(), p, chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, a)
}

// HandleDelete removes an adjustment.
//
// HTTP: DELETE /api/adjustments/{id}
func (h *AdjustmentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "adjustment deleted"})
}
