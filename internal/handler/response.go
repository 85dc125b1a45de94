package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// Every API response uses the same envelope:
//
//	{"success": true,  "data": ...}
//	{"success": false, "error": "example not found with id abc", "code": "not_found"}
//
// The frontend checks "success" first and never has to guess the shape.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/auth"
	"github.com/sakif/guitar-ai/internal/model"
)

// maxBodyBytes caps request bodies. The largest legitimate field is a
// template of 20k characters.
const maxBodyBytes = 1 << 20

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body is written. Once Encode
// calls w.Write, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			// The status is already on the wire; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeData wraps data in a success envelope.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

// errorStatus maps an error to its HTTP status and envelope code.
//
// ERROR MAPPING:
// The service layer returns apperror values; this is the only place they
// become HTTP. errors.Is walks the whole chain, so a wrapped
// fmt.Errorf("...: %w", apperror.NotFound(...)) still maps to 404.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, apperror.ErrCollaborator):
		return http.StatusBadGateway, "collaborator_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError maps a domain error to the appropriate HTTP status and sends
// it in the error envelope.
//
// Only *apperror.AppError messages reach the client. Anything else is a
// persistence or programming failure: it is logged in full and the client
// gets a generic message, since raw errors can carry SQL or file paths.
func writeError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)

	msg := "an internal error occurred"
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		msg = appErr.Message
	} else {
		slog.Error("request failed", slog.String("error", err.Error()))
	}

	writeJSON(w, status, Envelope{Error: msg, Code: code})
}

// decodeJSON reads a JSON request body into dst. Malformed or oversized
// bodies are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return apperror.ValidationFailed("body", fmt.Sprintf("request body must be %d bytes or less", tooBig.Limit))
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "request body is required")
		default:
			return apperror.ValidationFailed("body", "invalid JSON body")
		}
	}
	return nil
}

// queryInt parses an optional integer query parameter. Missing means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}

// pagination reads ?limit=&offset=.
func pagination(r *http.Request) (limit, offset int, err error) {
	if limit, err = queryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(r, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// principal returns the authenticated caller. Routes behind
// auth.RequireAuth always have one; the error covers misconfigured routes.
func principal(r *http.Request) (model.Principal, error) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return model.Principal{}, apperror.Unauthorized("valid authentication required")
	}
	return p, nil
}
