package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/auth"
	"github.com/sakif/guitar-ai/internal/handler"
	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/service"
)

// MockGenerator implements handler.Generator without a model provider or a
// database.
type MockGenerator struct {
	CapturedPrincipal model.Principal
	CapturedType      string
	CapturedInput     string
	CapturedSave      service.SaveInput
	CapturedID        string
	ReturnRes         *service.GenerationResult
	ReturnErr         error
}

func (m *MockGenerator) Generate(_ context.Context, p model.Principal, category, input string) (*service.GenerationResult, error) {
	m.CapturedPrincipal, m.CapturedType, m.CapturedInput = p, category, input
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnRes, nil
}

func (m *MockGenerator) List(_ context.Context, p model.Principal, _, _ int) ([]model.GenerationRecord, error) {
	m.CapturedPrincipal = p
	return nil, m.ReturnErr
}

func (m *MockGenerator) SaveAsExample(_ context.Context, p model.Principal, id string, in service.SaveInput) (*model.Example, error) {
	m.CapturedPrincipal, m.CapturedID, m.CapturedSave = p, id, in
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return &model.Example{ID: "ex-1", OwnerID: p.UserID}, nil
}

var caller = model.Principal{UserID: "user-1", Username: "slash", Role: model.RoleUser}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// authed attaches caller to the request the way auth.RequireAuth would.
func authed(req *http.Request) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), caller))
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var env envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env
}

func TestGenerationHandler_HandleGenerate(t *testing.T) {
	logger := quietLogger()

	t.Run("valid generation", func(t *testing.T) {
		tokens := 42
		mock := &MockGenerator{ReturnRes: &service.GenerationResult{
			RecordID: "gen-1", Text: "A classic.", Category: model.CategoryGuitar, TokensUsed: &tokens, ModelVersion: "gpt-test",
		}}
		h := handler.NewGenerationHandler(mock, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/generate",
			bytes.NewBufferString(`{"type":"guitar","inputText":"Fender Stratocaster"}`))
		rr := httptest.NewRecorder()

		h.HandleGenerate(rr, authed(req))

		assert.Equal(t, http.StatusOK, rr.Code)
		env := decodeEnvelope(t, rr)
		assert.True(t, env.Success)

		var res service.GenerationResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, "A classic.", res.Text)
		assert.Equal(t, "gen-1", res.RecordID)

		assert.Equal(t, caller, mock.CapturedPrincipal)
		assert.Equal(t, "guitar", mock.CapturedType)
		assert.Equal(t, "Fender Stratocaster", mock.CapturedInput)
	})

	t.Run("invalid request body", func(t *testing.T) {
		h := handler.NewGenerationHandler(&MockGenerator{}, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewBufferString(`{"type":`))
		rr := httptest.NewRecorder()

		h.HandleGenerate(rr, authed(req))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		env := decodeEnvelope(t, rr)
		assert.False(t, env.Success)
		assert.Equal(t, "validation_error", env.Code)
	})

	t.Run("collaborator failure is 502 with the message", func(t *testing.T) {
		mock := &MockGenerator{ReturnErr: apperror.Collaborator(errors.New("model overloaded"))}
		h := handler.NewGenerationHandler(mock, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/generate",
			bytes.NewBufferString(`{"type":"company","inputText":"Gibson"}`))
		rr := httptest.NewRecorder()

		h.HandleGenerate(rr, authed(req))

		assert.Equal(t, http.StatusBadGateway, rr.Code)
		env := decodeEnvelope(t, rr)
		assert.Equal(t, "collaborator_error", env.Code)
		assert.Equal(t, "model overloaded", env.Error)
	})

	t.Run("no principal", func(t *testing.T) {
		mock := &MockGenerator{}
		h := handler.NewGenerationHandler(mock, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewBufferString(`{}`))
		rr := httptest.NewRecorder()

		h.HandleGenerate(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Empty(t, mock.CapturedInput)
	})
}

func TestGenerationHandler_HandleList_EmptyIsArray(t *testing.T) {
	h := handler.NewGenerationHandler(&MockGenerator{}, quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/generations", nil)
	rr := httptest.NewRecorder()
	h.HandleList(rr, authed(req))

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestGenerationHandler_HandleList_BadLimit(t *testing.T) {
	h := handler.NewGenerationHandler(&MockGenerator{}, quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/generations?limit=ten", nil)
	rr := httptest.NewRecorder()
	h.HandleList(rr, authed(req))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGenerationHandler_HandleSave(t *testing.T) {
	mock := &MockGenerator{}
	h := handler.NewGenerationHandler(mock, quietLogger())

	// chi.URLParam needs the route context the router would have set.
	router := chi.NewRouter()
	router.Post("/api/generations/{id}/save", h.HandleSave)

	t.Run("with body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/generations/gen-7/save",
			bytes.NewBufferString(`{"title":"Strat","category":"Electric","tags":["fender"],"visibility":"public"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authed(req))

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "gen-7", mock.CapturedID)
		assert.Equal(t, service.SaveInput{
			Title: "Strat", Subcategory: "Electric", Tags: []string{"fender"}, Visibility: "public",
		}, mock.CapturedSave)
	})

	t.Run("without body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/generations/gen-8/save", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authed(req))

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "gen-8", mock.CapturedID)
		assert.Equal(t, service.SaveInput{}, mock.CapturedSave)
	})

	t.Run("someone else's generation", func(t *testing.T) {
		mock.ReturnErr = apperror.NotFound("generation", "gen-9")
		defer func() { mock.ReturnErr = nil }()

		req := httptest.NewRequest(http.MethodPost, "/api/generations/gen-9/save", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authed(req))

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not_found", decodeEnvelope(t, rr).Code)
	})
}
