package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbital-hq/taskboard-api/internal/store"
)

type fakeLinker struct {
	url    string
	linked map[uuid.UUID]string
	err    error
}

func (f *fakeLinker) AuthorizationURL() string { return f.url }

func (f *fakeLinker) LinkToken(_ context.Context, userID uuid.UUID, token string) error {
	if f.err != nil {
		return f.err
	}
	if f.linked == nil {
		f.linked = map[uuid.UUID]string{}
	}
	f.linked[userID] = token
	return nil
}

func newTrelloTestRouter(linker *fakeLinker, userID uuid.UUID) chi.Router {
	handler := NewTrelloHandler(linker)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(asUser(userID))
		r.Get("/api/trello/auth_url", handler.AuthURL)
		r.Post("/api/trello/set_token", handler.SetToken)
	})
	return r
}

func TestAuthURLEndpoint(t *testing.T) {
	linker := &fakeLinker{url: "https://trello.com/1/authorize?key=k"}
	router := newTrelloTestRouter(linker, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/api/trello/auth_url", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var resp AuthURLResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &resp))
	assert.Equal(t, linker.url, resp.URL)
}

func TestSetTokenEndpoint(t *testing.T) {
	linker := &fakeLinker{}
	userID := uuid.New()
	router := newTrelloTestRouter(linker, userID)

	rec := postJSON(t, router, "/api/trello/set_token", SetTokenRequest{Token: "tok-123"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Result)
	assert.Equal(t, "tok-123", linker.linked[userID])
}

func TestSetTokenRejectsEmptyToken(t *testing.T) {
	router := newTrelloTestRouter(&fakeLinker{}, uuid.New())

	rec := postJSON(t, router, "/api/trello/set_token", SetTokenRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetTokenUnknownUser(t *testing.T) {
	router := newTrelloTestRouter(&fakeLinker{err: store.ErrUserNotFound}, uuid.New())

	rec := postJSON(t, router, "/api/trello/set_token", SetTokenRequest{Token: "tok"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
