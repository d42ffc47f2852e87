package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/orbital-hq/taskboard-api/internal/api/middleware"
	"github.com/orbital-hq/taskboard-api/internal/api/shared"
	"github.com/orbital-hq/taskboard-api/internal/store"
)

// TrelloLinker defines the account-linking operations the Trello handler
// depends on. *trelloservice.Service satisfies it.
type TrelloLinker interface {
	AuthorizationURL() string
	LinkToken(ctx context.Context, userID uuid.UUID, token string) error
}

// TrelloHandler handles Trello account linking.
type TrelloHandler struct {
	linker TrelloLinker
}

// NewTrelloHandler creates a new TrelloHandler with the given dependencies.
func NewTrelloHandler(linker TrelloLinker) *TrelloHandler {
	return &TrelloHandler{linker: linker}
}

// AuthURL handles GET /api/trello/auth_url.
func (h *TrelloHandler) AuthURL(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r); !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuthURLResponse{
		URL: h.linker.AuthorizationURL(),
	})
}

// SetToken handles POST /api/trello/set_token.
func (h *TrelloHandler) SetToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req SetTokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if err := h.linker.LinkToken(r.Context(), userID, req.Token); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "User not found")
			return
		}
		slog.Error("failed to link trello token", "error", err, "user_id", userID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to store token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ResultResponse{
		Result: "Trello token updated",
	})
}
