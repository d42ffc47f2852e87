// Package trello provides the service layer that prepares Trello resources
// for task mirroring. It resolves boards, lists, and labels by name and
// creates them when they do not exist yet, and it manages the per-user
// Trello token stored alongside the user record.
package trello

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/orbital-hq/taskboard-api/internal/domain"
	"github.com/orbital-hq/taskboard-api/internal/platform/trello"
	"github.com/orbital-hq/taskboard-api/internal/store"
)

// Client captures the Trello API operations the service depends on.
// *trello.Client satisfies it; tests substitute a fake.
type Client interface {
	AuthorizationURL() string
	QueryBoards(ctx context.Context, token string, filter trello.Filter) ([]trello.Board, error)
	QueryLists(ctx context.Context, token, boardID string, filter trello.Filter) ([]trello.List, error)
	QueryLabels(ctx context.Context, token, boardID string, filter trello.Filter) ([]trello.Label, error)
	GetBoardMembers(ctx context.Context, token, boardID string) ([]trello.Member, error)
	CreateBoard(ctx context.Context, token, name string) (trello.Board, error)
	CreateList(ctx context.Context, token, boardID, name string) (trello.List, error)
	CreateLabel(ctx context.Context, token, boardID, name string) (trello.Label, error)
	CreateCard(ctx context.Context, token string, params trello.CreateCardParams) (json.RawMessage, error)
}

// Service resolves Trello resources for card creation and manages user tokens.
type Service struct {
	client    Client
	userStore store.UserStore
	logger    *slog.Logger
}

// NewService creates a Service backed by the given client and user store.
func NewService(client Client, userStore store.UserStore, logger *slog.Logger) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("trello client cannot be nil")
	}
	if userStore == nil {
		return nil, fmt.Errorf("user store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &Service{client: client, userStore: userStore, logger: logger}, nil
}

// AuthorizationURL returns the URL a user visits to grant a Trello token.
func (s *Service) AuthorizationURL() string {
	return s.client.AuthorizationURL()
}

// LinkToken stores the Trello token on the user record, replacing any
// previously linked token.
func (s *Service) LinkToken(ctx context.Context, userID uuid.UUID, token string) error {
	if token == "" {
		return trello.ErrMissingToken
	}
	update := store.UserUpdate{
		ExternalData: map[string]string{domain.ExternalDataTrelloToken: token},
	}
	updated, err := s.userStore.Update(ctx, store.UserFilter{ID: &userID}, update)
	if err != nil {
		return fmt.Errorf("linking trello token: %w", err)
	}
	if len(updated) == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

// UserToken returns the Trello token linked to the user. A user without a
// linked token yields ErrMissingToken wrapped in ErrUpstreamAuth, matching
// what the Trello client reports for an unauthenticated call.
func (s *Service) UserToken(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.userStore.Get(ctx, store.UserFilter{ID: &userID})
	if err != nil {
		return "", fmt.Errorf("fetching user for trello token: %w", err)
	}
	token, ok := user.TrelloToken()
	if !ok {
		return "", fmt.Errorf("%w: %w", trello.ErrUpstreamAuth, trello.ErrMissingToken)
	}
	return token, nil
}

// GetOrCreateBoard returns the first board matching name, creating it when
// no board with that name exists.
func (s *Service) GetOrCreateBoard(ctx context.Context, token, name string) (trello.Board, error) {
	boards, err := s.client.QueryBoards(ctx, token, trello.Filter{Name: name})
	if err != nil {
		return trello.Board{}, fmt.Errorf("querying boards: %w", err)
	}
	if len(boards) > 0 {
		return boards[0], nil
	}
	s.logger.InfoContext(ctx, "creating trello board", slog.String("name", name))
	board, err := s.client.CreateBoard(ctx, token, name)
	if err != nil {
		return trello.Board{}, fmt.Errorf("creating board: %w", err)
	}
	return board, nil
}

// GetOrCreateList returns the first list on the board matching name,
// creating it when missing.
func (s *Service) GetOrCreateList(ctx context.Context, token, boardID, name string) (trello.List, error) {
	lists, err := s.client.QueryLists(ctx, token, boardID, trello.Filter{Name: name})
	if err != nil {
		return trello.List{}, fmt.Errorf("querying lists: %w", err)
	}
	if len(lists) > 0 {
		return lists[0], nil
	}
	s.logger.InfoContext(ctx, "creating trello list",
		slog.String("board_id", boardID),
		slog.String("name", name))
	list, err := s.client.CreateList(ctx, token, boardID, name)
	if err != nil {
		return trello.List{}, fmt.Errorf("creating list: %w", err)
	}
	return list, nil
}

// GetOrCreateLabel returns the first label on the board matching name,
// creating it when missing.
func (s *Service) GetOrCreateLabel(ctx context.Context, token, boardID, name string) (trello.Label, error) {
	labels, err := s.client.QueryLabels(ctx, token, boardID, trello.Filter{Name: name})
	if err != nil {
		return trello.Label{}, fmt.Errorf("querying labels: %w", err)
	}
	if len(labels) > 0 {
		return labels[0], nil
	}
	s.logger.InfoContext(ctx, "creating trello label",
		slog.String("board_id", boardID),
		slog.String("name", name))
	label, err := s.client.CreateLabel(ctx, token, boardID, name)
	if err != nil {
		return trello.Label{}, fmt.Errorf("creating label: %w", err)
	}
	return label, nil
}

// BoardMembers returns the members of the board.
func (s *Service) BoardMembers(ctx context.Context, token, boardID string) ([]trello.Member, error) {
	members, err := s.client.GetBoardMembers(ctx, token, boardID)
	if err != nil {
		return nil, fmt.Errorf("fetching board members: %w", err)
	}
	return members, nil
}

// CreateCard creates a card through the underlying client.
func (s *Service) CreateCard(ctx context.Context, token string, params trello.CreateCardParams) (json.RawMessage, error) {
	raw, err := s.client.CreateCard(ctx, token, params)
	if err != nil {
		return nil, fmt.Errorf("creating card: %w", err)
	}
	return raw, nil
}
