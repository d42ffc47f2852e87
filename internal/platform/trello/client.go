// Package trello wraps the Trello REST API. The client is stateless: the
// service API key is fixed at construction and the per-user access token is
// supplied on every call.
package trello

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/orbital-hq/taskboard-api/internal/config"
)

// DefaultBaseURL is the Trello REST API root.
const DefaultBaseURL = "https://api.trello.com/1"

// authorizeURL is where users are sent to grant the application a token.
const authorizeURL = "https://trello.com/1/authorize"

// requestTimeout bounds every remote call so a sync worker can never block
// indefinitely on Trello.
const requestTimeout = 10 * time.Second

// Client issues authenticated requests against the Trello API.
type Client struct {
	baseURL        string
	apiKey         string
	tokenName      string
	expirationDays int
	httpClient     *http.Client
	logger         *slog.Logger
}

// NewClient creates a Trello client from configuration.
func NewClient(cfg config.TrelloConfig, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	expirationDays := cfg.TokenExpirationDays
	if expirationDays <= 0 {
		expirationDays = 1
	}

	return &Client{
		baseURL:        DefaultBaseURL,
		apiKey:         cfg.APIKey,
		tokenName:      cfg.TokenName,
		expirationDays: expirationDays,
		httpClient:     &http.Client{Timeout: requestTimeout},
		logger:         logger.With("component", "trello_client"),
	}, nil
}

// SetBaseURL overrides the API root. Used by tests to point the client at a
// local server.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// AuthorizationURL returns the URL a user visits to grant this application
// an access token (scope read,write, configured name and expiration).
func (c *Client) AuthorizationURL() string {
	query := url.Values{}
	query.Set("expiration", fmt.Sprintf("%dday", c.expirationDays))
	query.Set("name", c.tokenName)
	query.Set("scope", "read,write")
	query.Set("response_type", "token")
	query.Set("key", c.apiKey)
	return authorizeURL + "?" + query.Encode()
}

// request performs one HTTP call. The service API key and the per-user token
// are always injected as query parameters. Non-2xx responses map to
// ErrUpstreamAuth.
func (c *Client) request(ctx context.Context, method, endpoint, token string, params url.Values, body, out any) error {
	if token == "" {
		return fmt.Errorf("%w: %v", ErrUpstreamAuth, ErrMissingToken)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.apiKey)
	params.Set("token", token)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint+"?"+params.Encode(), reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("trello request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The body is intentionally not echoed into the error; it can
		// contain the request URL including credentials.
		c.logger.Warn("trello request rejected",
			"method", method,
			"endpoint", endpoint,
			"status", resp.StatusCode)
		return fmt.Errorf("%w: trello responded with status %d", ErrUpstreamAuth, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode trello response: %w", err)
	}
	return nil
}

// QueryBoards returns the caller's boards, filtered client-side.
func (c *Client) QueryBoards(ctx context.Context, token string, filter Filter) ([]Board, error) {
	var boards []Board
	if err := c.request(ctx, http.MethodGet, "/members/me/boards", token, nil, nil, &boards); err != nil {
		return nil, err
	}

	var matches []Board
	for _, board := range boards {
		if filter.matches(board.ID, board.Name) {
			matches = append(matches, board)
		}
	}
	return matches, nil
}

// QueryLists returns the lists of a board, filtered client-side.
func (c *Client) QueryLists(ctx context.Context, token, boardID string, filter Filter) ([]List, error) {
	var lists []List
	endpoint := fmt.Sprintf("/boards/%s/lists", boardID)
	if err := c.request(ctx, http.MethodGet, endpoint, token, nil, nil, &lists); err != nil {
		return nil, err
	}

	var matches []List
	for _, list := range lists {
		if filter.matches(list.ID, list.Name) {
			matches = append(matches, list)
		}
	}
	return matches, nil
}

// QueryLabels returns the labels of a board, filtered client-side.
func (c *Client) QueryLabels(ctx context.Context, token, boardID string, filter Filter) ([]Label, error) {
	var labels []Label
	endpoint := fmt.Sprintf("/boards/%s/labels", boardID)
	if err := c.request(ctx, http.MethodGet, endpoint, token, nil, nil, &labels); err != nil {
		return nil, err
	}

	var matches []Label
	for _, label := range labels {
		if filter.matches(label.ID, label.Name) {
			matches = append(matches, label)
		}
	}
	return matches, nil
}

// GetBoardMembers returns the current members of a board.
func (c *Client) GetBoardMembers(ctx context.Context, token, boardID string) ([]Member, error) {
	var members []Member
	endpoint := fmt.Sprintf("/boards/%s/members", boardID)
	if err := c.request(ctx, http.MethodGet, endpoint, token, nil, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// CreateBoard creates a new board with the given name.
func (c *Client) CreateBoard(ctx context.Context, token, name string) (Board, error) {
	params := url.Values{}
	params.Set("name", name)

	var board Board
	if err := c.request(ctx, http.MethodPost, "/boards", token, params, nil, &board); err != nil {
		return Board{}, err
	}
	return board, nil
}

// CreateList creates a new list on the given board.
func (c *Client) CreateList(ctx context.Context, token, boardID, name string) (List, error) {
	params := url.Values{}
	params.Set("idBoard", boardID)
	params.Set("name", name)

	var list List
	if err := c.request(ctx, http.MethodPost, "/lists", token, params, nil, &list); err != nil {
		return List{}, err
	}
	return list, nil
}

// CreateLabel creates a new label on the given board.
func (c *Client) CreateLabel(ctx context.Context, token, boardID, name string) (Label, error) {
	params := url.Values{}
	params.Set("idBoard", boardID)
	params.Set("name", name)

	var label Label
	if err := c.request(ctx, http.MethodPost, "/labels", token, params, nil, &label); err != nil {
		return Label{}, err
	}
	return label, nil
}

// CreateCard creates a card and returns the raw response payload, which is
// stored opaquely on the task.
func (c *Client) CreateCard(ctx context.Context, token string, params CreateCardParams) (json.RawMessage, error) {
	var card json.RawMessage
	if err := c.request(ctx, http.MethodPost, "/cards", token, nil, params, &card); err != nil {
		return nil, err
	}
	return card, nil
}
