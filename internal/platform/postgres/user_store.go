package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/orbital-hq/taskboard-api/internal/domain"
	"github.com/orbital-hq/taskboard-api/internal/store"
)

// UserStore implements the store.UserStore interface using PostgreSQL.
// ExternalData is stored as a JSONB column so linked third-party account
// data needs no schema changes.
type UserStore struct {
	db store.DBTX
}

// Ensure UserStore implements store.UserStore
var _ store.UserStore = (*UserStore)(nil)

// NewUserStore creates a new PostgreSQL implementation of store.UserStore.
func NewUserStore(db store.DBTX) *UserStore {
	return &UserStore{db: db}
}

const userColumns = "id, username, hashed_password, external_data, created_at"

// Create implements store.UserStore.Create.
// A unique violation on the username maps to store.ErrUsernameExists.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	external, err := json.Marshal(user.ExternalData)
	if err != nil {
		return fmt.Errorf("failed to encode external data: %w", err)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.HashedPassword,
		external,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrUsernameExists
		}
		return fmt.Errorf("failed to insert user: %w", mapError(err))
	}
	return nil
}

// Get implements store.UserStore.Get.
func (s *UserStore) Get(ctx context.Context, filter store.UserFilter) (*domain.User, error) {
	users, err := s.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, store.ErrUserNotFound
	}
	return users[0], nil
}

// Query implements store.UserStore.Query.
func (s *UserStore) Query(ctx context.Context, filter store.UserFilter) ([]*domain.User, error) {
	query := "SELECT " + userColumns + " FROM users"
	where, args := userWhereClause(filter, 0)
	query += where + " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// Update implements store.UserStore.Update. ExternalData keys are merged
// into the existing JSONB value rather than replacing it.
func (s *UserStore) Update(ctx context.Context, filter store.UserFilter, update store.UserUpdate) ([]*domain.User, error) {
	if len(update.ExternalData) == 0 {
		return s.Query(ctx, filter)
	}

	patch, err := json.Marshal(update.ExternalData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode external data patch: %w", err)
	}

	args := []any{patch}
	where, whereArgs := userWhereClause(filter, len(args))
	args = append(args, whereArgs...)

	query := "UPDATE users SET external_data = external_data || $1::jsonb" +
		where + " RETURNING " + userColumns

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update users: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate updated users: %w", err)
	}
	return users, nil
}

// userWhereClause renders the filter as a WHERE clause with placeholders
// starting after the given number of existing args.
func userWhereClause(filter store.UserFilter, offset int) (string, []any) {
	var conds []string
	var args []any

	next := func() int { return offset + len(args) + 1 }

	if filter.ID != nil {
		conds = append(conds, fmt.Sprintf("id = $%d", next()))
		args = append(args, *filter.ID)
	}
	if filter.Username != nil {
		conds = append(conds, fmt.Sprintf("username = $%d", next()))
		args = append(args, *filter.Username)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	var external []byte

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.HashedPassword,
		&external,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", mapError(err))
	}

	user.ExternalData = map[string]string{}
	if len(external) > 0 {
		if err := json.Unmarshal(external, &user.ExternalData); err != nil {
			return nil, fmt.Errorf("failed to decode external data: %w", err)
		}
	}
	return &user, nil
}
