// Package postgres provides PostgreSQL-backed implementations of the store
// interfaces. All stores share the filter/update semantics of the in-memory
// backend; SQL is built from the same filter structs so both backends stay
// interchangeable.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/orbital-hq/taskboard-api/internal/domain"
	"github.com/orbital-hq/taskboard-api/internal/store"
)

// TaskStore implements the store.TaskStore interface using PostgreSQL.
type TaskStore struct {
	db store.DBTX
}

// Ensure TaskStore implements store.TaskStore
var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a new PostgreSQL implementation of store.TaskStore.
// It accepts a database connection that should be initialized and managed
// by the caller.
func NewTaskStore(db store.DBTX) *TaskStore {
	return &TaskStore{db: db}
}

const taskColumns = "id, user_id, title, description, category, type, status, received_at, trello_data, fail_count"

// Create implements store.TaskStore.Create.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		nullableString(string(task.Category)),
		task.Type,
		task.Status,
		task.ReceivedAt,
		nullableBytes(task.TrelloData),
		task.FailCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", mapError(err))
	}
	return nil
}

// Query implements store.TaskStore.Query.
func (s *TaskStore) Query(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks"
	where, args := taskWhereClause(filter)
	query += where + " ORDER BY received_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// Get implements store.TaskStore.Get.
func (s *TaskStore) Get(ctx context.Context, filter store.TaskFilter) (*domain.Task, error) {
	tasks, err := s.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, store.ErrTaskNotFound
	}
	return tasks[0], nil
}

// Update implements store.TaskStore.Update. The update is applied in a
// single statement; RETURNING feeds back the updated rows.
func (s *TaskStore) Update(ctx context.Context, filter store.TaskFilter, update store.TaskUpdate) ([]*domain.Task, error) {
	set, args := taskSetClause(update)
	if set == "" {
		return s.Query(ctx, filter)
	}

	where, whereArgs := taskWhereClauseOffset(filter, len(args))
	args = append(args, whereArgs...)

	query := "UPDATE tasks SET " + set + where + " RETURNING " + taskColumns

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update tasks: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate updated tasks: %w", err)
	}
	return tasks, nil
}

// taskWhereClause renders the filter as a WHERE clause with $1-based args.
func taskWhereClause(filter store.TaskFilter) (string, []any) {
	return taskWhereClauseOffset(filter, 0)
}

// taskWhereClauseOffset renders the filter with placeholders starting after
// the given number of existing args, so it can follow a SET clause.
func taskWhereClauseOffset(filter store.TaskFilter, offset int) (string, []any) {
	var conds []string
	var args []any

	next := func() int { return offset + len(args) + 1 }

	if filter.ID != nil {
		conds = append(conds, fmt.Sprintf("id = $%d", next()))
		args = append(args, *filter.ID)
	}
	if filter.UserID != nil {
		conds = append(conds, fmt.Sprintf("user_id = $%d", next()))
		args = append(args, *filter.UserID)
	}
	if filter.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", next()))
		args = append(args, *filter.Status)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// taskSetClause renders the update as a SET clause with $1-based args.
func taskSetClause(update store.TaskUpdate) (string, []any) {
	var sets []string
	var args []any

	next := func() int { return len(args) + 1 }

	if update.Title != nil {
		sets = append(sets, fmt.Sprintf("title = $%d", next()))
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", next()))
		args = append(args, *update.Description)
	}
	if update.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", next()))
		args = append(args, *update.Status)
	}
	if update.TrelloData != nil {
		sets = append(sets, fmt.Sprintf("trello_data = $%d", next()))
		args = append(args, []byte(update.TrelloData))
	}
	if update.FailCount != nil {
		sets = append(sets, fmt.Sprintf("fail_count = $%d", next()))
		args = append(args, *update.FailCount)
	}

	return strings.Join(sets, ", "), args
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var category *string
	var trelloData []byte

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&category,
		&task.Type,
		&task.Status,
		&task.ReceivedAt,
		&trelloData,
		&task.FailCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", mapError(err))
	}

	if category != nil {
		task.Category = domain.TaskCategory(*category)
	}
	task.TrelloData = trelloData
	return &task, nil
}

// nullableString maps "" to SQL NULL.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullableBytes maps an empty slice to SQL NULL.
func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
