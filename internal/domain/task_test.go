package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskDefaults(t *testing.T) {
	userID := uuid.New()

	task, err := NewTask(userID, "Fix engine", "The engine is on fire", "", TaskTypeIssue)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, userID, task.UserID)
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Nil(t, task.TrelloData)
	assert.Zero(t, task.FailCount)
	assert.WithinDuration(t, time.Now().UTC(), task.ReceivedAt, 5*time.Second)
}

func TestNewTaskDefaultsTypeToIssue(t *testing.T) {
	task, err := NewTask(uuid.New(), "Fix engine", "The engine is on fire", "", "")
	require.NoError(t, err)
	assert.Equal(t, TaskTypeIssue, task.Type)
}

func TestTaskValidation(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		category    TaskCategory
		taskType    TaskType
		wantErr     error
	}{
		{
			name:        "valid issue",
			title:       "Broken telemetry",
			description: "No signal since launch",
			taskType:    TaskTypeIssue,
		},
		{
			name:        "issue without title",
			description: "No signal since launch",
			taskType:    TaskTypeIssue,
			wantErr:     ErrIssueFieldsMissing,
		},
		{
			name:     "issue without description",
			title:    "Broken telemetry",
			taskType: TaskTypeIssue,
			wantErr:  ErrIssueFieldsMissing,
		},
		{
			name:        "valid bug without title",
			description: "Crashes on login",
			taskType:    TaskTypeBug,
		},
		{
			name:     "bug without description",
			title:    "some bug",
			taskType: TaskTypeBug,
			wantErr:  ErrBugDescriptionMissing,
		},
		{
			name:     "valid task",
			title:    "Repaint the hull",
			category: TaskCategoryMaintenance,
			taskType: TaskTypeTask,
		},
		{
			name:     "task without category",
			title:    "Repaint the hull",
			taskType: TaskTypeTask,
			wantErr:  ErrTaskFieldsMissing,
		},
		{
			name:     "task without title",
			category: TaskCategoryResearch,
			taskType: TaskTypeTask,
			wantErr:  ErrTaskFieldsMissing,
		},
		{
			name:     "unknown category",
			title:    "Repaint the hull",
			category: TaskCategory("CHAOS"),
			taskType: TaskTypeTask,
			wantErr:  ErrInvalidTaskCategory,
		},
		{
			name:        "unknown type",
			title:       "x",
			description: "y",
			taskType:    TaskType("EPIC"),
			wantErr:     ErrInvalidTaskType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := NewTask(uuid.New(), tt.title, tt.description, tt.category, tt.taskType)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, task)
				return
			}
			require.NoError(t, err)
			require.NoError(t, task.Validate())
		})
	}
}

func TestTaskValidationRequiresOwner(t *testing.T) {
	task := &Task{
		ID:          uuid.New(),
		Title:       "t",
		Description: "d",
		Type:        TaskTypeIssue,
		Status:      TaskStatusPending,
	}
	assert.ErrorIs(t, task.Validate(), ErrEmptyTaskUserID)
}

func TestParseTaskStatus(t *testing.T) {
	status, err := ParseTaskStatus("PENDING")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusPending, status)

	_, err = ParseTaskStatus("SHIPPED")
	assert.ErrorIs(t, err, ErrInvalidTaskStatus)
}
