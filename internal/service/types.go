// Package service defines the backend-agnostic interface for feature and task operations.
package service

import (
	"errors"
	"time"

	"hillchart/internal/progress"
)

// Sentinel errors shared by every backend.
var (
	ErrNotFound  = errors.New("not found")
	ErrAmbiguous = errors.New("ambiguous")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid")
)

// FeatureStatus is the workflow status of a feature.
type FeatureStatus string

const (
	StatusTodo       FeatureStatus = "todo"
	StatusInProgress FeatureStatus = "in-progress"
	StatusDeploying  FeatureStatus = "deploying"
	StatusCompleted  FeatureStatus = "completed"
)

// Valid reports whether s is a known status.
func (s FeatureStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDeploying, StatusCompleted:
		return true
	}
	return false
}

// Assignee is a person who can own features and tasks.
type Assignee struct {
	ID        int64     `json:"id" yaml:"id"`
	Username  string    `json:"username" yaml:"username"`
	AvatarURL string    `json:"avatarUrl" yaml:"avatar_url"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

// Feature is the top-level trackable unit of work.
// Stats is nil when the feature has no tasks.
type Feature struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      FeatureStatus   `json:"status"`
	DueDate     *time.Time      `json:"dueDate"`
	CreatedAt   time.Time       `json:"createdAt"`
	Assignees   []Assignee      `json:"assignees"`
	Stats       *progress.Stats `json:"-"`
}

// Task is one piece of a feature placed on the hill.
type Task struct {
	ID        int64      `json:"id"`
	FeatureID int64      `json:"featureId"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	Position  float64    `json:"position"`
	DueDate   *time.Time `json:"dueDate"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Assignees []Assignee `json:"assignees"`
}

// Sample returns the fields progress aggregation needs.
func (t Task) Sample() progress.Sample {
	return progress.Sample{Completed: t.Completed, Position: t.Position}
}

// FeatureInput is the data needed to create a feature.
type FeatureInput struct {
	Name        string
	Description string
	Status      FeatureStatus
	DueDate     *time.Time
	AssigneeIDs []int64
}

// TaskInput is the data needed to create a task.
type TaskInput struct {
	Title       string
	Completed   bool
	Position    float64
	DueDate     *time.Time
	AssigneeIDs []int64
}

// TaskUpdate is a partial task change; nil fields are left alone.
type TaskUpdate struct {
	Title     *string
	Completed *bool
	Position  *float64
	DueDate   *time.Time
}

// FeatureStats pairs a feature id with its derived progress.
type FeatureStats struct {
	FeatureID int64
	Stats     *progress.Stats
}

// SourceList is a task list in an external task source.
type SourceList struct {
	ID    string
	Title string
}

// SourceTask is a task read from an external task source.
type SourceTask struct {
	ID        string
	Title     string
	Completed bool
	Due       *time.Time
}
