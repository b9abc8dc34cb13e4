// Package service defines the backend-agnostic interface for feature and task operations.
package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"hillchart/internal/progress"
)

// Service defines the interface for tracker backend operations.
// Commands and HTTP handlers only talk to this interface.
type Service interface {
	// ListFeatures returns all features, newest first, with assignees and stats.
	ListFeatures(ctx context.Context) ([]Feature, error)

	// GetFeature returns one feature by ID.
	GetFeature(ctx context.Context, id int64) (Feature, error)

	// ResolveFeature finds a feature by name (case-insensitive, trimmed).
	// Returns ErrNotFound or ErrAmbiguous.
	ResolveFeature(ctx context.Context, name string) (Feature, error)

	// CreateFeature creates a feature and returns its ID.
	CreateFeature(ctx context.Context, in FeatureInput) (int64, error)

	// DeleteFeature deletes a feature and its tasks.
	DeleteFeature(ctx context.Context, id int64) error

	// ListTasks returns a feature's tasks in creation order.
	ListTasks(ctx context.Context, featureID int64) ([]Task, error)

	// FeatureWithTasks returns a feature and its tasks from one consistent
	// read.
	FeatureWithTasks(ctx context.Context, id int64) (Feature, []Task, error)

	// GetTask returns one task by ID.
	GetTask(ctx context.Context, id int64) (Task, error)

	// CreateTask creates a task in a feature and returns its ID.
	CreateTask(ctx context.Context, featureID int64, in TaskInput) (int64, error)

	// UpdateTask applies a partial update.
	UpdateTask(ctx context.Context, id int64, u TaskUpdate) error

	// UpdateTaskPosition moves a task on the hill.
	UpdateTaskPosition(ctx context.Context, id int64, position float64) error

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, id int64) error

	// ListAssignees returns all assignees ordered by username.
	ListAssignees(ctx context.Context) ([]Assignee, error)

	// CreateAssignee creates an assignee and returns its ID.
	CreateAssignee(ctx context.Context, username, avatarURL string) (int64, error)

	// FeatureStats computes one feature's progress from its current tasks.
	FeatureStats(ctx context.Context, featureID int64) (FeatureStats, error)

	// AllFeatureStats computes progress for every feature.
	AllFeatureStats(ctx context.Context) ([]FeatureStats, error)
}

// TaskSource is an external system tasks can be imported from.
type TaskSource interface {
	// ResolveList finds a list by name (case-insensitive, trimmed).
	ResolveList(ctx context.Context, name string) (SourceList, error)

	// ListTasks returns every task in a list, open and completed.
	ListTasks(ctx context.Context, listID string) ([]SourceTask, error)
}

// StatsFor aggregates a task snapshot into FeatureStats.
func StatsFor(featureID int64, tasks []Task) (FeatureStats, error) {
	samples := make([]progress.Sample, len(tasks))
	for i, t := range tasks {
		samples[i] = t.Sample()
	}
	stats, err := progress.Compute(samples)
	if err != nil {
		return FeatureStats{}, fmt.Errorf("feature %d: %w", featureID, err)
	}
	return FeatureStats{FeatureID: featureID, Stats: stats}, nil
}

// ValidateFeatureInput normalises and checks a FeatureInput.
func ValidateFeatureInput(in FeatureInput) (FeatureInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, fmt.Errorf("%w: feature name required", ErrInvalid)
	}
	if in.Status == "" {
		in.Status = StatusTodo
	}
	if !in.Status.Valid() {
		return in, fmt.Errorf("%w: unknown status: %s", ErrInvalid, in.Status)
	}
	return in, nil
}

// ValidateTaskInput normalises and checks a TaskInput.
func ValidateTaskInput(in TaskInput) (TaskInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, fmt.Errorf("%w: title required", ErrInvalid)
	}
	if math.IsNaN(in.Position) || math.IsInf(in.Position, 0) {
		return in, fmt.Errorf("%w: position is not a finite number", ErrInvalid)
	}
	in.Position = progress.ClampPosition(in.Position)
	return in, nil
}

// MatchName reports whether a stored name matches a user-supplied one.
func MatchName(stored, query string) bool {
	return strings.EqualFold(strings.TrimSpace(stored), strings.TrimSpace(query))
}
