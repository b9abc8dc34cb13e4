// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"hillchart/internal/progress"
	"hillchart/internal/service"
)

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu        sync.RWMutex
	nextID    int64
	features  []service.Feature // creation order
	tasks     []service.Task    // creation order
	assignees []service.Assignee

	// Policy is applied on UpdateTask, like the SQL store does.
	Policy progress.CompletionPolicy

	// Now stamps created and updated times. Defaults to a fixed instant.
	Now func() time.Time

	// Error injection for testing
	ListFeaturesErr  error
	CreateFeatureErr error
	DeleteFeatureErr error
	ListTasksErr     error
	CreateTaskErr    error
	UpdateTaskErr    error
	DeleteTaskErr    error
	StatsErr         error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		Now: func() time.Time { return time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC) },
	}
}

func (f *FakeService) id() int64 {
	f.nextID++
	return f.nextID
}

// AddFeature adds a feature and returns its ID.
func (f *FakeService) AddFeature(name string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.features = append(f.features, service.Feature{
		ID: id, Name: name, Status: service.StatusTodo, CreatedAt: f.Now(), Assignees: []service.Assignee{},
	})
	return id
}

// AddTask adds a task to a feature and returns its ID.
func (f *FakeService) AddTask(featureID int64, title string, completed bool, position float64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.tasks = append(f.tasks, service.Task{
		ID: id, FeatureID: featureID, Title: title, Completed: completed, Position: position,
		CreatedAt: f.Now(), UpdatedAt: f.Now(), Assignees: []service.Assignee{},
	})
	return id
}

// Task returns a task by ID for assertions.
func (f *FakeService) Task(id int64) (service.Task, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

// FeatureNames returns feature names in creation order.
func (f *FakeService) FeatureNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, len(f.features))
	for i, ft := range f.features {
		names[i] = ft.Name
	}
	return names
}

func (f *FakeService) featureIndex(id int64) int {
	for i, ft := range f.features {
		if ft.ID == id {
			return i
		}
	}
	return -1
}

func (f *FakeService) taskIndex(id int64) int {
	for i, t := range f.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (f *FakeService) tasksOf(featureID int64) []service.Task {
	var out []service.Task
	for _, t := range f.tasks {
		if t.FeatureID == featureID {
			out = append(out, t)
		}
	}
	return out
}

func (f *FakeService) withStats(ft service.Feature) (service.Feature, error) {
	st, err := service.StatsFor(ft.ID, f.tasksOf(ft.ID))
	if err != nil {
		return ft, err
	}
	ft.Stats = st.Stats
	return ft, nil
}

// ListFeatures implements service.Service.
func (f *FakeService) ListFeatures(ctx context.Context) ([]service.Feature, error) {
	if f.ListFeaturesErr != nil {
		return nil, f.ListFeaturesErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]service.Feature, 0, len(f.features))
	for i := len(f.features) - 1; i >= 0; i-- {
		ft, err := f.withStats(f.features[i])
		if err != nil {
			return nil, err
		}
		out = append(out, ft)
	}
	return out, nil
}

// GetFeature implements service.Service.
func (f *FakeService) GetFeature(ctx context.Context, id int64) (service.Feature, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	i := f.featureIndex(id)
	if i < 0 {
		return service.Feature{}, fmt.Errorf("%w: feature %d", service.ErrNotFound, id)
	}
	return f.withStats(f.features[i])
}

// ResolveFeature implements service.Service.
func (f *FakeService) ResolveFeature(ctx context.Context, name string) (service.Feature, error) {
	f.mu.RLock()
	var matches []int64
	for _, ft := range f.features {
		if service.MatchName(ft.Name, name) {
			matches = append(matches, ft.ID)
		}
	}
	f.mu.RUnlock()

	switch len(matches) {
	case 0:
		return service.Feature{}, fmt.Errorf("%w: feature %s", service.ErrNotFound, strings.TrimSpace(name))
	case 1:
		return f.GetFeature(ctx, matches[0])
	default:
		return service.Feature{}, fmt.Errorf("%w: feature name %s", service.ErrAmbiguous, strings.TrimSpace(name))
	}
}

// CreateFeature implements service.Service.
func (f *FakeService) CreateFeature(ctx context.Context, in service.FeatureInput) (int64, error) {
	if f.CreateFeatureErr != nil {
		return 0, f.CreateFeatureErr
	}
	in, err := service.ValidateFeatureInput(in)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.features = append(f.features, service.Feature{
		ID: id, Name: in.Name, Description: in.Description, Status: in.Status,
		DueDate: in.DueDate, CreatedAt: f.Now(), Assignees: []service.Assignee{},
	})
	return id, nil
}

// DeleteFeature implements service.Service.
func (f *FakeService) DeleteFeature(ctx context.Context, id int64) error {
	if f.DeleteFeatureErr != nil {
		return f.DeleteFeatureErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.featureIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: feature %d", service.ErrNotFound, id)
	}
	f.features = append(f.features[:i], f.features[i+1:]...)
	kept := f.tasks[:0]
	for _, t := range f.tasks {
		if t.FeatureID != id {
			kept = append(kept, t)
		}
	}
	f.tasks = kept
	return nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, featureID int64) ([]service.Task, error) {
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.featureIndex(featureID) < 0 {
		return nil, fmt.Errorf("%w: feature %d", service.ErrNotFound, featureID)
	}
	out := f.tasksOf(featureID)
	if out == nil {
		out = []service.Task{}
	}
	return out, nil
}

// FeatureWithTasks implements service.Service.
func (f *FakeService) FeatureWithTasks(ctx context.Context, id int64) (service.Feature, []service.Task, error) {
	if f.ListTasksErr != nil {
		return service.Feature{}, nil, f.ListTasksErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	i := f.featureIndex(id)
	if i < 0 {
		return service.Feature{}, nil, fmt.Errorf("%w: feature %d", service.ErrNotFound, id)
	}
	ft, err := f.withStats(f.features[i])
	if err != nil {
		return service.Feature{}, nil, err
	}
	tasks := f.tasksOf(id)
	if tasks == nil {
		tasks = []service.Task{}
	}
	return ft, tasks, nil
}

// GetTask implements service.Service.
func (f *FakeService) GetTask(ctx context.Context, id int64) (service.Task, error) {
	t, ok := f.Task(id)
	if !ok {
		return service.Task{}, fmt.Errorf("%w: task %d", service.ErrNotFound, id)
	}
	return t, nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, featureID int64, in service.TaskInput) (int64, error) {
	if f.CreateTaskErr != nil {
		return 0, f.CreateTaskErr
	}
	in, err := service.ValidateTaskInput(in)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.featureIndex(featureID) < 0 {
		return 0, fmt.Errorf("%w: feature %d", service.ErrNotFound, featureID)
	}
	id := f.id()
	f.tasks = append(f.tasks, service.Task{
		ID: id, FeatureID: featureID, Title: in.Title, Completed: in.Completed, Position: in.Position,
		DueDate: in.DueDate, CreatedAt: f.Now(), UpdatedAt: f.Now(), Assignees: []service.Assignee{},
	})
	return id, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id int64, u service.TaskUpdate) error {
	if f.UpdateTaskErr != nil {
		return f.UpdateTaskErr
	}
	if u.Position != nil && (math.IsNaN(*u.Position) || math.IsInf(*u.Position, 0)) {
		return fmt.Errorf("%w: position is not a finite number", service.ErrInvalid)
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return fmt.Errorf("%w: title required", service.ErrInvalid)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.taskIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: task %d", service.ErrNotFound, id)
	}
	t := &f.tasks[i]
	next := f.Policy.Apply(
		progress.TaskState{Completed: t.Completed, Position: t.Position},
		progress.Update{Completed: u.Completed, Position: u.Position},
	)
	t.Completed, t.Position = next.Completed, next.Position
	if u.Title != nil {
		t.Title = strings.TrimSpace(*u.Title)
	}
	if u.DueDate != nil {
		t.DueDate = u.DueDate
	}
	t.UpdatedAt = f.Now()
	return nil
}

// UpdateTaskPosition implements service.Service.
func (f *FakeService) UpdateTaskPosition(ctx context.Context, id int64, position float64) error {
	return f.UpdateTask(ctx, id, service.TaskUpdate{Position: &position})
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id int64) error {
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.taskIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: task %d", service.ErrNotFound, id)
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return nil
}

// ListAssignees implements service.Service.
func (f *FakeService) ListAssignees(ctx context.Context) ([]service.Assignee, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := append([]service.Assignee{}, f.assignees...)
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// CreateAssignee implements service.Service.
func (f *FakeService) CreateAssignee(ctx context.Context, username, avatarURL string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, fmt.Errorf("%w: username required", service.ErrInvalid)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assignees {
		if a.Username == username {
			return 0, fmt.Errorf("%w: username %s", service.ErrConflict, username)
		}
	}
	id := f.id()
	f.assignees = append(f.assignees, service.Assignee{ID: id, Username: username, AvatarURL: avatarURL, CreatedAt: f.Now()})
	return id, nil
}

// FeatureStats implements service.Service.
func (f *FakeService) FeatureStats(ctx context.Context, featureID int64) (service.FeatureStats, error) {
	if f.StatsErr != nil {
		return service.FeatureStats{}, f.StatsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.featureIndex(featureID) < 0 {
		return service.FeatureStats{}, fmt.Errorf("%w: feature %d", service.ErrNotFound, featureID)
	}
	return service.StatsFor(featureID, f.tasksOf(featureID))
}

// AllFeatureStats implements service.Service.
func (f *FakeService) AllFeatureStats(ctx context.Context) ([]service.FeatureStats, error) {
	if f.StatsErr != nil {
		return nil, f.StatsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.FeatureStats, 0, len(f.features))
	for _, ft := range f.features {
		st, err := service.StatsFor(ft.ID, f.tasksOf(ft.ID))
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// FakeSource is an in-memory service.TaskSource.
type FakeSource struct {
	Lists []service.SourceList
	Tasks map[string][]service.SourceTask

	ListTasksErr error
}

// ResolveList implements service.TaskSource.
func (s *FakeSource) ResolveList(ctx context.Context, name string) (service.SourceList, error) {
	var matches []service.SourceList
	for _, l := range s.Lists {
		if service.MatchName(l.Title, name) {
			matches = append(matches, l)
		}
	}
	switch len(matches) {
	case 0:
		return service.SourceList{}, fmt.Errorf("%w: list %s", service.ErrNotFound, name)
	case 1:
		return matches[0], nil
	default:
		return service.SourceList{}, fmt.Errorf("%w: list name %s", service.ErrAmbiguous, name)
	}
}

// ListTasks implements service.TaskSource.
func (s *FakeSource) ListTasks(ctx context.Context, listID string) ([]service.SourceTask, error) {
	if s.ListTasksErr != nil {
		return nil, s.ListTasksErr
	}
	return s.Tasks[listID], nil
}

var (
	_ service.Service    = (*FakeService)(nil)
	_ service.TaskSource = (*FakeSource)(nil)
)
