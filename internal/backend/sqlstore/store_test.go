package sqlstore

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hillchart/internal/progress"
	"hillchart/internal/service"
)

// openTestStore opens a migrated in-memory store with a fixed clock.
func openTestStore(t *testing.T, policy progress.CompletionPolicy) *Store {
	t.Helper()
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s, err := Open(context.Background(), MemoryPath, Options{
		Policy: policy,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Migrate(context.Background())
	require.NoError(t, err)
	return s
}

func mustFeature(t *testing.T, s *Store, name string) int64 {
	t.Helper()
	id, err := s.CreateFeature(context.Background(), service.FeatureInput{Name: name})
	require.NoError(t, err)
	return id
}

func mustTask(t *testing.T, s *Store, featureID int64, title string, completed bool, pos float64) int64 {
	t.Helper()
	id, err := s.CreateTask(context.Background(), featureID, service.TaskInput{
		Title: title, Completed: completed, Position: pos,
	})
	require.NoError(t, err)
	return id
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTestStore(t, progress.Independent)
	ctx := context.Background()

	ran, err := s.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, ran)

	applied, err := s.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init", "002_indexes"}, applied)
}

func TestDrop_ThenMigrate(t *testing.T) {
	s := openTestStore(t, progress.Independent)
	ctx := context.Background()
	mustFeature(t, s, "Gone")

	require.NoError(t, s.Drop(ctx))
	ran, err := s.Migrate(ctx)
	require.NoError(t, err)
	assert.Len(t, ran, 2)

	features, err := s.ListFeatures(ctx)
	require.NoError(t, err)
	assert.Empty(t, features)
}

func TestFeatures_CreateListResolve(t *testing.T) {
	s := openTestStore(t, progress.Independent)
	ctx := context.Background()

	aid, err := s.CreateAssignee(ctx, "Zen", "http://x/zen.png")
	require.NoError(t, err)

	due := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	first, err := s.CreateFeature(ctx, service.FeatureInput{
		Name: "  Checkout  ", Description: "pay", DueDate: &due, AssigneeIDs: []int64{aid},
	})
	require.NoError(t, err)
	second := mustFeature(t, s, "Search")

	features, err := s.ListFeatures(ctx)
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, second, features[0].ID, "newest first")
	assert.Equal(t, first, features[1].ID)

	f := features[1]
	assert.Equal(t, "Checkout", f.Name)
	assert.Equal(t, service.StatusTodo, f.Status)
	require.NotNil(t, f.DueDate)
	assert.True(t, due.Equal(*f.DueDate))
	require.Len(t, f.Assignees, 1)
	assert.Equal(t, "Zen", f.Assignees[0].Username)
	assert.Nil(t, f.Stats, "no tasks means no stats")

	got, err := s.ResolveFeature(ctx, "checkout")
	require.NoError(t, err)
	assert.Equal(t, first, got.ID)

	_, err = s.ResolveFeature(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)

	mustFeature(t, s, "SEARCH")
	_, err = s.ResolveFeature(ctx, "search")
	assert.ErrorIs(t, err, service.ErrAmbiguous)
}

func TestFeatures_Validation(t *testing.T) {
	s := openTestStore(t, progress.Independent)
	ctx := context.Background()

	_, err := s.CreateFeature(ctx, service.FeatureInput{Name: "  "})
	assert.ErrorIs(t, err, service.ErrInvalid)

	_, err = s.CreateFeature(ctx, service.FeatureInput{Name: "x", Status: "paused"})
	assert.ErrorIs(t, err, service.ErrInvalid)

	_, err = s.CreateFeature(ctx, service.FeatureInput{Name: "x", AssigneeIDs: []int64{99}})
	assert.ErrorIs(t, err, service.ErrInvalid)
}

func TestDeleteFeature_CascadesTasks(t *testing.T) {
	s := openTestStore(t, progress.Independent)
	ctx := context.Background()
	fid := mustFeature(t, s, "Temp")
	tid := mustTask(t, s, fid, "one", false, 10)

	require.NoError(t, s.DeleteFeature(ctx, fid))
	_, err := s.GetTask(ctx, tid)
	assert.ErrorIs(t, err, service.ErrNotFound)

	assert.ErrorIs(t, s.DeleteFeature(ctx, fid), service.ErrNotFound)
}

func TestFeatureWithTasks(t *testing.T) {
	s := openTestStore(t, progress.Independent)
	ctx := context.Background()
	fid := mustFeature(t, s, "Checkout")
	mustTask(t, s, fid, "cart", true, 100)
	mustTask(t, s, fid, "pay", false, 20)
	other := mustFeature(t, s, "Search")
	mustTask(t, s, other, "index", false, 90)

	f, tasks, err := s.FeatureWithTasks(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, "Checkout", f.Name)
	require.Len(t, tasks, 2)
	assert.Equal(t, "cart", tasks[0].Title)
	assert.Equal(t, "pay", tasks[1].Title)
	require.NotNil(t, f.Stats)
	assert.Equal(t, 2, f.Stats.TaskCount)
	assert.Equal(t, 60.0, f.Stats.AveragePosition)

	empty := mustFeature(t, s, "Empty")
	f, tasks, err = s.FeatureWithTasks(ctx, empty)
	require.NoError(t, err)
	assert.Nil(t, f.Stats)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)

	_, _, err = s.FeatureWithTasks(ctx, 999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestTasks_CRUD(t *testing.T) {
	s := openTestStore(t, progress.Independent)
	ctx := context.Background()
	fid := mustFeature(t, s, "Checkout")

	a1, err := s.CreateAssignee(ctx, "Po", "")
	require.NoError(t, err)
	a2, err := s.CreateAssignee(ctx, "Fang", "")
	require.NoError(t, err)

	tid, err := s.CreateTask(ctx, fid, service.TaskInput{Title: "Design", Position: 140, AssigneeIDs: []int64{a1, a2}})
	require.NoError(t, err)
	mustTask(t, s, fid, "Build", false, 5)

	tasks, err := s.ListTasks(ctx, fid)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Design", tasks[0].Title)
	assert.Equal(t, 100.0, tasks[0].Position, "clamped on create")
	require.Len(t, tasks[0].Assignees, 2)
	assert.Equal(t, "Fang", tasks[0].Assignees[0].Username)
	assert.Empty(t, tasks[1].Assignees)

	title := "Design v2"
	done := true
	require.NoError(t, s.UpdateTask(ctx, tid, service.TaskUpdate{Title: &title, Completed: &done}))
	got, err := s.GetTask(ctx, tid)
	require.NoError(t, err)
	assert.Equal(t, "Design v2", got.Title)
	assert.True(t, got.Completed)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	require.NoError(t, s.UpdateTaskPosition(ctx, tid, -4))
	got, err = s.GetTask(ctx, tid)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Position)

	assert.ErrorIs(t, s.UpdateTaskPosition(ctx, tid, math.NaN()), service.ErrInvalid)
	assert.ErrorIs(t, s.UpdateTaskPosition(ctx, 999, 10), service.ErrNotFound)

	require.NoError(t, s.DeleteTask(ctx, tid))
	assert.ErrorIs(t, s.DeleteTask(ctx, tid), service.ErrNotFound)

	_, err = s.ListTasks(ctx, 999)
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = s.CreateTask(ctx, 999, service.TaskInput{Title: "orphan"})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestUpdateTask_CoupledPolicy(t *testing.T) {
	s := openTestStore(t, progress.Coupled)
	ctx := context.Background()
	fid := mustFeature(t, s, "Coupled")
	tid := mustTask(t, s, fid, "t", false, 40)

	require.NoError(t, s.UpdateTaskPosition(ctx, tid, 100))
	got, err := s.GetTask(ctx, tid)
	require.NoError(t, err)
	assert.True(t, got.Completed)

	open := false
	require.NoError(t, s.UpdateTask(ctx, tid, service.TaskUpdate{Completed: &open}))
	got, err = s.GetTask(ctx, tid)
	require.NoError(t, err)
	assert.False(t, got.Completed)
	assert.Equal(t, progress.ResetPosition, got.Position)
}

func TestStats_ReadTimeAggregation(t *testing.T) {
	s := openTestStore(t, progress.Independent)
	ctx := context.Background()
	fid := mustFeature(t, s, "Stats")
	empty := mustFeature(t, s, "Empty")

	st, err := s.FeatureStats(ctx, fid)
	require.NoError(t, err)
	assert.Nil(t, st.Stats)

	mustTask(t, s, fid, "a", true, 100)
	mustTask(t, s, fid, "b", false, 20)
	mustTask(t, s, fid, "c", false, 30)
	last := mustTask(t, s, fid, "d", false, 30)

	st, err = s.FeatureStats(ctx, fid)
	require.NoError(t, err)
	require.NotNil(t, st.Stats)
	assert.Equal(t, 25.0, st.Stats.Percentage)
	assert.Equal(t, progress.AtPeak, st.Stats.Stage)

	require.NoError(t, s.UpdateTaskPosition(ctx, last, 100))
	st, err = s.FeatureStats(ctx, fid)
	require.NoError(t, err)
	assert.Equal(t, progress.Downhill, st.Stats.Stage, "recomputed after mutation")

	all, err := s.AllFeatureStats(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, fid, all[0].FeatureID)
	assert.NotNil(t, all[0].Stats)
	assert.Equal(t, empty, all[1].FeatureID)
	assert.Nil(t, all[1].Stats)

	_, err = s.FeatureStats(ctx, 12345)
	assert.ErrorIs(t, err, service.ErrNotFound)

	f, err := s.GetFeature(ctx, fid)
	require.NoError(t, err)
	require.NotNil(t, f.Stats)
	assert.Equal(t, 4, f.Stats.TaskCount)
}

func TestAssignees_UniqueUsername(t *testing.T) {
	s := openTestStore(t, progress.Independent)
	ctx := context.Background()

	_, err := s.CreateAssignee(ctx, "KT", "")
	require.NoError(t, err)
	_, err = s.CreateAssignee(ctx, "KT", "")
	assert.True(t, errors.Is(err, service.ErrConflict), "got %v", err)
	_, err = s.CreateAssignee(ctx, " ", "")
	assert.ErrorIs(t, err, service.ErrInvalid)

	_, err = s.CreateAssignee(ctx, "Artid", "")
	require.NoError(t, err)
	list, err := s.ListAssignees(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Artid", list[0].Username)
}

func TestSeed(t *testing.T) {
	s := openTestStore(t, progress.Independent)
	ctx := context.Background()

	sum, err := s.Seed(ctx, rand.New(rand.NewPCG(1, 2)), "http://localhost:3000/images")
	require.NoError(t, err)
	assert.Equal(t, SeedSummary{Features: 3, Tasks: 12, Assignees: 7}, sum)

	features, err := s.ListFeatures(ctx)
	require.NoError(t, err)
	require.Len(t, features, 3)
	for _, f := range features {
		require.NotNil(t, f.Stats)
		assert.Equal(t, 4, f.Stats.TaskCount)
		assert.NotEmpty(t, f.Assignees)

		tasks, err := s.ListTasks(ctx, f.ID)
		require.NoError(t, err)
		for _, task := range tasks {
			assert.GreaterOrEqual(t, len(task.Assignees), 1)
			assert.LessOrEqual(t, len(task.Assignees), 2)
		}
	}
}

func TestSampleN(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))

	got, err := SampleN(rng, []int{1, 2, 3, 4}, 4)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, got)

	none, err := SampleN(rng, []string{"a"}, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = SampleN(rng, []int{1}, 2)
	assert.Error(t, err)
}
