package sqlstore

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"hillchart/internal/service"
)

var seedAssignees = []string{"Artid", "Po", "Prince", "Zen", "Care", "KT", "Fang"}

var seedAvatars = []string{"avatar-1.png", "avatar-2.png", "avatar-3.png", "avatar-4.png", "avatar-5.png"}

// SeedSummary reports what Seed created.
type SeedSummary struct {
	Features  int
	Tasks     int
	Assignees int
}

// Seed fills the database with demo features, tasks and assignees.
// avatarBase is prefixed to avatar file names.
func (s *Store) Seed(ctx context.Context, rng *rand.Rand, avatarBase string) (SeedSummary, error) {
	var sum SeedSummary
	now := s.timestamp()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)

	features := []service.FeatureInput{
		{Name: "Feature A", Description: "Description for Feature A", DueDate: ptr(now.AddDate(0, 0, 7))},
		{Name: "Feature B", Description: "Description for Feature B", DueDate: ptr(now.AddDate(0, 0, -3))},
		{Name: "Feature C", Description: "Description for Feature C", DueDate: &endOfDay},
	}

	assigneeIDs := make([]int64, 0, len(seedAssignees))
	for _, name := range seedAssignees {
		avatar, err := SampleN(rng, seedAvatars, 1)
		if err != nil {
			return sum, err
		}
		id, err := s.CreateAssignee(ctx, name, avatarBase+"/"+avatar[0])
		if err != nil {
			return sum, fmt.Errorf("seed assignee %s: %w", name, err)
		}
		assigneeIDs = append(assigneeIDs, id)
		sum.Assignees++
	}

	for _, in := range features {
		featureID, err := s.CreateFeature(ctx, in)
		if err != nil {
			return sum, fmt.Errorf("seed feature %s: %w", in.Name, err)
		}
		sum.Features++

		owners := map[int64]bool{}
		for n := 1; n <= 4; n++ {
			k := 1
			if rng.Float64() >= 0.5 {
				k = 2
			}
			picked, err := SampleN(rng, assigneeIDs, k)
			if err != nil {
				return sum, err
			}
			for _, id := range picked {
				owners[id] = true
			}
			_, err = s.CreateTask(ctx, featureID, service.TaskInput{
				Title:       fmt.Sprintf("#%d Task for feature %d", n, featureID),
				Completed:   rng.IntN(2) == 1,
				Position:    float64(rng.IntN(101)),
				AssigneeIDs: picked,
			})
			if err != nil {
				return sum, fmt.Errorf("seed task: %w", err)
			}
			sum.Tasks++
		}

		for id := range owners {
			if _, err := s.db.ExecContext(ctx,
				`INSERT OR IGNORE INTO feature_assignees (feature_id, assignee_id) VALUES (?, ?)`, featureID, id); err != nil {
				return sum, fmt.Errorf("seed feature assignee: %w", err)
			}
		}
	}

	s.log.Info("seeded database",
		zap.Int("features", sum.Features),
		zap.Int("tasks", sum.Tasks),
		zap.Int("assignees", sum.Assignees))
	return sum, nil
}

// SampleN picks n distinct elements of items at random.
func SampleN[T any](rng *rand.Rand, items []T, n int) ([]T, error) {
	if n > len(items) {
		return nil, fmt.Errorf("sample size %d cannot be larger than %d items", n, len(items))
	}
	perm := rng.Perm(len(items))
	out := make([]T, n)
	for i := range out {
		out[i] = items[perm[i]]
	}
	return out, nil
}

func ptr[T any](v T) *T { return &v }
