// Package progress derives a feature's completion percentage and hill stage
// from its tasks.
package progress

import (
	"errors"
	"fmt"
	"math"
)

// Stage is the qualitative position of a feature on the hill.
type Stage string

const (
	Uphill   Stage = "uphill"
	AtPeak   Stage = "at-peak"
	Downhill Stage = "downhill"
)

// Peak bounds, both inclusive to AtPeak.
const (
	PeakLow  = 45.0
	PeakHigh = 55.0
)

// ErrNonFinite is returned for NaN or infinite task positions.
var ErrNonFinite = errors.New("progress: non-finite position")

// Sample is the part of a task the aggregation reads.
type Sample struct {
	Completed bool
	Position  float64
}

// Stats is the derived progress of one feature.
type Stats struct {
	TaskCount       int     `json:"taskCount" yaml:"task_count"`
	CompletedCount  int     `json:"completedCount" yaml:"completed_count"`
	Percentage      float64 `json:"percentage" yaml:"percentage"`
	AveragePosition float64 `json:"averagePosition" yaml:"average_position"`
	Stage           Stage   `json:"stage" yaml:"stage"`
}

// Compute aggregates samples. It returns nil when there are no samples: a
// feature without tasks has no percentage, which is not the same as 0%.
func Compute(samples []Sample) (*Stats, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	var completed int
	var sum float64
	for i, s := range samples {
		if math.IsNaN(s.Position) || math.IsInf(s.Position, 0) {
			return nil, fmt.Errorf("%w: sample %d", ErrNonFinite, i)
		}
		if s.Completed {
			completed++
		}
		sum += s.Position
	}

	n := float64(len(samples))
	avg := sum / n
	return &Stats{
		TaskCount:       len(samples),
		CompletedCount:  completed,
		Percentage:      float64(completed) * 100 / n,
		AveragePosition: avg,
		Stage:           Classify(avg),
	}, nil
}

// Classify buckets an average position. The 45 and 55 boundaries are exact.
func Classify(avg float64) Stage {
	switch {
	case avg < PeakLow:
		return Uphill
	case avg > PeakHigh:
		return Downhill
	default:
		return AtPeak
	}
}

// View is Stats with undefined values as explicit nulls, for encoders that
// must tell "no tasks" apart from 0%.
type View struct {
	TaskCount       int      `json:"taskCount" yaml:"task_count"`
	CompletedCount  int      `json:"completedCount" yaml:"completed_count"`
	Percentage      *float64 `json:"percentage" yaml:"percentage"`
	AveragePosition *float64 `json:"averagePosition" yaml:"average_position"`
	Stage           *Stage   `json:"stage" yaml:"stage"`
}

// View returns the encodable form of s. A nil receiver yields zero counts
// and null values.
func (s *Stats) View() View {
	if s == nil {
		return View{}
	}
	pct, avg, stage := s.Percentage, s.AveragePosition, s.Stage
	return View{
		TaskCount:       s.TaskCount,
		CompletedCount:  s.CompletedCount,
		Percentage:      &pct,
		AveragePosition: &avg,
		Stage:           &stage,
	}
}
