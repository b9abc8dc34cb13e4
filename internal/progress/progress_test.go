package progress

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplesAt(positions ...float64) []Sample {
	out := make([]Sample, len(positions))
	for i, p := range positions {
		out[i] = Sample{Position: p}
	}
	return out
}

func TestCompute_Empty(t *testing.T) {
	stats, err := Compute(nil)
	require.NoError(t, err)
	assert.Nil(t, stats)

	stats, err = Compute([]Sample{})
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestCompute_PercentageExact(t *testing.T) {
	stats, err := Compute([]Sample{
		{Completed: true, Position: 100},
		{Position: 10},
		{Position: 20},
		{Position: 30},
	})
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 25.0, stats.Percentage)
	assert.Equal(t, 4, stats.TaskCount)
	assert.Equal(t, 1, stats.CompletedCount)
	assert.Equal(t, 40.0, stats.AveragePosition)
	assert.Equal(t, Uphill, stats.Stage)
}

func TestCompute_PercentageThirds(t *testing.T) {
	stats, err := Compute([]Sample{{Completed: true}, {Completed: true}, {}})
	require.NoError(t, err)
	assert.InDelta(t, 66.6666666, stats.Percentage, 1e-6)

	stats, err = Compute([]Sample{{Completed: true}, {Completed: true}})
	require.NoError(t, err)
	assert.Equal(t, 100.0, stats.Percentage)
}

func TestCompute_StageBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		positions []float64
		want      Stage
	}{
		{"exactly 45", []float64{40, 50}, AtPeak},
		{"exactly 55", []float64{50, 60}, AtPeak},
		{"just below 45", []float64{44.999}, Uphill},
		{"just above 55", []float64{55.001}, Downhill},
		{"start", []float64{0, 0}, Uphill},
		{"end", []float64{100, 100, 100}, Downhill},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := Compute(samplesAt(tt.positions...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, stats.Stage)
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, AtPeak, Classify(45))
	assert.Equal(t, AtPeak, Classify(55))
	assert.Equal(t, Uphill, Classify(math.Nextafter(45, 0)))
	assert.Equal(t, Downhill, Classify(math.Nextafter(55, 100)))
}

func TestCompute_NonFinite(t *testing.T) {
	_, err := Compute(samplesAt(10, math.NaN()))
	assert.ErrorIs(t, err, ErrNonFinite)
	_, err = Compute(samplesAt(math.Inf(-1)))
	assert.ErrorIs(t, err, ErrNonFinite)
}

func ptr[T any](v T) *T { return &v }

func TestPolicy_Independent(t *testing.T) {
	cur := TaskState{Completed: true, Position: 60}

	got := Independent.Apply(cur, Update{Position: ptr(100.0)})
	assert.Equal(t, TaskState{Completed: true, Position: 100}, got)

	got = Independent.Apply(TaskState{Position: 10}, Update{Position: ptr(100.0)})
	assert.Equal(t, TaskState{Completed: false, Position: 100}, got)

	got = Independent.Apply(cur, Update{Completed: ptr(false)})
	assert.Equal(t, TaskState{Completed: false, Position: 60}, got)
}

func TestPolicy_Coupled(t *testing.T) {
	got := Coupled.Apply(TaskState{Position: 10}, Update{Position: ptr(100.0)})
	assert.Equal(t, TaskState{Completed: true, Position: 100}, got)

	got = Coupled.Apply(TaskState{Position: 10}, Update{Position: ptr(250.0)})
	assert.Equal(t, TaskState{Completed: true, Position: 100}, got, "clamped to 100 counts as done")

	got = Coupled.Apply(TaskState{Completed: true, Position: 100}, Update{Completed: ptr(false)})
	assert.Equal(t, TaskState{Completed: false, Position: ResetPosition}, got)

	got = Coupled.Apply(TaskState{Completed: true, Position: 100}, Update{Completed: ptr(false), Position: ptr(70.0)})
	assert.Equal(t, TaskState{Completed: false, Position: 70}, got)

	got = Coupled.Apply(TaskState{Position: 10}, Update{Completed: ptr(false), Position: ptr(100.0)})
	assert.Equal(t, TaskState{Completed: false, Position: 100}, got, "explicit completed wins")

	got = Coupled.Apply(TaskState{Position: 40}, Update{Completed: ptr(false)})
	assert.Equal(t, TaskState{Completed: false, Position: 40}, got, "already open task is not moved")
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Coupled")
	require.NoError(t, err)
	assert.Equal(t, Coupled, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Independent, p)

	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)
}

func TestStatsView(t *testing.T) {
	var none *Stats
	v := none.View()
	assert.Zero(t, v.TaskCount)
	assert.Nil(t, v.Percentage)
	assert.Nil(t, v.AveragePosition)
	assert.Nil(t, v.Stage)

	stats, err := Compute([]Sample{{Completed: true, Position: 100}, {Position: 0}})
	require.NoError(t, err)
	v = stats.View()
	assert.Equal(t, 2, v.TaskCount)
	assert.Equal(t, 1, v.CompletedCount)
	require.NotNil(t, v.Percentage)
	assert.Equal(t, 50.0, *v.Percentage)
	require.NotNil(t, v.Stage)
	assert.Equal(t, AtPeak, *v.Stage)
}
