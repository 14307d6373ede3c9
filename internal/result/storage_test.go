package result_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/vadtune/internal/result"
)

func TestWriteAndReadRunMeta(t *testing.T) {
	dir := t.TempDir()
	meta := &result.RunMeta{
		Kind:           result.KindOptimize,
		Plan:           "tmp/plan.json",
		Backend:        "native",
		StartedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		DurationS:      12.5,
		Status:         result.StatusCompleted,
		SimulatorCalls: 30,
		Evaluations:    1500,
		Generations:    30,
		Termination:    "ftol",
		BestParams:     map[string]float64{"speech_min_freq": 120},
		BestLoss:       0.25,
		BestFScore:     0.75,
	}
	require.NoError(t, result.WriteRunMeta(dir, meta))

	got, err := result.ReadRunMeta(filepath.Join(dir, result.MetaFile))
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

func TestRunMetaNaNScores(t *testing.T) {
	dir := t.TempDir()
	meta := &result.RunMeta{
		Kind:       result.KindDebug,
		Scores:     []result.Score{0.5, result.NaN(), 0.2},
		BestLoss:   result.NaN(),
		BestFScore: 0.5,
	}
	require.NoError(t, result.WriteRunMeta(dir, meta))

	raw, err := os.ReadFile(filepath.Join(dir, result.MetaFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"best_loss": null`)

	got, err := result.ReadRunMeta(filepath.Join(dir, result.MetaFile))
	require.NoError(t, err)
	require.Len(t, got.Scores, 3)
	assert.Equal(t, result.Score(0.5), got.Scores[0])
	assert.True(t, got.Scores[1].IsNaN())
	assert.True(t, got.BestLoss.IsNaN())
}

func TestReadRunMetaErrors(t *testing.T) {
	_, err := result.ReadRunMeta(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "meta.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = result.ReadRunMeta(path)
	assert.Error(t, err)
}

func TestWriteAndReadHistory(t *testing.T) {
	dir := t.TempDir()
	history := []result.HistoryEntry{
		{Generation: 1, Evaluations: 50, MeanLoss: 0.6, BestLoss: 0.4, Best: []float64{100, 1000, 10, 0.5, 20}},
		{Generation: 2, Evaluations: 100, MeanLoss: result.NaN(), BestLoss: 0.3, Best: []float64{110, 1100, 11, 0.6, 21}},
	}
	require.NoError(t, result.WriteHistory(dir, history))

	got, err := result.ReadHistory(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, history[0], got[0])
	assert.True(t, got[1].MeanLoss.IsNaN())
	assert.Equal(t, history[1].Best, got[1].Best)
}

func TestCreateRunDir(t *testing.T) {
	base := t.TempDir()
	runDir, err := result.CreateRunDir(base, result.KindDebug)
	require.NoError(t, err)

	assert.DirExists(t, runDir)
	assert.True(t, strings.HasSuffix(runDir, "-debug"))
	target, err := os.Readlink(filepath.Join(base, "latest"))
	require.NoError(t, err)
	assert.Equal(t, runDir, target)
}

func TestBestOf(t *testing.T) {
	tests := []struct {
		name   string
		scores []result.Score
		want   float64
	}{
		{"max", []result.Score{0.5, 0.8, 0.2}, 0.8},
		{"skips nan", []result.Score{result.NaN(), 0.3}, 0.3},
		{"single", []result.Score{0.1}, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, float64(result.BestOf(tt.scores)))
		})
	}
	assert.True(t, math.IsNaN(float64(result.BestOf(nil))))
	assert.True(t, result.BestOf([]result.Score{result.NaN()}).IsNaN())
}
