package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/signalnine/vadtune/internal/plan"
	"github.com/signalnine/vadtune/internal/result"
	"github.com/signalnine/vadtune/internal/simulator"
)

// DefaultMaxFreqs are the speech_max_freq values a debug run injects.
var DefaultMaxFreqs = []float64{1000, 1500, 2000}

type DebugOpts struct {
	PlanPath  string
	Simulator simulator.Executor
	Backend   string
	MaxFreqs  []float64
	PrintPID  bool
	Out       io.Writer
	Logger    *slog.Logger
	// ResultsDir, if set, receives a run directory holding meta.json.
	ResultsDir string
}

// DebugConfigs builds one alternate config per max frequency.
func DebugConfigs(maxFreqs []float64) []plan.VadMachineConfig {
	cfgs := make([]plan.VadMachineConfig, len(maxFreqs))
	for i, f := range maxFreqs {
		cfgs[i] = plan.VadMachineConfig{SpeechMaxFreq: plan.Float(f)}
	}
	return cfgs
}

// RunDebug runs the plan once with the debug configs and prints the
// f-scores in input order. The returned meta is nil only when the plan
// cannot be loaded or the run directory cannot be created.
func RunDebug(ctx context.Context, opts *DebugOpts) (*result.RunMeta, error) {
	out, logger := outputs(opts.Out, opts.Logger)
	freqs := opts.MaxFreqs
	if len(freqs) == 0 {
		freqs = DefaultMaxFreqs
	}

	if opts.PrintPID {
		fmt.Fprintln(out, os.Getpid())
	}
	p, err := plan.Load(opts.PlanPath)
	if err != nil {
		return nil, err
	}
	runDir, err := createRunDir(opts.ResultsDir, result.KindDebug)
	if err != nil {
		return nil, err
	}
	meta := &result.RunMeta{
		Kind:       result.KindDebug,
		Plan:       opts.PlanPath,
		Backend:    opts.Backend,
		StartedAt:  time.Now().UTC(),
		BestLoss:   result.NaN(),
		BestFScore: result.NaN(),
	}

	if err := p.SetAltConfigs(DebugConfigs(freqs)); err != nil {
		return nil, err
	}
	logger.Info("running simulation", "plan", opts.PlanPath, "configs", len(freqs))
	start := time.Now()
	meta.SimulatorCalls = 1
	res, err := opts.Simulator.Execute(ctx, p.Bytes(), p.BasePath())
	meta.DurationS = time.Since(start).Seconds()
	if err != nil {
		fail(meta, err)
		return meta, finish(runDir, meta, logger, err)
	}

	scores := res.FScores()
	meta.Status = result.StatusCompleted
	meta.Evaluations = len(scores)
	for _, s := range scores {
		meta.Scores = append(meta.Scores, result.Score(s))
	}
	meta.BestFScore = result.BestOf(meta.Scores)
	if !meta.BestFScore.IsNaN() {
		meta.BestLoss = result.Score(1 - float64(meta.BestFScore))
	}

	fmt.Fprintln(out, "\nSimulation finished successfully")
	fmt.Fprintln(out, FormatList(scores))
	return meta, finish(runDir, meta, logger, nil)
}
