package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/signalnine/vadtune/internal/objective"
	"github.com/signalnine/vadtune/internal/optimizer"
	"github.com/signalnine/vadtune/internal/plan"
	"github.com/signalnine/vadtune/internal/result"
	"github.com/signalnine/vadtune/internal/simulator"
)

type OptimizeOpts struct {
	PlanPath  string
	Simulator simulator.Executor
	Backend   string
	Optimizer optimizer.Options
	Verbose   bool
	Out       io.Writer
	Logger    *slog.Logger
	// ResultsDir, if set, receives a run directory holding meta.json and
	// history.json.
	ResultsDir string
}

// RunOptimize searches the VAD parameter space for the config with the
// highest f-score and prints the best vector and its loss.
func RunOptimize(ctx context.Context, opts *OptimizeOpts) (*result.RunMeta, error) {
	out, logger := outputs(opts.Out, opts.Logger)

	p, err := plan.Load(opts.PlanPath)
	if err != nil {
		return nil, err
	}
	runDir, err := createRunDir(opts.ResultsDir, result.KindOptimize)
	if err != nil {
		return nil, err
	}
	obj := objective.New(p, opts.Simulator)
	meta := &result.RunMeta{
		Kind:       result.KindOptimize,
		Plan:       opts.PlanPath,
		Backend:    opts.Backend,
		StartedAt:  time.Now().UTC(),
		BestLoss:   result.NaN(),
		BestFScore: result.NaN(),
	}

	var history []result.HistoryEntry
	gaOpts := opts.Optimizer
	if opts.Verbose {
		printHeader(out)
	}
	gaOpts.OnGeneration = func(g optimizer.Generation) {
		history = append(history, result.HistoryEntry{
			Generation:  g.Index,
			Evaluations: g.Evaluations,
			MeanLoss:    result.Score(g.MeanLoss),
			BestLoss:    result.Score(g.BestLoss),
			Best:        g.Best,
		})
		if opts.Verbose {
			printGeneration(out, g)
		}
		logger.Debug("generation finished", "generation", g.Index, "evaluations", g.Evaluations, "best_loss", g.BestLoss)
	}

	logger.Info("starting optimization", "plan", opts.PlanPath, "pop_size", gaOpts.PopSize, "seed", gaOpts.Seed)
	start := time.Now()
	res, err := optimizer.Minimize(ctx, obj, gaOpts)
	meta.DurationS = time.Since(start).Seconds()
	meta.SimulatorCalls = obj.Calls()
	meta.Evaluations = obj.Evaluations()
	meta.Generations = len(history)
	if runDir != "" && len(history) > 0 {
		if herr := result.WriteHistory(runDir, history); herr != nil {
			logger.Warn("could not write history", "error", herr)
		}
	}
	if err != nil {
		fail(meta, err)
		return meta, finish(runDir, meta, logger, err)
	}

	meta.Status = result.StatusCompleted
	meta.Termination = res.Termination
	meta.BestParams = objective.Named(res.X)
	meta.BestLoss = result.Score(res.F)
	meta.BestFScore = result.Score(1 - res.F)

	fmt.Fprintf(out, "Best solution found: \nX = %s\nF = %s\n", FormatList(res.X), FormatList([]float64{res.F}))
	return meta, finish(runDir, meta, logger, nil)
}

const rule = "================================================="

func printHeader(w io.Writer) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%6s | %8s | %13s | %13s\n", "n_gen", "n_eval", "f_avg", "f_min")
	fmt.Fprintln(w, rule)
}

func printGeneration(w io.Writer, g optimizer.Generation) {
	fmt.Fprintf(w, "%6d | %8d | %13s | %13s\n", g.Index, g.Evaluations, formatLoss(g.MeanLoss), formatLoss(g.BestLoss))
}

func formatLoss(f float64) string {
	s := fmt.Sprintf("%.10f", f)
	if strings.HasPrefix(s, "NaN") {
		return "nan"
	}
	return s
}
