package report

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/vadtune/internal/result"
)

// PlanSummary aggregates the recorded runs of one plan.
type PlanSummary struct {
	Plan            string             `json:"plan"`
	Runs            int                `json:"runs"`
	Completed       int                `json:"completed"`
	BestFScore      result.Score       `json:"best_f_score"`
	MeanBestFScore  result.Score       `json:"mean_best_f_score"`
	MeanCalls       float64            `json:"mean_simulator_calls"`
	MeanEvaluations float64            `json:"mean_evaluations"`
	BestParams      map[string]float64 `json:"best_params,omitempty"`
}

// Generate reads every meta.json under dir and writes a per-plan summary.
func Generate(dir, format string, w io.Writer) error {
	metas, err := collectMetas(dir)
	if err != nil {
		return err
	}
	summaries := aggregate(metas)

	switch format {
	case "markdown":
		return writeMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	case "table", "":
		return writeTable(summaries, w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func collectMetas(dir string) ([]*result.RunMeta, error) {
	var metas []*result.RunMeta
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Name() == result.MetaFile && !d.IsDir() {
			meta, err := result.ReadRunMeta(path)
			if err != nil {
				return nil
			}
			metas = append(metas, meta)
		}
		return nil
	})
	return metas, err
}

func aggregate(metas []*result.RunMeta) []PlanSummary {
	type accum struct {
		count     int
		completed int
		scored    int
		best      result.Score
		bestSum   float64
		params    map[string]float64
		calls     float64
		evals     float64
	}
	byPlan := map[string]*accum{}

	for _, m := range metas {
		a, ok := byPlan[m.Plan]
		if !ok {
			a = &accum{best: result.NaN()}
			byPlan[m.Plan] = a
		}
		a.count++
		a.calls += float64(m.SimulatorCalls)
		a.evals += float64(m.Evaluations)
		if m.Status == result.StatusCompleted {
			a.completed++
		}
		if m.BestFScore.IsNaN() {
			continue
		}
		a.scored++
		a.bestSum += float64(m.BestFScore)
		if a.best.IsNaN() || m.BestFScore > a.best {
			a.best = m.BestFScore
			a.params = m.BestParams
		}
	}

	var summaries []PlanSummary
	for name, a := range byPlan {
		mean := result.NaN()
		if a.scored > 0 {
			mean = result.Score(a.bestSum / float64(a.scored))
		}
		summaries = append(summaries, PlanSummary{
			Plan:            name,
			Runs:            a.count,
			Completed:       a.completed,
			BestFScore:      a.best,
			MeanBestFScore:  mean,
			MeanCalls:       a.calls / float64(a.count),
			MeanEvaluations: a.evals / float64(a.count),
			BestParams:      a.params,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Plan < summaries[j].Plan
	})
	return summaries
}

func score(s result.Score) string {
	if math.IsNaN(float64(s)) {
		return "-"
	}
	return fmt.Sprintf("%.4f", float64(s))
}

func writeTable(summaries []PlanSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAN\tRUNS\tCOMPLETED\tBEST F\tMEAN BEST F\tMEAN CALLS\tMEAN EVALS")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%.1f\t%.1f\n",
			s.Plan, s.Runs, s.Completed, score(s.BestFScore), score(s.MeanBestFScore), s.MeanCalls, s.MeanEvaluations)
	}
	return tw.Flush()
}

func writeMarkdown(summaries []PlanSummary, w io.Writer) error {
	fmt.Fprintln(w, "| Plan | Runs | Completed | Best F | Mean Best F | Mean Calls | Mean Evals |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|")
	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %d | %d | %s | %s | %.1f | %.1f |\n",
			s.Plan, s.Runs, s.Completed, score(s.BestFScore), score(s.MeanBestFScore), s.MeanCalls, s.MeanEvaluations)
	}
	return nil
}

func writeJSON(summaries []PlanSummary, w io.Writer) error {
	if summaries == nil {
		summaries = []PlanSummary{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}
