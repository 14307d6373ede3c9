// Package objective turns batches of candidate parameter vectors into
// simulator calls and F-score losses.
package objective

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalnine/vadtune/internal/plan"
	"github.com/signalnine/vadtune/internal/simulator"
)

// Param is one searchable VAD parameter and its bounds.
type Param struct {
	Name  string
	Lower float64
	Upper float64
}

// Params is the search space, in vector order.
var Params = []Param{
	{Name: "speech_min_freq", Lower: 50, Upper: 450},
	{Name: "speech_max_freq", Lower: 500, Upper: 2500},
	{Name: "long_term_speech_avg_sec", Lower: 2.1, Upper: 500},
	{Name: "short_term_speech_avg_sec", Lower: 0.01, Upper: 2.0},
	{Name: "speech_threshold_factor", Lower: 1, Upper: 200},
}

var (
	ErrDimension  = errors.New("objective: wrong vector length")
	ErrResultSize = errors.New("objective: result count does not match batch size")
)

// Loss maps an F-score to a minimisation target.
func Loss(fScore float64) float64 { return 1.0 - fScore }

// ConfigFromVector builds a full VAD config from x, ordered as Params.
func ConfigFromVector(x []float64) (plan.VadMachineConfig, error) {
	if len(x) != len(Params) {
		return plan.VadMachineConfig{}, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(x), len(Params))
	}
	return plan.VadMachineConfig{
		SpeechMinFreq:         plan.Float(x[0]),
		SpeechMaxFreq:         plan.Float(x[1]),
		LongTermSpeechAvgSec:  plan.Float(x[2]),
		ShortTermSpeechAvgSec: plan.Float(x[3]),
		SpeechThresholdFactor: plan.Float(x[4]),
	}, nil
}

// Named pairs each value of x with its parameter name.
func Named(x []float64) map[string]float64 {
	out := make(map[string]float64, len(Params))
	for i, p := range Params {
		if i < len(x) {
			out[p.Name] = x[i]
		}
	}
	return out
}

// Objective evaluates candidate batches against one plan. Each batch costs
// exactly one simulator call. Not safe for concurrent use: the plan is
// rewritten before every call.
type Objective struct {
	plan  *plan.Plan
	sim   simulator.Executor
	calls int
	evals int
}

func New(p *plan.Plan, sim simulator.Executor) *Objective {
	return &Objective{plan: p, sim: sim}
}

// Bounds returns the lower and upper bound vectors.
func (o *Objective) Bounds() (lower, upper []float64) {
	lower = make([]float64, len(Params))
	upper = make([]float64, len(Params))
	for i, p := range Params {
		lower[i], upper[i] = p.Lower, p.Upper
	}
	return lower, upper
}

// Evaluate returns 1 - f_score for every row of xs, in order. NaN scores
// come back as NaN losses. A simulator error aborts the whole batch.
func (o *Objective) Evaluate(ctx context.Context, xs [][]float64) ([]float64, error) {
	if len(xs) == 0 {
		return nil, nil
	}
	cfgs := make([]plan.VadMachineConfig, len(xs))
	for i, x := range xs {
		cfg, err := ConfigFromVector(x)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		cfgs[i] = cfg
	}
	if err := o.plan.SetAltConfigs(cfgs); err != nil {
		return nil, err
	}

	o.calls++
	res, err := o.sim.Execute(ctx, o.plan.Bytes(), o.plan.BasePath())
	if err != nil {
		return nil, fmt.Errorf("objective: evaluating batch of %d: %w", len(xs), err)
	}
	if len(res.Alt) != len(xs) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrResultSize, len(res.Alt), len(xs))
	}
	o.evals += len(xs)

	losses := make([]float64, len(xs))
	for i, a := range res.Alt {
		losses[i] = Loss(a.FScore)
	}
	return losses, nil
}

// Calls reports the number of simulator calls issued.
func (o *Objective) Calls() int { return o.calls }

// Evaluations reports the number of candidates scored.
func (o *Objective) Evaluations() int { return o.evals }
