// Package optimizer runs a bounded single-objective genetic search over a
// problem whose candidates are scored in batches.
//
// The genetic operators come from eaopt. eaopt scores one genome at a time,
// so the generation loop lives here: every generation's offspring are
// scored together with a single Problem.Evaluate call.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/MaxHalford/eaopt"
)

// Problem is a minimisation target over a box-bounded space.
type Problem interface {
	Bounds() (lower, upper []float64)
	// Evaluate returns one loss per row of xs, in order.
	Evaluate(ctx context.Context, xs [][]float64) ([]float64, error)
}

// Termination reasons.
const (
	StopMaxGenerations = "max_generations"
	StopMaxEvaluations = "max_evaluations"
	StopFTol           = "ftol"
	StopNoOffspring    = "no_offspring"
)

const (
	dupEpsilon     = 1e-16
	maxMatingRound = 100
)

var ErrBounds = errors.New("optimizer: invalid bounds")

type Options struct {
	PopSize             int
	Seed                int64
	EliminateDuplicates bool
	MaxGenerations      int
	MaxEvaluations      int
	FTol                float64
	Period              int
	CrossoverProb       float64
	// MutationRate is the per-gene mutation probability. Zero means 1/n.
	MutationRate float64

	// OnGeneration, if set, is called after every generation.
	OnGeneration func(Generation)
}

func DefaultOptions() Options {
	return Options{
		PopSize:             50,
		Seed:                1,
		EliminateDuplicates: true,
		MaxGenerations:      1000,
		MaxEvaluations:      100000,
		FTol:                1e-6,
		Period:              30,
		CrossoverProb:       0.9,
	}
}

// Generation summarises the population after one generation. The first
// generation is the scored initial population.
type Generation struct {
	Index       int       `json:"generation"`
	Evaluations int       `json:"evaluations"`
	MeanLoss    float64   `json:"mean_loss"`
	BestLoss    float64   `json:"best_loss"`
	Best        []float64 `json:"best"`
}

type Result struct {
	X           []float64
	F           float64
	Generations int
	Evaluations int
	History     []Generation
	Termination string
}

type member struct {
	genes []float64
	loss  float64
}

type search struct {
	p       Problem
	opts    Options
	rng     *rand.Rand
	lower   []float64
	upper   []float64
	nVar    int
	mutRate float64
	evals   int
}

// Minimize searches for the vector with the lowest loss. An error from
// Problem.Evaluate aborts the search and is returned as is.
func Minimize(ctx context.Context, p Problem, opts Options) (*Result, error) {
	lower, upper := p.Bounds()
	if len(lower) == 0 || len(lower) != len(upper) {
		return nil, fmt.Errorf("%w: %d lower, %d upper", ErrBounds, len(lower), len(upper))
	}
	for i := range lower {
		if !(lower[i] < upper[i]) {
			return nil, fmt.Errorf("%w: dimension %d has [%v, %v]", ErrBounds, i, lower[i], upper[i])
		}
	}
	if opts.PopSize < 3 {
		return nil, fmt.Errorf("optimizer: population size %d is below 3", opts.PopSize)
	}
	s := &search{
		p:       p,
		opts:    opts,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		lower:   lower,
		upper:   upper,
		nVar:    len(lower),
		mutRate: opts.MutationRate,
	}
	if s.mutRate <= 0 {
		s.mutRate = 1 / float64(s.nVar)
	}
	return s.run(ctx)
}

func (s *search) run(ctx context.Context) (*Result, error) {
	pop, err := s.evaluate(ctx, s.initial())
	if err != nil {
		return nil, err
	}
	sortByLoss(pop)

	res := &Result{}
	s.record(res, pop)

	for {
		if reason := s.stop(res); reason != "" {
			res.Termination = reason
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		children := s.offspring(pop)
		if room := s.opts.MaxEvaluations - s.evals; s.opts.MaxEvaluations > 0 && len(children) > room {
			children = children[:room]
		}
		if len(children) == 0 {
			res.Termination = StopNoOffspring
			break
		}
		scored, err := s.evaluate(ctx, children)
		if err != nil {
			return nil, err
		}
		pop = append(pop, scored...)
		sortByLoss(pop)
		pop = pop[:s.opts.PopSize]
		s.record(res, pop)
	}

	res.X = s.scale(pop[0].genes)
	res.F = pop[0].loss
	return res, nil
}

func (s *search) initial() [][]float64 {
	out := make([][]float64, 0, s.opts.PopSize)
	for round := 0; len(out) < s.opts.PopSize; round++ {
		g := eaopt.InitUnifFloat64(uint(s.nVar), 0, 1, s.rng)
		if s.opts.EliminateDuplicates && round < maxMatingRound*s.opts.PopSize && containsGenes(out, g) {
			continue
		}
		out = append(out, g)
	}
	return out
}

// offspring mates the population until PopSize new, distinct children exist
// or the mating rounds run out.
func (s *search) offspring(pop []member) [][]float64 {
	indis := make(eaopt.Individuals, len(pop))
	for i, m := range pop {
		indis[i] = eaopt.Individual{
			Genome:    &vector{genes: m.genes, loss: m.loss, mutRate: s.mutRate},
			Fitness:   selectionFitness(m.loss),
			Evaluated: true,
		}
	}
	existing := make([][]float64, len(pop))
	for i, m := range pop {
		existing[i] = m.genes
	}

	sel := eaopt.SelTournament{NContestants: 2}
	var out [][]float64
	for round := 0; round < maxMatingRound && len(out) < s.opts.PopSize; round++ {
		for len(out) < s.opts.PopSize {
			parents, _, err := sel.Apply(2, indis, s.rng)
			if err != nil {
				return out
			}
			a := parents[0].Genome.Clone()
			b := parents[1].Genome.Clone()
			if s.rng.Float64() < s.opts.CrossoverProb {
				a.Crossover(b, s.rng)
			}
			a.Mutate(s.rng)
			b.Mutate(s.rng)

			added := 0
			for _, child := range []eaopt.Genome{a, b} {
				g := child.(*vector).genes
				if len(out) == s.opts.PopSize {
					break
				}
				if s.opts.EliminateDuplicates && (containsGenes(existing, g) || containsGenes(out, g)) {
					continue
				}
				out = append(out, g)
				added++
			}
			if added == 0 {
				break
			}
		}
	}
	return out
}

func (s *search) evaluate(ctx context.Context, genes [][]float64) ([]member, error) {
	xs := make([][]float64, len(genes))
	for i, g := range genes {
		xs[i] = s.scale(g)
	}
	losses, err := s.p.Evaluate(ctx, xs)
	if err != nil {
		return nil, err
	}
	if len(losses) != len(xs) {
		return nil, fmt.Errorf("optimizer: problem returned %d losses for %d candidates", len(losses), len(xs))
	}
	s.evals += len(xs)
	out := make([]member, len(genes))
	for i := range genes {
		out[i] = member{genes: genes[i], loss: losses[i]}
	}
	return out, nil
}

func (s *search) record(res *Result, pop []member) {
	var sum float64
	var n int
	for _, m := range pop {
		if !math.IsNaN(m.loss) {
			sum += m.loss
			n++
		}
	}
	mean := math.NaN()
	if n > 0 {
		mean = sum / float64(n)
	}
	res.Generations++
	res.Evaluations = s.evals
	gen := Generation{
		Index:       res.Generations,
		Evaluations: s.evals,
		MeanLoss:    mean,
		BestLoss:    pop[0].loss,
		Best:        s.scale(pop[0].genes),
	}
	res.History = append(res.History, gen)
	if s.opts.OnGeneration != nil {
		s.opts.OnGeneration(gen)
	}
}

func (s *search) stop(res *Result) string {
	if s.opts.MaxGenerations > 0 && res.Generations >= s.opts.MaxGenerations {
		return StopMaxGenerations
	}
	if s.opts.MaxEvaluations > 0 && s.evals >= s.opts.MaxEvaluations {
		return StopMaxEvaluations
	}
	period := s.opts.Period
	if period > 0 && len(res.History) > period {
		prev := selectionFitness(res.History[len(res.History)-1-period].BestLoss)
		cur := selectionFitness(res.History[len(res.History)-1].BestLoss)
		delta := 0.0
		if prev != cur {
			delta = prev - cur
		}
		if delta < s.opts.FTol {
			return StopFTol
		}
	}
	return ""
}

func (s *search) scale(g []float64) []float64 {
	x := make([]float64, len(g))
	for i, v := range g {
		x[i] = s.lower[i] + v*(s.upper[i]-s.lower[i])
	}
	return x
}

// sortByLoss orders ascending by loss with NaN last, keeping ties stable.
func sortByLoss(pop []member) {
	sort.SliceStable(pop, func(i, j int) bool {
		a, b := pop[i].loss, pop[j].loss
		if math.IsNaN(a) {
			return false
		}
		return math.IsNaN(b) || a < b
	})
}

func selectionFitness(loss float64) float64 {
	if math.IsNaN(loss) {
		return math.Inf(1)
	}
	return loss
}

func containsGenes(set [][]float64, g []float64) bool {
	for _, o := range set {
		if sameGenes(o, g) {
			return true
		}
	}
	return false
}

func sameGenes(a, b []float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > dupEpsilon {
			return false
		}
	}
	return true
}
