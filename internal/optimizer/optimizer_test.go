package optimizer

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProblem struct {
	lower, upper []float64
	loss         func(x []float64) float64
	failOn       int
	calls        [][][]float64
}

var errFake = errors.New("fake failure")

func (f *fakeProblem) Bounds() ([]float64, []float64) { return f.lower, f.upper }

func (f *fakeProblem) Evaluate(_ context.Context, xs [][]float64) ([]float64, error) {
	f.calls = append(f.calls, xs)
	if f.failOn > 0 && len(f.calls) == f.failOn {
		return nil, errFake
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = f.loss(x)
	}
	return out, nil
}

func sphere() *fakeProblem {
	return &fakeProblem{
		lower: []float64{-5, 10, 0},
		upper: []float64{5, 20, 1},
		loss: func(x []float64) float64 {
			return x[0]*x[0] + (x[1]-15)*(x[1]-15) + (x[2]-0.5)*(x[2]-0.5)
		},
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.PopSize = 20
	opts.MaxGenerations = 15
	return opts
}

func TestMinimizeOneCallPerGeneration(t *testing.T) {
	p := sphere()
	res, err := Minimize(context.Background(), p, testOptions())
	require.NoError(t, err)

	assert.Len(t, p.calls, res.Generations)
	assert.Len(t, p.calls[0], 20)
	total := 0
	for _, batch := range p.calls {
		assert.LessOrEqual(t, len(batch), 20)
		total += len(batch)
	}
	assert.Equal(t, total, res.Evaluations)
	assert.Len(t, res.History, res.Generations)
}

func TestMinimizeDeterministic(t *testing.T) {
	a, err := Minimize(context.Background(), sphere(), testOptions())
	require.NoError(t, err)
	b, err := Minimize(context.Background(), sphere(), testOptions())
	require.NoError(t, err)

	assert.Equal(t, a.X, b.X)
	assert.Equal(t, a.F, b.F)
	assert.Equal(t, a.History, b.History)
}

func TestMinimizeImproves(t *testing.T) {
	p := sphere()
	res, err := Minimize(context.Background(), p, testOptions())
	require.NoError(t, err)

	for i := 1; i < len(res.History); i++ {
		assert.LessOrEqual(t, res.History[i].BestLoss, res.History[i-1].BestLoss, "generation %d", i+1)
	}
	assert.Equal(t, res.History[len(res.History)-1].BestLoss, res.F)
	assert.Equal(t, p.loss(res.X), res.F)
	for i, x := range res.X {
		assert.GreaterOrEqual(t, x, p.lower[i])
		assert.LessOrEqual(t, x, p.upper[i])
	}
}

func TestMinimizeCandidatesWithinBounds(t *testing.T) {
	p := sphere()
	_, err := Minimize(context.Background(), p, testOptions())
	require.NoError(t, err)

	for _, batch := range p.calls {
		for _, x := range batch {
			for i := range x {
				assert.GreaterOrEqual(t, x[i], p.lower[i])
				assert.LessOrEqual(t, x[i], p.upper[i])
			}
		}
	}
}

func TestMinimizeNoDuplicateCandidates(t *testing.T) {
	p := sphere()
	_, err := Minimize(context.Background(), p, testOptions())
	require.NoError(t, err)

	for gen, batch := range p.calls {
		var seen [][]float64
		for _, x := range batch {
			assert.False(t, containsGenes(seen, x), "generation %d: duplicate candidate %v", gen+1, x)
			seen = append(seen, x)
		}
	}
}

func TestMinimizeMaxGenerations(t *testing.T) {
	opts := testOptions()
	opts.MaxGenerations = 5
	res, err := Minimize(context.Background(), sphere(), opts)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Generations)
	assert.Equal(t, StopMaxGenerations, res.Termination)
}

func TestMinimizeMaxEvaluations(t *testing.T) {
	opts := testOptions()
	opts.MaxGenerations = 0
	opts.MaxEvaluations = 50
	p := sphere()
	res, err := Minimize(context.Background(), p, opts)
	require.NoError(t, err)

	assert.Equal(t, 50, res.Evaluations)
	assert.Equal(t, StopMaxEvaluations, res.Termination)
	assert.Len(t, p.calls[len(p.calls)-1], 10)
}

func TestMinimizeFTol(t *testing.T) {
	p := sphere()
	p.loss = func([]float64) float64 { return 1 }
	opts := testOptions()
	opts.Period = 4
	res, err := Minimize(context.Background(), p, opts)
	require.NoError(t, err)

	assert.Equal(t, StopFTol, res.Termination)
	assert.Equal(t, 5, res.Generations)
}

func TestMinimizeErrorAborts(t *testing.T) {
	p := sphere()
	p.failOn = 3
	res, err := Minimize(context.Background(), p, testOptions())
	assert.ErrorIs(t, err, errFake)
	assert.Nil(t, res)
	assert.Len(t, p.calls, 3)
}

func TestMinimizeAllNaN(t *testing.T) {
	p := sphere()
	p.loss = func([]float64) float64 { return math.NaN() }
	opts := testOptions()
	opts.Period = 3
	res, err := Minimize(context.Background(), p, opts)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(res.F))
	assert.True(t, math.IsNaN(res.History[0].MeanLoss))
	assert.Equal(t, StopFTol, res.Termination)
}

func TestMinimizeNaNRanksLast(t *testing.T) {
	p := sphere()
	inner := p.loss
	p.loss = func(x []float64) float64 {
		if x[0] < 0 {
			return math.NaN()
		}
		return inner(x)
	}
	res, err := Minimize(context.Background(), p, testOptions())
	require.NoError(t, err)

	assert.False(t, math.IsNaN(res.F))
	assert.GreaterOrEqual(t, res.X[0], 0.0)
}

func TestMinimizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := testOptions()
	opts.OnGeneration = func(Generation) { cancel() }
	_, err := Minimize(ctx, sphere(), opts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMinimizeReportsGenerations(t *testing.T) {
	var gens []Generation
	opts := testOptions()
	opts.MaxGenerations = 3
	opts.OnGeneration = func(g Generation) { gens = append(gens, g) }
	res, err := Minimize(context.Background(), sphere(), opts)
	require.NoError(t, err)

	require.Len(t, gens, 3)
	assert.Equal(t, res.History, gens)
	assert.Equal(t, 1, gens[0].Index)
	assert.Equal(t, 20, gens[0].Evaluations)
	assert.Equal(t, res.Evaluations, gens[2].Evaluations)
}

func TestMinimizeInvalidOptions(t *testing.T) {
	p := sphere()
	p.upper = []float64{5, 20}
	_, err := Minimize(context.Background(), p, testOptions())
	assert.ErrorIs(t, err, ErrBounds)

	p = sphere()
	p.lower[1] = 20
	_, err = Minimize(context.Background(), p, testOptions())
	assert.ErrorIs(t, err, ErrBounds)

	opts := testOptions()
	opts.PopSize = 2
	_, err = Minimize(context.Background(), sphere(), opts)
	assert.Error(t, err)
}

func TestSortByLossNaNLast(t *testing.T) {
	pop := []member{
		{genes: []float64{0}, loss: math.NaN()},
		{genes: []float64{1}, loss: 0.3},
		{genes: []float64{2}, loss: math.NaN()},
		{genes: []float64{3}, loss: 0.1},
		{genes: []float64{4}, loss: 0.3},
	}
	sortByLoss(pop)

	var order []float64
	for _, m := range pop {
		order = append(order, m.genes[0])
	}
	assert.Equal(t, []float64{3, 1, 4, 0, 2}, order)
}

func TestVectorMutateClips(t *testing.T) {
	v := &vector{genes: []float64{0.99, 0.01, 0.5}, mutRate: 1}
	rng := newTestRand()
	for range 50 {
		v.Mutate(rng)
		for _, g := range v.genes {
			assert.GreaterOrEqual(t, g, 0.0)
			assert.LessOrEqual(t, g, 1.0)
		}
	}
}

func TestVectorMutateLeavesBoundary(t *testing.T) {
	v := &vector{genes: make([]float64, 5), mutRate: 1}
	rng := newTestRand()
	moved := make([]bool, len(v.genes))
	for range 50 {
		v.Mutate(rng)
		for i, g := range v.genes {
			if g > 0 {
				moved[i] = true
			}
		}
	}
	for i, m := range moved {
		assert.True(t, m, "gene %d stuck at the lower bound", i)
	}
}

func TestVectorMutateStepIndependentOfValue(t *testing.T) {
	rng := newTestRand()
	var low, high float64
	const n = 2000
	for range n {
		lo := &vector{genes: []float64{0.2}, mutRate: 1}
		hi := &vector{genes: []float64{0.8}, mutRate: 1}
		lo.Mutate(rng)
		hi.Mutate(rng)
		low += math.Abs(lo.genes[0] - 0.2)
		high += math.Abs(hi.genes[0] - 0.8)
	}
	assert.InDelta(t, low/n, high/n, 0.01)
	assert.InDelta(t, mutationSigma*math.Sqrt(2/math.Pi), high/n, 0.01)
}

func newTestRand() *rand.Rand { return rand.New(rand.NewSource(7)) }

func TestVectorCloneIsDeep(t *testing.T) {
	v := &vector{genes: []float64{0.1, 0.2}, loss: 0.5, mutRate: 0.5}
	c := v.Clone().(*vector)
	c.genes[0] = 0.9
	assert.Equal(t, 0.1, v.genes[0])
	assert.Equal(t, 0.5, c.loss)
}
