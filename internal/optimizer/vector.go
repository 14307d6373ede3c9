package optimizer

import (
	"math/rand"

	"github.com/MaxHalford/eaopt"
)

var _ eaopt.Genome = (*vector)(nil)

// vector is a point in the unit hypercube. Its loss is assigned by the batch
// evaluation in Minimize; Evaluate only reports it back to eaopt.
type vector struct {
	genes   []float64
	loss    float64
	mutRate float64
}

func (v *vector) Evaluate() (float64, error) {
	return selectionFitness(v.loss), nil
}

// mutationSigma is the standard deviation of a mutation step, in units of
// the parameter range.
const mutationSigma = 0.1

// Mutate moves each selected gene by a normal step of fixed scale and clips
// back into [0, 1]. eaopt scales its step by the gene value, so the operator
// runs on a vector of ones and only the offsets are applied.
func (v *vector) Mutate(rng *rand.Rand) {
	steps := make([]float64, len(v.genes))
	for i := range steps {
		steps[i] = 1
	}
	eaopt.MutNormalFloat64(steps, v.mutRate, rng)
	for i := range v.genes {
		v.genes[i] += mutationSigma * (steps[i] - 1)
	}
	clip(v.genes)
}

func (v *vector) Crossover(other eaopt.Genome, rng *rand.Rand) {
	eaopt.CrossUniformFloat64(v.genes, other.(*vector).genes, rng)
}

// Clone copies the genes. Selection hands out shared genomes, so children
// must be cloned before they are modified.
func (v *vector) Clone() eaopt.Genome {
	return &vector{
		genes:   append([]float64(nil), v.genes...),
		loss:    v.loss,
		mutRate: v.mutRate,
	}
}

func clip(genes []float64) {
	for i, g := range genes {
		switch {
		case g < 0:
			genes[i] = 0
		case g > 1:
			genes[i] = 1
		}
	}
}
