package expreplay

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/drivelearn/environment"
)

// Minibatch is a set of distinct samples drawn from a Source, with
// each field materialized in index order
type Minibatch struct {
	Indices          []int
	PreStates        []environment.Stack
	PostStates       []environment.Stack
	Actions          []int
	Rewards          []float64
	PredictedRewards []float64
	IsNotTerminal    []float64
}

// Len returns the number of samples in the minibatch
func (m Minibatch) Len() int {
	return len(m.Indices)
}

// Sampler draws training minibatches from a Source
type Sampler struct {
	batchSize int
	uniform   Selector
	surprise  Selector
	logger    zerolog.Logger
}

// NewSampler returns a new Sampler which draws minibatches of
// batchSize samples
func NewSampler(batchSize int, seed uint64, logger zerolog.Logger) (*Sampler,
	error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("newSampler: batch size must be > 0")
	}
	return &Sampler{
		batchSize: batchSize,
		uniform:   NewUniformSelector(seed),
		surprise:  NewSurpriseSelector(seed + 1),
		logger:    logger.With().Str("component", "sampler").Logger(),
	}, nil
}

// BatchSize returns the number of samples in each minibatch
func (s *Sampler) BatchSize() int {
	return s.batchSize
}

// Sample draws frameCount minibatches from src. Each minibatch holds
// BatchSize() distinct indices into src, sorted ascending. If
// useUniform is true, indices are drawn uniformly, otherwise they are
// drawn in proportion to each sample's surprise. If all surprise
// weights are zero, uniform sampling is used instead.
//
// If src holds fewer than BatchSize() samples, an error wrapping
// ErrInsufficientSamples is returned.
func (s *Sampler) Sample(src Source, frameCount int,
	useUniform bool) ([]Minibatch, error) {
	if frameCount <= 0 {
		return nil, nil
	}
	if src.Len() == 0 {
		return nil, &ExpReplayError{Op: "sample", Err: ErrEmptyBuffer}
	}
	if src.Len() < s.batchSize {
		return nil, &ExpReplayError{
			Op:  "sample",
			Err: fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples,
				src.Len(), s.batchSize),
		}
	}

	selector := s.uniform
	var weights []float64
	if !useUniform {
		var err error
		weights, err = SurpriseWeights(src)
		if IsDegenerate(err) {
			s.logger.Warn().Int("samples", src.Len()).
				Msg("surprise weights sum to zero, sampling uniformly")
		} else {
			selector = s.surprise
		}
	}

	batches := make([]Minibatch, frameCount)
	for b := range batches {
		indices := selector.choose(src.Len(), s.batchSize, weights)
		batches[b] = materialize(src, indices)
	}
	return batches, nil
}

// SurpriseWeights returns the normalized surprise |reward - predicted|
// of each sample in src. If every surprise is zero, the weights are
// returned unnormalized along with ErrDegenerateDistribution.
func SurpriseWeights(src Source) ([]float64, error) {
	weights := make([]float64, src.Len())
	for i := range weights {
		step := src.At(i)
		weights[i] = step.Surprise()
	}

	sum := floats.Sum(weights)
	if sum <= 0 {
		return weights, ErrDegenerateDistribution
	}
	floats.Scale(1/sum, weights)
	return weights, nil
}

func materialize(src Source, indices []int) Minibatch {
	sort.Ints(indices)

	n := len(indices)
	m := Minibatch{
		Indices:          indices,
		PreStates:        make([]environment.Stack, n),
		PostStates:       make([]environment.Stack, n),
		Actions:          make([]int, n),
		Rewards:          make([]float64, n),
		PredictedRewards: make([]float64, n),
		IsNotTerminal:    make([]float64, n),
	}
	for j, i := range indices {
		step := src.At(i)
		m.PreStates[j] = step.PreState
		m.PostStates[j] = step.PostState
		m.Actions[j] = step.Action
		m.Rewards[j] = step.Reward
		m.PredictedRewards[j] = step.PredictedReward
		m.IsNotTerminal[j] = step.NotTerminal()
	}
	return m
}
