package expreplay

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// SelectorType describes how a Selector weights the samples it chooses
type SelectorType string

const (
	Uniform  SelectorType = "Uniform"
	Surprise SelectorType = "Surprise"
)

// Selector implements functionality for choosing which samples of a
// Source make up a minibatch
type Selector interface {
	// choose selects n distinct indices into a Source of length size.
	// The weights are only consulted by weighted Selectors.
	choose(size, n int, weights []float64) []int

	// Type returns the kind of Selector
	Type() SelectorType
}

// CreateSelector returns a new Selector of type t seeded with seed
func CreateSelector(t SelectorType, seed uint64) (Selector, error) {
	switch t {
	case Uniform:
		return NewUniformSelector(seed), nil
	case Surprise:
		return NewSurpriseSelector(seed), nil
	}
	return nil, fmt.Errorf("createSelector: no such selector type %v", t)
}

// uniformSelector is a Selector which selects data uniformly randomly
// without replacement
type uniformSelector struct {
	source rand.Source
}

// NewUniformSelector returns a new Selector which selects data
// uniformly randomly without replacement
func NewUniformSelector(seed uint64) Selector {
	return &uniformSelector{source: rand.NewSource(seed)}
}

// Type implements the Selector interface
func (u *uniformSelector) Type() SelectorType {
	return Uniform
}

// choose implements the Selector interface
func (u *uniformSelector) choose(size, n int, _ []float64) []int {
	selected := make([]int, n)
	sampleuv.WithoutReplacement(selected, size, u.source)
	return selected
}

// surpriseSelector is a Selector which selects data without
// replacement with probability proportional to its weight
type surpriseSelector struct {
	source rand.Source
}

// NewSurpriseSelector returns a new Selector which selects data
// without replacement with probability proportional to the weights it
// is given. Once every sample with non-zero weight has been selected,
// the rest of the selection is made uniformly.
func NewSurpriseSelector(seed uint64) Selector {
	return &surpriseSelector{source: rand.NewSource(seed)}
}

// Type implements the Selector interface
func (s *surpriseSelector) Type() SelectorType {
	return Surprise
}

// choose implements the Selector interface
func (s *surpriseSelector) choose(size, n int, weights []float64) []int {
	if len(weights) != size || floats.Sum(weights) <= 0 {
		selected := make([]int, n)
		sampleuv.WithoutReplacement(selected, size, s.source)
		return selected
	}

	selected := make([]int, 0, n)
	taken := make([]bool, size)
	w := sampleuv.NewWeighted(weights, s.source)
	for len(selected) < n {
		i, ok := w.Take()
		if !ok || taken[i] {
			break
		}
		selected = append(selected, i)
		taken[i] = true
	}
	if len(selected) == n {
		return selected
	}

	// Not enough samples carry weight, fill the rest uniformly
	remaining := make([]int, 0, size-len(selected))
	for i, t := range taken {
		if !t {
			remaining = append(remaining, i)
		}
	}
	fill := make([]int, n-len(selected))
	sampleuv.WithoutReplacement(fill, len(remaining), s.source)
	for _, j := range fill {
		selected = append(selected, remaining[j])
	}
	return selected
}
