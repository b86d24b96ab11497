package initwfn

import "golang.org/x/exp/rand"

// ZeroesConfig initializes all weights to zero
type ZeroesConfig struct{}

// NewZeroes returns a new initializer which sets all weights to zero
func NewZeroes() *InitWFn {
	return newInitWFn(ZeroesConfig{})
}

func (z ZeroesConfig) Type() Type {
	return Zeroes
}

func (z ZeroesConfig) Sample(in, out int, _ rand.Source) []float64 {
	return make([]float64, in*out)
}
