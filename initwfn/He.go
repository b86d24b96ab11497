package initwfn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// HeUConfig implements a configuration of the He Uniform
// initialization algorithm.
type HeUConfig struct {
	Gain float64
}

// NewHeU returns a new He Uniform weight initializer
func NewHeU(gain float64) *InitWFn {
	return newInitWFn(HeUConfig{Gain: gain})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (h HeUConfig) Type() Type {
	return HeU
}

// Sample draws weights uniformly from [-l, l] where
// l = gain * sqrt(3 / in)
func (h HeUConfig) Sample(in, out int, src rand.Source) []float64 {
	limit := h.Gain * math.Sqrt(3/float64(in))
	return draw(in*out, distuv.Uniform{Min: -limit, Max: limit, Src: src})
}

// HeNConfig implements a configuration of the He Normal
// initialization algorithm.
type HeNConfig struct {
	Gain float64
}

// NewHeN returns a new He Normal weight initializer
func NewHeN(gain float64) *InitWFn {
	return newInitWFn(HeNConfig{Gain: gain})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (h HeNConfig) Type() Type {
	return HeN
}

// Sample draws weights from a zero mean normal with standard deviation
// gain / sqrt(in)
func (h HeNConfig) Sample(in, out int, src rand.Source) []float64 {
	std := h.Gain / math.Sqrt(float64(in))
	return draw(in*out, distuv.Normal{Mu: 0, Sigma: std, Src: src})
}
