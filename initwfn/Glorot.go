package initwfn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// GlorotUConfig implements a configuration of the Glorot Uniform
// initialization algorithm.
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot Uniform weight initializer
func NewGlorotU(gain float64) *InitWFn {
	return newInitWFn(GlorotUConfig{Gain: gain})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (g GlorotUConfig) Type() Type {
	return GlorotU
}

// Sample draws weights uniformly from [-l, l] where
// l = gain * sqrt(6 / (in + out))
func (g GlorotUConfig) Sample(in, out int, src rand.Source) []float64 {
	limit := g.Gain * math.Sqrt(6/float64(in+out))
	return draw(in*out, distuv.Uniform{Min: -limit, Max: limit, Src: src})
}

// GlorotNConfig implements a configuration of the Glorot Normal
// initialization algorithm.
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a new Glorot Normal weight initializer.
func NewGlorotN(gain float64) *InitWFn {
	return newInitWFn(GlorotNConfig{Gain: gain})
}

// Type returns the type of initialization algorithm described by the
// configuration.
func (g GlorotNConfig) Type() Type {
	return GlorotN
}

// Sample draws weights from a zero mean normal with standard deviation
// gain * sqrt(2 / (in + out))
func (g GlorotNConfig) Sample(in, out int, src rand.Source) []float64 {
	std := g.Gain * math.Sqrt(2/float64(in+out))
	return draw(in*out, distuv.Normal{Mu: 0, Sigma: std, Src: src})
}

func draw(n int, dist distuv.Rander) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = dist.Rand()
	}
	return w
}
