package network

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"
)

type activationType string

const (
	relu     activationType = "relu"
	identity activationType = "identity"
)

// Activation represents an activation function type. Each Activation
// can be applied to a node of a computational graph or, in place, to
// plain values.
type Activation struct {
	activationType
	f     func(x *G.Node) (*G.Node, error)
	apply func(float64) float64
}

// fwd performs the forward pass of an Activation
func (a *Activation) fwd(x *G.Node) (*G.Node, error) {
	return a.f(x)
}

// ApplyTo applies the Activation in place to values
func (a *Activation) ApplyTo(values []float64) {
	for i, v := range values {
		values[i] = a.apply(v)
	}
}

// String implements the Stringer interface
func (a *Activation) String() string {
	return string(a.activationType)
}

// IsIdentity returns whether or not the Activation is the identity
// function.
func (a *Activation) IsIdentity() bool {
	return a.activationType == identity
}

// Identity returns an identity *Activation
func Identity() *Activation {
	return &Activation{
		activationType: identity,
		f: func(x *G.Node) (*G.Node, error) {
			return x, nil
		},
		apply: func(v float64) float64 { return v },
	}
}

// ReLU returns a ReLU *Activation
func ReLU() *Activation {
	return &Activation{
		activationType: relu,
		f:              G.Rectify,
		apply:          func(v float64) float64 { return math.Max(v, 0) },
	}
}

// ActivationByName returns the Activation with the given name
func ActivationByName(name string) (*Activation, error) {
	switch activationType(name) {
	case relu:
		return ReLU(), nil
	case identity:
		return Identity(), nil
	}
	return nil, fmt.Errorf("activationByName: illegal Activation type %v",
		name)
}
