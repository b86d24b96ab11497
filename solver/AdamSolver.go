package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Default Adam hyperparameters
const (
	DefaultAdamEpsilon = 1e-8
	DefaultAdamBeta1   = 0.9
	DefaultAdamBeta2   = 0.999
)

// AdamConfig describes a configuration of the Adam solver. Gradients
// are averaged over Batch samples and, if Clip > 0, clipped to
// [-Clip, Clip] before each step.
type AdamConfig struct {
	StepSize float64
	Epsilon  float64 // Smoothing factor
	Beta1    float64
	Beta2    float64
	Batch    int
	Clip     float64 // <= 0 if no clipping
}

// NewDefaultAdam returns a new Adam Solver with the default moment
// decay rates and no gradient clipping
func NewDefaultAdam(stepSize float64, batchSize int) (*Solver, error) {
	return NewAdam(AdamConfig{
		StepSize: stepSize,
		Epsilon:  DefaultAdamEpsilon,
		Beta1:    DefaultAdamBeta1,
		Beta2:    DefaultAdamBeta2,
		Batch:    batchSize,
	})
}

// NewAdam returns a new Adam Solver described by config
func NewAdam(config AdamConfig) (*Solver, error) {
	return newSolver(Adam, config)
}

// Create implements the Config interface
func (a AdamConfig) Create() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(a.StepSize),
		G.WithEps(a.Epsilon),
		G.WithBeta1(a.Beta1),
		G.WithBeta2(a.Beta2),
		G.WithBatchSize(float64(a.Batch)),
	}
	if a.Clip > 0 {
		opts = append(opts, G.WithClip(a.Clip))
	}
	return G.NewAdamSolver(opts...)
}

// ValidType implements the Config interface
func (a AdamConfig) ValidType(t Type) bool {
	return t == Adam
}

// Validate implements the Config interface
func (a AdamConfig) Validate() error {
	switch {
	case a.StepSize <= 0:
		return fmt.Errorf("adam: step size must be > 0")
	case a.Epsilon < 0:
		return fmt.Errorf("adam: epsilon must be >= 0")
	case a.Beta1 < 0 || a.Beta1 >= 1 || a.Beta2 < 0 || a.Beta2 >= 1:
		return fmt.Errorf("adam: betas must be in [0, 1)")
	case a.Batch <= 0:
		return fmt.Errorf("adam: batch size must be > 0")
	}
	return nil
}
