package critic

import (
	"fmt"

	"github.com/samuelfneumann/drivelearn/initwfn"
	"github.com/samuelfneumann/drivelearn/solver"
)

// Steering is the steering angle each discrete action decodes to
var Steering = []float64{-0.5, -0.25, 0, 0.25, 0.5}

// Config implements a configuration of the critic
type Config struct {
	// Featurization of stacked frames
	Frames   int
	PoolRows int
	PoolCols int

	Hidden   int     // Units in the feature layer
	Discount float64 // Discount of the next state's value

	// TrainFeatures determines whether the feature layer is trained or
	// only the action value head
	TrainFeatures bool

	// BatchSize is the number of samples in each minibatch
	BatchSize int

	// Speed below which the vehicle is given full throttle
	ThrottleSpeed float64

	Solver  *solver.Solver
	InitWFn *initwfn.InitWFn
}

// DefaultConfig returns the default critic configuration for
// minibatches of batchSize samples
func DefaultConfig(batchSize int, trainFeatures bool) Config {
	return Config{
		Frames:        4,
		PoolRows:      6,
		PoolCols:      16,
		Hidden:        32,
		Discount:      0.99,
		TrainFeatures: trainFeatures,
		BatchSize:     batchSize,
		ThrottleSpeed: 5,
		Solver:        solver.Default(batchSize),
		InitWFn:       initwfn.NewGlorotU(1.0),
	}
}

// Actions returns the number of discrete actions
func (c Config) Actions() int {
	return len(Steering)
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if c.Frames <= 0 || c.PoolRows <= 0 || c.PoolCols <= 0 {
		return fmt.Errorf("validate: frames and pooling must be > 0")
	}
	if c.Hidden <= 0 {
		return fmt.Errorf("validate: hidden units must be > 0")
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1]")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("validate: batch size must be > 0")
	}
	if c.Solver == nil {
		return fmt.Errorf("validate: no solver")
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer")
	}
	return nil
}
