// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/drivelearn/environment"
)

// StepType denotes the type of step that a Step can be, either the
// first step of an epoch, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// Step packages together a single transition of the vehicle: the
// stacked frames before and after the action, the action taken, and
// the reward observed and predicted for it
type Step struct {
	StepType
	PreState        environment.Stack
	PostState       environment.Stack
	Action          int
	Reward          float64
	PredictedReward float64

	// Position of the vehicle after the action was taken
	Position r3.Vec
}

// First returns whether a Step is the first in an epoch
func (s *Step) First() bool {
	return s.StepType == First
}

// Mid returns whether a Step is a middle step in an epoch
func (s *Step) Mid() bool {
	return s.StepType == Mid
}

// Last returns whether a Step is the last step in an epoch
func (s *Step) Last() bool {
	return s.StepType == Last
}

// NotTerminal returns 0 for the last step of an epoch and 1 otherwise
func (s *Step) NotTerminal() float64 {
	if s.Last() {
		return 0
	}
	return 1
}

// Surprise returns how far the predicted reward was from the reward
// observed
func (s *Step) Surprise() float64 {
	d := s.Reward - s.PredictedReward
	if d < 0 {
		return -d
	}
	return d
}

func (s Step) String() string {
	str := "Step | Type: %v  |  Action: %v  |  Reward:  %.2f  |  " +
		"Predicted: %.2f"

	return fmt.Sprintf(str, s.StepType, s.Action, s.Reward, s.PredictedReward)
}
