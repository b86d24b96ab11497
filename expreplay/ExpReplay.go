// Package expreplay implements the bounded replay memory of experience
// collected across epochs and the samplers which draw training
// minibatches from it
package expreplay

import (
	"fmt"

	"github.com/gammazero/deque"

	"github.com/samuelfneumann/drivelearn/environment"
	"github.com/samuelfneumann/drivelearn/timestep"
)

// Source is a sequence of Steps that can be sampled from. Both
// *ReplayMemory and *timestep.Trajectory are Sources.
type Source interface {
	Len() int
	At(i int) timestep.Step
}

// ReplayMemory is a first-in-first-out store of Steps holding at most
// Capacity() Steps. Each Step carries all of its fields, so every
// field view of the memory always has the same length.
//
// ReplayMemory is not safe for concurrent use.
type ReplayMemory struct {
	steps    *deque.Deque[timestep.Step]
	capacity int
}

// NewReplayMemory returns a new ReplayMemory which holds at most
// capacity Steps
func NewReplayMemory(capacity int) (*ReplayMemory, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("new: capacity must be > 0")
	}
	return &ReplayMemory{
		steps:    deque.New[timestep.Step](),
		capacity: capacity,
	}, nil
}

// Append adds steps to the back of the memory, dropping the oldest
// steps once the memory is over capacity
func (r *ReplayMemory) Append(steps ...timestep.Step) {
	for _, s := range steps {
		r.steps.PushBack(s)
	}
	for r.steps.Len() > r.capacity {
		r.steps.PopFront()
	}
}

// AppendTrajectory adds every step of t to the memory
func (r *ReplayMemory) AppendTrajectory(t *timestep.Trajectory) {
	r.Append(t.Steps()...)
}

// Len returns the number of steps currently held
func (r *ReplayMemory) Len() int {
	return r.steps.Len()
}

// Capacity returns the maximum number of steps held
func (r *ReplayMemory) Capacity() int {
	return r.capacity
}

// Fullness returns the fraction of the capacity in use
func (r *ReplayMemory) Fullness() float64 {
	return float64(r.steps.Len()) / float64(r.capacity)
}

// At returns the step at index i, where index 0 is the oldest step
func (r *ReplayMemory) At(i int) timestep.Step {
	return r.steps.At(i)
}

// PreStates returns the stacked frames before each action
func (r *ReplayMemory) PreStates() []environment.Stack {
	out := make([]environment.Stack, r.Len())
	for i := range out {
		out[i] = r.steps.At(i).PreState
	}
	return out
}

// PostStates returns the stacked frames after each action
func (r *ReplayMemory) PostStates() []environment.Stack {
	out := make([]environment.Stack, r.Len())
	for i := range out {
		out[i] = r.steps.At(i).PostState
	}
	return out
}

// Actions returns the actions taken
func (r *ReplayMemory) Actions() []int {
	out := make([]int, r.Len())
	for i := range out {
		out[i] = r.steps.At(i).Action
	}
	return out
}

// Rewards returns the rewards observed
func (r *ReplayMemory) Rewards() []float64 {
	out := make([]float64, r.Len())
	for i := range out {
		out[i] = r.steps.At(i).Reward
	}
	return out
}

// PredictedRewards returns the rewards the model predicted
func (r *ReplayMemory) PredictedRewards() []float64 {
	out := make([]float64, r.Len())
	for i := range out {
		out[i] = r.steps.At(i).PredictedReward
	}
	return out
}

// IsNotTerminal returns 0 for each terminal step and 1 otherwise
func (r *ReplayMemory) IsNotTerminal() []float64 {
	out := make([]float64, r.Len())
	for i := range out {
		s := r.steps.At(i)
		out[i] = s.NotTerminal()
	}
	return out
}
