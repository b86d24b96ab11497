// Package agent defines the interface between the experience collection
// loop and the model which selects actions and learns from experience
package agent

import (
	"github.com/samuelfneumann/drivelearn/environment"
	"github.com/samuelfneumann/drivelearn/expreplay"
)

// Model determines the implementation details of a learning algorithm
//
// A Model is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy chooses which actions
// are taken, and the Learner uses the collected experience to update
// the Policy.
type Model interface {
	Learner
	Policy
}

// Policy chooses discrete actions and converts them into control
// signals for the vehicle
type Policy interface {
	// PredictBestState returns the action with the highest predicted
	// value in the stacked state along with that value
	PredictBestState(environment.Stack) (action int, predicted float64,
		err error)

	// SampleRandomState returns an action chosen uniformly at random
	SampleRandomState() int

	// DecodeStateToControl converts an action into the control signal
	// to apply given the vehicle's current state
	DecodeStateToControl(action int, state environment.VehicleState) environment.Control
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// ComputeGradients returns the gradient of the loss on the
	// minibatches without changing the weights
	ComputeGradients([]expreplay.Minibatch) (Gradients, error)

	// Train updates the weights on each minibatch in turn and returns
	// the gradients that were applied
	Train([]expreplay.Minibatch) (Gradients, error)

	// ApplyWeights overwrites the weights named in the Packet
	ApplyWeights(Packet) error

	// SerializeWeights returns the current weights, including the
	// weights of the target network if includeTarget is true
	SerializeWeights(includeTarget bool) (Packet, error)

	// UpdateCriticFromTarget copies the learned weights into the
	// network which provides the update target
	UpdateCriticFromTarget() error
}
