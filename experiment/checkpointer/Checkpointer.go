// Package checkpointer implements saving models to disk during a
// session
package checkpointer

import (
	"github.com/samuelfneumann/drivelearn/agent"
)

// Serializable is an object whose weights can be saved
type Serializable interface {
	SerializeWeights(includeTarget bool) (agent.Packet, error)
}

// Checkpointer saves a Serializable object once numBatchesRun
// minibatches have been trained on in total. The batchCount is the
// number of minibatches of the latest epoch.
type Checkpointer interface {
	Checkpoint(numBatchesRun, batchCount int) error
}
