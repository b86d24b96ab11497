package checkpointer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samuelfneumann/drivelearn/agent"
)

// Checkpoint is the content of a checkpoint file
type Checkpoint struct {
	Model      agent.Packet `json:"model"`
	BatchCount int          `json:"batch_count"`
}

// batchCount implements checkpointing to a file named by the total
// number of minibatches trained on
type batchCount struct {
	object Serializable

	// filename returns the name of the file to save the object in
	// after n minibatches. Use FilenameEnumerator to number files in a
	// directory.
	filename func(n int) string
}

// NewBatchCount returns a Checkpointer which saves object, including
// its target weights, in the file dir/<numBatchesRun>.json
func NewBatchCount(dir string, object Serializable) Checkpointer {
	return &batchCount{
		object:   object,
		filename: FilenameEnumerator(dir, ".json"),
	}
}

// Checkpoint implements the Checkpointer interface
func (b *batchCount) Checkpoint(numBatchesRun, count int) error {
	model, err := b.object.SerializeWeights(true)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	data, err := json.Marshal(Checkpoint{Model: model, BatchCount: count})
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	filename := b.filename(numBatchesRun)
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// FilenameEnumerator returns a function which names the file of the
// n-th checkpoint in dir with the given extension
func FilenameEnumerator(dir, extension string) func(n int) string {
	return func(n int) string {
		return filepath.Join(dir, fmt.Sprintf("%d%v", n, extension))
	}
}

// Load reads a checkpoint file
func Load(path string) (Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("load: %w", err)
	}

	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return Checkpoint{}, fmt.Errorf("load: %v: %w", path, err)
	}
	return c, nil
}
