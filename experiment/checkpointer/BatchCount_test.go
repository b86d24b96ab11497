package checkpointer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/drivelearn/agent"
)

type weights struct {
	err error
}

func (w weights) SerializeWeights(includeTarget bool) (agent.Packet, error) {
	if w.err != nil {
		return agent.Packet{}, w.err
	}
	m := map[string][]float64{"q/W": {1, 2}}
	if includeTarget {
		m["target/q/W"] = []float64{3, 4}
	}
	return agent.NewPacket(m), nil
}

func TestBatchCount(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "checkpoint", "exp")
	c := NewBatchCount(dir, weights{})

	require.NoError(t, c.Checkpoint(301, 57))

	saved, err := Load(filepath.Join(dir, "301.json"))
	require.NoError(t, err)
	assert.Equal(t, 57, saved.BatchCount)
	assert.Equal(t, []float64{1, 2}, saved.Model.Weights["q/W"])
	assert.Equal(t, []float64{3, 4}, saved.Model.Weights["target/q/W"])

	// The directory already exists for later checkpoints
	require.NoError(t, c.Checkpoint(602, 12))
	_, err = os.Stat(filepath.Join(dir, "602.json"))
	assert.NoError(t, err)
}

func TestBatchCountSerializeError(t *testing.T) {
	dir := t.TempDir()
	c := NewBatchCount(dir, weights{err: errors.New("no weights")})

	assert.Error(t, c.Checkpoint(1, 1))
	_, err := os.Stat(filepath.Join(dir, "1.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBatchCountUnwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	c := NewBatchCount(filepath.Join(file, "dir"), weights{})
	assert.Error(t, c.Checkpoint(1, 1))
}

func TestFilenameEnumerator(t *testing.T) {
	name := FilenameEnumerator("ckpt", ".json")
	assert.Equal(t, filepath.Join("ckpt", "10.json"), name(10))
	assert.Equal(t, filepath.Join("ckpt", "11.json"), name(11))
}
