package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionState(t *testing.T) {
	s := NewSessionState()
	assert.Equal(t, 1.0, s.Epsilon)
	assert.Zero(t, s.NumBatchesRun)
	assert.Zero(t, s.LastCheckpointBatchCount)
}

func TestDecayFloor(t *testing.T) {
	s := NewSessionState()
	for i := 0; i < 10; i++ {
		s.Decay(0.3, 0.1)
		assert.GreaterOrEqual(t, s.Epsilon, 0.1)
		assert.LessOrEqual(t, s.Epsilon, 1.0)
	}
	assert.Equal(t, 0.1, s.Epsilon)
}

func TestDecayStep(t *testing.T) {
	s := NewSessionState()
	s.Decay(0.25, 0)
	assert.InDelta(t, 0.75, s.Epsilon, 1e-12)
	s.Decay(0.25, 0)
	assert.InDelta(t, 0.5, s.Epsilon, 1e-12)
}

func TestOverride(t *testing.T) {
	s := NewSessionState()
	s.Override(0.42)
	assert.Equal(t, 0.42, s.Epsilon)
}

func TestCheckpointDue(t *testing.T) {
	s := NewSessionState()

	s.AddBatches(10)
	assert.False(t, s.CheckpointDue(10))

	s.AddBatches(1)
	assert.True(t, s.CheckpointDue(10))

	s.MarkCheckpoint()
	assert.Equal(t, 11, s.LastCheckpointBatchCount)
	assert.False(t, s.CheckpointDue(10))

	s.AddBatches(11)
	assert.True(t, s.CheckpointDue(10))
}

func TestPhaseString(t *testing.T) {
	phases := map[Phase]string{
		Resetting:    "resetting",
		Warmup:       "warmup",
		Collecting:   "collecting",
		Terminated:   "terminated",
		Reconnecting: "reconnecting",
		Phase(99):    "unknown",
	}
	for p, want := range phases {
		assert.Equal(t, want, p.String())
	}
	assert.Equal(t, "far off", FarOff.String())
}
