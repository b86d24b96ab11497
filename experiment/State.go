package experiment

// SessionState is the state carried across the epochs of a session
type SessionState struct {
	// Probability of taking a random action
	Epsilon float64

	// Total number of minibatches sampled for training
	NumBatchesRun int

	// NumBatchesRun at the time of the last checkpoint
	LastCheckpointBatchCount int
}

// NewSessionState returns the state of a new session, which always
// starts fully exploratory
func NewSessionState() *SessionState {
	return &SessionState{Epsilon: 1.0}
}

// Decay reduces epsilon by step, never going below min
func (s *SessionState) Decay(step, min float64) {
	s.Epsilon -= step
	if s.Epsilon < min {
		s.Epsilon = min
	}
}

// Override sets epsilon to a value chosen elsewhere, such as by the
// trainer
func (s *SessionState) Override(epsilon float64) {
	s.Epsilon = epsilon
}

// AddBatches records that n more minibatches were sampled
func (s *SessionState) AddBatches(n int) {
	s.NumBatchesRun += n
}

// CheckpointDue returns whether more than freq minibatches have been
// sampled since the last checkpoint
func (s *SessionState) CheckpointDue(freq int) bool {
	return s.NumBatchesRun > freq+s.LastCheckpointBatchCount
}

// MarkCheckpoint records that a checkpoint was just taken
func (s *SessionState) MarkCheckpoint() {
	s.LastCheckpointBatchCount = s.NumBatchesRun
}
