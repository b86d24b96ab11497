package expreplay

import "errors"

// ExpReplayError implements errors unique to an experience replay
// buffer.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

// ErrEmptyBuffer is reported when sampling from an empty buffer
var ErrEmptyBuffer = errors.New("buffer empty")

// ErrInsufficientSamples is reported when a minibatch would need more
// distinct samples than the buffer holds
var ErrInsufficientSamples = errors.New("fewer samples than batch size")

// ErrDegenerateDistribution is reported when every surprise weight is
// zero, so no sampling distribution can be formed
var ErrDegenerateDistribution = errors.New("surprise weights sum to zero")

// IsInsufficientSamples returns whether or not an error reports that
// there are insufficient samples in the buffer to sample from the
// buffer.
func IsInsufficientSamples(err error) bool {
	return errors.Is(err, ErrInsufficientSamples)
}

// IsEmptyBuffer returns whether or not an error reports that a
// replay buffer is empty.
func IsEmptyBuffer(err error) bool {
	return errors.Is(err, ErrEmptyBuffer)
}

// IsDegenerate returns whether or not an error reports a surprise
// distribution with no mass.
func IsDegenerate(err error) bool {
	return errors.Is(err, ErrDegenerateDistribution)
}
