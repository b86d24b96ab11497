// Package trackers implements Trackers of epoch data
package trackers

import (
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/stat"

	"github.com/samuelfneumann/drivelearn/experiment/tracker"
)

// Return tracks and saves the return of each epoch in a session, that
// is the sum of the rewards of its trajectory.
//
// Epochs which end before any step is taken have no return and are not
// tracked.
type Return struct {
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Track implements the tracker.Tracker interface
func (r *Return) Track(epoch tracker.Epoch) error {
	if epoch.Trajectory == nil || epoch.Trajectory.Len() == 0 {
		return nil
	}
	r.episodeReturns = append(r.episodeReturns, epoch.Trajectory.Return())
	return nil
}

// Returns returns the tracked returns
func (r *Return) Returns() []float64 {
	out := make([]float64, len(r.episodeReturns))
	copy(out, r.episodeReturns)
	return out
}

// Summary returns the mean and standard deviation of the last n
// tracked returns, or of all returns if fewer were tracked
func (r *Return) Summary(n int) (mean, std float64) {
	returns := r.episodeReturns
	if n > 0 && len(returns) > n {
		returns = returns[len(returns)-n:]
	}
	if len(returns) == 0 {
		return 0, 0
	}
	if len(returns) == 1 {
		return returns[0], 0
	}
	return stat.MeanStdDev(returns, nil)
}

// Save implements the tracker.Tracker interface
func (r *Return) Save() error {
	file, err := os.Create(r.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(r.episodeReturns); err != nil {
		return fmt.Errorf("save: could not encode returns: %w", err)
	}
	return nil
}
