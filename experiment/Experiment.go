// Package experiment implements functionality for running an agent in
// a simulator: single epochs with an EpochDriver, and whole sessions
// of collection and training with a Session.
package experiment

import (
	"context"

	"github.com/samuelfneumann/drivelearn/experiment/tracker"
)

// Experiment outlines structs that can run experiments.
//
// The Run() method runs epochs until its context is done. Each
// finished epoch is sent to the Trackers registered with the
// Experiment, which cache the data they track. The Save() method then
// saves all cached data to disk, usually after the experiment has
// been run.
type Experiment interface {
	Run(ctx context.Context) error

	// Adds a new tracker.Tracker to the (possibly already running)
	// experiment. Useful if you want to track data only after a
	// specified event.
	Register(t tracker.Tracker)

	// Save all tracked data to disk
	Save() error
}

var _ Experiment = &Session{}
