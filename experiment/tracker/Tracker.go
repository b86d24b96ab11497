// Package tracker outlines Trackers, which record data about each epoch
// of a session and save it to disk
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
	"time"

	"github.com/samuelfneumann/drivelearn/timestep"
)

// Epoch summarizes a finished epoch
type Epoch struct {
	Number     int // Number of the epoch in the session, from 1
	Trajectory *timestep.Trajectory
	NumRandom  int
	Reason     string
	Bootstrap  bool
	Epsilon    float64
	Duration   time.Duration
}

// Tracker keeps track of the data of each epoch and saves the data to
// disk
type Tracker interface {
	Track(Epoch) error
	Save() error
}

// LoadData loads and returns the data saved by a gob encoding Tracker
func LoadData[T any](filename string) ([]T, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadData: could not open data file: %w", err)
	}
	defer file.Close()

	var data []T
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("loadData: could not decode data: %w", err)
	}
	return data, nil
}
