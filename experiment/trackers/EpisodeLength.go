package trackers

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/samuelfneumann/drivelearn/experiment/tracker"
)

// EpisodeLength tracks and saves the number of steps in each epoch of
// a session, including epochs without any steps
type EpisodeLength struct {
	episodeLengths []int
	filename       string
}

// NewEpisodeLength returns a new EpisodeLength Tracker which will save
// its data at the specified location filename
func NewEpisodeLength(filename string) *EpisodeLength {
	return &EpisodeLength{filename: filename}
}

// Track implements the tracker.Tracker interface
func (e *EpisodeLength) Track(epoch tracker.Epoch) error {
	length := 0
	if epoch.Trajectory != nil {
		length = epoch.Trajectory.Len()
	}
	e.episodeLengths = append(e.episodeLengths, length)
	return nil
}

// Save implements the tracker.Tracker interface
func (e *EpisodeLength) Save() error {
	file, err := os.Create(e.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(e.episodeLengths); err != nil {
		return fmt.Errorf("save: could not encode episode lengths: %w", err)
	}
	return nil
}
