package trackers

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/drivelearn/environment/road"
	"github.com/samuelfneumann/drivelearn/experiment/tracker"
	"github.com/samuelfneumann/drivelearn/timestep"
)

// trajectory returns a finalized trajectory with the given rewards,
// driving along the x axis
func trajectory(rewards ...float64) *timestep.Trajectory {
	traj := timestep.NewTrajectory()
	for i, r := range rewards {
		traj.Append(timestep.Step{
			Action:   i % 3,
			Reward:   r,
			Position: r3.Vec{X: float64(i), Y: 0.5 * float64(i)},
		})
	}
	traj.Finalize()
	return traj
}

func TestReturn(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	r := NewReturn(filename)

	require.NoError(t, r.Track(tracker.Epoch{Number: 1,
		Trajectory: trajectory(1, 2, 3)}))
	require.NoError(t, r.Track(tracker.Epoch{Number: 2,
		Trajectory: trajectory()}))
	require.NoError(t, r.Track(tracker.Epoch{Number: 3}))
	require.NoError(t, r.Track(tracker.Epoch{Number: 4,
		Trajectory: trajectory(10, -5)}))

	assert.Equal(t, []float64{6, 5}, r.Returns())

	mean, std := r.Summary(0)
	assert.InDelta(t, 5.5, mean, 1e-12)
	assert.InDelta(t, 0.7071067811865476, std, 1e-12)

	mean, std = r.Summary(1)
	assert.Equal(t, 5.0, mean)
	assert.Equal(t, 0.0, std)

	require.NoError(t, r.Save())
	data, err := tracker.LoadData[float64](filename)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 5}, data)
}

func TestReturnSummaryEmpty(t *testing.T) {
	r := NewReturn("unused")
	mean, std := r.Summary(10)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, std)
}

func TestEpisodeLength(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "lengths.bin")
	e := NewEpisodeLength(filename)

	require.NoError(t, e.Track(tracker.Epoch{Trajectory: trajectory(1, 1)}))
	require.NoError(t, e.Track(tracker.Epoch{Trajectory: trajectory()}))
	require.NoError(t, e.Track(tracker.Epoch{}))
	require.NoError(t, e.Save())

	data, err := tracker.LoadData[int](filename)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 0}, data)
}

func TestEpisodeLengthSaveError(t *testing.T) {
	e := NewEpisodeLength(filepath.Join(t.TempDir(), "missing", "lengths.bin"))
	assert.Error(t, e.Save())
}

func TestLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger", "exp.db")
	agentID := uuid.New()
	l, err := NewLedger(path, agentID)
	require.NoError(t, err)

	require.NoError(t, l.Track(tracker.Epoch{
		Number:     2,
		Trajectory: trajectory(1, 2),
		NumRandom:  2,
		Reason:     "collided",
		Bootstrap:  true,
		Epsilon:    1,
		Duration:   3 * time.Second,
	}))
	require.NoError(t, l.Track(tracker.Epoch{
		Number:  1,
		Reason:  "stopped",
		Epsilon: 0.5,
	}))

	rows, err := l.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].Epoch)
	assert.Equal(t, 0, rows[0].Frames)
	assert.Equal(t, "stopped", rows[0].Reason)
	assert.False(t, rows[0].Bootstrap)

	assert.Equal(t, agentID.String(), rows[1].AgentID)
	assert.Equal(t, 2, rows[1].Epoch)
	assert.Equal(t, 2, rows[1].Frames)
	assert.Equal(t, 2, rows[1].NumRandom)
	assert.Equal(t, 3.0, rows[1].Return)
	assert.Equal(t, "collided", rows[1].Reason)
	assert.True(t, rows[1].Bootstrap)
	assert.Equal(t, 1.0, rows[1].Epsilon)
	assert.Equal(t, (3 * time.Second).Nanoseconds(), rows[1].Duration)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)

	require.NoError(t, l.Save())

	// Reopening keeps earlier rows
	l, err = NewLedger(path, agentID)
	require.NoError(t, err)
	defer l.Save()
	rows, err = l.Rows()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestPathPlot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	roadLines := []road.Segment{{A: r3.Vec{X: -5}, B: r3.Vec{X: 20}}}
	rewardLines := []road.Segment{{A: r3.Vec{X: -5, Y: 1}, B: r3.Vec{X: 20, Y: 1}}}
	p := NewPathPlot(dir, roadLines, rewardLines)

	require.NoError(t, p.Track(tracker.Epoch{Number: 7,
		Trajectory: trajectory(1, 1, 1, 1)}))
	require.NoError(t, p.Track(tracker.Epoch{Number: 8,
		Trajectory: trajectory()}))
	require.NoError(t, p.Save())

	want := filepath.Join(dir, "epoch_7.png")
	assert.Equal(t, []string{want}, p.Saved())

	file, err := os.Open(want)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, PlotSize, img.Bounds().Dx())
	assert.Equal(t, PlotSize, img.Bounds().Dy())

	_, err = os.Stat(filepath.Join(dir, "epoch_8.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPathPlotSinglePoint(t *testing.T) {
	p := NewPathPlot(t.TempDir(), nil, nil)
	traj := timestep.NewTrajectory()
	traj.Append(timestep.Step{})
	traj.Finalize()
	assert.NoError(t, p.Track(tracker.Epoch{Number: 1, Trajectory: traj}))
}
