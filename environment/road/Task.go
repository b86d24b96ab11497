package road

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/drivelearn/environment"
	"github.com/samuelfneumann/drivelearn/utils/floatutils"
)

// Reward function constants
const (
	// ThreshDist is the distance from the nearest reward line past which
	// the vehicle is considered far off the road
	ThreshDist = 20.0

	// DistanceDecayRate is the rate at which the reward decays with
	// distance from the nearest reward line
	DistanceDecayRate = 1.2

	// MinSpeed is the speed under which the vehicle is considered stopped
	MinSpeed = 2.0

	// CollisionReward is the reward for colliding with anything
	CollisionReward = -5.0

	// noLineDistance is the distance reported when there are no lines
	noLineDistance = 999.0
)

// Task implements the reward scheme of driving along the centre of the
// road
type Task struct {
	lines []Segment
}

// NewTask returns a new Task which rewards the vehicle for staying near
// the reward lines
func NewTask(rewardLines []Segment) *Task {
	return &Task{lines: rewardLines}
}

// Lines returns the reward lines of the Task
func (t *Task) Lines() []Segment {
	return t.lines
}

// Reward returns the reward for the vehicle being in the given state
// and whether the state is terminal. See Reward.
func (t *Task) Reward(collision environment.CollisionInfo,
	state environment.VehicleState) (float64, bool) {
	return Reward(collision, state, t.lines)
}

// Reward returns the reward for the vehicle in state and whether the
// state is terminal.
//
// A collision is terminal with reward CollisionReward. A speed below
// MinSpeed is terminal with reward 0. Otherwise the reward decays
// exponentially with the distance d to the nearest reward line, and the
// state is terminal if d > ThreshDist.
func Reward(collision environment.CollisionInfo,
	state environment.VehicleState, lines []Segment) (float64, bool) {
	if collision.HasCollided {
		return CollisionReward, true
	}
	if state.Speed < MinSpeed {
		return 0.0, true
	}

	distance := NearestDistance(state.Position.X, state.Position.Y, lines)

	reward := math.Exp(-(distance * DistanceDecayRate))
	// The exponential never exceeds 1, so this boost always applies
	if reward < ThreshDist {
		reward *= 10
	}
	return reward, distance > ThreshDist
}

// NearestDistance returns the distance from (x, y) to the nearest
// segment in lines, projecting onto each segment and clamping the
// projection to the segment's end points. Zero length segments report
// a distance of 0.
func NearestDistance(x, y float64, lines []Segment) float64 {
	distance := noLineDistance
	car := []float64{x, y}

	for _, line := range lines {
		a := []float64{line.A.X, line.A.Y}
		d := []float64{line.B.X - line.A.X, line.B.Y - line.A.Y}
		lengthSquared := floats.Dot(d, d)

		local := 0.0
		if lengthSquared != 0 {
			rel := []float64{x - a[0], y - a[1]}
			t := floatutils.Clip(floats.Dot(rel, d)/lengthSquared, 0, 1)
			proj := []float64{a[0] + t*d[0], a[1] + t*d[1]}
			local = floats.Distance(proj, car, 2)
		}
		distance = math.Min(local, distance)
	}
	return distance
}
