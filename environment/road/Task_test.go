package road

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/drivelearn/environment"
)

func state(speed, x, y float64) environment.VehicleState {
	return environment.VehicleState{Speed: speed, Position: r3.Vec{X: x, Y: y}}
}

func TestRewardCollision(t *testing.T) {
	lines := []Segment{{A: r3.Vec{}, B: r3.Vec{X: 10}}}
	r, terminal := Reward(environment.CollisionInfo{HasCollided: true},
		state(10, 0, 0), lines)

	assert.Equal(t, -5.0, r)
	assert.True(t, terminal)
}

func TestRewardStopped(t *testing.T) {
	lines := []Segment{{A: r3.Vec{}, B: r3.Vec{X: 10}}}
	r, terminal := Reward(environment.CollisionInfo{}, state(1.9, 0, 0), lines)

	assert.Equal(t, 0.0, r)
	assert.True(t, terminal)
}

func TestRewardOnLine(t *testing.T) {
	lines := []Segment{{A: r3.Vec{}, B: r3.Vec{X: 10}}}
	r, terminal := Reward(environment.CollisionInfo{}, state(5, 5, 0), lines)

	assert.InDelta(t, 10.0, r, 1e-12)
	assert.False(t, terminal)
}

func TestRewardDistance(t *testing.T) {
	lines := []Segment{{A: r3.Vec{}, B: r3.Vec{X: 10}}}

	r, terminal := Reward(environment.CollisionInfo{}, state(5, 5, 1), lines)
	assert.InDelta(t, 10*math.Exp(-1.2), r, 1e-12)
	assert.False(t, terminal)

	// Projection is clamped to the end point of the segment
	r, _ = Reward(environment.CollisionInfo{}, state(5, 13, 4), lines)
	assert.InDelta(t, 10*math.Exp(-1.2*5), r, 1e-12)
}

func TestRewardFarOff(t *testing.T) {
	lines := []Segment{{A: r3.Vec{}, B: r3.Vec{X: 10}}}

	_, terminal := Reward(environment.CollisionInfo{}, state(5, 5, 20), lines)
	assert.False(t, terminal)

	r, terminal := Reward(environment.CollisionInfo{}, state(5, 5, 25), lines)
	assert.True(t, terminal)
	assert.InDelta(t, 10*math.Exp(-1.2*25), r, 1e-20)
}

func TestRewardNoLines(t *testing.T) {
	_, terminal := Reward(environment.CollisionInfo{}, state(5, 0, 0), nil)
	assert.True(t, terminal)
}

func TestNearestDistanceDegenerate(t *testing.T) {
	lines := []Segment{
		{A: r3.Vec{X: 100, Y: 100}, B: r3.Vec{X: 100, Y: 100}},
		{A: r3.Vec{}, B: r3.Vec{X: 10}},
	}
	assert.Equal(t, 0.0, NearestDistance(50, 50, lines))
}

func TestNearestDistanceMin(t *testing.T) {
	lines := []Segment{
		{A: r3.Vec{}, B: r3.Vec{X: 10}},
		{A: r3.Vec{Y: 3}, B: r3.Vec{X: 10, Y: 3}},
	}
	assert.InDelta(t, 1.0, NearestDistance(4, 2, lines), 1e-12)
}

func TestTaskUsesLines(t *testing.T) {
	task := NewTask([]Segment{{A: r3.Vec{}, B: r3.Vec{Y: 10}}})
	r, terminal := task.Reward(environment.CollisionInfo{}, state(3, 0, 5))

	assert.InDelta(t, 10.0, r, 1e-12)
	assert.False(t, terminal)
	assert.Len(t, task.Lines(), 1)
}
