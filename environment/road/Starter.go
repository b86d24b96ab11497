package road

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/drivelearn/environment"
	"github.com/samuelfneumann/drivelearn/utils/floatutils"
)

// Bounds of the fraction along a road segment at which a start pose is
// placed
const (
	MinInterp = 0.3
	MaxInterp = 0.7
)

// Starter samples starting poses for the vehicle uniformly along the
// road lines
type Starter struct {
	lines  []Segment
	rng    *rand.Rand
	interp distuv.Uniform
	flip   distuv.Uniform
}

// NewStarter returns a new Starter over the road lines
func NewStarter(roadLines []Segment, seed uint64) (*Starter, error) {
	if len(roadLines) == 0 {
		return nil, fmt.Errorf("newStarter: no road lines")
	}
	source := rand.NewSource(seed)

	return &Starter{
		lines:  roadLines,
		rng:    rand.New(source),
		interp: distuv.Uniform{Min: MinInterp, Max: MaxInterp, Src: source},
		flip:   distuv.Uniform{Min: 0, Max: 1, Src: source},
	}, nil
}

// Start samples a new starting pose
func (s *Starter) Start() environment.Pose {
	line := s.lines[s.rng.Intn(len(s.lines))]
	position, heading := StartPose(line, s.interp.Rand(), s.flip.Rand())
	return environment.Pose{Position: position, Heading: heading}
}

// StartPose returns the position a fraction t along line and a heading
// aligned with the line. The coin value picks between the two
// directions of travel: coin > 0.5 faces along +x for horizontal lines
// and +y for vertical lines.
//
// Lines which are neither horizontal nor vertical take the heading of
// the axis they mostly follow.
func StartPose(line Segment, t, coin float64) (position, heading r3.Vec) {
	position = line.Interpolate(t)
	position.Z = 0

	d := line.Delta()
	horizontal := floatutils.IsClose(line.A.Y, line.B.Y)
	vertical := floatutils.IsClose(line.A.X, line.B.X)
	if !horizontal && !vertical {
		horizontal = math.Abs(d.X) >= math.Abs(d.Y)
	}

	var yaw float64
	if horizontal {
		if coin > 0.5 {
			yaw = 0
		} else {
			yaw = math.Pi
		}
	} else {
		if coin > 0.5 {
			yaw = math.Pi / 2
		} else {
			yaw = -math.Pi / 2
		}
	}
	return position, r3.Vec{X: 0, Y: 0, Z: yaw}
}
