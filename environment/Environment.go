// Package environment outlines the interfaces and structs needed to
// drive a simulated vehicle
package environment

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Frame is a single camera observation stored row major as
// Height x Width x Channels floats
type Frame struct {
	Height   int
	Width    int
	Channels int
	Pix      []float64
}

// NewFrame returns a new Frame, checking that pix has the right length
func NewFrame(height, width, channels int, pix []float64) (Frame, error) {
	if len(pix) != height*width*channels {
		return Frame{}, fmt.Errorf("newFrame: expected %d values but got %d",
			height*width*channels, len(pix))
	}
	return Frame{height, width, channels, pix}, nil
}

// At returns the value at the given row, column, and channel
func (f Frame) At(row, col, ch int) float64 {
	return f.Pix[(row*f.Width+col)*f.Channels+ch]
}

// Len returns the number of values in the frame
func (f Frame) Len() int {
	return len(f.Pix)
}

// Stack is an ordered snapshot of the most recent frames, oldest first
type Stack []Frame

// Control is a control signal applied to the vehicle
type Control struct {
	Steering float64
	Throttle float64
	Brake    float64
}

// Brake is the control that brings the vehicle to a halt
var Brake = Control{Steering: 0, Throttle: 0, Brake: 1}

// VehicleState is the kinematic state of the vehicle. Only the x and y
// components of Position are meaningful to the reward.
type VehicleState struct {
	Speed    float64
	Position r3.Vec
}

// CollisionInfo reports whether the vehicle has collided with anything
type CollisionInfo struct {
	HasCollided bool
	ObjectName  string
}

// Pose places the vehicle. Heading holds the roll, pitch, and yaw in
// radians as its X, Y, and Z components.
type Pose struct {
	Position r3.Vec
	Heading  r3.Vec
}

// Environment is a connection to a simulated vehicle
type Environment interface {
	Reset() error
	ApplyControl(Control) error
	VehicleState() (VehicleState, error)
	CollisionInfo() (CollisionInfo, error)
	Observation() (Frame, error)
	Close() error
}

// Poser is an Environment that can teleport the vehicle
type Poser interface {
	SetPose(Pose) error
}

// Dialer opens connections to a simulator
type Dialer interface {
	Dial(ctx context.Context) (Environment, error)
}

// DialerFunc adapts a function to a Dialer
type DialerFunc func(ctx context.Context) (Environment, error)

// Dial implements the Dialer interface
func (f DialerFunc) Dial(ctx context.Context) (Environment, error) {
	return f(ctx)
}
