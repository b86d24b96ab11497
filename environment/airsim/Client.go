package airsim

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/drivelearn/environment"
)

// Region of each scene image kept as an observation. Rows above
// cropTop show only sky.
const (
	cropTop      = 49
	cropBottom   = 108
	cropLeft     = 0
	cropRight    = 255
	cropChannels = 3
)

// sceneImage is the AirSim image type of an RGB camera
const sceneImage = 0

type vector3r struct {
	X float64 `msgpack:"x_val"`
	Y float64 `msgpack:"y_val"`
	Z float64 `msgpack:"z_val"`
}

type quaternionr struct {
	W float64 `msgpack:"w_val"`
	X float64 `msgpack:"x_val"`
	Y float64 `msgpack:"y_val"`
	Z float64 `msgpack:"z_val"`
}

type pose struct {
	Position    vector3r    `msgpack:"position"`
	Orientation quaternionr `msgpack:"orientation"`
}

type carControls struct {
	Throttle      float64 `msgpack:"throttle"`
	Steering      float64 `msgpack:"steering"`
	Brake         float64 `msgpack:"brake"`
	Handbrake     bool    `msgpack:"handbrake"`
	IsManualGear  bool    `msgpack:"is_manual_gear"`
	ManualGear    int     `msgpack:"manual_gear"`
	GearImmediate bool    `msgpack:"gear_immediate"`
}

type kinematics struct {
	Position vector3r `msgpack:"position"`
}

type carState struct {
	Speed      float64    `msgpack:"speed"`
	Gear       int        `msgpack:"gear"`
	Kinematics kinematics `msgpack:"kinematics_estimated"`
}

type collisionInfo struct {
	HasCollided bool   `msgpack:"has_collided"`
	ObjectName  string `msgpack:"object_name"`
}

type imageRequest struct {
	CameraName    string `msgpack:"camera_name"`
	ImageType     int    `msgpack:"image_type"`
	PixelsAsFloat bool   `msgpack:"pixels_as_float"`
	Compress      bool   `msgpack:"compress"`
}

type imageResponse struct {
	Data   []byte `msgpack:"image_data_uint8"`
	Height int    `msgpack:"height"`
	Width  int    `msgpack:"width"`
}

// Client is a connection to a car in an AirSim simulation. Every error
// it returns is an *environment.TransportError.
type Client struct {
	conn    *conn
	vehicle string
	camera  string
}

// Dialer connects to the simulator at Address
type Dialer struct {
	Address string
	Timeout time.Duration // Deadline of each call
	Vehicle string
	Camera  string
}

// Dial implements the environment.Dialer interface. The connection is
// checked with a ping and API control of the vehicle is enabled.
func (d Dialer) Dial(ctx context.Context) (environment.Environment, error) {
	return Dial(ctx, d)
}

// Dial connects to the simulator described by d
func Dial(ctx context.Context, d Dialer) (*Client, error) {
	c, err := dial(ctx, d.Address, d.Timeout)
	if err != nil {
		return nil, environment.NewTransportError("dial", err)
	}

	camera := d.Camera
	if camera == "" {
		camera = "0"
	}
	client := &Client{conn: c, vehicle: d.Vehicle, camera: camera}

	var pong bool
	if err := client.call("ping", &pong); err != nil {
		c.close()
		return nil, err
	}
	if err := client.call("enableApiControl", nil, true, d.Vehicle); err != nil {
		c.close()
		return nil, err
	}
	return client, nil
}

func (c *Client) call(method string, out interface{},
	params ...interface{}) error {
	return environment.NewTransportError(method, c.conn.call(method, out,
		params...))
}

// Reset implements the environment.Environment interface
func (c *Client) Reset() error {
	if err := c.call("reset", nil); err != nil {
		return err
	}
	return c.call("enableApiControl", nil, true, c.vehicle)
}

// ApplyControl implements the environment.Environment interface
func (c *Client) ApplyControl(control environment.Control) error {
	controls := carControls{
		Throttle:      control.Throttle,
		Steering:      control.Steering,
		Brake:         control.Brake,
		GearImmediate: true,
	}
	return c.call("setCarControls", nil, controls, c.vehicle)
}

// VehicleState implements the environment.Environment interface
func (c *Client) VehicleState() (environment.VehicleState, error) {
	var state carState
	if err := c.call("getCarState", &state, c.vehicle); err != nil {
		return environment.VehicleState{}, err
	}

	p := state.Kinematics.Position
	return environment.VehicleState{
		Speed:    state.Speed,
		Position: r3.Vec{X: p.X, Y: p.Y, Z: p.Z},
	}, nil
}

// CollisionInfo implements the environment.Environment interface
func (c *Client) CollisionInfo() (environment.CollisionInfo, error) {
	var info collisionInfo
	if err := c.call("simGetCollisionInfo", &info, c.vehicle); err != nil {
		return environment.CollisionInfo{}, err
	}
	return environment.CollisionInfo{
		HasCollided: info.HasCollided,
		ObjectName:  info.ObjectName,
	}, nil
}

// Observation implements the environment.Environment interface. The
// uncompressed scene image of the camera is cropped to the road ahead.
func (c *Client) Observation() (environment.Frame, error) {
	requests := []imageRequest{{
		CameraName: c.camera,
		ImageType:  sceneImage,
	}}

	var images []imageResponse
	if err := c.call("simGetImages", &images, requests, c.vehicle); err != nil {
		return environment.Frame{}, err
	}
	if len(images) == 0 {
		return environment.Frame{}, environment.NewTransportError(
			"simGetImages", fmt.Errorf("no image returned"))
	}

	frame, err := crop(images[0])
	if err != nil {
		return environment.Frame{}, environment.NewTransportError(
			"simGetImages", err)
	}
	return frame, nil
}

// SetPose implements the environment.Poser interface
func (c *Client) SetPose(p environment.Pose) error {
	target := pose{
		Position: vector3r{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z},
		Orientation: toQuaternion(p.Heading.X, p.Heading.Y, p.Heading.Z),
	}
	return c.call("simSetVehiclePose", nil, target, true, c.vehicle)
}

// Close implements the environment.Environment interface
func (c *Client) Close() error {
	if err := c.conn.close(); err != nil {
		return environment.NewTransportError("close", err)
	}
	return nil
}

// crop returns the region of an image kept as an observation
func crop(img imageResponse) (environment.Frame, error) {
	if img.Height <= 0 || img.Width <= 0 {
		return environment.Frame{}, fmt.Errorf("crop: empty image")
	}
	channels := len(img.Data) / (img.Height * img.Width)
	if channels*img.Height*img.Width != len(img.Data) {
		return environment.Frame{}, fmt.Errorf("crop: %d bytes do not fill "+
			"a %dx%d image", len(img.Data), img.Height, img.Width)
	}
	if img.Height < cropBottom || img.Width < cropRight ||
		channels < cropChannels {
		return environment.Frame{}, fmt.Errorf("crop: image of %dx%dx%d is "+
			"too small", img.Height, img.Width, channels)
	}

	height := cropBottom - cropTop
	width := cropRight - cropLeft
	pix := make([]float64, 0, height*width*cropChannels)
	for r := cropTop; r < cropBottom; r++ {
		for col := cropLeft; col < cropRight; col++ {
			start := (r*img.Width + col) * channels
			for ch := 0; ch < cropChannels; ch++ {
				pix = append(pix, float64(img.Data[start+ch]))
			}
		}
	}
	return environment.NewFrame(height, width, cropChannels, pix)
}

// toQuaternion converts roll, pitch, and yaw in radians to a
// quaternion
func toQuaternion(roll, pitch, yaw float64) quaternionr {
	cy, sy := math.Cos(yaw*0.5), math.Sin(yaw*0.5)
	cr, sr := math.Cos(roll*0.5), math.Sin(roll*0.5)
	cp, sp := math.Cos(pitch*0.5), math.Sin(pitch*0.5)

	return quaternionr{
		W: cy*cr*cp + sy*sr*sp,
		X: cy*sr*cp - sy*cr*sp,
		Y: cy*cr*sp + sy*sr*cp,
		Z: sy*cr*cp - cy*sr*sp,
	}
}
