package experiment

import (
	"context"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/drivelearn/agent"
	"github.com/samuelfneumann/drivelearn/environment"
	"github.com/samuelfneumann/drivelearn/environment/road"
	"github.com/samuelfneumann/drivelearn/expreplay"
)

// fakeEnv drives at a constant speed along the x axis for a number of
// actions and then stops
type fakeEnv struct {
	mu sync.Mutex

	drive     int // Actions taken before the vehicle stops
	collideAt int // Actions taken before the vehicle collides, 0 never

	// failMethod fails with a transport error on call failAfter+1 of
	// the method
	failMethod string
	failAfter  int

	actions  int
	calls    map[string]int
	controls []environment.Control
	poses    []environment.Pose
	closed   bool
}

func newFakeEnv(drive int) *fakeEnv {
	return &fakeEnv{drive: drive, calls: make(map[string]int)}
}

func (f *fakeEnv) call(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	if method == f.failMethod && f.calls[method] > f.failAfter {
		return environment.NewTransportError(method,
			fmt.Errorf("connection reset"))
	}
	return nil
}

func (f *fakeEnv) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// Reset puts the vehicle back at the start, so that it drives again
func (f *fakeEnv) Reset() error {
	if err := f.call("Reset"); err != nil {
		return err
	}
	f.actions = 0
	return nil
}

func (f *fakeEnv) ApplyControl(c environment.Control) error {
	if err := f.call("ApplyControl"); err != nil {
		return err
	}
	f.controls = append(f.controls, c)
	if c != environment.Brake {
		f.actions++
	}
	return nil
}

func (f *fakeEnv) VehicleState() (environment.VehicleState, error) {
	if err := f.call("VehicleState"); err != nil {
		return environment.VehicleState{}, err
	}
	speed := 5.0
	if f.actions >= f.drive {
		speed = 0
	}
	return environment.VehicleState{
		Speed:    speed,
		Position: r3.Vec{X: float64(f.actions) * 0.01},
	}, nil
}

func (f *fakeEnv) CollisionInfo() (environment.CollisionInfo, error) {
	if err := f.call("CollisionInfo"); err != nil {
		return environment.CollisionInfo{}, err
	}
	collided := f.collideAt > 0 && f.actions >= f.collideAt
	return environment.CollisionInfo{HasCollided: collided}, nil
}

// Observation returns a 1x1 frame holding the number of observations
// made so far
func (f *fakeEnv) Observation() (environment.Frame, error) {
	if err := f.call("Observation"); err != nil {
		return environment.Frame{}, err
	}
	n := float64(f.count("Observation"))
	return environment.Frame{Height: 1, Width: 1, Channels: 1,
		Pix: []float64{n}}, nil
}

func (f *fakeEnv) SetPose(p environment.Pose) error {
	if err := f.call("SetPose"); err != nil {
		return err
	}
	f.poses = append(f.poses, p)
	return nil
}

func (f *fakeEnv) Close() error {
	f.closed = true
	return nil
}

// fakeDialer dials the next environment in a list, failing fails times
// first
type fakeDialer struct {
	envs  []*fakeEnv
	fails int
	dials int
}

func (d *fakeDialer) Dial(context.Context) (environment.Environment, error) {
	d.dials++
	if d.fails > 0 {
		d.fails--
		return nil, environment.NewTransportError("dial",
			fmt.Errorf("connection refused"))
	}
	if len(d.envs) == 0 {
		return nil, fmt.Errorf("no environments left")
	}
	env := d.envs[0]
	if len(d.envs) > 1 {
		d.envs = d.envs[1:]
	}
	return env, nil
}

// fakeModel always explores with action 1 and exploits with action 2
type fakeModel struct {
	predictions int
	computed    [][]expreplay.Minibatch
	trained     [][]expreplay.Minibatch
	applied     []agent.Packet
	targetSyncs int
}

func (m *fakeModel) PredictBestState(environment.Stack) (int, float64, error) {
	m.predictions++
	return 2, 0.5, nil
}

func (m *fakeModel) SampleRandomState() int {
	return 1
}

func (m *fakeModel) DecodeStateToControl(action int,
	state environment.VehicleState) environment.Control {
	return environment.Control{Steering: float64(action), Throttle: 1}
}

func (m *fakeModel) ComputeGradients(b []expreplay.Minibatch) (agent.Gradients,
	error) {
	m.computed = append(m.computed, b)
	return agent.Gradients{"q/W": {float64(len(b))}}, nil
}

func (m *fakeModel) Train(b []expreplay.Minibatch) (agent.Gradients, error) {
	m.trained = append(m.trained, b)
	return agent.Gradients{"q/W": {float64(len(b))}}, nil
}

func (m *fakeModel) ApplyWeights(p agent.Packet) error {
	m.applied = append(m.applied, p)
	return nil
}

func (m *fakeModel) SerializeWeights(includeTarget bool) (agent.Packet, error) {
	w := map[string][]float64{"q/W": {1}}
	if includeTarget {
		w["target/q/W"] = []float64{2}
	}
	return agent.NewPacket(w), nil
}

func (m *fakeModel) UpdateCriticFromTarget() error {
	m.targetSyncs++
	return nil
}

// fixedStarter always starts at the same pose
type fixedStarter struct {
	pose environment.Pose
}

func (f fixedStarter) Start() environment.Pose {
	return f.pose
}

// straightRoad returns a task whose only reward line is the x axis
func straightRoad() *road.Task {
	return road.NewTask([]road.Segment{{
		A: r3.Vec{X: -100},
		B: r3.Vec{X: 100},
	}})
}
