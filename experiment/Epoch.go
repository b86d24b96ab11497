package experiment

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/drivelearn/agent"
	"github.com/samuelfneumann/drivelearn/environment"
	"github.com/samuelfneumann/drivelearn/environment/road"
	"github.com/samuelfneumann/drivelearn/expreplay"
	"github.com/samuelfneumann/drivelearn/timestep"
	"github.com/samuelfneumann/drivelearn/utils/clock"
	"github.com/samuelfneumann/drivelearn/utils/ringbuffer"
)

// Starter samples starting poses of the vehicle
type Starter interface {
	Start() environment.Pose
}

// Task computes the reward of the vehicle's state and whether the state
// is far enough off the road to end the epoch
type Task interface {
	Reward(environment.CollisionInfo, environment.VehicleState) (float64, bool)
}

// EpochConfig configures the timing of an epoch and the decay of
// epsilon
type EpochConfig struct {
	SettleTime time.Duration // Wait after resetting the vehicle
	WarmupTime time.Duration // Time spent filling the frame buffer
	Tick       time.Duration // Time between actions
	Frames     int           // Frames in each state

	// MaxRuntime limits the time spent collecting. 0 means no limit.
	MaxRuntime time.Duration

	MinEpsilon       float64
	EpsilonReduction float64
}

// DefaultEpochConfig returns an EpochConfig with the default timing
func DefaultEpochConfig(maxRuntime time.Duration, minEpsilon,
	reduction float64) EpochConfig {
	return EpochConfig{
		SettleTime:       2 * time.Second,
		WarmupTime:       2 * time.Second,
		Tick:             10 * time.Millisecond,
		Frames:           4,
		MaxRuntime:       maxRuntime,
		MinEpsilon:       minEpsilon,
		EpsilonReduction: reduction,
	}
}

// EpochResult is the outcome of an epoch
type EpochResult struct {
	Trajectory *timestep.Trajectory
	FrameCount int
	NumRandom  int
	Reason     Reason

	Bootstrap bool    // Whether every action was random
	Epsilon   float64 // Epsilon at the end of the epoch
	Duration  time.Duration
}

// EpochDriver runs epochs in an environment. Each epoch moves through
// the phases Resetting, Warmup, Collecting, and Terminated. If the
// environment fails the driver moves to Reconnecting and the epoch is
// abandoned.
type EpochDriver struct {
	env     environment.Environment
	model   agent.Policy
	starter Starter
	task    Task
	memory  *expreplay.ReplayMemory
	clock   clock.Clock
	rng     *rand.Rand
	config  EpochConfig
	logger  zerolog.Logger

	phase  Phase
	frames *ringbuffer.RingBuffer[environment.Frame]
}

// NewEpochDriver returns a new EpochDriver which stores the steps of
// each epoch in memory
func NewEpochDriver(env environment.Environment, model agent.Policy,
	starter Starter, task Task, memory *expreplay.ReplayMemory,
	c clock.Clock, seed uint64, config EpochConfig,
	logger zerolog.Logger) (*EpochDriver, error) {
	if config.Tick <= 0 {
		return nil, fmt.Errorf("newEpochDriver: tick must be > 0")
	}
	frames, err := ringbuffer.New[environment.Frame](config.Frames)
	if err != nil {
		return nil, fmt.Errorf("newEpochDriver: %w", err)
	}

	return &EpochDriver{
		env:     env,
		model:   model,
		starter: starter,
		task:    task,
		memory:  memory,
		clock:   c,
		rng:     rand.New(rand.NewSource(seed)),
		config:  config,
		logger:  logger.With().Str("component", "epoch").Logger(),
		phase:   Terminated,
		frames:  frames,
	}, nil
}

// Phase returns the phase the driver is in
func (d *EpochDriver) Phase() Phase {
	return d.phase
}

// SetEnvironment replaces the environment, for example after
// reconnecting
func (d *EpochDriver) SetEnvironment(env environment.Environment) {
	d.env = env
}

// collection holds the data of an epoch in progress
type collection struct {
	trajectory *timestep.Trajectory
	state      environment.VehicleState
	farOff     bool
	numRandom  int
	start      time.Time
	reason     Reason
}

// Run runs a single epoch. If bootstrap is true every action is random
// and epsilon is not decayed. The steps of the epoch are appended to
// the replay memory.
//
// Any environment error is returned as an *environment.TransportError
// with the driver left in the Reconnecting phase. The replay memory
// and state are not modified in that case.
func (d *EpochDriver) Run(state *SessionState, bootstrap bool) (EpochResult,
	error) {
	c := &collection{trajectory: timestep.NewTrajectory()}
	began := d.clock.Now()

	d.phase = Resetting
	for {
		var err error
		switch d.phase {
		case Resetting:
			err = d.reset()
		case Warmup:
			err = d.warmup(c)
		case Collecting:
			err = d.collect(c, state, bootstrap)
		case Terminated:
			return d.terminate(c, state, bootstrap, d.clock.Since(began)), nil
		default:
			return EpochResult{}, fmt.Errorf("run: cannot run from phase %v",
				d.phase)
		}

		if err != nil {
			if environment.IsTransport(err) {
				d.logger.Warn().Err(err).Msg("environment failed")
				d.phase = Reconnecting
			} else {
				d.phase = Terminated
			}
			return EpochResult{}, fmt.Errorf("run: %w", err)
		}
	}
}

// reset brakes the vehicle and places it at a new starting pose
func (d *EpochDriver) reset() error {
	if err := d.env.ApplyControl(environment.Brake); err != nil {
		return err
	}

	pose := d.starter.Start()
	if err := d.env.Reset(); err != nil {
		return err
	}
	if poser, ok := d.env.(environment.Poser); ok {
		if err := poser.SetPose(pose); err != nil {
			return err
		}
	}
	d.clock.Sleep(d.config.SettleTime)

	d.frames.Clear()
	d.phase = Warmup
	return nil
}

// warmup fills the frame buffer while the vehicle rolls. It lasts at
// least WarmupTime and until the buffer is full.
func (d *EpochDriver) warmup(c *collection) error {
	start := d.clock.Now()
	for d.clock.Since(start) < d.config.WarmupTime || !d.frames.Full() {
		d.clock.Sleep(d.config.Tick)
		if err := d.observe(); err != nil {
			return err
		}
	}

	state, err := d.env.VehicleState()
	if err != nil {
		return err
	}
	c.state = state
	c.start = d.clock.Now()
	d.phase = Collecting
	return nil
}

// collect takes a single step in the environment, or ends the epoch
// if a terminal condition holds
func (d *EpochDriver) collect(c *collection, state *SessionState,
	bootstrap bool) error {
	collision, err := d.env.CollisionInfo()
	if err != nil {
		return err
	}

	if c.reason = d.terminal(c, collision); c.reason != NotEnded {
		if err := d.env.Reset(); err != nil {
			return err
		}
		d.phase = Terminated
		return nil
	}

	pre := environment.Stack(d.frames.Snapshot())
	var action int
	var predicted float64
	if bootstrap || d.rng.Float64() < state.Epsilon {
		action = d.model.SampleRandomState()
		c.numRandom++
	} else {
		action, predicted, err = d.model.PredictBestState(pre)
		if err != nil {
			return fmt.Errorf("collect: could not predict action: %w", err)
		}
	}

	current, err := d.env.VehicleState()
	if err != nil {
		return err
	}
	control := d.model.DecodeStateToControl(action, current)
	if err := d.env.ApplyControl(control); err != nil {
		return err
	}
	d.clock.Sleep(d.config.Tick)

	if err := d.observe(); err != nil {
		return err
	}
	if c.state, err = d.env.VehicleState(); err != nil {
		return err
	}
	if collision, err = d.env.CollisionInfo(); err != nil {
		return err
	}

	var reward float64
	reward, c.farOff = d.task.Reward(collision, c.state)

	c.trajectory.Append(timestep.Step{
		PreState:        pre,
		PostState:       environment.Stack(d.frames.Snapshot()),
		Action:          action,
		Reward:          reward,
		PredictedReward: predicted,
		Position:        c.state.Position,
	})
	return nil
}

// terminal returns why the epoch should end, or NotEnded
func (d *EpochDriver) terminal(c *collection,
	collision environment.CollisionInfo) Reason {
	switch {
	case collision.HasCollided:
		return Collided
	case c.state.Speed < road.MinSpeed:
		return Stopped
	case c.farOff:
		return FarOff
	case d.config.MaxRuntime > 0 && d.clock.Since(c.start) > d.config.MaxRuntime:
		return TimedOut
	}
	return NotEnded
}

// terminate stores the epoch's trajectory and decays epsilon
func (d *EpochDriver) terminate(c *collection, state *SessionState,
	bootstrap bool, duration time.Duration) EpochResult {
	c.trajectory.Finalize()

	frameCount := c.trajectory.Len()
	if frameCount > 0 {
		d.memory.AppendTrajectory(c.trajectory)
	}
	// Empty epochs still count towards the exploration schedule
	if !bootstrap {
		state.Decay(d.config.EpsilonReduction, d.config.MinEpsilon)
	}

	d.logger.Info().
		Int("frames", frameCount).
		Int("random", c.numRandom).
		Stringer("reason", c.reason).
		Bool("bootstrap", bootstrap).
		Float64("epsilon", state.Epsilon).
		Float64("fullness", d.memory.Fullness()).
		Msg("epoch ended")

	return EpochResult{
		Trajectory: c.trajectory,
		FrameCount: frameCount,
		NumRandom:  c.numRandom,
		Reason:     c.reason,
		Bootstrap:  bootstrap,
		Epsilon:    state.Epsilon,
		Duration:   duration,
	}
}

// observe pushes the latest camera frame into the frame buffer
func (d *EpochDriver) observe() error {
	frame, err := d.env.Observation()
	if err != nil {
		return err
	}
	d.frames.Push(frame)
	return nil
}
