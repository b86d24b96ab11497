package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/samuelfneumann/drivelearn/agent"
	"github.com/samuelfneumann/drivelearn/environment"
	"github.com/samuelfneumann/drivelearn/experiment/checkpointer"
	"github.com/samuelfneumann/drivelearn/experiment/tracker"
	"github.com/samuelfneumann/drivelearn/expreplay"
	"github.com/samuelfneumann/drivelearn/utils/clock"
)

// Default waits of a Session
const (
	DefaultReconnectInterval = 10 * time.Second
	DefaultReconnectWarn     = 10
	DefaultTrainerBackoff    = 5 * time.Second
)

// Trainer is a remote trainer which aggregates gradients from agents
// and serves the latest model
type Trainer interface {
	Latest(ctx context.Context) (agent.Packet, error)
	PostGradients(ctx context.Context, grads agent.Gradients,
		batchCount int) (agent.Packet, error)
}

// Discoverer finds a Trainer
type Discoverer interface {
	Discover(ctx context.Context) (Trainer, error)
}

// DiscovererFunc adapts a function to a Discoverer
type DiscovererFunc func(ctx context.Context) (Trainer, error)

// Discover implements the Discoverer interface
func (f DiscovererFunc) Discover(ctx context.Context) (Trainer, error) {
	return f(ctx)
}

// SessionConfig configures a Session
type SessionConfig struct {
	Epoch EpochConfig
	Seed  uint64

	// Local sessions train their own model and checkpoint it every
	// BatchUpdateFrequency minibatches. Remote sessions send their
	// gradients to a Trainer.
	Local                bool
	BatchUpdateFrequency int

	// PrioritizedSampling draws minibatches weighted by surprise
	// rather than uniformly
	PrioritizedSampling bool

	ReconnectInterval time.Duration // Wait between failed dials
	ReconnectWarn     int           // Warn every ReconnectWarn failed dials
	TrainerBackoff    time.Duration // Wait after a failed trainer request
}

// DefaultSessionConfig returns a SessionConfig with the default waits
func DefaultSessionConfig(epoch EpochConfig, seed uint64) SessionConfig {
	return SessionConfig{
		Epoch:             epoch,
		Seed:              seed,
		ReconnectInterval: DefaultReconnectInterval,
		ReconnectWarn:     DefaultReconnectWarn,
		TrainerBackoff:    DefaultTrainerBackoff,
	}
}

// Session collects experience in a simulator indefinitely, training a
// model on minibatches sampled from the replay memory after every
// epoch. The model is either trained locally or its gradients are sent
// to a remote Trainer which returns the updated model.
//
// A Session first fills its replay memory with bootstrap epochs, in
// which every action is random, before training.
type Session struct {
	config       SessionConfig
	model        agent.Model
	dialer       environment.Dialer
	starter      Starter
	task         Task
	memory       *expreplay.ReplayMemory
	sampler      *expreplay.Sampler
	discoverer   Discoverer
	checkpointer checkpointer.Checkpointer
	clock        clock.Clock
	logger       zerolog.Logger

	trainer  Trainer
	env      environment.Environment
	driver   *EpochDriver
	state    *SessionState
	epochs   int
	trackers []tracker.Tracker
}

// NewSession returns a new Session. Remote sessions need a discoverer
// and local sessions a checkpointer, the other may be nil.
func NewSession(config SessionConfig, model agent.Model,
	dialer environment.Dialer, starter Starter, task Task,
	memory *expreplay.ReplayMemory, sampler *expreplay.Sampler,
	discoverer Discoverer, check checkpointer.Checkpointer, c clock.Clock,
	logger zerolog.Logger) (*Session, error) {
	if config.Local && check == nil {
		return nil, fmt.Errorf("newSession: local sessions need a " +
			"checkpointer")
	}
	if !config.Local && discoverer == nil {
		return nil, fmt.Errorf("newSession: remote sessions need a " +
			"trainer discoverer")
	}
	if config.Local && config.BatchUpdateFrequency <= 0 {
		return nil, fmt.Errorf("newSession: batch update frequency must "+
			"be > 0 but got %v", config.BatchUpdateFrequency)
	}
	if config.ReconnectWarn <= 0 {
		config.ReconnectWarn = DefaultReconnectWarn
	}

	return &Session{
		config:       config,
		model:        model,
		dialer:       dialer,
		starter:      starter,
		task:         task,
		memory:       memory,
		sampler:      sampler,
		discoverer:   discoverer,
		checkpointer: check,
		clock:        c,
		logger:       logger.With().Str("component", "session").Logger(),
		state:        NewSessionState(),
	}, nil
}

// Register adds a tracker.Tracker to the Session
func (s *Session) Register(t tracker.Tracker) {
	s.trackers = append(s.trackers, t)
}

// State returns the state of the session
func (s *Session) State() SessionState {
	return *s.state
}

// Epochs returns the number of epochs completed
func (s *Session) Epochs() int {
	return s.epochs
}

// Run runs the session until ctx is done, returning the context's
// error. Any other error is returned only if the session could not
// be started.
func (s *Session) Run(ctx context.Context) error {
	defer s.closeEnv()

	if !s.config.Local {
		trainer, err := s.discoverer.Discover(ctx)
		if err != nil {
			return fmt.Errorf("run: could not find trainer: %w", err)
		}
		s.trainer = trainer
		if err := s.refresh(ctx); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}

	env, err := s.reconnect(ctx)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	s.driver, err = NewEpochDriver(env, s.model, s.starter, s.task, s.memory,
		s.clock, s.config.Seed, s.config.Epoch, s.logger)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	s.logger.Info().Int("capacity", s.memory.Capacity()).
		Msg("filling replay memory")
	for s.memory.Fullness() < 1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, _, err := s.runEpoch(ctx, true); err != nil {
			return err
		}
	}

	if !s.config.Local {
		if err := s.refresh(ctx); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}

	s.logger.Info().Msg("replay memory full, training")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, ok, err := s.runEpoch(ctx, false)
		if err != nil {
			return err
		}
		if ok && result.FrameCount > 0 {
			if err := s.train(ctx, result.FrameCount); err != nil {
				return err
			}
		}
	}
}

// Save saves the data of all registered trackers
func (s *Session) Save() error {
	var errs []error
	for _, t := range s.trackers {
		if err := t.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// runEpoch runs a single epoch and tracks it. If the epoch could not
// finish, ok is false. The only errors returned are those of ctx.
func (s *Session) runEpoch(ctx context.Context,
	bootstrap bool) (result EpochResult, ok bool, err error) {
	result, err = s.driver.Run(s.state, bootstrap)
	if err != nil {
		if environment.IsTransport(err) {
			s.closeEnv()
			env, err := s.reconnect(ctx)
			if err != nil {
				return EpochResult{}, false, err
			}
			s.driver.SetEnvironment(env)
			return EpochResult{}, false, nil
		}

		s.logger.Error().Err(err).Msg("epoch failed")
		return EpochResult{}, false, clock.Wait(ctx, s.clock,
			s.config.TrainerBackoff)
	}

	s.epochs++
	s.track(result)
	return result, true, nil
}

// train samples frameCount minibatches from the replay memory and
// learns from them, either locally or through the trainer. The only
// errors returned are those of ctx.
func (s *Session) train(ctx context.Context, frameCount int) error {
	batches, err := s.sampler.Sample(s.memory, frameCount,
		!s.config.PrioritizedSampling)
	s.state.AddBatches(frameCount)
	if err != nil {
		if expreplay.IsInsufficientSamples(err) {
			s.logger.Warn().Err(err).Msg("skipping training")
		} else {
			s.logger.Error().Err(err).Msg("could not sample minibatches")
		}
		return nil
	}

	if s.config.Local {
		s.trainLocal(batches, frameCount)
		return nil
	}
	return s.trainRemote(ctx, batches, frameCount)
}

// trainRemote sends the gradients of batches to the trainer and uses
// the model it returns. If the trainer does not answer, the trainer
// backoff is waited out before returning.
func (s *Session) trainRemote(ctx context.Context,
	batches []expreplay.Minibatch, frameCount int) error {
	grads, err := s.model.ComputeGradients(batches)
	if err != nil {
		s.logger.Error().Err(err).Msg("could not compute gradients")
		return nil
	}

	packet, err := s.trainer.PostGradients(ctx, grads, frameCount)
	if err != nil {
		s.logger.Warn().Err(err).Strs("gradients", grads.Names()).
			Msg("could not publish gradients")
		return clock.Wait(ctx, s.clock, s.config.TrainerBackoff)
	}

	if err := s.model.ApplyWeights(packet); err != nil {
		s.logger.Error().Err(err).Msg("could not apply trainer weights")
		return nil
	}
	if packet.Epsilon != nil {
		s.state.Override(*packet.Epsilon)
	}
	s.logger.Debug().Int("batches", s.state.NumBatchesRun).
		Float64("epsilon", s.state.Epsilon).Msg("applied trainer weights")
	return nil
}

// trainLocal trains the model on batches, checkpointing it if enough
// minibatches were sampled since the last checkpoint
func (s *Session) trainLocal(batches []expreplay.Minibatch, frameCount int) {
	if _, err := s.model.Train(batches); err != nil {
		s.logger.Error().Err(err).Msg("could not train")
		return
	}

	if !s.state.CheckpointDue(s.config.BatchUpdateFrequency) {
		return
	}
	if err := s.model.UpdateCriticFromTarget(); err != nil {
		s.logger.Error().Err(err).Msg("could not update target network")
	}
	err := s.checkpointer.Checkpoint(s.state.NumBatchesRun, frameCount)
	if err != nil {
		s.logger.Error().Err(err).Msg("checkpoint failed")
	} else {
		s.logger.Info().Int("batches", s.state.NumBatchesRun).
			Msg("checkpoint saved")
	}
	s.state.MarkCheckpoint()
}

// refresh replaces the model's weights with the trainer's latest,
// retrying until the trainer answers or ctx is done
func (s *Session) refresh(ctx context.Context) error {
	for {
		packet, err := s.trainer.Latest(ctx)
		if err == nil {
			if err := s.model.ApplyWeights(packet); err != nil {
				return fmt.Errorf("refresh: %w", err)
			}
			return nil
		}

		s.logger.Warn().Err(err).Msg("could not fetch latest model")
		if err := clock.Wait(ctx, s.clock, s.config.TrainerBackoff); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
	}
}

// reconnect dials the simulator until a connection is made or ctx is
// done
func (s *Session) reconnect(ctx context.Context) (environment.Environment,
	error) {
	for failures := 0; ; {
		env, err := s.dialer.Dial(ctx)
		if err == nil {
			s.env = env
			s.logger.Info().Int("failures", failures).
				Msg("connected to simulator")
			return env, nil
		}

		failures++
		if failures%s.config.ReconnectWarn == 0 {
			s.logger.Warn().Err(err).Int("failures", failures).
				Msg("still cannot connect to simulator")
		} else {
			s.logger.Debug().Err(err).Msg("could not connect to simulator")
		}

		if err := clock.Wait(ctx, s.clock, s.config.ReconnectInterval); err != nil {
			return nil, fmt.Errorf("reconnect: %w", err)
		}
	}
}

// closeEnv closes the current connection to the simulator, if any
func (s *Session) closeEnv() {
	if s.env == nil {
		return
	}
	if err := s.env.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("could not close simulator connection")
	}
	s.env = nil
}

// track sends a finished epoch to every registered tracker
func (s *Session) track(result EpochResult) {
	epoch := tracker.Epoch{
		Number:     s.epochs,
		Trajectory: result.Trajectory,
		NumRandom:  result.NumRandom,
		Reason:     result.Reason.String(),
		Bootstrap:  result.Bootstrap,
		Epsilon:    result.Epsilon,
		Duration:   result.Duration,
	}
	for _, t := range s.trackers {
		if err := t.Track(epoch); err != nil {
			s.logger.Error().Err(err).Msg("could not track epoch")
		}
	}
}
