package experiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/drivelearn/agent"
	"github.com/samuelfneumann/drivelearn/environment"
	"github.com/samuelfneumann/drivelearn/experiment/tracker"
	"github.com/samuelfneumann/drivelearn/expreplay"
	"github.com/samuelfneumann/drivelearn/utils/clock"
)

// fakeTrainer serves a model whose single weight counts the requests
// it answered
type fakeTrainer struct {
	latest  int
	posts   []int
	postErr error
	epsilon *float64
	onPost  func() // Called before answering each gradient update
}

func (f *fakeTrainer) Latest(context.Context) (agent.Packet, error) {
	f.latest++
	return agent.NewPacket(map[string][]float64{"q/W": {float64(f.latest)}}),
		nil
}

func (f *fakeTrainer) PostGradients(_ context.Context, _ agent.Gradients,
	batchCount int) (agent.Packet, error) {
	f.posts = append(f.posts, batchCount)
	if f.onPost != nil {
		f.onPost()
	}
	if f.postErr != nil {
		return agent.Packet{}, f.postErr
	}
	p := agent.NewPacket(map[string][]float64{"q/W": {-1}})
	if f.epsilon != nil {
		p = p.WithEpsilon(*f.epsilon)
	}
	return p, nil
}

// fakeCheckpointer records the arguments of each checkpoint
type fakeCheckpointer struct {
	calls [][2]int
	err   error
}

func (f *fakeCheckpointer) Checkpoint(numBatchesRun, batchCount int) error {
	f.calls = append(f.calls, [2]int{numBatchesRun, batchCount})
	return f.err
}

// cancelAfter records epochs and cancels the session after n of them
type cancelAfter struct {
	n       int
	cancel  context.CancelFunc
	epochs  []tracker.Epoch
	saveErr error
}

func (c *cancelAfter) Track(e tracker.Epoch) error {
	c.epochs = append(c.epochs, e)
	if len(c.epochs) == c.n {
		c.cancel()
	}
	return nil
}

func (c *cancelAfter) Save() error {
	return c.saveErr
}

type sessionFixture struct {
	model   *fakeModel
	dialer  *fakeDialer
	trainer *fakeTrainer
	check   *fakeCheckpointer
	clock   *clock.Fake
	memory  *expreplay.ReplayMemory
	session *Session
}

// newSessionFixture returns a session whose replay memory holds 4
// steps and whose minibatches hold batchSize samples. Each epoch in
// the first environment lasts 3 steps.
func newSessionFixture(t *testing.T, config SessionConfig,
	batchSize int) *sessionFixture {
	t.Helper()
	memory, err := expreplay.NewReplayMemory(4)
	require.NoError(t, err)
	sampler, err := expreplay.NewSampler(batchSize, 1, zerolog.Nop())
	require.NoError(t, err)

	f := &sessionFixture{
		model:   &fakeModel{},
		dialer:  &fakeDialer{envs: []*fakeEnv{newFakeEnv(3)}},
		trainer: &fakeTrainer{},
		check:   &fakeCheckpointer{},
		clock:   clock.NewFake(time.Unix(0, 0)),
		memory:  memory,
	}
	discoverer := DiscovererFunc(func(context.Context) (Trainer, error) {
		return f.trainer, nil
	})

	f.session, err = NewSession(config, f.model, f.dialer, fixedStarter{},
		straightRoad(), memory, sampler, discoverer, f.check, f.clock,
		zerolog.Nop())
	require.NoError(t, err)
	return f
}

func testSessionConfig(local bool) SessionConfig {
	config := DefaultSessionConfig(
		DefaultEpochConfig(0, testMinEpsilon, testReduction), 1)
	config.Local = local
	config.BatchUpdateFrequency = 5
	return config
}

// run runs the session until n epochs finish
func (f *sessionFixture) run(t *testing.T, n int) (*cancelAfter, error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := &cancelAfter{n: n, cancel: cancel}
	f.session.Register(tr)
	return tr, f.session.Run(ctx)
}

func TestSessionLocal(t *testing.T) {
	f := newSessionFixture(t, testSessionConfig(true), 2)

	tr, err := f.run(t, 4)
	assert.ErrorIs(t, err, context.Canceled)

	// Two bootstrap epochs of 3 steps fill the memory of 4 steps
	require.Len(t, tr.epochs, 4)
	for i, e := range tr.epochs {
		assert.Equal(t, i+1, e.Number)
		assert.Equal(t, i < 2, e.Bootstrap, "epoch %d", i+1)
		assert.Equal(t, 3, e.Trajectory.Len())
		assert.Equal(t, Stopped.String(), e.Reason)
	}
	assert.Equal(t, 4, f.memory.Len())

	require.Len(t, f.model.trained, 2)
	for _, batches := range f.model.trained {
		require.Len(t, batches, 3)
		for _, b := range batches {
			assert.Equal(t, 2, b.Len())
		}
	}
	assert.Empty(t, f.model.computed)

	// 6 batches run is more than the frequency of 5
	assert.Equal(t, 1, f.model.targetSyncs)
	assert.Equal(t, [][2]int{{6, 3}}, f.check.calls)
	state := f.session.State()
	assert.Equal(t, 6, state.NumBatchesRun)
	assert.Equal(t, 6, state.LastCheckpointBatchCount)
	assert.InDelta(t, 0.8, state.Epsilon, 1e-12)

	assert.Zero(t, f.trainer.latest)
	assert.Equal(t, 4, f.session.Epochs())
	assert.True(t, f.dialer.envs[0].closed)
}

func TestSessionLocalCheckpointFailure(t *testing.T) {
	f := newSessionFixture(t, testSessionConfig(true), 2)
	f.check.err = errors.New("disk full")

	_, err := f.run(t, 4)
	assert.ErrorIs(t, err, context.Canceled)

	require.Len(t, f.check.calls, 1)
	assert.Equal(t, 6, f.session.State().LastCheckpointBatchCount)
}

func TestSessionRemote(t *testing.T) {
	f := newSessionFixture(t, testSessionConfig(false), 2)
	epsilon := 0.3
	f.trainer.epsilon = &epsilon

	_, err := f.run(t, 4)
	assert.ErrorIs(t, err, context.Canceled)

	// The latest model is fetched before and after bootstrapping
	assert.Equal(t, 2, f.trainer.latest)
	assert.Equal(t, []int{3, 3}, f.trainer.posts)
	require.Len(t, f.model.computed, 2)
	assert.Empty(t, f.model.trained)

	require.Len(t, f.model.applied, 4)
	assert.Equal(t, []float64{1}, f.model.applied[0].Weights["q/W"])
	assert.Equal(t, []float64{2}, f.model.applied[1].Weights["q/W"])
	assert.Equal(t, []float64{-1}, f.model.applied[3].Weights["q/W"])

	state := f.session.State()
	assert.Equal(t, 0.3, state.Epsilon)
	assert.Equal(t, 6, state.NumBatchesRun)
	assert.Empty(t, f.check.calls)
}

func TestSessionRemotePublishFailure(t *testing.T) {
	f := newSessionFixture(t, testSessionConfig(false), 2)
	epsilon := 0.3
	f.trainer.epsilon = &epsilon
	f.trainer.postErr = errors.New("trainer down")

	_, err := f.run(t, 4)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Len(t, f.trainer.posts, 2)
	assert.Len(t, f.model.applied, 2)

	// Epsilon decays locally when the trainer does not answer
	assert.InDelta(t, 0.8, f.session.State().Epsilon, 1e-12)

	backoffs := 0
	for _, d := range f.clock.Sleeps() {
		if d == DefaultTrainerBackoff {
			backoffs++
		}
	}
	// The wait after the last publish is cut short by the cancellation
	assert.Equal(t, 1, backoffs)
}

func TestSessionCancelledDuringTrainerBackoff(t *testing.T) {
	f := newSessionFixture(t, testSessionConfig(false), 2)
	f.trainer.postErr = errors.New("trainer down")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.trainer.onPost = cancel
	tr := &cancelAfter{n: -1}
	f.session.Register(tr)

	err := f.session.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// The session stops right after the first failed publish
	assert.Len(t, f.trainer.posts, 1)
	assert.Len(t, tr.epochs, 3)
	for _, d := range f.clock.Sleeps() {
		assert.NotEqual(t, DefaultTrainerBackoff, d)
	}
}

func TestSessionInsufficientSamples(t *testing.T) {
	f := newSessionFixture(t, testSessionConfig(true), 8)

	_, err := f.run(t, 4)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, f.model.trained)
	assert.Equal(t, 6, f.session.State().NumBatchesRun)
	assert.Empty(t, f.check.calls)
}

func TestSessionReconnects(t *testing.T) {
	f := newSessionFixture(t, testSessionConfig(true), 2)
	bad := newFakeEnv(3)
	bad.failMethod = "Observation"
	good := newFakeEnv(3)
	f.dialer.envs = []*fakeEnv{bad, good}
	f.dialer.fails = 12

	tr, err := f.run(t, 2)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 14, f.dialer.dials)
	assert.True(t, bad.closed)
	assert.True(t, good.closed)
	assert.Equal(t, 1, bad.count("ApplyControl"))
	require.Len(t, tr.epochs, 2)

	retries := 0
	for _, d := range f.clock.Sleeps() {
		if d == DefaultReconnectInterval {
			retries++
		}
	}
	assert.Equal(t, 12, retries)
}

func TestSessionDiscoveryFailure(t *testing.T) {
	memory, err := expreplay.NewReplayMemory(4)
	require.NoError(t, err)
	sampler, err := expreplay.NewSampler(2, 1, zerolog.Nop())
	require.NoError(t, err)
	dialer := &fakeDialer{envs: []*fakeEnv{newFakeEnv(3)}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	discoverer := DiscovererFunc(func(ctx context.Context) (Trainer, error) {
		return nil, ctx.Err()
	})

	s, err := NewSession(testSessionConfig(false), &fakeModel{}, dialer,
		fixedStarter{}, straightRoad(), memory, sampler, discoverer, nil,
		clock.NewFake(time.Time{}), zerolog.Nop())
	require.NoError(t, err)

	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Zero(t, dialer.dials)
}

func TestSessionCancelledWhileDialing(t *testing.T) {
	f := newSessionFixture(t, testSessionConfig(true), 2)
	f.dialer.fails = 1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.session.Run(ctx), context.Canceled)
	assert.Equal(t, 1, f.dialer.dials)
}

func TestSessionSave(t *testing.T) {
	f := newSessionFixture(t, testSessionConfig(true), 2)
	f.session.Register(&cancelAfter{})
	assert.NoError(t, f.session.Save())

	f.session.Register(&cancelAfter{saveErr: errors.New("no space")})
	assert.Error(t, f.session.Save())
}

func TestNewSessionInvalid(t *testing.T) {
	memory, err := expreplay.NewReplayMemory(4)
	require.NoError(t, err)
	sampler, err := expreplay.NewSampler(2, 1, zerolog.Nop())
	require.NoError(t, err)
	c := clock.NewFake(time.Time{})
	dialer := environment.DialerFunc(func(context.Context) (
		environment.Environment, error) {
		return newFakeEnv(1), nil
	})

	// Local sessions need a checkpointer
	_, err = NewSession(testSessionConfig(true), &fakeModel{}, dialer,
		fixedStarter{}, straightRoad(), memory, sampler, nil, nil, c,
		zerolog.Nop())
	assert.Error(t, err)

	// Remote sessions need a discoverer
	_, err = NewSession(testSessionConfig(false), &fakeModel{}, dialer,
		fixedStarter{}, straightRoad(), memory, sampler, nil,
		&fakeCheckpointer{}, c, zerolog.Nop())
	assert.Error(t, err)

	config := testSessionConfig(true)
	config.BatchUpdateFrequency = 0
	_, err = NewSession(config, &fakeModel{}, dialer, fixedStarter{},
		straightRoad(), memory, sampler, nil, &fakeCheckpointer{}, c,
		zerolog.Nop())
	assert.Error(t, err)
}
