// Package critic implements a local action value model of the driving
// task. The model scores each discrete steering action from a stack of
// camera frames and learns with Q-learning against a target network.
package critic

import (
	"fmt"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/drivelearn/agent"
	"github.com/samuelfneumann/drivelearn/environment"
	"github.com/samuelfneumann/drivelearn/expreplay"
	"github.com/samuelfneumann/drivelearn/network"
	"github.com/samuelfneumann/drivelearn/utils/floatutils"
)

// Layer names of the critic network
const (
	FeatureLayer = "features"
	QLayer       = "q"
)

// TargetPrefix prefixes the names of target network weights in a
// Packet
const TargetPrefix = "target/"

// Critic implements the agent.Model interface with a two layer
// network. The feature layer is only trained if the Config says so.
type Critic struct {
	config     Config
	featurizer Featurizer

	// Network which learns the weights on batches of inputs
	net    *network.MLP
	vm     G.VM
	solver G.Solver

	learnables G.Nodes
	model      []G.ValueGrad

	selectedActions *G.Node // One-hot actions taken at the previous states
	targets         *G.Node // r + γ * max[Q(s', a')]
	cost            *G.Node

	// Weights of the network which provides the update target
	target map[string][]float64

	rng *rand.Rand
}

// New creates and returns a new Critic
func New(config Config, seed uint64) (*Critic, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	featurizer := Featurizer{
		Frames: config.Frames,
		Rows:   config.PoolRows,
		Cols:   config.PoolCols,
	}
	batchSize := config.BatchSize
	numActions := config.Actions()

	g := G.NewGraph()
	net, err := network.NewMLP(
		g,
		batchSize,
		featurizer.Len(),
		[]string{FeatureLayer, QLayer},
		[]int{config.Hidden, numActions},
		[]*network.Activation{network.ReLU(), network.Identity()},
		config.InitWFn.Seeded(seed),
	)
	if err != nil {
		return nil, fmt.Errorf("new: could not create network: %w", err)
	}

	targets := G.NewVector(g, tensor.Float64, G.WithShape(batchSize),
		G.WithName("targets"), G.WithInit(G.Zeroes()))
	selectedActions := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batchSize, numActions), G.WithName("actionSelected"),
		G.WithInit(G.Zeroes()))

	// Value of the action taken in each state
	selectedActionsValue := G.Must(G.HadamardProd(net.Prediction(),
		selectedActions))
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	// Compute the Mean Squarred TD error
	losses := G.Must(G.Sub(targets, selectedActionsValue))
	losses = G.Must(G.Square(losses))
	cost := G.Must(G.Mean(losses))

	var learnables G.Nodes
	if config.TrainFeatures {
		learnables = net.Learnables()
	} else {
		learnables = net.Learnables(QLayer)
	}
	if _, err := G.Grad(cost, learnables...); err != nil {
		return nil, fmt.Errorf("new: could not compute gradient: %w", err)
	}

	model := make([]G.ValueGrad, len(learnables))
	for i, n := range learnables {
		model[i] = n
	}

	vm := G.NewTapeMachine(g, G.BindDualValues(learnables...))

	return &Critic{
		config:          config,
		featurizer:      featurizer,
		net:             net,
		vm:              vm,
		solver:          config.Solver,
		learnables:      learnables,
		model:           model,
		selectedActions: selectedActions,
		targets:         targets,
		cost:            cost,
		target:          net.Weights(),
		rng:             rand.New(rand.NewSource(seed)),
	}, nil
}

// Close releases the resources held by the Critic's VM
func (c *Critic) Close() error {
	return c.vm.Close()
}

// PredictBestState implements the agent.Policy interface
func (c *Critic) PredictBestState(stack environment.Stack) (int, float64,
	error) {
	x := mat.NewDense(1, c.featurizer.Len(), c.featurizer.Featurize(stack))
	q, err := c.net.Forward(c.net.Weights(), x)
	if err != nil {
		return 0, 0, fmt.Errorf("predictBestState: %w", err)
	}

	action, value := floatutils.Argmax(q.RawRowView(0))
	return action, value, nil
}

// SampleRandomState implements the agent.Policy interface
func (c *Critic) SampleRandomState() int {
	return c.rng.Intn(c.config.Actions())
}

// DecodeStateToControl implements the agent.Policy interface. The
// vehicle is given full throttle below the configured speed and coasts
// otherwise.
func (c *Critic) DecodeStateToControl(action int,
	state environment.VehicleState) environment.Control {
	throttle := 0.0
	if state.Speed < c.config.ThrottleSpeed {
		throttle = 1.0
	}
	steering := 0.0
	if action >= 0 && action < len(Steering) {
		steering = Steering[action]
	}
	return environment.Control{Steering: steering, Throttle: throttle}
}

// ComputeGradients implements the agent.Learner interface. The
// gradients are averaged over all minibatches.
func (c *Critic) ComputeGradients(batches []expreplay.Minibatch) (
	agent.Gradients, error) {
	return c.run(batches, false)
}

// Train implements the agent.Learner interface
func (c *Critic) Train(batches []expreplay.Minibatch) (agent.Gradients,
	error) {
	return c.run(batches, true)
}

// run computes the gradients on each minibatch, stepping the solver
// after each one if step is true
func (c *Critic) run(batches []expreplay.Minibatch, step bool) (
	agent.Gradients, error) {
	grads := make(agent.Gradients, len(c.learnables))
	for _, n := range c.learnables {
		grads[n.Name()] = make([]float64, n.Shape().TotalSize())
	}
	if len(batches) == 0 {
		return grads, nil
	}

	for i, b := range batches {
		if err := c.setBatch(b); err != nil {
			return nil, fmt.Errorf("run: minibatch %d: %w", i, err)
		}
		if err := c.vm.RunAll(); err != nil {
			c.vm.Reset()
			return nil, fmt.Errorf("run: minibatch %d: %w", i, err)
		}
		if err := c.accumulate(grads); err != nil {
			c.vm.Reset()
			return nil, fmt.Errorf("run: minibatch %d: %w", i, err)
		}

		if step {
			if err := c.solver.Step(c.model); err != nil {
				c.vm.Reset()
				return nil, fmt.Errorf("run: minibatch %d: %w", i, err)
			}
		} else {
			c.zeroGrads()
		}
		c.vm.Reset()
	}

	scale := 1 / float64(len(batches))
	for _, g := range grads {
		for j := range g {
			g[j] *= scale
		}
	}
	return grads, nil
}

// setBatch sets the input, selected actions, and update targets of the
// training graph from a minibatch
func (c *Critic) setBatch(b expreplay.Minibatch) error {
	batchSize := c.config.BatchSize
	if b.Len() != batchSize {
		return fmt.Errorf("setBatch: expected %d samples but got %d",
			batchSize, b.Len())
	}

	if err := c.net.SetInput(c.featurizer.FeaturizeBatch(b.PreStates)); err != nil {
		return err
	}

	numActions := c.config.Actions()
	oneHot := make([]float64, batchSize*numActions)
	for i, a := range b.Actions {
		if a < 0 || a >= numActions {
			return fmt.Errorf("setBatch: illegal action %d", a)
		}
		oneHot[i*numActions+a] = 1.0
	}
	err := G.Let(c.selectedActions, tensor.New(
		tensor.WithShape(batchSize, numActions),
		tensor.WithBacking(oneHot),
	))
	if err != nil {
		return fmt.Errorf("setBatch: could not set actions: %w", err)
	}

	y, err := c.updateTargets(b)
	if err != nil {
		return err
	}
	err = G.Let(c.targets, tensor.New(
		tensor.WithShape(batchSize),
		tensor.WithBacking(y),
	))
	if err != nil {
		return fmt.Errorf("setBatch: could not set targets: %w", err)
	}
	return nil
}

// updateTargets computes r + γ * notTerminal * max[Q_target(s', a')]
// for each sample of a minibatch
func (c *Critic) updateTargets(b expreplay.Minibatch) ([]float64, error) {
	next := mat.NewDense(b.Len(), c.featurizer.Len(),
		c.featurizer.FeaturizeBatch(b.PostStates))
	q, err := c.net.Forward(c.target, next)
	if err != nil {
		return nil, fmt.Errorf("updateTargets: %w", err)
	}

	y := make([]float64, b.Len())
	for i := range y {
		_, max := floatutils.Argmax(q.RawRowView(i))
		y[i] = b.Rewards[i] + c.config.Discount*b.IsNotTerminal[i]*max
	}
	return y, nil
}

func (c *Critic) accumulate(grads agent.Gradients) error {
	for _, n := range c.learnables {
		g, err := n.Grad()
		if err != nil {
			return fmt.Errorf("accumulate: %v: %w", n.Name(), err)
		}
		data := g.Data().([]float64)
		acc := grads[n.Name()]
		for j := range acc {
			acc[j] += data[j]
		}
	}
	return nil
}

func (c *Critic) zeroGrads() {
	for _, n := range c.learnables {
		if g, err := n.Grad(); err == nil {
			if t, ok := g.(*tensor.Dense); ok {
				t.Zero()
			}
		}
	}
}

// ApplyWeights implements the agent.Learner interface. Weights named
// with TargetPrefix are applied to the target network. If the Packet
// holds no target weights, the target network takes the applied
// weights as well.
func (c *Critic) ApplyWeights(p agent.Packet) error {
	online := make(map[string][]float64, len(p.Weights))
	hasTarget := false
	for name, w := range p.Weights {
		if strings.HasPrefix(name, TargetPrefix) {
			name = strings.TrimPrefix(name, TargetPrefix)
			current, ok := c.target[name]
			if !ok {
				continue
			}
			if len(current) != len(w) {
				return fmt.Errorf("applyWeights: %v%v: expected %d values "+
					"but got %d", TargetPrefix, name, len(current), len(w))
			}
			copy(current, w)
			hasTarget = true
			continue
		}
		online[name] = w
	}

	if err := c.net.SetWeights(online); err != nil {
		return fmt.Errorf("applyWeights: %w", err)
	}
	if !hasTarget {
		return c.UpdateCriticFromTarget()
	}
	return nil
}

// SerializeWeights implements the agent.Learner interface
func (c *Critic) SerializeWeights(includeTarget bool) (agent.Packet, error) {
	weights := c.net.Weights()
	if includeTarget {
		for name, w := range c.TargetWeights() {
			weights[TargetPrefix+name] = w
		}
	}
	return agent.NewPacket(weights), nil
}

// UpdateCriticFromTarget implements the agent.Learner interface
func (c *Critic) UpdateCriticFromTarget() error {
	c.target = c.net.Weights()
	return nil
}

// Weights returns a copy of the learned weights keyed by name
func (c *Critic) Weights() map[string][]float64 {
	return c.net.Weights()
}

// TargetWeights returns a copy of the target network weights keyed by
// name
func (c *Critic) TargetWeights() map[string][]float64 {
	out := make(map[string][]float64, len(c.target))
	for name, w := range c.target {
		cp := make([]float64, len(w))
		copy(cp, w)
		out[name] = cp
	}
	return out
}
