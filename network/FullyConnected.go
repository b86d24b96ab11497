package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	name    string
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayer adds the weights of a fully connected layer from in to
// out units to the graph g. The weights are initialized from init,
// which must hold in*out values, and the bias is initialized to zero.
func newFCLayer(g *G.ExprGraph, name string, in, out int, init []float64,
	act *Activation) (*fcLayer, error) {
	if len(init) != in*out {
		return nil, fmt.Errorf("newFCLayer: expected %d initial weights "+
			"but got %d", in*out, len(init))
	}

	weightsVal := tensor.New(
		tensor.WithShape(in, out),
		tensor.WithBacking(init),
	)
	weights := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(in, out),
		G.WithName(name+"/W"),
		G.WithValue(weightsVal),
	)

	// Bias is a row vector broadcast to all samples along the batch
	// dimension
	bias := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(1, out),
		G.WithName(name+"/b"),
		G.WithInit(G.Zeroes()),
	)

	return &fcLayer{name: name, weights: weights, bias: bias, act: act}, nil
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, fmt.Errorf("fwd: %v: %w", f.name, err)
	}
	x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0})
	if err != nil {
		return nil, fmt.Errorf("fwd: %v: %w", f.name, err)
	}
	return f.act.fwd(x)
}

// Name returns the name of the layer
func (f *fcLayer) Name() string {
	return f.name
}

// In returns the number of inputs to the layer
func (f *fcLayer) In() int {
	return f.weights.Shape()[0]
}

// Out returns the number of outputs of the layer
func (f *fcLayer) Out() int {
	return f.weights.Shape()[1]
}

func (f *fcLayer) Activation() *Activation {
	return f.act
}

func (f *fcLayer) Bias() *G.Node {
	return f.bias
}

func (f *fcLayer) Weights() *G.Node {
	return f.weights
}
