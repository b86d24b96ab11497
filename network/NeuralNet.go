// Package network implements feed forward neural networks on Gorgonia
// computational graphs
package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// InitWFn returns the initial weights of a layer from in to out units
type InitWFn func(in, out int) []float64

// MLP implements a multi-layered perceptron on a fixed batch size.
// The final layer of the MLP produces one output per predicted value.
type MLP struct {
	g         *G.ExprGraph
	input     *G.Node
	layers    []*fcLayer
	batchSize int
	features  int

	learnables G.Nodes
	prediction *G.Node
	predVal    G.Value
}

// NewMLP adds a new MLP to the graph g which takes batches of batch
// samples with features values each. The function works such that for
// index i, names[i] names layer i, sizes[i] is its number of outputs,
// and activations[i] is its activation.
func NewMLP(g *G.ExprGraph, batch, features int, names []string, sizes []int,
	activations []*Activation, init InitWFn) (*MLP, error) {
	if len(sizes) != len(activations) || len(sizes) != len(names) {
		msg := "newMLP: invalid number of layer names, sizes, or " +
			"activations: %d, %d, %d"
		return nil, fmt.Errorf(msg, len(names), len(sizes), len(activations))
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("newMLP: at least one layer is needed")
	}

	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	layers := make([]*fcLayer, len(sizes))
	in := features
	for i := range sizes {
		l, err := newFCLayer(g, names[i], in, sizes[i], init(in, sizes[i]),
			activations[i])
		if err != nil {
			return nil, fmt.Errorf("newMLP: %w", err)
		}
		layers[i] = l
		in = sizes[i]
	}

	net := &MLP{
		g:         g,
		input:     input,
		layers:    layers,
		batchSize: batch,
		features:  features,
	}
	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("newMLP: could not compute forward pass: %w",
			err)
	}
	return net, nil
}

// fwd performs the forward pass of the MLP on the input node
func (m *MLP) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	m.prediction = pred
	G.Read(m.prediction, &m.predVal)

	return pred, nil
}

// Graph returns the computational graph of the MLP
func (m *MLP) Graph() *G.ExprGraph {
	return m.g
}

// BatchSize returns the number of samples in each input batch
func (m *MLP) BatchSize() int {
	return m.batchSize
}

// Features returns the number of features of each input sample
func (m *MLP) Features() int {
	return m.features
}

// Outputs returns the number of outputs per sample
func (m *MLP) Outputs() int {
	return m.layers[len(m.layers)-1].Out()
}

// SetInput sets the value of the input node before running the forward
// pass.
func (m *MLP) SetInput(input []float64) error {
	if len(input) != m.features*m.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", m.features*m.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(m.input.Shape()...),
	)
	return G.Let(m.input, inputTensor)
}

// Prediction returns the node of the computational graph that stores
// the output of the MLP
func (m *MLP) Prediction() *G.Node {
	return m.prediction
}

// Output returns the output of the MLP after the graph has been run
func (m *MLP) Output() G.Value {
	return m.predVal
}

// Learnables returns the learnable nodes of the layers named, or of
// every layer if no names are given
func (m *MLP) Learnables(layers ...string) G.Nodes {
	if len(layers) == 0 {
		if m.learnables == nil {
			m.learnables = m.collect(func(string) bool { return true })
		}
		return m.learnables
	}

	wanted := make(map[string]bool, len(layers))
	for _, l := range layers {
		wanted[l] = true
	}
	return m.collect(func(name string) bool { return wanted[name] })
}

func (m *MLP) collect(keep func(string) bool) G.Nodes {
	learnables := make([]*G.Node, 0, 2*len(m.layers))
	for _, l := range m.layers {
		if keep(l.Name()) {
			learnables = append(learnables, l.Weights(), l.Bias())
		}
	}
	return G.Nodes(learnables)
}

// Weights returns a copy of the weights of the MLP keyed by node name
func (m *MLP) Weights() map[string][]float64 {
	out := make(map[string][]float64)
	for _, n := range m.Learnables() {
		data := n.Value().Data().([]float64)
		w := make([]float64, len(data))
		copy(w, data)
		out[n.Name()] = w
	}
	return out
}

// SetWeights overwrites, in place, the weights of each node named in
// weights. Names which are not nodes of the MLP are ignored.
func (m *MLP) SetWeights(weights map[string][]float64) error {
	for _, n := range m.Learnables() {
		w, ok := weights[n.Name()]
		if !ok {
			continue
		}
		data := n.Value().Data().([]float64)
		if len(w) != len(data) {
			return fmt.Errorf("setWeights: %v: expected %d values but got %d",
				n.Name(), len(data), len(w))
		}
		copy(data, w)
	}
	return nil
}

// Forward computes the output of the MLP on the rows of x using the
// given weights instead of the weights in the graph. The weights must
// be keyed by node name as returned by Weights.
func (m *MLP) Forward(weights map[string][]float64, x mat.Matrix) (*mat.Dense,
	error) {
	rows, cols := x.Dims()
	if cols != m.features {
		return nil, fmt.Errorf("forward: expected %d features but got %d",
			m.features, cols)
	}

	h := mat.DenseCopyOf(x)
	for _, l := range m.layers {
		w, ok := weights[l.Weights().Name()]
		if !ok || len(w) != l.In()*l.Out() {
			return nil, fmt.Errorf("forward: missing weights for %v", l.Name())
		}
		b, ok := weights[l.Bias().Name()]
		if !ok || len(b) != l.Out() {
			return nil, fmt.Errorf("forward: missing bias for %v", l.Name())
		}

		next := mat.NewDense(rows, l.Out(), nil)
		next.Mul(h, mat.NewDense(l.In(), l.Out(), w))
		for r := 0; r < rows; r++ {
			row := next.RawRowView(r)
			for c := range row {
				row[c] += b[c]
			}
			l.Activation().ApplyTo(row)
		}
		h = next
	}
	return h, nil
}
