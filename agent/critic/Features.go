package critic

import (
	"github.com/samuelfneumann/drivelearn/environment"
)

// maxPixel is the largest value a camera channel can take
const maxPixel = 255.0

// Featurizer converts a stack of camera frames into a feature vector.
// Each frame is converted to grayscale and average pooled onto a grid
// of Rows x Cols cells. Stacks with fewer than Frames frames are padded
// at the front with zeros.
type Featurizer struct {
	Frames int
	Rows   int
	Cols   int
}

// Len returns the number of features produced for each stack
func (f Featurizer) Len() int {
	return f.Frames * f.Rows * f.Cols
}

// Featurize returns the features of stack, scaled to [0, 1]
func (f Featurizer) Featurize(stack environment.Stack) []float64 {
	out := make([]float64, f.Len())
	f.featurizeTo(out, stack)
	return out
}

// FeaturizeBatch returns the features of each stack concatenated in
// row major order
func (f Featurizer) FeaturizeBatch(stacks []environment.Stack) []float64 {
	out := make([]float64, len(stacks)*f.Len())
	for i, s := range stacks {
		f.featurizeTo(out[i*f.Len():(i+1)*f.Len()], s)
	}
	return out
}

func (f Featurizer) featurizeTo(out []float64, stack environment.Stack) {
	if len(stack) > f.Frames {
		stack = stack[len(stack)-f.Frames:]
	}
	offset := (f.Frames - len(stack)) * f.Rows * f.Cols
	cell := f.Rows * f.Cols

	for i, frame := range stack {
		f.pool(out[offset+i*cell:offset+(i+1)*cell], frame)
	}
}

// pool average pools the grayscale values of frame onto out
func (f Featurizer) pool(out []float64, frame environment.Frame) {
	if frame.Height == 0 || frame.Width == 0 || frame.Channels == 0 {
		return
	}
	counts := make([]float64, len(out))

	for r := 0; r < frame.Height; r++ {
		row := r * f.Rows / frame.Height
		for c := 0; c < frame.Width; c++ {
			col := c * f.Cols / frame.Width

			gray := 0.0
			for ch := 0; ch < frame.Channels; ch++ {
				gray += frame.At(r, c, ch)
			}
			out[row*f.Cols+col] += gray / float64(frame.Channels)
			counts[row*f.Cols+col]++
		}
	}

	for i := range out {
		if counts[i] > 0 {
			out[i] /= counts[i] * maxPixel
		}
	}
}
