// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"
)

// Default tolerances for IsClose
const (
	RelTol = 1e-5
	AbsTol = 1e-8
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max
// If min exceeds the floating point, then the function returns the min
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// IsClose returns whether a and b are equal within the default
// tolerances, |a - b| <= AbsTol + RelTol * |b|
func IsClose(a, b float64) bool {
	return math.Abs(a-b) <= AbsTol+RelTol*math.Abs(b)
}

// MaxSlice gets the maximum value and indices of the maximum values in
// a slice of float64.
func MaxSlice(values []float64) (max float64, indices []int) {
	max, indices = values[0], []int{0}

	for i, value := range values[1:] {
		if value > max {
			max = value
			indices = []int{i + 1}
		} else if value == max {
			indices = append(indices, i+1)
		}
	}
	return
}

// Argmax returns the first index of the maximum value in values along
// with that value
func Argmax(values []float64) (int, float64) {
	max, indices := MaxSlice(values)
	return indices[0], max
}
