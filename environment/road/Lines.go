// Package road implements the geometry of the driving task: the road
// and reward line segments, the reward function, and the distribution
// of starting poses
package road

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// CarStart is the position of the vehicle's spawn point in the
// coordinates used by the road lines file
var CarStart = r3.Vec{X: 12961.722656, Y: 6660.329102, Z: 0}

// unitScale converts road lines file units into simulator units
const unitScale = 100.0

// Segment is a line segment between two points on the ground plane
type Segment struct {
	A, B r3.Vec
}

// Delta returns B - A
func (s Segment) Delta() r3.Vec {
	return r3.Vec{X: s.B.X - s.A.X, Y: s.B.Y - s.A.Y, Z: s.B.Z - s.A.Z}
}

// Interpolate returns the point a fraction t of the way from A to B
func (s Segment) Interpolate(t float64) r3.Vec {
	d := s.Delta()
	return r3.Vec{X: s.A.X + t*d.X, Y: s.A.Y + t*d.Y, Z: s.A.Z + t*d.Z}
}

// LoadRoadLines reads the road lines file at path. Each line holds two
// points separated by a tab, each point being "x,y". Points are
// translated so that CarStart is the origin and then scaled into
// simulator units.
func LoadRoadLines(path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loadRoadLines: %w", err)
	}
	defer f.Close()

	segments, err := ParseRoadLines(f)
	if err != nil {
		return nil, fmt.Errorf("loadRoadLines: %v: %w", path, err)
	}
	return segments, nil
}

// ParseRoadLines parses road lines from r. See LoadRoadLines.
func ParseRoadLines(r io.Reader) ([]Segment, error) {
	return parseLines(r, func(line string) (Segment, error) {
		points := strings.Split(line, "\t")
		if len(points) < 2 {
			return Segment{}, fmt.Errorf("expected 2 tab separated points")
		}
		a, err := parsePoint(points[0])
		if err != nil {
			return Segment{}, err
		}
		b, err := parsePoint(points[1])
		if err != nil {
			return Segment{}, err
		}
		return Segment{A: toSimulator(a), B: toSimulator(b)}, nil
	})
}

// LoadRewardLines reads the reward lines file at path. Each line holds
// four tab separated values x1, y1, x2, y2 already in simulator units.
func LoadRewardLines(path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loadRewardLines: %w", err)
	}
	defer f.Close()

	segments, err := ParseRewardLines(f)
	if err != nil {
		return nil, fmt.Errorf("loadRewardLines: %v: %w", path, err)
	}
	return segments, nil
}

// ParseRewardLines parses reward lines from r. See LoadRewardLines.
func ParseRewardLines(r io.Reader) ([]Segment, error) {
	return parseLines(r, func(line string) (Segment, error) {
		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			return Segment{}, fmt.Errorf("expected 4 tab separated values")
		}
		v, err := parseFloats(fields[:4])
		if err != nil {
			return Segment{}, err
		}
		return Segment{
			A: r3.Vec{X: v[0], Y: v[1]},
			B: r3.Vec{X: v[2], Y: v[3]},
		}, nil
	})
}

func parseLines(r io.Reader, parse func(string) (Segment, error)) ([]Segment,
	error) {
	var segments []Segment
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if strings.TrimSpace(line) == "" {
			continue
		}
		s, err := parse(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		segments = append(segments, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return segments, nil
}

func parsePoint(s string) (r3.Vec, error) {
	v, err := parseFloats(strings.Split(s, ","))
	if err != nil {
		return r3.Vec{}, err
	}
	if len(v) != 2 {
		return r3.Vec{}, fmt.Errorf("expected point x,y but got %q", s)
	}
	return r3.Vec{X: v[0], Y: v[1]}, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func toSimulator(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: (p.X - CarStart.X) / unitScale,
		Y: (p.Y - CarStart.Y) / unitScale,
	}
}
