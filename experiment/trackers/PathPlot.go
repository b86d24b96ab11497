package trackers

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/drivelearn/environment/road"
	"github.com/samuelfneumann/drivelearn/experiment/tracker"
)

// Dimensions of path plots in pixels
const (
	PlotSize   = 512
	plotMargin = 16
)

// PathPlot draws an overhead view of the path driven in an epoch over
// the road and reward lines, saving it as a PNG file for each tracked
// epoch
type PathPlot struct {
	dir         string
	roadLines   []road.Segment
	rewardLines []road.Segment
	saved       []string
}

// NewPathPlot returns a new PathPlot which saves its plots in dir
func NewPathPlot(dir string, roadLines, rewardLines []road.Segment) *PathPlot {
	return &PathPlot{
		dir:         dir,
		roadLines:   roadLines,
		rewardLines: rewardLines,
	}
}

// Track implements the tracker.Tracker interface
func (p *PathPlot) Track(epoch tracker.Epoch) error {
	if epoch.Trajectory == nil || epoch.Trajectory.Len() == 0 {
		return nil
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("track: %w", err)
	}

	path := make([]r3.Vec, epoch.Trajectory.Len())
	for i, step := range epoch.Trajectory.Steps() {
		path[i] = step.Position
	}

	filename := filepath.Join(p.dir, fmt.Sprintf("epoch_%d.png", epoch.Number))
	if err := p.render(path).SavePNG(filename); err != nil {
		return fmt.Errorf("track: %w", err)
	}
	p.saved = append(p.saved, filename)
	return nil
}

// Saved returns the files saved so far
func (p *PathPlot) Saved() []string {
	return append([]string{}, p.saved...)
}

// Save implements the tracker.Tracker interface. Plots are saved as
// epochs are tracked.
func (p *PathPlot) Save() error {
	return nil
}

func (p *PathPlot) render(path []r3.Vec) *gg.Context {
	toPixel := p.transform(path)

	dc := gg.NewContext(PlotSize, PlotSize)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	drawSegments := func(lines []road.Segment) {
		for _, l := range lines {
			x1, y1 := toPixel(l.A)
			x2, y2 := toPixel(l.B)
			dc.DrawLine(x1, y1, x2, y2)
		}
	}

	// Road
	dc.SetRGB(0.6, 0.6, 0.6)
	dc.SetLineWidth(4.0)
	drawSegments(p.roadLines)
	dc.Stroke()

	// Reward lines
	dc.SetRGB(0.2, 0.7, 0.2)
	dc.SetLineWidth(1.5)
	drawSegments(p.rewardLines)
	dc.Stroke()

	// Path
	dc.SetRGB(0.8, 0.1, 0.1)
	dc.SetLineWidth(2.0)
	for i, v := range path {
		x, y := toPixel(v)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	x, y := toPixel(path[0])
	dc.DrawCircle(x, y, 4)
	dc.Fill()

	return dc
}

// transform returns a function mapping world coordinates to pixel
// coordinates such that all lines and the path fit in the plot
func (p *PathPlot) transform(path []r3.Vec) func(r3.Vec) (float64, float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	extend := func(v r3.Vec) {
		minX, maxX = math.Min(minX, v.X), math.Max(maxX, v.X)
		minY, maxY = math.Min(minY, v.Y), math.Max(maxY, v.Y)
	}
	for _, l := range p.roadLines {
		extend(l.A)
		extend(l.B)
	}
	for _, l := range p.rewardLines {
		extend(l.A)
		extend(l.B)
	}
	for _, v := range path {
		extend(v)
	}

	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	scale := (PlotSize - 2*plotMargin) / span

	// The simulator's x axis points up the plot and y points right
	return func(v r3.Vec) (float64, float64) {
		px := plotMargin + (v.Y-minY)*scale
		py := PlotSize - plotMargin - (v.X-minX)*scale
		return px, py
	}
}
