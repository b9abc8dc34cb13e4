// Package hill maps 0-100 progress positions onto a hill-shaped quadratic
// Bézier curve and lays out items so their dots and labels do not overlap.
//
// The curve lives in a fixed W×H frame with equal padding on every side.
// The start point sits at the bottom-left of the plot area, the control
// point (the peak) at the top-centre and the end point at the bottom-right.
// SVG coordinates are used throughout, so y grows downwards and "up the
// hill" means smaller y.
package hill

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MinPosition is the start of the hill.
	MinPosition = 0.0

	// PeakPosition is the top of the hill.
	PeakPosition = 50.0

	// MaxPosition is the end of the hill.
	MaxPosition = 100.0
)

// ErrNonFinite is returned when a NaN or infinite value reaches the engine.
var ErrNonFinite = errors.New("hill: non-finite value")

// Point is a 2D coordinate in frame pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Params holds the frame geometry and collision settings.
type Params struct {
	Width           float64 `json:"width" toml:"width"`
	Height          float64 `json:"height" toml:"height"`
	Padding         float64 `json:"padding" toml:"padding"`
	MinDistance     float64 `json:"minDistance" toml:"min_distance"`
	VerticalSpacing float64 `json:"verticalSpacing" toml:"vertical_spacing"`
}

// DefaultParams returns the stock 800×400 frame.
func DefaultParams() Params {
	return Params{
		Width:           800,
		Height:          400,
		Padding:         60,
		MinDistance:     40,
		VerticalSpacing: 30,
	}
}

// Validate reports whether the parameters describe a usable frame.
func (p Params) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"width", p.Width},
		{"height", p.Height},
		{"padding", p.Padding},
		{"min distance", p.MinDistance},
		{"vertical spacing", p.VerticalSpacing},
	}
	for _, f := range fields {
		if !finite(f.v) {
			return fmt.Errorf("%w: %s", ErrNonFinite, f.name)
		}
	}
	if p.Padding < 0 {
		return fmt.Errorf("hill: padding must not be negative: %v", p.Padding)
	}
	if p.PlotWidth() <= 0 || p.PlotHeight() <= 0 {
		return fmt.Errorf("hill: frame %vx%v leaves no plot area with padding %v", p.Width, p.Height, p.Padding)
	}
	if p.MinDistance < 0 {
		return fmt.Errorf("hill: min distance must not be negative: %v", p.MinDistance)
	}
	if p.VerticalSpacing <= 0 {
		return fmt.Errorf("hill: vertical spacing must be positive: %v", p.VerticalSpacing)
	}
	return nil
}

// PlotWidth is the usable width inside the padding (CW).
func (p Params) PlotWidth() float64 { return p.Width - 2*p.Padding }

// PlotHeight is the usable height inside the padding (CH).
func (p Params) PlotHeight() float64 { return p.Height - 2*p.Padding }

// Curve is a quadratic Bézier curve.
type Curve struct {
	Start   Point
	Control Point
	End     Point
}

// Curve returns the hill for these parameters.
func (p Params) Curve() Curve {
	cw, ch := p.PlotWidth(), p.PlotHeight()
	return Curve{
		Start:   Point{X: p.Padding, Y: p.Padding + ch},
		Control: Point{X: p.Padding + cw/2, Y: p.Padding},
		End:     Point{X: p.Padding + cw, Y: p.Padding + ch},
	}
}

// At evaluates B(t) = (1-t)²·P0 + 2(1-t)t·P1 + t²·P2.
func (c Curve) At(t float64) Point {
	u := 1 - t
	a, b, d := u*u, 2*u*t, t*t
	return Point{
		X: a*c.Start.X + b*c.Control.X + d*c.End.X,
		Y: a*c.Start.Y + b*c.Control.Y + d*c.End.Y,
	}
}

// PositionToCoords maps a 0-100 position onto the curve. Out-of-range
// positions are clamped.
func (p Params) PositionToCoords(position float64) (Point, error) {
	if !finite(position) {
		return Point{}, fmt.Errorf("%w: position %v", ErrNonFinite, position)
	}
	t := ClampPosition(position) / MaxPosition
	return p.Curve().At(t), nil
}

// PositionFromPixel converts a horizontal pixel coordinate into a 0-100
// position. originX is the left edge of the frame in the same coordinate
// space as pixelX. Only the x axis is used; the curve is not inverted.
func (p Params) PositionFromPixel(pixelX, originX float64) (float64, error) {
	if !finite(pixelX) || !finite(originX) {
		return 0, fmt.Errorf("%w: pixel %v origin %v", ErrNonFinite, pixelX, originX)
	}
	cw := p.PlotWidth()
	x := math.Max(p.Padding, math.Min(pixelX-originX, p.Padding+cw))
	return ClampPosition((x - p.Padding) / cw * MaxPosition), nil
}

// ClampPosition limits a position to [0, 100].
func ClampPosition(position float64) float64 {
	return math.Max(MinPosition, math.Min(MaxPosition, position))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
