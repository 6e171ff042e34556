package geometry

import (
	"fmt"
	"math"
)

// Default thresholds for box comparisons. Normalized page coordinates, so these
// are page-size-relative; flagged for calibration against real scans.
const (
	DefaultOverlapThreshold = 0.8
	DefaultAlignTolerance   = 0.02
	DefaultNearThreshold    = 0.1
)

// BoundingBox is an axis-aligned box in normalized [0,1] page coordinates,
// top-left origin. Immutable value type.
type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewBoundingBox validates and constructs a box. Width and height must be
// non-negative and the box must stay within the unit page.
func NewBoundingBox(x, y, width, height float64) (BoundingBox, error) {
	if width < 0 || height < 0 {
		return BoundingBox{}, fmt.Errorf("bounding box dimensions must be non-negative, got %gx%g", width, height)
	}
	if x < 0 || y < 0 || x > 1 || y > 1 {
		return BoundingBox{}, fmt.Errorf("bounding box origin out of [0,1] range: (%g, %g)", x, y)
	}
	return BoundingBox{X: x, Y: y, Width: width, Height: height}, nil
}

func (b BoundingBox) MaxX() float64    { return b.X + b.Width }
func (b BoundingBox) MaxY() float64    { return b.Y + b.Height }
func (b BoundingBox) CenterX() float64 { return b.X + b.Width/2 }
func (b BoundingBox) CenterY() float64 { return b.Y + b.Height/2 }
func (b BoundingBox) Area() float64    { return b.Width * b.Height }

// OverlapRatio returns intersection area over the SMALLER box's area.
// The min denominator makes full containment of a small box inside a large
// one score 1.0, which a union-based IoU would dilute.
func OverlapRatio(a, b BoundingBox) float64 {
	ix := math.Min(a.MaxX(), b.MaxX()) - math.Max(a.X, b.X)
	iy := math.Min(a.MaxY(), b.MaxY()) - math.Max(a.Y, b.Y)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	minArea := math.Min(a.Area(), b.Area())
	if minArea == 0 {
		return 0
	}
	return (ix * iy) / minArea
}

// Overlaps reports whether the overlap ratio meets the threshold.
func Overlaps(a, b BoundingBox, threshold float64) bool {
	return OverlapRatio(a, b) >= threshold
}

// SameRow reports whether two boxes sit on the same text row, comparing
// vertical centers within tolerance.
func SameRow(a, b BoundingBox, tolerance float64) bool {
	return math.Abs(a.CenterY()-b.CenterY()) <= tolerance
}

// SameColumn reports whether two boxes share a column, comparing horizontal
// centers within tolerance.
func SameColumn(a, b BoundingBox, tolerance float64) bool {
	return math.Abs(a.CenterX()-b.CenterX()) <= tolerance
}

// Near is a fast vertical-proximity check: only the vertical center distance
// is compared, not full overlap.
func Near(a, b BoundingBox, threshold float64) bool {
	return math.Abs(a.CenterY()-b.CenterY()) <= threshold
}

// Union returns the smallest box covering both inputs. Used to build the
// evidence box for a value plus its anchor.
func Union(a, b BoundingBox) BoundingBox {
	x := math.Min(a.X, b.X)
	y := math.Min(a.Y, b.Y)
	return BoundingBox{
		X:      x,
		Y:      y,
		Width:  math.Max(a.MaxX(), b.MaxX()) - x,
		Height: math.Max(a.MaxY(), b.MaxY()) - y,
	}
}
