package geometry

import (
	"math"
	"testing"
)

func box(t *testing.T, x, y, w, h float64) BoundingBox {
	t.Helper()
	b, err := NewBoundingBox(x, y, w, h)
	if err != nil {
		t.Fatalf("NewBoundingBox(%g,%g,%g,%g): %v", x, y, w, h, err)
	}
	return b
}

func TestNewBoundingBox_RejectsNegativeDimensions(t *testing.T) {
	if _, err := NewBoundingBox(0.1, 0.1, -0.2, 0.1); err == nil {
		t.Fatal("expected error for negative width")
	}
	if _, err := NewBoundingBox(0.1, 0.1, 0.2, -0.1); err == nil {
		t.Fatal("expected error for negative height")
	}
}

func TestOverlapRatio_FullContainment(t *testing.T) {
	outer := box(t, 0.1, 0.1, 0.8, 0.8)
	inner := box(t, 0.3, 0.3, 0.2, 0.2)

	if got := OverlapRatio(outer, inner); got != 1.0 {
		t.Errorf("contained box should score 1.0, got %g", got)
	}
	// symmetric by construction of the min denominator when one contains the other
	if got := OverlapRatio(inner, outer); got != 1.0 {
		t.Errorf("contained box should score 1.0 regardless of order, got %g", got)
	}
}

func TestOverlapRatio_Disjoint(t *testing.T) {
	a := box(t, 0.0, 0.0, 0.2, 0.2)
	b := box(t, 0.5, 0.5, 0.2, 0.2)
	if got := OverlapRatio(a, b); got != 0 {
		t.Errorf("disjoint boxes should score 0, got %g", got)
	}
}

func TestOverlapRatio_ZeroArea(t *testing.T) {
	a := box(t, 0.1, 0.1, 0.0, 0.2)
	b := box(t, 0.1, 0.1, 0.2, 0.2)
	if got := OverlapRatio(a, b); got != 0 {
		t.Errorf("zero-area box should score 0, got %g", got)
	}
}

func TestOverlapRatio_PartialOverlap(t *testing.T) {
	a := box(t, 0.0, 0.0, 0.2, 0.2)
	b := box(t, 0.1, 0.0, 0.2, 0.2)
	// intersection 0.1*0.2 = 0.02, min area 0.04 -> 0.5
	if got := OverlapRatio(a, b); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("expected 0.5, got %g", got)
	}
}

func TestOverlaps_DefaultThreshold(t *testing.T) {
	a := box(t, 0.0, 0.0, 0.2, 0.2)
	almost := box(t, 0.01, 0.0, 0.2, 0.2)
	if !Overlaps(a, almost, DefaultOverlapThreshold) {
		t.Error("near-identical boxes should overlap at 0.8")
	}
	shifted := box(t, 0.1, 0.0, 0.2, 0.2)
	if Overlaps(a, shifted, DefaultOverlapThreshold) {
		t.Error("half-overlapping boxes should not pass 0.8")
	}
}

func TestSameRowAndColumn(t *testing.T) {
	a := box(t, 0.1, 0.5, 0.2, 0.02)
	b := box(t, 0.7, 0.505, 0.2, 0.02)
	if !SameRow(a, b, DefaultAlignTolerance) {
		t.Error("boxes with near-equal vertical centers should share a row")
	}
	if SameColumn(a, b, DefaultAlignTolerance) {
		t.Error("boxes far apart horizontally should not share a column")
	}

	c := box(t, 0.105, 0.8, 0.2, 0.02)
	if !SameColumn(a, c, DefaultAlignTolerance) {
		t.Error("boxes with near-equal horizontal centers should share a column")
	}
}

func TestNear_VerticalOnly(t *testing.T) {
	a := box(t, 0.0, 0.5, 0.1, 0.02)
	b := box(t, 0.9, 0.55, 0.1, 0.02)
	// far apart horizontally but vertically close
	if !Near(a, b, DefaultNearThreshold) {
		t.Error("Near compares vertical distance only")
	}
	c := box(t, 0.0, 0.8, 0.1, 0.02)
	if Near(a, c, DefaultNearThreshold) {
		t.Error("vertically distant boxes should not be near")
	}
}

func TestUnion(t *testing.T) {
	a := box(t, 0.1, 0.1, 0.2, 0.1)
	b := box(t, 0.4, 0.3, 0.1, 0.1)
	u := Union(a, b)
	if u.X != 0.1 || u.Y != 0.1 {
		t.Errorf("union origin wrong: %+v", u)
	}
	if math.Abs(u.MaxX()-0.5) > 1e-9 || math.Abs(u.MaxY()-0.4) > 1e-9 {
		t.Errorf("union extent wrong: %+v", u)
	}
}
