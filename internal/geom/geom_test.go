package geom

import (
	"math"
	"testing"
)

func TestVectorHelpers(t *testing.T) {
	a := Vec2{X: 1, Y: 2}
	b := Vec2{X: 4, Y: 6}
	if got := Distance(a, b); got != 5 {
		t.Fatalf("expected distance 5, got %v", got)
	}
	if got := b.Sub(a); got != (Vec2{X: 3, Y: 4}) {
		t.Fatalf("expected (3,4), got %+v", got)
	}
	if got := a.Add(b).Scale(0.5); got != (Vec2{X: 2.5, Y: 4}) {
		t.Fatalf("expected (2.5,4), got %+v", got)
	}
	if got := (Vec2{X: 3, Y: 4}).Len(); math.Abs(got-5) > 1e-12 {
		t.Fatalf("expected length 5, got %v", got)
	}
}

func TestRectContainsAndOverlaps(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	if !r.Contains(Vec2{X: 0, Y: 0}) || r.Contains(Vec2{X: 10, Y: 5}) {
		t.Fatalf("expected left edge inclusive and right edge exclusive")
	}
	if !r.Overlaps(Rect{X: 9, Y: 9, Width: 2, Height: 2}, 0) {
		t.Fatalf("expected overlapping rectangles")
	}
	if r.Overlaps(Rect{X: 10, Y: 0, Width: 2, Height: 2}, 0) {
		t.Fatalf("expected touching rectangles not to overlap")
	}
	if !r.Overlaps(Rect{X: 10, Y: 0, Width: 2, Height: 2}, 0.5) {
		t.Fatalf("expected padding to produce overlap")
	}
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Fatalf("unexpected clamp results")
	}
}
