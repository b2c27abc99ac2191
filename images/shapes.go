// Package images - Box geometry shared by the detection postprocessors.
package images

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Rect is an axis-aligned bounding box in continuous coordinates.
//
// X1,Y1 is the minimum corner and X2,Y2 the maximum corner. Nothing enforces
// X1 <= X2 or Y1 <= Y2; inverted boxes simply have a non-positive area.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// Width returns X2 - X1, which is negative for an inverted box.
func (r Rect) Width() float32 {
	return r.X2 - r.X1
}

// Height returns Y2 - Y1, which is negative for an inverted box.
func (r Rect) Height() float32 {
	return r.Y2 - r.Y1
}

// Area returns Width * Height without clamping.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f), (%.2f, %.2f)", r.X1, r.Y1, r.X2, r.Y2)
}

// CalculateIoU returns the Intersection over Union of two boxes.
//
// The intersection is
//
//	max(0, min(r.X2, o.X2) - max(r.X1, o.X1)) * max(0, min(r.Y2, o.Y2) - max(r.Y1, o.Y1))
//
// and the union is Area(r) + Area(o) - intersection, using the raw (unclamped)
// areas of both boxes.
//
// When the union is zero the ratio is 0/0. That case, and any other quotient
// that is not a finite number, is reported as 0 so that callers comparing the
// score against a threshold never see NaN.
//
// Arguments:
//   - r: The first box.
//   - o: The second box.
//
// Returns:
//   - float32: The IoU score. 1.0 for identical boxes, 0.0 for disjoint ones.
//
// Example Usage:
// ```go
//
//	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	iou := CalculateIoU(a, b) // 25 / (100 + 100 - 25) = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	interW := math32.Max(0, math32.Min(r.X2, o.X2)-math32.Max(r.X1, o.X1))
	interH := math32.Max(0, math32.Min(r.Y2, o.Y2)-math32.Max(r.Y1, o.Y1))
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea == 0 {
		return 0
	}

	iou := interArea / unionArea
	if math32.IsNaN(iou) || math32.IsInf(iou, 0) {
		return 0
	}
	return iou
}

// BatchIoU computes CalculateIoU(query, b) for every b in boxes.
//
// The result has the same length and order as boxes.
func BatchIoU(query Rect, boxes []Rect) []float32 {
	ious := make([]float32, len(boxes))
	for i, b := range boxes {
		ious[i] = CalculateIoU(query, b)
	}
	return ious
}
