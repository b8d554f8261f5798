package model

import "math"

// BoxKind says what a bounding box outlines.
type BoxKind int

const (
	BoxText BoxKind = iota
	BoxImage
	BoxTable
)

// String returns the lowercase name of the box kind.
func (k BoxKind) String() string {
	switch k {
	case BoxText:
		return "text"
	case BoxImage:
		return "image"
	case BoxTable:
		return "table"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so box kinds serialize by
// name.
func (k BoxKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// BBox is a corner-form bounding box in normalized page coordinates:
// X0,Y0 is the top-left corner, X1,Y1 the bottom-right, all in [0,1].
// Invariant: X0 <= X1 and Y0 <= Y1.
type BBox struct {
	Kind BoxKind `json:"kind"`
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
}

// NewBBox creates a box from two corners in either order, enforcing the
// corner invariant.
func NewBBox(kind BoxKind, x0, y0, x1, y1 float64) BBox {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return BBox{Kind: kind, X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Width returns the box width.
func (b BBox) Width() float64 {
	return b.X1 - b.X0
}

// Height returns the box height.
func (b BBox) Height() float64 {
	return b.Y1 - b.Y0
}

// Area returns the box area.
func (b BBox) Area() float64 {
	return b.Width() * b.Height()
}

// IsValid reports whether the box has positive dimensions.
func (b BBox) IsValid() bool {
	return b.X1 > b.X0 && b.Y1 > b.Y0
}

// Intersects reports whether two boxes overlap.
func (b BBox) Intersects(other BBox) bool {
	return !(b.X1 < other.X0 ||
		b.X0 > other.X1 ||
		b.Y1 < other.Y0 ||
		b.Y0 > other.Y1)
}

// Intersection returns the overlapping region of two boxes, or a zero box.
func (b BBox) Intersection(other BBox) BBox {
	if !b.Intersects(other) {
		return BBox{}
	}
	return BBox{
		Kind: b.Kind,
		X0:   math.Max(b.X0, other.X0),
		Y0:   math.Max(b.Y0, other.Y0),
		X1:   math.Min(b.X1, other.X1),
		Y1:   math.Min(b.Y1, other.Y1),
	}
}

// Union returns the smallest box covering both boxes.
func (b BBox) Union(other BBox) BBox {
	return BBox{
		Kind: b.Kind,
		X0:   math.Min(b.X0, other.X0),
		Y0:   math.Min(b.Y0, other.Y0),
		X1:   math.Max(b.X1, other.X1),
		Y1:   math.Max(b.Y1, other.Y1),
	}
}

// OverlapRatio returns the intersection area relative to the smaller box,
// between 0 and 1.
func (b BBox) OverlapRatio(other BBox) float64 {
	if !b.Intersects(other) {
		return 0
	}
	minArea := math.Min(b.Area(), other.Area())
	if minArea == 0 {
		return 0
	}
	return b.Intersection(other).Area() / minArea
}

// Clamped returns the box limited to the unit square.
func (b BBox) Clamped() BBox {
	return BBox{
		Kind: b.Kind,
		X0:   clamp01(b.X0),
		Y0:   clamp01(b.Y0),
		X1:   clamp01(b.X1),
		Y1:   clamp01(b.Y1),
	}
}

// Scaled maps a normalized box into a target space of the given dimensions.
// Rendering a box on an image of any size is this one multiply.
func (b BBox) Scaled(width, height float64) BBox {
	return BBox{
		Kind: b.Kind,
		X0:   b.X0 * width,
		Y0:   b.Y0 * height,
		X1:   b.X1 * width,
		Y1:   b.Y1 * height,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
