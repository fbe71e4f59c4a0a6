package nn

import (
	"github.com/chewxy/math32"
)

// Box is an axis aligned rectangle in the 512x512 processing frame.
// (X1,Y1) is the top-left corner and (X2,Y2) the bottom-right corner.
type Box struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

func (b Box) Width() float32 {
	return math32.Max(0, b.X2-b.X1)
}

func (b Box) Height() float32 {
	return math32.Max(0, b.Y2-b.Y1)
}

func (b Box) Area() float32 {
	return b.Width() * b.Height()
}

func (b Box) Intersection(o Box) Box {
	x1 := math32.Max(b.X1, o.X1)
	y1 := math32.Max(b.Y1, o.Y1)
	x2 := math32.Min(b.X2, o.X2)
	y2 := math32.Min(b.Y2, o.Y2)
	return Box{
		X1: x1,
		Y1: y1,
		X2: math32.Max(x1, x2),
		Y2: math32.Max(y1, y2),
	}
}

// Intersection over Union. Degenerate boxes (zero union) have an IoU of 0.
func (b Box) IOU(o Box) float32 {
	inter := b.Intersection(o).Area()
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Clip the box to the [0,size] square
func (b Box) Clip(size float32) Box {
	return Box{
		X1: math32.Min(math32.Max(b.X1, 0), size),
		Y1: math32.Min(math32.Max(b.Y1, 0), size),
		X2: math32.Min(math32.Max(b.X2, 0), size),
		Y2: math32.Min(math32.Max(b.Y2, 0), size),
	}
}

// Array returns the box as [x1, y1, x2, y2], which is the wire format of the predict API.
func (b Box) Array() [4]float32 {
	return [4]float32{b.X1, b.Y1, b.X2, b.Y2}
}
