package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIOU(t *testing.T) {
	a := Box{X1: 0, Y1: 0, X2: 10, Y2: 10}
	b := Box{X1: 5, Y1: 5, X2: 15, Y2: 15}
	assert.InDelta(t, 25.0/175.0, a.IOU(b), 1e-6)
	assert.InDelta(t, 1.0, a.IOU(a), 1e-6)

	// disjoint
	c := Box{X1: 20, Y1: 20, X2: 30, Y2: 30}
	assert.Equal(t, float32(0), a.IOU(c))

	// degenerate boxes never divide by zero
	z := Box{X1: 3, Y1: 3, X2: 3, Y2: 3}
	assert.Equal(t, float32(0), z.IOU(z))
}

func TestBoxClip(t *testing.T) {
	b := Box{X1: -10, Y1: 20, X2: 600, Y2: 700}.Clip(FrameSize)
	assert.Equal(t, Box{X1: 0, Y1: 20, X2: 512, Y2: 512}, b)
	assert.Equal(t, [4]float32{0, 20, 512, 512}, b.Array())
}

func TestClassLabels(t *testing.T) {
	assert.Len(t, AllClasses(), 9)
	for _, c := range AllClasses() {
		assert.True(t, c.Known())
	}
	assert.Equal(t, "Nodule/Mass", ClassNoduleMass.Label())
	assert.Equal(t, "Unknown-42", ClassID(42).Label())
	assert.False(t, ClassID(0).Known())
}
