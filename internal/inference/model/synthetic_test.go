package model

import (
	"context"
	"errors"
	"testing"

	"CXRaide/pkg/nn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTensor(w, h int, mean float32) *nn.Tensor {
	return &nn.Tensor{
		Data:          make([]float32, 3*nn.FrameSize*nn.FrameSize),
		Width:         nn.FrameSize,
		Height:        nn.FrameSize,
		SourceWidth:   w,
		SourceHeight:  h,
		MeanIntensity: mean,
	}
}

func TestSyntheticIsDeterministic(t *testing.T) {
	for _, spec := range DefaultSpecs("", "") {
		s, err := NewSynthetic(spec)
		require.NoError(t, err)

		img := testTensor(1024, 980, 0.42)
		a, err := s.Detect(context.Background(), img)
		require.NoError(t, err)
		b, err := s.Detect(context.Background(), testTensor(1024, 980, 0.42))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestSyntheticOutputContract(t *testing.T) {
	for _, spec := range DefaultSpecs("", "") {
		s, err := NewSynthetic(spec)
		require.NoError(t, err)
		assert.Equal(t, "synthetic/"+string(spec.Key), s.Name())

		for i := 0; i < 50; i++ {
			img := testTensor(200+i*13, 300+i*7, float32(i)/50)
			out, err := s.Detect(context.Background(), img)
			require.NoError(t, err)

			assert.True(t, out.Synthetic)
			require.GreaterOrEqual(t, len(out.Detections), 1)
			require.LessOrEqual(t, len(out.Detections), syntheticMaxBoxes)

			classes := map[nn.ClassID]bool{}
			for _, d := range out.Detections {
				assert.False(t, classes[d.Class], "class %v emitted twice", d.Class)
				classes[d.Class] = true
				assert.True(t, spec.Knows(d.Class))
				assert.GreaterOrEqual(t, d.Score, float32(nn.VisibleConfidence))
				assert.Less(t, d.Score, float32(1))
				assert.Greater(t, d.Box.Area(), float32(0))
				assert.LessOrEqual(t, d.Box.X2, float32(nn.FrameSize))
				assert.LessOrEqual(t, d.Box.Y2, float32(nn.FrameSize))
			}
		}
	}
}

func TestSyntheticVariesWithImage(t *testing.T) {
	s, err := NewSynthetic(DefaultSpecs("", "")[0])
	require.NoError(t, err)

	distinct := map[float32]bool{}
	for i := 0; i < 10; i++ {
		out, err := s.Detect(context.Background(), testTensor(512, 512, float32(i)/10))
		require.NoError(t, err)
		distinct[out.Detections[0].Score] = true
	}
	assert.Greater(t, len(distinct), 1)
}

func TestSyntheticWithoutRegions(t *testing.T) {
	_, err := NewSynthetic(Spec{
		Key:     KeyBroad,
		Classes: []nn.ClassID{nn.ClassPneumothorax},
	})
	assert.True(t, errors.Is(err, ErrFallback))
}
