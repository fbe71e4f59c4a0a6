package filter

import (
	"math/rand"
	"testing"

	"CXRaide/pkg/nn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func det(c nn.ClassID, score float32, x1, y1, x2, y2 float32) nn.Detection {
	return nn.Detection{
		Box:   nn.Box{X1: x1, Y1: y1, X2: x2, Y2: y2},
		Score: score,
		Class: c,
	}
}

func TestOverlappingBoxesKeepHighest(t *testing.T) {
	// b lies inside a and covers 70% of it
	a := det(nn.ClassCardiomegaly, 0.9, 0, 0, 100, 100)
	b := det(nn.ClassCardiomegaly, 0.95, 0, 0, 100, 70)
	require.InDelta(t, 0.7, a.Box.IOU(b.Box), 1e-6)

	s := Apply(nn.RawDetections{Detections: []nn.Detection{a, b}})
	require.Len(t, s.Detections, 1)
	assert.Equal(t, float32(0.95), s.Detections[0].Score)
}

func TestConfidenceFloor(t *testing.T) {
	s := Apply(nn.RawDetections{Detections: []nn.Detection{
		det(nn.ClassCardiomegaly, 0.009, 0, 0, 10, 10),
		det(nn.ClassNoduleMass, 0.01, 100, 100, 110, 110),
	}})
	require.Len(t, s.Detections, 1)
	assert.Equal(t, nn.ClassNoduleMass, s.Detections[0].Class)
}

func TestOneDetectionPerClass(t *testing.T) {
	s := Apply(nn.RawDetections{Detections: []nn.Detection{
		det(nn.ClassNoduleMass, 0.6, 0, 0, 10, 10),
		det(nn.ClassNoduleMass, 0.8, 200, 200, 220, 220),
		det(nn.ClassInfiltration, 0.7, 400, 400, 450, 450),
	}})
	require.Len(t, s.Detections, 2)
	d, ok := s.ByClass(nn.ClassNoduleMass)
	require.True(t, ok)
	assert.Equal(t, float32(0.8), d.Score)

	_, ok = s.ByClass(nn.ClassPneumothorax)
	assert.False(t, ok)
}

func TestSuppressionAcrossClasses(t *testing.T) {
	s := Apply(nn.RawDetections{Detections: []nn.Detection{
		det(nn.ClassConsolidation, 0.4, 0, 0, 100, 100),
		det(nn.ClassInfiltration, 0.8, 5, 5, 100, 100),
	}})
	require.Len(t, s.Detections, 1)
	assert.Equal(t, nn.ClassInfiltration, s.Detections[0].Class)
}

func TestBelowThresholdOverlapSurvives(t *testing.T) {
	// IoU of exactly one third
	s := Apply(nn.RawDetections{Detections: []nn.Detection{
		det(nn.ClassCardiomegaly, 0.9, 0, 0, 100, 100),
		det(nn.ClassAtelectasis, 0.8, 50, 0, 150, 100),
	}})
	assert.Len(t, s.Detections, 2)
}

func TestEmptyAndSyntheticPassThrough(t *testing.T) {
	s := Apply(nn.RawDetections{Synthetic: true})
	assert.Empty(t, s.Detections)
	assert.True(t, s.Synthetic)
}

func TestInvariantsOnRandomInput(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	classes := nn.AllClasses()

	for round := 0; round < 200; round++ {
		var raw nn.RawDetections
		n := rng.Intn(40)
		for i := 0; i < n; i++ {
			x, y := rng.Float32()*400, rng.Float32()*400
			raw.Detections = append(raw.Detections, nn.Detection{
				Box:   nn.Box{X1: x, Y1: y, X2: x + 10 + rng.Float32()*100, Y2: y + 10 + rng.Float32()*100},
				Score: rng.Float32(),
				Class: classes[rng.Intn(len(classes))],
			})
		}

		s := Apply(raw)
		seen := map[nn.ClassID]bool{}
		for i, a := range s.Detections {
			assert.GreaterOrEqual(t, a.Score, float32(MinScore))
			assert.False(t, seen[a.Class])
			seen[a.Class] = true
			for _, b := range s.Detections[i+1:] {
				assert.Less(t, a.Box.IOU(b.Box), float32(NMSThreshold))
			}
		}
	}
}
