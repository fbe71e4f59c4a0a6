package ensemble

import (
	"errors"
	"math/rand"
	"testing"

	"CXRaide/internal/inference/filter"
	"CXRaide/internal/inference/model"
	"CXRaide/pkg/nn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(x float32) nn.Box {
	return nn.Box{X1: x, Y1: x, X2: x + 20, Y2: x + 20}
}

func TestDefaultPartitionIsValid(t *testing.T) {
	p := DefaultPartition()
	require.NoError(t, p.Validate(model.DefaultSpecs("", "")))
	assert.Equal(t, []nn.ClassID{2, 4, 5, 6}, p.Owned(model.KeyFocused))
	assert.Equal(t, []nn.ClassID{1, 3, 7, 8, 9}, p.Owned(model.KeyBroad))
}

func TestPartitionValidation(t *testing.T) {
	specs := model.DefaultSpecs("", "")

	missing := DefaultPartition()
	delete(missing, nn.ClassAtelectasis)
	assert.True(t, errors.Is(missing.Validate(specs), ErrInvalidPartition))

	// Focused does not know Pneumothorax
	wrongOwner := DefaultPartition()
	wrongOwner[nn.ClassPneumothorax] = model.KeyFocused
	assert.True(t, errors.Is(wrongOwner.Validate(specs), ErrInvalidPartition))

	unknown := DefaultPartition()
	unknown[nn.ClassID(42)] = model.KeyBroad
	assert.True(t, errors.Is(unknown.Validate(specs), ErrInvalidPartition))
}

func TestOwnerWinsOverHigherScore(t *testing.T) {
	m := NewMerger(DefaultPartition())

	merged := m.Merge(map[model.Key]Input{
		model.KeyBroad: {Set: filter.Set{Detections: []nn.Detection{
			{Box: box(10), Score: 0.6, Class: nn.ClassConsolidation},
		}}},
		model.KeyFocused: {Set: filter.Set{Detections: []nn.Detection{
			{Box: box(300), Score: 0.99, Class: nn.ClassConsolidation},
		}}},
	})

	require.Len(t, merged.Predictions, 1)
	p := merged.Predictions[0]
	assert.Equal(t, model.KeyBroad, p.Source)
	assert.Equal(t, box(10), p.Box)
	assert.Equal(t, float32(0.6), p.Confidence)
	assert.Equal(t, "Consolidation", p.Label)
	assert.False(t, merged.Degraded)
}

func TestNonOwnerDetectionIsDropped(t *testing.T) {
	m := NewMerger(DefaultPartition())

	// Only the non-owner saw these
	merged := m.Merge(map[model.Key]Input{
		model.KeyBroad: {Set: filter.Set{Detections: []nn.Detection{
			{Box: box(10), Score: 0.9, Class: nn.ClassNoduleMass},
		}}},
		model.KeyFocused: {Set: filter.Set{Detections: []nn.Detection{
			{Box: box(100), Score: 0.9, Class: nn.ClassCardiomegaly},
		}}},
	})
	assert.Empty(t, merged.Predictions)
	assert.NotNil(t, merged.Predictions)
}

func TestMergeOrdersByConfidence(t *testing.T) {
	m := NewMerger(DefaultPartition())

	merged := m.Merge(map[model.Key]Input{
		model.KeyBroad: {Set: filter.Set{Detections: []nn.Detection{
			{Box: box(10), Score: 0.5, Class: nn.ClassCardiomegaly},
			{Box: box(50), Score: 0.7, Class: nn.ClassPneumothorax},
		}}},
		model.KeyFocused: {Set: filter.Set{Detections: []nn.Detection{
			{Box: box(100), Score: 0.7, Class: nn.ClassPleuralEffusion},
			{Box: box(200), Score: 0.9, Class: nn.ClassInfiltration},
		}}},
	})

	var classes []nn.ClassID
	for _, p := range merged.Predictions {
		classes = append(classes, p.Class)
	}
	assert.Equal(t, []nn.ClassID{
		nn.ClassInfiltration,
		nn.ClassPleuralEffusion,
		nn.ClassPneumothorax,
		nn.ClassCardiomegaly,
	}, classes)
}

func TestDegradedInputMarksResult(t *testing.T) {
	m := NewMerger(DefaultPartition())

	merged := m.Merge(map[model.Key]Input{
		model.KeyBroad: {Set: filter.Set{}},
		model.KeyFocused: {
			Set:      filter.Set{Synthetic: true, Detections: []nn.Detection{{Box: box(1), Score: 0.8, Class: nn.ClassNoduleMass}}},
			Degraded: true,
		},
	})
	require.Len(t, merged.Predictions, 1)
	assert.True(t, merged.Degraded)
}

func TestPartitionAuthorityOnRandomInput(t *testing.T) {
	p := DefaultPartition()
	m := NewMerger(p)
	rng := rand.New(rand.NewSource(3))

	randomSet := func() filter.Set {
		var raw nn.RawDetections
		for _, c := range nn.AllClasses() {
			if rng.Intn(2) == 0 {
				x := rng.Float32() * 400
				raw.Detections = append(raw.Detections, nn.Detection{Box: box(x), Score: rng.Float32(), Class: c})
			}
		}
		return filter.Apply(raw)
	}

	for i := 0; i < 100; i++ {
		merged := m.Merge(map[model.Key]Input{
			model.KeyBroad:   {Set: randomSet()},
			model.KeyFocused: {Set: randomSet()},
		})
		seen := map[nn.ClassID]bool{}
		for _, pr := range merged.Predictions {
			assert.Equal(t, p[pr.Class], pr.Source)
			assert.False(t, seen[pr.Class])
			seen[pr.Class] = true
		}
	}
}
