package ensemble

import (
	"cmp"
	"slices"

	"CXRaide/internal/inference/filter"
	"CXRaide/internal/inference/model"
	"CXRaide/pkg/nn"
)

// Prediction is one finding of the merged result
type Prediction struct {
	Box        nn.Box
	Class      nn.ClassID
	Label      string
	Confidence float32
	Source     model.Key
}

// Input is the filtered output of one detector, and whether its slot is degraded
type Input struct {
	Set      filter.Set
	Degraded bool
}

type Merged struct {
	Predictions []Prediction
	Degraded    bool
}

type Merger struct {
	partition Partition
}

func NewMerger(p Partition) *Merger {
	return &Merger{
		partition: p,
	}
}

// Merge takes every class only from the detector that owns it, whatever the other one says.
// The result is ordered by confidence, highest first.
func (m *Merger) Merge(inputs map[model.Key]Input) Merged {
	out := Merged{
		Predictions: []Prediction{},
	}
	for _, in := range inputs {
		if in.Degraded || in.Set.Synthetic {
			out.Degraded = true
		}
	}

	for _, c := range nn.AllClasses() {
		owner, ok := m.partition[c]
		if !ok {
			continue
		}
		in, ok := inputs[owner]
		if !ok {
			continue
		}
		d, ok := in.Set.ByClass(c)
		if !ok {
			continue
		}
		out.Predictions = append(out.Predictions, Prediction{
			Box:        d.Box,
			Class:      c,
			Label:      c.Label(),
			Confidence: d.Score,
			Source:     owner,
		})
	}

	slices.SortStableFunc(out.Predictions, func(a, b Prediction) int {
		if n := cmp.Compare(b.Confidence, a.Confidence); n != 0 {
			return n
		}
		return cmp.Compare(a.Class, b.Class)
	})
	return out
}
