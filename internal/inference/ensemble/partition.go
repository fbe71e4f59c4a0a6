// Package ensemble merges the filtered output of the two detectors.
//
// Each class has exactly one authoritative detector. Scores of the two detectors are
// never compared, since they were trained separately and their scales differ.
package ensemble

import (
	"errors"
	"fmt"
	"slices"

	"CXRaide/internal/inference/model"
	"CXRaide/pkg/nn"
)

var ErrInvalidPartition = errors.New("invalid class partition")

// Partition assigns each class to the detector that owns it
type Partition map[nn.ClassID]model.Key

// DefaultPartition gives the focused detector the classes it specializes in.
// Everything else, including Cardiomegaly and Consolidation which both detectors know, belongs to broad.
func DefaultPartition() Partition {
	return Partition{
		nn.ClassCardiomegaly:      model.KeyBroad,
		nn.ClassPleuralThickening: model.KeyFocused,
		nn.ClassPulmonaryFibrosis: model.KeyBroad,
		nn.ClassPleuralEffusion:   model.KeyFocused,
		nn.ClassNoduleMass:        model.KeyFocused,
		nn.ClassInfiltration:      model.KeyFocused,
		nn.ClassConsolidation:     model.KeyBroad,
		nn.ClassAtelectasis:       model.KeyBroad,
		nn.ClassPneumothorax:      model.KeyBroad,
	}
}

// Validate checks that every known class has an owner, and that the owner can detect it
func (p Partition) Validate(specs []model.Spec) error {
	byKey := make(map[model.Key]model.Spec, len(specs))
	for _, s := range specs {
		byKey[s.Key] = s
	}

	for _, c := range nn.AllClasses() {
		owner, ok := p[c]
		if !ok {
			return fmt.Errorf("%w: %v has no owner", ErrInvalidPartition, c.Label())
		}
		spec, ok := byKey[owner]
		if !ok {
			return fmt.Errorf("%w: %v owned by unknown model %q", ErrInvalidPartition, c.Label(), owner)
		}
		if !spec.Knows(c) {
			return fmt.Errorf("%w: %v owned by %v, which does not detect it", ErrInvalidPartition, c.Label(), owner)
		}
	}
	for c := range p {
		if !c.Known() {
			return fmt.Errorf("%w: unknown class %d", ErrInvalidPartition, int(c))
		}
	}
	return nil
}

// Owned returns the classes owned by key, in id order
func (p Partition) Owned(key model.Key) []nn.ClassID {
	var out []nn.ClassID
	for c, k := range p {
		if k == key {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}
