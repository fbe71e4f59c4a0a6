package model

import (
	"fmt"
	"slices"

	"CXRaide/pkg/nn"
)

// Key names one of the two detectors
type Key string

const (
	KeyBroad   Key = "broad"   // 9-class detector (IT2)
	KeyFocused Key = "focused" // 6-class detector (IT3)
)

// Keys returns every model key, in a fixed order
func Keys() []Key {
	return []Key{KeyBroad, KeyFocused}
}

func ParseKey(s string) (Key, error) {
	k := Key(s)
	if !slices.Contains(Keys(), k) {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
	}
	return k, nil
}

func (k Key) String() string {
	return string(k)
}

// Spec is the static description of a detector: where its weights live and what it can see.
type Spec struct {
	Key      Key
	Artifact string       // File name searched for by the Resolver
	Classes  []nn.ClassID // Classes the detector was trained on
}

func (s Spec) Knows(c nn.ClassID) bool {
	return slices.Contains(s.Classes, c)
}

const (
	DefaultBroadArtifact   = "IT2_model_epoch_300.onnx"
	DefaultFocusedArtifact = "IT3_model_epoch_260.onnx"
)

// DefaultSpecs returns the specs of the two production detectors.
// Empty artifact names fall back to the defaults.
func DefaultSpecs(broadArtifact, focusedArtifact string) []Spec {
	if broadArtifact == "" {
		broadArtifact = DefaultBroadArtifact
	}
	if focusedArtifact == "" {
		focusedArtifact = DefaultFocusedArtifact
	}
	return []Spec{
		{
			Key:      KeyBroad,
			Artifact: broadArtifact,
			Classes:  nn.AllClasses(),
		},
		{
			Key:      KeyFocused,
			Artifact: focusedArtifact,
			Classes: []nn.ClassID{
				nn.ClassCardiomegaly,
				nn.ClassPleuralThickening,
				nn.ClassPleuralEffusion,
				nn.ClassNoduleMass,
				nn.ClassInfiltration,
				nn.ClassConsolidation,
			},
		},
	}
}
