package model

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"CXRaide/pkg/nn"
)

const (
	syntheticMaxBoxes = 3
	syntheticMinScore = 0.65
	syntheticMaxScore = 0.95
)

// region generates a plausible box for a class, given a source of randomness
type region func(rng *rand.Rand) nn.Box

// Anatomically plausible default regions in the 512x512 frame
var syntheticRegions = map[nn.ClassID]region{
	// Heart
	nn.ClassCardiomegaly: func(rng *rand.Rand) nn.Box {
		return nn.Box{
			X1: 150 + rng.Float32()*50,
			Y1: 120 + rng.Float32()*50,
			X2: 300 + rng.Float32()*50,
			Y2: 300 + rng.Float32()*50,
		}
	},
	// Lower lung
	nn.ClassPleuralEffusion: func(rng *rand.Rand) nn.Box {
		return nn.Box{
			X1: 80 + rng.Float32()*30,
			Y1: 250 + rng.Float32()*50,
			X2: 150 + rng.Float32()*30,
			Y2: 400 + rng.Float32()*20,
		}
	},
	// Anywhere in the lung field
	nn.ClassNoduleMass: func(rng *rand.Rand) nn.Box {
		x1 := 120 + rng.Float32()*200
		y1 := 100 + rng.Float32()*200
		return nn.Box{
			X1: x1,
			Y1: y1,
			X2: x1 + 50 + rng.Float32()*30,
			Y2: y1 + 50 + rng.Float32()*30,
		}
	},
	// Upper lung
	nn.ClassInfiltration: func(rng *rand.Rand) nn.Box {
		return nn.Box{
			X1: 120 + rng.Float32()*50,
			Y1: 100 + rng.Float32()*50,
			X2: 220 + rng.Float32()*50,
			Y2: 200 + rng.Float32()*50,
		}
	},
}

// Synthetic stands in for a detector whose weights are missing or broken.
// Its output is marked Synthetic, and it is reproducible for a given image.
type Synthetic struct {
	key     Key
	classes []nn.ClassID
}

// NewSynthetic builds a fallback restricted to the classes that spec knows
func NewSynthetic(spec Spec) (*Synthetic, error) {
	s := &Synthetic{
		key: spec.Key,
	}
	// Iterate in class order, so that the class list is deterministic
	for _, c := range nn.AllClasses() {
		if _, ok := syntheticRegions[c]; ok && spec.Knows(c) {
			s.classes = append(s.classes, c)
		}
	}
	if len(s.classes) == 0 {
		return nil, fmt.Errorf("%w: model %v has no class with a synthetic region", ErrFallback, spec.Key)
	}
	return s, nil
}

func (s *Synthetic) Name() string {
	return "synthetic/" + string(s.key)
}

func (s *Synthetic) Close() {
}

func (s *Synthetic) Detect(ctx context.Context, img *nn.Tensor) (nn.RawDetections, error) {
	if img == nil {
		return nn.RawDetections{}, errors.New("nil image")
	}

	rng := rand.New(rand.NewSource(s.seed(img)))

	n := 1 + rng.Intn(min(syntheticMaxBoxes, len(s.classes)))
	order := rng.Perm(len(s.classes))

	out := nn.RawDetections{
		Detections: make([]nn.Detection, 0, n),
		Synthetic:  true,
	}
	for i := 0; i < n; i++ {
		c := s.classes[order[i]]
		out.Detections = append(out.Detections, nn.Detection{
			Box:   syntheticRegions[c](rng).Clip(nn.FrameSize),
			Score: syntheticMinScore + rng.Float32()*(syntheticMaxScore-syntheticMinScore),
			Class: c,
		})
	}
	return out, nil
}

// seed is derived from the image characteristics and the model key only
func (s *Synthetic) seed(img *nn.Tensor) int64 {
	h := fnv.New64a()
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:], uint32(img.SourceWidth))
	binary.LittleEndian.PutUint32(buf[4:], uint32(img.SourceHeight))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(img.MeanIntensity))
	h.Write(buf[:])
	h.Write([]byte(s.key))
	return int64(h.Sum64() & math.MaxInt64)
}
