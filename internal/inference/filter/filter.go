// Package filter reduces the raw output of one detector to at most one box per class.
package filter

import (
	"cmp"
	"slices"

	"CXRaide/pkg/nn"
)

const (
	// MinScore is the confidence floor. Anything below it is noise.
	MinScore = 0.01

	// NMSThreshold is the IoU at or above which a lower scoring box is suppressed
	NMSThreshold = 0.5
)

// Set is the filtered output of one detector. It holds at most one detection per
// class, no score is below MinScore, and no two boxes overlap with IoU >= NMSThreshold.
type Set struct {
	Detections []nn.Detection
	Synthetic  bool
}

// ByClass returns the detection for class c, if there is one
func (s Set) ByClass(c nn.ClassID) (nn.Detection, bool) {
	for _, d := range s.Detections {
		if d.Class == c {
			return d, true
		}
	}
	return nn.Detection{}, false
}

// Apply runs the confidence floor, greedy NMS, and keeps the best box of each class.
//
// Only the single highest scoring box of a class survives, so two lesions of the
// same kind in one image are reported as one. This is a known simplification.
func Apply(raw nn.RawDetections) Set {
	kept := make([]nn.Detection, 0, len(raw.Detections))
	for _, d := range raw.Detections {
		if d.Score >= MinScore {
			kept = append(kept, d)
		}
	}

	// Stable, so that equal scores keep the detector's order
	slices.SortStableFunc(kept, func(a, b nn.Detection) int {
		return cmp.Compare(b.Score, a.Score)
	})

	kept = nms(kept, NMSThreshold)

	// Input is score descending, so the first box seen per class is its best
	seen := make(map[nn.ClassID]bool, len(kept))
	out := kept[:0]
	for _, d := range kept {
		if seen[d.Class] {
			continue
		}
		seen[d.Class] = true
		out = append(out, d)
	}

	return Set{
		Detections: out,
		Synthetic:  raw.Synthetic,
	}
}

// nms is greedy non-maximum suppression over dets, which must be sorted by score descending.
// Suppression is class agnostic: two findings cannot claim the same region.
func nms(dets []nn.Detection, threshold float32) []nn.Detection {
	kept := make([]nn.Detection, 0, len(dets))
outer:
	for _, d := range dets {
		for _, k := range kept {
			if d.Box.IOU(k.Box) >= threshold {
				continue outer
			}
		}
		kept = append(kept, d)
	}
	return kept
}
