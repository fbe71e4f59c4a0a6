// Package nn is the boundary between the prediction core and whatever runs the
// neural network. Everything behind Detector is opaque to the rest of the service.
package nn

import (
	"context"
	"fmt"
)

// FrameSize is the width and height of the processing frame. All boxes are reported in this frame.
const FrameSize = 512

// VisibleConfidence is the lowest score we would ever show to a user as a finding.
const VisibleConfidence = 0.5

// ClassID identifies an abnormality category. Zero is the detector background class.
type ClassID int

const (
	ClassCardiomegaly      ClassID = 1
	ClassPleuralThickening ClassID = 2
	ClassPulmonaryFibrosis ClassID = 3
	ClassPleuralEffusion   ClassID = 4
	ClassNoduleMass        ClassID = 5
	ClassInfiltration      ClassID = 6
	ClassConsolidation     ClassID = 7
	ClassAtelectasis       ClassID = 8
	ClassPneumothorax      ClassID = 9
)

var classLabels = map[ClassID]string{
	ClassCardiomegaly:      "Cardiomegaly",
	ClassPleuralThickening: "Pleural thickening",
	ClassPulmonaryFibrosis: "Pulmonary fibrosis",
	ClassPleuralEffusion:   "Pleural effusion",
	ClassNoduleMass:        "Nodule/Mass",
	ClassInfiltration:      "Infiltration",
	ClassConsolidation:     "Consolidation",
	ClassAtelectasis:       "Atelectasis",
	ClassPneumothorax:      "Pneumothorax",
}

// AllClasses lists every known class, in id order
func AllClasses() []ClassID {
	return []ClassID{
		ClassCardiomegaly,
		ClassPleuralThickening,
		ClassPulmonaryFibrosis,
		ClassPleuralEffusion,
		ClassNoduleMass,
		ClassInfiltration,
		ClassConsolidation,
		ClassAtelectasis,
		ClassPneumothorax,
	}
}

func (c ClassID) Known() bool {
	_, ok := classLabels[c]
	return ok
}

func (c ClassID) Label() string {
	if l, ok := classLabels[c]; ok {
		return l
	}
	return fmt.Sprintf("Unknown-%d", int(c))
}

// Detection is a single box found by a detector
type Detection struct {
	Box   Box     `json:"box"`
	Score float32 `json:"score"`
	Class ClassID `json:"class"`
}

// RawDetections is the unfiltered output of one Detect call.
// Synthetic is true when the detections did not come from a real network.
type RawDetections struct {
	Detections []Detection
	Synthetic  bool
}

// Detector runs a neural network over a preprocessed image.
type Detector interface {
	// Detect returns every box the network produced, in the 512x512 frame.
	// Implementations must be safe for concurrent use.
	Detect(ctx context.Context, img *Tensor) (RawDetections, error)

	// Name identifies the detector in logs and status reports
	Name() string

	// Close releases the underlying resources. The detector must not be used afterwards.
	Close()
}
