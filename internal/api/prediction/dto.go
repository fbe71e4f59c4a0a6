package prediction

import "time"

const NoFindingsMessage = "No abnormalities detected with confidence above threshold"

type PredictionItem struct {
	ClassID    int        `json:"class_id"`
	Label      string     `json:"label"`
	Confidence float32    `json:"confidence"`
	BBox       [4]float32 `json:"bbox"` // x1, y1, x2, y2 in the 512x512 frame
	Source     string     `json:"source"`
}

type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type PredictResponse struct {
	PredictionID string           `json:"prediction_id"`
	Predictions  []PredictionItem `json:"predictions"`
	Degraded     bool             `json:"degraded"`
	SoftError    bool             `json:"soft_error"`
	Message      string           `json:"message,omitempty"`
	ImageSize    ImageSize        `json:"image_size"`    // Frame the boxes are expressed in
	OriginalSize ImageSize        `json:"original_size"` // Size of the uploaded image
	Cached       bool             `json:"cached"`
}

type ModelStatusResponse struct {
	Model     string     `json:"model"`
	State     string     `json:"state"`
	Degraded  bool       `json:"degraded"`
	LastError string     `json:"last_error,omitempty"`
	Detector  string     `json:"detector,omitempty"`
	Artifact  string     `json:"artifact,omitempty"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
	Loads     int        `json:"loads"`
	Classes   []string   `json:"classes"`
}

type ModelStatusListResponse struct {
	Models []ModelStatusResponse `json:"models"`
	// Ready is true when every model can serve predictions
	Ready bool `json:"ready"`
	// Settled is true when no model is loading or waiting to load
	Settled bool `json:"settled"`
}
