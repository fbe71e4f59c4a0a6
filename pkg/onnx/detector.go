// Package onnx runs an exported chest-X-ray detector through onnxruntime.
//
// The exported graph must take a single "images" input of shape (1, 3, 512, 512)
// and produce three padded outputs: "boxes" (1, N, 4), "scores" (1, N) and
// "labels" (1, N, int64). Rows with a non-positive label are padding.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"CXRaide/pkg/nn"

	ort "github.com/yalue/onnxruntime_go"
)

const DefaultMaxDetections = 200

var (
	ErrRuntimeUnavailable = errors.New("onnx runtime unavailable")
	ErrModelFile          = errors.New("onnx model file unusable")
)

var (
	envOnce sync.Once
	envErr  error
)

type Options struct {
	SharedLibraryPath string // Path of libonnxruntime. Empty uses the onnxruntime_go default.
	MaxDetections     int    // N in the output shapes. Zero uses DefaultMaxDetections.
	Threads           int    // Intra-op threads. Zero uses runtime.NumCPU().
}

// InitEnvironment loads the onnxruntime shared library once per process.
// Every later call returns the result of the first one.
func InitEnvironment(libPath string) error {
	envOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
		}
	})
	return envErr
}

// Shutdown releases the onnxruntime environment
func Shutdown() {
	if ort.IsInitialized() {
		ort.DestroyEnvironment()
	}
}

// Detector owns one session with pre-bound tensors.
// Bound tensors are shared state, so Run is serialized with mu.
type Detector struct {
	mu            sync.Mutex
	name          string
	session       *ort.AdvancedSession
	input         *ort.Tensor[float32]
	boxes         *ort.Tensor[float32]
	scores        *ort.Tensor[float32]
	labels        *ort.Tensor[int64]
	maxDetections int
	closed        bool
}

// Open creates a session for the model at modelPath.
func Open(modelPath string, opts Options) (*Detector, error) {
	st, err := os.Stat(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelFile, err)
	}
	if st.IsDir() || st.Size() == 0 {
		return nil, fmt.Errorf("%w: %v is empty or a directory", ErrModelFile, modelPath)
	}

	if err := InitEnvironment(opts.SharedLibraryPath); err != nil {
		return nil, err
	}

	maxDetections := opts.MaxDetections
	if maxDetections <= 0 {
		maxDetections = DefaultMaxDetections
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(threads)
	options.SetInterOpNumThreads(1)

	d := &Detector{
		name:          filepath.Base(modelPath),
		maxDetections: maxDetections,
	}

	d.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, nn.FrameSize, nn.FrameSize))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}
	d.boxes, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(maxDetections), 4))
	if err != nil {
		d.destroy()
		return nil, fmt.Errorf("error creating boxes tensor: %w", err)
	}
	d.scores, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(maxDetections)))
	if err != nil {
		d.destroy()
		return nil, fmt.Errorf("error creating scores tensor: %w", err)
	}
	d.labels, err = ort.NewEmptyTensor[int64](ort.NewShape(1, int64(maxDetections)))
	if err != nil {
		d.destroy()
		return nil, fmt.Errorf("error creating labels tensor: %w", err)
	}

	d.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"images"},
		[]string{"boxes", "scores", "labels"},
		[]ort.ArbitraryTensor{d.input},
		[]ort.ArbitraryTensor{d.boxes, d.scores, d.labels},
		options,
	)
	if err != nil {
		d.destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return d, nil
}

func (d *Detector) Name() string {
	return "onnx/" + d.name
}

func (d *Detector) Detect(ctx context.Context, img *nn.Tensor) (nn.RawDetections, error) {
	if img == nil || len(img.Data) != 3*nn.FrameSize*nn.FrameSize {
		return nn.RawDetections{}, fmt.Errorf("unexpected input tensor size")
	}
	if err := ctx.Err(); err != nil {
		return nn.RawDetections{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nn.RawDetections{}, errors.New("detector is closed")
	}

	copy(d.input.GetData(), img.Data)
	if err := d.session.Run(); err != nil {
		return nn.RawDetections{}, fmt.Errorf("model inference: %w", err)
	}

	boxes := d.boxes.GetData()
	scores := d.scores.GetData()
	labels := d.labels.GetData()

	out := nn.RawDetections{
		Detections: make([]nn.Detection, 0, 16),
	}
	for i := 0; i < d.maxDetections; i++ {
		if labels[i] <= 0 {
			continue
		}
		box := nn.Box{
			X1: boxes[i*4],
			Y1: boxes[i*4+1],
			X2: boxes[i*4+2],
			Y2: boxes[i*4+3],
		}
		out.Detections = append(out.Detections, nn.Detection{
			Box:   box.Clip(nn.FrameSize),
			Score: scores[i],
			Class: nn.ClassID(labels[i]),
		})
	}
	return out, nil
}

func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.destroy()
}

func (d *Detector) destroy() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.input != nil {
		d.input.Destroy()
	}
	if d.boxes != nil {
		d.boxes.Destroy()
	}
	if d.scores != nil {
		d.scores.Destroy()
	}
	if d.labels != nil {
		d.labels.Destroy()
	}
}
