package model

import (
	"errors"
	"fmt"
	"time"

	"CXRaide/pkg/nn"
	"CXRaide/pkg/onnx"

	"github.com/sirupsen/logrus"
)

// Opener deserializes the weights at path into a detector
type Opener interface {
	Open(spec Spec, path string) (nn.Detector, error)
}

type OpenerFunc func(spec Spec, path string) (nn.Detector, error)

func (f OpenerFunc) Open(spec Spec, path string) (nn.Detector, error) {
	return f(spec, path)
}

// FallbackFunc builds the detector used when the real one is unavailable
type FallbackFunc func(spec Spec) (nn.Detector, error)

func SyntheticFallback(spec Spec) (nn.Detector, error) {
	return NewSynthetic(spec)
}

// ONNXOpener opens artifacts with onnxruntime
func ONNXOpener(opts onnx.Options) Opener {
	return OpenerFunc(func(spec Spec, path string) (nn.Detector, error) {
		d, err := onnx.Open(path, opts)
		if err != nil {
			if errors.Is(err, onnx.ErrRuntimeUnavailable) {
				return nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
			}
			return nil, err
		}
		return d, nil
	})
}

type outcomeKind int

const (
	outcomeReal outcomeKind = iota
	outcomeDegraded
	outcomeFailed
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeReal:
		return "real"
	case outcomeDegraded:
		return "degraded"
	}
	return "failed"
}

// outcome of one load attempt
type outcome struct {
	kind     outcomeKind
	detector nn.Detector
	artifact string
	err      error // Cause of degradation or failure
}

type LoaderConfig struct {
	UseMockModels bool
	Resolver      *Resolver
	Opener        Opener
	Fallback      FallbackFunc // Nil uses SyntheticFallback
}

// Loader runs the load procedure for one slot, off the caller's path
type Loader struct {
	useMock  bool
	resolver *Resolver
	opener   Opener
	fallback FallbackFunc
	log      *logrus.Logger
}

func NewLoader(log *logrus.Logger, cfg LoaderConfig) *Loader {
	l := &Loader{
		useMock:  cfg.UseMockModels,
		resolver: cfg.Resolver,
		opener:   cfg.Opener,
		fallback: cfg.Fallback,
		log:      log,
	}
	if l.fallback == nil {
		l.fallback = SyntheticFallback
	}
	if l.resolver == nil {
		l.resolver = NewResolver(nil)
	}
	return l
}

// load tries, in order: mock mode, the real artifact, the synthetic fallback.
// Only a broken fallback produces outcomeFailed.
func (l *Loader) load(spec Spec) outcome {
	start := time.Now()
	fields := logrus.Fields{"model": spec.Key}

	cause := errMockMode
	if !l.useMock {
		var path string
		path, cause = l.resolver.Resolve(spec.Key, spec.Artifact)
		if cause == nil {
			fields["artifact"] = path
			l.log.WithFields(fields).Info("Loading model weights")

			var det nn.Detector
			det, cause = l.open(spec, path)
			if cause == nil {
				fields["elapsed_ms"] = time.Since(start).Milliseconds()
				fields["detector"] = det.Name()
				l.log.WithFields(fields).Info("Model loaded")
				return outcome{kind: outcomeReal, detector: det, artifact: path}
			}
		}
	}

	fields["cause"] = cause.Error()
	if cause == errMockMode {
		l.log.WithFields(fields).Info("Using synthetic detector")
	} else {
		l.log.WithFields(fields).Error("Real model unavailable, falling back to synthetic detections. PREDICTIONS WILL NOT BE REAL")
	}

	fb, err := l.buildFallback(spec)
	if err != nil {
		l.log.WithFields(logrus.Fields{
			"model": spec.Key,
			"error": err.Error(),
		}).Error("Synthetic fallback failed")
		return outcome{kind: outcomeFailed, err: err}
	}
	return outcome{kind: outcomeDegraded, detector: fb, err: cause}
}

func (l *Loader) open(spec Spec, path string) (det nn.Detector, err error) {
	defer func() {
		if r := recover(); r != nil {
			det = nil
			err = fmt.Errorf("%w: panic: %v", ErrDeserialization, r)
		}
	}()
	if l.opener == nil {
		return nil, fmt.Errorf("%w: no opener configured", ErrDetectorUnavailable)
	}
	det, err = l.opener.Open(spec, path)
	if err != nil {
		if errors.Is(err, ErrDetectorUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	if det == nil {
		return nil, fmt.Errorf("%w: opener returned no detector", ErrDeserialization)
	}
	return det, nil
}

func (l *Loader) buildFallback(spec Spec) (det nn.Detector, err error) {
	defer func() {
		if r := recover(); r != nil {
			det = nil
			err = fmt.Errorf("%w: panic: %v", ErrFallback, r)
		}
	}()
	det, err = l.fallback(spec)
	if err != nil {
		if !errors.Is(err, ErrFallback) {
			err = fmt.Errorf("%w: %v", ErrFallback, err)
		}
		return nil, err
	}
	if det == nil {
		return nil, ErrFallback
	}
	return det, nil
}
