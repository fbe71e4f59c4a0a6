// Package inference runs one prediction request through both detectors.
package inference

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"CXRaide/internal/inference/ensemble"
	"CXRaide/internal/inference/filter"
	"CXRaide/internal/inference/model"
	"CXRaide/pkg/nn"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrRetryLater         = errors.New("model is still loading, retry later")
	ErrServiceUnavailable = errors.New("model is unavailable")
	ErrPrediction         = errors.New("prediction failed")
)

// Models hands out ready detectors without blocking. *model.Registry implements it.
type Models interface {
	Acquire(key model.Key) (nn.Detector, model.Status, error)
}

type Result struct {
	Predictions []ensemble.Prediction
	Degraded    bool
	// SoftError is set when inference failed and Predictions was emptied instead
	SoftError bool
	// Detectors names the detector that served each model
	Detectors map[model.Key]string
}

type Pipeline struct {
	models Models
	merger *ensemble.Merger
	log    *logrus.Logger
}

func NewPipeline(log *logrus.Logger, models Models, merger *ensemble.Merger) *Pipeline {
	return &Pipeline{
		models: models,
		merger: merger,
		log:    log,
	}
}

// Predict runs img through both detectors and merges their findings.
// It fails only if a model is not ready. Anything that goes wrong after that is
// logged and reported as an empty result with SoftError set.
func (p *Pipeline) Predict(ctx context.Context, img *nn.Tensor) (Result, error) {
	handles, res, err := p.acquire()
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	preds, err := p.run(ctx, img, handles)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		p.log.WithFields(logrus.Fields{
			"error":     err.Error(),
			"degraded":  res.Degraded,
			"detectors": res.Detectors,
		}).Error("Prediction failed, returning no findings")
		res.Predictions = []ensemble.Prediction{}
		res.SoftError = true
		return res, nil
	}

	res.Predictions = preds.Predictions
	res.Degraded = res.Degraded || preds.Degraded
	p.log.WithFields(logrus.Fields{
		"findings":   len(res.Predictions),
		"degraded":   res.Degraded,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Debug("Prediction done")
	return res, nil
}

type handle struct {
	key      model.Key
	detector nn.Detector
	degraded bool
}

// acquire asks for both models before deciding, so that one call starts both loads
func (p *Pipeline) acquire() ([]handle, Result, error) {
	res := Result{
		Detectors: make(map[model.Key]string, len(model.Keys())),
	}
	handles := make([]handle, 0, len(model.Keys()))

	var notReady error
	for _, key := range model.Keys() {
		det, st, err := p.models.Acquire(key)
		if err != nil {
			return nil, Result{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}

		switch {
		case st.State == model.StateReady && det != nil:
			handles = append(handles, handle{key: key, detector: det, degraded: st.Degraded})
			res.Detectors[key] = det.Name()
			res.Degraded = res.Degraded || st.Degraded
		case st.State == model.StateFailed,
			st.State == model.StateLoading && errors.Is(st.LastError, model.ErrFallback):
			// Even the fallback could not be built. Retrying is unlikely to help.
			notReady = fmt.Errorf("%w: %v: %v", ErrServiceUnavailable, key, st.LastError)
		case st.State == model.StateLoading:
			if notReady == nil {
				notReady = fmt.Errorf("%w: %v", ErrRetryLater, key)
			}
		default:
			notReady = fmt.Errorf("%w: %v is %v", ErrServiceUnavailable, key, st.State)
		}
	}
	if notReady != nil {
		return nil, Result{}, notReady
	}
	return handles, res, nil
}

// run detects, filters and merges. Panics in any of these become errors.
func (p *Pipeline) run(ctx context.Context, img *nn.Tensor, handles []handle) (merged ensemble.Merged, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("stack", string(debug.Stack())).Error("Recovered from panic in prediction")
			err = fmt.Errorf("%w: panic: %v", ErrPrediction, r)
		}
	}()

	sets := make([]filter.Set, len(handles))
	g, gctx := errgroup.WithContext(ctx)
	for i, h := range handles {
		g.Go(func() error {
			set, err := detect(gctx, h, img)
			if err != nil {
				return fmt.Errorf("%v: %w", h.key, err)
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ensemble.Merged{}, err
	}

	inputs := make(map[model.Key]ensemble.Input, len(handles))
	for i, h := range handles {
		inputs[h.key] = ensemble.Input{
			Set:      sets[i],
			Degraded: h.degraded,
		}
	}
	return p.merger.Merge(inputs), nil
}

func detect(ctx context.Context, h handle, img *nn.Tensor) (set filter.Set, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic in %v: %v", ErrPrediction, h.detector.Name(), r)
		}
	}()

	raw, err := h.detector.Detect(ctx, img)
	if err != nil {
		return filter.Set{}, fmt.Errorf("%w: %v", ErrPrediction, err)
	}
	return filter.Apply(raw), nil
}
