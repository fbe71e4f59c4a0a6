package predictionService

import (
	"CXRaide/internal/api/prediction"
	"CXRaide/internal/inference"
	"CXRaide/internal/inference/ensemble"
	"CXRaide/internal/inference/model"
	"CXRaide/pkg/log"
	"CXRaide/pkg/nn"
	"CXRaide/pkg/redis"
	"CXRaide/pkg/response"
	"context"
	"errors"
	jsoniter "github.com/json-iterator/go"
	"strings"
	"time"
)

const cacheKeyPrefix = "prediction:"

func (s *predictionService) Predict(ctx context.Context, image []byte) (*prediction.PredictResponse, error) {
	if len(image) == 0 {
		return nil, prediction.ErrNoImage
	}

	img, err := nn.DecodeTensor(image)
	if err != nil {
		if errors.Is(err, nn.ErrImageTooLarge) {
			return nil, response.Wrap(prediction.ErrImageTooLarge, err)
		}
		return nil, response.Wrap(prediction.ErrInvalidImage, err)
	}

	cacheKey, cacheable := s.cacheKey(image)
	if cacheable {
		if cached, ok := s.lookup(ctx, cacheKey); ok {
			return cached, nil
		}
	}

	res, err := s.pipeline.Predict(ctx, img)
	if err != nil {
		switch {
		case errors.Is(err, inference.ErrRetryLater):
			return nil, response.Wrap(prediction.ErrModelLoading, err)
		case errors.Is(err, inference.ErrServiceUnavailable):
			return nil, response.Wrap(prediction.ErrModelUnavailable, err)
		}
		return nil, err
	}

	resp := s.makeResponse(res, img)
	if id, err := s.utils.NewULIDFromTimestamp(time.Now()); err == nil {
		resp.PredictionID = id
	}

	s.log.WithFields(log.Fields{
		"prediction_id": resp.PredictionID,
		"findings":      len(resp.Predictions),
		"degraded":      resp.Degraded,
		"soft_error":    resp.SoftError,
	}).Info("Prediction served")

	// Degraded and soft-error results would pin bad output for the whole TTL
	if cacheable && !resp.Degraded && !resp.SoftError {
		s.store(ctx, s.cacheKeyFor(image, res.Detectors), resp)
	}

	return resp, nil
}

func (s *predictionService) makeResponse(res inference.Result, img *nn.Tensor) *prediction.PredictResponse {
	resp := &prediction.PredictResponse{
		Predictions:  make([]prediction.PredictionItem, 0, len(res.Predictions)),
		Degraded:     res.Degraded,
		SoftError:    res.SoftError,
		ImageSize:    prediction.ImageSize{Width: nn.FrameSize, Height: nn.FrameSize},
		OriginalSize: prediction.ImageSize{Width: img.SourceWidth, Height: img.SourceHeight},
	}
	for _, p := range res.Predictions {
		resp.Predictions = append(resp.Predictions, toItem(p))
	}
	if len(resp.Predictions) == 0 {
		resp.Message = prediction.NoFindingsMessage
	}
	return resp
}

func toItem(p ensemble.Prediction) prediction.PredictionItem {
	return prediction.PredictionItem{
		ClassID:    int(p.Class),
		Label:      p.Label,
		Confidence: p.Confidence,
		BBox:       p.Box.Array(),
		Source:     p.Source.String(),
	}
}

// cacheKey is only known when both models are ready with real detectors
func (s *predictionService) cacheKey(image []byte) (string, bool) {
	if s.cacheTTL <= 0 || !s.cache.Enabled() {
		return "", false
	}

	detectors := make(map[model.Key]string, len(model.Keys()))
	for _, st := range s.registry.Statuses() {
		if st.State != model.StateReady || st.Degraded {
			return "", false
		}
		detectors[st.Key] = st.Detector
	}
	return s.cacheKeyFor(image, detectors), true
}

// cacheKeyFor includes the detector names so a reload with new weights never serves stale results
func (s *predictionService) cacheKeyFor(image []byte, detectors map[model.Key]string) string {
	var sb strings.Builder
	sb.WriteString(cacheKeyPrefix)
	sb.WriteString(s.utils.Fingerprint(image))
	for _, k := range model.Keys() {
		sb.WriteByte(':')
		sb.WriteString(detectors[k])
	}
	return sb.String()
}

func (s *predictionService) lookup(ctx context.Context, key string) (*prediction.PredictResponse, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.log.WithFields(log.Fields{
				"key":   key,
				"error": err.Error(),
			}).Warn("Prediction cache lookup failed")
		}
		return nil, false
	}

	var resp prediction.PredictResponse
	if err := jsoniter.Unmarshal(data, &resp); err != nil {
		s.log.WithFields(log.Fields{
			"key":   key,
			"error": err.Error(),
		}).Warn("Dropping undecodable cached prediction")
		_ = s.cache.Delete(ctx, key)
		return nil, false
	}
	resp.Cached = true
	return &resp, true
}

func (s *predictionService) store(ctx context.Context, key string, resp *prediction.PredictResponse) {
	data, err := jsoniter.Marshal(resp)
	if err != nil {
		s.log.WithField("error", err.Error()).Warn("Could not encode prediction for cache")
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.log.WithFields(log.Fields{
			"key":   key,
			"error": err.Error(),
		}).Warn("Prediction cache write failed")
	}
}
