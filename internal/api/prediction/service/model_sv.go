package predictionService

import (
	"CXRaide/internal/api/prediction"
	"CXRaide/internal/inference/model"
	"CXRaide/pkg/log"
	"CXRaide/pkg/response"
	"errors"
)

func (s *predictionService) ModelStatus(key string) (prediction.ModelStatusResponse, error) {
	k, err := model.ParseKey(key)
	if err != nil {
		return prediction.ModelStatusResponse{}, response.Wrap(prediction.ErrUnknownModel, err)
	}

	st, err := s.registry.Status(k)
	if err != nil {
		return prediction.ModelStatusResponse{}, response.Wrap(prediction.ErrUnknownModel, err)
	}
	return s.makeStatus(st), nil
}

func (s *predictionService) ModelStatuses() prediction.ModelStatusListResponse {
	statuses := s.registry.Statuses()
	res := prediction.ModelStatusListResponse{
		Models:  make([]prediction.ModelStatusResponse, 0, len(statuses)),
		Ready:   len(statuses) > 0,
		Settled: true,
	}
	for _, st := range statuses {
		res.Models = append(res.Models, s.makeStatus(st))
		if st.State != model.StateReady {
			res.Ready = false
		}
		if st.State == model.StateLoading || st.State == model.StateNotLoaded {
			res.Settled = false
		}
	}
	return res
}

func (s *predictionService) Rearm(key string) (prediction.ModelStatusResponse, error) {
	k, err := model.ParseKey(key)
	if err != nil {
		return prediction.ModelStatusResponse{}, response.Wrap(prediction.ErrUnknownModel, err)
	}

	st, err := s.registry.Rearm(k)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotRearmable):
			return prediction.ModelStatusResponse{}, response.Wrap(prediction.ErrNotRearmable, err)
		case errors.Is(err, model.ErrUnknownModel):
			return prediction.ModelStatusResponse{}, response.Wrap(prediction.ErrUnknownModel, err)
		}
		return prediction.ModelStatusResponse{}, err
	}

	s.log.WithFields(log.Fields{
		"model": k.String(),
		"state": st.State.String(),
	}).Info("Model re-armed")

	return s.makeStatus(st), nil
}

func (s *predictionService) WarmUp() {
	for _, k := range model.Keys() {
		if _, _, err := s.registry.Acquire(k); err != nil {
			s.log.WithFields(log.Fields{
				"model": k.String(),
				"error": err.Error(),
			}).Warn("Could not start model load")
		}
	}
}

func (s *predictionService) makeStatus(st model.Status) prediction.ModelStatusResponse {
	res := prediction.ModelStatusResponse{
		Model:    st.Key.String(),
		State:    st.State.String(),
		Degraded: st.Degraded,
		Detector: st.Detector,
		Artifact: st.Artifact,
		Loads:    st.Loads,
		Classes:  []string{},
	}
	if st.LastError != nil {
		res.LastError = st.LastError.Error()
	}
	if !st.LoadedAt.IsZero() {
		loadedAt := st.LoadedAt
		res.LoadedAt = &loadedAt
	}
	if spec, err := s.registry.Spec(st.Key); err == nil {
		for _, c := range spec.Classes {
			res.Classes = append(res.Classes, c.Label())
		}
	}
	return res
}
