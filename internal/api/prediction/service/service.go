package predictionService

import (
	"CXRaide/internal/api/prediction"
	"CXRaide/internal/inference"
	"CXRaide/internal/inference/model"
	"CXRaide/pkg/nn"
	"CXRaide/pkg/redis"
	"CXRaide/pkg/utils"
	"context"
	"github.com/sirupsen/logrus"
	"time"
)

type IPredictionService interface {
	Predict(ctx context.Context, image []byte) (*prediction.PredictResponse, error)
	ModelStatus(key string) (prediction.ModelStatusResponse, error)
	ModelStatuses() prediction.ModelStatusListResponse
	Rearm(key string) (prediction.ModelStatusResponse, error)
	// WarmUp starts loading every model without waiting for them
	WarmUp()
}

// ModelRegistry is the part of *model.Registry the service needs
type ModelRegistry interface {
	inference.Models
	Spec(key model.Key) (model.Spec, error)
	Status(key model.Key) (model.Status, error)
	Statuses() []model.Status
	Rearm(key model.Key) (model.Status, error)
}

type Predictor interface {
	Predict(ctx context.Context, img *nn.Tensor) (inference.Result, error)
}

type Config struct {
	CacheTTL time.Duration // Zero disables the prediction cache
}

type predictionService struct {
	log      *logrus.Logger
	pipeline Predictor
	registry ModelRegistry
	cache    redis.IRedis
	utils    utils.IUtils
	cacheTTL time.Duration
}

func New(
	log *logrus.Logger,
	pipeline Predictor,
	registry ModelRegistry,
	cache redis.IRedis,
	utils utils.IUtils,
	cfg Config,
) IPredictionService {
	return &predictionService{
		log:      log,
		pipeline: pipeline,
		registry: registry,
		cache:    cache,
		utils:    utils,
		cacheTTL: cfg.CacheTTL,
	}
}
