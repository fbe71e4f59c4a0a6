package config

import (
	"CXRaide/database/postgres"
	authHandler "CXRaide/internal/api/auth/handler"
	authRepository "CXRaide/internal/api/auth/repository"
	authService "CXRaide/internal/api/auth/service"
	predictionHandler "CXRaide/internal/api/prediction/handler"
	predictionService "CXRaide/internal/api/prediction/service"
	"CXRaide/internal/inference"
	"CXRaide/internal/inference/ensemble"
	"CXRaide/internal/inference/model"
	"CXRaide/internal/middleware"
	"CXRaide/pkg/bcrypt"
	"CXRaide/pkg/onnx"
	"CXRaide/pkg/redis"
	"CXRaide/pkg/utils"
	"context"
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"os"
	"time"
)

type ServerOption func(*Server) error

type Server struct {
	engine            *fiber.App
	db                *sqlx.DB
	log               *logrus.Logger
	middleware        middleware.Middleware
	validator         *validator.Validate
	utils             utils.IUtils
	bcryptUtils       bcrypt.IBcrypt
	handlers          []handler
	redisServer       redis.IRedis
	inferenceCfg      InferenceConfig
	registry          *model.Registry
	pipeline          *inference.Pipeline
	predictionService predictionService.IPredictionService
	releaseRuntime    func()
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.registry == nil {
		return nil, fmt.Errorf("inference is required")
	}
	if server.middleware == nil {
		return nil, fmt.Errorf("middleware is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithDatabase connects to postgres. Without it the auth routes are not registered.
func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware(cfg middleware.Config) ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, cfg)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func WithBcryptUtils() ServerOption {
	return func(s *Server) error {
		s.bcryptUtils = bcrypt.New()
		return nil
	}
}

// WithInference builds the model registry and the prediction pipeline. Nothing is loaded yet.
func WithInference(cfg InferenceConfig) ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before inference")
		}

		specs := model.DefaultSpecs(cfg.BroadArtifact, cfg.FocusedArtifact)
		partition := ensemble.DefaultPartition()
		if err := partition.Validate(specs); err != nil {
			return err
		}

		loader := model.NewLoader(s.log, model.LoaderConfig{
			UseMockModels: cfg.UseMockModels,
			Resolver:      model.NewResolver(cfg.SearchPaths),
			Opener: model.ONNXOpener(onnx.Options{
				SharedLibraryPath: cfg.ONNXRuntimeLib,
				Threads:           cfg.Threads,
			}),
		})

		s.inferenceCfg = cfg
		s.releaseRuntime = onnx.Shutdown
		s.registry = model.NewRegistry(s.log, loader, specs)
		s.pipeline = inference.NewPipeline(s.log, s.registry, ensemble.NewMerger(partition))

		s.log.WithFields(logrus.Fields{
			"mock":         cfg.UseMockModels,
			"search_paths": cfg.SearchPaths,
			"broad":        cfg.BroadArtifact,
			"focused":      cfg.FocusedArtifact,
		}).Info("Inference configured")
		return nil
	}
}

func (s *Server) RegisterHandler() {
	if s.utils == nil {
		s.utils = utils.New()
	}
	if s.redisServer == nil {
		s.redisServer = redis.New(s.log)
	}

	// Auth Domain
	if s.db != nil {
		if s.bcryptUtils == nil {
			s.bcryptUtils = bcrypt.New()
		}
		authRepo := authRepository.New(s.db, s.log)
		authServices := authService.New(s.log, authRepo, s.bcryptUtils, s.utils)
		authHandlers := authHandler.New(s.log, authServices, s.validator, s.middleware)
		s.handlers = append(s.handlers, authHandlers)
	} else {
		s.log.Warn("No database configured, auth routes disabled")
	}

	// Prediction Domain
	s.predictionService = predictionService.New(s.log, s.pipeline, s.registry, s.redisServer, s.utils, predictionService.Config{
		CacheTTL: s.inferenceCfg.CacheTTL,
	})
	predictionHandlers := predictionHandler.New(s.log, s.middleware, s.predictionService, s.utils)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, predictionHandlers)
}

// WarmUp starts loading both models in the background
func (s *Server) WarmUp() {
	if s.predictionService != nil {
		s.predictionService.WarmUp()
	}
}

func (s *Server) Run() error {
	s.engine.Use(recover.New(recover.Config{EnableStackTrace: true}))
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	s.engine.Use(s.middleware.NewCORSMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops accepting requests, then releases the models and connections.
// The onnxruntime environment is only destroyed once every load has finished,
// since a load still running may be using it.
func (s *Server) Shutdown(timeout time.Duration) error {
	var errs []error
	if err := s.engine.ShutdownWithTimeout(timeout); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http: %w", err))
	}

	s.registry.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.registry.Wait(ctx); err != nil {
		s.log.Warnf("Model loads still running at shutdown, leaving the onnx runtime up: %v", err)
	} else if s.releaseRuntime != nil {
		s.releaseRuntime()
	}

	if s.redisServer != nil {
		if err := s.redisServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		status := s.predictionService.ModelStatuses()
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
			"ready":   status.Ready,
		})
	})
}
