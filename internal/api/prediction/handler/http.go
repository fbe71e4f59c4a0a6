package predictionHandler

import (
	predictionService "CXRaide/internal/api/prediction/service"
	"CXRaide/internal/middleware"
	"CXRaide/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"time"
)

type PredictionHandler struct {
	log               *logrus.Logger
	middleware        middleware.Middleware
	predictionService predictionService.IPredictionService
	utils             utils.IUtils
	statusInterval    time.Duration
}

func New(
	log *logrus.Logger,
	middleware middleware.Middleware,
	ps predictionService.IPredictionService,
	utils utils.IUtils,
) *PredictionHandler {
	return &PredictionHandler{
		log:               log,
		middleware:        middleware,
		predictionService: ps,
		utils:             utils,
		statusInterval:    500 * time.Millisecond,
	}
}

func (h *PredictionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Post("/predict", h.middleware.NewRateLimiter, h.Predict)

	models := srv.Group("/models")
	models.Get("/status", h.ModelStatuses)
	models.Use("/ws", wsMiddleware)
	models.Get("/ws", websocket.New(h.handleStatusWebSocket))
	models.Get("/:key/status", h.ModelStatus)
	models.Post("/:key/rearm", h.middleware.NewTokenMiddleware, h.Rearm)
}
