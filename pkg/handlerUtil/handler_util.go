package handlerUtil

import (
	"CXRaide/internal/inference"
	"CXRaide/internal/inference/model"
	"CXRaide/pkg/log"
	"CXRaide/pkg/nn"
	"CXRaide/pkg/response"
	"context"
	"errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

// RetryAfterSeconds is sent with every 503 caused by a model that is still loading
const RetryAfterSeconds = "5"

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	if errors.Is(err, inference.ErrRetryLater) {
		h.logger.WithFields(fields).Warn("Model still loading")
		c.Set(fiber.HeaderRetryAfter, RetryAfterSeconds)
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "Model is still loading, retry later",
			Code:  "MODEL_LOADING",
		})
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		fields["code"] = respErr.Code
		h.logger.WithFields(fields).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(ErrorResponse{Error: respErr.Error()})
	}

	if errors.Is(err, inference.ErrServiceUnavailable) {
		h.logger.WithFields(fields).Error("Model unavailable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "Model is unavailable",
			Code:  "MODEL_UNAVAILABLE",
		})
	}

	if errors.Is(err, model.ErrUnknownModel) {
		h.logger.WithFields(fields).Warn("Unknown model")
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error: "Unknown model",
			Code:  "UNKNOWN_MODEL",
		})
	}

	if errors.Is(err, model.ErrNotRearmable) {
		h.logger.WithFields(fields).Warn("Model not re-armable")
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error: "Only a failed model can be re-armed",
			Code:  "NOT_REARMABLE",
		})
	}

	if errors.Is(err, nn.ErrEmptyImage) {
		h.logger.WithFields(fields).Warn("Empty image")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Image is empty",
			Code:  "EMPTY_IMAGE",
		})
	}

	if errors.Is(err, context.DeadlineExceeded) {
		h.logger.WithFields(fields).Warn("Request timed out")
		return h.HandleRequestTimeout(c)
	}

	h.logger.WithFields(fields).Error("Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: "An unexpected error occurred",
	})
}

func (h *ErrorHandler) HandleBadRequest(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Malformed request")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Malformed request body",
		Code:  "BAD_REQUEST",
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(ErrorResponse{
		Error: utils.StatusMessage(fiber.StatusRequestTimeout),
	})
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error: message,
		Code:  "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
