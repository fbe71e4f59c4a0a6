package predictionHandler

import (
	"CXRaide/internal/api/prediction"
	contextPkg "CXRaide/pkg/context"
	"CXRaide/pkg/handlerUtil"
	"CXRaide/pkg/log"
	"CXRaide/pkg/response"
	"CXRaide/pkg/utils"
	"errors"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"time"
)

func (h *PredictionHandler) Predict(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 30*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	file, err := ctx.FormFile("image")
	if err != nil {
		return errHandler.Handle(ctx, requestID, response.Wrap(prediction.ErrNoImage, err), ctx.Path(), "read_form_file")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"file_name":  file.Filename,
		"file_size":  file.Size,
	}).Debug("Processing prediction upload")

	if err := h.utils.ValidateImageFile(file); err != nil {
		return errHandler.Handle(ctx, requestID, uploadError(err), ctx.Path(), "validate_image_file")
	}

	image, err := h.utils.ReadFile(file)
	if err != nil {
		return errHandler.Handle(ctx, requestID, uploadError(err), ctx.Path(), "read_image_file")
	}

	res, err := h.predictionService.Predict(c, image)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "predict")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *PredictionHandler) ModelStatuses(ctx *fiber.Ctx) error {
	errHandler := handlerUtil.New(h.log)
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, h.predictionService.ModelStatuses())
}

func (h *PredictionHandler) ModelStatus(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	res, err := h.predictionService.ModelStatus(ctx.Params("key"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "model_status")
	}
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
}

func (h *PredictionHandler) Rearm(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	res, err := h.predictionService.Rearm(ctx.Params("key"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "rearm_model")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"model":      res.Model,
		"user":       ctx.Locals("user"),
	}).Info("Model re-arm requested")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
}

func uploadError(err error) error {
	switch {
	case errors.Is(err, utils.ErrNoFile):
		return response.Wrap(prediction.ErrNoImage, err)
	case errors.Is(err, utils.ErrFileTooLarge):
		return response.Wrap(prediction.ErrImageTooLarge, err)
	case errors.Is(err, utils.ErrNotAnImage):
		return response.Wrap(prediction.ErrInvalidImage, err)
	}
	return err
}
