package prediction

import (
	"CXRaide/pkg/response"
	"net/http"
)

var (
	ErrNoImage          = response.NewError(http.StatusBadRequest, "no image provided")
	ErrInvalidImage     = response.NewError(http.StatusBadRequest, "could not decode image")
	ErrImageTooLarge    = response.NewError(http.StatusRequestEntityTooLarge, "image too large")
	ErrModelLoading     = response.NewError(http.StatusServiceUnavailable, "model is still loading, retry later")
	ErrModelUnavailable = response.NewError(http.StatusServiceUnavailable, "model is unavailable")
	ErrUnknownModel     = response.NewError(http.StatusNotFound, "unknown model")
	ErrNotRearmable     = response.NewError(http.StatusConflict, "only a failed model can be re-armed")
)
