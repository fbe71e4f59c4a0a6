package auth

import (
	"CXRaide/pkg/response"
	"net/http"
)

var (
	ErrInvalidUsernameOrPassword = response.NewError(http.StatusUnauthorized, "invalid username or password")
	ErrUserNotFound              = response.NewError(http.StatusNotFound, "user not found")
	ErrUsernameAlreadyExists     = response.NewError(http.StatusConflict, "username already exists")
)
