package authService

import (
	"CXRaide/internal/entity"
)

// MakeUserData is what goes into the access token claims
func MakeUserData(user entity.User) map[string]interface{} {
	return map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
	}
}
