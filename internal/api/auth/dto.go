package auth

type LoginUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type LoginUserResponse struct {
	AccessToken      string  `json:"access_token"`
	UserID           string  `json:"user_id"`
	Username         string  `json:"username"`
	ExpiresInMinutes float64 `json:"expires_in_minutes"`
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type SessionResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
