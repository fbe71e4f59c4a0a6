package authService

import (
	"CXRaide/internal/api/auth"
	"CXRaide/internal/entity"
	contextPkg "CXRaide/pkg/context"
	jwtPkg "CXRaide/pkg/jwt"
	"context"
	"errors"
	"github.com/sirupsen/logrus"
	"time"
)

func (s *authDomainImpl) Login(c context.Context, req auth.LoginUserRequest) (auth.LoginUserResponse, error) {
	requestID := contextPkg.GetRequestID(c)
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return auth.LoginUserResponse{}, err
	}

	user, err := repo.Users.GetByUsername(c, req.Username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"username":   req.Username,
			}).Warn("Login for unknown username")
			return auth.LoginUserResponse{}, auth.ErrInvalidUsernameOrPassword
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to get user by username")
		return auth.LoginUserResponse{}, err
	}

	if err := s.bcryptUtils.ComparePassword(user.Password, req.Password); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"user_id":    user.ID,
		}).Warn("Password comparison failed")
		return auth.LoginUserResponse{}, auth.ErrInvalidUsernameOrPassword
	}

	token, expired, err := jwtPkg.Sign(MakeUserData(user), SessionTTL)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to sign token")
		return auth.LoginUserResponse{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    user.ID,
	}).Info("Token created")

	return auth.LoginUserResponse{
		AccessToken:      token,
		UserID:           user.ID,
		Username:         user.Username,
		ExpiresInMinutes: time.Until(time.Unix(expired, 0)).Minutes(),
	}, nil
}

// CheckSession confirms that the user behind a valid token still exists
func (s *authDomainImpl) CheckSession(c context.Context, user entity.UserLoginData) (auth.SessionResponse, error) {
	repo, err := s.repo.NewClient(false)
	if err != nil {
		return auth.SessionResponse{}, err
	}

	dbUser, err := repo.Users.GetByID(c, user.ID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			s.log.WithFields(logrus.Fields{
				"request_id": contextPkg.GetRequestID(c),
				"user_id":    user.ID,
			}).Warn("Session for a deleted user")
		}
		return auth.SessionResponse{}, err
	}

	return auth.SessionResponse{
		Valid:    true,
		UserID:   dbUser.ID,
		Username: dbUser.Username,
	}, nil
}
