package authService

import (
	"CXRaide/internal/api/auth"
	"CXRaide/internal/entity"
	contextPkg "CXRaide/pkg/context"
	"context"
	"errors"
	"github.com/sirupsen/logrus"
	"time"
)

func (s *userDomainImpl) RegisterUser(ctx context.Context, req auth.CreateUserRequest) (entity.User, error) {
	requestID := contextPkg.GetRequestID(ctx)
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return entity.User{}, err
	}

	hashedPassword, err := s.bcryptUtils.HashPassword(req.Password)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to hash password")
		return entity.User{}, err
	}

	ULID, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return entity.User{}, err
	}

	user := entity.User{
		ID:        ULID,
		Username:  req.Username,
		Password:  hashedPassword,
		CreatedAt: time.Now(),
	}

	if err := repo.Users.CreateUser(ctx, user); err != nil {
		return entity.User{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    user.ID,
		"username":   user.Username,
	}).Info("User created")

	return user, nil
}

func (s *userDomainImpl) EnsureUser(ctx context.Context, req auth.CreateUserRequest) (bool, error) {
	repo, err := s.repo.NewClient(false)
	if err != nil {
		return false, err
	}

	_, err = repo.Users.GetByUsername(ctx, req.Username)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, auth.ErrUserNotFound):
		return false, err
	}

	if _, err := s.RegisterUser(ctx, req); err != nil {
		// Lost a race with another seeder
		if errors.Is(err, auth.ErrUsernameAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
