package authService

import (
	"CXRaide/internal/api/auth"
	authRepository "CXRaide/internal/api/auth/repository"
	"CXRaide/internal/entity"
	"CXRaide/pkg/bcrypt"
	"CXRaide/pkg/utils"
	"context"
	"github.com/sirupsen/logrus"
	"time"
)

// SessionTTL is how long an access token stays valid
const SessionTTL = time.Hour

type AuthService interface {
	User() UserDomain
	Auth() AuthDomain
}

type UserDomain interface {
	RegisterUser(c context.Context, req auth.CreateUserRequest) (entity.User, error)
	// EnsureUser creates the user unless the username is taken. It reports whether it created one.
	EnsureUser(c context.Context, req auth.CreateUserRequest) (bool, error)
}

type AuthDomain interface {
	Login(c context.Context, req auth.LoginUserRequest) (auth.LoginUserResponse, error)
	CheckSession(c context.Context, user entity.UserLoginData) (auth.SessionResponse, error)
}

type authService struct {
	userDomain UserDomain
	authDomain AuthDomain
}

func (a *authService) User() UserDomain {
	return a.userDomain
}

func (a *authService) Auth() AuthDomain {
	return a.authDomain
}

type userDomainImpl struct {
	log         *logrus.Logger
	repo        authRepository.Repository
	bcryptUtils bcrypt.IBcrypt
	utils       utils.IUtils
}

type authDomainImpl struct {
	log         *logrus.Logger
	repo        authRepository.Repository
	bcryptUtils bcrypt.IBcrypt
}

func New(log *logrus.Logger,
	authRepo authRepository.Repository,
	bcryptUtils bcrypt.IBcrypt,
	utils utils.IUtils,
) AuthService {
	return &authService{
		userDomain: &userDomainImpl{log: log, repo: authRepo, bcryptUtils: bcryptUtils, utils: utils},
		authDomain: &authDomainImpl{log: log, repo: authRepo, bcryptUtils: bcryptUtils},
	}
}
