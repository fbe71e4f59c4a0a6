package authService

import (
	"context"
	"sync"
	"testing"

	"CXRaide/internal/api/auth"
	authRepository "CXRaide/internal/api/auth/repository"
	"CXRaide/internal/entity"
	"CXRaide/pkg/bcrypt"
	jwtPkg "CXRaide/pkg/jwt"
	"CXRaide/pkg/utils"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cryptobcrypt "golang.org/x/crypto/bcrypt"
)

// memoryUsers is an in-memory authRepository.UserRepository
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]entity.User
}

func (m *memoryUsers) CreateUser(ctx context.Context, user entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return auth.ErrUsernameAlreadyExists
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memoryUsers) GetByID(ctx context.Context, id string) (entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return entity.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

func (m *memoryUsers) GetByUsername(ctx context.Context, username string) (entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return entity.User{}, auth.ErrUserNotFound
}

type memoryRepository struct {
	users *memoryUsers
}

func (r memoryRepository) NewClient(tx bool) (authRepository.Client, error) {
	return authRepository.Client{
		Users:    r.users,
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

func newTestService(t *testing.T) (AuthService, *memoryUsers) {
	t.Helper()
	t.Setenv(jwtPkg.AccessTokenSecret, "service-secret")
	log, _ := test.NewNullLogger()
	users := &memoryUsers{users: map[string]entity.User{}}
	return New(log, memoryRepository{users: users}, bcrypt.NewWithCost(cryptobcrypt.MinCost), utils.New()), users
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.User().RegisterUser(ctx, auth.CreateUserRequest{Username: "admin", Password: "admin1234"})
	require.NoError(t, err)
	assert.NotEqual(t, "admin1234", created.Password)

	res, err := svc.Auth().Login(ctx, auth.LoginUserRequest{Username: "admin", Password: "admin1234"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, res.UserID)
	assert.Equal(t, "admin", res.Username)
	assert.InDelta(t, 60, res.ExpiresInMinutes, 1)

	token, err := jwtPkg.Verify(res.AccessToken, jwtPkg.AccessTokenSecret)
	require.NoError(t, err)
	assert.True(t, token.Valid)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.User().RegisterUser(ctx, auth.CreateUserRequest{Username: "admin", Password: "admin1234"})
	require.NoError(t, err)

	_, err = svc.Auth().Login(ctx, auth.LoginUserRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, auth.ErrInvalidUsernameOrPassword)

	_, err = svc.Auth().Login(ctx, auth.LoginUserRequest{Username: "nobody", Password: "admin1234"})
	assert.ErrorIs(t, err, auth.ErrInvalidUsernameOrPassword)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()
	req := auth.CreateUserRequest{Username: "admin", Password: "admin1234"}

	created, err := svc.User().EnsureUser(ctx, req)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.User().EnsureUser(ctx, req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, users.users, 1)
}

func TestCheckSession(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	u, err := svc.User().RegisterUser(ctx, auth.CreateUserRequest{Username: "admin", Password: "admin1234"})
	require.NoError(t, err)

	res, err := svc.Auth().CheckSession(ctx, entity.UserLoginData{ID: u.ID, Username: u.Username})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	delete(users.users, u.ID)
	_, err = svc.Auth().CheckSession(ctx, entity.UserLoginData{ID: u.ID, Username: u.Username})
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}
