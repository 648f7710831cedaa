package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/theory-exam/internal/auth/jwt"
	"github.com/gokatarajesh/theory-exam/internal/db/repository"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, params repository.CreateUserParams) (repository.User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(repository.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (repository.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(repository.User), args.Error(1)
}

func (m *mockUserRepo) GetByID(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(repository.User), args.Error(1)
}

func (m *mockUserRepo) UpdateLogin(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

type memoryRevocations struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func newMemoryRevocations() *memoryRevocations {
	return &memoryRevocations{ids: map[string]time.Time{}}
}

func (m *memoryRevocations) Revoke(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[id] = until
	return nil
}

func (m *memoryRevocations) Revoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[id]
	return ok, nil
}

func newTestService(repo UserStore, rev Revocations) *Service {
	return NewService(repo, ServiceOptions{
		TokenConfig: jwt.TokenConfig{
			AccessSecret:  []byte("test-access-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
		},
		Revocations: rev,
	}, zerolog.Nop())
}

func TestService_Register(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newTestService(repo, nil)

	userID := uuid.New()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p repository.CreateUserParams) bool {
		return p.Email == "nowy@example.com" &&
			p.DisplayName == "nowy" &&
			p.Provider == repository.ProviderPassword &&
			p.PasswordHash != nil && CheckPassword(*p.PasswordHash, "bezpieczne1") == nil
	})).Return(repository.User{
		ID:          userID,
		Email:       "nowy@example.com",
		DisplayName: "nowy",
		Provider:    repository.ProviderPassword,
	}, nil)

	user, tokens, err := svc.Register(context.Background(), RegisterRequest{
		Email:    " Nowy@Example.com ",
		Password: "bezpieczne1",
	})
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, int64(3600), tokens.ExpiresIn)

	claims, err := svc.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	repo.AssertExpectations(t)
}

func TestService_RegisterValidation(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterRequest{Email: "not-an-email", Password: "longenough"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, _, err = svc.Register(ctx, RegisterRequest{Email: "a@b.pl", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	repo.On("Create", mock.Anything, mock.Anything).Return(repository.User{}, repository.ErrEmailTaken)
	_, _, err = svc.Register(ctx, RegisterRequest{Email: "a@b.pl", Password: "longenough"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestService_Login(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	hash, err := HashPassword("poprawne-haslo")
	require.NoError(t, err)
	row := repository.User{ID: uuid.New(), Email: "jan@example.com", PasswordHash: &hash, DisplayName: "Jan"}

	repo.On("GetByEmail", mock.Anything, "jan@example.com").Return(row, nil)
	repo.On("UpdateLogin", mock.Anything, row.ID).Return(nil)
	repo.On("GetByEmail", mock.Anything, "brak@example.com").Return(repository.User{}, repository.ErrUserNotFound)

	user, tokens, err := svc.Login(ctx, LoginRequest{Email: "jan@example.com", Password: "poprawne-haslo"})
	require.NoError(t, err)
	assert.Equal(t, "Jan", user.DisplayName)
	assert.NotEmpty(t, tokens.AccessToken)

	_, _, err = svc.Login(ctx, LoginRequest{Email: "jan@example.com", Password: "zle-haslo"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, LoginRequest{Email: "brak@example.com", Password: "cokolwiek"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_LoginWithoutPasswordHash(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newTestService(repo, nil)

	repo.On("GetByEmail", mock.Anything, "google@example.com").Return(repository.User{
		ID: uuid.New(), Email: "google@example.com", Provider: repository.ProviderGoogle,
	}, nil)

	_, _, err := svc.Login(context.Background(), LoginRequest{Email: "google@example.com", Password: "anything1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_RefreshRotatesAndLogoutRevokes(t *testing.T) {
	repo := new(mockUserRepo)
	rev := newMemoryRevocations()
	svc := newTestService(repo, rev)
	ctx := context.Background()

	row := repository.User{ID: uuid.New(), Email: "ola@example.com", DisplayName: "Ola"}
	repo.On("GetByID", mock.Anything, row.ID).Return(row, nil)

	first, err := svc.generateTokenPair(userFromRow(row))
	require.NoError(t, err)

	second, err := svc.RefreshToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = svc.RefreshToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked, "rotated token cannot be reused")

	require.NoError(t, svc.Logout(ctx, second.RefreshToken))
	_, err = svc.RefreshToken(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	assert.Error(t, svc.Logout(ctx, "garbage"))
}

func TestService_LoginOAuthCreatesOnce(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newTestService(repo, nil)
	ctx := context.Background()
	info := &OAuthUserInfo{ProviderID: "g-1", Email: "kasia@gmail.com", Name: "Kasia"}

	created := repository.User{ID: uuid.New(), Email: "kasia@gmail.com", DisplayName: "Kasia", Provider: repository.ProviderGoogle}
	repo.On("GetByEmail", mock.Anything, "kasia@gmail.com").Return(repository.User{}, repository.ErrUserNotFound).Once()
	repo.On("Create", mock.Anything, repository.CreateUserParams{
		Email:       "kasia@gmail.com",
		DisplayName: "Kasia",
		Provider:    repository.ProviderGoogle,
	}).Return(created, nil).Once()

	user, _, err := svc.LoginOAuth(ctx, OAuthProviderGoogle, info)
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	repo.On("GetByEmail", mock.Anything, "kasia@gmail.com").Return(created, nil)
	repo.On("UpdateLogin", mock.Anything, created.ID).Return(nil)

	again, _, err := svc.LoginOAuth(ctx, OAuthProviderGoogle, info)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	repo.AssertExpectations(t)

	_, _, err = svc.LoginOAuth(ctx, OAuthProviderGoogle, &OAuthUserInfo{})
	assert.Error(t, err)
}
