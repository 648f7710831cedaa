// Package auth signs users in with email/password or Google and issues JWT sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/theory-exam/internal/auth/jwt"
	"github.com/gokatarajesh/theory-exam/internal/db/repository"
	"github.com/gokatarajesh/theory-exam/internal/metrics"
)

var (
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrEmailTaken         = repository.ErrEmailTaken
)

// UserStore is the part of the user repository auth needs.
type UserStore interface {
	Create(ctx context.Context, params repository.CreateUserParams) (repository.User, error)
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (repository.User, error)
	UpdateLogin(ctx context.Context, userID uuid.UUID) error
}

// Service handles authentication and user management.
type Service struct {
	users    UserStore
	tokenMgr *jwt.Manager
	revoked  Revocations
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// ServiceOptions configures the auth service.
type ServiceOptions struct {
	TokenConfig jwt.TokenConfig
	Revocations Revocations
	Metrics     *metrics.Metrics
}

// NewService creates an authentication service.
func NewService(users UserStore, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &Service{
		users:    users,
		tokenMgr: jwt.NewManager(opts.TokenConfig),
		revoked:  opts.Revocations,
		metrics:  opts.Metrics,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// Register creates a new password account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, *TokenPair, error) {
	user, tokens, err := s.register(ctx, req)
	s.observe("register", err)
	return user, tokens, err
}

func (s *Service) register(ctx context.Context, req RegisterRequest) (*User, *TokenPair, error) {
	email, err := parseEmail(req.Email)
	if err != nil {
		return nil, nil, err
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = localPart(email)
	}

	row, err := s.users.Create(ctx, repository.CreateUserParams{
		Email:        email,
		PasswordHash: &passwordHash,
		DisplayName:  displayName,
		Provider:     repository.ProviderPassword,
	})
	if err != nil {
		return nil, nil, err
	}

	user := userFromRow(row)
	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return user, tokens, nil
}

// Login authenticates a user with email/password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*User, *TokenPair, error) {
	user, tokens, err := s.login(ctx, req)
	s.observe("login", err)
	return user, tokens, err
}

func (s *Service) login(ctx context.Context, req LoginRequest) (*User, *TokenPair, error) {
	row, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	// OAuth-only accounts have no password
	if row.PasswordHash == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if err := CheckPassword(*row.PasswordHash, req.Password); err != nil {
		if !errors.Is(err, ErrPasswordMismatch) {
			s.logger.Error().Err(err).Str("user_id", row.ID.String()).Msg("stored password hash unusable")
		}
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.users.UpdateLogin(ctx, row.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", row.ID.String()).Msg("update last login failed")
	}

	user := userFromRow(row)
	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return user, tokens, nil
}

// LoginOAuth signs in the owner of an OAuth identity, creating the account on first use.
func (s *Service) LoginOAuth(ctx context.Context, provider string, info *OAuthUserInfo) (*User, *TokenPair, error) {
	user, tokens, err := s.loginOAuth(ctx, provider, info)
	s.observe("oauth", err)
	return user, tokens, err
}

func (s *Service) loginOAuth(ctx context.Context, provider string, info *OAuthUserInfo) (*User, *TokenPair, error) {
	if info == nil || info.Email == "" {
		return nil, nil, fmt.Errorf("oauth provider did not return an email")
	}

	row, err := s.users.GetByEmail(ctx, info.Email)
	switch {
	case err == nil:
		if err := s.users.UpdateLogin(ctx, row.ID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", row.ID.String()).Msg("update last login failed")
		}
	case errors.Is(err, repository.ErrUserNotFound):
		name := info.Name
		if name == "" {
			name = localPart(info.Email)
		}
		row, err = s.users.Create(ctx, repository.CreateUserParams{
			Email:       info.Email,
			DisplayName: name,
			Provider:    provider,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create oauth user: %w", err)
		}
		s.logger.Info().Str("user_id", row.ID.String()).Str("provider", provider).Msg("oauth user created")
	default:
		return nil, nil, err
	}

	user := userFromRow(row)
	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}
	return user, tokens, nil
}

// RefreshToken rotates a refresh token: the old one is revoked and a new pair issued.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	tokens, err := s.refresh(ctx, refreshToken)
	s.observe("refresh", err)
	return tokens, err
}

func (s *Service) refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.validateRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	row, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	s.revoke(ctx, claims)
	return s.generateTokenPair(userFromRow(row))
}

// Logout revokes the refresh token so it cannot mint new access tokens.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	err := s.logout(ctx, refreshToken)
	s.observe("logout", err)
	return err
}

func (s *Service) logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokenMgr.ValidateRefreshToken(refreshToken)
	if err != nil {
		return err
	}
	if s.revoked == nil {
		return nil
	}
	return s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Me loads the current account.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	row, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userFromRow(row), nil
}

// ValidateToken validates an access token and returns user claims.
func (s *Service) ValidateToken(tokenString string) (*jwt.Claims, error) {
	return s.tokenMgr.ValidateAccessToken(tokenString)
}

func (s *Service) validateRefresh(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.tokenMgr.ValidateRefreshToken(token)
	if err != nil {
		return nil, err
	}
	if s.revoked == nil {
		return claims, nil
	}
	revoked, err := s.revoked.Revoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (s *Service) revoke(ctx context.Context, claims *jwt.Claims) {
	if s.revoked == nil {
		return
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.Warn().Err(err).Str("user_id", claims.UserID.String()).Msg("revoke rotated refresh token failed")
	}
}

func (s *Service) generateTokenPair(user *User) (*TokenPair, error) {
	jwtUser := jwt.User{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}

	accessToken, err := s.tokenMgr.GenerateAccessToken(jwtUser)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenMgr.GenerateRefreshToken(jwtUser)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenMgr.AccessTTL().Seconds()),
	}, nil
}

func (s *Service) observe(event string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.AuthEvents.WithLabelValues(event, outcome).Inc()
}

func parseEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
