package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/theory-exam/internal/auth/jwt"
	"github.com/gokatarajesh/theory-exam/internal/db/repository"
	httperrors "github.com/gokatarajesh/theory-exam/pkg/http/errors"
)

const oauthStateCookie = "oauth_state"

// HTTPHandlers provides REST endpoints for authentication.
type HTTPHandlers struct {
	authSvc  *Service
	oauthSvc *OAuthService
	logger   zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for auth endpoints. oauthSvc may be nil.
func NewHTTPHandlers(authSvc *Service, oauthSvc *OAuthService, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		authSvc:  authSvc,
		oauthSvc: oauthSvc,
		logger:   logger.With().Str("component", "auth_http").Logger(),
	}
}

type sessionResponse struct {
	User *User `json:"user"`
	*TokenPair
}

// Register handles POST /v1/auth/register
func (h *HTTPHandlers) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	user, tokens, err := h.authSvc.Register(r.Context(), req)
	switch {
	case errors.Is(err, ErrInvalidEmail):
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "email")
		return
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong):
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "password")
		return
	case errors.Is(err, ErrEmailTaken):
		httperrors.RespondConflict(w, httperrors.ErrCodeAlreadyExists, "Email already registered")
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("registration failed")
		httperrors.RespondInternalError(w, "Registration failed")
		return
	}

	httperrors.RespondJSON(w, http.StatusCreated, sessionResponse{User: user, TokenPair: tokens})
}

// Login handles POST /v1/auth/login
func (h *HTTPHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	user, tokens, err := h.authSvc.Login(r.Context(), req)
	if errors.Is(err, ErrInvalidCredentials) {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeLoginFailed, "Invalid email or password")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("login failed")
		httperrors.RespondInternalError(w, "Login failed")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, sessionResponse{User: user, TokenPair: tokens})
}

// RefreshToken handles POST /v1/auth/refresh
func (h *HTTPHandlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	tokens, err := h.authSvc.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if !isTokenError(err) {
			h.logger.Error().Err(err).Msg("refresh failed")
		}
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeRefreshFailed, "Invalid refresh token")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, tokens)
}

// Logout handles POST /v1/auth/logout
func (h *HTTPHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	if err := h.authSvc.Logout(r.Context(), req.RefreshToken); err != nil {
		if isTokenError(err) {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid refresh token")
			return
		}
		h.logger.Error().Err(err).Msg("logout failed")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeLogoutFailed, "Sign-out failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// OAuthStart handles GET /v1/oauth/{provider}/start
func (h *HTTPHandlers) OAuthStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	if !h.oauthSvc.Configured() {
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeOAuthNotConfigured, "OAuth is not configured")
		return
	}

	// CSRF state, echoed back by the provider
	state := uuid.NewString()

	authURL, err := h.oauthSvc.StartOAuthFlow(r.PathValue("provider"), state)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeOAuthStartFailed, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	httperrors.RespondJSON(w, http.StatusOK, map[string]string{
		"auth_url": authURL,
		"state":    state,
	})
}

// OAuthCallback handles GET /v1/oauth/{provider}/callback
func (h *HTTPHandlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	if !h.oauthSvc.Configured() {
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeOAuthNotConfigured, "OAuth is not configured")
		return
	}

	provider := r.PathValue("provider")
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeOAuthMissingCode, "Authorization code required")
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeOAuthInvalidState, "Invalid or missing state parameter")
		return
	}

	info, err := h.oauthSvc.HandleOAuthCallback(r.Context(), provider, code)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeOAuthCallbackFailed, err.Error())
		return
	}

	user, tokens, err := h.authSvc.LoginOAuth(r.Context(), provider, info)
	if err != nil {
		h.logger.Error().Err(err).Str("provider", provider).Msg("oauth sign-in failed")
		httperrors.RespondInternalError(w, "Sign-in failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	httperrors.RespondJSON(w, http.StatusOK, sessionResponse{User: user, TokenPair: tokens})
}

// GetMe handles GET /v1/users/me (requires auth middleware)
func (h *HTTPHandlers) GetMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	userID, ok := UserID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Invalid or missing token")
		return
	}

	user, err := h.authSvc.Me(r.Context(), userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "User not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID.String()).Msg("load user failed")
		httperrors.RespondInternalError(w, "Failed to load user")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, user)
}

func isTokenError(err error) bool {
	return errors.Is(err, jwt.ErrInvalidToken) ||
		errors.Is(err, jwt.ErrExpiredToken) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, repository.ErrUserNotFound)
}
