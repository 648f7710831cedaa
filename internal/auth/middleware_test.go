package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/theory-exam/internal/auth/jwt"
)

func TestAuthMiddleware(t *testing.T) {
	svc := newTestService(new(mockUserRepo), nil)
	userID := uuid.New()
	tokens, err := svc.generateTokenPair(&User{ID: userID, Email: "a@b.pl"})
	require.NoError(t, err)

	var seen uuid.UUID
	protected := AuthMiddleware(svc, zerolog.Nop())(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + tokens.AccessToken, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"refresh token", "Bearer " + tokens.RefreshToken, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
	assert.Equal(t, userID, seen)
}

func TestUserIDWithoutClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := UserID(req.Context())
	assert.False(t, ok)

	ctx := WithClaims(req.Context(), &jwt.Claims{UserID: uuid.New()})
	_, ok = UserID(ctx)
	assert.True(t, ok)
}
