package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("testpassword123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$12$"))

	assert.NoError(t, CheckPassword(hash, "testpassword123"))
	assert.ErrorIs(t, CheckPassword(hash, "wrongpassword"), ErrPasswordMismatch)
}

func TestHashPasswordLength(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	// 7 characters, 11 bytes
	_, err = HashPassword("zażółća")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("zażółćgę")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(hash, "zażółćgę"))

	_, err = HashPassword(strings.Repeat("ą", 37))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	err := CheckPassword("not-a-bcrypt-hash", "testpassword123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)
}
