package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	tokenService := NewTokenService([]byte("test-signing-secret"))

	token, err := tokenService.Issue("user@test.com", "Test User", "https://pics.test/u.png")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tokenService.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user@test.com", claims.Email)
	assert.Equal(t, "Test User", claims.Name)
	assert.Equal(t, "https://pics.test/u.png", claims.Photo)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenService_Verify_expired(t *testing.T) {
	tokenService := NewTokenService([]byte("test-signing-secret"))

	issuedAt := time.Now()
	tokenService.NowFunc = func() time.Time { return issuedAt }

	token, err := tokenService.Issue("user@test.com", "", "")
	require.NoError(t, err)

	// still valid just before the TTL runs out
	tokenService.NowFunc = func() time.Time { return issuedAt.Add(TokenTTL - time.Minute) }
	claims, err := tokenService.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user@test.com", claims.Email)

	tokenService.NowFunc = func() time.Time { return issuedAt.Add(TokenTTL + time.Minute) }
	claims, err = tokenService.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestTokenService_Verify_wrongSecret(t *testing.T) {
	tokenService := NewTokenService([]byte("test-signing-secret"))
	otherTokenService := NewTokenService([]byte("some-other-secret"))

	token, err := otherTokenService.Issue("user@test.com", "", "")
	require.NoError(t, err)

	claims, err := tokenService.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestTokenService_Verify_garbage(t *testing.T) {
	tokenService := NewTokenService([]byte("test-signing-secret"))

	for _, token := range []string{
		"",
		"not-a-token",
		"aaaa.bbbb.cccc",
	} {
		claims, err := tokenService.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Nil(t, claims)
	}
}

func TestTokenService_Verify_emptyEmail(t *testing.T) {
	tokenService := NewTokenService([]byte("test-signing-secret"))

	token, err := tokenService.Issue("", "No Email", "")
	require.NoError(t, err)

	claims, err := tokenService.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestTokenService_Issue_tokenID(t *testing.T) {
	tokenService := NewTokenService([]byte("test-signing-secret"))
	tokenService.RandStringFunc = func(_ int) (string, error) {
		return "fixed-token-id", nil
	}

	token, err := tokenService.Issue("user@test.com", "", "")
	require.NoError(t, err)

	claims, err := tokenService.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "fixed-token-id", claims.ID)
}

func TestSetClaimsAndClaimsFromContext(t *testing.T) {
	claims := &Claims{Email: "user@test.com"}

	ctx := SetClaims(context.Background(), claims)
	fromCtx, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, claims, fromCtx)

	_, ok = ClaimsFromContext(context.Background())
	assert.False(t, ok)
}
