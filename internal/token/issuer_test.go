package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintProducesVerifiableToken(t *testing.T) {
	issuer := NewJWTIssuer("test-secret", 5*time.Hour)
	accountID := uuid.New()

	signed, err := issuer.Mint(accountID, "ada@example.com", "owner")
	require.NoError(t, err)

	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, accountID.String(), claims["sub"])
	assert.Equal(t, "ada@example.com", claims["email"])
	assert.Equal(t, "owner", claims["role"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Hour), exp.Time, time.Minute)
}

func TestMintRejectsWrongSecretOnParse(t *testing.T) {
	issuer := NewJWTIssuer("test-secret", time.Hour)
	signed, err := issuer.Mint(uuid.New(), "ada@example.com", "user")
	require.NoError(t, err)

	_, err = jwt.Parse(signed, func(tok *jwt.Token) (interface{}, error) {
		return []byte("other-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	assert.Error(t, err)
}
