package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/media-storage/internal/config"
	"jan-server/services/media-storage/internal/domain"
)

const testIssuer = "https://auth.example.com/realms/jan"

func newTestValidator(t *testing.T, audience string) (*Validator, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cfg := &config.Config{AuthEnabled: true, AuthIssuer: testIssuer, AuthAudience: audience}
	v := NewValidatorWithKeyfunc(cfg, func(*jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, zerolog.Nop())
	return v, key
}

func sign(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestValidate_MapsClaims(t *testing.T) {
	v, key := newTestValidator(t, "media-storage")
	token := sign(t, key, jwt.MapClaims{
		"sub":                "user-1",
		"iss":                testIssuer,
		"aud":                "media-storage",
		"exp":                time.Now().Add(time.Hour).Unix(),
		"preferred_username": "ada",
		"email":              "ada@example.com",
		"scope":              "media:read media:write",
	})

	principal, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", principal.ID)
	assert.Equal(t, domain.AuthMethodJWT, principal.AuthMethod)
	assert.Equal(t, "ada", principal.Username)
	assert.Equal(t, "ada@example.com", principal.Email)
	assert.True(t, principal.HasScope("media:write"))
}

func TestValidate_Rejects(t *testing.T) {
	v, key := newTestValidator(t, "media-storage")
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": "user-1",
			"iss": testIssuer,
			"aud": "media-storage",
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	expired := base()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	wrongIssuer := base()
	wrongIssuer["iss"] = "https://evil.example.com"
	wrongAudience := base()
	wrongAudience["aud"] = "other-service"
	noSubject := base()
	delete(noSubject, "sub")

	cases := map[string]string{
		"expired":        sign(t, key, expired),
		"wrong issuer":   sign(t, key, wrongIssuer),
		"wrong audience": sign(t, key, wrongAudience),
		"no subject":     sign(t, key, noSubject),
		"foreign key":    sign(t, other, base()),
		"garbage":        "not-a-jwt",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), token)
			assert.Error(t, err)
		})
	}

	_, err = v.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestValidate_HMACNotAccepted(t *testing.T) {
	v, _ := newTestValidator(t, "")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"iss": testIssuer,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), token)
	assert.Error(t, err)
}

func TestNewValidator_Disabled(t *testing.T) {
	v, err := NewValidator(context.Background(), &config.Config{}, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, v.Enabled())
	assert.True(t, v.Ready())

	_, err = v.Validate(context.Background(), "token")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken("abc"))
	assert.Empty(t, BearerToken(""))
}
