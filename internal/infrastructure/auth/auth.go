package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"jan-server/services/media-storage/internal/config"
	"jan-server/services/media-storage/internal/domain"
)

var (
	// ErrNoToken is returned when the request carries no bearer token.
	ErrNoToken = errors.New("missing bearer token")
	// ErrDisabled is returned when token validation is not configured.
	ErrDisabled = errors.New("jwt validation disabled")
)

var validMethods = []string{"RS256", "RS384", "RS512"}

// Validator verifies bearer JWTs against a JWKS endpoint.
type Validator struct {
	cfg     *config.Config
	log     zerolog.Logger
	jwks    *keyfunc.JWKS
	keyfunc jwt.Keyfunc
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	log = log.With().Str("component", "auth").Logger()
	if !cfg.AuthEnabled {
		return &Validator{cfg: cfg, log: log}, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	return &Validator{
		cfg:     cfg,
		log:     log,
		jwks:    jwks,
		keyfunc: jwks.Keyfunc,
	}, nil
}

// NewValidatorWithKeyfunc builds a validator around a caller supplied key source.
func NewValidatorWithKeyfunc(cfg *config.Config, keyFunc jwt.Keyfunc, log zerolog.Logger) *Validator {
	return &Validator{cfg: cfg, log: log, keyfunc: keyFunc}
}

// Enabled reports whether bearer tokens are checked.
func (v *Validator) Enabled() bool {
	return v != nil && v.keyfunc != nil
}

// Ready reports whether signing keys are available.
func (v *Validator) Ready() bool {
	if v == nil || !v.cfg.AuthEnabled {
		return true
	}
	if v.jwks == nil {
		return v.keyfunc != nil
	}
	return len(v.jwks.KIDs()) > 0
}

// Validate parses the raw token and maps its claims onto a principal.
func (v *Validator) Validate(_ context.Context, rawToken string) (domain.Principal, error) {
	if !v.Enabled() {
		return domain.Principal{}, ErrDisabled
	}
	if rawToken == "" {
		return domain.Principal{}, ErrNoToken
	}

	opts := []jwt.ParserOption{
		jwt.WithIssuer(v.cfg.AuthIssuer),
		jwt.WithValidMethods(validMethods),
	}
	if v.cfg.AuthAudience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.AuthAudience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, v.keyfunc, opts...)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return domain.Principal{}, errors.New("invalid token")
	}

	subject, _ := claims.GetSubject()
	if subject == "" {
		return domain.Principal{}, errors.New("token has no subject")
	}
	issuer, _ := claims.GetIssuer()

	return domain.Principal{
		ID:         subject,
		AuthMethod: domain.AuthMethodJWT,
		Subject:    subject,
		Issuer:     issuer,
		Username:   stringClaim(claims, "preferred_username"),
		Email:      stringClaim(claims, "email"),
		Scopes:     strings.Fields(stringClaim(claims, "scope")),
	}, nil
}

// Close stops the background JWKS refresh.
func (v *Validator) Close() {
	if v != nil && v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return value
}
