// Package auth verifies the bearer tokens issued by the voice-AI backend.
// The server never mints session tokens itself; it only checks that the
// caller presents a token signed with the shared secret before proxying.
package auth

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/boostedcalls/boostedcalls/internal/apperr"
)

// Claims are the token claims the server cares about.
type Claims struct {
	gojwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Config configures token verification.
type Config struct {
	// Secret is the HMAC signing key shared with the backend.
	Secret string `yaml:"secret" mapstructure:"secret"`

	// Issuer, when set, is required in the "iss" claim.
	Issuer string `yaml:"issuer" mapstructure:"issuer"`

	// TokenTTL is the lifetime applied by Generate. Defaults to 15m.
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.TokenTTL <= 0 {
		c.TokenTTL = 15 * time.Minute
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Secret == "" {
		return errors.New("auth: secret is required")
	}
	return nil
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	cfg Config
}

// NewVerifier creates a token verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Verifier{cfg: cfg}, nil
}

// Verify parses and validates a token string. Failures are reported as
// unauthorized so handlers can pass the error straight to the client.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(v.cfg.Issuer))
	}

	token, err := gojwt.ParseWithClaims(tokenString, claims, v.keyFunc, opts...)
	if err != nil {
		return nil, apperr.Unauthorized("").WithCause(err)
	}
	if !token.Valid {
		return nil, apperr.Unauthorized("")
	}
	return claims, nil
}

// Generate creates a signed token for the given subject. Used by tests and
// local development tooling.
func (v *Verifier) Generate(subject string, claims *Claims) (string, error) {
	if claims == nil {
		claims = &Claims{}
	}
	now := time.Now()
	claims.Subject = subject
	claims.IssuedAt = gojwt.NewNumericDate(now)
	claims.ExpiresAt = gojwt.NewNumericDate(now.Add(v.cfg.TokenTTL))
	if v.cfg.Issuer != "" {
		claims.Issuer = v.cfg.Issuer
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(v.cfg.Secret))
}

func (v *Verifier) keyFunc(token *gojwt.Token) (interface{}, error) {
	if token.Method.Alg() != gojwt.SigningMethodHS256.Alg() {
		return nil, errors.New("auth: unexpected signing method: " + token.Method.Alg())
	}
	return []byte(v.cfg.Secret), nil
}
