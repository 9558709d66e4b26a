package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects how an Inspector treats token signatures.
type SigningMethod string

const (
	// MethodUnverified reads claims without checking the signature.
	MethodUnverified SigningMethod = "unverified"
	// MethodEd25519 verifies EdDSA signatures.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 verifies HMAC-SHA256 signatures.
	MethodHS256 SigningMethod = "hs256"
)

var (
	// ErrMalformedToken is returned for input that is not a JWT.
	ErrMalformedToken = errors.New("malformed access token")
	// ErrInvalidToken is returned when verification fails.
	ErrInvalidToken = errors.New("invalid access token")
)

// Config configures an Inspector. The zero value inspects without verification.
type Config struct {
	SigningMethod SigningMethod
	// VerifyKey is the HMAC secret for HS256, or a raw or PEM Ed25519 public key.
	VerifyKey []byte
	Issuer    string
	Audience  string
	Leeway    time.Duration
}

// Claims holds the identity claims of an access token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Inspector extracts claims from access tokens. It is safe for concurrent use.
type Inspector struct {
	config    Config
	verifyKey interface{}
}

// NewInspector validates cfg and returns an Inspector.
func NewInspector(cfg Config) (*Inspector, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodUnverified
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	in := &Inspector{config: cfg}
	switch cfg.SigningMethod {
	case MethodUnverified:
	case MethodHS256:
		if len(cfg.VerifyKey) == 0 {
			return nil, errors.New("hs256 requires a verify key")
		}
		in.verifyKey = cfg.VerifyKey
	case MethodEd25519:
		key, err := parseEdPublicKey(cfg.VerifyKey)
		if err != nil {
			return nil, err
		}
		in.verifyKey = key
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}
	return in, nil
}

// Verifying reports whether signatures are checked.
func (i *Inspector) Verifying() bool {
	return i.config.SigningMethod != MethodUnverified
}

// Inspect parses token and returns its claims.
func (i *Inspector) Inspect(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedToken)
	}

	if !i.Verifying() {
		claims := &Claims{}
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
		return claims, nil
	}

	alg := i.method().Alg()
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{alg})}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}
	if i.config.Audience != "" {
		options = append(options, jwt.WithAudience(i.config.Audience))
	}

	claims := &Claims{}
	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != alg {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return i.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (i *Inspector) method() jwt.SigningMethod {
	if i.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
