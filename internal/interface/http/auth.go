package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/academy-hub/academy-ledger/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION
// Two ways in: learner-facing clients present a JWT whose subject is the
// learner's wallet identity, and trusted services (the attestation backend,
// the admin CLI) present an API key checked against a bcrypt hash. Either
// way the request gets a principal, and the principal's identity becomes
// the command Actor. Authorization itself lives in the domain: the ledger
// compares the actor against the configured authority, backend signer, or
// the learner's own identity.
// ══════════════════════════════════════════════════════════════════════════════

// AuthConfig configures request authentication.
type AuthConfig struct {
	// JWTSecret is the HMAC secret learner tokens are signed with.
	JWTSecret string

	// JWTIssuer, when set, is required in token claims.
	JWTIssuer string

	// APIKeyHeader is the header service clients send their key in.
	APIKeyHeader string

	// ServiceKeys maps a service identity to the bcrypt hash of its key.
	// A matching key authenticates the request as that identity.
	ServiceKeys map[string]string
}

// DefaultAuthConfig returns defaults with no keys configured.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{APIKeyHeader: "X-API-Key"}
}

var (
	// ErrNoCredentials is returned when a request carries no token or key.
	ErrNoCredentials = errors.New("auth: no credentials")

	// ErrInvalidToken is returned for malformed, expired, or forged tokens.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnknownAPIKey is returned when no configured service key matches.
	ErrUnknownAPIKey = errors.New("auth: unknown API key")
)

// Principal identifies the authenticated caller.
type Principal struct {
	// ID is the caller's wallet identity, used as the command Actor.
	ID string

	// Service is true when the caller authenticated with an API key.
	Service bool
}

type principalKey struct{}

// PrincipalFrom extracts the authenticated principal from the context.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ledgerClaims are the registered claims learner tokens carry.
type ledgerClaims struct {
	jwt.RegisteredClaims
}

// Authenticator resolves request credentials into a Principal.
type Authenticator struct {
	cfg AuthConfig
	log *logger.Logger
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(cfg AuthConfig, log *logger.Logger) *Authenticator {
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = "X-API-Key"
	}
	if log == nil {
		log = logger.Default()
	}
	return &Authenticator{cfg: cfg, log: log.With(logger.Component("auth"))}
}

// Authenticate resolves the request's credentials. API keys are checked
// first so a service client that also forwards a user token still acts as
// itself.
func (a *Authenticator) Authenticate(r *http.Request) (Principal, error) {
	if key := r.Header.Get(a.cfg.APIKeyHeader); key != "" {
		return a.authenticateKey(key)
	}
	if header := r.Header.Get("Authorization"); header != "" {
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return Principal{}, ErrInvalidToken
		}
		return a.authenticateToken(raw)
	}
	return Principal{}, ErrNoCredentials
}

func (a *Authenticator) authenticateKey(key string) (Principal, error) {
	for identity, hash := range a.cfg.ServiceKeys {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
			return Principal{ID: identity, Service: true}, nil
		}
	}
	return Principal{}, ErrUnknownAPIKey
}

func (a *Authenticator) authenticateToken(raw string) (Principal, error) {
	var claims ledgerClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if a.cfg.JWTIssuer != "" && claims.Issuer != a.cfg.JWTIssuer {
		return Principal{}, fmt.Errorf("%w: wrong issuer", ErrInvalidToken)
	}
	return Principal{ID: claims.Subject}, nil
}

// IssueToken mints a learner token. Used by tests and the local dev CLI;
// production tokens come from the platform's identity service.
func (a *Authenticator) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := ledgerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.cfg.JWTIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.JWTSecret))
}

// HashAPIKey produces the bcrypt hash stored in ServiceKeys for a raw key.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// requireAuth wraps a handler so only authenticated requests reach it.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.auth.Authenticate(r)
		if err != nil {
			status := http.StatusUnauthorized
			code := "unauthorized"
			if errors.Is(err, ErrNoCredentials) {
				code = "missing_credentials"
			}
			writeError(w, status, code, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next(w, r.WithContext(ctx))
	}
}
