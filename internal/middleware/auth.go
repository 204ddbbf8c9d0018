package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	OwnerKey     contextKey = "owner"
	ownerSlotKey contextKey = "owner_slot"
)

var (
	errMissingCredentials = errors.New("missing Authorization header")
	errInvalidCredentials = errors.New("invalid API key or session token")
)

// SessionClaims are the claims read from a session JWT. TenantID, when
// present, scopes reports to the tenant instead of the individual subject.
type SessionClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id,omitempty"`
}

// JWTVerifier validates HS256 session tokens issued by the identity provider.
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	if secret == "" {
		return nil
	}
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

// Owner returns the report owner for a valid token.
func (v *JWTVerifier) Owner(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("token validation failed: %w", err)
	}
	if claims.TenantID != "" {
		return claims.TenantID, nil
	}
	if claims.Subject == "" {
		return "", errors.New("token subject is required")
	}
	return claims.Subject, nil
}

// Authenticate accepts either a per-owner API key or a session JWT from the
// Authorization header and stores the owner in the request context. Failures
// are passed to onFail; nothing downstream runs.
func Authenticate(apiKeys map[string]string, verifier *JWTVerifier, onFail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				onFail(w, r, errMissingCredentials)
				return
			}

			// Support both "Bearer <key>" and "<key>" formats
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				onFail(w, r, errMissingCredentials)
				return
			}

			owner, ok := matchAPIKey(apiKeys, token)
			if !ok && verifier != nil {
				if o, err := verifier.Owner(token); err == nil {
					owner, ok = o, true
				}
			}
			if !ok {
				onFail(w, r, errInvalidCredentials)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

// matchAPIKey compares against every key in constant time.
func matchAPIKey(keys map[string]string, token string) (string, bool) {
	var owner string
	found := false
	for o, key := range keys {
		if subtle.ConstantTimeCompare([]byte(token), []byte(key)) == 1 {
			owner, found = o, true
		}
	}
	return owner, found
}

// WithOwner stores owner in ctx and reports it to the request logger.
func WithOwner(ctx context.Context, owner string) context.Context {
	if slot, ok := ctx.Value(ownerSlotKey).(*string); ok {
		*slot = owner
	}
	return context.WithValue(ctx, OwnerKey, owner)
}

func withOwnerSlot(ctx context.Context, slot *string) context.Context {
	return context.WithValue(ctx, ownerSlotKey, slot)
}

// GetOwnerFromContext extracts owner from context
func GetOwnerFromContext(ctx context.Context) string {
	if owner, ok := ctx.Value(OwnerKey).(string); ok {
		return owner
	}
	return ""
}
