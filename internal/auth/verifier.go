// Package auth verifies identity-provider bearer tokens and keeps the user
// profile that goes with them.
package auth

import (
	"crypto/rsa"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-disaster-v2v/internal/config"
)

var (
	ErrMissingToken = eris.New("missing bearer token")
	ErrInvalidToken = eris.New("invalid token")
)

const identityKey = "auth.identity"

// Identity is the caller as asserted by a verified token.
type Identity struct {
	UserID  string
	Email   string
	Name    string
	Picture string
}

type Claims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with a shared secret and RS256 tokens
// signed by the identity provider key. Either or both may be configured.
type Verifier struct {
	secret   []byte
	key      *rsa.PublicKey
	issuer   string
	audience string
	now      func() time.Time
}

func NewVerifier(cfg config.AuthConfig) (*Verifier, error) {
	v := &Verifier{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}
	if cfg.JWTSecret != "" {
		v.secret = []byte(cfg.JWTSecret)
	}
	if cfg.JWTPublicKey != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.JWTPublicKey))
		if err != nil {
			return nil, eris.Wrap(err, "parse jwt public key")
		}
		v.key = key
	}
	return v, nil
}

// Configured reports whether any key is available. An unconfigured verifier
// rejects every token.
func (v *Verifier) Configured() bool {
	return v.secret != nil || v.key != nil
}

func (v *Verifier) methods() []string {
	var methods []string
	if v.secret != nil {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if v.key != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	return methods
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.secret != nil {
			return v.secret, nil
		}
	case *jwt.SigningMethodRSA:
		if v.key != nil {
			return v.key, nil
		}
	}
	return nil, eris.Errorf("unexpected signing method %s", t.Method.Alg())
}

// Verify parses and validates raw, returning the identity it asserts.
func (v *Verifier) Verify(raw string) (*Identity, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}
	if !v.Configured() {
		return nil, eris.Wrap(ErrInvalidToken, "no verification key configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods()),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	if _, err := jwt.ParseWithClaims(raw, &claims, v.keyFunc, opts...); err != nil {
		return nil, eris.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" {
		return nil, eris.Wrap(ErrInvalidToken, "token has no subject")
	}

	return &Identity{
		UserID:  claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter for websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's Identity on the context.
func Middleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := v.Verify(bearerToken(c.Request))
		if err != nil {
			_ = c.Error(err)
			msg := "invalid token"
			if errors.Is(err, ErrMissingToken) {
				msg = "missing bearer token"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": msg})
			return
		}
		c.Set(identityKey, *identity)
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Middleware.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}
