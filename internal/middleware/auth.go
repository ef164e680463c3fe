package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"strings"

	"filecatalog/internal/pkg/jwt"
	"filecatalog/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const (
	// ContextPrincipal is the gin context key holding the *Principal.
	ContextPrincipal = "principal"
	// ContextUserID holds the principal id, for log lines.
	ContextUserID = "user_id"

	// APIKeyPrefix marks static service keys so JWTs never hit bcrypt.
	APIKeyPrefix = "fck_"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
)

// Principal is the identity behind an accepted credential.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Method   string `json:"method"`
}

// Authenticator turns an opaque bearer credential into a Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*Principal, error)
}

// JWTAuthenticator accepts HS256 session tokens.
type JWTAuthenticator struct {
	jwt *jwt.Service
}

func NewJWTAuthenticator(svc *jwt.Service) *JWTAuthenticator {
	return &JWTAuthenticator{jwt: svc}
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, credential string) (*Principal, error) {
	claims, err := a.jwt.ValidateToken(credential)
	if err != nil {
		return nil, ErrInvalidCredential
	}
	return &Principal{ID: claims.UserID, Username: claims.Username, Method: "jwt"}, nil
}

// APIKeyAuthenticator accepts a single static service key stored as a bcrypt
// hash.
type APIKeyAuthenticator struct {
	hash []byte
}

func NewAPIKeyAuthenticator(hash string) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{hash: []byte(hash)}
}

func (a *APIKeyAuthenticator) Authenticate(_ context.Context, credential string) (*Principal, error) {
	if len(a.hash) == 0 || !strings.HasPrefix(credential, APIKeyPrefix) {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(credential)); err != nil {
		return nil, ErrInvalidCredential
	}
	return &Principal{ID: "service", Username: "service", Method: "api_key"}, nil
}

// GenerateAPIKey returns a fresh service key and the bcrypt hash to put in
// API_KEY_HASH.
func GenerateAPIKey() (key, hash string, err error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	key = APIKeyPrefix + hex.EncodeToString(buf)
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return key, string(h), nil
}

// ChainAuthenticator tries each authenticator in order.
type ChainAuthenticator []Authenticator

func (c ChainAuthenticator) Authenticate(ctx context.Context, credential string) (*Principal, error) {
	for _, a := range c {
		if p, err := a.Authenticate(ctx, credential); err == nil {
			return p, nil
		}
	}
	return nil, ErrInvalidCredential
}

// AccessGate enforces the Policy in front of catalog handlers.
type AccessGate struct {
	auth   Authenticator
	policy *Policy
}

func NewAccessGate(auth Authenticator, policy *Policy) *AccessGate {
	return &AccessGate{auth: auth, policy: policy}
}

// Policy returns the table the gate enforces.
func (g *AccessGate) Policy() *Policy { return g.policy }

// Require returns the middleware guarding op. Operations the policy leaves
// open pass straight through.
func (g *AccessGate) Require(op Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.policy.RequiresAuth(op) {
			c.Next()
			return
		}

		credential, err := extractCredential(c)
		if err != nil {
			logAuthFailure(c, op, http.StatusUnauthorized, err.Error())
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "Access denied, no token provided")
			return
		}

		principal, err := g.auth.Authenticate(c.Request.Context(), credential)
		if err != nil {
			logAuthFailure(c, op, http.StatusForbidden, "invalid_credential")
			response.Abort(c, http.StatusForbidden, response.CodeForbidden, "Invalid or expired token")
			return
		}

		c.Set(ContextPrincipal, principal)
		c.Set(ContextUserID, principal.ID)
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by the gate, if any.
func PrincipalFrom(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok
}

func extractCredential(c *gin.Context) (string, error) {
	h := c.GetHeader("Authorization")
	if h == "" {
		// Browsers cannot set headers on websocket upgrades.
		if c.IsWebsocket() {
			if token := strings.TrimSpace(c.Query("token")); token != "" {
				return token, nil
			}
		}
		return "", ErrMissingCredential
	}

	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", errors.New("invalid_auth_format")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("empty_token")
	}
	return token, nil
}

func logAuthFailure(c *gin.Context, op Operation, status int, reason string) {
	log.Printf("access_gate_denied op=%s status=%d method=%s path=%s request_id=%s reason=%s",
		op, status, c.Request.Method, c.Request.URL.Path, requestID(c), reason)
}
