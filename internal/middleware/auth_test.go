package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"filecatalog/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, credential string) (*Principal, error) {
	args := m.Called(ctx, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Principal), args.Error(1)
}

func newGatedRouter(t *testing.T, auth Authenticator, overrides map[string]bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	policy, err := NewPolicy(overrides)
	require.NoError(t, err)
	gate := NewAccessGate(auth, policy)

	router := gin.New()
	handler := func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"principal": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"principal": p.ID, "method": p.Method})
	}
	router.GET("/upload", gate.Require(OpUpload), handler)
	router.GET("/stream", gate.Require(OpStream), handler)
	router.GET("/events", gate.Require(OpEvents), handler)
	return router
}

func doGet(router http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestAccessGate_ValidToken(t *testing.T) {
	jwtService := jwt.New("test-secret-123", time.Hour)
	validToken, err := jwtService.GenerateToken("u-42", "alice")
	require.NoError(t, err)

	router := newGatedRouter(t, NewJWTAuthenticator(jwtService), nil)

	w := doGet(router, "/upload", map[string]string{"Authorization": "Bearer " + validToken})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u-42")
	assert.Contains(t, w.Body.String(), "jwt")
}

func TestAccessGate_InvalidToken(t *testing.T) {
	router := newGatedRouter(t, NewJWTAuthenticator(jwt.New("secret", time.Hour)), nil)

	w := doGet(router, "/upload", map[string]string{"Authorization": "Bearer invalid-jwt-here"})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
}

func TestAccessGate_NoToken(t *testing.T) {
	router := newGatedRouter(t, NewJWTAuthenticator(jwt.New("secret", time.Hour)), nil)

	w := doGet(router, "/upload", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestAccessGate_WrongFormat(t *testing.T) {
	router := newGatedRouter(t, NewJWTAuthenticator(jwt.New("secret", time.Hour)), nil)

	for _, header := range []string{"Basic dGVzdA==", "Bearer", "Bearer   "} {
		w := doGet(router, "/upload", map[string]string{"Authorization": header})
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestAccessGate_OpenOperationSkipsAuthenticator(t *testing.T) {
	auth := new(MockAuthenticator)
	router := newGatedRouter(t, auth, nil)

	w := doGet(router, "/stream", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	auth.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
}

func TestAccessGate_PolicyOverride(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("Authenticate", mock.Anything, "good").Return(&Principal{ID: "p1", Method: "mock"}, nil)

	router := newGatedRouter(t, auth, map[string]bool{"stream": true, "upload": false})

	assert.Equal(t, http.StatusUnauthorized, doGet(router, "/stream", nil).Code)
	assert.Equal(t, http.StatusOK, doGet(router, "/stream", map[string]string{"Authorization": "Bearer good"}).Code)
	assert.Equal(t, http.StatusOK, doGet(router, "/upload", nil).Code)
	auth.AssertExpectations(t)
}

func TestAccessGate_WebsocketQueryToken(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("Authenticate", mock.Anything, "ws-token").Return(&Principal{ID: "p1", Method: "mock"}, nil)
	router := newGatedRouter(t, auth, nil)

	ws := map[string]string{"Connection": "Upgrade", "Upgrade": "websocket"}
	w := doGet(router, "/events?token=ws-token", ws)
	assert.Equal(t, http.StatusOK, w.Code)

	// plain requests never read the query token
	w = doGet(router, "/events?token=ws-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIKeyAuthenticator(t *testing.T) {
	key := APIKeyPrefix + "0123456789abcdef"
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(t, err)

	auth := NewAPIKeyAuthenticator(string(hash))

	p, err := auth.Authenticate(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "api_key", p.Method)

	_, err = auth.Authenticate(context.Background(), APIKeyPrefix+"wrong")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = auth.Authenticate(context.Background(), "0123456789abcdef")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = NewAPIKeyAuthenticator("").Authenticate(context.Background(), key)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestChainAuthenticator(t *testing.T) {
	jwtService := jwt.New("secret", time.Hour)
	token, err := jwtService.GenerateToken("u-1", "alice")
	require.NoError(t, err)

	key := APIKeyPrefix + "k"
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(t, err)

	chain := ChainAuthenticator{NewJWTAuthenticator(jwtService), NewAPIKeyAuthenticator(string(hash))}

	p, err := chain.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.ID)

	p, err = chain.Authenticate(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "service", p.ID)

	_, err = chain.Authenticate(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestGenerateAPIKey(t *testing.T) {
	key, hash, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, APIKeyPrefix))
	assert.Len(t, key, len(APIKeyPrefix)+48)

	p, err := NewAPIKeyAuthenticator(hash).Authenticate(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "service", p.ID)

	other, _, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}
