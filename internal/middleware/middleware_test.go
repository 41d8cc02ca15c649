package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"ibooks/internal/config"
	apperrors "ibooks/internal/errors"
	"ibooks/internal/logger"
	"ibooks/internal/models"
	"ibooks/internal/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUsers map[uint]*models.User

func (s stubUsers) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func newTestTokens(ttl time.Duration) *TokenManager {
	return NewTokenManager(&config.Config{JWTSecret: "middleware-test-secret", JWTExpirationDur: ttl})
}

func newAuthRouter(tokens *TokenManager, users UserLoader, extra ...gin.HandlerFunc) *gin.Engine {
	cookies := CookieSettings{Name: "ibooks_auth", SameSite: http.SameSiteLaxMode}
	r := gin.New()
	r.Use(ErrorHandler())
	handlers := append([]gin.HandlerFunc{AuthMiddleware(tokens, users, cookies)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"userID": c.GetUint(userIDKey), "username": user.Username})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestTokenManager(t *testing.T) {
	tokens := newTestTokens(time.Hour)
	user := &models.User{Base: models.Base{ID: 42}, Role: models.RoleAdmin}

	token, expiresAt, err := tokens.Generate(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	t.Run("rejects other secret", func(t *testing.T) {
		other := NewTokenManager(&config.Config{JWTSecret: "other", JWTExpirationDur: time.Hour})
		_, err := other.Parse(token)
		assert.Error(t, err)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		expired := newTestTokens(time.Hour)
		expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, _, err := expired.Generate(user)
		require.NoError(t, err)

		_, err = tokens.Parse(old)
		assert.Error(t, err)
	})
}

func TestAuthMiddleware(t *testing.T) {
	tokens := newTestTokens(time.Hour)
	users := stubUsers{
		1: {Base: models.Base{ID: 1}, Username: "alice", Role: models.RoleUser, IsActive: true},
		2: {Base: models.Base{ID: 2}, Username: "bob", Role: models.RoleUser, IsActive: false},
	}
	tokenFor := func(id uint) string {
		token, _, err := tokens.Generate(&models.User{Base: models.Base{ID: id}})
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name       string
		setup      func(req *http.Request)
		wantStatus int
	}{
		{"bearer token", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+tokenFor(1)) }, http.StatusOK},
		{"session cookie", func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "ibooks_auth", Value: tokenFor(1)}) }, http.StatusOK},
		{"no credentials", func(*http.Request) {}, http.StatusUnauthorized},
		{"malformed header", func(req *http.Request) { req.Header.Set("Authorization", "Token abc") }, http.StatusUnauthorized},
		{"garbage token", func(req *http.Request) { req.Header.Set("Authorization", "Bearer abc") }, http.StatusUnauthorized},
		{"inactive user", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+tokenFor(2)) }, http.StatusUnauthorized},
		{"unknown user", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+tokenFor(99)) }, http.StatusUnauthorized},
	}

	r := newAuthRouter(tokens, users)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			if tc.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tokens := newTestTokens(time.Hour)
	users := stubUsers{
		1: {Base: models.Base{ID: 1}, Username: "root", Role: models.RoleAdmin, IsActive: true},
		2: {Base: models.Base{ID: 2}, Username: "bob", Role: models.RoleUser, IsActive: true},
	}
	r := newAuthRouter(tokens, users, RequireAdmin())

	for id, want := range map[uint]int{1: http.StatusOK, 2: http.StatusForbidden} {
		token, _, err := tokens.Generate(users[id])
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, want, rec.Code, "user %d", id)
	}
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/app", func(c *gin.Context) { _ = c.Error(apperrors.ErrTransactionNotFound) })
	r.GET("/raw", func(c *gin.Context) { _ = c.Error(assert.AnError) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"TRANSACTION_NOT_FOUND","message":"Transaction not found"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/raw", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger.Set(zap.New(core).Sugar())
	t.Cleanup(func() { logger.Init("development") })

	r := gin.New()
	r.Use(RequestLogging())
	r.GET("/ping", func(c *gin.Context) {
		c.Set(userIDKey, uint(7))
		c.String(http.StatusOK, RequestID(c))
	})

	t.Run("assigns a request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		id := rec.Header().Get(requestIDHeader)
		assert.True(t, uuid.IsValid(id))
		assert.Equal(t, id, rec.Body.String())

		entries := logs.FilterMessage("request").All()
		require.NotEmpty(t, entries)
		fields := entries[len(entries)-1].ContextMap()
		assert.Equal(t, id, fields["request_id"])
		assert.Equal(t, "/ping", fields["route"])
		assert.EqualValues(t, 7, fields["user_id"])
	})

	t.Run("reuses a valid incoming id", func(t *testing.T) {
		incoming := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(requestIDHeader, incoming)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, incoming, rec.Header().Get(requestIDHeader))
	})

	t.Run("replaces an invalid incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(requestIDHeader, "not-a-uuid")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.NotEqual(t, "not-a-uuid", rec.Header().Get(requestIDHeader))
	})
}
