package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"ibooks/internal/config"
	apperrors "ibooks/internal/errors"
	"ibooks/internal/models"
)

const (
	tokenIssuer = "ibooks-api"

	userIDKey = "userID"
	userKey   = "user"
)

// JWTClaims represents the claims in the JWT
type JWTClaims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a TokenManager from the JWT settings of cfg.
func NewTokenManager(cfg *config.Config) *TokenManager {
	return &TokenManager{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.JWTExpirationDur,
		now:    time.Now,
	}
}

// TTL returns the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Generate issues an access token for user.
func (m *TokenManager) Generate(user *models.User) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := &JWTClaims{
		UserID: user.ID,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse validates a token string and returns its claims.
func (m *TokenManager) Parse(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	if claims.UserID == 0 {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// CookieSettings describes the session cookie carrying the access token.
type CookieSettings struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
}

// NewCookieSettings maps the auth cookie configuration.
func NewCookieSettings(cfg *config.Config) CookieSettings {
	sameSite := http.SameSiteLaxMode
	switch cfg.AuthCookieSameSite {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}
	return CookieSettings{Name: cfg.AuthCookieName, Secure: cfg.AuthCookieSecure, SameSite: sameSite}
}

// Set writes the session cookie.
func (s CookieSettings) Set(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(s.SameSite)
	c.SetCookie(s.Name, token, int(ttl.Seconds()), "/", "", s.Secure, true)
}

// Clear expires the session cookie.
func (s CookieSettings) Clear(c *gin.Context) {
	c.SetSameSite(s.SameSite)
	c.SetCookie(s.Name, "", -1, "/", "", s.Secure, true)
}

// UserLoader resolves the user behind a verified token.
type UserLoader interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// AuthMiddleware accepts a bearer token or the session cookie, loads the
// user and rejects inactive accounts.
func AuthMiddleware(tokens *TokenManager, users UserLoader, cookies CookieSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c, cookies.Name)
		if !ok {
			abortWith(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Not authenticated"))
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			abortWith(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid or expired token"))
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				abortWith(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "User not found"))
				return
			}
			abortWith(c, err)
			return
		}
		if !user.IsActive {
			abortWith(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "User is inactive"))
			return
		}

		c.Set(userIDKey, user.ID)
		c.Set(userKey, user)
		c.Next()
	}
}

// RequireAdmin rejects authenticated callers without the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortWith(c, apperrors.ErrUnauthorized)
			return
		}
		if !user.IsAdmin() {
			abortWith(c, apperrors.WithMessage(apperrors.ErrForbidden, "Admin only"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user loaded by AuthMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

func extractToken(c *gin.Context, cookieName string) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && strings.TrimSpace(parts[1]) != "" {
			return strings.TrimSpace(parts[1]), true
		}
		return "", false
	}
	if cookieName == "" {
		return "", false
	}
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v, true
	}
	return "", false
}

// abortWith records err for ErrorHandler and stops the chain.
func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
