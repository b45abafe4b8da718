package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jalsaathi/internal/logging"
)

const (
	userIDContextKey    = "jalsaathi_user_id"
	authTokenContextKey = "jalsaathi_token"
)

// Middleware resolves the session token from the Authorization header or the
// session cookie and stores the user id on the context.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authToken := s.extractToken(c)
		if authToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		userID, err := s.ValidateToken(c.Request.Context(), authToken)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) && !errors.Is(err, ErrTokenExpired) {
				logging.L().WithError(err).Error("validate token failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authorization unavailable"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(userIDContextKey, userID)
		c.Set(authTokenContextKey, authToken)
		c.Next()
	}
}

func UserIDFromContext(c *gin.Context) (int64, bool) {
	val, ok := c.Get(userIDContextKey)
	if !ok {
		return 0, false
	}
	userID, ok := val.(int64)
	return userID, ok
}

func AuthTokenFromContext(c *gin.Context) (string, bool) {
	token, ok := c.Get(authTokenContextKey)
	if !ok {
		return "", false
	}
	s, ok := token.(string)
	return s, ok
}

// SetSessionCookies writes the session and CSRF cookies after login.
func (s *Service) SetSessionCookies(c *gin.Context, authToken, csrfToken string, secure bool) {
	maxAge := int(s.tokenTTL.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cookieName, authToken, maxAge, "/", "", secure, true)
	c.SetCookie(s.csrfCookieName, csrfToken, maxAge, "/", "", secure, false)
}

// ClearSessionCookies expires both cookies.
func (s *Service) ClearSessionCookies(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cookieName, "", -1, "/", "", secure, true)
	c.SetCookie(s.csrfCookieName, "", -1, "/", "", secure, false)
}

func bearerToken(header string) (string, bool) {
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:]), true
	}
	return "", false
}

func (s *Service) extractToken(c *gin.Context) string {
	if token, ok := bearerToken(c.GetHeader(s.headerName)); ok {
		return token
	}
	if token, err := c.Cookie(s.cookieName); err == nil && token != "" {
		return token
	}
	return ""
}
