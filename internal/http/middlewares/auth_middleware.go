package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/favfilms/internal/actorctx"
	"github.com/geocoder89/favfilms/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	msgNoToken      = "No token provided"
	msgInvalidToken = "Invalid or expired token"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (auth.Subject, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
}

func NewAuthMiddleware(tokens TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth lets the request through only with a valid bearer token. The
// downstream handler is never reached otherwise.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, msgNoToken)
			return
		}

		subject, err := m.tokens.Verify(raw)
		if err != nil {
			abortUnauthorized(c, msgInvalidToken)
			return
		}

		c.Set(CtxSubject, subject)
		c.Request = c.Request.WithContext(actorctx.WithSubject(c.Request.Context(), subject))

		c.Next()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}

	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return "", false
	}

	return raw, true
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"message": message,
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

// Optional helper so handlers don’t need to know the magic key.
func SubjectFromContext(c *gin.Context) (auth.Subject, bool) {
	v, ok := c.Get(CtxSubject)
	if !ok {
		return auth.Subject{}, false
	}
	s, ok := v.(auth.Subject)
	return s, ok && s.ID != ""
}
