package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domain "user-registry-service/internal/domain/user"
	apperrors "user-registry-service/pkg/errors"
)

// IdentityKey is the gin context key the auth gate stores the decoded
// identity under.
const IdentityKey = "identity"

// TokenVerifier is the verification half of the auth capability.
type TokenVerifier interface {
	Verify(token string) (*domain.Identity, error)
}

// AuthGate returns a middleware that requires a valid bearer token and
// attaches the decoded identity to the request context. A request with no
// token at all fails with 498; a request with a bad token fails with 401.
func AuthGate(verifier TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			log.Warn("request without bearer token", zap.String("path", c.Request.URL.Path))
			abortWithError(c, apperrors.NewTokenRequiredError("Token not found"))
			return
		}

		identity, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			log.Warn("token verification failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
			abortWithError(c, apperrors.NewUnauthorizedError("Invalid or expired token"))
			return
		}

		c.Set(IdentityKey, *identity)
		c.Next()
	}
}

// IdentityFrom extracts the decoded identity the auth gate attached.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}

// abortWithError terminates the request with the taxonomy envelope.
func abortWithError(c *gin.Context, err *apperrors.Error) {
	c.AbortWithStatusJSON(err.Status, gin.H{
		"status":     err.Status,
		"statusText": apperrors.StatusText(err.Status),
		"message":    err.Message,
	})
}
