package middleware

import (
	"context"
	"net/http"
	"strings"

	"catalog-chat/internal/domain"
	"catalog-chat/internal/transport/httpdto"
	"catalog-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type TokenParser interface {
	ParseAccessToken(token string) (domain.Identity, error)
}

type identityKey struct{}

// AuthMiddleware requires a valid bearer token and stores the identity on the request context.
func AuthMiddleware(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := parser.ParseAccessToken(extractBearer(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		ctx := context.WithValue(c.Request.Context(), identityKey{}, identity)
		ctx = context.WithValue(ctx, logger.UserIdKey, identity.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(domain.Identity)
	return identity, ok
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
