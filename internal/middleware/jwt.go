package middleware

import (
	"net/http"
	"strings"

	"github.com/altostack/contactvault/internal/constants"
	"github.com/altostack/contactvault/internal/service"
	"github.com/altostack/contactvault/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys populated by RequireAuth
const (
	CtxUserID     = "user_id"
	CtxEmail      = "email"
	CtxIsVerified = "is_verified"
	CtxRawToken   = "raw_token"
)

type JWTMiddleware struct {
	jwtService *service.JWTService
	revocation service.RevocationStore
}

func NewJWTMiddleware(jwtService *service.JWTService, revocation service.RevocationStore) *JWTMiddleware {
	return &JWTMiddleware{
		jwtService: jwtService,
		revocation: revocation,
	}
}

// RequireAuth validates the bearer token, rejects revoked tokens, and sets
// the caller's identity in the request context.
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(constants.HeaderAuthorization)
		if authHeader == "" {
			logger.GetLogger().Warn("Missing Authorization header",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method))
			c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
			c.Abort()
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			logger.GetLogger().Warn("Invalid Authorization header format",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method))
			c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
			c.Abort()
			return
		}

		tokenString := tokenParts[1]

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			logger.GetLogger().Warn("Invalid or expired token",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(err))
			c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
			c.Abort()
			return
		}

		// Refresh tokens never authorize API requests
		if typ, _ := claims["typ"].(string); typ == "refresh" {
			c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
			c.Abort()
			return
		}

		revoked, err := m.revocation.IsRevoked(c.Request.Context(), tokenString)
		if err != nil {
			logger.GetLogger().Error("Revocation check failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, constants.BuildErrorResponse(constants.MsgInternalError, nil))
			c.Abort()
			return
		}
		if revoked {
			logger.GetLogger().Warn("Revoked token presented",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method))
			c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
			c.Abort()
			return
		}

		userIDFloat, ok := claims["user_id"].(float64)
		if !ok {
			logger.GetLogger().Warn("Invalid user ID in token",
				zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
			c.Abort()
			return
		}

		email, _ := claims["email"].(string)
		isVerified, _ := claims["is_verified"].(bool)

		c.Set(CtxUserID, uint(userIDFloat))
		c.Set(CtxEmail, email)
		c.Set(CtxIsVerified, isVerified)
		c.Set(CtxRawToken, tokenString)

		c.Next()
	}
}

// UserID extracts the authenticated user's ID from the Gin context
func UserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(CtxUserID)
	if !exists {
		return 0, false
	}
	userID, ok := value.(uint)
	return userID, ok
}

// RawToken extracts the bearer token RequireAuth validated
func RawToken(c *gin.Context) (string, bool) {
	value, exists := c.Get(CtxRawToken)
	if !exists {
		return "", false
	}
	token, ok := value.(string)
	return token, ok
}
