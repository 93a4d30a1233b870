package middleware

import (
	"net/http"
	"strings"
	"time"

	"ideaportal/internal/model"
	"ideaportal/internal/service"
	"ideaportal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys set by RequireAuth
const (
	CtxEmployeeID    = "employeeID"
	CtxUserID        = "userID"
	CtxRole          = "userRole"
	CtxApprovalLevel = "approvalLevel"
)

const accessTokenCookie = "access_token"

// JWTSecret returns the signing secret. Release mode refuses to start without one.
func JWTSecret(secret string, release bool) []byte {
	if secret == "" {
		if release {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only
	}
	return []byte(secret)
}

// SetTokenCookie stores the access token as an HttpOnly cookie
func SetTokenCookie(c *gin.Context, token string, ttl time.Duration, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(accessTokenCookie, token, int(ttl.Seconds()), "/", "", secure, true)
}

// RequireAuth validates the JWT from the cookie or the Authorization header
// and puts the caller's identity into the gin context.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, cookieErr := c.Cookie(accessTokenCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		claims, employeeID, err := service.ParseToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		c.Set(CtxEmployeeID, employeeID)
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxApprovalLevel, claims.ApprovalLevel)

		c.Next()
	}
}

// RequireApprover lets through callers whose role takes part in approvals. Use after RequireAuth.
func RequireApprover() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetInt(CtxApprovalLevel) == model.ApprovalLevelNone {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: approver role required"))
			return
		}
		c.Next()
	}
}

// RequireSuperAdmin lets through only super-privileged roles. Use after RequireAuth.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetInt(CtxApprovalLevel) != model.ApprovalLevelSuperAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}
		c.Next()
	}
}

// EmployeeID returns the authenticated caller's employee id
func EmployeeID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CtxEmployeeID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
