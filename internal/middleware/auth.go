package middleware

import (
	"net/http"
	"strings"

	"inkwell/internal/db"
	"inkwell/internal/models"
	"inkwell/internal/utils"

	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"

// extractToken 从请求头取 JWT，兼容 Authorization: Bearer 和 x-auth-token
func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.GetHeader("x-auth-token")
}

// LoadUser retrieves user from token and sets to context.
// Token 缺失或非法时不拦截，公开接口据此展示匿名视图。
func LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token != "" {
			if userID, err := utils.ParseToken(token); err == nil {
				var user models.User
				if result := db.DB.First(&user, userID); result.Error == nil && user.IsActive {
					c.Set(CheckUserKey, &user)
				}
			}
		}
		c.Next()
	}
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(CheckUserKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "No token, authorization denied",
			})
			return
		}
		c.Next()
	}
}

// AdminRequired ensures the current user is an admin.
// 必须排在 AuthRequired 之后。
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, exists := c.Get(CheckUserKey)
		if !exists || !u.(*models.User).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Access denied. Admin privileges required.",
			})
			return
		}
		c.Next()
	}
}
