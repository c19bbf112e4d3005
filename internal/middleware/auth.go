package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/pkg/jwt"
	"github.com/noted-space/noted/internal/pkg/response"
	"gorm.io/gorm"
)

const ContextKeyUserID = "user_id"

var errInactiveUser = errors.New("user is inactive or gone")

// Auth returns a middleware that requires a valid JWT of an active user.
// A user already resolved by OptionalAuth earlier in the chain is trusted.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAuthenticated(c) {
			c.Next()
			return
		}
		userID, err := ValidateToken(db, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// OptionalAuth sets the user ID if a valid token is present, but does not block the request.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAuthenticated(c) {
			c.Next()
			return
		}
		if userID, err := ValidateToken(db, extractToken(c)); err == nil {
			c.Set(ContextKeyUserID, userID)
		}
		c.Next()
	}
}

// ValidateToken parses a JWT and returns its user ID when that user is active.
func ValidateToken(db *gorm.DB, rawToken string) (string, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return "", errors.New("token is required")
	}
	claims, err := jwt.Parse(token)
	if err != nil {
		return "", err
	}

	var n int64
	if err := db.Model(&models.UserModel{}).
		Where("id = ? AND is_active = ?", claims.UserID, true).
		Count(&n).Error; err != nil {
		return "", err
	}
	if n == 0 {
		return "", errInactiveUser
	}
	return claims.UserID, nil
}

// Staff must run after Auth; it rejects users without the staff flag.
func Staff(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var n int64
		if err := db.Model(&models.UserModel{}).
			Where("id = ? AND is_staff = ?", CurrentUserID(c), true).
			Count(&n).Error; err != nil || n == 0 {
			response.Forbidden(c)
			return
		}
		c.Next()
	}
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
