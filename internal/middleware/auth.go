package middleware

import (
	"net/http"
	"strings"

	"hostelcare/internal/domain/user"
	"hostelcare/internal/pkg/jwt"
	"hostelcare/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID   = "user_id"
	ctxUserName = "user_name"
	ctxRole     = "role"
)

// JWTAuth validates the bearer token and stores the actor on the context.
func JWTAuth(j *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			response.CustomError(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Missing Authorization header")
			return
		}
		if !strings.HasPrefix(h, "Bearer ") {
			response.CustomError(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Invalid Authorization header")
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		if tokenStr == "" {
			response.CustomError(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Empty token")
			return
		}

		claims, err := j.ValidateToken(tokenStr)
		if err != nil || !user.Role(claims.Role).Valid() {
			response.CustomError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token")
			return
		}

		SetActor(c, user.Actor{ID: claims.UserID, Name: claims.Name, Role: user.Role(claims.Role)})
		c.Next()
	}
}

func SetActor(c *gin.Context, a user.Actor) {
	c.Set(ctxUserID, a.ID)
	c.Set(ctxUserName, a.Name)
	c.Set(ctxRole, string(a.Role))
}

// Actor returns the caller stored by JWTAuth.
func Actor(c *gin.Context) (user.Actor, bool) {
	id := c.GetString(ctxUserID)
	if id == "" {
		return user.Actor{}, false
	}
	return user.Actor{
		ID:   id,
		Name: c.GetString(ctxUserName),
		Role: user.Role(c.GetString(ctxRole)),
	}, true
}
