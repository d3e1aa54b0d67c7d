package user

import (
	"github.com/gin-gonic/gin"
)

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.POST("/auth/login", h.Login)
}

// RegisterProtectedRoutes expects JWTAuth on the group. wardenOnly guards
// the staff directory used when assigning complaints.
func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup, wardenOnly gin.HandlerFunc) {
	protected.GET("/auth/me", h.GetMe)
	protected.GET("/staff", wardenOnly, h.ListStaff)
}
