package server

import (
	"log/slog"
	"net/http"

	"hostelcare/internal/domain/complaint"
	"hostelcare/internal/domain/notification"
	"hostelcare/internal/domain/user"
	"hostelcare/internal/middleware"
	"hostelcare/internal/pkg/jwt"
	"hostelcare/internal/realtime"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	JWT           *jwt.Service
	Users         *user.Handler
	Complaints    *complaint.Handler
	Notifications *notification.Handler
	Hub           *realtime.Hub
	CORSOrigins   []string
	Logger        *slog.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorLogger(cfg.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	cfg.Users.RegisterPublicRoutes(v1)

	// authenticates itself from ?token=
	if cfg.Hub != nil {
		v1.GET("/ws", cfg.Hub.ServeWS)
	}

	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(cfg.JWT))
	{
		cfg.Users.RegisterProtectedRoutes(protected, middleware.WardenOnly())
		complaint.RegisterRoutes(protected, cfg.Complaints)
		notification.RegisterRoutes(protected, cfg.Notifications)
	}

	return r
}
