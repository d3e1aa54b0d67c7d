package notification

import (
	"net/http"
	"strconv"

	"hostelcare/internal/middleware"
	"hostelcare/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GetNotifications(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing actor")
		return
	}

	limit := 20
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	offset := 0
	if s := c.Query("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	res, err := h.service.List(c.Request.Context(), actor, limit, offset)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

func (h *Handler) GetUnreadCount(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing actor")
		return
	}

	unread, err := h.service.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unread_count": unread})
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing actor")
		return
	}

	n, err := h.service.MarkNotificationRead(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"notification": n})
}

func (h *Handler) MarkAllAsRead(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing actor")
		return
	}

	changed, err := h.service.MarkAllRead(c.Request.Context(), actor, actor.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": changed})
}
