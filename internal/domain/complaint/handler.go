package complaint

import (
	"net/http"

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

func (h *Handler) CreateComplaint(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing actor")
		return
	}

	var req CreateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	created, err := h.service.Create(c.Request.Context(), actor, CreateInput{
		Campus:      req.Campus,
		Hostel:      req.Hostel,
		Category:    req.Category,
		Description: req.Description,
		Priority:    Priority(req.Priority),
		Attachments: req.Attachments,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"complaint": created})
}

func (h *Handler) ListComplaints(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing actor")
		return
	}

	var q ListComplaintsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query")
		return
	}

	f := ListFilter{Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		st := Status(q.Status)
		f.Status = &st
	}

	items, total, err := h.service.List(c.Request.Context(), actor, f)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"complaints": items,
		"total":      total,
	})
}

func (h *Handler) GetComplaint(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing actor")
		return
	}

	found, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"complaint": found})
}

// UpdateComplaint handles SetStatus, AssignTo, or both in one call.
func (h *Handler) UpdateComplaint(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing actor")
		return
	}

	var req UpdateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if req.Unassign && req.AssignedTo != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "assigned_to and unassign are exclusive")
		return
	}

	var intent Intent
	if req.Status != nil {
		intent = SetStatus(Status(*req.Status), req.ResolutionImages...)
	} else {
		intent.ResolutionImages = req.ResolutionImages
	}
	switch {
	case req.AssignedTo != nil:
		intent = intent.WithAssignment(Assignment{StaffID: req.AssignedTo})
	case req.Unassign:
		intent = intent.WithAssignment(Assignment{})
	}

	ev, err := h.service.Apply(c.Request.Context(), actor, c.Param("id"), intent)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"complaint": ev.After,
		"facts":     ev.Facts,
	})
}

func (h *Handler) AppendRemark(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing actor")
		return
	}

	var req AppendRemarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	ev, err := h.service.Apply(c.Request.Context(), actor, c.Param("id"), AppendRemark(req.Text))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"remark": ev.Remark})
}

func (h *Handler) ListRemarks(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing actor")
		return
	}

	entries, err := h.service.Remarks(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"remarks": entries})
}
