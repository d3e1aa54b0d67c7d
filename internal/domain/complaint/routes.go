package complaint

import "github.com/gin-gonic/gin"

// RegisterRoutes registers all complaint-related routes. Role checks happen
// in the service against the permission table.
func RegisterRoutes(protected *gin.RouterGroup, handler *Handler) {
	complaints := protected.Group("/complaints")
	{
		complaints.POST("", handler.CreateComplaint)
		complaints.GET("", handler.ListComplaints)
		complaints.GET("/:id", handler.GetComplaint)
		complaints.PATCH("/:id", handler.UpdateComplaint)
		complaints.POST("/:id/remarks", handler.AppendRemark)
		complaints.GET("/:id/remarks", handler.ListRemarks)
	}
}
