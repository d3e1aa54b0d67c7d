package response

import (
	"errors"
	"net/http"

	"hostelcare/internal/pkg/apperr"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// CustomError writes the error envelope and aborts the chain.
func CustomError(c *gin.Context, statusCode int, code string, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// FromError maps the apperr taxonomy onto status codes. Unknown errors are
// recorded on the gin context so ErrorLogger picks them up.
func FromError(c *gin.Context, err error) {
	var (
		validation    *apperr.ValidationError
		authorization *apperr.AuthorizationError
		notFound      *apperr.NotFoundError
		persistence   *apperr.PersistenceError
	)
	switch {
	case errors.As(err, &validation):
		ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", validation.Reason, gin.H{"field": validation.Field})
	case errors.As(err, &authorization):
		Error(c, http.StatusForbidden, "FORBIDDEN", authorization.Error())
	case errors.As(err, &notFound):
		Error(c, http.StatusNotFound, "NOT_FOUND", notFound.Error())
	case errors.As(err, &persistence):
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, "PERSISTENCE_ERROR", "Storage operation failed")
	default:
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
