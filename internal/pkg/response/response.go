package response

import (
	"errors"
	"net/http"
	"strings"

	"hotelengine/internal/pkg/apperr"

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

// FromError renders an apperr-classified error. Unclassified errors become a 500 with a generic message.
func FromError(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(apperr.FromDB(err), &ae) {
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	code := strings.ToUpper(ae.Code)
	if code == "" {
		code = strings.ToUpper(string(ae.Kind))
	}
	if ae.Details != nil {
		ErrorWithDetails(c, StatusFor(ae.Kind), code, ae.Message, ae.Details)
		return
	}
	Error(c, StatusFor(ae.Kind), code, ae.Message)
}

func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidState, apperr.KindConflict, apperr.KindConstraint:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
