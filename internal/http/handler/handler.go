package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/valora-accounts/internal/service"
)

// respondError maps service errors to their HTTP classes; anything
// unclassified is a 500 with a generic message.
func respondError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		c.JSON(svcErr.Status, gin.H{"error": svcErr.Code, "message": svcErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "message": "Internal server error"})
}

func respondInvalidPayload(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid payload"})
}
