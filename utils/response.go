package utils

import (
	"github.com/gin-gonic/gin"
)

func RespondWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// RespondWithDetails is RespondWithError plus a payload the caller can act on,
// such as candidate customers or treatments.
func RespondWithDetails(c *gin.Context, code int, message string, details any) {
	c.AbortWithStatusJSON(code, gin.H{"error": message, "details": details})
}
