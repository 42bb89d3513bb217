package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextGrantID holds the validated :id of admin registry routes.
const ContextGrantID = "grant_id"

// ExtractUUIDParam создает middleware для извлечения и валидации UUID-параметра URL.
// Значение сохраняется в контексте Gin строкой под contextKey.
func ExtractUUIDParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param(paramName))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName), "error_type": "validation_error"})
			return
		}
		c.Set(contextKey, id.String())
		c.Next()
	}
}
