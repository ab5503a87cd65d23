package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware проверяет Origin по белому списку и отвечает на preflight.
// Сессия живёт в httpOnly cookie, поэтому браузеру нужен
// Access-Control-Allow-Credentials, а он несовместим с "*":
// origin всегда отражается явно.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; ok && origin != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cookie")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
