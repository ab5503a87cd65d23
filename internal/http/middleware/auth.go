package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/account-backend/internal/pkg/apperror"
	"github.com/ignatzorin/account-backend/internal/service"
)

// Ключ gin.Context, под которым лежат claims текущего пользователя.
const ContextUserKey = "currentUser"

// AuthMiddleware проверяет короткую cookie сессии и кладёт claims в
// контекст запроса. Ответ на любую неудачу единый, без деталей.
func AuthMiddleware(sessions *service.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie("hart")
		if err != nil || cookie == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message":   "unauthorized",
				"errorCode": apperror.CodeUnauthorized,
			})
			return
		}

		claims, err := sessions.Authenticate(cookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message":   "unauthorized",
				"errorCode": apperror.CodeUnauthorized,
			})
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}
