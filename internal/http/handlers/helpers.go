package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/account-backend/internal/logger"
	"github.com/ignatzorin/account-backend/internal/pkg/apperror"
	"github.com/ignatzorin/account-backend/internal/service"
)

// Имена cookie с токенами сессии.
const (
	SessionCookieName  = "hart"
	ExtendedCookieName = "hartRef"
)

// respondSuccess отдаёт единый конверт ответа без данных.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"message":   message,
		"errorCode": apperror.CodeSuccess,
	})
}

// respondData отдаёт единый конверт ответа с полем data.
func respondData(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"message":   message,
		"errorCode": apperror.CodeSuccess,
		"data":      data,
	})
}

// respondError переводит ошибку в конверт {message, errorCode}.
// Известные AppError несут статус и код сами; всё прочее логируется и
// маскируется единым UNKNOWN_SERVER_ERROR, без утечки деталей клиенту.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperror.As(err); ok {
		if appErr.Code == apperror.CodeUnknownServerError && logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  appErr.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("request error")
		}
		c.JSON(appErr.HTTPStatus, gin.H{
			"message":   appErr.Message,
			"errorCode": appErr.Code,
		})
		return
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("unexpected request error")
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"message":   "internal server error, please try later",
		"errorCode": apperror.CodeUnknownServerError,
	})
}

// respondMissingParams — единый ответ на отсутствующие параметры.
func respondMissingParams(c *gin.Context, example string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"message":   "required parameters missing, example request body: " + example,
		"errorCode": apperror.CodeRequiredParamMissing,
	})
}

// respondValidation — ответ 400 с заданным кодом и сообщением.
func respondValidation(c *gin.Context, code apperror.ErrorCode, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"message":   message,
		"errorCode": code,
	})
}

// issueSessionCookies выставляет пару cookie с совпадающими Expires.
func issueSessionCookies(c *gin.Context, pair *service.TokenPair) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    pair.Session,
		Path:     "/",
		Expires:  pair.SessionExpires,
		HttpOnly: true,
		Secure:   true,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     ExtendedCookieName,
		Value:    pair.Extended,
		Path:     "/",
		Expires:  pair.ExtendedExpires,
		HttpOnly: true,
		Secure:   true,
	})
}

// clearSessionCookies стирает обе cookie (logout, обнаруженная
// приостановка аккаунта).
func clearSessionCookies(c *gin.Context) {
	expired := time.Unix(0, 0)
	http.SetCookie(c.Writer, &http.Cookie{
		Name: SessionCookieName, Value: "", Path: "/", Expires: expired, MaxAge: -1, HttpOnly: true, Secure: true,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name: ExtendedCookieName, Value: "", Path: "/", Expires: expired, MaxAge: -1, HttpOnly: true, Secure: true,
	})
}

// currentClaims достаёт claims текущего пользователя из контекста.
func currentClaims(c *gin.Context) (*service.SessionClaims, bool) {
	value, ok := c.Get("currentUser")
	if !ok {
		return nil, false
	}
	claims, ok := value.(*service.SessionClaims)
	return claims, ok
}
