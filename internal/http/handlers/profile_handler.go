package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/account-backend/internal/logger"
	"github.com/ignatzorin/account-backend/internal/models"
	"github.com/ignatzorin/account-backend/internal/pkg/apperror"
	"github.com/ignatzorin/account-backend/internal/service"
	"github.com/ignatzorin/account-backend/internal/validation"
)

// ProfileHandler обслуживает маршруты личного кабинета.
// Все маршруты требуют действующей сессии.
type ProfileHandler struct {
	profile        *service.ProfileService
	sessions       *service.SessionManager
	maxUploadBytes int64
}

func NewProfileHandler(profile *service.ProfileService, sessions *service.SessionManager, maxUploadBytes int64) *ProfileHandler {
	return &ProfileHandler{profile: profile, sessions: sessions, maxUploadBytes: maxUploadBytes}
}

// Profile возвращает актуальный профиль из хранилища. Если аккаунт
// оказался приостановлен после выдачи токена, cookie стираются.
func (h *ProfileHandler) Profile(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, apperror.New(apperror.CodeUnauthorized, "unauthorized"))
		return
	}

	account, err := h.profile.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		if apperror.Is(err, apperror.CodeAccountSuspended) {
			clearSessionCookies(c)
		}
		respondError(c, err)
		return
	}
	respondData(c, "profile fetched", profileView(account))
}

type changeNameRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ChangeName меняет имя и перевыпускает cookie со свежим снимком.
func (h *ProfileHandler) ChangeName(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, apperror.New(apperror.CodeUnauthorized, "unauthorized"))
		return
	}
	var req changeNameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FirstName == "" || req.LastName == "" {
		respondMissingParams(c, `{firstName: "John", lastName: "Doe"}`)
		return
	}
	if !validation.ValidName(req.FirstName) {
		respondValidation(c, apperror.CodeInvalidFirstName, "first name must be between 2 to 15 characters")
		return
	}
	if !validation.ValidName(req.LastName) {
		respondValidation(c, apperror.CodeInvalidLastName, "last name must be between 2 to 15 characters")
		return
	}

	account, err := h.profile.ChangeName(c.Request.Context(), claims.UserID, req.FirstName, req.LastName)
	if err != nil {
		respondError(c, err)
		return
	}
	h.reissueCookies(c, account)
	respondData(c, "name updated successfully", profileView(account))
}

type changeEmailRequest struct {
	Email    string `json:"newEmail"`
	Password string `json:"password"`
}

// ChangeEmail меняет почту после проверки пароля. Новая почта
// считается неподтверждённой до повторной верификации.
func (h *ProfileHandler) ChangeEmail(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, apperror.New(apperror.CodeUnauthorized, "unauthorized"))
		return
	}
	var req changeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		respondMissingParams(c, `{newEmail: "new@email.com", password: "someSecurePassword1"}`)
		return
	}
	email := validation.NormalizeEmail(req.Email)
	if !validation.ValidEmail(email) {
		respondValidation(c, apperror.CodeInvalidEmail, "invalid email address")
		return
	}

	account, err := h.profile.ChangeEmail(c.Request.Context(), claims.UserID, email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.reissueCookies(c, account)
	respondData(c, "email updated successfully", profileView(account))
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword меняет пароль после проверки текущего.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, apperror.New(apperror.CodeUnauthorized, "unauthorized"))
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OldPassword == "" || req.NewPassword == "" {
		respondMissingParams(c, `{oldPassword: "someSecurePassword1", newPassword: "anotherSecurePassword2"}`)
		return
	}
	if !validation.ValidPassword(req.NewPassword) {
		respondValidation(c, apperror.CodeInvalidPassword, "password must be between 6 to 20 characters and contain at least one letter and one digit")
		return
	}

	if err := h.profile.ChangePassword(c.Request.Context(), claims.UserID, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, "password updated successfully")
}

// ChangeProfilePicture принимает multipart-файл profileImage, проверяет
// размер и сигнатуру содержимого, загружает в объектное хранилище.
func (h *ProfileHandler) ChangeProfilePicture(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, apperror.New(apperror.CodeUnauthorized, "unauthorized"))
		return
	}

	fileHeader, err := c.FormFile("profileImage")
	if err != nil {
		respondMissingParams(c, `multipart form with file field "profileImage"`)
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"message":   "file size limit exceed, maximum limit 2MB",
			"errorCode": apperror.CodeFileSizeLimitExceed,
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, apperror.Internal(err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		respondError(c, apperror.Internal(err))
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"message":   "file size limit exceed, maximum limit 2MB",
			"errorCode": apperror.CodeFileSizeLimitExceed,
		})
		return
	}

	// Тип определяется по сигнатуре содержимого, а не по расширению.
	kind, err := filetype.Match(data)
	if err != nil || !filetype.IsImage(data) {
		c.JSON(http.StatusBadRequest, gin.H{
			"message":   "Invalid file type. Only images are allowed.",
			"errorCode": apperror.CodeInvalidFileType,
		})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext == "" {
		ext = "." + kind.Extension
	}

	account, err := h.profile.ChangeProfilePicture(c.Request.Context(), claims.UserID, data, kind.MIME.Value, ext)
	if err != nil {
		respondError(c, err)
		return
	}
	h.reissueCookies(c, account)
	respondData(c, "profile picture updated successfully", profileView(account))
}

type genderAndDOBRequest struct {
	Gender      *string `json:"gender"`
	DateOfBirth *string `json:"dateOfBirth"`
}

// GenderAndDOB обновляет пол и дату рождения; принимает любое из полей.
func (h *ProfileHandler) GenderAndDOB(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		respondError(c, apperror.New(apperror.CodeUnauthorized, "unauthorized"))
		return
	}
	var req genderAndDOBRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Gender == nil && req.DateOfBirth == nil) {
		respondMissingParams(c, `{gender: "male", dateOfBirth: "1990-01-15"}`)
		return
	}

	account, err := h.profile.UpdateGenderAndDOB(c.Request.Context(), claims.UserID, req.Gender, req.DateOfBirth)
	if err != nil {
		respondError(c, err)
		return
	}
	h.reissueCookies(c, account)
	respondData(c, "profile updated successfully", profileView(account))
}

// reissueCookies перевыпускает пару токенов после мутации профиля,
// чтобы снимок в claims не устаревал. Ошибка выпуска не роняет ответ:
// мутация уже применена, клиент доработает на старых cookie.
func (h *ProfileHandler) reissueCookies(c *gin.Context, account *models.Account) {
	pair, err := h.sessions.IssuePair(account)
	if err != nil {
		if logger.Log != nil {
			logger.Log.WithField("error", err.Error()).Warn("failed to reissue session cookies")
		}
		return
	}
	issueSessionCookies(c, pair)
}
