package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/account-backend/internal/models"
	"github.com/ignatzorin/account-backend/internal/pkg/apperror"
	"github.com/ignatzorin/account-backend/internal/service"
	"github.com/ignatzorin/account-backend/internal/validation"
)

// AuthHandler обслуживает публичные маршруты аутентификации.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type signupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Signup регистрирует новый неподтверждённый аккаунт.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMissingParams(c, `{firstName: "John", lastName: "Doe", email: "some@email.com", password: "someSecurePassword1"}`)
		return
	}
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		respondMissingParams(c, `{firstName: "John", lastName: "Doe", email: "some@email.com", password: "someSecurePassword1"}`)
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
	email := validation.NormalizeEmail(req.Email)
	if !validation.ValidEmail(email) {
		respondValidation(c, apperror.CodeInvalidEmail, "invalid email address")
		return
	}
	if !validation.ValidPassword(req.Password) {
		respondValidation(c, apperror.CodeInvalidPassword, "password must be between 6 to 20 characters and contain at least one letter and one digit")
		return
	}

	err := h.auth.Signup(c.Request.Context(), service.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     email,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, "user created successfully")
}

type emailRequest struct {
	Email string `json:"email"`
}

// SendOTPEmail отправляет код подтверждения почты.
func (h *AuthHandler) SendOTPEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		respondMissingParams(c, `{email: "some@email.com"}`)
		return
	}
	email := validation.NormalizeEmail(req.Email)
	if !validation.ValidEmail(email) {
		respondValidation(c, apperror.CodeInvalidEmail, "invalid email address")
		return
	}

	if err := h.auth.SendVerificationOTP(c.Request.Context(), email); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, "verification email has been sent")
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otpCode"`
}

// VerifyEmail подтверждает почту по одноразовому коду.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.OTP == "" {
		respondMissingParams(c, `{email: "some@email.com", otpCode: "123456"}`)
		return
	}
	email := validation.NormalizeEmail(req.Email)
	if !validation.ValidEmail(email) {
		respondValidation(c, apperror.CodeInvalidEmail, "invalid email address")
		return
	}
	if !validation.ValidOTPFormat(req.OTP) {
		respondValidation(c, apperror.CodeInvalidOTP, "invalid otp")
		return
	}

	if err := h.auth.VerifyEmail(c.Request.Context(), email, req.OTP); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, "email verified successfully")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login проверяет учётные данные и выставляет пару cookie сессии.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		respondMissingParams(c, `{email: "some@email.com", password: "someSecurePassword1"}`)
		return
	}
	email := validation.NormalizeEmail(req.Email)
	if !validation.ValidEmail(email) {
		respondValidation(c, apperror.CodeInvalidEmailOrPassword, "invalid email address")
		return
	}
	if !validation.ValidPassword(req.Password) {
		respondValidation(c, apperror.CodeInvalidEmailOrPassword, "password must be between 6 to 20 characters and contain at least one letter and one digit")
		return
	}

	account, pair, err := h.auth.Login(c.Request.Context(), email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	issueSessionCookies(c, pair)
	respondData(c, "login successful", profileView(account))
}

// ForgetPassword отправляет код восстановления пароля.
func (h *AuthHandler) ForgetPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		respondMissingParams(c, `{email: "some@email.com"}`)
		return
	}
	email := validation.NormalizeEmail(req.Email)
	if !validation.ValidEmail(email) {
		respondValidation(c, apperror.CodeInvalidEmail, "invalid email address")
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), email); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, "forget password otp code has sent")
}

type forgetPasswordCompleteRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otpCode"`
	NewPassword string `json:"newPassword"`
}

// ForgetPasswordComplete завершает восстановление: код плюс новый пароль.
func (h *AuthHandler) ForgetPasswordComplete(c *gin.Context) {
	var req forgetPasswordCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.OTP == "" || req.NewPassword == "" {
		respondMissingParams(c, `{email: "some@email.com", otpCode: "123456", newPassword: "someSecurePassword1"}`)
		return
	}
	email := validation.NormalizeEmail(req.Email)
	if !validation.ValidEmail(email) {
		respondValidation(c, apperror.CodeInvalidEmail, "invalid email address")
		return
	}
	if !validation.ValidOTPFormat(req.OTP) {
		respondValidation(c, apperror.CodeInvalidOTP, "invalid otp")
		return
	}
	if !validation.ValidPassword(req.NewPassword) {
		respondValidation(c, apperror.CodeInvalidPassword, "password must be between 6 to 20 characters and contain at least one letter and one digit")
		return
	}

	if err := h.auth.ForgotPasswordComplete(c.Request.Context(), email, req.OTP, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, "forget password completed")
}

// Logout стирает cookie сессии. Идемпотентен.
func (h *AuthHandler) Logout(c *gin.Context) {
	clearSessionCookies(c)
	respondSuccess(c, "logout successful")
}

// profileView — публичное представление аккаунта (без хэша пароля).
func profileView(account *models.Account) gin.H {
	return gin.H{
		"_id":             account.ID.Hex(),
		"firstName":       account.FirstName,
		"lastName":        account.LastName,
		"email":           account.Email,
		"isAdmin":         account.IsAdmin,
		"isEmailVerified": account.IsEmailVerified,
		"profilePhoto":    account.ProfilePhoto,
		"gender":          account.Gender,
		"dateOfBirth":     account.DateOfBirth,
		"createdOn":       account.CreatedOn,
	}
}
