package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ignatzorin/account-backend/internal/models"
	"github.com/ignatzorin/account-backend/internal/repository"
	"github.com/ignatzorin/account-backend/internal/service"
)

// Моки уровня хранилища, чтобы поднять настоящий сервис под handler.

type memAccounts struct {
	byEmail map[string]*models.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byEmail: make(map[string]*models.Account)}
}

func (m *memAccounts) Create(ctx context.Context, account *models.Account) error {
	if _, ok := m.byEmail[account.Email]; ok {
		return repository.ErrEmailTaken
	}
	account.ID = primitive.NewObjectID()
	m.byEmail[account.Email] = account
	return nil
}

func (m *memAccounts) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if account, ok := m.byEmail[email]; ok {
		return account, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *memAccounts) SetEmailVerifiedByEmail(ctx context.Context, email string) error {
	account, ok := m.byEmail[email]
	if !ok {
		return repository.ErrUserNotFound
	}
	account.IsEmailVerified = true
	return nil
}

func (m *memAccounts) UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error {
	account, ok := m.byEmail[email]
	if !ok {
		return repository.ErrUserNotFound
	}
	account.Password = passwordHash
	return nil
}

type memOTPs struct {
	codes []*models.OTP
}

func (m *memOTPs) Create(ctx context.Context, otp *models.OTP) error {
	otp.ID = primitive.NewObjectID()
	m.codes = append(m.codes, otp)
	return nil
}

func (m *memOTPs) GetLatest(ctx context.Context, email string, purpose models.OTPPurpose) (*models.OTP, error) {
	var latest *models.OTP
	for _, otp := range m.codes {
		if otp.Email == email && otp.Purpose == purpose {
			if latest == nil || otp.CreatedAt.After(latest.CreatedAt) {
				latest = otp
			}
		}
	}
	if latest == nil {
		return nil, repository.ErrOTPNotFound
	}
	return latest, nil
}

func (m *memOTPs) Consume(ctx context.Context, otp *models.OTP, now time.Time) error {
	for _, stored := range m.codes {
		if stored.ID == otp.ID {
			if stored.ConsumedAt != nil {
				return repository.ErrOTPConsumed
			}
			consumed := now
			stored.ConsumedAt = &consumed
			return nil
		}
	}
	return repository.ErrOTPNotFound
}

func (m *memOTPs) CountSince(ctx context.Context, email string, purpose models.OTPPurpose, since time.Time) (int64, error) {
	var count int64
	for _, otp := range m.codes {
		if otp.Email == email && otp.Purpose == purpose && !otp.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type memMail struct {
	sent []string
}

func (m *memMail) Send(to, subject, body string) error {
	m.sent = append(m.sent, to)
	return nil
}

func newTestRouter() (*gin.Engine, *memAccounts, *memOTPs, *memMail) {
	gin.SetMode(gin.TestMode)

	accounts := newMemAccounts()
	otps := &memOTPs{}
	mail := &memMail{}

	engine := service.NewOTPEngine(otps, mail, service.OTPPolicy{
		TTL:          10 * time.Minute,
		MinSendGap:   5 * time.Minute,
		SendsPerHour: 3,
		SendsPerDay:  6,
	})
	sessions := service.NewSessionManager(service.NewTokenCodec("test-secret"), 1, 30)
	auth := service.NewAuthService(accounts, engine, sessions)
	handler := NewAuthHandler(auth)

	r := gin.New()
	r.POST("/signup", handler.Signup)
	r.POST("/login", handler.Login)
	r.POST("/send-otp-email", handler.SendOTPEmail)
	r.POST("/verify-email", handler.VerifyEmail)
	r.POST("/forget-password", handler.ForgetPassword)
	r.POST("/forget-password-complete", handler.ForgetPasswordComplete)
	r.POST("/logout", handler.Logout)
	return r, accounts, otps, mail
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("не удалось разобрать ответ: %v", err)
	}
	return body
}

func TestAuthHandler_SignupMissingParams(t *testing.T) {
	r, _, _, _ := newTestRouter()

	w := postJSON(r, "/signup", `{"firstName": "John"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "REQUIRED_PARAMETER_MISSING", body["errorCode"])
}

func TestAuthHandler_SignupInvalidEmail(t *testing.T) {
	r, _, _, _ := newTestRouter()

	w := postJSON(r, "/signup", `{"firstName": "John", "lastName": "Doe", "email": "not-an-email", "password": "password1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "INVALID_EMAIL", body["errorCode"])
}

func TestAuthHandler_SignupInvalidPassword(t *testing.T) {
	r, _, _, _ := newTestRouter()

	w := postJSON(r, "/signup", `{"firstName": "John", "lastName": "Doe", "email": "john@example.com", "password": "short"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "INVALID_PASSWORD", body["errorCode"])
}

func TestAuthHandler_SignupSuccess(t *testing.T) {
	r, accounts, _, _ := newTestRouter()

	w := postJSON(r, "/signup", `{"firstName": "John", "lastName": "Doe", "email": "John@Example.com", "password": "password1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "user created successfully", body["message"])
	assert.Equal(t, "SUCCESS", body["errorCode"])

	// Email нормализуется перед сохранением.
	assert.NotNil(t, accounts.byEmail["john@example.com"])
}

func TestAuthHandler_SignupDuplicate(t *testing.T) {
	r, _, _, _ := newTestRouter()

	postJSON(r, "/signup", `{"firstName": "John", "lastName": "Doe", "email": "john@example.com", "password": "password1"}`)
	w := postJSON(r, "/signup", `{"firstName": "Jane", "lastName": "Doe", "email": "john@example.com", "password": "password2"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "USER_ALREADY_EXIST", body["errorCode"])
}

func TestAuthHandler_FullVerifyAndLoginFlow(t *testing.T) {
	r, _, otps, mail := newTestRouter()

	w := postJSON(r, "/signup", `{"firstName": "John", "lastName": "Doe", "email": "john@example.com", "password": "password1"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	// До подтверждения почты вход запрещён.
	w = postJSON(r, "/login", `{"email": "john@example.com", "password": "password1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", decodeBody(t, w)["errorCode"])

	w = postJSON(r, "/send-otp-email", `{"email": "john@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "verification email has been sent", decodeBody(t, w)["message"])
	assert.Len(t, mail.sent, 1)

	code := otps.codes[0].Code
	w = postJSON(r, "/verify-email", `{"email": "john@example.com", "otpCode": "`+code+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "email verified successfully", decodeBody(t, w)["message"])

	w = postJSON(r, "/login", `{"email": "john@example.com", "password": "password1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "login successful", decodeBody(t, w)["message"])

	cookies := w.Result().Cookies()
	var names []string
	for _, cookie := range cookies {
		names = append(names, cookie.Name)
		assert.True(t, cookie.HttpOnly, "cookie %s должна быть httpOnly", cookie.Name)
	}
	assert.Contains(t, names, "hart")
	assert.Contains(t, names, "hartRef")
}

func TestAuthHandler_LoginWrongPassword(t *testing.T) {
	r, accounts, _, _ := newTestRouter()

	postJSON(r, "/signup", `{"firstName": "John", "lastName": "Doe", "email": "john@example.com", "password": "password1"}`)
	accounts.byEmail["john@example.com"].IsEmailVerified = true

	w := postJSON(r, "/login", `{"email": "john@example.com", "password": "wrongpass1"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "INVALID_EMAIL_OR_PASSWORD", body["errorCode"])
	assert.Equal(t, "email or password incorrect", body["message"])
}

func TestAuthHandler_LoginUnknownEmailSameCode(t *testing.T) {
	r, _, _, _ := newTestRouter()

	// Несуществующий адрес и неверный пароль дают один и тот же код.
	w := postJSON(r, "/login", `{"email": "nobody@example.com", "password": "password1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_EMAIL_OR_PASSWORD", decodeBody(t, w)["errorCode"])
}

func TestAuthHandler_VerifyEmailWrongCode(t *testing.T) {
	r, _, otps, _ := newTestRouter()

	postJSON(r, "/signup", `{"firstName": "John", "lastName": "Doe", "email": "john@example.com", "password": "password1"}`)
	postJSON(r, "/send-otp-email", `{"email": "john@example.com"}`)

	wrong := "000000"
	if otps.codes[0].Code == wrong {
		wrong = "000001"
	}
	w := postJSON(r, "/verify-email", `{"email": "john@example.com", "otpCode": "`+wrong+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "INVALID_OTP", body["errorCode"])
	assert.Equal(t, "invalid otp", body["message"])
}

func TestAuthHandler_SendOTPRateLimitMessage(t *testing.T) {
	r, _, _, _ := newTestRouter()

	postJSON(r, "/signup", `{"firstName": "John", "lastName": "Doe", "email": "john@example.com", "password": "password1"}`)
	postJSON(r, "/send-otp-email", `{"email": "john@example.com"}`)

	// Повторная отправка внутри пятиминутного окна.
	w := postJSON(r, "/send-otp-email", `{"email": "john@example.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "LIMIT_EXCEED_TRY_IN_5MIN", body["errorCode"])
	assert.True(t, strings.Contains(body["message"].(string), "5 minutes"))
}

func TestAuthHandler_ForgetPasswordFlow(t *testing.T) {
	r, _, otps, _ := newTestRouter()

	postJSON(r, "/signup", `{"firstName": "John", "lastName": "Doe", "email": "john@example.com", "password": "password1"}`)

	w := postJSON(r, "/forget-password", `{"email": "john@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "forget password otp code has sent", decodeBody(t, w)["message"])

	code := otps.codes[0].Code
	w = postJSON(r, "/forget-password-complete", `{"email": "john@example.com", "otpCode": "`+code+`", "newPassword": "newpassword2"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "forget password completed", decodeBody(t, w)["message"])
}

func TestAuthHandler_ForgetPasswordUnknownEmail(t *testing.T) {
	r, _, _, _ := newTestRouter()

	w := postJSON(r, "/forget-password", `{"email": "nobody@example.com"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_EXIST", decodeBody(t, w)["errorCode"])
}

func TestAuthHandler_LogoutClearsCookies(t *testing.T) {
	r, _, _, _ := newTestRouter()

	w := postJSON(r, "/logout", ``)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "logout successful", decodeBody(t, w)["message"])

	for _, cookie := range w.Result().Cookies() {
		assert.Equal(t, -1, cookie.MaxAge, "cookie %s должна быть погашена", cookie.Name)
	}
}

func TestAuthHandler_VerifyEmailBodyFieldIsOTPCode(t *testing.T) {
	r, _, otps, _ := newTestRouter()

	postJSON(r, "/signup", `{"firstName": "John", "lastName": "Doe", "email": "john@example.com", "password": "password1"}`)
	postJSON(r, "/send-otp-email", `{"email": "john@example.com"}`)
	code := otps.codes[0].Code

	// Поле тела называется otpCode; запрос с ключом otp неполный.
	w := postJSON(r, "/verify-email", `{"email": "john@example.com", "otp": "`+code+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "REQUIRED_PARAMETER_MISSING", decodeBody(t, w)["errorCode"])

	w = postJSON(r, "/verify-email", `{"email": "john@example.com", "otpCode": "`+code+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_ForgetPasswordCompleteBodyFieldIsOTPCode(t *testing.T) {
	r, _, otps, _ := newTestRouter()

	postJSON(r, "/signup", `{"firstName": "John", "lastName": "Doe", "email": "john@example.com", "password": "password1"}`)
	postJSON(r, "/forget-password", `{"email": "john@example.com"}`)
	code := otps.codes[0].Code

	w := postJSON(r, "/forget-password-complete", `{"email": "john@example.com", "otp": "`+code+`", "newPassword": "newpassword2"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "REQUIRED_PARAMETER_MISSING", decodeBody(t, w)["errorCode"])

	w = postJSON(r, "/forget-password-complete", `{"email": "john@example.com", "otpCode": "`+code+`", "newPassword": "newpassword2"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}
