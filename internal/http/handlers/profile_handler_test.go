package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/account-backend/internal/models"
	"github.com/ignatzorin/account-backend/internal/repository"
	"github.com/ignatzorin/account-backend/internal/service"
)

type memProfiles struct {
	byID map[primitive.ObjectID]*models.Account
}

func newMemProfiles() *memProfiles {
	return &memProfiles{byID: make(map[primitive.ObjectID]*models.Account)}
}

func (m *memProfiles) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	if account, ok := m.byID[id]; ok {
		return account, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *memProfiles) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	for _, account := range m.byID {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memProfiles) UpdateName(ctx context.Context, id primitive.ObjectID, firstName, lastName string) error {
	m.byID[id].FirstName = firstName
	m.byID[id].LastName = lastName
	return nil
}

func (m *memProfiles) UpdateEmail(ctx context.Context, id primitive.ObjectID, email string) error {
	m.byID[id].Email = email
	m.byID[id].IsEmailVerified = false
	return nil
}

func (m *memProfiles) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	m.byID[id].Password = passwordHash
	return nil
}

func (m *memProfiles) UpdateProfilePhoto(ctx context.Context, id primitive.ObjectID, url string) error {
	m.byID[id].ProfilePhoto = &url
	return nil
}

func (m *memProfiles) UpdateGenderAndDOB(ctx context.Context, id primitive.ObjectID, gender, dateOfBirth *string) error {
	if gender != nil {
		m.byID[id].Gender = gender
	}
	if dateOfBirth != nil {
		m.byID[id].DateOfBirth = dateOfBirth
	}
	return nil
}

type memPhotos struct{}

func (memPhotos) Save(ctx context.Context, data []byte, contentType, ext string) (string, error) {
	return "https://bucket.s3.us-east-1.amazonaws.com/profile-pictures/test" + ext, nil
}

const testUploadLimit = 2 * 1024 * 1024

func newProfileTestRouter(t *testing.T) (*gin.Engine, *models.Account, *memProfiles) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMemProfiles()
	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt returned error: %v", err)
	}
	account := &models.Account{
		ID:              primitive.NewObjectID(),
		FirstName:       "John",
		LastName:        "Doe",
		Email:           "john@example.com",
		Password:        string(hash),
		IsEmailVerified: true,
	}
	repo.byID[account.ID] = account

	sessions := service.NewSessionManager(service.NewTokenCodec("test-secret"), 1, 30)
	profile := service.NewProfileService(repo, memPhotos{})
	handler := NewProfileHandler(profile, sessions, testUploadLimit)

	codec := service.NewTokenCodec("test-secret")
	raw, err := codec.Issue(account, time.Minute)
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}
	claims, err := codec.Verify(raw)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("currentUser", claims)
		c.Next()
	})
	r.GET("/profile", handler.Profile)
	r.PUT("/change-name", handler.ChangeName)
	r.PUT("/change-email", handler.ChangeEmail)
	r.PUT("/change-password", handler.ChangePassword)
	r.PUT("/change-profile-picture", handler.ChangeProfilePicture)
	r.PUT("/gender-and-dob", handler.GenderAndDOB)
	return r, account, repo
}

func putJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("PUT", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProfileHandler_Profile(t *testing.T) {
	r, _, _ := newProfileTestRouter(t)

	req, _ := http.NewRequest("GET", "/profile", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "john@example.com", data["email"])
	assert.NotContains(t, data, "password")
}

func TestProfileHandler_ProfileSuspendedClearsCookies(t *testing.T) {
	r, account, _ := newProfileTestRouter(t)
	account.IsSuspended = true

	req, _ := http.NewRequest("GET", "/profile", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "ACCOUNT_SUSPENDED", decodeBody(t, w)["errorCode"])

	for _, cookie := range w.Result().Cookies() {
		assert.Equal(t, -1, cookie.MaxAge, "cookie %s должна быть погашена", cookie.Name)
	}
}

func TestProfileHandler_ProfileDisabledKeepsCookies(t *testing.T) {
	r, account, _ := newProfileTestRouter(t)
	account.IsDisabled = true

	req, _ := http.NewRequest("GET", "/profile", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "ACCOUNT_DISABLED", decodeBody(t, w)["errorCode"])

	// Отключённый аккаунт может быть включён обратно, сессию не гасим.
	assert.Empty(t, w.Result().Cookies())
}

func TestProfileHandler_ChangeName(t *testing.T) {
	r, account, _ := newProfileTestRouter(t)

	w := putJSON(r, "/change-name", `{"firstName": "Jane", "lastName": "Smith"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Jane", account.FirstName)

	// Мутация перевыпускает cookie со свежим снимком.
	cookies := w.Result().Cookies()
	assert.NotEmpty(t, cookies)
}

func TestProfileHandler_ChangeNameTooShort(t *testing.T) {
	r, _, _ := newProfileTestRouter(t)

	w := putJSON(r, "/change-name", `{"firstName": "J", "lastName": "Smith"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FIRST_NAME", decodeBody(t, w)["errorCode"])
}

func TestProfileHandler_ChangeEmailWrongPassword(t *testing.T) {
	r, _, _ := newProfileTestRouter(t)

	w := putJSON(r, "/change-email", `{"newEmail": "new@example.com", "password": "wrongpass"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "INVALID_PASSWORD", body["errorCode"])
	assert.Equal(t, "invalid password", body["message"])
}

func TestProfileHandler_ChangeEmailResetsVerification(t *testing.T) {
	r, account, _ := newProfileTestRouter(t)

	w := putJSON(r, "/change-email", `{"newEmail": "new@example.com", "password": "password1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "new@example.com", account.Email)
	assert.False(t, account.IsEmailVerified)
}

func TestProfileHandler_ChangePassword(t *testing.T) {
	r, account, _ := newProfileTestRouter(t)

	w := putJSON(r, "/change-password", `{"oldPassword": "password1", "newPassword": "newpassword2"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.Password), []byte("newpassword2")))
}

func TestProfileHandler_ChangeProfilePictureRejectsNonImage(t *testing.T) {
	r, _, _ := newProfileTestRouter(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile("profileImage", "evil.png")
	part.Write([]byte("this is not an image at all"))
	writer.Close()

	req, _ := http.NewRequest("PUT", "/change-profile-picture", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "INVALID_FILE_TYPE", body["errorCode"])
	assert.Equal(t, "Invalid file type. Only images are allowed.", body["message"])
}

func TestProfileHandler_ChangeProfilePictureAcceptsPNG(t *testing.T) {
	r, account, _ := newProfileTestRouter(t)

	// Минимальная PNG сигнатура, достаточная для определения типа.
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile("profileImage", "avatar.png")
	part.Write(png)
	writer.Close()

	req, _ := http.NewRequest("PUT", "/change-profile-picture", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, account.ProfilePhoto)
}

func TestProfileHandler_GenderAndDOB(t *testing.T) {
	r, account, _ := newProfileTestRouter(t)

	w := putJSON(r, "/gender-and-dob", `{"gender": "male", "dateOfBirth": "1990-01-15"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, account.Gender)
	assert.Equal(t, "male", *account.Gender)
	assert.NotNil(t, account.DateOfBirth)
}

func TestProfileHandler_GenderAndDOBMissingBoth(t *testing.T) {
	r, _, _ := newProfileTestRouter(t)

	w := putJSON(r, "/gender-and-dob", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "REQUIRED_PARAMETER_MISSING", decodeBody(t, w)["errorCode"])
}

func TestProfileHandler_ChangeEmailBodyFieldIsNewEmail(t *testing.T) {
	r, account, _ := newProfileTestRouter(t)

	// Поле тела называется newEmail; запрос с ключом email неполный.
	w := putJSON(r, "/change-email", `{"email": "new@example.com", "password": "password1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "REQUIRED_PARAMETER_MISSING", decodeBody(t, w)["errorCode"])
	assert.Equal(t, "john@example.com", account.Email)
}
