package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/account-backend/internal/models"
	"github.com/ignatzorin/account-backend/internal/pkg/apperror"
	"github.com/ignatzorin/account-backend/internal/repository"
	"github.com/ignatzorin/account-backend/internal/validation"
)

// AccountRepository описывает узкий контракт AuthService со слоем
// хранилища: читаются и пишутся только нужные поля.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	SetEmailVerifiedByEmail(ctx context.Context, email string) error
	UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error
}

// AuthService связывает OTP движок, менеджер сессий и хранилище в
// сценарии регистрации, входа, подтверждения и сброса пароля.
type AuthService struct {
	repo     AccountRepository
	otp      *OTPEngine
	sessions *SessionManager
}

// SignupInput содержит данные пользователя при регистрации.
type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AccountRepository, otp *OTPEngine, sessions *SessionManager) *AuthService {
	return &AuthService{repo: repo, otp: otp, sessions: sessions}
}

// Signup создаёт новую учётную запись с неподтверждённым email.
// Входные паттерны уже проверены на HTTP-границе.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) error {
	email := validation.NormalizeEmail(in.Email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return apperror.New(apperror.CodeUserAlreadyExists, "user already exists with this email")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return apperror.Internal(err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperror.Internal(err)
	}

	account := &models.Account{
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Email:           email,
		Password:        string(passHash),
		IsEmailVerified: false,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		// Гонка двух регистраций: уникальный индекс решает, кто первый.
		if errors.Is(err, repository.ErrEmailTaken) {
			return apperror.New(apperror.CodeUserAlreadyExists, "user already exists with this email")
		}
		return apperror.Internal(err)
	}

	return nil
}

// Login проверяет учётные данные и состояние записи, затем выпускает
// пару токенов. Порядок проверок фиксирован: существование, состояние
// (подтверждение, блокировка, приостановка), затем пароль.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Account, *TokenPair, error) {
	email = validation.NormalizeEmail(email)

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Отсутствие записи и неверный пароль наружу неразличимы.
			return nil, nil, invalidCredentials().WithStatus(400)
		}
		return nil, nil, apperror.Internal(err)
	}

	if !account.IsEmailVerified {
		return nil, nil, apperror.New(apperror.CodeEmailNotVerified, "email not verified")
	}
	if account.IsDisabled {
		return nil, nil, apperror.New(apperror.CodeAccountDisabled, "account is disabled")
	}
	if account.IsSuspended {
		return nil, nil, apperror.New(apperror.CodeAccountSuspended, "account is suspended")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		return nil, nil, invalidCredentials()
	}

	pair, err := s.sessions.IssuePair(account)
	if err != nil {
		return nil, nil, err
	}

	return account, pair, nil
}

// SendVerificationOTP отправляет код подтверждения email.
func (s *AuthService) SendVerificationOTP(ctx context.Context, email string) error {
	account, err := s.repo.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.New(apperror.CodeUserNotExist, "user not exist")
		}
		return apperror.Internal(err)
	}

	return s.otp.RequestCode(ctx, account, models.OTPPurposeVerifyEmail)
}

// VerifyEmail гасит код и помечает email подтверждённым.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	email = validation.NormalizeEmail(email)

	if _, err := s.repo.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Несуществующий адрес неотличим от неверного кода.
			return apperror.New(apperror.CodeInvalidOTP, "invalid otp")
		}
		return apperror.Internal(err)
	}

	if err := s.otp.VerifyCode(ctx, email, models.OTPPurposeVerifyEmail, code); err != nil {
		return err
	}

	if err := s.repo.SetEmailVerifiedByEmail(ctx, email); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

// ForgotPassword отправляет код сброса пароля. В отличие от login,
// блокировка и приостановка здесь отдаются как 400.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.repo.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.New(apperror.CodeUserNotExist, "user not found")
		}
		return apperror.Internal(err)
	}

	if account.IsDisabled {
		return apperror.New(apperror.CodeAccountDisabled, "account is disabled").WithStatus(400)
	}
	if account.IsSuspended {
		return apperror.New(apperror.CodeAccountSuspended, "account is suspended").WithStatus(400)
	}

	return s.otp.RequestCode(ctx, account, models.OTPPurposeResetPassword)
}

// ForgotPasswordComplete гасит код сброса и заменяет хеш пароля.
func (s *AuthService) ForgotPasswordComplete(ctx context.Context, email, code, newPassword string) error {
	email = validation.NormalizeEmail(email)

	if err := s.otp.VerifyCode(ctx, email, models.OTPPurposeResetPassword, code); err != nil {
		return err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperror.Internal(err)
	}

	if err := s.repo.UpdatePasswordByEmail(ctx, email, string(passHash)); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func invalidCredentials() *apperror.AppError {
	return apperror.New(apperror.CodeInvalidEmailOrPassword, "email or password incorrect").WithStatus(401)
}
