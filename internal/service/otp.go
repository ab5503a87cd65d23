package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ignatzorin/account-backend/internal/logger"
	"github.com/ignatzorin/account-backend/internal/models"
	"github.com/ignatzorin/account-backend/internal/pkg/apperror"
	"github.com/ignatzorin/account-backend/internal/repository"
)

// OTPStore описывает зависимости OTPEngine от слоя хранилища.
type OTPStore interface {
	Create(ctx context.Context, otp *models.OTP) error
	GetLatest(ctx context.Context, email string, purpose models.OTPPurpose) (*models.OTP, error)
	Consume(ctx context.Context, otp *models.OTP, now time.Time) error
	CountSince(ctx context.Context, email string, purpose models.OTPPurpose, since time.Time) (int64, error)
}

// MailSender — внешний коллаборатор доставки писем.
type MailSender interface {
	Send(to, subject, body string) error
}

// OTPPolicy — константы политики: срок жизни кода и ярусы лимитов.
type OTPPolicy struct {
	TTL          time.Duration
	MinSendGap   time.Duration
	SendsPerHour int
	SendsPerDay  int
}

// OTPEngine генерирует, хранит, лимитирует и гасит одноразовые коды.
type OTPEngine struct {
	store  OTPStore
	mail   MailSender
	policy OTPPolicy
}

// NewOTPEngine создаёт движок одноразовых кодов.
func NewOTPEngine(store OTPStore, mail MailSender, policy OTPPolicy) *OTPEngine {
	return &OTPEngine{store: store, mail: mail, policy: policy}
}

// RequestCode генерирует и отправляет код для учётной записи.
// Лимиты проверяются от широкого окна к узкому: одновременное нарушение
// 60-минутного и 24-часового ярусов сообщается как 24-часовое.
// Счётчики читаются и пишутся без блокировки — при конкурентных
// запросах возможен небольшой перелёт, что для защиты отправки почты
// приемлемо.
func (e *OTPEngine) RequestCode(ctx context.Context, account *models.Account, purpose models.OTPPurpose) error {
	if purpose == models.OTPPurposeVerifyEmail && account.IsEmailVerified {
		return apperror.New(apperror.CodeEmailAlreadyVerified, "email is already verified")
	}

	now := time.Now().UTC()
	if err := e.checkRateLimits(ctx, account.Email, purpose, now); err != nil {
		return err
	}

	code, err := generateCode()
	if err != nil {
		return apperror.Internal(err)
	}

	otp := &models.OTP{
		Email:     account.Email,
		Purpose:   purpose,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(e.policy.TTL),
	}
	if err := e.store.Create(ctx, otp); err != nil {
		return apperror.Internal(err)
	}

	subject, body := composeMail(account.FirstName, purpose, code, e.policy.TTL)
	if err := e.mail.Send(account.Email, subject, body); err != nil {
		if logger.Log != nil {
			logger.Log.WithField("email", account.Email).WithField("error", err.Error()).
				Error("otp: не удалось отправить письмо")
		}
		return apperror.Internal(err)
	}

	return nil
}

// VerifyCode гасит код. Любая причина отказа — нет кода, истёк, уже
// использован, не совпал — наружу выглядит одинаково, чтобы по ответу
// нельзя было перечислять состояния.
func (e *OTPEngine) VerifyCode(ctx context.Context, email string, purpose models.OTPPurpose, submitted string) error {
	now := time.Now().UTC()

	otp, err := e.store.GetLatest(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			return invalidOTP()
		}
		return apperror.Internal(err)
	}

	if !otp.Active(now) || otp.Code != submitted {
		return invalidOTP()
	}

	if err := e.store.Consume(ctx, otp, now); err != nil {
		if errors.Is(err, repository.ErrOTPConsumed) {
			return invalidOTP()
		}
		return apperror.Internal(err)
	}

	return nil
}

func (e *OTPEngine) checkRateLimits(ctx context.Context, email string, purpose models.OTPPurpose, now time.Time) error {
	dayCount, err := e.store.CountSince(ctx, email, purpose, now.Add(-24*time.Hour))
	if err != nil {
		return apperror.Internal(err)
	}
	if dayCount >= int64(e.policy.SendsPerDay) {
		return apperror.New(apperror.CodeLimitExceedTryIn24Hr, "limit exceed, please try again in 24hr")
	}

	hourCount, err := e.store.CountSince(ctx, email, purpose, now.Add(-time.Hour))
	if err != nil {
		return apperror.Internal(err)
	}
	if hourCount >= int64(e.policy.SendsPerHour) {
		return apperror.New(apperror.CodeLimitExceedTryIn60Min, "limit exceed, wait 60 minutes before sending another OTP")
	}

	gapCount, err := e.store.CountSince(ctx, email, purpose, now.Add(-e.policy.MinSendGap))
	if err != nil {
		return apperror.Internal(err)
	}
	if gapCount >= 1 {
		return apperror.New(apperror.CodeLimitExceedTryIn5Min, "limit exceed, wait 5 minutes before sending another OTP")
	}

	return nil
}

func invalidOTP() *apperror.AppError {
	return apperror.New(apperror.CodeInvalidOTP, "invalid otp")
}

// generateCode выдаёт криптослучайный шестизначный код с ведущими нулями.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("otp: не удалось сгенерировать код: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func composeMail(firstName string, purpose models.OTPPurpose, code string, ttl time.Duration) (string, string) {
	minutes := int(ttl.Minutes())
	switch purpose {
	case models.OTPPurposeResetPassword:
		return "Password reset code",
			fmt.Sprintf("Hello %s,\n\nYour password reset code is %s. It expires in %d minutes.", firstName, code, minutes)
	default:
		return "Email verification code",
			fmt.Sprintf("Hello %s,\n\nYour email verification code is %s. It expires in %d minutes.", firstName, code, minutes)
	}
}
