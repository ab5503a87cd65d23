package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OTPPurpose различает сценарии использования одноразового кода.
type OTPPurpose string

const (
	OTPPurposeVerifyEmail   OTPPurpose = "verify-email"
	OTPPurposeResetPassword OTPPurpose = "reset-password"
)

// OTP — одноразовый код, привязанный к email и назначению.
// Документы одновременно служат журналом попыток отправки: ярусные
// лимиты считаются по createdAt без отдельного счётчика.
type OTP struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Email      string             `bson:"email" json:"-"`
	Purpose    OTPPurpose         `bson:"purpose" json:"-"`
	Code       string             `bson:"code" json:"-"`
	CreatedAt  time.Time          `bson:"createdAt" json:"-"`
	ExpiresAt  time.Time          `bson:"expiresAt" json:"-"`
	ConsumedAt *time.Time         `bson:"consumedAt,omitempty" json:"-"`
}

// Active сообщает, пригоден ли код к проверке в момент now.
func (o *OTP) Active(now time.Time) bool {
	return o.ConsumedAt == nil && now.Before(o.ExpiresAt)
}
