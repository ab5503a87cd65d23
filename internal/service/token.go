package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ignatzorin/account-backend/internal/models"
)

// Типизированные причины отказа проверки токена. Наружу все они
// превращаются в единый 401, но для логов различаются.
var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenMalformed    = errors.New("token malformed")
)

// SessionClaims — снимок полей учётной записи, зашитый в токен при
// выпуске. Это данные на момент выпуска, а не живое состояние.
type SessionClaims struct {
	UserID       string  `json:"_id"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Email        string  `json:"email"`
	IsAdmin      bool    `json:"isAdmin"`
	ProfilePhoto *string `json:"profilePhoto,omitempty"`
	Gender       *string `json:"gender,omitempty"`
	DateOfBirth  *string `json:"dateOfBirth,omitempty"`
	CreatedOn    int64   `json:"createdOn"`
	jwt.RegisteredClaims
}

// TokenCodec подписывает и проверяет компактные токены сессии.
// Полезная нагрузка подписана, но не зашифрована: гарантируются только
// целостность и срок действия, не конфиденциальность полей.
type TokenCodec struct {
	secret []byte
}

// NewTokenCodec создаёт кодек с симметричным секретом.
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

// Issue подписывает claims со сроком действия ttl.
func (c *TokenCodec) Issue(account *models.Account, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID:       account.ID.Hex(),
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		Email:        account.Email,
		IsAdmin:      account.IsAdmin,
		ProfilePhoto: account.ProfilePhoto,
		Gender:       account.Gender,
		DateOfBirth:  account.DateOfBirth,
		CreatedOn:    account.CreatedOn.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token codec: не удалось подписать токен: %w", err)
	}
	return signed, nil
}

// Verify проверяет подпись и срок действия, возвращая claims.
func (c *TokenCodec) Verify(raw string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenBadSignature
		default:
			return nil, ErrTokenMalformed
		}
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
