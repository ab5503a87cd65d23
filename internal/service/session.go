package service

import (
	"time"

	"github.com/ignatzorin/account-backend/internal/logger"
	"github.com/ignatzorin/account-backend/internal/models"
	"github.com/ignatzorin/account-backend/internal/pkg/apperror"
)

// TokenPair — пара независимых токенов сессии: короткий и продлённый.
// Оба живут только на клиенте в cookie; серверного реестра сессий нет,
// поэтому отзыв до естественного истечения невозможен.
type TokenPair struct {
	Session         string
	Extended        string
	SessionExpires  time.Time
	ExtendedExpires time.Time
}

// SessionManager выпускает пару токенов из учётной записи и
// перепроверяет короткий токен на каждом запросе.
type SessionManager struct {
	codec       *TokenCodec
	sessionTTL  time.Duration
	extendedTTL time.Duration
}

// NewSessionManager создаёт менеджер сессий. TTL задаются в днях.
func NewSessionManager(codec *TokenCodec, sessionDays, extendedDays int) *SessionManager {
	return &SessionManager{
		codec:       codec,
		sessionTTL:  time.Duration(sessionDays) * 24 * time.Hour,
		extendedTTL: time.Duration(extendedDays) * 24 * time.Hour,
	}
}

// IssuePair выпускает свежую пару токенов со снимком полей профиля.
func (m *SessionManager) IssuePair(account *models.Account) (*TokenPair, error) {
	now := time.Now()

	session, err := m.codec.Issue(account, m.sessionTTL)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	extended, err := m.codec.Issue(account, m.extendedTTL)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	return &TokenPair{
		Session:         session,
		Extended:        extended,
		SessionExpires:  now.Add(m.sessionTTL),
		ExtendedExpires: now.Add(m.extendedTTL),
	}, nil
}

// Authenticate проверяет короткий токен. Любая причина отказа наружу
// выглядит одинаково (401), но вид отказа уходит в лог.
func (m *SessionManager) Authenticate(raw string) (*SessionClaims, error) {
	claims, err := m.codec.Verify(raw)
	if err != nil {
		if logger.Log != nil {
			logger.Log.WithField("reason", err.Error()).Debug("session: токен отклонён")
		}
		return nil, apperror.New(apperror.CodeUnauthorized, "unauthorized")
	}
	return claims, nil
}
