package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все параметры запуска приложения.
// Политики сессий и OTP заданы здесь и передаются в конструкторы
// сервисов явно, без обращения к окружению из бизнес-логики.
type Config struct {
	Env      string
	HTTPPort string

	MongoURI      string
	MongoDatabase string

	JWTSecret           string
	SessionTTLDays      int
	ExtendedSessionDays int

	OTPTTL          time.Duration
	OTPMinSendGap   time.Duration
	OTPSendsPerHour int
	OTPSendsPerDay  int

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string

	S3Region       string
	S3Bucket       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	MaxUploadBytes int64

	AllowedOrigins  []string
	RateLimitLimit  int64
	RateLimitPeriod time.Duration
}

// Load читает переменные окружения и возвращает готовую конфигурацию.
func Load() (*Config, error) {
	// Загружаем .env только если он существует, иначе используем системные переменные.
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("config: .env не найден, используем переменные окружения: %v", err)
	}

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:           env,
		HTTPPort:      getEnv("HTTP_PORT", "5002"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "accounts"),
		SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPass:      getEnv("SMTP_PASSWORD", ""),
		MailFrom:      getEnv("MAIL_FROM", ""),
		S3Region:      getEnv("S3_REGION", "us-east-1"),
		S3Bucket:      getEnv("S3_BUCKET", "profile-pictures"),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		S3AccessKey:   getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:   getEnv("S3_SECRET_KEY", ""),
	}

	// Валидация секрета подписи токенов
	secret := getEnv("JWT_SECRET", "")
	if env == "production" {
		if len(secret) < 32 {
			return nil, fmt.Errorf("config: JWT_SECRET обязателен и должен быть не менее 32 символов в production")
		}
	} else if secret == "" {
		secret = "super-secret-development-only-change-in-production"
		log.Printf("config: WARNING - используется дефолтный JWT_SECRET, измените в production!")
	}
	cfg.JWTSecret = secret

	cfg.SessionTTLDays = int(mustParseInt64(getEnv("SESSION_TTL_DAYS", "1")))
	cfg.ExtendedSessionDays = int(mustParseInt64(getEnv("EXTENDED_SESSION_TTL_DAYS", "30")))

	// Политика OTP: TTL кода и ярусы лимитов отправки.
	cfg.OTPTTL = mustParseDuration(getEnv("OTP_TTL", "10m"))
	cfg.OTPMinSendGap = mustParseDuration(getEnv("OTP_MIN_SEND_GAP", "5m"))
	cfg.OTPSendsPerHour = int(mustParseInt64(getEnv("OTP_SENDS_PER_HOUR", "3")))
	cfg.OTPSendsPerDay = int(mustParseInt64(getEnv("OTP_SENDS_PER_DAY", "6")))

	cfg.MaxUploadBytes = mustParseInt64(getEnv("MAX_UPLOAD_MB", "2")) * 1024 * 1024

	// CORS allowed origins
	originsStr := getEnv("CORS_ALLOWED_ORIGINS", "")
	if originsStr == "" {
		if env == "production" {
			return nil, fmt.Errorf("config: CORS_ALLOWED_ORIGINS обязателен в production")
		}
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	} else {
		cfg.AllowedOrigins = strings.Split(originsStr, ",")
		for i, origin := range cfg.AllowedOrigins {
			cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
		}
	}

	cfg.RateLimitLimit = mustParseInt64(getEnv("RATE_LIMIT_LIMIT", "30"))
	cfg.RateLimitPeriod = mustParseDuration(getEnv("RATE_LIMIT_PERIOD", "1m"))

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или дефолт.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// mustParseDuration безопасно парсит строку в duration.
func mustParseDuration(v string) time.Duration {
	dur, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("config: не удалось распарсить длительность %q: %v", v, err)
	}
	return dur
}

// mustParseInt64 безопасно парсит строку в число.
func mustParseInt64(v string) int64 {
	num, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Fatalf("config: не удалось распарсить число %q: %v", v, err)
	}
	return num
}
