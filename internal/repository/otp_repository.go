package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ignatzorin/account-backend/internal/models"
)

// ErrOTPNotFound возвращается, когда активного кода нет.
var ErrOTPNotFound = errors.New("otp not found")

// ErrOTPConsumed возвращается при повторной попытке погасить код.
var ErrOTPConsumed = errors.New("otp already consumed")

// OTPRepository отвечает за коллекцию otps.
type OTPRepository struct {
	col *mongo.Collection
}

// NewOTPRepository создаёт экземпляр репозитория.
func NewOTPRepository(database *mongo.Database) *OTPRepository {
	return &OTPRepository{col: database.Collection("otps")}
}

// Create сохраняет новый код. Каждая запись одновременно является
// отметкой попытки отправки для ярусных лимитов.
func (r *OTPRepository) Create(ctx context.Context, otp *models.OTP) error {
	if _, err := r.col.InsertOne(ctx, otp); err != nil {
		return fmt.Errorf("otp repository: create: %w", err)
	}
	return nil
}

// GetLatest возвращает самый свежий код по email и назначению.
// Более старые коды после выпуска нового считаются недействительными,
// поэтому проверка всегда смотрит только на последний документ.
func (r *OTPRepository) GetLatest(ctx context.Context, email string, purpose models.OTPPurpose) (*models.OTP, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var otp models.OTP
	err := r.col.FindOne(ctx, bson.M{"email": email, "purpose": purpose}, opts).Decode(&otp)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("otp repository: get latest: %w", err)
	}
	return &otp, nil
}

// Consume атомарно помечает код использованным. Фильтр по consumedAt
// гарантирует одноразовость даже при гонке двух проверок.
func (r *OTPRepository) Consume(ctx context.Context, otp *models.OTP, now time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": otp.ID, "consumedAt": nil},
		bson.M{"$set": bson.M{"consumedAt": now}},
	)
	if err != nil {
		return fmt.Errorf("otp repository: consume: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrOTPConsumed
	}
	otp.ConsumedAt = &now
	return nil
}

// CountSince считает попытки отправки после отметки времени.
func (r *OTPRepository) CountSince(ctx context.Context, email string, purpose models.OTPPurpose, since time.Time) (int64, error) {
	count, err := r.col.CountDocuments(ctx, bson.M{
		"email":     email,
		"purpose":   purpose,
		"createdAt": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("otp repository: count since: %w", err)
	}
	return count, nil
}
