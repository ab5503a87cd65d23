package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ignatzorin/account-backend/internal/models"
)

// ErrUserNotFound возвращается, когда запись пользователя не найдена.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken возвращается при нарушении уникальности email.
var ErrEmailTaken = errors.New("email already taken")

// UserRepository отвечает за коллекцию accounts.
type UserRepository struct {
	col *mongo.Collection
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(database *mongo.Database) *UserRepository {
	return &UserRepository{col: database.Collection("accounts")}
}

// Create сохраняет новую учётную запись. Нарушение уникального индекса
// по email транслируется в ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, account *models.Account) error {
	account.CreatedOn = time.Now().UTC()

	res, err := r.col.InsertOne(ctx, account)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("user repository: create: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		account.ID = oid
	}
	return nil
}

// GetByEmail возвращает учётную запись по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&account); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by email: %w", err)
	}
	return &account, nil
}

// GetByID возвращает учётную запись по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	var account models.Account
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&account); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by id: %w", err)
	}
	return &account, nil
}

// UpdateFields выполняет точечный $set по идентификатору. Атомарность
// одного обновления — единственная гарантия при конкурентных мутациях
// одной записи.
func (r *UserRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": fields})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("user repository: update fields: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateName меняет имя и фамилию.
func (r *UserRepository) UpdateName(ctx context.Context, id primitive.ObjectID, firstName, lastName string) error {
	return r.UpdateFields(ctx, id, bson.M{"firstName": firstName, "lastName": lastName})
}

// UpdateEmail меняет email и сбрасывает подтверждение: новый адрес
// должен быть подтверждён заново.
func (r *UserRepository) UpdateEmail(ctx context.Context, id primitive.ObjectID, email string) error {
	return r.UpdateFields(ctx, id, bson.M{"email": email, "isEmailVerified": false})
}

// UpdatePassword заменяет хеш пароля по идентификатору.
func (r *UserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	return r.UpdateFields(ctx, id, bson.M{"password": passwordHash})
}

// UpdateProfilePhoto сохраняет URL аватара.
func (r *UserRepository) UpdateProfilePhoto(ctx context.Context, id primitive.ObjectID, url string) error {
	return r.UpdateFields(ctx, id, bson.M{"profilePhoto": url})
}

// UpdateGenderAndDOB обновляет только переданные поля.
func (r *UserRepository) UpdateGenderAndDOB(ctx context.Context, id primitive.ObjectID, gender, dateOfBirth *string) error {
	fields := bson.M{}
	if gender != nil {
		fields["gender"] = *gender
	}
	if dateOfBirth != nil {
		fields["dateOfBirth"] = *dateOfBirth
	}
	if len(fields) == 0 {
		return nil
	}
	return r.UpdateFields(ctx, id, fields)
}

// SetEmailVerifiedByEmail помечает email подтверждённым.
func (r *UserRepository) SetEmailVerifiedByEmail(ctx context.Context, email string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"isEmailVerified": true}})
	if err != nil {
		return fmt.Errorf("user repository: set email verified: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePasswordByEmail заменяет хеш пароля по email (сценарий сброса).
func (r *UserRepository) UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"password": passwordHash}})
	if err != nil {
		return fmt.Errorf("user repository: update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
