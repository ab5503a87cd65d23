package service

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/account-backend/internal/models"
	"github.com/ignatzorin/account-backend/internal/pkg/apperror"
	"github.com/ignatzorin/account-backend/internal/repository"
	"github.com/ignatzorin/account-backend/internal/validation"
)

// ProfileRepository — контракт ProfileService со слоем хранилища.
type ProfileRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateName(ctx context.Context, id primitive.ObjectID, firstName, lastName string) error
	UpdateEmail(ctx context.Context, id primitive.ObjectID, email string) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	UpdateProfilePhoto(ctx context.Context, id primitive.ObjectID, url string) error
	UpdateGenderAndDOB(ctx context.Context, id primitive.ObjectID, gender, dateOfBirth *string) error
}

// PhotoStore — внешний коллаборатор объектного хранилища: положить
// blob, вернуть URL.
type PhotoStore interface {
	Save(ctx context.Context, data []byte, contentType, ext string) (string, error)
}

// ProfileService обслуживает аутентифицированные операции профиля.
// Мутации возвращают обновлённую запись, чтобы HTTP-слой перевыпустил
// cookie с актуальным снимком полей.
type ProfileService struct {
	repo   ProfileRepository
	photos PhotoStore
}

// NewProfileService создаёт сервис профиля.
func NewProfileService(repo ProfileRepository, photos PhotoStore) *ProfileService {
	return &ProfileService{repo: repo, photos: photos}
}

// GetProfile возвращает запись после проверки состояния. Приостановка
// обнаруживается именно здесь (лениво), других сторожей нет.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Account, error) {
	account, err := s.getByHexID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !account.IsEmailVerified {
		return nil, apperror.New(apperror.CodeEmailNotVerified, "email not verified")
	}
	if account.IsDisabled {
		return nil, apperror.New(apperror.CodeAccountDisabled, "account is disabled")
	}
	if account.IsSuspended {
		return nil, apperror.New(apperror.CodeAccountSuspended, "account is suspended")
	}

	return account, nil
}

// ChangeName обновляет имя и возвращает свежую запись.
func (s *ProfileService) ChangeName(ctx context.Context, userID, firstName, lastName string) (*models.Account, error) {
	account, err := s.getByHexID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateName(ctx, account.ID, firstName, lastName); err != nil {
		return nil, apperror.Internal(err)
	}

	account.FirstName = firstName
	account.LastName = lastName
	return account, nil
}

// ChangeEmail меняет email после проверки пароля. Подтверждение email
// при этом сбрасывается — адрес нужно верифицировать заново.
func (s *ProfileService) ChangeEmail(ctx context.Context, userID, newEmail, password string) (*models.Account, error) {
	newEmail = validation.NormalizeEmail(newEmail)

	if _, err := s.repo.GetByEmail(ctx, newEmail); err == nil {
		return nil, apperror.New(apperror.CodeEmailAlreadyTaken, "email already taken")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.Internal(err)
	}

	account, err := s.getByHexID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		return nil, apperror.New(apperror.CodeInvalidPassword, "invalid password").WithStatus(401)
	}

	if err := s.repo.UpdateEmail(ctx, account.ID, newEmail); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperror.New(apperror.CodeEmailAlreadyTaken, "email already taken")
		}
		return nil, apperror.Internal(err)
	}

	account.Email = newEmail
	account.IsEmailVerified = false
	return account, nil
}

// ChangePassword заменяет пароль после проверки старого.
func (s *ProfileService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	account, err := s.getByHexID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(oldPassword)); err != nil {
		return apperror.New(apperror.CodeInvalidPassword, "invalid password").WithStatus(401)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperror.Internal(err)
	}

	if err := s.repo.UpdatePassword(ctx, account.ID, string(passHash)); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

// ChangeProfilePicture — последовательный конвейер: загрузка в
// объектное хранилище, получение URL, запись URL в учётную запись.
// Каждая ступень либо возвращает результат, либо терминальную ошибку.
func (s *ProfileService) ChangeProfilePicture(ctx context.Context, userID string, data []byte, contentType, ext string) (*models.Account, error) {
	account, err := s.getByHexID(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.photos.Save(ctx, data, contentType, ext)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if err := s.repo.UpdateProfilePhoto(ctx, account.ID, url); err != nil {
		return nil, apperror.Internal(err)
	}

	account.ProfilePhoto = &url
	return account, nil
}

// UpdateGenderAndDOB обновляет демографические поля; достаточно
// передать хотя бы одно.
func (s *ProfileService) UpdateGenderAndDOB(ctx context.Context, userID string, gender, dateOfBirth *string) (*models.Account, error) {
	account, err := s.getByHexID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateGenderAndDOB(ctx, account.ID, gender, dateOfBirth); err != nil {
		return nil, apperror.Internal(err)
	}

	if gender != nil {
		account.Gender = gender
	}
	if dateOfBirth != nil {
		account.DateOfBirth = dateOfBirth
	}
	return account, nil
}

func (s *ProfileService) getByHexID(ctx context.Context, userID string) (*models.Account, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidUserID, "invalid user id")
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.CodeAccountNotFound, "account not found")
		}
		return nil, apperror.Internal(err)
	}
	return account, nil
}
