package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account описывает учётную запись пользователя.
// Email уникален на уровне индекса коллекции и хранится в нижнем регистре.
type Account struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FirstName    string             `bson:"firstName" json:"firstName"`
	LastName     string             `bson:"lastName" json:"lastName"`
	Email        string             `bson:"email" json:"email"`
	Password     string             `bson:"password" json:"-"`
	ProfilePhoto *string            `bson:"profilePhoto,omitempty" json:"profilePhoto,omitempty"`
	Gender       *string            `bson:"gender,omitempty" json:"gender,omitempty"`
	DateOfBirth  *string            `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`

	IsAdmin         bool `bson:"isAdmin" json:"isAdmin"`
	IsEmailVerified bool `bson:"isEmailVerified" json:"isEmailVerified"`
	IsDisabled      bool `bson:"isDisabled" json:"isDisabled"`
	IsSuspended     bool `bson:"isSuspended" json:"isSuspended"`

	CreatedOn time.Time `bson:"createdOn" json:"createdOn"`
}
