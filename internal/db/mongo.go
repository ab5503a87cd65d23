package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// NewMongo подключается к MongoDB и проверяет соединение.
func NewMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: не удалось подключиться: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("mongo: ping не прошёл: %w", err)
	}

	return client, nil
}

// EnsureIndexes создаёт индексы, на которые опирается бизнес-логика:
// уникальность email и TTL-очистка истёкших OTP документов. Истечение
// кода при проверке всё равно оценивается лениво по expiresAt — TTL
// индекс лишь подчищает коллекцию.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	accounts := database.Collection("accounts")
	_, err := accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo: индекс accounts.email: %w", err)
	}

	otps := database.Collection("otps")
	_, err = otps.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}, {Key: "purpose", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			// Документы нужны сутки как журнал попыток для 24-часового яруса.
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32((25 * time.Hour).Seconds())),
		},
	})
	if err != nil {
		return fmt.Errorf("mongo: индексы otps: %w", err)
	}

	return nil
}
