package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// PhotoStorage кладёт аватары в S3-совместимое хранилище и возвращает
// публичный URL объекта.
type PhotoStorage struct {
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
}

// NewPhotoStorage создаёт клиент хранилища. Пустой endpoint означает
// настоящий AWS S3; иначе — MinIO-совместимый сервер.
func NewPhotoStorage(ctx context.Context, region, bucket, endpoint, accessKey, secretKey string) (*PhotoStorage, error) {
	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(region),
	}
	if accessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось собрать конфигурацию S3: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &PhotoStorage{client: client, bucket: bucket, region: region, endpoint: endpoint}, nil
}

// Save загружает изображение и возвращает публичный URL. Ключ содержит
// случайный uuid, поэтому старые аватары не перезаписываются.
func (s *PhotoStorage) Save(ctx context.Context, data []byte, contentType, ext string) (string, error) {
	key := fmt.Sprintf("profile-pictures/%s%s", uuid.NewString(), normalizeExt(ext))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("storage: не удалось загрузить объект: %w", err)
	}

	return s.publicURL(key), nil
}

func (s *PhotoStorage) publicURL(key string) string {
	escaped := url.PathEscape(key)
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.endpoint, "/"), s.bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
}

func normalizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.ToLower(ext)
}
