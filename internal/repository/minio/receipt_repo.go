package minio

import (
	"bytes"
	"context"

	"github.com/DRSN-tech/checkout-backend/internal/cfg"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

const (
	receiptContentType = "application/json"
	codeNoSuchKey      = "NoSuchKey"
)

// ReceiptRepo хранит чеки заказов в MinIO.
type ReceiptRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewReceiptRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *ReceiptRepo {
	return &ReceiptRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Upload загружает чек. Повторная загрузка по тому же ключу перезаписывает объект.
func (r *ReceiptRepo) Upload(ctx context.Context, key string, data []byte) error {
	_, err := r.mc.PutObject(ctx, r.cfg.BucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: receiptContentType,
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// PresignedURL возвращает временную ссылку на скачивание чека.
func (r *ReceiptRepo) PresignedURL(ctx context.Context, key string) (string, error) {
	u, err := r.mc.PresignedGetObject(ctx, r.cfg.BucketName, key, r.cfg.PresignTTL, nil)
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return u.String(), nil
}

// Exists сообщает, загружен ли уже чек. Отсутствие объекта не считается ошибкой.
func (r *ReceiptRepo) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.mc.StatObject(ctx, r.cfg.BucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == codeNoSuchKey {
			return false, nil
		}
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return true, nil
}
