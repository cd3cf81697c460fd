package minio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/cfg"
	"github.com/DRSN-tech/checkout-backend/pkg/clients"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Подпись ссылки считается локально, поэтому сервер MinIO не нужен.
func TestReceiptRepo_PresignedURL(t *testing.T) {
	minioCfg := &cfg.MinIOCfg{
		MinioEndpoint:     "localhost:9000",
		BucketName:        "receipts",
		MinioRootUser:     "minioadmin",
		MinioRootPassword: "minioadmin",
		Region:            "us-east-1",
		PresignTTL:        10 * time.Minute,
	}
	client, err := clients.NewMinIOClient(minioCfg)
	require.NoError(t, err)

	repo := NewReceiptRepo(client, minioCfg)
	raw, err := repo.PresignedURL(context.Background(), "receipts/1/2.json")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/receipts/receipts/1/2.json", u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

// newStubRepo поднимает S3-совместимую заглушку, которая знает только об объектах из stored.
func newStubRepo(t *testing.T, stored map[string]bool, status int) *ReceiptRepo {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		if r.Method == http.MethodHead && stored[r.URL.Path] {
			w.Header().Set("Last-Modified", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat))
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.Header().Set("Content-Type", receiptContentType)
			w.Header().Set("Content-Length", "42")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	minioCfg := &cfg.MinIOCfg{
		MinioEndpoint:     strings.TrimPrefix(srv.URL, "http://"),
		BucketName:        "receipts",
		MinioRootUser:     "minioadmin",
		MinioRootPassword: "minioadmin",
		Region:            "us-east-1",
		PresignTTL:        time.Minute,
	}
	client, err := clients.NewMinIOClient(minioCfg)
	require.NoError(t, err)

	return NewReceiptRepo(client, minioCfg)
}

func TestReceiptRepo_Exists(t *testing.T) {
	repo := newStubRepo(t, map[string]bool{"/receipts/receipts/7/99.json": true}, 0)
	ctx := context.Background()

	ok, err := repo.Exists(ctx, "receipts/7/99.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, "receipts/7/98.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReceiptRepo_ExistsStorageFailure(t *testing.T) {
	repo := newStubRepo(t, nil, http.StatusForbidden)

	_, err := repo.Exists(context.Background(), "receipts/7/99.json")
	assert.Error(t, err)
}
