package documents

import (
	"context"
	"fmt"
	"io"

	"notary-chain/notary-portal/notary-portal-backend/pkg/storage"
)

type StorageProvider struct {
	s3     storage.S3Client
	bucket string
}

func NewStorageProvider(s3 storage.S3Client, bucket string) *StorageProvider {
	return &StorageProvider{s3: s3, bucket: bucket}
}

func (p *StorageProvider) Upload(ctx context.Context, key string, body io.Reader) error {
	return p.s3.Upload(ctx, p.bucket, key, body)
}

func (p *StorageProvider) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return p.s3.Download(ctx, p.bucket, key)
}

func (p *StorageProvider) Bucket() string { return p.bucket }

func (p *StorageProvider) GenerateKey(documentID string, kind FileKind, fileName string) string {
	return fmt.Sprintf("documents/%s/%s/%s", documentID, kind, fileName)
}
