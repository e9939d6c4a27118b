// Package archive stores upstream responses byte-for-byte before they are
// normalized, under raw/<facility>/<date>/<kind>.json. The object key is the
// locator recorded in DailySummary.RawKeys.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
)

const contentType = "application/json; charset=utf-8"

// RawKey is the object key of one archived response.
func RawKey(facility, date string, kind domain.Kind) string {
	return path.Join("raw", facility, date, string(kind)+".json")
}

// ObjectPutter is the subset of the minio client the S3 archive uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// S3 archives to an S3-compatible bucket.
type S3 struct {
	client ObjectPutter
	bucket string
}

// NewS3 wraps an existing client.
func NewS3(client ObjectPutter, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// NewMinioClient connects to endpoint with static credentials. Empty
// credentials fall back to the environment and IAM chain.
func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	creds := credentials.NewStaticV4(accessKey, secretKey, "")
	if accessKey == "" {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.IAM{},
		})
	}
	cli, err := minio.New(endpoint, &minio.Options{Creds: creds, Secure: useSSL})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return cli, nil
}

// Put uploads raw and returns its object key.
func (a *S3) Put(ctx context.Context, facility, date string, kind domain.Kind, raw []byte) (string, error) {
	key := RawKey(facility, date, kind)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}
	return key, nil
}

// CheckReadiness verifies the bucket exists.
func (a *S3) CheckReadiness(ctx context.Context) error {
	ok, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", a.bucket)
	}
	return nil
}

// Dir archives to a local directory, mirroring the object key layout.
type Dir struct {
	root string
}

// NewDir archives beneath root.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Put writes raw via a temp file and rename, so readers never observe a
// partial file. It returns the object key, not the filesystem path.
func (a *Dir) Put(ctx context.Context, facility, date string, kind domain.Kind, raw []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := RawKey(facility, date, kind)
	dst := filepath.Join(a.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("archive %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".raw-*")
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", key, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return "", fmt.Errorf("archive %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("archive %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("archive %s: %w", key, err)
	}
	return key, nil
}

// CheckReadiness verifies the root directory is usable.
func (a *Dir) CheckReadiness(context.Context) error {
	return os.MkdirAll(a.root, 0o755)
}
