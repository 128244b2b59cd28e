package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"supercritical/internal/scl"
)

var ErrNotFound = errors.New("export: archive object not found")

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Archive keeps exported session documents in object storage, one object
// per session id per export timestamp.
type S3Archive struct {
	client   *minio.Client
	bucket   string
	region   string
	initOnce sync.Once
	initErr  error
}

func NewS3Archive(cfg S3Config) (*S3Archive, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("export: s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("export: s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("export: s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("export: init s3 client: %w", err)
	}
	return &S3Archive{client: client, bucket: bucket, region: region}, nil
}

func (a *S3Archive) ensureBucket(ctx context.Context) error {
	if a == nil || a.client == nil {
		return fmt.Errorf("export: archive is nil")
	}
	a.initOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.initErr = err
			return
		}
		if exists {
			return
		}
		a.initErr = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region})
	})
	return a.initErr
}

// Archive stores an export document and returns its object key.
func (a *S3Archive) Archive(ctx context.Context, sess scl.Session, exportedAt time.Time) (string, error) {
	data, err := Marshal(sess, exportedAt)
	if err != nil {
		return "", err
	}
	if err := a.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("export: ensure bucket: %w", err)
	}

	key := objectKey(sess.ID, exportedAt)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("export: put %s: %w", key, err)
	}
	return key, nil
}

// Fetch loads an archived export document by object key.
func (a *S3Archive) Fetch(ctx context.Context, key string) (Document, error) {
	if err := a.ensureBucket(ctx); err != nil {
		return Document{}, fmt.Errorf("export: ensure bucket: %w", err)
	}
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return Document{}, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return Parse(data)
}

// List returns the archived object keys for one session, oldest first.
func (a *S3Archive) List(ctx context.Context, sessionID string) ([]string, error) {
	if err := a.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("export: ensure bucket: %w", err)
	}
	prefix := "sessions/" + strings.TrimSuffix(strings.TrimSpace(sessionID), "/") + "/"
	keys := make([]string, 0, 8)
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key == "" {
			continue
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// PresignedURL returns a time-limited download link for an archived export.
func (a *S3Archive) PresignedURL(ctx context.Context, key string) (string, error) {
	if a == nil || a.client == nil {
		return "", fmt.Errorf("export: archive is nil")
	}
	u, err := a.client.PresignedGetObject(ctx, a.bucket, key, time.Hour, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func objectKey(sessionID string, exportedAt time.Time) string {
	return fmt.Sprintf("sessions/%s/%s.json", strings.TrimSpace(sessionID), exportedAt.UTC().Format("20060102T150405Z"))
}
