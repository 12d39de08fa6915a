package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/utils"
)

// DocumentStore keeps the original uploaded policy documents for audit.
// GCS when a bucket is configured, local directory otherwise.
type DocumentStore interface {
	Upload(ctx context.Context, key string, file io.Reader) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// NewDocumentStore picks the backend from the environment.
func NewDocumentStore(log *logger.Logger) (DocumentStore, error) {
	if bucket := strings.TrimSpace(utils.GetEnv("GCS_BUCKET_NAME", "", log)); bucket != "" {
		return newBucketStore(log, bucket)
	}
	return newLocalStore(log)
}

type bucketStore struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucketName    string
	cdnDomain     string
}

func newBucketStore(log *logger.Logger, bucket string) (DocumentStore, error) {
	serviceLog := log.With("service", "BucketStore")
	cdnDomain := utils.GetEnv("CDN_DOMAIN", "", log)
	saPath := utils.GetEnv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "", log)

	ctx := context.Background()
	var stClient *storage.Client
	var err error
	if saPath != "" {
		stClient, err = storage.NewClient(ctx, option.WithCredentialsFile(saPath), option.WithScopes(storage.ScopeReadWrite))
	} else {
		stClient, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &bucketStore{
		log:           serviceLog,
		storageClient: stClient,
		bucketName:    bucket,
		cdnDomain:     cdnDomain,
	}, nil
}

func (bs *bucketStore) Upload(ctx context.Context, key string, file io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	w := bs.storageClient.Bucket(bs.bucketName).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (bs *bucketStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := bs.storageClient.Bucket(bs.bucketName).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete GCS object %q: %w", key, err)
	}
	return nil
}

func (bs *bucketStore) PublicURL(key string) string {
	if bs.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", bs.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucketName, key)
}

type localStore struct {
	log *logger.Logger
	dir string
}

func newLocalStore(log *logger.Logger) (DocumentStore, error) {
	serviceLog := log.With("service", "LocalDocumentStore")
	dir := utils.GetEnv("DOCUMENT_STORE_DIR", "./data/documents", log)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document store dir: %w", err)
	}
	serviceLog.Info("Using local document store", "dir", dir)
	return &localStore{log: serviceLog, dir: dir}, nil
}

func (ls *localStore) Upload(_ context.Context, key string, file io.Reader) error {
	path := filepath.Join(ls.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		return fmt.Errorf("failed to write local document: %w", err)
	}
	return nil
}

func (ls *localStore) Delete(_ context.Context, key string) error {
	return os.Remove(filepath.Join(ls.dir, filepath.FromSlash(key)))
}

func (ls *localStore) PublicURL(key string) string {
	return "/documents/" + key
}
