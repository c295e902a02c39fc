package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ObjectWriter opens writers for objects in a bucket.
type ObjectWriter interface {
	NewWriter(ctx context.Context, object string, onlyIfAbsent bool) io.WriteCloser
}

// BucketWriter adapts a bucket handle to ObjectWriter.
type BucketWriter struct {
	Bucket *storage.BucketHandle
}

func (b BucketWriter) NewWriter(ctx context.Context, object string, onlyIfAbsent bool) io.WriteCloser {
	obj := b.Bucket.Object(object)
	if onlyIfAbsent {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}
	return obj.NewWriter(ctx)
}

// ObjectStore is the part of Cloud Storage a notice run uses: fetching the
// source and template, and writing rendered notices.
type ObjectStore interface {
	Download(ctx context.Context, bucket, object, destPath string) error
	Bucket(name string) ObjectWriter
}

// GCSStore implements ObjectStore on a storage client.
type GCSStore struct {
	Client *storage.Client
}

func (s GCSStore) Download(ctx context.Context, bucket, object, destPath string) error {
	return DownloadObject(ctx, s.Client, bucket, object, destPath)
}

func (s GCSStore) Bucket(name string) ObjectWriter {
	return BucketWriter{Bucket: s.Client.Bucket(name)}
}

// isPreconditionFailed reports whether err is a 412 from a DoesNotExist write.
func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// SaveToGCSAtomically writes content to an object only if it doesn't already
// exist. An existing object is not an error.
func SaveToGCSAtomically(ctx context.Context, bucket ObjectWriter, objectName string, content io.Reader) error {
	writer := bucket.NewWriter(ctx, objectName, true)

	if _, err := io.Copy(writer, content); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists. Skipping.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists. Skipping.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// Retry bounds UploadFile.
type Retry struct {
	Attempts int
	Backoff  time.Duration
	Timeout  time.Duration
}

// DefaultRetry is four attempts starting at a one second backoff, doubling.
var DefaultRetry = Retry{Attempts: 4, Backoff: time.Second, Timeout: 50 * time.Second}

// UploadFile copies the local file to destObject, retrying failed attempts
// with exponential backoff. Objects that already exist are left untouched.
func UploadFile(ctx context.Context, bucket ObjectWriter, localPath, destObject string, retry Retry) error {
	backoff := retry.Backoff
	var lastErr error

	for i := 0; i < retry.Attempts; i++ {
		err := func() error {
			f, err := os.Open(localPath)
			if err != nil {
				return fmt.Errorf("could not open local file %s: %w", localPath, err)
			}
			defer f.Close()

			writeCtx, cancel := context.WithTimeout(ctx, retry.Timeout)
			defer cancel()
			return SaveToGCSAtomically(writeCtx, bucket, destObject, f)
		}()

		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", destObject,
			"attempt", i+1,
			"maxRetries", retry.Attempts,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", destObject, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", destObject, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", destObject, lastErr)
}

// DownloadObject streams gs://bucket/object to destPath.
func DownloadObject(ctx context.Context, client *storage.Client, bucket, object, destPath string) error {
	reader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()

	localFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer localFile.Close()

	if _, err := io.Copy(localFile, reader); err != nil {
		return fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return nil
}
