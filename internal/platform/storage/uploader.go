package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
)

var (
	errInvalidBucket = errors.New("storage: bucket name is required")
	errInvalidObject = errors.New("storage: object name is required")
)

// ObjectRef identifies an uploaded object.
type ObjectRef struct {
	Bucket      string `json:"bucket"`
	Object      string `json:"object"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	URI         string `json:"uri"`
}

// objectWriterFunc opens a writer for bucket/object. Closing the writer commits the upload.
type objectWriterFunc func(ctx context.Context, bucket, object, contentType string) io.WriteCloser

// Uploader streams generated files into a Cloud Storage bucket.
type Uploader struct {
	bucket string
	open   objectWriterFunc
}

// NewUploader constructs an Uploader for the bucket backed by the provided client.
func NewUploader(client *gcs.Client, bucket string) (*Uploader, error) {
	if client == nil {
		return nil, errors.New("storage uploader: client is required")
	}
	return newUploader(bucket, func(ctx context.Context, bucket, object, contentType string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = contentType
		return w
	})
}

func newUploader(bucket string, open objectWriterFunc) (*Uploader, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}
	return &Uploader{bucket: bucket, open: open}, nil
}

// Upload writes the object produced by write. The object is only committed when write
// succeeds.
func (u *Uploader) Upload(ctx context.Context, object, contentType string, write func(io.Writer) error) (ObjectRef, error) {
	object = strings.TrimSpace(object)
	if object == "" {
		return ObjectRef{}, errInvalidObject
	}

	// Cancelling the writer context aborts the upload instead of committing a partial object.
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := u.open(writeCtx, u.bucket, object, contentType)
	counter := &countingWriter{w: w}
	if err := write(counter); err != nil {
		cancel()
		_ = w.Close()
		return ObjectRef{}, fmt.Errorf("storage: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return ObjectRef{}, fmt.Errorf("storage: commit %s: %w", object, err)
	}
	return ObjectRef{
		Bucket:      u.bucket,
		Object:      object,
		ContentType: contentType,
		Size:        counter.n,
		URI:         fmt.Sprintf("gs://%s/%s", u.bucket, object),
	}, nil
}

// ExportObjectName lays out export files as exports/<kind>/YYYY/MM/DD/<kind>-<timestamp>.<ext>.
func ExportObjectName(kind, ext string, at time.Time) string {
	kind = strings.Trim(strings.ToLower(strings.TrimSpace(kind)), "/")
	if kind == "" {
		kind = "misc"
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	at = at.UTC()
	return fmt.Sprintf("exports/%s/%s/%s-%s.%s", kind, at.Format("2006/01/02"), kind, at.Format("20060102T150405Z"), ext)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
