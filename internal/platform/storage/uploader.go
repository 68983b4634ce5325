package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
)

const defaultMaxUploadBytes = 5 << 20

var (
	ErrNotConfigured      = errors.New("storage: bucket not configured")
	ErrContentTypeDenied  = errors.New("storage: content type not allowed")
	ErrObjectTooLarge     = errors.New("storage: object exceeds size limit")
	defaultAllowedContent = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}
)

// Upload describes one object to store.
type Upload struct {
	Purpose     AssetPurpose
	Params      PathParams
	ContentType string
	Body        io.Reader
}

type writerFactory func(ctx context.Context, bucket, object, contentType string) io.WriteCloser

// Uploader streams objects into a Cloud Storage bucket and returns their public URLs.
type Uploader struct {
	bucket       string
	publicBase   string
	maxBytes     int64
	allowedTypes []string
	newWriter    writerFactory
}

// UploaderOption customises an Uploader.
type UploaderOption func(*Uploader)

// WithPublicBaseURL overrides the URL prefix returned for stored objects, e.g. a CDN host.
func WithPublicBaseURL(base string) UploaderOption {
	return func(u *Uploader) {
		if trimmed := strings.TrimRight(strings.TrimSpace(base), "/"); trimmed != "" {
			u.publicBase = trimmed
		}
	}
}

func WithMaxBytes(n int64) UploaderOption {
	return func(u *Uploader) {
		if n > 0 {
			u.maxBytes = n
		}
	}
}

func WithAllowedContentTypes(types ...string) UploaderOption {
	return func(u *Uploader) {
		if len(types) > 0 {
			u.allowedTypes = append([]string(nil), types...)
		}
	}
}

// NewUploader binds an uploader to bucket using client.
func NewUploader(client *gcs.Client, bucket string, opts ...UploaderOption) (*Uploader, error) {
	if client == nil {
		return nil, errors.New("storage uploader: client is required")
	}
	return newUploader(bucket, func(ctx context.Context, bucket, object, contentType string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = contentType
		w.CacheControl = "public, max-age=86400"
		return w
	}, opts...)
}

func newUploader(bucket string, factory writerFactory, opts ...UploaderOption) (*Uploader, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, ErrNotConfigured
	}
	u := &Uploader{
		bucket:       bucket,
		publicBase:   "https://storage.googleapis.com/" + bucket,
		maxBytes:     defaultMaxUploadBytes,
		allowedTypes: defaultAllowedContent,
		newWriter:    factory,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u, nil
}

// Put stores the upload and returns its public URL. Bodies larger than the configured limit are
// rejected and the partially written object is abandoned.
func (u *Uploader) Put(ctx context.Context, in Upload) (string, error) {
	if u == nil {
		return "", ErrNotConfigured
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(in.ContentType, ";", 2)[0]))
	if !u.contentAllowed(contentType) {
		return "", fmt.Errorf("%w: %q", ErrContentTypeDenied, in.ContentType)
	}
	object, err := BuildObjectPath(in.Purpose, in.Params)
	if err != nil {
		return "", err
	}
	if in.Body == nil {
		return "", errors.New("storage: body is required")
	}

	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := u.newWriter(writeCtx, u.bucket, object, contentType)

	n, err := io.Copy(w, io.LimitReader(in.Body, u.maxBytes+1))
	if err == nil && n > u.maxBytes {
		err = fmt.Errorf("%w: limit %d bytes", ErrObjectTooLarge, u.maxBytes)
	}
	if err != nil {
		// Cancelling before Close discards the object on the GCS writer.
		cancel()
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: finalize %s: %w", object, err)
	}
	return u.publicBase + "/" + escapeObject(object), nil
}

func (u *Uploader) contentAllowed(contentType string) bool {
	for _, allowed := range u.allowedTypes {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}

func escapeObject(object string) string {
	parts := strings.Split(object, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
