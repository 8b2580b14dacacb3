// Package s3 stores blobs as objects in an S3 or S3-compatible bucket.
//
// S3 has no partial writes, so WriteAt is a read-modify-write of the whole
// object. Blobs kept by the responder are small (error logs, certificates,
// progress codes), which keeps that cost bounded.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/pkg/store/content"
)

// Client is the subset of *s3.Client used by the store.
type Client interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config configures the S3 store.
type Config struct {
	Client Client
	Bucket string

	// KeyPrefix is prepended to every ID, e.g. "pldm/" gives "pldm/pel/00000007".
	KeyPrefix string
}

// Store implements content.Store on S3.
type Store struct {
	client Client
	bucket string
	prefix string

	// writeMu serializes read-modify-write cycles per process.
	writeMu sync.Mutex
}

var _ content.Store = (*Store)(nil)

// New validates cfg and returns a store. No request is made.
func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, errors.New("s3 content store: client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3 content store: bucket is required")
	}
	return &Store{client: cfg.Client, bucket: cfg.Bucket, prefix: cfg.KeyPrefix}, nil
}

func (s *Store) key(id content.ID) (string, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}
	if s.prefix == "" {
		return string(id), nil
	}
	return path.Join(s.prefix, string(id)), nil
}

// ReadAt issues a ranged GET for len(p) bytes at offset.
func (s *Store) ReadAt(ctx context.Context, id content.ID, p []byte, offset int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, content.ErrInvalidOffset
	}
	if len(p) == 0 {
		return 0, nil
	}
	key, err := s.key(id)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+int64(len(p))-1)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrNotFound)
		}
		if hasCode(err, "InvalidRange") {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	n, err := io.ReadFull(out.Body, p)
	logger.Debug("S3 ReadAt: key=%s offset=%d len=%d read=%d duration=%s", key, offset, len(p), n, time.Since(start))
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return n, io.EOF
	}
	return n, err
}

// WriteAt downloads the current object (if any), patches it and uploads the
// result.
func (s *Store) WriteAt(ctx context.Context, id content.ID, p []byte, offset int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if offset < 0 {
		return content.ErrInvalidOffset
	}
	key, err := s.key(id)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.getAll(ctx, key)
	if err != nil && !errors.Is(err, content.ErrNotFound) {
		return err
	}

	if end := offset + int64(len(p)); end > int64(len(existing)) {
		grown := make([]byte, end)
		copy(grown, existing)
		existing = grown
	}
	copy(existing[offset:], p)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(existing),
		ContentLength: aws.Int64(int64(len(existing))),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func (s *Store) getAll(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read body %s: %w", key, err)
	}
	return data, nil
}

// Size issues a HEAD request.
func (s *Store) Size(ctx context.Context, id content.ID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	key, err := s.key(id)
	if err != nil {
		return 0, err
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrNotFound)
		}
		return 0, fmt.Errorf("s3 head %s: %w", key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *Store) Exists(ctx context.Context, id content.ID) (bool, error) {
	_, err := s.Size(ctx, id)
	if errors.Is(err, content.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Delete removes the object. S3 deletes are idempotent, so existence is
// checked first to report ErrNotFound like the other stores.
func (s *Store) Delete(ctx context.Context, id content.ID) error {
	if _, err := s.Size(ctx, id); err != nil {
		return err
	}
	key, _ := s.key(id)

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound) || hasCode(err, "NotFound")
}

func hasCode(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}
