// Package photo keeps the face photo taken right after sign-up. Image bytes
// go to S3; the store only remembers which object belongs to which user.
package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"appointment-booking/internal/metrics"
	"appointment-booking/internal/store"
)

var (
	ErrDisabled        = errors.New("photo storage not configured")
	ErrEmpty           = errors.New("photo is empty")
	ErrTooLarge        = errors.New("photo too large")
	ErrUnsupportedType = errors.New("unsupported photo type")
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

type Store struct {
	s3       S3API
	bucket   string
	maxBytes int64
	kv       store.Store
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewStore(client S3API, bucket string, maxBytes int64, kv store.Store, m *metrics.Metrics, log zerolog.Logger) *Store {
	return &Store{
		s3:       client,
		bucket:   bucket,
		maxBytes: maxBytes,
		kv:       kv,
		metrics:  m,
		log:      log.With().Str("component", "photo").Logger(),
	}
}

func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3 != nil
}

func MarkerKey(username string) string { return "photo:" + username }

// Save uploads the photo and points photo:<username> at it. The latest
// upload wins.
func (s *Store) Save(ctx context.Context, username, contentType string, data []byte) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	ext, ok := extensions[contentType]
	if !ok {
		s.metrics.ObservePhoto("rejected")
		return "", ErrUnsupportedType
	}
	if len(data) == 0 {
		s.metrics.ObservePhoto("rejected")
		return "", ErrEmpty
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		s.metrics.ObservePhoto("rejected")
		return "", ErrTooLarge
	}

	key := fmt.Sprintf("identity-photos/%s/%s.%s", username, uuid.NewString(), ext)
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.metrics.ObservePhoto("error")
		return "", fmt.Errorf("photo: s3 put %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, MarkerKey(username), key); err != nil {
		s.metrics.ObservePhoto("error")
		return "", fmt.Errorf("photo: record %s: %w", key, err)
	}

	s.metrics.ObservePhoto("stored")
	s.log.Info().Str("username", username).Str("s3_key", key).Int("bytes", len(data)).Msg("identity photo stored")
	return key, nil
}

func (s *Store) Lookup(ctx context.Context, username string) (string, bool, error) {
	key, ok, err := s.kv.Get(ctx, MarkerKey(username))
	if err != nil {
		return "", false, fmt.Errorf("photo: lookup: %w", err)
	}
	return key, ok, nil
}
