package photo

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appointment-booking/internal/store"
)

type fakeS3 struct {
	puts []*s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.puts = append(f.puts, in)
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestSaveAndLookup(t *testing.T) {
	fake := &fakeS3{}
	kv := store.NewMemory()
	s := NewStore(fake, "faces", 1024, kv, nil, zerolog.Nop())
	ctx := context.Background()

	key, err := s.Save(ctx, "alice", "image/jpeg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "identity-photos/alice/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	require.Len(t, fake.puts, 1)
	assert.Equal(t, "faces", aws.ToString(fake.puts[0].Bucket))
	assert.Equal(t, "image/jpeg", aws.ToString(fake.puts[0].ContentType))
	assert.Equal(t, []byte("jpeg-bytes"), fake.body)

	got, ok, err := s.Lookup(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, key, got)

	_, ok, err = s.Lookup(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveRejects(t *testing.T) {
	s := NewStore(&fakeS3{}, "faces", 4, store.NewMemory(), nil, zerolog.Nop())
	tests := []struct {
		name string
		ct   string
		data []byte
		want error
	}{
		{"gif", "image/gif", []byte("x"), ErrUnsupportedType},
		{"empty", "image/png", nil, ErrEmpty},
		{"too large", "image/png", []byte("12345"), ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Save(context.Background(), "alice", tt.ct, tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSaveDisabled(t *testing.T) {
	s := NewStore(nil, "", 0, store.NewMemory(), nil, zerolog.Nop())
	assert.False(t, s.Enabled())
	_, err := s.Save(context.Background(), "alice", "image/png", []byte("x"))
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestSaveS3Failure(t *testing.T) {
	kv := store.NewMemory()
	s := NewStore(&fakeS3{err: errors.New("access denied")}, "faces", 0, kv, nil, zerolog.Nop())
	_, err := s.Save(context.Background(), "alice", "image/png", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, 0, kv.Len(), "no marker without an object")
}
