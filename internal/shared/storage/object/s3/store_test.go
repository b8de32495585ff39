package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"content-analyzer/internal/shared/storage/object"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "upload_1_a.mp3", want: "upload_1_a.mp3"},
		{name: "simple prefix", prefix: "staging", key: "upload_1_a.mp3", want: "staging/upload_1_a.mp3"},
		{name: "prefix and key slashes", prefix: "/staging/", key: "/upload_1_a.mp3", want: "staging/upload_1_a.mp3"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []string
	getErr  error
	body    []byte
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, _ := io.ReadAll(in.Body)
	f.body = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.body))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestPutAndDeleteUsePrefixedKeys(t *testing.T) {
	fake := &fakeS3{}
	store := NewWithClient(fake, "bucket", "staging", "")

	if err := store.Put(context.Background(), "upload_1_a.mp3", bytes.NewReader([]byte("abc")), 3, "audio/mpeg"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if len(fake.puts) != 1 {
		t.Fatalf("expected one put, got %d", len(fake.puts))
	}
	in := fake.puts[0]
	if aws.ToString(in.Key) != "staging/upload_1_a.mp3" {
		t.Fatalf("unexpected key %q", aws.ToString(in.Key))
	}
	if in.ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256 encryption, got %q", in.ServerSideEncryption)
	}
	if aws.ToInt64(in.ContentLength) != 3 {
		t.Fatalf("expected content length 3, got %d", aws.ToInt64(in.ContentLength))
	}

	if err := store.Delete(context.Background(), "upload_1_a.mp3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(fake.deletes) != 1 || fake.deletes[0] != "staging/upload_1_a.mp3" {
		t.Fatalf("unexpected deletes %v", fake.deletes)
	}
	if got := store.URI("upload_1_a.mp3"); got != "s3://bucket/staging/upload_1_a.mp3" {
		t.Fatalf("unexpected uri %q", got)
	}
}

func TestOpenMapsNoSuchKey(t *testing.T) {
	fake := &fakeS3{getErr: &s3types.NoSuchKey{}}
	store := NewWithClient(fake, "bucket", "", "")
	if _, err := store.Open(context.Background(), "missing"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
