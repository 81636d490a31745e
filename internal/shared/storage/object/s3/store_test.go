package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"summarize-backend/internal/shared/storage/object"
	"summarize-backend/internal/shared/util"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	putErr  error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestSaveOpenDelete(t *testing.T) {
	fake := newFakeS3()
	store := NewWithClient(fake, Config{Bucket: "archive", Prefix: "/uploads/"})
	ctx := context.Background()
	body := "%PDF-1.4 quarterly filing"

	info, err := store.Save(ctx, "alice", "Q3 filing.pdf", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !util.OwnsKey("alice", info.Key) {
		t.Fatalf("key %q not in alice's namespace", info.Key)
	}
	if info.Size != int64(len(body)) || info.ContentType != "application/pdf" {
		t.Fatalf("unexpected info %+v", info)
	}

	put := fake.puts[0]
	if got := aws.ToString(put.Key); got != "uploads/"+info.Key {
		t.Fatalf("object key = %q", got)
	}
	if aws.ToInt64(put.ContentLength) != int64(len(body)) || put.ChecksumAlgorithm != s3types.ChecksumAlgorithmSha256 {
		t.Fatalf("expected length and checksum on put, got %+v", put)
	}
	if put.Metadata["original-name"] == "" {
		t.Fatalf("expected original-name metadata")
	}

	rc, err := store.Open(ctx, info.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != body {
		t.Fatalf("read %q, want %q", got, body)
	}

	if err := store.Delete(ctx, info.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, info.Key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("Open after delete err = %v, want ErrNotFound", err)
	}
}

func TestSavePutFailure(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	store := NewWithClient(fake, Config{Bucket: "archive"})

	if _, err := store.Save(context.Background(), "alice", "a.pdf", strings.NewReader("%PDF-1.4")); err == nil {
		t.Fatal("expected put error")
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	store := NewWithClient(newFakeS3(), Config{Bucket: "archive", Prefix: "uploads"})
	for _, key := range []string{"", "   ", "../other/file.pdf", "a/../../b.pdf"} {
		if err := store.Delete(context.Background(), key); !errors.Is(err, object.ErrInvalidKey) {
			t.Fatalf("Delete(%q) err = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/file.pdf", want: "root/user/file.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "user/file.pdf", want: "root/sub/user/file.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestPutInputEncryption(t *testing.T) {
	plain := NewWithClient(nil, Config{Bucket: "archive"}).putInput("owner/file.pdf", "application/pdf", nil)
	if plain.ServerSideEncryption != s3types.ServerSideEncryptionAes256 || plain.SSEKMSKeyId != nil {
		t.Fatalf("expected AES256 without kms key, got %v", plain.ServerSideEncryption)
	}

	kms := NewWithClient(nil, Config{Bucket: "archive", KMSKeyID: "key-1"}).putInput("owner/file.pdf", "application/pdf", nil)
	if kms.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(kms.SSEKMSKeyId) != "key-1" {
		t.Fatalf("expected kms encryption, got %v", kms.ServerSideEncryption)
	}
}
