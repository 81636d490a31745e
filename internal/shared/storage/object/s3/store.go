package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"summarize-backend/internal/shared/storage/object"
	"summarize-backend/internal/shared/util"
)

// API is the subset of the S3 client the store calls.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config selects the bucket and encryption for archived uploads. Endpoint points the client at
// an S3-compatible server and switches to path-style addressing.
type Config struct {
	Region   string
	Bucket   string
	Prefix   string
	Endpoint string
	KMSKeyID string
}

// Store archives uploads in S3.
type Store struct {
	client   API
	bucket   string
	prefix   string
	kmsKeyID string
}

// New loads the default AWS credential chain and returns a store for cfg.Bucket.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg), nil
}

// NewWithClient builds a store around an existing client.
func NewWithClient(client API, cfg Config) *Store {
	return &Store{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		kmsKeyID: strings.TrimSpace(cfg.KMSKeyID),
	}
}

// Save uploads r under the owner's namespace. Archived uploads are already bounded by the
// upload limit, so the body is buffered to give S3 a length and a checksum.
func (s *Store) Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (object.Info, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return object.Info{}, fmt.Errorf("sanitize file name: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return object.Info{}, err
	}

	head, contentType, err := object.Sniff(r)
	if err != nil {
		return object.Info{}, fmt.Errorf("read sniff: %w", err)
	}
	rest, err := io.ReadAll(r)
	if err != nil {
		return object.Info{}, fmt.Errorf("read body: %w", err)
	}
	body := append(head, rest...)

	key := path.Join(util.OwnerKey(ownerID), uuid.NewString()+"_"+name)
	input := s.putInput(key, contentType, body)
	input.Metadata = map[string]string{"original-name": name}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return object.Info{}, fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, aws.ToString(input.Key), err)
	}
	return object.Info{Key: key, Size: int64(len(body)), ContentType: contentType}, nil
}

// Open streams a stored object. Missing keys report object.ErrNotFound.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var missing *s3types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, object.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return out.Body, nil
}

// Delete removes a stored object. S3 reports success for missing keys.
func (s *Store) Delete(ctx context.Context, key string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}); err != nil {
		return fmt.Errorf("s3 delete object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return nil
}

func (s *Store) putInput(key, contentType string, body []byte) *s3.PutObjectInput {
	input := &s3.PutObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(applyPrefix(s.prefix, key)),
		Body:              bytes.NewReader(body),
		ContentLength:     aws.Int64(int64(len(body))),
		ContentType:       aws.String(contentType),
		ChecksumAlgorithm: s3types.ChecksumAlgorithmSha256,
	}
	if s.kmsKeyID != "" {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(s.kmsKeyID)
	} else {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}
	return input
}

// objectKey rejects keys that would leave the store's prefix.
func (s *Store) objectKey(key string) (string, error) {
	clean := strings.TrimLeft(strings.TrimSpace(key), "/")
	if clean == "" || path.Clean(clean) != clean || strings.HasPrefix(clean, "..") {
		return "", object.ErrInvalidKey
	}
	return applyPrefix(s.prefix, clean), nil
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	switch {
	case cleanPrefix == "":
		return cleanKey
	case cleanKey == "":
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

var _ object.ObjectStore = (*Store)(nil)
