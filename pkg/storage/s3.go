package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const defaultRegion = "us-east-1"

type S3Options struct {
	Bucket string
	Region string
	// Endpoint points the client at an S3 compatible service (R2, MinIO).
	// Path style addressing is used when it is set.
	Endpoint string
	// PublicURL replaces the virtual-hosted bucket URL in returned links.
	PublicURL       string
	AccessKeyID     string
	SecretAccessKey string
	Folder          string
}

// S3Sink uploads images to an S3 bucket.
type S3Sink struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	region    string
	publicURL string
	folder    string
	logger    *zap.Logger
}

// NewS3Sink loads the default AWS config chain. Static credentials are used
// when both keys are set.
func NewS3Sink(ctx context.Context, opts S3Options, logger *zap.Logger) (*S3Sink, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	region := opts.Region
	if region == "" {
		region = defaultRegion
	}

	loaders := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := strings.TrimRight(opts.PublicURL, "/")
	if publicURL == "" && opts.Endpoint != "" {
		publicURL = strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
	}

	return &S3Sink{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    opts.Bucket,
		region:    region,
		publicURL: publicURL,
		folder:    cleanFolder(opts.Folder),
		logger:    logger,
	}, nil
}

func (s *S3Sink) WithFolder(folder string) Sink {
	cp := *s
	cp.folder = cleanFolder(joinKey(s.folder, folder))
	return &cp
}

func (s *S3Sink) Store(ctx context.Context, obj Object) (Details, error) {
	if err := validName(obj.Name); err != nil {
		return Details{}, err
	}
	key := joinKey(s.folder, obj.Name)

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(obj.Buffer),
		ContentLength: aws.Int64(int64(len(obj.Buffer))),
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error("s3 upload failed", zap.String("bucket", s.bucket), zap.String("key", key), zap.Error(err))
		return Details{}, fmt.Errorf("failed to upload to S3: %w", err)
	}
	s.logger.Debug("s3 upload complete", zap.String("key", key), zap.Int("bytes", len(obj.Buffer)))

	return Details{Name: obj.Name, Blend: obj.Blend, URL: s.URL(obj.Name)}, nil
}

func (s *S3Sink) Delete(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(joinKey(s.folder, name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

func (s *S3Sink) URL(name string) string {
	key := joinKey(s.folder, name)
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// SignedURL returns a time limited GET link for a private bucket.
func (s *S3Sink) SignedURL(ctx context.Context, name string, ttl time.Duration) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(joinKey(s.folder, name)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", name, err)
	}
	return req.URL, nil
}
