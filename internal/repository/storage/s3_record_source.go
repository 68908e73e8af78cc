package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/dafibh/tablero/tablero-backend/internal/config"
	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// maxObjectSize caps how much of the records object is read
const maxObjectSize = 32 << 20

// ObjectGetter is the subset of the S3 client used to read the records object
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3RecordSource implements domain.RecordSource by reading one JSON object from S3
type S3RecordSource struct {
	client ObjectGetter
	bucket string
	key    string
}

// Ensure S3RecordSource implements domain.RecordSource
var _ domain.RecordSource = (*S3RecordSource)(nil)

// NewS3RecordSource creates a record source for the configured bucket and key
func NewS3RecordSource(ctx context.Context, s3cfg cfg.S3Config) (*S3RecordSource, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s3cfg.Region),
	}

	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s3cfg.AccessKeyID,
				s3cfg.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Endpoint override for MinIO/LocalStack
	var client *s3.Client
	if s3cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return NewS3RecordSourceWithClient(client, s3cfg.Bucket, s3cfg.RecordsKey), nil
}

// NewS3RecordSourceWithClient creates a record source on top of an existing client
func NewS3RecordSourceWithClient(client ObjectGetter, bucket, key string) *S3RecordSource {
	return &S3RecordSource{
		client: client,
		bucket: bucket,
		key:    key,
	}
}

// FetchRecords downloads the records object once and decodes it
func (s *S3RecordSource) FetchRecords(ctx context.Context) ([]*domain.RawRecord, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get records object: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, maxObjectSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read records object: %w", err)
	}

	records, err := domain.DecodeRawRecords(body)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("bucket", s.bucket).
		Str("key", s.key).
		Int("raw_records", len(records)).
		Msg("Fetched records from S3")

	return records, nil
}
