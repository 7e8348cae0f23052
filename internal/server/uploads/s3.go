package uploads

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/dmitrijs2005/instafeed/internal/server/config"
)

// S3Store keeps uploads in an S3-compatible bucket (MinIO in development).
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3Store builds a client from the static credentials and custom base
// endpoint in cfg.
func NewS3Store(ctx context.Context, cfg *sc.Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("uploads: s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	base := strings.TrimSuffix(cfg.S3BaseEndpoint, "/")
	return &S3Store{
		client:  client,
		bucket:  cfg.S3Bucket,
		baseURL: base + "/" + cfg.S3Bucket,
	}, nil
}

func (s *S3Store) Save(ctx context.Context, filename string, r io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(filename),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("uploads: put %s: %w", filename, err)
	}
	return nil
}

func (s *S3Store) URL(filename string) string {
	return s.baseURL + "/" + filename
}
