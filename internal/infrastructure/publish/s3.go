package publish

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"FinanceRadar/internal/config"
	"FinanceRadar/internal/domain"
	"FinanceRadar/internal/ports"
)

// objectPutter is the slice of the S3 client the publisher needs.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads run artifacts to a bucket under a key prefix.
type S3Publisher struct {
	client       objectPutter
	bucket       string
	prefix       string
	cacheControl string
	logger       *slog.Logger
}

var _ ports.Publisher = (*S3Publisher)(nil)

// NewS3Publisher builds a publisher on the default AWS credential chain.
// Endpoint and path-style addressing serve S3-compatible stores.
func NewS3Publisher(ctx context.Context, cfg config.PublishConfig, log *slog.Logger) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("publish bucket is not configured")
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
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3Publisher(client, cfg, log), nil
}

func newS3Publisher(client objectPutter, cfg config.PublishConfig, log *slog.Logger) *S3Publisher {
	return &S3Publisher{
		client:       client,
		bucket:       cfg.Bucket,
		prefix:       strings.Trim(cfg.Prefix, "/"),
		cacheControl: cfg.CacheControl,
		logger:       log,
	}
}

// Publish uploads each artifact in order and stops at the first failure.
func (p *S3Publisher) Publish(ctx context.Context, artifacts []domain.Artifact) error {
	for _, artifact := range artifacts {
		if err := p.put(ctx, artifact); err != nil {
			return err
		}
	}
	return nil
}

func (p *S3Publisher) put(ctx context.Context, artifact domain.Artifact) error {
	body, err := os.ReadFile(artifact.Path)
	if err != nil {
		return fmt.Errorf("read artifact %s: %w", artifact.Name, err)
	}

	key := p.Key(artifact.Name)
	in := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if artifact.ContentType != "" {
		in.ContentType = aws.String(artifact.ContentType)
	}
	if p.cacheControl != "" {
		in.CacheControl = aws.String(p.cacheControl)
	}

	if _, err := p.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", p.bucket, key, err)
	}
	if p.logger != nil {
		p.logger.Debug("artifact published", "bucket", p.bucket, "key", key, "bytes", len(body))
	}
	return nil
}

// Key returns the object key for an artifact name.
func (p *S3Publisher) Key(name string) string {
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}
