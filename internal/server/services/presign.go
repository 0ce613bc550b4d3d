package services

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/storekeeper/internal/server/config"
)

// Presigner issues time-limited download URLs for stored items.
type Presigner interface {
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3Presigner presigns GET requests against an S3-compatible bucket
// (MinIO in development). The client is built on first use and reused;
// a failed build is retried on the next call.
type S3Presigner struct {
	region   string
	user     string
	password string
	endpoint string
	bucket   string

	mu     sync.Mutex
	client *s3.PresignClient
}

func NewS3Presigner(cfg *sc.Config) *S3Presigner {
	return &S3Presigner{
		region:   cfg.S3Region,
		user:     cfg.S3RootUser,
		password: cfg.S3RootPassword,
		endpoint: cfg.S3BaseEndpoint,
		bucket:   cfg.S3Bucket,
	}
}

func (p *S3Presigner) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(p.region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(p.user, p.password, "")),
	)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if p.endpoint != "" {
			o.BaseEndpoint = aws.String(p.endpoint)
		}
		o.UsePathStyle = true
	})

	p.client = newS3PresignClient(client)
	return p.client, nil
}

func (p *S3Presigner) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	pc, err := p.presignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
