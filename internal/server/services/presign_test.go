package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/storekeeper/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubAWS(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignGetObject = origGet
	})
}

func newTestPresigner() *S3Presigner {
	return NewS3Presigner(&config.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "storefront",
	})
}

func TestS3Presigner_ClientOptions(t *testing.T) {
	stubAWS(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		require.NotNil(t, c)
		return &s3.PresignClient{}
	}

	var gotBucket, gotKey string
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotBucket, gotKey = aws.ToString(in.Bucket), aws.ToString(in.Key)
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		assert.Equal(t, 15*time.Minute, po.Expires)
		return &v4.PresignedHTTPRequest{URL: "http://127.0.0.1:9000/storefront/items/A?sig"}, nil
	}

	u, err := newTestPresigner().PresignGet(context.Background(), "items/A", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/storefront/items/A?sig", u)
	assert.Equal(t, "storefront", gotBucket)
	assert.Equal(t, "items/A", gotKey)

	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestS3Presigner_Errors(t *testing.T) {
	stubAWS(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err := newTestPresigner().PresignGet(context.Background(), "k", time.Minute)
	require.EqualError(t, err, "load-fail")

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client { return &s3.Client{} }
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-fail")
	}
	_, err = newTestPresigner().PresignGet(context.Background(), "k", time.Minute)
	require.EqualError(t, err, "presign-fail")
}

func TestS3Presigner_RealClient(t *testing.T) {
	u, err := newTestPresigner().PresignGet(context.Background(), "items/PWS-0001", 5*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "/storefront/items/PWS-0001")
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Contains(t, u, "X-Amz-Expires=300")
}

func TestS3Presigner_ClientReused(t *testing.T) {
	stubAWS(t)

	loads := 0
	fail := true
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		loads++
		if fail {
			return aws.Config{}, errors.New("load-fail")
		}
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client { return &s3.Client{} }
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "u/" + aws.ToString(in.Key)}, nil
	}

	p := newTestPresigner()
	ctx := context.Background()

	_, err := p.PresignGet(ctx, "a", time.Minute)
	require.Error(t, err)

	fail = false
	for _, key := range []string{"a", "b", "c"} {
		u, err := p.PresignGet(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "u/"+key, u)
	}
	assert.Equal(t, 2, loads)
}
