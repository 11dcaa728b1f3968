package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// BucketTarget describes an S3 bucket and the credentials to reach it.
// Endpoint is optional and selects an S3-compatible store.
type BucketTarget struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket_name"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint,omitempty"`
}

// Validate checks the target before any client is created
func (t BucketTarget) Validate() error {
	if t.Bucket == "" {
		return &ValidationError{Target: "bucket", Message: "bucket name is required"}
	}
	if t.AccessKey == "" || t.SecretKey == "" {
		return &ValidationError{Target: t.Bucket, Message: "access key and secret key are required"}
	}
	return nil
}

// S3Store implements ObjectStore with the AWS SDK
type S3Store struct {
	client *s3.Client
}

// NewS3Store creates a client using the target's static credentials
func NewS3Store(ctx context.Context, target BucketTarget) (*S3Store, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	region := target.Region
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			target.AccessKey,
			target.SecretKey,
			"",
		)),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, &ConnectionError{Backend: "object store", Err: fmt.Errorf("failed to load AWS configuration: %w", err)}
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if target.Endpoint != "" {
			o.BaseEndpoint = aws.String(target.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client}, nil
}

// OpenBucket creates an S3 client for target and wraps it in a source
func OpenBucket(ctx context.Context, target BucketTarget) (*Bucket, error) {
	store, err := NewS3Store(ctx, target)
	if err != nil {
		return nil, err
	}
	return NewBucket(store, target.Bucket), nil
}

func (s *S3Store) List(ctx context.Context, bucket string, max int) ([]ObjectInfo, error) {
	output, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(int32(max)),
	})
	if err != nil {
		return nil, &ConnectionError{Backend: "object store", Err: describeS3Error(err)}
	}

	objects := make([]ObjectInfo, 0, len(output.Contents))
	for _, obj := range output.Contents {
		objects = append(objects, ObjectInfo{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
		})
	}

	return objects, nil
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, describeS3Error(err)
	}
	defer output.Body.Close()

	body, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return body, nil
}

// describeS3Error turns SDK errors into short messages suitable for users
func describeS3Error(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.ErrorCode() {
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "InvalidToken", "ExpiredToken":
		return errors.New("invalid AWS credentials")
	case "NoSuchBucket":
		return errors.New("bucket does not exist")
	case "AccessDenied":
		return errors.New("access denied")
	default:
		return fmt.Errorf("AWS error: %s", apiErr.ErrorMessage())
	}
}
