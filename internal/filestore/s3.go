package filestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Bucket string
	Region string

	// Custom endpoint (minio, localstack). Empty means AWS itself
	Endpoint string

	// Static credentials, used only together with Endpoint
	// AWS default credential chain is used otherwise
	AccessKey string
	SecretKey string

	// Base of urls returned by Put. Derived from bucket and endpoint if empty
	PublicURL string
}

// Subset of s3 client the store needs
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3 struct {
	client  s3API
	bucket  string
	baseURL string
}

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket must not be empty")
	}

	var client *s3.Client

	if cfg.Endpoint != "" {
		client = s3.New(s3.Options{
			Region:       cfg.Region,
			Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
			BaseEndpoint: aws.String(cfg.Endpoint),
			UsePathStyle: true,
		})
	} else {
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("can't load aws config. Err: %w", err)
		}
		client = s3.NewFromConfig(awsCfg)
	}

	return newS3(client, cfg), nil
}

func newS3(client s3API, cfg S3Config) *S3 {
	baseURL := cfg.PublicURL
	switch {
	case baseURL != "":
	case cfg.Endpoint != "":
		baseURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
	}
}

func (s *S3) Put(ctx context.Context, upload Upload) (string, error) {
	key, contentType, err := objectName(upload.Filename)
	if err != nil {
		return "", err
	}

	// Content type follows the extension, client's one is not trusted
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        upload.Body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("can't put object to s3. Err: %w", err)
	}

	return s.baseURL + key, nil
}

func (s *S3) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL)
	if !ok || key == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("can't delete object from s3. Err: %w", err)
	}
	return nil
}
