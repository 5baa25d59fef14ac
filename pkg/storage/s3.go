package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	awshttp "github.com/aws/smithy-go/transport/http"

	"github.com/ruslano69/tradesync/pkg/retry"
)

// S3Config describes the bucket the ledger lives in. Endpoint is for
// S3-compatible stores (MinIO and friends); empty uses AWS.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// Validate checks the configuration.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if c.Region == "" && c.Endpoint == "" {
		return fmt.Errorf("either region or endpoint is required")
	}
	return nil
}

// S3Client implements Client on an S3 bucket. Folders are key prefixes
// and object IDs are full keys. All operations are retried internally on
// transient failures; an error returned from a method is final.
type S3Client struct {
	api        *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucket     string
	retryer    *retry.Retryer
}

// NewS3Client builds a client. SDK-level retries are disabled; the
// package retryer owns the retry policy so transient exhaustion is
// observable by callers.
func NewS3Client(ctx context.Context, cfg S3Config, retryCfg retry.Config) (*S3Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid s3 config: %w", err)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMaxAttempts(1),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	retryCfg.RetryIf = IsTransient
	retryer, err := retry.NewRetryer(retryCfg)
	if err != nil {
		return nil, err
	}

	return &S3Client{
		api:        api,
		uploader:   manager.NewUploader(api),
		downloader: manager.NewDownloader(api),
		bucket:     cfg.Bucket,
		retryer:    retryer,
	}, nil
}

// FindFile resolves a name inside a prefix to its object key.
func (c *S3Client) FindFile(ctx context.Context, containerID, name string) (string, error) {
	key := joinKey(containerID, name)

	err := c.retryer.Do(ctx, func(ctx context.Context) error {
		_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		})
		return classify("find", err)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return key, nil
}

// EnsureFolder returns the prefix for a folder. S3 has no real folders,
// so nothing is created; the prefix springs into existence with its
// first object.
func (c *S3Client) EnsureFolder(ctx context.Context, parentID, name string) (string, error) {
	return joinKey(parentID, name) + "/", nil
}

// Download fetches an object's bytes.
func (c *S3Client) Download(ctx context.Context, id string) ([]byte, error) {
	var buf *manager.WriteAtBuffer

	err := c.retryer.Do(ctx, func(ctx context.Context) error {
		buf = manager.NewWriteAtBuffer(nil)
		_, err := c.downloader.Download(ctx, buf, &s3.GetObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(id),
		})
		return classify("download", err)
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Upload creates an object under a prefix and returns its key.
func (c *S3Client) Upload(ctx context.Context, containerID, name string, data []byte) (string, error) {
	key := joinKey(containerID, name)

	err := c.retryer.Do(ctx, func(ctx context.Context) error {
		_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		return classify("upload", err)
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// Update overwrites an existing object. In S3 this is the same PUT as
// Upload, addressed by the existing key.
func (c *S3Client) Update(ctx context.Context, id string, data []byte) error {
	return c.retryer.Do(ctx, func(ctx context.Context) error {
		_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(id),
			Body:   bytes.NewReader(data),
		})
		return classify("update", err)
	})
}

// ListBackups lists objects under containerID whose names start with
// prefix, newest first by last-modified time.
func (c *S3Client) ListBackups(ctx context.Context, containerID, prefix string) ([]BackupDescriptor, error) {
	keyPrefix := joinKey(containerID, prefix)

	var backups []BackupDescriptor
	err := c.retryer.Do(ctx, func(ctx context.Context) error {
		backups = backups[:0]
		paginator := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
			Bucket: aws.String(c.bucket),
			Prefix: aws.String(keyPrefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return classify("list", err)
			}
			for _, obj := range page.Contents {
				key := aws.ToString(obj.Key)
				if strings.HasSuffix(key, "/") {
					continue
				}
				backups = append(backups, BackupDescriptor{
					Name:      baseName(key),
					ID:        key,
					CreatedAt: aws.ToTime(obj.LastModified),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Delete removes an object.
func (c *S3Client) Delete(ctx context.Context, id string) error {
	return c.retryer.Do(ctx, func(ctx context.Context) error {
		_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(id),
		})
		return classify("delete", err)
	})
}

// classify maps an SDK error onto the package error taxonomy. Missing
// objects become ErrNotFound, 5xx and throttling and connection trouble
// become TransientError, everything else PermanentError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		switch {
		case status == 404:
			return ErrNotFound
		case status == 429 || status >= 500:
			return &TransientError{Op: op, Err: err}
		case status >= 400:
			return &PermanentError{Op: op, Err: err}
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return ErrNotFound
		case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable":
			return &TransientError{Op: op, Err: err}
		}
		return &PermanentError{Op: op, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransientError{Op: op, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Op: op, Err: err}
	}

	return &PermanentError{Op: op, Err: err}
}

func joinKey(prefix, name string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func baseName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
