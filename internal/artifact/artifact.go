// Package artifact opens the model and dataset files named in the config.
// Plain paths are read from disk; s3://bucket/key paths are fetched from an
// S3-compatible object store.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const s3Scheme = "s3://"

// S3Options configures access to the object store. Empty credentials fall
// back to the default AWS credential chain.
type S3Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Opener struct {
	opts   S3Options
	client objectGetter
}

func NewOpener(opts S3Options) *Opener {
	return &Opener{opts: opts}
}

// Open returns the artifact contents. A missing file or object yields an
// error matching fs.ErrNotExist.
func (o *Opener) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if !IsS3(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	bucket, key, err := ParseS3URL(path)
	if err != nil {
		return nil, err
	}
	client, err := o.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return out.Body, nil
}

func (o *Opener) s3Client(ctx context.Context) (objectGetter, error) {
	if o.client != nil {
		return o.client, nil
	}

	var loadOpts []func(*config.LoadOptions) error
	if o.opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.opts.Region))
	}
	if o.opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.opts.AccessKey, o.opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(opt *s3.Options) {
		if o.opts.Endpoint != "" {
			opt.BaseEndpoint = aws.String(o.opts.Endpoint)
			opt.UsePathStyle = true
		}
	})
	o.client = client
	return client, nil
}

func IsS3(path string) bool {
	return strings.HasPrefix(path, s3Scheme)
}

// ParseS3URL splits s3://bucket/some/key into bucket and key.
func ParseS3URL(path string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(path, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 path %q", path)
	}
	return bucket, key, nil
}
