// Package source opens NDJSON inputs for ingestion from local files or S3.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

var ErrInvalidURL = errors.New("invalid s3 url")

type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// IsS3 reports whether location names an S3 object.
func IsS3(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(location string) (bucket, key string, err error) {
	if !IsS3(location) {
		return "", "", fmt.Errorf("%w: %q has no %s prefix", ErrInvalidURL, location, s3Scheme)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(location, s3Scheme), "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q needs a bucket and a key", ErrInvalidURL, location)
	}
	return bucket, key, nil
}

// Open returns a reader over location. objects may be nil when only local
// paths are expected.
func Open(ctx context.Context, location string, objects ObjectGetter) (io.ReadCloser, error) {
	if !IsS3(location) {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", location, err)
		}
		return f, nil
	}

	bucket, key, err := ParseS3URL(location)
	if err != nil {
		return nil, err
	}
	if objects == nil {
		return nil, fmt.Errorf("open %s: no s3 client configured", location)
	}
	out, err := objects.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", location, err)
	}
	return out.Body, nil
}
