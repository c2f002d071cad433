package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ErrUnsupportedTarget is returned for target URLs with an unknown scheme.
var ErrUnsupportedTarget = errors.New("unsupported storage target")

// BlobStore is where run artifacts are written and read back.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Location renders key as a user-facing path or URL.
	Location(key string) string
}

// Open resolves a target to a store: s3://bucket/prefix selects S3 and
// anything without a scheme is a local directory. awsCfg is only called for
// S3 targets.
func Open(target string, awsCfg func() (aws.Config, error)) (BlobStore, error) {
	if !strings.Contains(target, "://") {
		return NewLocalStore(target), nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target %q: %w", target, err)
	}
	switch u.Scheme {
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("%w: %q has no bucket", ErrUnsupportedTarget, target)
		}
		cfg, err := awsCfg()
		if err != nil {
			return nil, fmt.Errorf("aws config for %s: %w", target, err)
		}
		return NewS3Store(cfg, u.Host, strings.Trim(u.Path, "/")), nil
	case "file":
		return NewLocalStore(u.Path), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedTarget, u.Scheme)
}

// contentType picks a MIME type from the artifact extension.
func contentType(key string) string {
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".md":
		return "text/markdown"
	}
	return "text/plain"
}
