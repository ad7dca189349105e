// Package source opens logger exports from a local path or an S3 object.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/JonMunkholm/hobo/internal/config"
)

// ErrInvalidURI is returned for an s3:// URI without a bucket or key.
var ErrInvalidURI = errors.New("invalid source uri")

// Location is a parsed source reference.
type Location struct {
	Bucket string // empty for local files
	Key    string // object key or local path
}

// IsS3 reports whether l names an S3 object.
func (l Location) IsS3() bool {
	return l.Bucket != ""
}

// Name returns the base file name of l.
func (l Location) Name() string {
	if l.IsS3() {
		return path.Base(l.Key)
	}
	return filepath.Base(l.Key)
}

// ParseURI parses "s3://bucket/key" or a local path.
func ParseURI(uri string) (Location, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		if uri == "" {
			return Location{}, fmt.Errorf("%w: empty path", ErrInvalidURI)
		}
		return Location{Key: uri}, nil
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return Location{}, fmt.Errorf("%w: %q, want s3://bucket/key", ErrInvalidURI, uri)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// Object is an opened export. Size is -1 when unknown.
type Object struct {
	Name string
	Size int64
	Body io.ReadCloser
}

// ObjectGetter is the S3 call the Opener needs. *s3.Client implements it.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opener opens sources. The S3 client is built on first use.
type Opener struct {
	cfg config.StorageConfig

	once   sync.Once
	client ObjectGetter
	err    error
}

// NewOpener returns an Opener using cfg for S3 access.
func NewOpener(cfg config.StorageConfig) *Opener {
	return &Opener{cfg: cfg}
}

// NewOpenerWithClient returns an Opener that reads S3 objects through c.
func NewOpenerWithClient(c ObjectGetter) *Opener {
	o := &Opener{client: c}
	o.once.Do(func() {})
	return o
}

// Open opens uri for reading. The caller closes Body.
func (o *Opener) Open(ctx context.Context, uri string) (*Object, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if !loc.IsS3() {
		return openLocal(loc)
	}

	client, err := o.s3Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", uri, err)
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", uri, err)
	}
	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return &Object{Name: loc.Name(), Size: size, Body: out.Body}, nil
}

func openLocal(loc Location) (*Object, error) {
	f, err := os.Open(loc.Key)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", loc.Key, err)
	}
	size := int64(-1)
	if st, err := f.Stat(); err == nil {
		size = st.Size()
	}
	return &Object{Name: loc.Name(), Size: size, Body: f}, nil
}

func (o *Opener) s3Client(ctx context.Context) (ObjectGetter, error) {
	o.once.Do(func() {
		o.client, o.err = newS3Client(ctx, o.cfg)
	})
	return o.client, o.err
}

// newS3Client builds a client from cfg. Static credentials and a custom
// endpoint are used when configured, for MinIO and other S3-compatible
// stores. Otherwise the default AWS credential chain applies.
func newS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}
