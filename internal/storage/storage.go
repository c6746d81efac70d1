// Package storage resolves branding assets such as the company logo from the
// local uploads directory or from S3 compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/config"
)

// Module wires the asset loader.
var Module = fx.Provide(NewLoader)

const (
	s3Scheme = "s3://"
	maxAsset = 5 << 20
)

var (
	// ErrNoAsset is returned for an empty reference.
	ErrNoAsset = errors.New("asset reference is empty")
	// ErrOutsideUploads is returned when a local reference escapes the uploads directory.
	ErrOutsideUploads = errors.New("asset path escapes uploads directory")
	// ErrTooLarge is returned when an asset exceeds the size limit.
	ErrTooLarge = errors.New("asset exceeds size limit")
)

// Asset is a loaded file and its sniffed content type.
type Asset struct {
	Data []byte
	MIME string
}

// ObjectGetter is the subset of the S3 client used for downloads.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Option configures a Loader.
type Option func(*Loader)

// WithObjectGetter replaces the lazily built S3 client.
func WithObjectGetter(client ObjectGetter) Option {
	return func(l *Loader) {
		l.client = client
	}
}

// Loader reads assets by reference.
type Loader struct {
	uploadsDir string
	cfg        config.Storage
	logger     *zap.Logger

	mu     sync.Mutex
	client ObjectGetter
}

// NewLoader builds a Loader from configuration. The S3 client is created on first use.
func NewLoader(cfg config.Config, logger *zap.Logger) *Loader {
	return New(cfg.Invoice.UploadsDir, cfg.Storage, logger)
}

// New returns a Loader rooted at uploadsDir.
func New(uploadsDir string, cfg config.Storage, logger *zap.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{uploadsDir: uploadsDir, cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches the asset named by ref. References of the form s3://bucket/key
// are downloaded from object storage; anything else is a path inside the
// uploads directory.
func (l *Loader) Load(ctx context.Context, ref string) (*Asset, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNoAsset
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(ref, s3Scheme) {
		data, err = l.loadObject(ctx, strings.TrimPrefix(ref, s3Scheme))
	} else {
		data, err = l.loadFile(ref)
	}
	if err != nil {
		return nil, err
	}
	return &Asset{Data: data, MIME: http.DetectContentType(data)}, nil
}

func (l *Loader) loadFile(ref string) ([]byte, error) {
	path, err := l.localPath(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()
	return readLimited(f)
}

// localPath maps a stored reference such as /uploads/logo.png onto the
// uploads directory.
func (l *Loader) localPath(ref string) (string, error) {
	rel := strings.TrimLeft(filepath.ToSlash(filepath.Clean("/"+ref)), "/")
	base := filepath.Base(l.uploadsDir)
	if rel == base {
		rel = ""
	}
	rel = strings.TrimPrefix(rel, base+"/")

	root, err := filepath.Abs(l.uploadsDir)
	if err != nil {
		return "", fmt.Errorf("resolve uploads dir: %w", err)
	}
	path := filepath.Join(root, filepath.FromSlash(rel))
	if within, err := filepath.Rel(root, path); err != nil || within == "." || strings.HasPrefix(within, "..") {
		return "", ErrOutsideUploads
	}
	return path, nil
}

func (l *Loader) loadObject(ctx context.Context, location string) ([]byte, error) {
	bucket, key, ok := strings.Cut(location, "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("invalid object reference %q", s3Scheme+location)
	}
	client, err := l.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return readLimited(out.Body)
}

func (l *Loader) s3Client(ctx context.Context) (ObjectGetter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client != nil {
		return l.client, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(l.cfg.S3Region)}
	if l.cfg.S3AccessKey != "" && l.cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(l.cfg.S3AccessKey, l.cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	l.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = l.cfg.S3UsePathStyle
		if l.cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(l.cfg.S3Endpoint)
		}
	})
	l.logger.Debug("s3 client initialised", zap.String("region", l.cfg.S3Region), zap.String("endpoint", l.cfg.S3Endpoint))
	return l.client, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxAsset+1))
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	if len(data) > maxAsset {
		return nil, ErrTooLarge
	}
	return data, nil
}
