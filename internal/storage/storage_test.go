package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

type fakeObjects struct {
	objects map[string][]byte
	calls   []string
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.calls = append(f.calls, key)
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func uploads(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), pngHeader, 0o644))
	return dir
}

func TestLoader_LocalFile(t *testing.T) {
	loader := storage.New(uploads(t), config.Storage{}, zaptest.NewLogger(t))

	for _, ref := range []string{"logo.png", "/uploads/logo.png", "uploads/logo.png"} {
		t.Run(ref, func(t *testing.T) {
			asset, err := loader.Load(context.Background(), ref)
			require.NoError(t, err)
			assert.Equal(t, "image/png", asset.MIME)
			assert.Equal(t, pngHeader, asset.Data)
		})
	}
}

func TestLoader_RejectsBadReferences(t *testing.T) {
	loader := storage.New(uploads(t), config.Storage{}, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := loader.Load(ctx, "  ")
	assert.ErrorIs(t, err, storage.ErrNoAsset)

	_, err = loader.Load(ctx, "/uploads/")
	assert.ErrorIs(t, err, storage.ErrOutsideUploads)

	_, err = loader.Load(ctx, "missing.png")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = loader.Load(ctx, "s3://bucket-only")
	assert.Error(t, err)
}

func TestLoader_TraversalStaysInsideUploads(t *testing.T) {
	dir := uploads(t)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(dir), "secret.png"), pngHeader, 0o644))
	loader := storage.New(dir, config.Storage{}, zaptest.NewLogger(t))

	_, err := loader.Load(context.Background(), "../secret.png")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoader_S3Object(t *testing.T) {
	objects := &fakeObjects{objects: map[string][]byte{"branding/acme/logo.png": pngHeader}}
	loader := storage.New(t.TempDir(), config.Storage{S3Region: "us-east-1"}, zaptest.NewLogger(t), storage.WithObjectGetter(objects))

	asset, err := loader.Load(context.Background(), "s3://branding/acme/logo.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", asset.MIME)
	assert.Equal(t, []string{"branding/acme/logo.png"}, objects.calls)

	_, err = loader.Load(context.Background(), "s3://branding/missing.png")
	assert.Error(t, err)
}

func TestLoader_SizeLimit(t *testing.T) {
	objects := &fakeObjects{objects: map[string][]byte{"b/big": make([]byte, 5<<20+1)}}
	loader := storage.New(t.TempDir(), config.Storage{}, zaptest.NewLogger(t), storage.WithObjectGetter(objects))

	_, err := loader.Load(context.Background(), "s3://b/big")
	assert.ErrorIs(t, err, storage.ErrTooLarge)
}
