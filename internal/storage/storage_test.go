package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-pipeline/internal/config"
)

// mockS3Client is a mock implementation of s3iface.S3API
type mockS3Client struct {
	s3iface.S3API
	getObjectWithContextFunc func(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	putObjectWithContextFunc func(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

func (m *mockS3Client) GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	return m.getObjectWithContextFunc(ctx, input, opts...)
}

func (m *mockS3Client) PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	return m.putObjectWithContextFunc(ctx, input, opts...)
}

func TestLocalStore_RoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key := "vesselA/year=2024/month=03/day=05/vesselA_2024run.parquet"
	require.NoError(t, store.Put(ctx, key, []byte("payload"), "application/octet-stream"))

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))

	assert.Equal(t, filepath.Join(store.Root(), filepath.FromSlash(key)), store.Location(key))
}

func TestLocalStore_Errors(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "missing.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyKey)

	err = store.Put(ctx, "../outside.csv", []byte("x"), "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestS3Store_Put(t *testing.T) {
	client := &mockS3Client{
		putObjectWithContextFunc: func(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
			require.Equal(t, "new-parquet-files", *input.Bucket)
			require.Equal(t, "vesselA/year=2024/month=03/day=05/a.parquet", *input.Key)
			require.Equal(t, "application/vnd.apache.parquet", *input.ContentType)
			body, err := io.ReadAll(input.Body)
			require.NoError(t, err)
			require.Equal(t, "PAR1", string(body))
			return &s3.PutObjectOutput{}, nil
		},
	}

	store := NewS3Store(client, "new-parquet-files")
	err := store.Put(context.Background(), "vesselA/year=2024/month=03/day=05/a.parquet", []byte("PAR1"), "application/vnd.apache.parquet")
	require.NoError(t, err)
	assert.Equal(t, "s3://new-parquet-files/k", store.Location("k"))
}

func TestS3Store_PutFailure(t *testing.T) {
	client := &mockS3Client{
		putObjectWithContextFunc: func(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
			return nil, assert.AnError
		},
	}

	err := NewS3Store(client, "b").Put(context.Background(), "k", []byte("x"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "s3://b/k")
}

func TestS3Store_Get(t *testing.T) {
	client := &mockS3Client{
		getObjectWithContextFunc: func(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
			if *input.Key == "missing.csv" {
				return nil, awserr.New(s3.ErrCodeNoSuchKey, "gone", nil)
			}
			return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString("Timestamp\n1707752941\n"))}, nil
		},
	}
	store := NewS3Store(client, "raw")

	rc, err := store.Get(context.Background(), "vesselA_run.csv")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Contains(t, string(body), "1707752941")

	_, err = store.Get(context.Background(), "missing.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestNewOpener_Local(t *testing.T) {
	root := t.TempDir()
	open, err := NewOpener(config.StorageConfig{Backend: config.BackendLocal, LocalRoot: root})
	require.NoError(t, err)

	store, err := open("incoming")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "incoming", "a.csv"), store.Location("a.csv"))

	_, err = NewOpener(config.StorageConfig{Backend: "ftp"})
	assert.ErrorIs(t, err, config.ErrInvalidBackend)
}

func TestNewOpener_LocalRejectsEscapingContainer(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "data")
	secret := filepath.Join(base, "secret")
	require.NoError(t, os.MkdirAll(secret, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(secret, "creds.csv"), []byte("SECRET"), 0644))

	open, err := NewOpener(config.StorageConfig{Backend: config.BackendLocal, LocalRoot: root})
	require.NoError(t, err)

	for _, container := range []string{"../secret", "raw/../../secret", secret, "/etc", `..\secret`} {
		t.Run(container, func(t *testing.T) {
			_, err := open(container)
			assert.ErrorIs(t, err, ErrInvalidContainer)
		})
	}

	store, err := open("raw/2024")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "raw", "2024", "a.csv"), store.Location("a.csv"))
}
