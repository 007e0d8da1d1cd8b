package source

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
)

type fakeS3 struct {
	in   *s3.GetObjectInput
	body string
	err  error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(f.body))}, nil
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := ParseS3URL("s3://landing/2024/01/patients.ndjson")
	require.NoError(t, err)
	assert.Equal(t, "landing", bucket)
	assert.Equal(t, "2024/01/patients.ndjson", key)

	for _, bad := range []string{"s3://", "s3://landing", "s3://landing/", "s3:///key", "/tmp/x.ndjson"} {
		_, _, err := ParseS3URL(bad)
		assert.ErrorIs(t, err, ErrInvalidURL, bad)
	}
}

func TestOpen_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))

	rc, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(b))

	_, err = Open(context.Background(), filepath.Join(t.TempDir(), "missing.ndjson"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_S3(t *testing.T) {
	f := &fakeS3{body: "{\"id\":\"a1\"}\n"}
	rc, err := Open(context.Background(), "s3://landing/allergies.ndjson", f)
	require.NoError(t, err)
	defer rc.Close()

	assert.Equal(t, "landing", aws.ToString(f.in.Bucket))
	assert.Equal(t, "allergies.ndjson", aws.ToString(f.in.Key))
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "{\"id\":\"a1\"}\n", string(b))
}

func TestOpen_S3Errors(t *testing.T) {
	_, err := Open(context.Background(), "s3://landing/x.ndjson", nil)
	assert.Error(t, err)

	boom := errors.New("NoSuchKey")
	_, err = Open(context.Background(), "s3://landing/x.ndjson", &fakeS3{err: boom})
	assert.ErrorIs(t, err, boom)
}
