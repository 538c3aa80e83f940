// AngelaMos | 2026
// s3_test.go

package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/configurator-api/internal/config"
	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

type fakeObjects struct {
	puts    []*s3.PutObjectInput
	bodies  []string
	deletes []string
	err     error
}

func (f *fakeObjects) PutObject(
	_ context.Context,
	in *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(
	_ context.Context,
	in *s3.DeleteObjectInput,
	_ ...func(*s3.Options),
) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func testStore(client objectAPI) *S3Store {
	return newS3Store(client, config.StorageConfig{
		Bucket:         "assets",
		PublicBaseURL:  "https://cdn.example.com/",
		MaxUploadBytes: 16,
	})
}

func TestPutReturnsPublicURL(t *testing.T) {
	fake := &fakeObjects{}
	store := testStore(fake)

	url, err := store.Put(context.Background(), "themes/t1/logo.png", strings.NewReader("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/themes/t1/logo.png", url)

	require.Len(t, fake.puts, 1)
	assert.Equal(t, "assets", aws.ToString(fake.puts[0].Bucket))
	assert.Equal(t, "image/png", aws.ToString(fake.puts[0].ContentType))
	assert.Equal(t, "png-bytes", fake.bodies[0])
	assert.Len(t, fake.puts[0].Metadata["checksum-sha256"], 64)
}

func TestPutRejectsOversizedBody(t *testing.T) {
	fake := &fakeObjects{}
	store := testStore(fake)

	_, err := store.Put(context.Background(), "k", strings.NewReader(strings.Repeat("x", 17)), "image/png")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Empty(t, fake.puts)
}

func TestPutWrapsClientError(t *testing.T) {
	store := testStore(&fakeObjects{err: errors.New("access denied")})

	_, err := store.Put(context.Background(), "k", strings.NewReader("x"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestDisabledStore(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{Enabled: false})
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "k", strings.NewReader("x"), "image/png")
	assert.ErrorIs(t, err, core.ErrServerMisconfigured)
	assert.NoError(t, store.Delete(context.Background(), "k"))
}
