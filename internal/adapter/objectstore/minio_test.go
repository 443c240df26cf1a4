package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMinio struct {
	bucketExists    bool
	bucketExistsErr error
	makeBucketErr   error
	made            bool
	policy          string

	putErr  error
	putKey  string
	putType string
	putData []byte
}

func (f *fakeMinio) BucketExists(context.Context, string) (bool, error) {
	return f.bucketExists, f.bucketExistsErr
}

func (f *fakeMinio) MakeBucket(context.Context, string, minio.MakeBucketOptions) error {
	f.made = true
	return f.makeBucketErr
}

func (f *fakeMinio) SetBucketPolicy(_ context.Context, _ string, policy string) error {
	f.policy = policy
	return nil
}

func (f *fakeMinio) PutObject(
	_ context.Context, _ string, key string, r io.Reader, _ int64, opts minio.PutObjectOptions,
) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.putKey, f.putType, f.putData = key, opts.ContentType, data
	return minio.UploadInfo{Key: key, Size: int64(len(data))}, nil
}

func TestNewClientWithAPI(t *testing.T) {
	t.Run("BucketExists", func(t *testing.T) {
		api := &fakeMinio{bucketExists: true}
		c, err := NewClientWithAPI(t.Context(), api, "images")
		require.NoError(t, err)
		assert.Equal(t, "images", c.bucket)
		assert.False(t, api.made)
	})

	t.Run("CreatesPublicBucket", func(t *testing.T) {
		api := &fakeMinio{}
		_, err := NewClientWithAPI(t.Context(), api, "images")
		require.NoError(t, err)
		assert.True(t, api.made)
		assert.Contains(t, api.policy, "arn:aws:s3:::images/*")
	})

	t.Run("Errors", func(t *testing.T) {
		_, err := NewClientWithAPI(t.Context(), &fakeMinio{bucketExistsErr: errors.New("down")}, "images")
		require.Error(t, err)

		_, err = NewClientWithAPI(t.Context(), &fakeMinio{makeBucketErr: errors.New("denied")}, "images")
		require.Error(t, err)

		_, err = NewClientWithAPI(t.Context(), &fakeMinio{}, "")
		require.Error(t, err)
	})
}

func TestClientPutImage(t *testing.T) {
	api := &fakeMinio{bucketExists: true}
	c, err := NewClientWithAPI(t.Context(), api, "images")
	require.NoError(t, err)

	err = c.PutImage(t.Context(), "products/p1/front.jpg", "image/jpeg", bytes.NewReader([]byte("jpeg")), 4)
	require.NoError(t, err)
	assert.Equal(t, "products/p1/front.jpg", api.putKey)
	assert.Equal(t, "image/jpeg", api.putType)
	assert.Equal(t, []byte("jpeg"), api.putData)

	api.putErr = errors.New("quota")
	err = c.PutImage(t.Context(), "products/p1/side.jpg", "image/jpeg", bytes.NewReader(nil), 0)
	require.Error(t, err)
}
