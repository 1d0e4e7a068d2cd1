package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockObjectClient struct {
	mock.Mock
	bodies map[string]string
}

func (m *mockObjectClient) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *mockObjectClient) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

func (m *mockObjectClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, objectSize, opts.ContentType)
	body, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if m.bodies == nil {
		m.bodies = make(map[string]string)
	}
	m.bodies[objectName] = string(body)
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize}, args.Error(0)
}

func writeArtifact(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestBucketObjectName(t *testing.T) {
	b := NewBucket(nil, BucketOptions{Name: "tcgp", Prefix: "/data/latest/"})
	assert.Equal(t, "data/latest/cards.json", b.ObjectName("/tmp/out/cards.json"))

	b = NewBucket(nil, BucketOptions{Name: "tcgp"})
	assert.Equal(t, "sets.json", b.ObjectName("sets.json"))
}

func TestBucketUpload_CreatesBucket(t *testing.T) {
	dir := t.TempDir()
	sets := writeArtifact(t, dir, "sets.json", `[{"code":"A1"}]`)
	cards := writeArtifact(t, dir, "cards.json", `[]`)

	client := new(mockObjectClient)
	client.On("BucketExists", mock.Anything, "tcgp").Return(false, nil)
	client.On("MakeBucket", mock.Anything, "tcgp", minio.MakeBucketOptions{Region: "auto"}).Return(nil)
	client.On("PutObject", mock.Anything, "tcgp", "v1/sets.json", int64(15), "application/json").Return(nil)
	client.On("PutObject", mock.Anything, "tcgp", "v1/cards.json", int64(2), "application/json").Return(nil)

	b := NewBucket(client, BucketOptions{Name: "tcgp", Prefix: "v1", Region: "auto"})
	keys, err := b.Upload(context.Background(), sets, cards)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1/sets.json", "v1/cards.json"}, keys)
	assert.Equal(t, `[{"code":"A1"}]`, client.bodies["v1/sets.json"])
	client.AssertExpectations(t)
}

func TestBucketUpload_ExistingBucketSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	sets := writeArtifact(t, dir, "sets.json", `[]`)

	client := new(mockObjectClient)
	client.On("BucketExists", mock.Anything, "tcgp").Return(true, nil)
	client.On("PutObject", mock.Anything, "tcgp", "sets.json", int64(2), "application/json").Return(nil)

	b := NewBucket(client, BucketOptions{Name: "tcgp"})
	keys, err := b.Upload(context.Background(), sets, filepath.Join(dir, "catalog.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"sets.json"}, keys)
	client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	client.AssertExpectations(t)
}

func TestBucketUpload_PutError(t *testing.T) {
	dir := t.TempDir()
	sets := writeArtifact(t, dir, "sets.json", `[]`)

	client := new(mockObjectClient)
	client.On("BucketExists", mock.Anything, "tcgp").Return(true, nil)
	client.On("PutObject", mock.Anything, "tcgp", "sets.json", int64(2), "application/json").
		Return(fmt.Errorf("access denied"))

	b := NewBucket(client, BucketOptions{Name: "tcgp"})
	keys, err := b.Upload(context.Background(), sets)
	require.Error(t, err)
	assert.Empty(t, keys)
	assert.Contains(t, err.Error(), "upload sets.json")
}

func TestBucketUpload_ExistsError(t *testing.T) {
	client := new(mockObjectClient)
	client.On("BucketExists", mock.Anything, "tcgp").Return(false, fmt.Errorf("dial tcp: refused"))

	_, err := NewBucket(client, BucketOptions{Name: "tcgp"}).Upload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check bucket tcgp")
}

func TestNewObjectClient_StripsScheme(t *testing.T) {
	c, err := NewObjectClient(BucketOptions{
		Endpoint:  "http://localhost:9000",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", c.EndpointURL().Host)
}
