package publish

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const jsonContentType = "application/json"

// ObjectClient is the part of *minio.Client the bucket sink uses.
type ObjectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// BucketOptions configures NewObjectClient and Bucket.
type BucketOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Name      string
	Prefix    string
	UseSSL    bool
	Timeout   time.Duration
}

// NewObjectClient creates a minio client for opts. The endpoint may carry
// an http:// or https:// scheme.
func NewObjectClient(opts BucketOptions) (*minio.Client, error) {
	endpoint := strings.TrimPrefix(opts.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:    opts.UseSSL,
		Region:    opts.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, eris.Wrap(err, "publish: create object client")
	}
	return client, nil
}

// Bucket uploads artifact files to object storage.
type Bucket struct {
	client ObjectClient
	name   string
	prefix string
	region string
}

// NewBucket creates a bucket sink.
func NewBucket(client ObjectClient, opts BucketOptions) *Bucket {
	return &Bucket{
		client: client,
		name:   opts.Name,
		prefix: strings.Trim(opts.Prefix, "/"),
		region: opts.Region,
	}
}

// ObjectName returns the key a local file is uploaded under.
func (b *Bucket) ObjectName(file string) string {
	return path.Join(b.prefix, filepath.Base(file))
}

// Upload creates the bucket when missing and uploads each file as JSON.
// Files that do not exist are skipped with a warning. It returns the keys
// written.
func (b *Bucket) Upload(ctx context.Context, files ...string) ([]string, error) {
	log := zap.L().With(zap.String("component", "publish.bucket"), zap.String("bucket", b.name))

	exists, err := b.client.BucketExists(ctx, b.name)
	if err != nil {
		return nil, eris.Wrapf(err, "publish: check bucket %s", b.name)
	}
	if !exists {
		if err := b.client.MakeBucket(ctx, b.name, minio.MakeBucketOptions{Region: b.region}); err != nil {
			return nil, eris.Wrapf(err, "publish: create bucket %s", b.name)
		}
		log.Info("bucket created")
	}

	var keys []string
	for _, file := range files {
		key, err := b.put(ctx, file)
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("artifact missing, not uploaded", zap.String("file", file))
			continue
		}
		if err != nil {
			return keys, err
		}
		log.Info("artifact uploaded", zap.String("file", file), zap.String("key", key))
		keys = append(keys, key)
	}
	return keys, nil
}

func (b *Bucket) put(ctx context.Context, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return "", eris.Wrapf(err, "publish: stat %s", file)
	}

	key := b.ObjectName(file)
	if _, err := b.client.PutObject(ctx, b.name, key, f, info.Size(), minio.PutObjectOptions{
		ContentType: jsonContentType,
	}); err != nil {
		return "", eris.Wrapf(err, "publish: upload %s", key)
	}
	return key, nil
}
