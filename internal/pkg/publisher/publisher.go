package publisher

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options for the minio based publisher
type Options struct {
	URL     string
	User    string
	Key     string
	Secure  bool
	Bucket  string
	URLBase string
}

// Filer stores audio artifacts in object storage
type Filer struct {
	client  *minio.Client
	bucket  string
	urlBase string
}

// NewFiler creates object storage publisher, makes sure the bucket exists
func NewFiler(ctx context.Context, opts Options) (*Filer, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("no storage url")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("no bucket")
	}
	if opts.URLBase == "" {
		return nil, fmt.Errorf("no url base")
	}
	mc, err := minio.New(opts.URL, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.User, opts.Key, ""),
		Secure: opts.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("can't init storage client: %w", err)
	}
	res := &Filer{client: mc, bucket: opts.Bucket, urlBase: opts.URLBase}
	exists, err := mc.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("can't check bucket: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("can't create bucket: %w", err)
		}
		goapp.Log.Info().Str("bucket", opts.Bucket).Msg("bucket created")
	}
	return res, nil
}

// ObjectName returns storage key for a story's audio
func ObjectName(id string) string {
	return fmt.Sprintf("stories/%s/story-%s.mp3", id, id)
}

// Publish uploads audio bytes, returns a stable public URL
func (f *Filer) Publish(ctx context.Context, data []byte, id string) (string, error) {
	name := ObjectName(id)
	goapp.Log.Info().Str("ID", id).Str("object", name).Int("bytes", len(data)).Msg("publish audio")
	_, err := f.client.PutObject(ctx, f.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "audio/mpeg"})
	if err != nil {
		return "", fmt.Errorf("can't publish audio: %w", err)
	}
	res, err := url.JoinPath(f.urlBase, f.bucket, name)
	if err != nil {
		return "", fmt.Errorf("can't build url: %w", err)
	}
	return res, nil
}

// Remove deletes a story's audio object, used on story delete
func (f *Filer) Remove(ctx context.Context, id string) error {
	name := ObjectName(id)
	if err := f.client.RemoveObject(ctx, f.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("can't remove '%s': %w", name, err)
	}
	return nil
}
