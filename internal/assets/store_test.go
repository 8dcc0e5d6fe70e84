package assets

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap/zaptest"
)

type fakeClient struct {
	buckets map[string]bool
	objects map[string]string
	types   map[string]string
	putErr  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{buckets: map[string]bool{}, objects: map[string]string{}, types: map[string]string{}}
}

func (f *fakeClient) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeClient) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeClient) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[key] = string(data)
	f.types[key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: int64(len(data))}, nil
}

func (f *fakeClient) PresignedGetObject(_ context.Context, bucket, key string, expiry time.Duration, _ url.Values) (*url.URL, error) {
	return url.Parse("https://assets.example.com/" + bucket + "/" + key + "?expires=" + expiry.String())
}

func (f *fakeClient) RemoveObject(_ context.Context, _ string, key string, _ minio.RemoveObjectOptions) error {
	delete(f.objects, key)
	return nil
}

func TestEnsureBucketCreatesOnce(t *testing.T) {
	client := newFakeClient()
	s := newStore(client, "atomdeck-assets", zaptest.NewLogger(t))
	if err := s.ensureBucket(context.Background()); err != nil {
		t.Fatalf("ensureBucket() error = %v", err)
	}
	if !client.buckets["atomdeck-assets"] {
		t.Fatal("bucket was not created")
	}
	if err := s.ensureBucket(context.Background()); err != nil {
		t.Fatalf("ensureBucket() second call error = %v", err)
	}
}

func TestUploadStoresAndPresigns(t *testing.T) {
	client := newFakeClient()
	s := newStore(client, "atomdeck-assets", zaptest.NewLogger(t))

	asset, err := s.Upload(context.Background(), "pres_1", "image/png; charset=binary", strings.NewReader("png-bytes"), 9)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(asset.Key, "presentations/pres_1/asset-") || !strings.HasSuffix(asset.Key, ".png") {
		t.Fatalf("unexpected key %q", asset.Key)
	}
	if client.objects[asset.Key] != "png-bytes" || client.types[asset.Key] != "image/png" {
		t.Fatalf("object not stored as expected: %q %q", client.objects[asset.Key], client.types[asset.Key])
	}
	if asset.Size != 9 || !strings.Contains(asset.URL, asset.Key) {
		t.Fatalf("unexpected asset: %+v", asset)
	}

	if err := s.Delete(context.Background(), asset.Key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := client.objects[asset.Key]; ok {
		t.Fatal("object still present after delete")
	}
}

func TestUploadRejects(t *testing.T) {
	s := newStore(newFakeClient(), "b", nil)
	ctx := context.Background()

	if _, err := s.Upload(ctx, "pres_1", "text/html", strings.NewReader("<p>"), 3); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Upload(text/html) error = %v", err)
	}
	if _, err := s.Upload(ctx, "pres_1", "", strings.NewReader("x"), 1); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Upload(no type) error = %v", err)
	}
	if _, err := s.Upload(ctx, "pres_1", "image/png", strings.NewReader(""), 0); !errors.Is(err, ErrEmptyUpload) {
		t.Fatalf("Upload(empty) error = %v", err)
	}
	if _, err := s.Upload(ctx, "pres_1", "video/mp4", strings.NewReader("x"), MaxUploadBytes+1); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Upload(too large) error = %v", err)
	}
}

func TestUploadWrapsPutError(t *testing.T) {
	client := newFakeClient()
	client.putErr = errors.New("connection reset")
	s := newStore(client, "b", nil)
	if _, err := s.Upload(context.Background(), "", "audio/mpeg", strings.NewReader("x"), 1); err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("Upload() error = %v", err)
	}
}

func TestObjectKey(t *testing.T) {
	cases := map[string]string{
		"pres_1": "presentations/pres_1/a.png",
		"":       "presentations/shared/a.png",
		"../etc": "presentations/shared/a.png",
		"..":     "presentations/shared/a.png",
	}
	for in, want := range cases {
		if got := ObjectKey(in, "a", ".png"); got != want {
			t.Fatalf("ObjectKey(%q) = %q, want %q", in, got, want)
		}
	}
}
