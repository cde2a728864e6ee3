package export

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBucket struct {
	mu          sync.Mutex
	path        string
	contentType string
	body        []byte
	status      int
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.path = r.URL.Path
	f.contentType = r.Header.Get("Content-Type")
	f.body = body
	status := f.status
	f.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`<Error><Code>AccessDenied</Code><Message>denied</Message></Error>`))
		return
	}
	w.Header().Set("ETag", `"abc"`)
	w.WriteHeader(http.StatusOK)
}

func newTestS3Sharer(t *testing.T, endpoint, bucket string) *S3Sharer {
	t.Helper()
	sharer, err := NewS3Sharer(S3Config{
		Bucket:          bucket,
		Region:          "us-east-1",
		Endpoint:        endpoint,
		Prefix:          "recipes",
		ForcePathStyle:  true,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	}, zap.NewNop())
	require.NoError(t, err)
	sharer.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return sharer
}

func TestS3SharerUploads(t *testing.T) {
	bucket := &fakeBucket{status: http.StatusOK}
	server := httptest.NewServer(bucket)
	defer server.Close()

	sharer := newTestS3Sharer(t, server.URL, "dishes")
	require.True(t, sharer.CanShare(context.Background()))

	location, err := sharer.Share(context.Background(), "Kimchi Stew.png", []byte("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "/dishes/recipes/20260102-030405-Kimchi Stew.png", bucket.path)
	assert.Equal(t, "image/png", bucket.contentType)
	assert.Equal(t, []byte("png-bytes"), bucket.body)
	assert.Contains(t, location, "/dishes/recipes/20260102-030405-Kimchi")
}

func TestS3SharerFailure(t *testing.T) {
	bucket := &fakeBucket{status: http.StatusForbidden}
	server := httptest.NewServer(bucket)
	defer server.Close()

	sharer := newTestS3Sharer(t, server.URL, "dishes")
	_, err := sharer.Share(context.Background(), "a.png", []byte("x"))
	assert.Error(t, err)
}

func TestS3SharerDisabledWithoutBucket(t *testing.T) {
	sharer := newTestS3Sharer(t, "http://127.0.0.1:1", "")
	assert.False(t, sharer.CanShare(context.Background()))
}

func TestDirectorySharer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "saved")
	sharer := NewDirectorySharer(dir, zap.NewNop())
	ctx := context.Background()

	require.True(t, sharer.CanShare(ctx))

	first, err := sharer.Share(ctx, "Bibimbap.png", []byte("one"))
	require.NoError(t, err)
	second, err := sharer.Share(ctx, "Bibimbap.png", []byte("two"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Bibimbap.png"), first)
	assert.Equal(t, filepath.Join(dir, "Bibimbap (1).png"), second)

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)
}

func TestDirectorySharerDisabled(t *testing.T) {
	assert.False(t, NewDirectorySharer("", zap.NewNop()).CanShare(context.Background()))
}
