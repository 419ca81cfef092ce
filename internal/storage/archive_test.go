package storage

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyboard/internal/config"
)

// fakeS3 accepts bucket checks, bucket creation and single part uploads
type fakeS3 struct {
	mu           sync.Mutex
	bucketExists bool
	created      bool
	objects      map[string][]byte
}

func (s *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// bucket-level calls arrive as "/exports/" as well as "/exports"
	path := strings.Trim(r.URL.Path, "/")
	parts := strings.SplitN(path, "/", 2)
	switch {
	case r.Method == http.MethodHead && len(parts) == 1:
		if !s.bucketExists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && len(parts) == 1:
		s.created = true
		s.bucketExists = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		s.objects[parts[1]] = body
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newArchive(t *testing.T, s3 *fakeS3) (*MinIOArchive, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(s3)
	t.Cleanup(srv.Close)

	cfg := config.ExportArchiveConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "exports",
		Region:    "us-east-1",
	}
	archive, err := NewMinIOArchive(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return archive, srv
}

func TestNewMinIOArchive_CreatesMissingBucket(t *testing.T) {
	s3 := &fakeS3{objects: map[string][]byte{}}
	newArchive(t, s3)
	assert.True(t, s3.created)

	existing := &fakeS3{bucketExists: true, objects: map[string][]byte{}}
	newArchive(t, existing)
	assert.False(t, existing.created)
}

func TestMinIOArchive_Store(t *testing.T) {
	s3 := &fakeS3{bucketExists: true, objects: map[string][]byte{}}
	archive, srv := newArchive(t, s3)
	archive.now = func() time.Time { return time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC) }

	link, err := archive.Store(context.Background(), "user-1", "My_Film_Storyboard.xlsx", []byte("xlsx-bytes"))
	require.NoError(t, err)

	require.Len(t, s3.objects, 1)
	for key, body := range s3.objects {
		assert.True(t, strings.HasPrefix(key, "exports/user-1/2026-10-18/"), key)
		assert.True(t, strings.HasSuffix(key, "-My_Film_Storyboard.xlsx"), key)
		assert.Contains(t, string(body), "xlsx-bytes")
	}

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), u.Host)
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Contains(t, u.Query().Get("response-content-disposition"), "My_Film_Storyboard.xlsx")
}

func TestObjectNameStripsDirectories(t *testing.T) {
	a := &MinIOArchive{now: time.Now}
	name := a.objectName("u", "../../etc/passwd")
	assert.True(t, strings.HasPrefix(name, "exports/u/"))
	assert.True(t, strings.HasSuffix(name, "-passwd"))
	assert.NotContains(t, name, "..")
}
