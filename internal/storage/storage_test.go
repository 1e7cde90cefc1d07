package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	cases := []struct {
		raw  string
		want Target
	}{
		{"data/results", Target{Scheme: "file", Path: "data/results"}},
		{"file:///tmp/out", Target{Scheme: "file", Path: filepath.FromSlash("/tmp/out")}},
		{"s3://reports", Target{Scheme: "s3", Bucket: "reports"}},
		{"s3://reports/daily/2024/", Target{Scheme: "s3", Bucket: "reports", Path: "daily/2024"}},
	}
	for _, tc := range cases {
		got, err := ParseTarget(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	for _, raw := range []string{"", "ftp://host/dir", "s3:///prefix"} {
		_, err := ParseTarget(raw)
		assert.ErrorIs(t, err, ErrUnsupportedTarget, raw)
	}
}

func TestWriteFileAtomicCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.json")
	require.NoError(t, WriteFileAtomic(path, []byte("first")))
	require.NoError(t, WriteFileAtomic(path, []byte("second")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFileAtomicFailsOnDirectory(t *testing.T) {
	dir := t.TempDir()
	require.Error(t, WriteFileAtomic(dir, []byte("x")))
}

func TestFSSink(t *testing.T) {
	dir := t.TempDir()
	sink, err := Open(context.Background(), Target{Scheme: "file", Path: dir}, S3Config{})
	require.NoError(t, err)

	require.NoError(t, sink.Put(context.Background(), "result.xml", []byte("<result/>"), "application/xml"))
	assert.Equal(t, filepath.Join(dir, "result.xml"), sink.Location("result.xml"))

	got, err := os.ReadFile(filepath.Join(dir, "result.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<result/>", string(got))
}

// fakeS3 serves PutObject and remembers what it received.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	status  int
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != 0 {
		return &http.Response{StatusCode: f.status, Body: io.NopCloser(strings.NewReader("<Error><Code>AccessDenied</Code></Error>")), Header: http.Header{"Content-Type": {"application/xml"}}}, nil
	}
	if req.Method != http.MethodPut {
		return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	body, _ := io.ReadAll(req.Body)
	if dec, ok := decodeChunked(body); ok {
		body = dec
	}
	key := strings.TrimPrefix(req.URL.Path, "/")
	f.objects[key] = body
	f.types[key] = req.Header.Get("Content-Type")
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {"\"etag\""}}}, nil
}

func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	n, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || n <= 0 || int64(len(parts[1])) != n || parts[2] != "0" {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newFakeS3Sink(t *testing.T, rt *fakeS3, prefix string) *S3 {
	t.Helper()
	sink, err := NewS3(context.Background(), S3Config{
		Bucket:          "reports",
		Prefix:          prefix,
		Region:          "eu-central-1",
		Endpoint:        "http://mock.s3.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: rt},
	})
	require.NoError(t, err)
	return sink
}

func TestS3SinkUploadsUnderPrefix(t *testing.T) {
	rt := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	sink := newFakeS3Sink(t, rt, "daily")

	data := []byte(`{"occupancy": []}`)
	require.NoError(t, sink.Put(context.Background(), "result.json", data, "application/json"))

	assert.Equal(t, data, rt.objects["reports/daily/result.json"])
	assert.Equal(t, "application/json", rt.types["reports/daily/result.json"])
	assert.Equal(t, "s3://reports/daily/result.json", sink.Location("result.json"))
}

func TestS3SinkReportsFailure(t *testing.T) {
	rt := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}, status: http.StatusForbidden}
	sink := newFakeS3Sink(t, rt, "")

	err := sink.Put(context.Background(), "result.json", []byte("{}"), "application/json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://reports/result.json")
	assert.False(t, errors.Is(err, ErrUnsupportedTarget))
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{})
	require.Error(t, err)
}
