package downloader

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadIfMissing(t *testing.T) {
	content := []byte("not really a dataset, but enough bytes to download")
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_ = must.M1(w.Write(content))
	}))
	defer server.Close()

	filePath := path.Join(t.TempDir(), "cache", "file.bin")
	require.NoError(t, DownloadIfMissing(server.URL+"/file.bin", filePath, ""))
	assert.Equal(t, content, must.M1(os.ReadFile(filePath)))
	assert.Equal(t, 1, requests)

	// Already present: no new request.
	require.NoError(t, DownloadIfMissing(server.URL+"/file.bin", filePath, ""))
	assert.Equal(t, 1, requests)
}

func TestDownloadIfMissingChecksum(t *testing.T) {
	content := []byte("checksummed payload")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = must.M1(w.Write(content))
	}))
	defer server.Close()

	sum := sha256.Sum256(content)
	goodHash := hex.EncodeToString(sum[:])

	dir := t.TempDir()
	require.NoError(t, DownloadIfMissing(server.URL, path.Join(dir, "good.bin"), goodHash))
	assert.Error(t, DownloadIfMissing(server.URL, path.Join(dir, "bad.bin"),
		"0000000000000000000000000000000000000000000000000000000000000000"))
}

func TestDownloadCreatesDirectories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = must.M1(w.Write([]byte("x")))
	}))
	defer server.Close()

	filePath := path.Join(t.TempDir(), "a", "b", "c.bin")
	size, err := Download(server.URL, filePath, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
}
