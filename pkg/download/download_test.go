package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(t *testing.T) Options {
	opts := DefaultOptions()
	opts.UploadDir = t.TempDir()
	opts.MaxRetries = 2
	return opts
}

func TestDownloadEpisode(t *testing.T) {
	payload := []byte("fake mp3 bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(payload)
	}))
	defer server.Close()

	d := NewDownloader(testOptions(t))

	result, err := d.DownloadEpisode(context.Background(), server.URL+"/show/ep1.mp3", 42)
	require.NoError(t, err)
	assert.False(t, result.AlreadyExists)
	assert.Equal(t, int64(len(payload)), result.ContentLength)

	data, err := os.ReadFile(result.FilePath)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, filepath.Join(d.EpisodeDir(42), "audio.mp3"), result.FilePath)
}

func TestDownloadEpisodeSkipsExisting(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	d := NewDownloader(testOptions(t))
	url := server.URL + "/ep.mp3"

	first, err := d.DownloadEpisode(context.Background(), url, 7)
	require.NoError(t, err)
	assert.False(t, first.AlreadyExists)

	second, err := d.DownloadEpisode(context.Background(), url, 7)
	require.NoError(t, err)
	assert.True(t, second.AlreadyExists)
	assert.Equal(t, first.FilePath, second.FilePath)

	assert.Equal(t, int32(1), calls.Load(), "existing file must not be re-downloaded")
}

func TestDownloadEpisodeRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	d := NewDownloader(testOptions(t))

	result, err := d.DownloadEpisode(context.Background(), server.URL+"/ep.mp3", 9)
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.ContentLength)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDownloadEpisodeDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	d := NewDownloader(testOptions(t))

	_, err := d.DownloadEpisode(context.Background(), server.URL+"/gone.mp3", 3)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "404 is permanent, no retry")
}

func TestRemoveEpisodeAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	d := NewDownloader(testOptions(t))

	result, err := d.DownloadEpisode(context.Background(), server.URL+"/ep.mp3", 11)
	require.NoError(t, err)

	require.NoError(t, d.RemoveEpisodeAudio(11))
	_, err = os.Stat(result.FilePath)
	assert.True(t, os.IsNotExist(err))
}

func TestExtensionFromURL(t *testing.T) {
	assert.Equal(t, ".mp3", extensionFromURL("https://cdn.example.com/ep.mp3"))
	assert.Equal(t, ".m4a", extensionFromURL("https://cdn.example.com/ep.m4a?sig=abc"))
	assert.Equal(t, ".mp3", extensionFromURL("https://cdn.example.com/stream"))
	assert.Equal(t, ".mp3", extensionFromURL("https://cdn.example.com/file.exe"))
}
