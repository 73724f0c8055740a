package download

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Options configures the download behavior
type Options struct {
	UploadDir     string        // Root directory for downloaded episode audio
	MaxSize       int64         // Maximum file size in bytes (0 = no limit)
	Timeout       time.Duration // Download timeout
	ProgressFunc  ProgressFunc  // Optional progress callback
	UserAgent     string        // User agent string
	ValidateAudio bool          // Validate content-type is audio
	MaxRetries    uint64        // Retries for transient failures
}

// ProgressFunc is called during download to report progress
type ProgressFunc func(downloaded, total int64)

// DefaultOptions returns default download options
func DefaultOptions() Options {
	return Options{
		UploadDir:     "./data/uploads",
		MaxSize:       500 * 1024 * 1024, // 500MB default max
		Timeout:       10 * time.Minute,
		UserAgent:     "PodscribeAPI/1.0",
		ValidateAudio: true,
		MaxRetries:    3,
	}
}

// Result contains information about a successful download
type Result struct {
	FilePath      string // Path to downloaded file
	ContentType   string // Content-Type from response
	ContentLength int64  // Size in bytes
	AlreadyExists bool   // True if the file was downloaded by a previous run
}

// Downloader fetches episode audio into persistent per-episode storage
type Downloader struct {
	client  *http.Client
	options Options
}

// NewDownloader creates a new downloader with the given options
func NewDownloader(options Options) *Downloader {
	defaults := DefaultOptions()
	if options.Timeout <= 0 {
		options.Timeout = defaults.Timeout
	}
	if options.UserAgent == "" {
		options.UserAgent = defaults.UserAgent
	}
	return &Downloader{
		client: &http.Client{
			Timeout: options.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  true, // Don't compress audio
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		options: options,
	}
}

// EpisodeDir returns the storage directory for one episode's audio
func (d *Downloader) EpisodeDir(episodeID uint) string {
	return filepath.Join(d.options.UploadDir, fmt.Sprintf("episode_%d", episodeID))
}

// DownloadEpisode fetches the episode audio to its persistent location.
// If the target file already exists the download is skipped, which is what
// makes a re-run of the pipeline resume past the download stage. Transient
// HTTP failures are retried with exponential backoff.
func (d *Downloader) DownloadEpisode(ctx context.Context, url string, episodeID uint) (*Result, error) {
	targetPath := filepath.Join(d.EpisodeDir(episodeID), "audio"+extensionFromURL(url))

	if info, err := os.Stat(targetPath); err == nil && info.Size() > 0 {
		log.Printf("[DEBUG] Audio for episode %d already downloaded at %s, skipping", episodeID, targetPath)
		return &Result{
			FilePath:      targetPath,
			ContentLength: info.Size(),
			AlreadyExists: true,
		}, nil
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create episode directory: %w", err)
	}

	var result *Result
	operation := func() error {
		r, err := d.downloadOnce(ctx, url, targetPath, episodeID)
		if err != nil {
			return err
		}
		result = r
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.options.MaxRetries),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		log.Printf("[WARN] Download of %s failed, retrying in %s: %v", url, wait, err)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}

	return result, nil
}

// downloadOnce performs a single download attempt, writing to a temp file
// first so a partial download never lands at the target path
func (d *Downloader) downloadOnce(ctx context.Context, url, targetPath string, episodeID uint) (*Result, error) {
	log.Printf("[DEBUG] Starting download from %s for episode %d", url, episodeID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", d.options.UserAgent)
	req.Header.Set("Accept", "audio/*,*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		err := fmt.Errorf("server returned status %d", resp.StatusCode)
		// Client errors won't heal on retry
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if d.options.ValidateAudio && !isAudioContentType(contentType) {
		return nil, backoff.Permanent(fmt.Errorf("invalid content type: %s", contentType))
	}

	contentLength := resp.ContentLength
	if d.options.MaxSize > 0 && contentLength > d.options.MaxSize {
		return nil, backoff.Permanent(fmt.Errorf("file too large: %d bytes (max %d)", contentLength, d.options.MaxSize))
	}

	tempPath := targetPath + ".partial"
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create temp file: %w", err))
	}

	written, err := d.downloadToFile(resp.Body, tempFile, contentLength)
	closeErr := tempFile.Close()

	if err != nil || closeErr != nil {
		os.Remove(tempPath)
		if err == nil {
			err = closeErr
		}
		return nil, fmt.Errorf("failed to download: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		os.Remove(tempPath)
		return nil, backoff.Permanent(fmt.Errorf("failed to move download into place: %w", err))
	}

	log.Printf("[DEBUG] Downloaded %d bytes to %s", written, targetPath)

	return &Result{
		FilePath:      targetPath,
		ContentType:   contentType,
		ContentLength: written,
	}, nil
}

// downloadToFile downloads response body to file with optional progress tracking
func (d *Downloader) downloadToFile(src io.Reader, dst *os.File, totalSize int64) (int64, error) {
	reader := src
	if d.options.ProgressFunc != nil && totalSize > 0 {
		reader = &progressReader{
			reader:   src,
			total:    totalSize,
			callback: d.options.ProgressFunc,
		}
	}

	if d.options.MaxSize > 0 {
		reader = &io.LimitedReader{
			R: reader,
			N: d.options.MaxSize,
		}
	}

	return io.Copy(dst, reader)
}

// RemoveEpisodeAudio deletes an episode's downloaded audio directory,
// used by cancellation cleanup when this run created the download
func (d *Downloader) RemoveEpisodeAudio(episodeID uint) error {
	dir := d.EpisodeDir(episodeID)
	log.Printf("[DEBUG] Removing episode audio directory: %s", dir)
	return os.RemoveAll(dir)
}

// CleanupStalePartials removes .partial files older than the specified duration
func CleanupStalePartials(uploadDir string, maxAge time.Duration) error {
	pattern := filepath.Join(uploadDir, "episode_*", "*.partial")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int

	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		log.Printf("[DEBUG] Cleaned up %d stale partial downloads", removed)
	}

	return nil
}

// extensionFromURL extracts a usable audio extension from a media URL
func extensionFromURL(url string) string {
	ext := ".mp3" // default
	if parts := strings.Split(url, "."); len(parts) > 1 {
		lastPart := parts[len(parts)-1]
		// Remove query params if present
		if idx := strings.Index(lastPart, "?"); idx > 0 {
			lastPart = lastPart[:idx]
		}
		if isValidAudioExtension(lastPart) {
			ext = "." + lastPart
		}
	}
	return ext
}

// isAudioContentType checks if content type is audio
func isAudioContentType(contentType string) bool {
	if contentType == "" {
		return true // Some servers don't send content-type
	}

	contentType = strings.ToLower(contentType)
	return strings.HasPrefix(contentType, "audio/") ||
		contentType == "application/octet-stream" ||
		contentType == "binary/octet-stream"
}

// isValidAudioExtension checks if the extension is a known audio format
func isValidAudioExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case "mp3", "m4a", "aac", "ogg", "opus", "wav", "flac":
		return true
	}
	return false
}

// progressReader wraps a reader to report download progress
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	callback   ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.downloaded += int64(n)
		r.callback(r.downloaded, r.total)
	}
	return n, err
}
