package transcripts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podscribe/podscribe-api/pkg/ffmpeg"
)

// fakeToolkit plans against canned metadata and "extracts" chunks by
// writing small marker files
type fakeToolkit struct {
	metadata ffmpeg.AudioMetadata
}

func (f *fakeToolkit) GetMetadata(ctx context.Context, filePath string) (*ffmpeg.AudioMetadata, error) {
	m := f.metadata
	return &m, nil
}

func (f *fakeToolkit) ExtractChunk(ctx context.Context, inputPath, outputDir string, spec ffmpeg.ChunkSpec, opts ffmpeg.PlannerOptions) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, fmt.Sprintf("chunk_%03d.mp3", spec.Index))
	if err := os.WriteFile(path, []byte(fmt.Sprintf("chunk %d", spec.Index)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// fakeBackend transcribes a chunk file to a deterministic marker string,
// with optional random latency and failure injection
type fakeBackend struct {
	jitter  time.Duration
	failOn  string
	mu      sync.Mutex
	active  int
	maxSeen int
	calls   atomic.Int32
}

func (b *fakeBackend) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	b.mu.Lock()
	b.active++
	if b.active > b.maxSeen {
		b.maxSeen = b.active
	}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	}()

	b.calls.Add(1)

	if b.jitter > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(b.jitter))))
	}

	data, err := io.ReadAll(audio)
	if err != nil {
		return "", err
	}
	if b.failOn != "" && strings.Contains(filename, b.failOn) {
		return "", errors.New("backend rejected chunk")
	}
	return "text[" + string(data) + "]", nil
}

func testOptions() TranscriberOptions {
	return TranscriberOptions{
		Planner:     ffmpeg.DefaultPlannerOptions(),
		Concurrency: 5,
	}
}

func writeAudioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(path, []byte("whole file"), 0o644))
	return path
}

func TestTranscribeFileSmallFileSingleCall(t *testing.T) {
	toolkit := &fakeToolkit{metadata: ffmpeg.AudioMetadata{Duration: 600, Size: 1 * 1024 * 1024}}
	backend := &fakeBackend{}

	tr := NewTranscriber(toolkit, backend, testOptions())
	text, err := tr.TranscribeFile(context.Background(), writeAudioFixture(t), nil)
	require.NoError(t, err)

	assert.Equal(t, "text[whole file]", text)
	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestTranscribeFileChunkedPreservesOrder(t *testing.T) {
	// 2h at ~16kB/s is ~115MB, well over the ceiling: expect several chunks
	toolkit := &fakeToolkit{metadata: ffmpeg.AudioMetadata{Duration: 2 * 3600, Size: 2 * 3600 * 16000}}
	backend := &fakeBackend{jitter: 5 * time.Millisecond}

	var lastCurrent, lastTotal int
	progress := func(current, total int) {
		lastCurrent, lastTotal = current, total
	}

	tr := NewTranscriber(toolkit, backend, testOptions())
	text, err := tr.TranscribeFile(context.Background(), writeAudioFixture(t), progress)
	require.NoError(t, err)

	// 7200s at 16kB/s plans 1200s chunks (clamped to the 20 minute max),
	// so exactly six chunks. Despite randomized backend latency, output
	// must follow chunk index order.
	expected := make([]string, 6)
	for i := range expected {
		expected[i] = fmt.Sprintf("text[chunk %d]", i)
	}
	assert.Equal(t, strings.Join(expected, " "), text)

	assert.Equal(t, lastTotal, lastCurrent, "progress must end at total")
	assert.Equal(t, 6, lastTotal)
	assert.LessOrEqual(t, backend.maxSeen, 5, "concurrency bound exceeded")
}

func TestTranscribeFileChunkedAllOrNothing(t *testing.T) {
	toolkit := &fakeToolkit{metadata: ffmpeg.AudioMetadata{Duration: 2 * 3600, Size: 2 * 3600 * 16000}}
	backend := &fakeBackend{failOn: "chunk_002"}

	tr := NewTranscriber(toolkit, backend, testOptions())
	_, err := tr.TranscribeFile(context.Background(), writeAudioFixture(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk 2")
}

func TestTranscribeFileCleansChunkDir(t *testing.T) {
	toolkit := &fakeToolkit{metadata: ffmpeg.AudioMetadata{Duration: 2 * 3600, Size: 2 * 3600 * 16000}}
	backend := &fakeBackend{}

	audioPath := writeAudioFixture(t)
	tr := NewTranscriber(toolkit, backend, testOptions())
	_, err := tr.TranscribeFile(context.Background(), audioPath, nil)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(filepath.Dir(audioPath), "chunks"))
	assert.True(t, os.IsNotExist(statErr), "chunk directory must be removed after assembly")
}
