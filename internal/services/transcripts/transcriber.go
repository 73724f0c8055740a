package transcripts

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/podscribe/podscribe-api/internal/services/ai"
	"github.com/podscribe/podscribe-api/pkg/ffmpeg"
)

// ProgressFunc reports chunk-level transcription progress
type ProgressFunc func(current, total int)

// TranscriberOptions configures the chunked transcriber
type TranscriberOptions struct {
	Planner     ffmpeg.PlannerOptions
	Concurrency int  // Max chunks transcribed in parallel
	KeepChunks  bool // Keep extracted chunk files for debugging
}

// Transcriber turns a local audio file into a full transcript. Files over
// the API size ceiling are split into planned chunks, transcribed with
// bounded concurrency, and reassembled in chunk order. Transcription is
// all-or-nothing: any failed chunk fails the whole file.
type Transcriber struct {
	audio   audioToolkit
	backend ai.Transcriber
	options TranscriberOptions
}

// NewTranscriber creates a chunked transcriber
func NewTranscriber(audio audioToolkit, backend ai.Transcriber, options TranscriberOptions) *Transcriber {
	if options.Concurrency <= 0 {
		options.Concurrency = 5
	}
	return &Transcriber{
		audio:   audio,
		backend: backend,
		options: options,
	}
}

// TranscribeFile transcribes the audio file at path and returns the full
// text. onProgress, if non-nil, is invoked as chunks complete.
func (t *Transcriber) TranscribeFile(ctx context.Context, path string, onProgress ProgressFunc) (string, error) {
	metadata, err := t.audio.GetMetadata(ctx, path)
	if err != nil {
		return "", fmt.Errorf("probing %s: %w", path, err)
	}

	size := metadata.Size
	if size == 0 {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("stating %s: %w", path, err)
		}
		size = info.Size()
	}

	chunks, err := ffmpeg.PlanChunks(metadata.Duration, size, t.options.Planner)
	if err != nil {
		return "", err
	}

	if len(chunks) == 1 && size <= t.options.Planner.MaxFileBytes {
		log.Printf("[DEBUG] %s fits under the size ceiling, transcribing whole file", filepath.Base(path))
		if onProgress != nil {
			onProgress(0, 1)
		}
		text, err := t.transcribeFilePath(ctx, path)
		if err != nil {
			return "", err
		}
		if onProgress != nil {
			onProgress(1, 1)
		}
		return text, nil
	}

	return t.transcribeChunked(ctx, path, chunks, onProgress)
}

// transcribeChunked extracts and transcribes every planned chunk, then
// reassembles the texts in chunk order
func (t *Transcriber) transcribeChunked(ctx context.Context, path string, chunks []ffmpeg.ChunkSpec, onProgress ProgressFunc) (string, error) {
	chunkDir := filepath.Join(filepath.Dir(path), "chunks")
	log.Printf("[DEBUG] Transcribing %s in %d chunks (concurrency %d)", filepath.Base(path), len(chunks), t.options.Concurrency)

	if !t.options.KeepChunks {
		defer func() {
			if err := os.RemoveAll(chunkDir); err != nil {
				log.Printf("[WARN] Failed to remove chunk directory %s: %v", chunkDir, err)
			}
		}()
	}

	texts := make([]string, len(chunks))
	var completed atomic.Int32
	total := len(chunks)

	if onProgress != nil {
		onProgress(0, total)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.options.Concurrency)

	for _, spec := range chunks {
		spec := spec
		g.Go(func() error {
			chunkPath, err := t.audio.ExtractChunk(gctx, path, chunkDir, spec, t.options.Planner)
			if err != nil {
				return fmt.Errorf("extracting chunk %d: %w", spec.Index, err)
			}

			text, err := t.transcribeFilePath(gctx, chunkPath)
			if err != nil {
				return fmt.Errorf("transcribing chunk %d: %w", spec.Index, err)
			}

			// Slots are disjoint per goroutine, no lock needed
			texts[spec.Index] = text

			done := int(completed.Add(1))
			log.Printf("[DEBUG] Transcribed chunk %d/%d of %s", done, total, filepath.Base(path))
			if onProgress != nil {
				onProgress(done, total)
			}

			if !t.options.KeepChunks {
				if err := os.Remove(chunkPath); err != nil {
					log.Printf("[WARN] Failed to remove chunk file %s: %v", chunkPath, err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	return strings.Join(texts, " "), nil
}

func (t *Transcriber) transcribeFilePath(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	text, err := t.backend.Transcribe(ctx, f, filepath.Base(path))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
