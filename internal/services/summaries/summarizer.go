package summaries

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/podscribe/podscribe-api/internal/services/ai"
)

// SummarizerOptions configures the chunked summarizer
type SummarizerOptions struct {
	MaxChunkChars int    // Transcripts over this length are summarized in parts
	TTSMaxChars   int    // Hard input cap of the speech backend
	TTSEnabled    bool   // Synthesize spoken audio for the summary
	AudioDir      string // Where synthesized summary audio is written
}

// DefaultSummarizerOptions returns the standard summarization parameters.
// The character threshold is a deliberate proxy for a token budget, chosen
// so one chunk comfortably fits a model context window.
func DefaultSummarizerOptions() SummarizerOptions {
	return SummarizerOptions{
		MaxChunkChars: 80000,
		TTSMaxChars:   4096,
	}
}

// Summarizer produces an episode summary. Short transcripts get one call;
// long ones are split into position-tagged parts, each summarized
// independently, then combined in a final call.
type Summarizer struct {
	chat    ai.ChatClient
	speech  ai.SpeechSynthesizer
	options SummarizerOptions
}

// NewSummarizer creates a chunked summarizer. speech may be nil when TTS
// is disabled.
func NewSummarizer(chat ai.ChatClient, speech ai.SpeechSynthesizer, options SummarizerOptions) *Summarizer {
	if options.MaxChunkChars <= 0 {
		options.MaxChunkChars = 80000
	}
	return &Summarizer{
		chat:    chat,
		speech:  speech,
		options: options,
	}
}

const summarySystemPrompt = "You summarize podcast episodes. Write a cohesive summary in flowing prose, " +
	"covering the main topics, arguments, and any conclusions reached. No headings or bullet lists."

// Summarize produces the summary text for a transcript
func (s *Summarizer) Summarize(ctx context.Context, episodeTitle, transcript string) (string, error) {
	if len(transcript) <= s.options.MaxChunkChars {
		return s.chat.Complete(ctx, summarySystemPrompt,
			fmt.Sprintf("Summarize this transcript of %q:\n\n%s", episodeTitle, transcript))
	}

	parts := splitChars(transcript, s.options.MaxChunkChars)
	log.Printf("[DEBUG] Summarizing %q in %d parts", episodeTitle, len(parts))

	partials := make([]string, len(parts))
	for i, part := range parts {
		prompt := fmt.Sprintf("This is part %d of %d of the transcript of %q. Summarize this part:\n\n%s",
			i+1, len(parts), episodeTitle, part)
		partial, err := s.chat.Complete(ctx, summarySystemPrompt, prompt)
		if err != nil {
			return "", fmt.Errorf("summarizing part %d/%d: %w", i+1, len(parts), err)
		}
		partials[i] = partial
	}

	combinePrompt := fmt.Sprintf(
		"These are sequential partial summaries of %q. Combine them into one cohesive summary:\n\n%s",
		episodeTitle, strings.Join(partials, "\n\n---\n\n"))
	combined, err := s.chat.Complete(ctx, summarySystemPrompt, combinePrompt)
	if err != nil {
		return "", fmt.Errorf("combining partial summaries: %w", err)
	}
	return combined, nil
}

// SynthesizeAudio converts the summary text to spoken audio and writes it
// under the episode's audio directory. Returns the file path, or "" when
// TTS is disabled. TTS being unavailable is never an error, just absence.
func (s *Summarizer) SynthesizeAudio(ctx context.Context, episodeID uint, summaryText string) (string, error) {
	if !s.options.TTSEnabled || s.speech == nil {
		return "", nil
	}

	text := summaryText
	if s.options.TTSMaxChars > 0 && len(text) > s.options.TTSMaxChars {
		text = truncateAtWordBoundary(text, s.options.TTSMaxChars)
	}

	audio, err := s.speech.Synthesize(ctx, text)
	if err != nil {
		return "", fmt.Errorf("synthesizing summary audio: %w", err)
	}

	dir := filepath.Join(s.options.AudioDir, fmt.Sprintf("episode_%d", episodeID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating summary audio directory: %w", err)
	}

	path := filepath.Join(dir, "summary.mp3")
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("writing summary audio: %w", err)
	}

	log.Printf("[DEBUG] Wrote %d bytes of summary audio to %s", len(audio), path)
	return path, nil
}

// splitChars splits text into non-overlapping windows of at most size chars
func splitChars(text string, size int) []string {
	runes := []rune(text)
	var parts []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

// truncateAtWordBoundary cuts text to at most max bytes without splitting
// the final word
func truncateAtWordBoundary(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := text[:max]
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
