package summaries

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChat records prompts and returns canned summaries
type fakeChat struct {
	calls []string
}

func (f *fakeChat) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls = append(f.calls, userPrompt)
	if strings.Contains(userPrompt, "Combine them") {
		return "combined summary", nil
	}
	return fmt.Sprintf("summary %d", len(f.calls)), nil
}

func (f *fakeChat) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.Complete(ctx, systemPrompt, userPrompt)
}

// fakeSpeech returns fixed audio bytes and records its input
type fakeSpeech struct {
	input string
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.input = text
	return []byte("mp3 bytes"), nil
}

func TestSummarizeShortTranscriptSingleCall(t *testing.T) {
	chat := &fakeChat{}
	s := NewSummarizer(chat, nil, SummarizerOptions{MaxChunkChars: 100})

	text, err := s.Summarize(context.Background(), "Episode 1", "a short transcript")
	require.NoError(t, err)

	assert.Equal(t, "summary 1", text)
	require.Len(t, chat.calls, 1)
	assert.Contains(t, chat.calls[0], "a short transcript")
}

func TestSummarizeLongTranscriptSplitsAndCombines(t *testing.T) {
	chat := &fakeChat{}
	s := NewSummarizer(chat, nil, SummarizerOptions{MaxChunkChars: 50})

	transcript := strings.Repeat("x", 120)
	text, err := s.Summarize(context.Background(), "Episode 1", transcript)
	require.NoError(t, err)

	assert.Equal(t, "combined summary", text)
	// 120 chars at 50 per part: three part calls plus one combine call
	require.Len(t, chat.calls, 4)
	assert.Contains(t, chat.calls[0], "part 1 of 3")
	assert.Contains(t, chat.calls[2], "part 3 of 3")
	assert.Contains(t, chat.calls[3], "Combine them")
}

func TestSynthesizeAudioDisabledReturnsEmpty(t *testing.T) {
	s := NewSummarizer(&fakeChat{}, &fakeSpeech{}, SummarizerOptions{TTSEnabled: false})

	path, err := s.SynthesizeAudio(context.Background(), 1, "summary")
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestSynthesizeAudioTruncatesToCap(t *testing.T) {
	speech := &fakeSpeech{}
	s := NewSummarizer(&fakeChat{}, speech, SummarizerOptions{
		TTSEnabled:  true,
		TTSMaxChars: 20,
		AudioDir:    t.TempDir(),
	})

	path, err := s.SynthesizeAudio(context.Background(), 3, "one two three four five six seven")
	require.NoError(t, err)

	assert.NotEmpty(t, path)
	assert.LessOrEqual(t, len(speech.input), 20)
	assert.False(t, strings.HasSuffix(speech.input, " "), "no trailing space after word-boundary cut")
}

func TestTruncateAtWordBoundary(t *testing.T) {
	assert.Equal(t, "hello", truncateAtWordBoundary("hello world", 8))
	assert.Equal(t, "hello world", truncateAtWordBoundary("hello world", 11))
	assert.Equal(t, "hello", truncateAtWordBoundary("helloworld", 5))
}
