package ai

import (
	"context"
	"io"
)

// ChatClient generates text completions
type ChatClient interface {
	// Complete sends a single-turn prompt and returns the model's text
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// CompleteJSON is like Complete but requests a JSON object response
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Transcriber converts an audio stream to text
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Embedder converts text to an embedding vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SpeechSynthesizer converts text to spoken audio
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
