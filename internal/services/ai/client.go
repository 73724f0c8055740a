package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"golang.org/x/time/rate"

	"github.com/podscribe/podscribe-api/pkg/config"
)

// Client implements the AI interfaces on top of OpenAI-compatible endpoints.
// Chat, transcription, embedding and speech can each point at a different
// base URL so self-hosted backends can serve individual capabilities.
type Client struct {
	chat          openai.Client
	transcription openai.Client
	embedding     openai.Client

	chatModel          string
	transcriptionModel string
	embeddingModel     string
	embeddingDims      int
	ttsModel           string
	ttsVoice           string

	// One limiter across all capabilities keeps a single pipeline run from
	// saturating the provider quota
	limiter *rate.Limiter
}

// NewClient builds a Client from configuration
func NewClient(cfg config.AIConfig) *Client {
	return &Client{
		chat:               newAPIClient(cfg.ChatAPIKey, cfg.ChatBaseURL),
		transcription:      newAPIClient(cfg.TranscriptionAPIKey, cfg.TranscriptionURL),
		embedding:          newAPIClient(cfg.EmbeddingAPIKey, cfg.EmbeddingBaseURL),
		chatModel:          cfg.ChatModel,
		transcriptionModel: cfg.TranscriptionModel,
		embeddingModel:     cfg.EmbeddingModel,
		embeddingDims:      cfg.EmbeddingDimensions,
		ttsModel:           cfg.TTSModel,
		ttsVoice:           cfg.TTSVoice,
		limiter:            rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}
}

func newAPIClient(apiKey, baseURL string) openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return openai.NewClient(opts...)
}

// Complete sends a single-turn prompt and returns the model's text
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, systemPrompt, userPrompt, false)
}

// CompleteJSON is like Complete but requests a JSON object response
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, systemPrompt, userPrompt, true)
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       shared.ChatModel(c.chatModel),
		Temperature: openai.Float(0.2),
	}
	if jsonMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
	}

	resp, err := c.chat.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("chat completion returned empty content")
	}
	return text, nil
}

// Transcribe converts an audio stream to text
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.transcription.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  audio,
		Model: openai.AudioModel(c.transcriptionModel),
	}, option.WithRequestTimeout(0))
	if err != nil {
		return "", fmt.Errorf("transcription of %s failed: %w", filename, err)
	}

	return resp.Text, nil
}

// Embed converts text to an embedding vector
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(c.embeddingModel),
	}
	if c.embeddingDims > 0 {
		params.Dimensions = openai.Int(int64(c.embeddingDims))
	}

	resp, err := c.embedding.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding returned no data")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Synthesize converts text to spoken audio and returns the encoded bytes
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.chat.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: openai.SpeechModel(c.ttsModel),
		Voice: openai.AudioSpeechNewParamsVoice(c.ttsVoice),
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	return data, nil
}
