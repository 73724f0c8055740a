package config

import "time"

// Config is the top-level application configuration
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Processing    ProcessingConfig    `mapstructure:"processing"`
	AI            AIConfig            `mapstructure:"ai"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Terms         TermsConfig         `mapstructure:"terms"`
	Summary       SummaryConfig       `mapstructure:"summary"`
	Vectors       VectorsConfig       `mapstructure:"vectors"`
	FFmpeg        FFmpegConfig        `mapstructure:"ffmpeg"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	// Per-client token bucket: sustained requests/second and burst size
	RateLimit int `mapstructure:"rate_limit"`
	RateBurst int `mapstructure:"rate_burst"`
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`
}

// StorageConfig holds local artifact storage settings
type StorageConfig struct {
	UploadDir       string `mapstructure:"upload_dir"`
	KeepAudioChunks bool   `mapstructure:"keep_audio_chunks"`
}

// ProcessingConfig holds background worker settings
type ProcessingConfig struct {
	Workers       int           `mapstructure:"workers"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	OrphanTimeout time.Duration `mapstructure:"orphan_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// AIConfig holds AI backend credentials and model selection.
// Separate keys per capability so transcription can point at a different
// provider than chat.
type AIConfig struct {
	ChatAPIKey          string `mapstructure:"chat_api_key"`
	ChatBaseURL         string `mapstructure:"chat_base_url"`
	ChatModel           string `mapstructure:"chat_model"`
	TranscriptionAPIKey string `mapstructure:"transcription_api_key"`
	TranscriptionURL    string `mapstructure:"transcription_base_url"`
	TranscriptionModel  string `mapstructure:"transcription_model"`
	EmbeddingAPIKey     string `mapstructure:"embedding_api_key"`
	EmbeddingBaseURL    string `mapstructure:"embedding_base_url"`
	EmbeddingModel      string `mapstructure:"embedding_model"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions"`
	TTSEnabled          bool   `mapstructure:"tts_enabled"`
	TTSModel            string `mapstructure:"tts_model"`
	TTSVoice            string `mapstructure:"tts_voice"`
	RateLimit           int    `mapstructure:"rate_limit"`
	RateBurst           int    `mapstructure:"rate_burst"`
}

// TranscriptionConfig holds audio chunking parameters
type TranscriptionConfig struct {
	MaxFileBytes     int64   `mapstructure:"max_file_bytes"`
	TargetChunkBytes int64   `mapstructure:"target_chunk_bytes"`
	MinChunkSeconds  int     `mapstructure:"min_chunk_seconds"`
	MaxChunkSeconds  int     `mapstructure:"max_chunk_seconds"`
	MaxChunkAttempts int     `mapstructure:"max_chunk_attempts"`
	ChunkDecay       float64 `mapstructure:"chunk_decay"`
	Concurrency      int     `mapstructure:"concurrency"`
}

// TermsConfig holds term extraction parameters
type TermsConfig struct {
	WindowSize            int `mapstructure:"window_size"`
	WindowOverlap         int `mapstructure:"window_overlap"`
	DefinitionConcurrency int `mapstructure:"definition_concurrency"`
	MaxTerms              int `mapstructure:"max_terms"`
	IncrementalMaxTerms   int `mapstructure:"incremental_max_terms"`
}

// SummaryConfig holds summarization parameters
type SummaryConfig struct {
	MaxChunkChars int `mapstructure:"max_chunk_chars"`
	TTSMaxChars   int `mapstructure:"tts_max_chars"`
}

// VectorsConfig holds vector indexing parameters
type VectorsConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
}

// FFmpegConfig holds external tool paths
type FFmpegConfig struct {
	FFmpegPath  string        `mapstructure:"ffmpeg_path"`
	FFprobePath string        `mapstructure:"ffprobe_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
}
