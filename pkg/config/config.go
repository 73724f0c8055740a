package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		// Set default values
		setDefaults()

		// Set up environment variable reading for overrides
		viper.SetEnvPrefix("PODSCRIBE")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		// Load config from fixed location (cleaned for safety)
		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		// Try to read the config file
		if err := viper.ReadInConfig(); err != nil {
			// If the config file doesn't exist, just use defaults and env vars
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		// Validate the configuration
		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if viper.GetString("database.path") == "" {
		fmt.Println("Warning: No database path configured")
	}

	if err := validateAPIKeys(); err != nil {
		return err
	}

	// Auto-correct invalid worker count
	if viper.GetInt("processing.workers") <= 0 {
		viper.Set("processing.workers", 2)
	}

	// Chunk bounds must leave the planner something to work with
	if viper.GetInt("transcription.min_chunk_seconds") >= viper.GetInt("transcription.max_chunk_seconds") {
		return fmt.Errorf("transcription.min_chunk_seconds must be below max_chunk_seconds")
	}

	return nil
}

// validateAPIKeys validates that API keys are not using placeholder values
func validateAPIKeys() error {
	env := viper.GetString("environment")
	isProduction := env == "production" || env == "prod"

	placeholders := []string{
		"YOUR_KEY_HERE",
		"YOUR_API_KEY",
		"changeme",
		"CHANGEME",
		"",
	}

	for _, key := range []string{"ai.chat_api_key", "ai.transcription_api_key", "ai.embedding_api_key"} {
		value := viper.GetString(key)
		for _, placeholder := range placeholders {
			if value == placeholder {
				if isProduction {
					return fmt.Errorf("invalid %s: cannot use placeholder values in production", key)
				}
				fmt.Printf("Warning: %s is using a placeholder value\n", key)
				break
			}
		}
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Environment defaults
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)
	viper.SetDefault("server.rate_limit", 20)
	viper.SetDefault("server.rate_burst", 40)

	// Database defaults
	viper.SetDefault("database.path", "./data/podscribe.db")
	viper.SetDefault("database.verbose", false)

	// Storage defaults
	viper.SetDefault("storage.upload_dir", "./data/uploads")
	viper.SetDefault("storage.keep_audio_chunks", false)

	// Processing defaults
	viper.SetDefault("processing.workers", 2)
	viper.SetDefault("processing.poll_interval", 2*time.Second)
	viper.SetDefault("processing.orphan_timeout", 5*time.Minute)
	viper.SetDefault("processing.sweep_interval", time.Minute)

	// AI backend defaults
	viper.SetDefault("ai.chat_model", "gpt-4o-mini")
	viper.SetDefault("ai.transcription_model", "whisper-1")
	viper.SetDefault("ai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("ai.embedding_dimensions", 1536)
	viper.SetDefault("ai.tts_enabled", false)
	viper.SetDefault("ai.tts_model", "tts-1")
	viper.SetDefault("ai.tts_voice", "alloy")
	viper.SetDefault("ai.rate_limit", 10)
	viper.SetDefault("ai.rate_burst", 20)

	// Transcription chunking defaults (25MB API ceiling, 20MB target)
	viper.SetDefault("transcription.max_file_bytes", 25*1024*1024)
	viper.SetDefault("transcription.target_chunk_bytes", 20*1024*1024)
	viper.SetDefault("transcription.min_chunk_seconds", 5*60)
	viper.SetDefault("transcription.max_chunk_seconds", 20*60)
	viper.SetDefault("transcription.max_chunk_attempts", 5)
	viper.SetDefault("transcription.chunk_decay", 0.7)
	viper.SetDefault("transcription.concurrency", 5)

	// Term extraction defaults
	viper.SetDefault("terms.window_size", 10000)
	viper.SetDefault("terms.window_overlap", 500)
	viper.SetDefault("terms.definition_concurrency", 4)
	viper.SetDefault("terms.max_terms", 20)
	viper.SetDefault("terms.incremental_max_terms", 10)

	// Summarization defaults
	viper.SetDefault("summary.max_chunk_chars", 80000)
	viper.SetDefault("summary.tts_max_chars", 4096)

	// Vector indexing defaults
	viper.SetDefault("vectors.chunk_size", 1000)
	viper.SetDefault("vectors.chunk_overlap", 200)

	// FFmpeg defaults
	viper.SetDefault("ffmpeg.ffmpeg_path", "ffmpeg")
	viper.SetDefault("ffmpeg.ffprobe_path", "ffprobe")
	viper.SetDefault("ffmpeg.timeout", 5*time.Minute)
}
