package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the AskMyNotes backend.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Voice     VoiceConfig     `mapstructure:"voice"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address    string `mapstructure:"address"`
	SubjectCap int    `mapstructure:"subject_cap"`
}

// QdrantConfig contains vector index connection settings.
type QdrantConfig struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	APIKey     string        `mapstructure:"api_key"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// URL returns the base REST URL for the Qdrant instance.
func (q QdrantConfig) URL() string {
	return fmt.Sprintf("http://%s:%d", q.Host, q.Port)
}

// OpenAIConfig contains LLM and embedding provider settings.
type OpenAIConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	ChatModel          string        `mapstructure:"chat_model"`
	QuizModel          string        `mapstructure:"quiz_model"`
	EmbeddingModel     string        `mapstructure:"embedding_model"`
	EmbeddingDimension int           `mapstructure:"embedding_dimension"`
	ChatTemperature    float64       `mapstructure:"chat_temperature"`
	QuizTemperature    float64       `mapstructure:"quiz_temperature"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// VoiceConfig contains STT/TTS provider settings.
type VoiceConfig struct {
	DeepgramAPIKey   string        `mapstructure:"deepgram_api_key"`
	DeepgramModel    string        `mapstructure:"deepgram_model"`
	STTTimeout       time.Duration `mapstructure:"stt_timeout"`
	ElevenLabsAPIKey string        `mapstructure:"elevenlabs_api_key"`
	ElevenLabsVoice  string        `mapstructure:"elevenlabs_voice"`
	ElevenLabsModel  string        `mapstructure:"elevenlabs_model"`
	TTSTimeout       time.Duration `mapstructure:"tts_timeout"`
}

// RetrievalConfig contains chunking and similarity-gate tunables.
type RetrievalConfig struct {
	ChunkSize           int     `mapstructure:"chunk_size"`
	ChunkOverlap        int     `mapstructure:"chunk_overlap"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	ChatTopK            int     `mapstructure:"chat_top_k"`
	VoiceTopK           int     `mapstructure:"voice_top_k"`
	EmbedBatchSize      int     `mapstructure:"embed_batch_size"`
}

// SessionsConfig contains conversation-memory settings.
type SessionsConfig struct {
	MaxTurns int           `mapstructure:"max_turns"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// TelemetryConfig toggles the prometheus metrics endpoint.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig reads configuration from an optional YAML file plus
// ASKMYNOTES_* environment variables, with defaults for every tunable.
func LoadConfig(path string) (*Config, error) {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ASKMYNOTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Sensitive values come from the conventional env names when the
	// prefixed form is absent.
	bindSecret(v, "openai.api_key", "OPENAI_API_KEY")
	bindSecret(v, "voice.deepgram_api_key", "DEEPGRAM_API_KEY")
	bindSecret(v, "voice.elevenlabs_api_key", "ELEVENLABS_API_KEY")
	bindSecret(v, "qdrant.api_key", "QDRANT_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.subject_cap", 3)

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6333)
	v.SetDefault("qdrant.collection", "askmynotes")
	v.SetDefault("qdrant.timeout", "15s")

	v.SetDefault("openai.chat_model", "gpt-4o")
	v.SetDefault("openai.quiz_model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.embedding_dimension", 1536)
	v.SetDefault("openai.chat_temperature", 0.1)
	v.SetDefault("openai.quiz_temperature", 0.7)
	v.SetDefault("openai.timeout", "60s")

	v.SetDefault("voice.deepgram_model", "nova-2")
	v.SetDefault("voice.stt_timeout", "30s")
	v.SetDefault("voice.elevenlabs_voice", "21m00Tcm4TlvDq8ikWAM")
	v.SetDefault("voice.elevenlabs_model", "eleven_turbo_v2_5")
	v.SetDefault("voice.tts_timeout", "60s")

	// Threshold is deliberately permissive; the LLM judges relevance
	// from the supplied context.
	v.SetDefault("retrieval.chunk_size", 512)
	v.SetDefault("retrieval.chunk_overlap", 64)
	v.SetDefault("retrieval.similarity_threshold", 0.15)
	v.SetDefault("retrieval.chat_top_k", 8)
	v.SetDefault("retrieval.voice_top_k", 5)
	v.SetDefault("retrieval.embed_batch_size", 64)

	v.SetDefault("sessions.max_turns", 10)
	v.SetDefault("sessions.ttl", "30m")

	v.SetDefault("telemetry.enabled", true)
}

func bindSecret(v *viper.Viper, key, env string) {
	if v.GetString(key) == "" {
		_ = v.BindEnv(key, env)
	}
}

func validate(cfg *Config) error {
	if cfg.OpenAI.EmbeddingDimension <= 0 {
		return fmt.Errorf("openai.embedding_dimension must be positive")
	}
	if cfg.Retrieval.ChunkSize <= 0 {
		return fmt.Errorf("retrieval.chunk_size must be positive")
	}
	if cfg.Retrieval.ChunkOverlap < 0 || cfg.Retrieval.ChunkOverlap >= cfg.Retrieval.ChunkSize {
		return fmt.Errorf("retrieval.chunk_overlap must be in [0, chunk_size)")
	}
	if cfg.Sessions.MaxTurns <= 0 {
		return fmt.Errorf("sessions.max_turns must be positive")
	}
	if cfg.Sessions.TTL <= 0 {
		return fmt.Errorf("sessions.ttl must be positive")
	}
	return nil
}
