package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string

	DatabaseURL string
	RedisURL    string

	SupabaseURL            string
	SupabaseServiceRoleKey string

	// Server-side provider credentials. A key supplied by the caller always
	// takes precedence over these.
	OpenAIKey         string
	GroqKey           string
	AssemblyAIKey     string
	AzureSpeechKey    string
	AzureSpeechRegion string
	VoskURL           string
	GeminiKey         string
	AnthropicKey      string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	Port string

	Transcription TranscriptionConfig
	Minutes       MinutesConfig
	Health        HealthConfig
	Records       RecordsConfig
	Archive       ArchiveConfig
}

type TranscriptionConfig struct {
	Provider   string        `yaml:"provider"`
	Candidates []string      `yaml:"candidates"`
	Language   string        `yaml:"language"`
	Timeout    time.Duration `yaml:"timeout"`
}

type MinutesConfig struct {
	Provider   string        `yaml:"provider"`
	Candidates []string      `yaml:"candidates"`
	Language   string        `yaml:"language"`
	Timeout    time.Duration `yaml:"timeout"`
}

type HealthConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type RecordsConfig struct {
	Backend string `yaml:"backend"`
	Key     string `yaml:"key"`
}

type ArchiveConfig struct {
	Backend     string `yaml:"backend"`
	Bucket      string `yaml:"bucket"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3Region    string `yaml:"s3_region"`
	S3AccessKey string `yaml:"-"`
	S3SecretKey string `yaml:"-"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		SupabaseURL:              os.Getenv("SUPABASE_URL"),
		SupabaseServiceRoleKey:   os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		OpenAIKey:                os.Getenv("OPENAI_API_KEY"),
		GroqKey:                  os.Getenv("GROQ_API_KEY"),
		AssemblyAIKey:            os.Getenv("ASSEMBLYAI_API_KEY"),
		AzureSpeechKey:           os.Getenv("AZURE_SPEECH_KEY"),
		AzureSpeechRegion:        os.Getenv("AZURE_SPEECH_REGION"),
		VoskURL:                  os.Getenv("VOSK_URL"),
		GeminiKey:                os.Getenv("GEMINI_API_KEY"),
		AnthropicKey:             os.Getenv("ANTHROPIC_API_KEY"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		Port:                     os.Getenv("PORT"),
		Records: RecordsConfig{
			Backend: os.Getenv("RECORDS_BACKEND"),
		},
		Archive: ArchiveConfig{
			Backend:     os.Getenv("ARCHIVE_BACKEND"),
			Bucket:      os.Getenv("ARCHIVE_BUCKET"),
			S3Endpoint:  os.Getenv("S3_ENDPOINT"),
			S3Region:    os.Getenv("S3_REGION"),
			S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
			S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load from YAML file if available
	if err := cfg.LoadFromYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	// Set defaults
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "gijiroku-minutes"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "1.0.0"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	cfg.SetTranscriptionDefaults()
	cfg.SetMinutesDefaults()
	cfg.SetHealthDefaults()
	cfg.SetRecordsDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Transcription TranscriptionConfig `yaml:"transcription"`
		Minutes       MinutesConfig       `yaml:"minutes"`
		Health        HealthConfig        `yaml:"health"`
		Records       RecordsConfig       `yaml:"records"`
		Archive       ArchiveConfig       `yaml:"archive"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	t := yamlConfig.Transcription
	if t.Provider != "" {
		c.Transcription.Provider = t.Provider
	}
	if len(t.Candidates) > 0 {
		c.Transcription.Candidates = t.Candidates
	}
	if t.Language != "" {
		c.Transcription.Language = t.Language
	}
	if t.Timeout > 0 {
		c.Transcription.Timeout = t.Timeout
	}

	m := yamlConfig.Minutes
	if m.Provider != "" {
		c.Minutes.Provider = m.Provider
	}
	if len(m.Candidates) > 0 {
		c.Minutes.Candidates = m.Candidates
	}
	if m.Language != "" {
		c.Minutes.Language = m.Language
	}
	if m.Timeout > 0 {
		c.Minutes.Timeout = m.Timeout
	}

	if yamlConfig.Health.Timeout > 0 {
		c.Health.Timeout = yamlConfig.Health.Timeout
	}

	if yamlConfig.Records.Backend != "" {
		c.Records.Backend = yamlConfig.Records.Backend
	}
	if yamlConfig.Records.Key != "" {
		c.Records.Key = yamlConfig.Records.Key
	}

	a := yamlConfig.Archive
	if a.Backend != "" {
		c.Archive.Backend = a.Backend
	}
	if a.Bucket != "" {
		c.Archive.Bucket = a.Bucket
	}
	if a.S3Endpoint != "" {
		c.Archive.S3Endpoint = a.S3Endpoint
	}
	if a.S3Region != "" {
		c.Archive.S3Region = a.S3Region
	}

	return nil
}

func (c *Config) SetTranscriptionDefaults() {
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = "openai"
	}
	if len(c.Transcription.Candidates) == 0 {
		c.Transcription.Candidates = []string{"groq", "assemblyai", "azure", "vosk"}
	}
	if c.Transcription.Language == "" {
		c.Transcription.Language = "ja"
	}
	if c.Transcription.Timeout <= 0 {
		c.Transcription.Timeout = 60 * time.Second
	}
}

func (c *Config) SetMinutesDefaults() {
	if c.Minutes.Provider == "" {
		c.Minutes.Provider = "openai"
	}
	if len(c.Minutes.Candidates) == 0 {
		c.Minutes.Candidates = []string{"gemini", "anthropic"}
	}
	if c.Minutes.Language == "" {
		c.Minutes.Language = "ja"
	}
	if c.Minutes.Timeout <= 0 {
		c.Minutes.Timeout = 60 * time.Second
	}
}

func (c *Config) SetHealthDefaults() {
	if c.Health.Timeout <= 0 {
		c.Health.Timeout = 15 * time.Second
	}
}

// SetRecordsDefaults picks redis for records when background jobs are
// enabled, since the server and worker must see the same records.
func (c *Config) SetRecordsDefaults() {
	if c.Archive.Backend == "" {
		c.Archive.Backend = "none"
	}
	if c.Records.Backend == "" {
		c.Records.Backend = "memory"
		if c.JobsEnabled() {
			c.Records.Backend = "redis"
		}
	}
	if c.Records.Key == "" {
		c.Records.Key = "audioRecords"
	}
	if c.Archive.S3Region == "" {
		c.Archive.S3Region = "us-east-1"
	}
}

func (c *Config) validate() error {
	switch c.Records.Backend {
	case "memory":
		if c.JobsEnabled() {
			return fmt.Errorf("the memory records backend is per process; background jobs need redis or postgres")
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis records backend")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres records backend")
		}
	default:
		return fmt.Errorf("unknown records backend %q", c.Records.Backend)
	}

	switch c.Archive.Backend {
	case "none":
	case "s3":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("ARCHIVE_BUCKET is required for the s3 archive backend")
		}
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseServiceRoleKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase archive backend")
		}
		if c.Archive.Bucket == "" {
			return fmt.Errorf("ARCHIVE_BUCKET is required for the supabase archive backend")
		}
	default:
		return fmt.Errorf("unknown archive backend %q", c.Archive.Backend)
	}

	if c.Transcription.Language == "" {
		return fmt.Errorf("transcription language must not be empty")
	}
	return nil
}

// JobsEnabled reports whether the server queues background jobs: that needs
// an audio archive and Redis for the queue.
func (c *Config) JobsEnabled() bool {
	return c.Archive.Backend != "" && c.Archive.Backend != "none" && c.RedisURL != ""
}

// Validate exposes validation for callers that build a Config by hand.
func (c *Config) Validate() error {
	return c.validate()
}
