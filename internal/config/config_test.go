package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromYAML(t *testing.T) {
	// Create a temporary config file for testing
	configContent := `transcription:
  provider: assemblyai
  candidates: [openai, vosk]
  language: en
  timeout: 45s
minutes:
  provider: gemini
  language: en
health:
  timeout: 5s
records:
  backend: redis
  key: custom-records`

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.yaml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg := &Config{}
	err = cfg.LoadFromYAML(configPath)
	if err != nil {
		t.Fatalf("Failed to load YAML config: %v", err)
	}

	if cfg.Transcription.Provider != "assemblyai" {
		t.Errorf("Expected provider to be 'assemblyai', got '%s'", cfg.Transcription.Provider)
	}
	if len(cfg.Transcription.Candidates) != 2 || cfg.Transcription.Candidates[1] != "vosk" {
		t.Errorf("Expected candidates [openai vosk], got %v", cfg.Transcription.Candidates)
	}
	if cfg.Transcription.Language != "en" {
		t.Errorf("Expected language 'en', got '%s'", cfg.Transcription.Language)
	}
	if cfg.Transcription.Timeout != 45*time.Second {
		t.Errorf("Expected timeout 45s, got %v", cfg.Transcription.Timeout)
	}
	if cfg.Minutes.Provider != "gemini" {
		t.Errorf("Expected minutes provider 'gemini', got '%s'", cfg.Minutes.Provider)
	}
	if cfg.Health.Timeout != 5*time.Second {
		t.Errorf("Expected health timeout 5s, got %v", cfg.Health.Timeout)
	}
	if cfg.Records.Backend != "redis" || cfg.Records.Key != "custom-records" {
		t.Errorf("Unexpected records config %+v", cfg.Records)
	}
}

func TestLoadFromYAMLPartial(t *testing.T) {
	configContent := `minutes:
  provider: anthropic`

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config_partial.yaml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg := &Config{}
	cfg.SetTranscriptionDefaults()
	cfg.SetMinutesDefaults()
	err = cfg.LoadFromYAML(configPath)
	if err != nil {
		t.Fatalf("Failed to load YAML config: %v", err)
	}

	if cfg.Minutes.Provider != "anthropic" {
		t.Errorf("Expected minutes provider 'anthropic', got '%s'", cfg.Minutes.Provider)
	}
	if cfg.Minutes.Language != "ja" {
		t.Errorf("Expected default language 'ja', got '%s'", cfg.Minutes.Language)
	}
	if cfg.Transcription.Provider != "openai" {
		t.Errorf("Expected default transcription provider 'openai', got '%s'", cfg.Transcription.Provider)
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetTranscriptionDefaults()
	cfg.SetMinutesDefaults()
	cfg.SetHealthDefaults()
	cfg.SetRecordsDefaults()

	if cfg.Transcription.Timeout != 60*time.Second {
		t.Errorf("Expected transcription timeout 60s, got %v", cfg.Transcription.Timeout)
	}
	if cfg.Health.Timeout != 15*time.Second {
		t.Errorf("Expected health timeout 15s, got %v", cfg.Health.Timeout)
	}
	if cfg.Records.Backend != "memory" || cfg.Records.Key != "audioRecords" {
		t.Errorf("Unexpected records defaults %+v", cfg.Records)
	}
	if cfg.Archive.Backend != "none" {
		t.Errorf("Expected archive backend 'none', got '%s'", cfg.Archive.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoadFromYAMLFileNotFound(t *testing.T) {
	cfg := &Config{}
	err := cfg.LoadFromYAML("non_existent_file.yaml")

	// Should not return an error for non-existent files
	if err != nil {
		t.Errorf("Expected no error for non-existent file, got: %v", err)
	}
}

func TestLoadFromYAMLInvalid(t *testing.T) {
	configContent := `transcription:
  provider: openai
  invalid_yaml: [unclosed`

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config_invalid.yaml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg := &Config{}
	err = cfg.LoadFromYAML(configPath)
	if err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.SetTranscriptionDefaults()
	cfg.SetRecordsDefaults()

	cfg.Records.Backend = "redis"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for redis backend without REDIS_URL")
	}

	cfg.RedisURL = "redis://localhost:6379"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}

	cfg.Archive.Backend = "s3"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for s3 archive without bucket")
	}

	cfg.Archive.Backend = "ftp"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for unknown archive backend")
	}
}

func TestRecordsDefaultToRedisWhenJobsEnabled(t *testing.T) {
	cfg := &Config{RedisURL: "redis://localhost:6379"}
	cfg.Archive.Backend = "s3"
	cfg.Archive.Bucket = "audio"
	cfg.SetTranscriptionDefaults()
	cfg.SetRecordsDefaults()

	if cfg.Records.Backend != "redis" {
		t.Errorf("Expected records backend 'redis' when jobs are enabled, got '%s'", cfg.Records.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestValidateRejectsMemoryRecordsWithJobs(t *testing.T) {
	cfg := &Config{RedisURL: "redis://localhost:6379"}
	cfg.Records.Backend = "memory"
	cfg.Archive.Backend = "s3"
	cfg.Archive.Bucket = "audio"
	cfg.SetTranscriptionDefaults()
	cfg.SetRecordsDefaults()

	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for memory records shared between server and worker")
	}

	cfg.RedisURL = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected memory records to be fine without jobs, got %v", err)
	}
}
