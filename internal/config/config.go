package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration (config.yaml + environment).
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Content  ContentConfig  `yaml:"content"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LLMConfig holds the gateway and the system-wide default provider/model,
// used when a project has none selected.
type LLMConfig struct {
	GatewayURL     string        `yaml:"gateway_url"`
	APIKey         string        `yaml:"api_key"`
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxRetryTime   time.Duration `yaml:"max_retry_time"`
	UseMock        bool          `yaml:"use_mock"`
}

// ContentConfig locates transcript text that is not cached on the document.
type ContentConfig struct {
	DriveURL   string        `yaml:"drive_url"`
	DriveToken string        `yaml:"drive_token"`
	LocalDirs  []string      `yaml:"local_dirs"`
	Timeout    time.Duration `yaml:"timeout"`
}

type AnalysisConfig struct {
	MaxPromptTokens            int     `yaml:"max_prompt_tokens"`
	IncrementalMaxPromptTokens int     `yaml:"incremental_max_prompt_tokens"`
	RelationshipEvidenceLimit  int     `yaml:"relationship_evidence_limit"`
	DefaultInfluenceStrength   float64 `yaml:"default_influence_strength"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 180 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{Path: "data/team-insights.db"},
		LLM: LLMConfig{
			Temperature:    0.3,
			MaxTokens:      8000,
			RequestTimeout: 120 * time.Second,
			MaxRetryTime:   45 * time.Second,
		},
		Content: ContentConfig{
			LocalDirs: []string{"data/uploads", "data/transcripts", "uploads"},
			Timeout:   12 * time.Second,
		},
		Analysis: AnalysisConfig{
			MaxPromptTokens:            24000,
			IncrementalMaxPromptTokens: 8000,
			RelationshipEvidenceLimit:  10,
			DefaultInfluenceStrength:   0.5,
		},
	}
}

// Load reads path (if it exists) on top of Default and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Server.Port = envOr("PORT", c.Server.Port)
	c.Database.Path = envOr("DATABASE_PATH", c.Database.Path)
	c.LLM.GatewayURL = envOr("LLM_GATEWAY_URL", c.LLM.GatewayURL)
	c.LLM.APIKey = envOr("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.Provider = envOr("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = envOr("LLM_MODEL", c.LLM.Model)
	if v, err := strconv.ParseBool(os.Getenv("USE_MOCK_LLM")); err == nil {
		c.LLM.UseMock = v
	}
	if v, err := strconv.Atoi(os.Getenv("LLM_MAX_TOKENS")); err == nil && v > 0 {
		c.LLM.MaxTokens = v
	}
	c.Content.DriveURL = envOr("DRIVE_URL", c.Content.DriveURL)
	c.Content.DriveToken = envOr("DRIVE_TOKEN", c.Content.DriveToken)
	if dirs := os.Getenv("TRANSCRIPT_DIRS"); dirs != "" {
		c.Content.LocalDirs = strings.Split(dirs, string(os.PathListSeparator))
	}
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("config: database.path is required")
	}
	if c.Analysis.RelationshipEvidenceLimit <= 0 {
		return errors.New("config: analysis.relationship_evidence_limit must be positive")
	}
	if s := c.Analysis.DefaultInfluenceStrength; s < 0 || s > 1 {
		return fmt.Errorf("config: analysis.default_influence_strength %v outside [0,1]", s)
	}
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
