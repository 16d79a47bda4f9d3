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

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode `yaml:"mode"`

	Server       ServerConfig       `yaml:"server"`
	Oracle       OracleConfig       `yaml:"oracle"`
	Calendar     CalendarConfig     `yaml:"calendar"`
	Tasks        TasksConfig        `yaml:"tasks"`
	Storage      StorageConfig      `yaml:"storage"`
	Conversation ConversationConfig `yaml:"conversation"`
	Time         TimeConfig         `yaml:"time"`
	Logging      LoggingConfig      `yaml:"logging"`

	// malformed env values, reported by Validate
	envErrs []error
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// OracleConfig configures the natural-language oracle.
type OracleConfig struct {
	Provider string `yaml:"provider"` // gigachat, openai, gemini, mock
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"` // Bearer key (openai) or Gemini API key

	// GigaChat OAuth
	AuthURL            string `yaml:"auth_url"`
	AuthKey            string `yaml:"auth_key"` // base64 client credentials
	Scope              string `yaml:"scope"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`

	// Vertex AI (gemini provider without api_key)
	GCPProjectID string `yaml:"gcp_project"`
	GCPLocation  string `yaml:"gcp_location"`

	Timeout           string    `yaml:"timeout"`
	Temperatures      []float32 `yaml:"temperatures"`
	EscalationBackoff string    `yaml:"escalation_backoff"`
}

type CalendarConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
}

type TasksConfig struct {
	Backend     string `yaml:"backend"` // todoist, notion, none
	BaseURL     string `yaml:"base_url"`
	NotionToken string `yaml:"notion_token"`
}

type StorageConfig struct {
	Backend      string `yaml:"backend"` // memory, sqlite, firestore
	SQLitePath   string `yaml:"sqlite_path"`
	GCPProjectID string `yaml:"gcp_project"`
}

type ConversationConfig struct {
	MinTextLen      int    `yaml:"min_text_len"`
	DispatchTimeout string `yaml:"dispatch_timeout"`
}

type TimeConfig struct {
	UTCOffset string `yaml:"utc_offset"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Mode:   ModeLocal,
		Server: ServerConfig{Port: "8080"},
		Oracle: OracleConfig{
			Provider:          "mock",
			BaseURL:           "https://gigachat.devices.sberbank.ru/api/v1",
			AuthURL:           "https://ngw.devices.sberbank.ru:9443/api/v2/oauth",
			Scope:             "GIGACHAT_API_PERS",
			Model:             "GigaChat",
			GCPLocation:       "us-central1",
			Timeout:           "20s",
			Temperatures:      []float32{0.2, 0.7, 1.2},
			EscalationBackoff: "0s",
		},
		Tasks:        TasksConfig{Backend: "todoist", BaseURL: "https://api.todoist.com/rest/v2"},
		Storage:      StorageConfig{Backend: "memory", SQLitePath: "chatplanner.db"},
		Conversation: ConversationConfig{MinTextLen: 1, DispatchTimeout: "15s"},
		Time:         TimeConfig{UTCOffset: "+03:00"},
		Logging:      LoggingConfig{Level: "info"},
	}
}

// Load reads the YAML file at path (if any), applies env overrides and validates.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func (c *Config) applyEnvOverrides() {
	if getEnv("PLANNER_MODE", "") == string(ModeGCP) {
		c.Mode = ModeGCP
	}
	c.Server.Port = getEnv("PORT", getEnv("PLANNER_PORT", c.Server.Port))

	c.Oracle.Provider = getEnv("PLANNER_ORACLE_PROVIDER", c.Oracle.Provider)
	c.Oracle.BaseURL = getEnv("PLANNER_ORACLE_BASE_URL", c.Oracle.BaseURL)
	c.Oracle.Model = getEnv("PLANNER_MODEL_NAME", c.Oracle.Model)
	c.Oracle.APIKey = getEnv("PLANNER_ORACLE_API_KEY", c.Oracle.APIKey)
	c.Oracle.AuthKey = getEnv("GIGACHAT_AUTH_KEY", c.Oracle.AuthKey)
	c.Oracle.InsecureSkipVerify = getBoolEnv("PLANNER_ORACLE_INSECURE", c.Oracle.InsecureSkipVerify)
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Oracle.APIKey = key
		if c.Oracle.Provider == "" || c.Oracle.Provider == "mock" {
			c.Oracle.Provider = "gemini"
		}
	}
	if getBoolEnv("PLANNER_USE_MOCK_LLM", false) {
		c.Oracle.Provider = "mock"
	}

	c.Oracle.GCPProjectID = getEnv("PLANNER_GCP_PROJECT", c.Oracle.GCPProjectID)
	c.Oracle.GCPLocation = getEnv("PLANNER_GCP_LOCATION", c.Oracle.GCPLocation)
	c.Storage.GCPProjectID = getEnv("PLANNER_GCP_PROJECT", c.Storage.GCPProjectID)

	c.Calendar.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.Calendar.CredentialsFile)
	c.Tasks.Backend = getEnv("PLANNER_TASK_BACKEND", c.Tasks.Backend)
	c.Tasks.NotionToken = getEnv("NOTION_TOKEN", c.Tasks.NotionToken)

	c.Storage.Backend = getEnv("PLANNER_STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.SQLitePath = getEnv("PLANNER_SQLITE_PATH", c.Storage.SQLitePath)

	if v := os.Getenv("PLANNER_MIN_TEXT_LEN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.envErrs = append(c.envErrs, fmt.Errorf("PLANNER_MIN_TEXT_LEN: %w", err))
		} else {
			c.Conversation.MinTextLen = n
		}
	}
	c.Time.UTCOffset = getEnv("PLANNER_UTC_OFFSET", c.Time.UTCOffset)
	c.Logging.Level = getEnv("PLANNER_LOG_LEVEL", c.Logging.Level)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if err := errors.Join(c.envErrs...); err != nil {
		return err
	}
	switch c.Oracle.Provider {
	case "mock", "gigachat", "openai", "gemini":
	default:
		return fmt.Errorf("unknown oracle provider %q", c.Oracle.Provider)
	}
	if c.Oracle.Provider == "gigachat" && c.Oracle.AuthKey == "" {
		return fmt.Errorf("oracle.auth_key (GIGACHAT_AUTH_KEY) is required for gigachat")
	}
	if c.Oracle.Provider == "gemini" && c.Oracle.APIKey == "" && c.Oracle.GCPProjectID == "" {
		return fmt.Errorf("gemini needs GEMINI_API_KEY or PLANNER_GCP_PROJECT")
	}

	if len(c.Oracle.Temperatures) == 0 {
		return fmt.Errorf("oracle.temperatures must not be empty")
	}
	for i := 1; i < len(c.Oracle.Temperatures); i++ {
		if c.Oracle.Temperatures[i] <= c.Oracle.Temperatures[i-1] {
			return fmt.Errorf("oracle.temperatures must be strictly increasing, got %v", c.Oracle.Temperatures)
		}
	}

	switch c.Tasks.Backend {
	case "todoist", "none":
	case "notion":
		if c.Tasks.NotionToken == "" {
			return fmt.Errorf("tasks.notion_token (NOTION_TOKEN) is required for the notion backend")
		}
	default:
		return fmt.Errorf("unknown task backend %q", c.Tasks.Backend)
	}

	switch c.Storage.Backend {
	case "memory", "sqlite":
	case "firestore":
		if c.Storage.GCPProjectID == "" {
			return fmt.Errorf("storage.gcp_project (PLANNER_GCP_PROJECT) is required for firestore")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Conversation.MinTextLen < 0 {
		return fmt.Errorf("conversation.min_text_len must be >= 0")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	for name, v := range map[string]string{
		"oracle.timeout":                c.Oracle.Timeout,
		"oracle.escalation_backoff":     c.Oracle.EscalationBackoff,
		"conversation.dispatch_timeout": c.Conversation.DispatchTimeout,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func (c *Config) GetOracleTimeout() time.Duration {
	return parseDuration(c.Oracle.Timeout, 20*time.Second)
}

func (c *Config) GetEscalationBackoff() time.Duration {
	return parseDuration(c.Oracle.EscalationBackoff, 0)
}

func (c *Config) GetDispatchTimeout() time.Duration {
	return parseDuration(c.Conversation.DispatchTimeout, 15*time.Second)
}

// Location returns the fixed zone described by time.utc_offset ("+03:00").
func (c *Config) Location() (*time.Location, error) {
	return ParseOffset(c.Time.UTCOffset)
}

// ParseOffset turns "+03:00" / "-05:30" / "Z" into a fixed time zone.
func ParseOffset(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "Z" || s == "+00:00" {
		return time.FixedZone("+00:00", 0), nil
	}
	t, err := time.Parse("-07:00", s)
	if err != nil {
		return nil, fmt.Errorf("time.utc_offset %q: %w", s, err)
	}
	_, off := t.Zone()
	return time.FixedZone(s, off), nil
}
