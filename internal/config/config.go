package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted for DB_BACKEND.
const (
	BackendDB2    = "db2"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port string `yaml:"port"`

	// Relay auth. Empty disables auth on the read endpoints.
	RelayAPIKey string `yaml:"relay_api_key"`
	CORSOrigin  string `yaml:"cors_origin"`

	// Request limits
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	MaxQuestions int   `yaml:"max_questions"`

	// SQL job backend
	Backend      string        `yaml:"backend"`
	DB2Hostname  string        `yaml:"db2_hostname"`
	DB2UserID    string        `yaml:"db2_userid"`
	DB2Password  string        `yaml:"db2_password"`
	DB2Deploy    string        `yaml:"db2_deployment_id"`
	Schema       string        `yaml:"schema"`
	Table        string        `yaml:"table"`
	SQLitePath   string        `yaml:"sqlite_path"`
	InsertPolls  int           `yaml:"insert_polls"`
	ExportPolls  int           `yaml:"export_polls"`
	PollInterval time.Duration `yaml:"poll_interval"`
	ExportLimit  int           `yaml:"export_limit"`

	// Orchestrate
	IBMCloudAPIKey string `yaml:"ibm_cloud_api_key"`
	IAMURL         string `yaml:"iam_url"`
	WXOInstanceID  string `yaml:"wxo_instance_id"`
	WXOAPIHost     string `yaml:"wxo_api_host"`
	WXOAgentID     string `yaml:"wxo_agent_id"`

	// Evaluation pool
	WorkerCount      int           `yaml:"worker_count"`
	MaxQueueSize     int           `yaml:"max_queue_size"`
	MaxConcurrentAsk int           `yaml:"max_concurrent_ask"`
	JobTTL           time.Duration `yaml:"job_ttl"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:             "8090",
		CORSOrigin:       "*",
		MaxBodyBytes:     1 << 20,
		MaxQuestions:     200,
		Backend:          BackendDB2,
		Table:            "WXO_LOG",
		SQLitePath:       "chatrelay.db",
		InsertPolls:      5,
		ExportPolls:      10,
		PollInterval:     1 * time.Second,
		ExportLimit:      5000,
		IAMURL:           "https://iam.cloud.ibm.com/identity/token",
		WXOAPIHost:       "api.us-south.watson-orchestrate.cloud.ibm.com",
		WorkerCount:      2,
		MaxQueueSize:     20,
		MaxConcurrentAsk: 4,
		JobTTL:           1 * time.Hour,
		LogLevel:         "info",
	}
}

// Load builds the configuration from the environment alone.
func Load() Config {
	cfg := Default()
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML file and then applies environment overrides.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.RelayAPIKey = envOr("RELAY_API_KEY", c.RelayAPIKey)
	c.CORSOrigin = envOr("CORS_ORIGIN", c.CORSOrigin)
	c.MaxBodyBytes = envInt64("MAX_BODY_BYTES", c.MaxBodyBytes)
	c.MaxQuestions = envInt("MAX_QUESTIONS", c.MaxQuestions)

	c.Backend = strings.ToLower(envOr("DB_BACKEND", c.Backend))
	c.DB2Hostname = strings.TrimSpace(envOr("DB2_HOSTNAME", c.DB2Hostname))
	c.DB2UserID = strings.TrimSpace(envOr("DB2_USERID", c.DB2UserID))
	c.DB2Password = strings.TrimSpace(envOr("DB2_PASSWORD", envOr("PASSWORD", c.DB2Password)))
	c.DB2Deploy = strings.TrimSpace(envOr("DB2_DEPLOYMENT_ID", c.DB2Deploy))
	c.Schema = envOr("DB2_SCHEMA", c.Schema)
	c.Table = envOr("DB2_TABLE", c.Table)
	c.SQLitePath = envOr("SQLITE_PATH", c.SQLitePath)
	c.InsertPolls = envInt("INSERT_POLLS", c.InsertPolls)
	c.ExportPolls = envInt("EXPORT_POLLS", c.ExportPolls)
	c.PollInterval = envDuration("POLL_INTERVAL", c.PollInterval)
	c.ExportLimit = envInt("EXPORT_LIMIT", c.ExportLimit)

	c.IBMCloudAPIKey = envOr("IBM_CLOUD_API_KEY", c.IBMCloudAPIKey)
	c.IAMURL = envOr("IAM_URL", c.IAMURL)
	c.WXOInstanceID = envOr("WXO_INSTANCE_ID", c.WXOInstanceID)
	c.WXOAPIHost = envOr("WXO_API_HOST", c.WXOAPIHost)
	c.WXOAgentID = envOr("WXO_AGENT_ID", c.WXOAgentID)

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)
	c.MaxConcurrentAsk = envInt("MAX_CONCURRENT_ASK", c.MaxConcurrentAsk)
	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)

	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.MaxQuestions <= 0 {
		c.MaxQuestions = d.MaxQuestions
	}
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.Table == "" {
		c.Table = d.Table
	}
	if c.InsertPolls <= 0 {
		c.InsertPolls = d.InsertPolls
	}
	if c.ExportPolls <= 0 {
		c.ExportPolls = d.ExportPolls
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.ExportLimit <= 0 {
		c.ExportLimit = d.ExportLimit
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxConcurrentAsk <= 0 {
		c.MaxConcurrentAsk = d.MaxConcurrentAsk
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
}

// Validate checks the settings the relay cannot start without.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendDB2:
		if c.DB2Hostname == "" {
			return fmt.Errorf("DB2_HOSTNAME is required")
		}
		if c.DB2UserID == "" {
			return fmt.Errorf("DB2_USERID is required")
		}
		if c.DB2Password == "" {
			return fmt.Errorf("DB2_PASSWORD is required")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("unknown DB_BACKEND %q (use %s or %s)", c.Backend, BackendDB2, BackendSQLite)
	}
	if c.IBMCloudAPIKey != "" && c.WXOInstanceID == "" {
		return fmt.Errorf("WXO_INSTANCE_ID is required when IBM_CLOUD_API_KEY is set")
	}
	return nil
}

// OrchestrateEnabled reports whether agent calls can be made.
func (c Config) OrchestrateEnabled() bool {
	return c.IBMCloudAPIKey != "" && c.WXOInstanceID != ""
}

// QualifiedTable returns the quoted log table name. The SQLite backend has no
// schemas, so the schema is dropped there.
func (c Config) QualifiedTable() string {
	table := quoteIdent(c.Table)
	if c.Schema == "" || c.Backend == BackendSQLite {
		return table
	}
	return quoteIdent(c.Schema) + "." + table
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
