package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, BackendDB2, cfg.Backend)
	assert.Equal(t, 5, cfg.InsertPolls)
	assert.Equal(t, 10, cfg.ExportPolls)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 5000, cfg.ExportLimit)
	assert.Equal(t, "api.us-south.watson-orchestrate.cloud.ibm.com", cfg.WXOAPIHost)
	assert.Equal(t, "*", cfg.CORSOrigin)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_BACKEND", "SQLite")
	t.Setenv("DB2_HOSTNAME", "  db.example.com ")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("WORKER_COUNT", "-3")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "db.example.com", cfg.DB2Hostname)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 2, cfg.WorkerCount, "non-positive values fall back to defaults")
}

func TestLoad_PasswordFallback(t *testing.T) {
	t.Setenv("DB2_PASSWORD", "")
	t.Setenv("PASSWORD", "from-generic")

	cfg := Load()
	assert.Equal(t, "from-generic", cfg.DB2Password)

	t.Setenv("DB2_PASSWORD", "specific")
	cfg = Load()
	assert.Equal(t, "specific", cfg.DB2Password)
}

func TestLoadFile_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.yaml")
	content := `port: "7000"
backend: sqlite
sqlite_path: /tmp/relay.db
poll_interval: 2s
wxo_agent_id: agent-from-file
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("WXO_AGENT_ID", "agent-from-env")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "/tmp/relay.db", cfg.SQLitePath)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, "agent-from-env", cfg.WXOAgentID)
	assert.Equal(t, "WXO_LOG", cfg.Table)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unclosed"), 0o600))
	_, err = LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "db2 complete",
			mutate: func(c *Config) {
				c.DB2Hostname, c.DB2UserID, c.DB2Password = "h", "u", "p"
			},
		},
		{
			name:    "db2 missing host",
			mutate:  func(c *Config) { c.DB2UserID, c.DB2Password = "u", "p" },
			wantErr: "DB2_HOSTNAME",
		},
		{
			name:    "db2 missing password",
			mutate:  func(c *Config) { c.DB2Hostname, c.DB2UserID = "h", "u" },
			wantErr: "DB2_PASSWORD",
		},
		{
			name:   "sqlite",
			mutate: func(c *Config) { c.Backend = BackendSQLite },
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Backend = "oracle" },
			wantErr: "unknown DB_BACKEND",
		},
		{
			name: "api key without instance",
			mutate: func(c *Config) {
				c.Backend = BackendSQLite
				c.IBMCloudAPIKey = "key"
			},
			wantErr: "WXO_INSTANCE_ID",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestQualifiedTable(t *testing.T) {
	cfg := Default()
	assert.Equal(t, `"WXO_LOG"`, cfg.QualifiedTable())

	cfg.Schema = "CLD47628"
	assert.Equal(t, `"CLD47628"."WXO_LOG"`, cfg.QualifiedTable())

	cfg.Backend = BackendSQLite
	assert.Equal(t, `"WXO_LOG"`, cfg.QualifiedTable())
}

func TestOrchestrateEnabled(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.OrchestrateEnabled())
	cfg.IBMCloudAPIKey = "k"
	cfg.WXOInstanceID = "i"
	assert.True(t, cfg.OrchestrateEnabled())
}
