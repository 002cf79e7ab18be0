package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgallion1/chatrelay/internal/config"
	"github.com/dgallion1/chatrelay/internal/csvtext"
	"github.com/dgallion1/chatrelay/internal/db2"
	"github.com/dgallion1/chatrelay/internal/feedback"
	"github.com/dgallion1/chatrelay/internal/localdb"
	"github.com/dgallion1/chatrelay/internal/logging"
	"github.com/dgallion1/chatrelay/internal/orchestrate"
	"github.com/dgallion1/chatrelay/internal/sqljob"
)

// GlobalOptions holds the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
}

// statsWindow is how far back the agent latency stats reach.
const statsWindow = time.Hour

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig reads --config when given, otherwise the environment alone.
func (g *GlobalOptions) loadConfig() (config.Config, error) {
	var cfg config.Config
	if g.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadFile(g.ConfigPath); err != nil {
			return config.Config{}, err
		}
	} else {
		cfg = config.Load()
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	return cfg, nil
}

func (g *GlobalOptions) setup() (config.Config, *zap.Logger, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// openRunner connects the configured SQL job backend. The returned func
// releases it.
func openRunner(ctx context.Context, cfg config.Config) (sqljob.Runner, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := localdb.Open(ctx, cfg.SQLitePath, cfg.QualifiedTable())
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	case config.BackendDB2:
		c := db2.NewClient(db2.Options{
			Hostname:     cfg.DB2Hostname,
			UserID:       cfg.DB2UserID,
			Password:     cfg.DB2Password,
			DeploymentID: cfg.DB2Deploy,
			PollInterval: cfg.PollInterval,
		})
		return c, c.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown DB_BACKEND %q", cfg.Backend)
}

func newFeedbackStore(runner sqljob.Runner, cfg config.Config, log *zap.Logger) *feedback.Store {
	return feedback.NewStore(runner, feedback.Options{
		Table:       cfg.QualifiedTable(),
		InsertPolls: cfg.InsertPolls,
		ExportPolls: cfg.ExportPolls,
		ExportLimit: cfg.ExportLimit,
	}, log)
}

func newAgentClient(cfg config.Config, stats *orchestrate.Stats) *orchestrate.Client {
	return orchestrate.NewClient(
		orchestrate.NewTokenSource(cfg.IBMCloudAPIKey, cfg.IAMURL),
		orchestrate.Options{
			APIHost:    cfg.WXOAPIHost,
			InstanceID: cfg.WXOInstanceID,
			Stats:      stats,
		},
	)
}

// writeCSVFile writes doc with a byte order mark so spreadsheet tools read
// it as UTF-8.
func writeCSVFile(path string, doc csvtext.Document, quoteAll bool) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path) // #nosec G304 -- operator-supplied output path
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	w := csvtext.NewWriter(f)
	w.ByteOrderMark = true
	w.AlwaysQuote = quoteAll
	if err := w.WriteAll(doc); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
