package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgallion1/chatrelay/internal/api"
	"github.com/dgallion1/chatrelay/internal/evaluate"
	"github.com/dgallion1/chatrelay/internal/orchestrate"
)

type serveOptions struct {
	addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(global *GlobalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat relay HTTP server",
		Long: `Run the relay between the chat widget, the feedback log and the agent.

Feedback is stored in Db2 on Cloud (DB_BACKEND=db2) or a local SQLite file
(DB_BACKEND=sqlite). Evaluation endpoints are enabled when IBM_CLOUD_API_KEY
and WXO_INSTANCE_ID are set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default \":\"+PORT)")

	return cmd
}

func runServe(cmd *cobra.Command, global *GlobalOptions, opts *serveOptions) error {
	cfg, log, err := global.setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, closeRunner, err := openRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRunner()

	deps := api.Deps{Feedback: newFeedbackStore(runner, cfg, log)}

	if cfg.OrchestrateEnabled() {
		deps.Stats = orchestrate.NewStats(statsWindow)
		agent := newAgentClient(cfg, deps.Stats)
		defer agent.Close()

		deps.Evaluator = evaluate.NewEvaluator(agent, cfg.MaxConcurrentAsk, log)
		deps.Jobs = evaluate.NewOrchestrator(cfg, deps.Evaluator, log)
		deps.Jobs.Start(ctx)
		defer deps.Jobs.Stop()
	} else {
		log.Warn("orchestrate credentials not set, evaluation endpoints disabled")
	}

	addr := opts.addr
	if addr == "" {
		addr = ":" + cfg.Port
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv := &http.Server{
		Handler:     api.NewServer(deps, log, cfg),
		ReadTimeout: 30 * time.Second,
		// Synchronous evaluations hold the response until every question
		// is answered.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("chat relay starting",
			zap.String("addr", ln.Addr().String()),
			zap.String("backend", cfg.Backend),
			zap.Bool("auth", cfg.RelayAPIKey != ""),
			zap.Bool("orchestrate", cfg.OrchestrateEnabled()),
		)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if deps.Jobs != nil {
		deps.Jobs.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	return nil
}
