package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/chatrelay/internal/evaluate"
)

type askOptions struct {
	agentID string
	plain   bool
}

// NewAskCommand creates the ask command.
func NewAskCommand(global *GlobalOptions) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Send a single question to the agent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, args, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.agentID, "agent", "", "agent ID (default $WXO_AGENT_ID)")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "strip Markdown from the answer")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string, global *GlobalOptions, opts *askOptions) error {
	cfg, log, err := global.setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if !cfg.OrchestrateEnabled() {
		return errors.New("IBM_CLOUD_API_KEY and WXO_INSTANCE_ID are required")
	}
	agentID := opts.agentID
	if agentID == "" {
		agentID = cfg.WXOAgentID
	}
	if agentID == "" {
		return errors.New("no agent: pass --agent or set WXO_AGENT_ID")
	}

	agent := newAgentClient(cfg, nil)
	defer agent.Close()

	answer, err := agent.Ask(commandContext(cmd), agentID, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if opts.plain {
		answer = evaluate.PlainText(answer)
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}
