package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgallion1/chatrelay/internal/csvtext"
	"github.com/dgallion1/chatrelay/internal/relayclient"
)

type logsOptions struct {
	url     string
	apiKey  string
	output  string
	preview int
}

// NewLogsCommand creates the logs command.
func NewLogsCommand(global *GlobalOptions) *cobra.Command {
	opts := &logsOptions{}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Export the feedback log",
		Long: `Export the feedback log as CSV, newest first.

With --url the log is fetched from a running relay. Otherwise the configured
database is queried directly. Without --output a preview is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "relay base URL")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "relay API key (default $RELAY_API_KEY)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the CSV to this file")
	cmd.Flags().IntVar(&opts.preview, "preview", 10, "rows to print when no output file is given")

	return cmd
}

func runLogs(cmd *cobra.Command, global *GlobalOptions, opts *logsOptions) error {
	ctx := commandContext(cmd)
	cfg, log, err := global.setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	var doc csvtext.Document
	if opts.url != "" {
		key := opts.apiKey
		if key == "" {
			key = cfg.RelayAPIKey
		}
		c := relayclient.NewClient(opts.url, key)
		defer c.Close()
		if doc, err = c.ExportLogs(ctx); err != nil {
			return err
		}
	} else {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		runner, closeRunner, err := openRunner(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeRunner()
		if doc, err = newFeedbackStore(runner, cfg, log).Export(ctx); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	rows := max(len(doc)-1, 0)
	if opts.output != "" {
		if err := writeCSVFile(opts.output, doc, false); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d rows to %s\n", rows, opts.output)
		return nil
	}

	fmt.Fprintf(out, "%d rows\n", rows)
	if len(doc) == 0 || opts.preview <= 0 {
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, rec := range doc {
		if i > opts.preview {
			break
		}
		cells := make([]string, len(rec))
		for j, f := range rec {
			cells[j] = truncate(strings.ReplaceAll(f, "\n", " "), 30)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
