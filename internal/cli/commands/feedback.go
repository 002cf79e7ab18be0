package commands

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dgallion1/chatrelay/internal/feedback"
	"github.com/dgallion1/chatrelay/internal/relayclient"
)

type feedbackOptions struct {
	url      string
	user     string
	name     string
	question string
	answer   string
	negative bool
	category string
	comment  string
}

// NewFeedbackCommand creates the feedback command.
func NewFeedbackCommand(global *GlobalOptions) *cobra.Command {
	opts := &feedbackOptions{}

	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record a feedback row",
		Long: `Record one feedback row, either through a running relay (--url) or
straight into the configured database. Useful for checking a deployment end
to end.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeedback(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "relay base URL")
	cmd.Flags().StringVar(&opts.user, "user", "", "user ID (default a random UUID)")
	cmd.Flags().StringVar(&opts.name, "name", "chatrelay-cli", "user display name")
	cmd.Flags().StringVarP(&opts.question, "question", "q", "", "question text")
	cmd.Flags().StringVarP(&opts.answer, "answer", "a", "", "answer text")
	cmd.Flags().BoolVar(&opts.negative, "negative", false, "record a thumbs-down")
	cmd.Flags().StringVar(&opts.category, "categories", "", "comma separated reasons for a thumbs-down")
	cmd.Flags().StringVar(&opts.comment, "comment", "", "free text for a thumbs-down")

	return cmd
}

func runFeedback(cmd *cobra.Command, global *GlobalOptions, opts *feedbackOptions) error {
	if opts.question == "" {
		return errors.New("--question is required")
	}
	ctx := commandContext(cmd)
	cfg, log, err := global.setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	user := opts.user
	if user == "" {
		user = uuid.NewString()
	}
	rec := feedback.Record{
		ID:         user,
		Name:       opts.name,
		Question:   opts.question,
		Answer:     opts.answer,
		IsPositive: 1,
	}
	if opts.negative {
		rec.IsPositive = 0
		rec.Categories = opts.category
		rec.Text = opts.comment
	}

	var res feedback.InsertResult
	if opts.url != "" {
		c := relayclient.NewClient(opts.url, "")
		defer c.Close()
		res, err = c.SendFeedback(ctx, rec)
	} else {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		runner, closeRunner, openErr := openRunner(ctx, cfg)
		if openErr != nil {
			return openErr
		}
		defer closeRunner()
		res, err = newFeedbackStore(runner, cfg, log).Insert(ctx, rec)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Inserted at %s (job %s)\n", res.Timestamp, res.JobID)
	return nil
}
