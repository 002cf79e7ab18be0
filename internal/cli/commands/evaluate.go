package commands

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/chatrelay/internal/csvtext"
	"github.com/dgallion1/chatrelay/internal/evaluate"
	"github.com/dgallion1/chatrelay/internal/relayclient"
)

const defaultQuestionsFile = "questions.csv"

type evaluateOptions struct {
	url     string
	apiKey  string
	agentID string
	results bool
}

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand(global *GlobalOptions) *cobra.Command {
	opts := &evaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate [questions.csv] [output.csv]",
		Short: "Run a question set against an agent",
		Long: `Ask every question in a CSV file and write the answers to a report.

The input needs a Question column (質問 and input are also accepted) and may
carry ModelAnswer (模範解答) and Keyword1-3 (必須単語1-3) columns. The report
lists each answer next to its model answer with a keyword check.

With --url the questions go through a running relay. Otherwise the agent is
called directly using IBM_CLOUD_API_KEY and WXO_INSTANCE_ID.

The output defaults to results_<timestamp>.csv.`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, args, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "relay base URL")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "relay API key (default $RELAY_API_KEY)")
	cmd.Flags().StringVar(&opts.agentID, "agent", "", "agent ID (default $WXO_AGENT_ID)")
	cmd.Flags().BoolVar(&opts.results, "results-only", false, "write only Question, Answer and Status")

	return cmd
}

func runEvaluate(cmd *cobra.Command, args []string, global *GlobalOptions, opts *evaluateOptions) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	input := defaultQuestionsFile
	if len(args) > 0 {
		input = args[0]
	}
	output := "results_" + time.Now().Format("20060102_150405") + ".csv"
	if len(args) > 1 {
		output = args[1]
	}

	data, err := os.ReadFile(input) // #nosec G304 -- operator-supplied input path
	if err != nil {
		return fmt.Errorf("read questions: %w", err)
	}
	questions := evaluate.QuestionsFromDocument(csvtext.Parse(string(data)))
	if len(questions) == 0 {
		return fmt.Errorf("no questions found in %s", input)
	}

	cfg, log, err := global.setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	agentID := opts.agentID
	if agentID == "" {
		agentID = cfg.WXOAgentID
	}

	fmt.Fprintf(out, "Evaluating %d questions from %s\n", len(questions), input)

	var results []evaluate.Result
	if opts.url != "" {
		key := opts.apiKey
		if key == "" {
			key = cfg.RelayAPIKey
		}
		c := relayclient.NewClient(opts.url, key)
		defer c.Close()
		if results, err = c.Evaluate(ctx, agentID, questions); err != nil {
			return err
		}
	} else {
		if !cfg.OrchestrateEnabled() {
			return errors.New("IBM_CLOUD_API_KEY and WXO_INSTANCE_ID are required without --url")
		}
		if agentID == "" {
			return errors.New("no agent: pass --agent or set WXO_AGENT_ID")
		}
		agent := newAgentClient(cfg, nil)
		defer agent.Close()

		var mu sync.Mutex
		done := 0
		progress := func(r evaluate.Result) {
			mu.Lock()
			defer mu.Unlock()
			done++
			fmt.Fprintf(out, "[%d/%d] %s: %s\n", done, len(questions), r.Status, truncate(r.Question.Text, 40))
		}
		results = evaluate.NewEvaluator(agent, cfg.MaxConcurrentAsk, log).RunWithProgress(ctx, agentID, questions, progress)
	}

	doc := evaluate.ReportDocument(results)
	if opts.results {
		doc = evaluate.ResultsDocument(results)
	}
	if err := writeCSVFile(output, doc, true); err != nil {
		return err
	}

	sum := evaluate.Summarize(results)
	fmt.Fprintf(out, "Done: %d succeeded, %d skipped, %d failed\n", sum.Succeeded, sum.Skipped, sum.Failed)
	fmt.Fprintf(out, "Results written to %s\n", output)
	return nil
}
