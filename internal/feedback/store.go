package feedback

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgallion1/chatrelay/internal/csvtext"
	"github.com/dgallion1/chatrelay/internal/sqljob"
)

// TimestampLayout is the Db2 TIMESTAMP literal format used for new rows.
const TimestampLayout = "2006-01-02 15:04:05.000"

var columns = []string{"id", "garoonId", "name", "timestamp", "question", "answer", "isPositive", "categories", "text"}

// SQLError is a statement failure reported by the SQL backend.
type SQLError struct {
	JobID   string
	Message string
}

func (e *SQLError) Error() string {
	return fmt.Sprintf("sql job %s: %s", e.JobID, e.Message)
}

// InsertResult describes a stored record.
type InsertResult struct {
	JobID     string `json:"jobId"`
	Timestamp string `json:"timestamp"`
}

type Options struct {
	Table       string // quoted, optionally schema-qualified
	InsertPolls int
	ExportPolls int
	ExportLimit int
}

// Store writes and reads feedback through a sqljob.Runner.
type Store struct {
	runner sqljob.Runner
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(runner sqljob.Runner, opts Options, logger *zap.Logger) *Store {
	if opts.InsertPolls <= 0 {
		opts.InsertPolls = 5
	}
	if opts.ExportPolls <= 0 {
		opts.ExportPolls = 10
	}
	if opts.ExportLimit <= 0 {
		opts.ExportLimit = 5000
	}
	return &Store{runner: runner, opts: opts, logger: logger, now: time.Now}
}

// Insert stores rec with a server-generated UTC timestamp.
func (s *Store) Insert(ctx context.Context, rec Record) (InsertResult, error) {
	ts := s.now().UTC().Format(TimestampLayout)

	cmd := insertStatement(s.opts.Table, rec, ts)
	res, err := s.runner.Run(ctx, cmd, 1, s.opts.InsertPolls)
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert feedback: %w", err)
	}
	if res.Error != "" {
		s.logger.Warn("feedback insert failed",
			zap.String("job_id", res.JobID),
			zap.String("sql_error", res.Error),
		)
		return InsertResult{JobID: res.JobID}, &SQLError{JobID: res.JobID, Message: res.Error}
	}
	if !res.Completed {
		s.logger.Warn("feedback insert still running after last poll",
			zap.String("job_id", res.JobID),
			zap.Int("polls", s.opts.InsertPolls),
		)
	}
	s.logger.Info("feedback stored",
		zap.String("job_id", res.JobID),
		zap.String("user", rec.ID),
		zap.Int("is_positive", int(rec.IsPositive)),
	)
	return InsertResult{JobID: res.JobID, Timestamp: ts}, nil
}

func insertStatement(table string, rec Record, ts string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = `"` + c + `"`
	}
	lit := func(v string) string { return "'" + sqljob.EscapeLiteral(v) + "'" }
	values := []string{
		lit(rec.ID),
		lit(string(rec.GaroonID)),
		lit(rec.Name),
		lit(ts),
		lit(rec.Question),
		lit(rec.Answer),
		strconv.Itoa(int(rec.IsPositive)),
		lit(rec.Categories),
		lit(rec.Text),
	}
	return "INSERT INTO " + table + " (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(values, ", ") + ")"
}

// Export returns every stored row, newest first, with a header row when the
// backend reported column names.
func (s *Store) Export(ctx context.Context) (csvtext.Document, error) {
	cmd := `SELECT * FROM ` + s.opts.Table + ` ORDER BY "timestamp" DESC`
	res, err := s.runner.Run(ctx, cmd, s.opts.ExportLimit, s.opts.ExportPolls)
	if err != nil {
		return nil, fmt.Errorf("export feedback: %w", err)
	}
	if res.Error != "" {
		return nil, &SQLError{JobID: res.JobID, Message: res.Error}
	}
	if !res.Completed {
		s.logger.Warn("feedback export incomplete after last poll",
			zap.String("job_id", res.JobID),
			zap.Int("rows", len(res.Rows)),
		)
	}

	doc := make(csvtext.Document, 0, len(res.Rows)+1)
	if len(res.Columns) > 0 {
		doc = append(doc, csvtext.Record(res.Columns))
	}
	for _, row := range res.Rows {
		doc = append(doc, csvtext.Record(row))
	}
	return doc, nil
}
