package relayclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dgallion1/chatrelay/internal/api"
	"github.com/dgallion1/chatrelay/internal/config"
	"github.com/dgallion1/chatrelay/internal/evaluate"
	"github.com/dgallion1/chatrelay/internal/feedback"
	"github.com/dgallion1/chatrelay/internal/localdb"
)

type upperAsker struct{}

func (upperAsker) Ask(_ context.Context, _, q string) (string, error) {
	return strings.ToUpper(q), nil
}

func newRelay(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	log := zaptest.NewLogger(t)
	cfg := config.Default()
	cfg.Backend = config.BackendSQLite
	cfg.RelayAPIKey = apiKey
	cfg.WXOAgentID = "default-agent"

	db, err := localdb.Open(context.Background(), filepath.Join(t.TempDir(), "relay.db"), cfg.QualifiedTable())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	deps := api.Deps{
		Feedback:  feedback.NewStore(db, feedback.Options{Table: cfg.QualifiedTable()}, log),
		Evaluator: evaluate.NewEvaluator(upperAsker{}, 2, log),
	}
	srv := httptest.NewServer(api.NewServer(deps, log, cfg))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_FeedbackThenExport(t *testing.T) {
	srv := newRelay(t, "")
	c := NewClient(srv.URL+"/", "")
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	res, err := c.SendFeedback(ctx, feedback.Record{
		ID:         "u1",
		Name:       "Tanaka",
		Question:   "経費精算の締め日は?",
		Answer:     "毎月25日です。\n\"詳細\"は規程を参照",
		IsPositive: 1,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.JobID)
	assert.NotEmpty(t, res.Timestamp)

	doc, err := c.ExportLogs(ctx)
	require.NoError(t, err)
	require.Len(t, doc, 2)
	assert.Equal(t, "id", doc[0][0])
	assert.Equal(t, "経費精算の締め日は?", doc[1].Field(4))
	assert.Equal(t, "毎月25日です。\n\"詳細\"は規程を参照", doc[1].Field(5))
}

func TestClient_EvaluateCarriesLocalQuestions(t *testing.T) {
	srv := newRelay(t, "")
	c := NewClient(srv.URL, "")

	questions := []evaluate.Question{
		{Text: "alpha", ModelAnswer: "ALPHA", Keywords: [3]string{"ALPHA", "beta"}},
		{Text: "   "},
		{Text: "line,with \"quotes\""},
	}
	results, err := c.Evaluate(context.Background(), "", questions)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "ALPHA", results[0].Answer)
	assert.Equal(t, evaluate.StatusSuccess, results[0].Status)
	assert.Equal(t, "〇,×,-", results[0].KeywordCheck())
	assert.Equal(t, evaluate.StatusSkipped, results[1].Status)
	assert.Equal(t, "LINE,WITH \"QUOTES\"", results[2].Answer)
}

func TestClient_StatusErrors(t *testing.T) {
	srv := newRelay(t, "secret")

	_, err := NewClient(srv.URL, "wrong").ExportLogs(context.Background())
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "export logs", se.Op)

	_, err = NewClient(srv.URL, "secret").ExportLogs(context.Background())
	assert.NoError(t, err)
}

func TestClient_PlainTextErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").Health(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "upstream down", se.Message)
}
