package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dgallion1/chatrelay/internal/evaluate"
)

type evaluateRequest struct {
	AgentID   string         `json:"agent_id"`
	Questions []questionItem `json:"questions"`
}

// questionItem is either a bare question string or an object carrying the
// model answer and keywords. Any other JSON value is an empty question.
type questionItem evaluate.Question

func (q *questionItem) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) > 0 && b[0] == '"':
		return json.Unmarshal(b, &q.Text)
	case len(b) > 0 && b[0] == '{':
		var obj struct {
			Question    string   `json:"question"`
			ModelAnswer string   `json:"model_answer"`
			Keywords    []string `json:"keywords"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		q.Text = obj.Question
		q.ModelAnswer = obj.ModelAnswer
		copy(q.Keywords[:], obj.Keywords)
		return nil
	}
	*q = questionItem{}
	return nil
}

// decodeEvaluation validates an evaluation request. On failure it returns
// the response status and message.
func (s *Server) decodeEvaluation(w http.ResponseWriter, r *http.Request) (string, []evaluate.Question, int, error) {
	body, code, err := readBody(w, r, s.cfg.MaxBodyBytes)
	if err != nil {
		return "", nil, code, err
	}
	var req evaluateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", nil, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err)
	}

	agentID := strings.TrimSpace(req.AgentID)
	if agentID == "" {
		agentID = s.cfg.WXOAgentID
	}
	if agentID == "" {
		return "", nil, http.StatusBadRequest, errors.New("missing required parameter: agent_id")
	}
	if len(req.Questions) == 0 {
		return "", nil, http.StatusBadRequest, errors.New("no questions provided")
	}
	if len(req.Questions) > s.cfg.MaxQuestions {
		return "", nil, http.StatusBadRequest, fmt.Errorf("too many questions (%d > %d)", len(req.Questions), s.cfg.MaxQuestions)
	}

	questions := make([]evaluate.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = evaluate.Question(q)
	}
	return agentID, questions, 0, nil
}

const orchestrateMissing = "Missing required environment variables (IBM_CLOUD_API_KEY, WXO_INSTANCE_ID)"

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Evaluator == nil {
		jsonError(w, orchestrateMissing, http.StatusInternalServerError)
		return
	}
	agentID, questions, code, err := s.decodeEvaluation(w, r)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}

	results := s.deps.Evaluator.Run(r.Context(), agentID, questions)
	sum := evaluate.Summarize(results)
	s.log.Info("evaluation served",
		zap.String("agent_id", agentID),
		zap.Int("questions", sum.Total),
		zap.Int("failed", sum.Failed),
	)

	if err := writeCSV(w, "wxo_results.csv", evaluate.ResultsDocument(results), true); err != nil {
		s.log.Warn("writing evaluation results", zap.Error(err))
	}
}

func (s *Server) handleSubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		jsonError(w, orchestrateMissing, http.StatusInternalServerError)
		return
	}
	agentID, questions, code, err := s.decodeEvaluation(w, r)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}

	job, err := s.deps.Jobs.Submit(agentID, questions)
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   evaluate.StatusQueued,
		"poll_url": fmt.Sprintf("/api/evaluate/jobs/%s", job.ID),
	})
}

func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request) *evaluate.Job {
	if s.deps.Jobs == nil {
		jsonError(w, orchestrateMissing, http.StatusInternalServerError)
		return nil
	}
	job := s.deps.Jobs.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return nil
	}
	return job
}

func (s *Server) handleEvaluationStatus(w http.ResponseWriter, r *http.Request) {
	job := s.lookupJob(w, r)
	if job == nil {
		return
	}
	snap := job.Snapshot()
	resp := map[string]any{
		"job_id":   snap.ID,
		"agent_id": snap.AgentID,
		"status":   snap.Status,
		"progress": snap.Progress,
	}
	if snap.Error != "" {
		resp["error"] = snap.Error
	}
	if snap.Status == evaluate.StatusCompleted {
		resp["results_url"] = fmt.Sprintf("/api/evaluate/jobs/%s/results", snap.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEvaluationResults serves the keyword report, or the three-column
// results with ?format=results.
func (s *Server) handleEvaluationResults(w http.ResponseWriter, r *http.Request) {
	job := s.lookupJob(w, r)
	if job == nil {
		return
	}
	results, ok := job.Results()
	if !ok {
		jsonError(w, fmt.Sprintf("job is %s", job.Snapshot().Status), http.StatusConflict)
		return
	}

	doc, name := evaluate.ReportDocument(results), "wxo_report.csv"
	if r.URL.Query().Get("format") == "results" {
		doc, name = evaluate.ResultsDocument(results), "wxo_results.csv"
	}
	if err := writeCSV(w, name, doc, true); err != nil {
		s.log.Warn("writing evaluation report", zap.Error(err))
	}
}
