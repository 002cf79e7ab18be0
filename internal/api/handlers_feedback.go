package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dgallion1/chatrelay/internal/feedback"
)

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	body, code, err := readBody(w, r, s.cfg.MaxBodyBytes)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}
	rec, err := feedback.DecodeBody(body)
	if err != nil {
		jsonError(w, "invalid feedback: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.deps.Feedback.Insert(r.Context(), rec)
	if err != nil {
		var sqlErr *feedback.SQLError
		if errors.As(err, &sqlErr) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": sqlErr.Message,
				"jobId": sqlErr.JobID,
			})
			return
		}
		s.log.Error("feedback insert failed", zap.Error(err))
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":   "Successfully inserted",
		"timestamp": res.Timestamp,
		"jobId":     res.JobID,
	})
}

func (s *Server) handleExportLogs(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Feedback.Export(r.Context())
	if err != nil {
		var sqlErr *feedback.SQLError
		if errors.As(err, &sqlErr) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": sqlErr.Message,
				"jobId": sqlErr.JobID,
			})
			return
		}
		s.log.Error("log export failed", zap.Error(err))
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	if err := writeCSV(w, "wxo_logs.csv", doc, false); err != nil {
		s.log.Warn("writing log export", zap.Error(err))
	}
}
