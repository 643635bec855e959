package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kitsunelab/atsume/internal/pipeline"
)

// handleTriggerRun runs one full sync pass and returns its report. Only one
// run may be in flight; concurrent triggers get 409.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("run requested")
	report, err := s.pipeline.Run(r.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrBusy) {
			s.respondError(w, http.StatusConflict, "a run is already in progress")
			return
		}
		s.logger.Error("run failed", zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":  err.Error(),
			"report": report,
		})
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("status: store stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"state":   string(s.pipeline.State()),
		"files":   stats.Files,
		"entries": stats.Entries,
		"config": map[string]interface{}{
			"source_folder": s.config.Source.Folder,
			"extensions":    s.config.Source.Extensions,
			"chunk_size":    s.config.Chunking.MaxSize,
			"chunk_overlap": s.config.Chunking.Overlap,
			"store_backend": s.config.Store.Backend,
			"on_change":     s.config.Store.OnChange,
		},
	}
	if last := s.pipeline.LastReport(); last != nil {
		resp["last_run"] = last
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
