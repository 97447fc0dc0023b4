package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docmark/internal/report"
	"github.com/dgallion1/docmark/internal/store"
)

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	recs, err := s.orchestrator.Store().ListAnalyses(100)
	if err != nil {
		s.log.Error("list analyses failed", "error", err)
		jsonError(w, "failed to list results", http.StatusInternalServerError)
		return
	}

	type item struct {
		Hash      string `json:"hash"`
		Title     string `json:"title"`
		Filename  string `json:"filename"`
		PageCount int    `json:"page_count"`
		Placed    int    `json:"placed"`
		CreatedAt string `json:"created_at"`
	}
	items := make([]item, 0, len(recs))
	for _, rec := range recs {
		items = append(items, item{
			Hash:      rec.Hash,
			Title:     rec.Title,
			Filename:  rec.Filename,
			PageCount: rec.PageCount,
			Placed:    rec.Summary.Placed,
			CreatedAt: rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"results": items})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, chi.URLParam(r, "hash"))
}

func (s *Server) handleGetPDF(w http.ResponseWriter, r *http.Request) {
	s.writePDF(w, chi.URLParam(r, "hash"))
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	s.writeReport(w, r, chi.URLParam(r, "hash"))
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if err := s.orchestrator.Store().DeleteAnalysis(hash); err != nil {
		s.log.Error("delete analysis failed", "hash", hash, "error", err)
		jsonError(w, "failed to delete result", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"deleted": hash})
}

// resolveJobHash maps a job ID to its document hash once the run has
// produced one. An unfinished job is a conflict, not an error.
func (s *Server) resolveJobHash(w http.ResponseWriter, r *http.Request) (string, bool) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return "", false
	}
	snap := job.Snapshot()
	if snap.ContentHash == "" {
		jsonError(w, fmt.Sprintf("job is %s, no result yet", snap.Status), http.StatusConflict)
		return "", false
	}
	return snap.ContentHash, true
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	if hash, ok := s.resolveJobHash(w, r); ok {
		s.writeResult(w, hash)
	}
}

func (s *Server) handleJobPDF(w http.ResponseWriter, r *http.Request) {
	if hash, ok := s.resolveJobHash(w, r); ok {
		s.writePDF(w, hash)
	}
}

func (s *Server) handleJobReport(w http.ResponseWriter, r *http.Request) {
	if hash, ok := s.resolveJobHash(w, r); ok {
		s.writeReport(w, r, hash)
	}
}

func (s *Server) writeResult(w http.ResponseWriter, hash string) {
	rec, ok := s.lookupAnalysis(w, hash)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"hash":       rec.Hash,
		"title":      rec.Title,
		"filename":   rec.Filename,
		"page_count": rec.PageCount,
		"model":      rec.Model,
		"summary":    rec.Summary,
		"detections": rec.Detections,
		"highlights": rec.Placed,
	})
}

func (s *Server) writePDF(w http.ResponseWriter, hash string) {
	data, err := s.orchestrator.Store().GetPDF(hash)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "result not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("get pdf failed", "hash", hash, "error", err)
		jsonError(w, "failed to load pdf", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s-highlighted.pdf"`, hash[:min(12, len(hash))]))
	w.Write(data)
}

func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, hash string) {
	rec, ok := s.lookupAnalysis(w, hash)
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "html" {
		html, err := report.ToHTML(rec.Report)
		if err != nil {
			s.log.Error("report html render failed", "hash", rec.Hash, "error", err)
			jsonError(w, "failed to render report", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(rec.Report))
}

func (s *Server) lookupAnalysis(w http.ResponseWriter, hash string) (*store.Analysis, bool) {
	rec, err := s.orchestrator.Store().GetAnalysis(hash)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "result not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.log.Error("get analysis failed", "hash", hash, "error", err)
		jsonError(w, "failed to load result", http.StatusInternalServerError)
		return nil, false
	}
	return rec, true
}
