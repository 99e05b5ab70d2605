package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"jpk2json-service/internal/domain"
	"jpk2json-service/internal/infra/api"
	"jpk2json-service/internal/usecase"

	"github.com/go-chi/chi/v5"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto HTTP status codes so callers can
// tell a rejected request from a broken service.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotApproved), errors.Is(err, domain.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotReady), errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrQueueFull):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

type uploadResponse struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	res, err := s.convertUC.Upload(r.Context(), usecase.UploadRequest{
		Identity: api.IdentityFrom(r.Context()),
		ClientIP: api.ClientIPFrom(r.Context()),
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, uploadResponse{
		JobID:    res.JobID,
		Filename: res.Filename,
		Message:  res.Message,
	})
}

type batchItemResponse struct {
	Filename string `json:"filename"`
	JobID    string `json:"job_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// handleBatchUpload accepts several files in one request. Each file goes
// through the same intake pipeline independently, so one rejected file
// does not sink the rest of the batch.
func (s *Server) handleBatchUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Converter.MaxUploadBytes*4)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, fmt.Errorf("%w: malformed multipart body", domain.ErrInvalidArgument))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, fmt.Errorf("%w: no files in request", domain.ErrInvalidArgument))
		return
	}

	items := make([]batchItemResponse, 0, len(headers))
	for _, h := range headers {
		item := batchItemResponse{Filename: h.Filename}
		f, err := h.Open()
		if err != nil {
			item.Error = "unreadable file part"
			items = append(items, item)
			continue
		}
		res, err := s.convertUC.Upload(r.Context(), usecase.UploadRequest{
			Identity: api.IdentityFrom(r.Context()),
			ClientIP: api.ClientIPFrom(r.Context()),
			Filename: h.Filename,
			Size:     h.Size,
			Content:  f,
		})
		f.Close()
		if err != nil {
			item.Error = err.Error()
		} else {
			item.JobID = res.JobID
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"results": items})
}

func (s *Server) openUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	// one extra MiB of headroom for the multipart framing
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Converter.MaxUploadBytes+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: missing file field", domain.ErrInvalidArgument))
		return nil, nil, false
	}
	return file, header, true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.convertUC.Status(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	path, name, err := s.convertUC.Download(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, path)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if err := s.convertUC.Cleanup(r.Context(), chi.URLParam(r, "jobID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Job cleaned up successfully"})
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.convertUC.QueueStats(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type blacklistEntryRequest struct {
	Entry string `json:"entry"`
}

func (s *Server) handleBlacklistList(w http.ResponseWriter, r *http.Request) {
	entries := s.blockUC.List(r.Context())
	if entries == nil {
		entries = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleBlacklistAdd(w http.ResponseWriter, r *http.Request) {
	var req blacklistEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Entry == "" {
		writeError(w, fmt.Errorf("%w: entry is required", domain.ErrInvalidArgument))
		return
	}
	if err := s.blockUC.Add(r.Context(), req.Entry); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "entry added"})
}

func (s *Server) handleBlacklistRemove(w http.ResponseWriter, r *http.Request) {
	var req blacklistEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Entry == "" {
		writeError(w, fmt.Errorf("%w: entry is required", domain.ErrInvalidArgument))
		return
	}
	if err := s.blockUC.Remove(r.Context(), req.Entry); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "entry removed"})
}

func (s *Server) handleBlacklistReload(w http.ResponseWriter, r *http.Request) {
	if err := s.blockUC.Reload(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "blacklist reloaded"})
}
