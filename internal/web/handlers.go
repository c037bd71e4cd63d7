package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/staffimport/internal/core"
	"github.com/JonMunkholm/staffimport/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is the room left for form boundaries and headers on
// top of the file size limit.
const multipartOverhead = 64 << 10

const defaultBatchLimit = 50

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"imports": s.service.LimiterStatus(),
	})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	name, body := s.service.Template()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	io.WriteString(w, body)
}

// handlePreview parses the uploaded file and reports rows and row errors
// without storing anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	file, name, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	preview, err := s.service.Preview(r.Context(), name, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		renderHTML(w, r, http.StatusOK, templates.PreviewTable(previewParams(preview, s.service.Profile())))
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// handleSubmit stores the uploaded file as one batch, or rejects it with
// every row error when any row is invalid.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	file, name, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	ctx := WithRequestMetadata(r.Context(), r)
	result, err := s.service.Submit(ctx, name, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		renderHTML(w, r, http.StatusCreated, templates.ImportResult(templates.ImportResultParams{
			BatchID:  result.BatchID,
			FileName: result.FileName,
			Inserted: result.Inserted,
		}))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"batch_id":    result.BatchID,
		"file_name":   result.FileName,
		"inserted":    result.Inserted,
		"duration_ms": result.Duration.Milliseconds(),
	})
}

func (s *Server) handleListEngineers(w http.ResponseWriter, r *http.Request) {
	engineers, err := s.service.ListEngineers(r.Context(), engineerFilter(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, engineers)
}

func (s *Server) handleExportEngineers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="engineers.csv"`)
	if err := s.service.ExportEngineers(r.Context(), w, engineerFilter(r)); err != nil {
		w.Header().Del("Content-Disposition")
		s.respondError(w, r, err)
	}
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.service.ListBatches(r.Context(), parseIntParam(r, "limit", defaultBatchLimit))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.RollbackBatch(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// formFile returns the multipart "file" part and its client file name,
// enforcing the upload size limit.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, string, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, "", fmt.Errorf("%w: %v", core.ErrFileTooLarge, err)
		}
		return nil, "", fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errNoFile, err)
	}
	return file, header.Filename, nil
}

func engineerFilter(r *http.Request) core.EngineerFilter {
	q := r.URL.Query()
	return core.EngineerFilter{
		Status: q.Get("status"),
		Skill:  q.Get("skill"),
		Query:  q.Get("q"),
		Limit:  parseIntParam(r, "limit", 0),
	}
}

// parseIntParam parses a positive integer query parameter, falling back
// to defaultVal.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
