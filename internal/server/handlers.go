package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/textsim/internal/batch"
	"github.com/hyperjump/textsim/internal/embedding"
	"github.com/hyperjump/textsim/internal/examples"
	"github.com/hyperjump/textsim/internal/export"
	"github.com/hyperjump/textsim/internal/history"
	"github.com/hyperjump/textsim/internal/models"
	"github.com/hyperjump/textsim/internal/registry"
	"github.com/hyperjump/textsim/internal/storage"
	"github.com/hyperjump/textsim/internal/textproc"
	"github.com/hyperjump/textsim/pkg/utils"
)

type compareRequest struct {
	Text1            string `json:"text1"`
	Text2            string `json:"text2"`
	Model            string `json:"model"`
	Lowercase        *bool  `json:"lowercase"`
	StripPunctuation *bool  `json:"strip_punctuation"`
}

type batchRequest struct {
	Pairs            []models.TextPair `json:"pairs"`
	Model            string            `json:"model"`
	Lowercase        *bool             `json:"lowercase"`
	StripPunctuation *bool             `json:"strip_punctuation"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	loaded := []string{}
	for _, d := range s.engine.Loader().Loaded() {
		loaded = append(loaded, d.ID)
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"models":  registry.All(),
		"default": s.defaultModel(),
		"loaded":  loaded,
	})
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"examples":   examples.Pairs(),
		"sample_csv": examples.SampleCSV,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	model := s.modelOrDefault(req.Model)
	s.logger.Debug("compare request", zap.String("model", model),
		zap.Int("text1_chars", utils.RuneCount(req.Text1)), zap.Int("text2_chars", utils.RuneCount(req.Text2)))

	res, err := s.engine.Compare(r.Context(), model, req.Text1, req.Text2, s.options(req.Lowercase, req.StripPunctuation))
	if err != nil {
		s.fail(w, "compare failed", err)
		return
	}
	id, buf := s.sessions.Get(r.Header.Get(SessionHeader))
	buf.Record(res)
	w.Header().Set(SessionHeader, id)
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.engine.Compare(r.Context(), s.modelOrDefault(req.Model), req.Text1, req.Text2, s.options(req.Lowercase, req.StripPunctuation))
	if err != nil {
		s.fail(w, "report failed", err)
		return
	}
	var buf bytes.Buffer
	if err := export.Report(&buf, res, req.Text1, req.Text2); err != nil {
		s.fail(w, "report failed", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment("similarity_report", res.Timestamp, "txt"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, "batch failed", err)
		return
	}

	var (
		pairs []models.TextPair
		model = r.URL.Query().Get("model")
		opts  textproc.Options
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			s.uploadFailed(w, err)
			return
		}
		defer file.Close()
		pairs, err = batch.Read(header.Filename, file, s.config.Batch.MaxRows)
		if err != nil {
			s.fail(w, "batch upload rejected", err)
			return
		}
		if v := r.FormValue("model"); v != "" {
			model = v
		}
		opts = s.options(formBool(r, "lowercase"), formBool(r, "strip_punctuation"))
	} else {
		var req batchRequest
		if err := s.decodeJSON(w, r, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if limit := s.config.Batch.MaxRows; limit > 0 && len(req.Pairs) > limit {
			s.fail(w, "batch rejected", fmt.Errorf("%w: more than %d rows", models.ErrInvalidInput, limit))
			return
		}
		pairs = req.Pairs
		if req.Model != "" {
			model = req.Model
		}
		opts = s.options(req.Lowercase, req.StripPunctuation)
	}

	res, err := s.runner.Run(r.Context(), s.modelOrDefault(model), pairs, opts)
	if err != nil {
		s.fail(w, "batch failed", err)
		return
	}
	if format == export.FormatJSON {
		s.respondJSON(w, http.StatusOK, res)
		return
	}
	var buf bytes.Buffer
	if err := export.Batch(&buf, format, res); err != nil {
		s.fail(w, "batch export failed", err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", attachment("batch_results", res.CreatedAt, string(format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.uploadFailed(w, err)
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	text, err := s.extractor.ExtractBytes(content, filepath.Ext(header.Filename))
	if err != nil {
		s.fail(w, "extract failed", err)
		return
	}
	chars := utils.RuneCount(text)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"filename":   header.Filename,
		"text":       text,
		"characters": chars,
		"too_long":   chars > s.engine.MaxTextLength(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(SessionHeader)
	entries := []*models.ComparisonResult{}
	capacity := history.DefaultCapacity
	if buf, ok := s.sessions.Lookup(id); ok {
		entries = buf.Snapshot()
		capacity = buf.Capacity()
	}
	if r.URL.Query().Get("format") == string(export.FormatCSV) {
		var out bytes.Buffer
		if err := export.HistoryCSV(&out, entries); err != nil {
			s.fail(w, "history export failed", err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", attachment("similarity_history", time.Now(), "csv"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out.Bytes())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": id,
		"capacity":   capacity,
		"entries":    entries,
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if buf, ok := s.sessions.Lookup(r.Header.Get(SessionHeader)); ok {
		buf.Clear()
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	loaded := []string{}
	caches := map[string]embedding.CacheStats{}
	providers := map[string]string{}
	for _, d := range s.engine.Loader().Loaded() {
		loaded = append(loaded, d.ID)
		h, err := s.engine.Loader().Get(r.Context(), d.ID)
		if err != nil {
			continue
		}
		providers[d.ID] = h.Provider
		if c, ok := h.Embedder.(cacheReporter); ok {
			caches[d.ID] = c.CacheStats()
		}
	}
	resp := map[string]interface{}{
		"loaded_models": loaded,
		"providers":     providers,
		"caches":        caches,
		"sessions":      s.sessions.Len(),
	}
	if s.store != nil {
		n, err := s.store.CountEmbeddings(r.Context())
		if err != nil {
			s.logger.Error("status: count embeddings failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["stored_embeddings"] = n
	}
	if s.watch != nil {
		resp["watch_directories"] = s.watch.Directories()
	}

	configInfo := map[string]interface{}{
		"provider":        s.config.Embedding.Provider,
		"fallback":        s.config.Embedding.Fallback,
		"default_model":   s.defaultModel(),
		"max_text_length": s.engine.MaxTextLength(),
		"batch_workers":   s.config.Batch.Workers,
		"batch_max_rows":  s.config.Batch.MaxRows,
		"database_path":   s.config.Storage.DatabasePath,
	}
	if db := s.config.Storage.DatabasePath; db != "" {
		if n, err := storage.DiskUsageBytes(db, db+"-wal", db+"-shm"); err == nil {
			resp["disk_usage_bytes"] = n
		}
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

type cacheReporter interface {
	CacheStats() embedding.CacheStats
}

func (s *Server) defaultModel() string {
	if s.config.Similarity.DefaultModel != "" {
		return s.config.Similarity.DefaultModel
	}
	return registry.DefaultModelID
}

func (s *Server) modelOrDefault(id string) string {
	if id == "" {
		return s.defaultModel()
	}
	return id
}

// options applies request overrides to the configured preprocessing defaults.
func (s *Server) options(lowercase, stripPunctuation *bool) textproc.Options {
	opts := textproc.Options{
		Lowercase:        s.config.Similarity.Lowercase,
		StripPunctuation: s.config.Similarity.StripPunctuation,
	}
	if lowercase != nil {
		opts.Lowercase = *lowercase
	}
	if stripPunctuation != nil {
		opts.StripPunctuation = *stripPunctuation
	}
	return opts
}

func formBool(r *http.Request, key string) *bool {
	v := r.FormValue(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func attachment(prefix string, t time.Time, ext string) string {
	return fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s_%s.%s", prefix, t.Format("20060102_150405"), ext))
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrSchema),
		errors.Is(err, models.ErrUnknownModel),
		errors.Is(err, models.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrModelLoad):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// uploadFailed answers a multipart upload that could not be read. A body over
// server.max_upload_bytes is 413; a missing or malformed file field is 400.
func (s *Server) uploadFailed(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		s.fail(w, "upload rejected", err)
	case errors.Is(err, http.ErrMissingFile):
		s.respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
	default:
		s.respondError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
	}
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
