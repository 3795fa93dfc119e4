package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"promo-studio-bot/internal/imagegen"
	"promo-studio-bot/internal/jobstore"
	"promo-studio-bot/internal/product"
	"promo-studio-bot/internal/render"
)

const maxBodyBytes = 25 << 20

type CopyGenerator interface {
	Generate(ctx context.Context, p product.Product) product.CopyResult
}

type ImageRunner interface {
	Run(ctx context.Context, p product.Product, cr product.CopyResult, notify func(imagegen.Task)) imagegen.Tasks
	Retry(ctx context.Context, p product.Product, cr product.CopyResult, tasks imagegen.Tasks, style int) (imagegen.Tasks, error)
}

type Options struct {
	Copy     CopyGenerator
	Images   ImageRunner
	Jobs     jobstore.Store
	Renderer *render.Renderer
	// Format is used when a render request does not name one.
	Format         render.Format
	RequestTimeout time.Duration
	AIEnabled      bool
	Logger         *slog.Logger
}

type Server struct {
	copy     CopyGenerator
	images   ImageRunner
	jobs     jobstore.Store
	renderer *render.Renderer
	format   render.Format
	timeout  time.Duration
	ai       bool
	logger   *slog.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.Default()
	}
	format := opts.Format
	if format == "" {
		format = render.FormatPNG
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Server{
		copy:     opts.Copy,
		images:   opts.Images,
		jobs:     opts.Jobs,
		renderer: renderer,
		format:   format,
		timeout:  timeout,
		ai:       opts.AIEnabled,
		logger:   logger,
	}
}

// Handler returns the routed API wrapped in request logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	return withLogging(r, s.logger)
}

func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/copy", s.handleCopy).Methods(http.MethodPost)
	r.HandleFunc("/api/render", s.handleRender).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs", s.handleCreateJob).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}/styles/{style:[0-9]+}/retry", s.handleRetry).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs/{id}/styles/{style:[0-9]+}/render", s.handleJobRender).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
	})
}

type apiError struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
	AI     bool   `json:"ai"`
}

type createJobRequest struct {
	Product ProductPayload      `json:"product"`
	Copy    *product.CopyResult `json:"copy,omitempty"`
}

type renderRequest struct {
	Photo     string `json:"photo,omitempty"`
	Title     string `json:"title"`
	Highlight string `json:"highlight"`
	Style     int    `json:"style"`
	Format    string `json:"format,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", AI: s.ai})
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	var payload ProductPayload
	if !s.decode(w, r, &payload) {
		return
	}
	p, err := payload.Product()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	writeJSON(w, http.StatusOK, s.copy.Generate(ctx, p))
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := req.Product.Product()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	var cr product.CopyResult
	if req.Copy != nil {
		if len(req.Copy.Variants) != product.VariantCount {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "copy must have exactly 3 variants"})
			return
		}
		cr = *req.Copy
		for i := range cr.Variants {
			cr.Variants[i].Bullets = product.NormalizeBullets(cr.Variants[i].Bullets)
		}
		if cr.Source == "" {
			cr.Source = product.SourceTemplate
		}
	} else {
		cr = s.copy.Generate(ctx, p)
	}

	tasks := s.images.Run(ctx, p, cr, nil)
	job := jobstore.NewJob(p, cr, tasks)
	if err := s.jobs.Save(r.Context(), job); err != nil {
		s.logger.Error("save job failed", "job_id", job.ID, "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "failed to save job"})
		return
	}

	s.logger.Info("job created", "job_id", job.ID, "copy_source", cr.Source, "failed_styles", tasks.Failed())
	writeJSON(w, http.StatusCreated, newJobResponse(job))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newJobResponse(job))
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	style, ok := styleParam(w, r)
	if !ok {
		return
	}
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	tasks, err := s.images.Retry(ctx, job.Product, job.Copy, job.Tasks, style)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	if err := s.jobs.SetTask(r.Context(), job.ID, tasks[style]); err != nil {
		s.writeStoreError(w, job.ID, err)
		return
	}

	// Re-read so slots retried concurrently by other requests are reported too.
	job, err = s.jobs.Get(r.Context(), job.ID)
	if err != nil {
		s.writeStoreError(w, mux.Vars(r)["id"], err)
		return
	}
	writeJSON(w, http.StatusOK, newJobResponse(job))
}

func (s *Server) handleJobRender(w http.ResponseWriter, r *http.Request) {
	style, ok := styleParam(w, r)
	if !ok {
		return
	}
	format, err := s.parseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}

	v := job.Copy.Variant(style)
	img := s.renderer.Render(job.Product.PhotoBytes(), v.Title, v.Highlight(), render.Style(style))
	s.writeImage(w, img, format)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Style < 0 || req.Style >= imagegen.StyleCount {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "style must be 0, 1 or 2"})
		return
	}
	format, err := s.parseFormat(req.Format)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	var photo []byte
	if strings.TrimSpace(req.Photo) != "" {
		decoded, err := product.PhotoFromDataURL(req.Photo)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid photo: " + err.Error()})
			return
		}
		photo = decoded.Data
	}

	img := s.renderer.Render(photo, req.Title, req.Highlight, render.Style(req.Style))
	s.writeImage(w, img, format)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json body"})
		return false
	}
	return true
}

func (s *Server) loadJob(w http.ResponseWriter, r *http.Request) (jobstore.Job, bool) {
	id := mux.Vars(r)["id"]
	job, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, id, err)
		return jobstore.Job{}, false
	}
	return job, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, jobstore.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "job not found"})
		return
	}
	s.logger.Error("job store failed", "job_id", id, "err", err)
	writeJSON(w, http.StatusInternalServerError, apiError{Error: "job store unavailable"})
}

func (s *Server) parseFormat(value string) (render.Format, error) {
	if strings.TrimSpace(value) == "" {
		return s.format, nil
	}
	return render.ParseFormat(value)
}

func (s *Server) writeImage(w http.ResponseWriter, img image.Image, format render.Format) {
	var buf bytes.Buffer
	if err := render.Encode(&buf, img, format); err != nil {
		s.logger.Error("encode render failed", "format", format, "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "failed to encode image"})
		return
	}
	w.Header().Set("content-type", format.ContentType())
	w.Header().Set("content-length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func styleParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	style, err := strconv.Atoi(mux.Vars(r)["style"])
	if err != nil || style < 0 || style >= imagegen.StyleCount {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "style must be 0, 1 or 2"})
		return 0, false
	}
	return style, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
