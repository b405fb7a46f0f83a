// Package httpapi exposes the catalog and search services over a chi HTTP
// router.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kura-media/clipdex/internal/domain"
	"github.com/kura-media/clipdex/internal/domain/search/filter"
	"github.com/kura-media/clipdex/internal/domain/search/request"
	"github.com/kura-media/clipdex/internal/domain/search/result"
	cataloguc "github.com/kura-media/clipdex/internal/usecase/catalog"
	healthuc "github.com/kura-media/clipdex/internal/usecase/health"
	searchuc "github.com/kura-media/clipdex/internal/usecase/search"
	similaruc "github.com/kura-media/clipdex/internal/usecase/similar"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Defaults are the deployment-level weight defaults applied when a request
// omits them. Zero values fall back to the domain defaults.
type Defaults struct {
	Hybrid  request.HybridWeights
	Similar request.SimilarWeights
}

// Server implements the HTTP API over the usecase services.
type Server struct {
	catalog       *cataloguc.Service
	search        *searchuc.Service
	similar       *similaruc.Service
	health        *healthuc.Service
	defaults      Defaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	catalog *cataloguc.Service,
	search *searchuc.Service,
	similar *similaruc.Service,
	health *healthuc.Service,
	defaults Defaults,
	logger *zap.Logger,
) *Server {
	if (defaults.Hybrid == request.HybridWeights{}) {
		defaults.Hybrid = request.DefaultHybridWeights()
	}
	if (defaults.Similar == request.SimilarWeights{}) {
		defaults.Similar = request.DefaultSimilarWeights()
	}

	s := &Server{
		catalog:  catalog,
		search:   search,
		similar:  similar,
		health:   health,
		defaults: defaults,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrClipNotFound, http.StatusNotFound, CodeClipNotFound),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrAllSignalsFailed, http.StatusServiceUnavailable, CodeSearchUnavailable),
	}
	return s
}

// RegisterRoutes mounts all API routes onto the given router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Put("/clips", s.IngestClip)
		r.Get("/clips", s.ListClips)
		r.Get("/clips/{id}", s.GetClip)
		r.Delete("/clips/{id}", s.DeleteClip)
		r.Post("/clips/{id}/similar", s.SimilarClips)
		r.Post("/search", s.SearchClips)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// IngestClip handles PUT /api/v1/clips.
func (s *Server) IngestClip(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Checksum == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "Checksum is required")
		return
	}
	if req.FileName == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "File name is required")
		return
	}

	in, err := ingestInputFromAPI(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	c, created, err := s.catalog.Ingest(r.Context(), in)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", fmt.Sprintf("/api/v1/clips/%s", c.ID()))
	}

	writeJSON(w, status, clipToAPI(&c))
}

// GetClip handles GET /api/v1/clips/{id}.
func (s *Server) GetClip(w http.ResponseWriter, r *http.Request) {
	c, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, clipToAPI(&c))
}

// DeleteClip handles DELETE /api/v1/clips/{id}.
func (s *Server) DeleteClip(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListClips handles GET /api/v1/clips.
func (s *Server) ListClips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := cataloguc.ListOptions{
		SortBy:    q.Get("sort_field"),
		Ascending: q.Get("sort_order") == "asc",
	}

	var err error
	if opts.Offset, err = intParam(q.Get("offset"), 0); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "offset must be an integer")
		return
	}
	if opts.Limit, err = intParam(q.Get("limit"), 20); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "limit must be an integer")
		return
	}

	f := filter.Filters{
		Category:    q.Get("category"),
		CameraMake:  q.Get("camera_make"),
		CameraModel: q.Get("camera_model"),
	}
	if tags := q.Get("tags"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Tags = append(f.Tags, t)
			}
		}
	}

	clips, total, err := s.catalog.List(r.Context(), f, opts)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]Clip, len(clips))
	for i := range clips {
		items[i] = clipToAPI(&clips[i])
	}

	writeJSON(w, http.StatusOK, ClipListResponse{
		Items:  items,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	})
}

// SearchClips handles POST /api/v1/search.
func (s *Server) SearchClips(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	searchReq, err := searchRequestFromAPI(&req, s.defaults.Hybrid)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	results, err := s.search.Search(r.Context(), &searchReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse(results, searchReq.Limit()))
}

// SimilarClips handles POST /api/v1/clips/{id}/similar.
func (s *Server) SimilarClips(w http.ResponseWriter, r *http.Request) {
	var req SimilarRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	similarReq, err := similarRequestFromAPI(chi.URLParam(r, "id"), &req, s.defaults.Similar)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	results, err := s.similar.Similar(r.Context(), &similarReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse(results, similarReq.Limit()))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func searchResponse(results []result.Result, limit int) SearchResponse {
	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = resultToAPI(&results[i])
	}
	return SearchResponse{
		Items: items,
		Limit: limit,
		Total: len(items),
	}
}

// decodeOptionalBody decodes a JSON body, treating an empty body as the zero
// request. The similar endpoint is usable with defaults only.
func decodeOptionalBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrClipNotFound,
		domain.ErrInvalidArgument,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
		domain.ErrAllSignalsFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
