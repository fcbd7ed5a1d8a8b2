package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/graphrag-assistant/internal/config"
	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/ports"
	"github.com/kirillkom/graphrag-assistant/internal/observability/metrics"
)

const (
	serviceName      = "graphrag-api"
	maxRequestBytes  = 4 << 20
	defaultRouterTop = 5
)

type Router struct {
	search ports.SearchService
	answer ports.AnswerService
	stores ports.StoreService
	ingest ports.PageIngestor

	topK             int
	rateLimitRPS     float64
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
	metrics          *metrics.HTTPServerMetrics
	logger           *slog.Logger
	validator        *requestValidator
	validatorErr     error
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// NewRouter wires the HTTP surface. ingest may be nil, in which case
// /v1/ingest is not served.
func NewRouter(
	cfg config.Config,
	search ports.SearchService,
	answer ports.AnswerService,
	stores ports.StoreService,
	ingest ports.PageIngestor,
	opts ...RouterOption,
) *Router {
	topK := cfg.RAGTopK
	if topK <= 0 {
		topK = defaultRouterTop
	}
	rt := &Router{
		search:           search,
		answer:           answer,
		stores:           stores,
		ingest:           ingest,
		topK:             topK,
		rateLimitRPS:     cfg.APIRateLimitRPS,
		rateLimitBurst:   cfg.APIRateLimitBurst,
		maxInFlight:      cfg.APIMaxInFlight,
		backpressureWait: cfg.APIBackpressureWait,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.validator, rt.validatorErr = newRequestValidator()
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	for _, prefix := range []string{"/v1", ""} {
		mux.HandleFunc("POST "+prefix+"/search", rt.handleSearch)
		mux.HandleFunc("POST "+prefix+"/answer", rt.handleAnswer)
		mux.HandleFunc("POST "+prefix+"/stores", rt.handleStores)
		if rt.ingest != nil {
			mux.HandleFunc("POST "+prefix+"/ingest", rt.handleIngest)
		}
	}

	var handler http.Handler = mux
	if rt.validator != nil {
		handler = rt.validator.middleware(handler)
	} else {
		rt.logger.Error("openapi_validator_disabled", "error", rt.validatorErr)
	}

	var onShed, onLimited func()
	if rt.metrics != nil {
		onShed = rt.metrics.RecordBackpressureShed
		onLimited = rt.metrics.RecordRateLimited
	}
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureWait, onShed)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, onLimited)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Query       string `json:"query"`
	Top         int    `json:"top"`
	CountIntent string `json:"countIntent"`
}

type countResponse struct {
	Success    bool          `json:"success"`
	Type       string        `json:"type"`
	Count      int           `json:"count"`
	Message    string        `json:"message"`
	Categories []string      `json:"categories,omitempty"`
	Fallback   bool          `json:"fallback,omitempty"`
	Intent     domain.Intent `json:"intent"`
}

type matchesResponse struct {
	Success bool           `json:"success"`
	Intent  domain.Intent  `json:"intent"`
	Matches []domain.Match `json:"matches"`
}

func (rt *Router) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	top := req.Top
	if top <= 0 {
		top = rt.topK
	}
	hint, _ := domain.ParseCountIntent(req.CountIntent)

	start := time.Now()
	result, err := rt.search.Search(r.Context(), req.Query, top, hint)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}

	rt.observe("search", result.Intent, result.Count, len(result.Matches), result.EnrichmentFailures, time.Since(start))
	if result.Count != nil {
		writeJSON(w, http.StatusOK, countResponse{
			Success:    true,
			Type:       "count",
			Count:      result.Count.Count,
			Message:    result.Count.Message,
			Categories: result.Count.Categories,
			Fallback:   result.Count.Fallback,
			Intent:     result.Intent,
		})
		return
	}
	writeJSON(w, http.StatusOK, matchesResponse{Success: true, Intent: result.Intent, Matches: result.Matches})
}

type answerRequest struct {
	Query    string   `json:"query"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	RadiusKm float64  `json:"radiusKm"`
}

type answerResponse struct {
	Success bool `json:"success"`
	*domain.Answer
}

func (rt *Router) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var location *domain.StoreQuery
	if req.Lat != nil && req.Lng != nil {
		location = &domain.StoreQuery{Lat: *req.Lat, Lng: *req.Lng, RadiusKm: req.RadiusKm}
	}

	start := time.Now()
	answer, err := rt.answer.Answer(r.Context(), req.Query, location)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}

	matches := len(answer.Sources)
	if answer.Count != nil || answer.Intent.Main == domain.MainIntentStore {
		matches = -1
	}
	rt.observe("answer", answer.Intent, answer.Count, matches, 0, time.Since(start))
	writeJSON(w, http.StatusOK, answerResponse{Success: true, Answer: answer})
}

type storesRequest struct {
	Query    string  `json:"query"`
	Product  string  `json:"product"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radiusKm"`
}

type storesResponse struct {
	Success        bool                `json:"success"`
	Stores         []domain.StoreMatch `json:"stores"`
	MatchedProduct string              `json:"matchedProduct,omitempty"`
}

func (rt *Router) handleStores(w http.ResponseWriter, r *http.Request) {
	var req storesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := rt.stores.Locate(r.Context(), domain.StoreQuery{
		Query:    req.Query,
		Product:  req.Product,
		Lat:      req.Lat,
		Lng:      req.Lng,
		RadiusKm: req.RadiusKm,
	})
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordStoreLookup(serviceName, len(result.Stores))
	}
	writeJSON(w, http.StatusOK, storesResponse{Success: true, Stores: result.Stores, MatchedProduct: result.MatchedProduct})
}

type ingestRequest struct {
	Pages []domain.Page `json:"pages"`
}

type ingestResponse struct {
	Success bool `json:"success"`
	*domain.IngestReport
}

func (rt *Router) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	report, err := rt.ingest.IngestPages(r.Context(), req.Pages)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ingestResponse{Success: true, IngestReport: report})
}

func (rt *Router) observe(endpoint string, intent domain.Intent, count *domain.CountResult, matches, failures int, elapsed time.Duration) {
	if rt.metrics == nil {
		return
	}
	if count != nil {
		matches = -1
		if count.Fallback {
			rt.metrics.RecordCountFallback(serviceName, endpoint)
		}
	}
	rt.metrics.RecordIntentRoute(serviceName, endpoint, string(intent.Main), string(intent.Count))
	rt.metrics.RecordEnrichmentFailures(serviceName, endpoint, failures)
	rt.metrics.RecordRAGObservation(serviceName, endpoint, matches, elapsed)
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(target); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json: "+strings.TrimPrefix(err.Error(), "json: "))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
