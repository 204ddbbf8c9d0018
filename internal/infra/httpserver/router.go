package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/insight-bridge/internal/application/analysis"
	domain "github.com/bryanwahyu/insight-bridge/internal/domain/analysis"
	"github.com/bryanwahyu/insight-bridge/internal/domain/reports"
	"github.com/bryanwahyu/insight-bridge/internal/middleware"
)

const (
	ServiceName = "insight-bridge"

	datasetField         = "dataset"
	defaultMaxUploadMB   = 20
	maxLiveSourceBody    = 64 << 10
	multipartMemoryLimit = 8 << 20
)

// Options carries the cross-cutting pieces the router mounts around the
// analysis service. Nil Limiter or Metrics disables that layer.
type Options struct {
	APIKeys        map[string]string
	JWT            *middleware.JWTVerifier
	Limiter        middleware.Limiter
	Metrics        *middleware.Metrics
	Logger         *slog.Logger
	AllowedOrigins []string
	MaxUploadMB    int
	// Ready is checked by /readyz.
	Ready map[string]middleware.HealthChecker
}

type Router struct {
	svc            *appanalysis.Service
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewRouter(svc *appanalysis.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxMB := opts.MaxUploadMB
	if maxMB <= 0 {
		maxMB = defaultMaxUploadMB
	}
	r := &Router{svc: svc, logger: logger, maxUploadBytes: int64(maxMB) << 20}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.Logging(logger))
	mux.Use(chimw.Recoverer)
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	if len(opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	mux.Get("/health", middleware.LivenessHandler(ServiceName))
	mux.Get("/readyz", middleware.ReadinessHandler(opts.Ready))
	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(middleware.Authenticate(opts.APIKeys, opts.JWT, r.unauthenticated))
		if opts.Limiter != nil {
			rt.Use(middleware.RateLimit(opts.Limiter, func(err error) {
				logger.Warn("rate limiter unavailable, allowing request", "error", err)
			}))
		}
		rt.Post("/analyze/simulated", r.wrap(r.handleSimulated))
		rt.Post("/analyze/upload", r.wrap(r.handleUpload))
		rt.Post("/analyze/live-source", r.wrap(r.handleLiveSource))
		rt.Get("/reports", r.wrap(r.handleList))
		rt.Get("/reports/{id}", r.wrap(r.handleGet))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap is the single place where pipeline errors become HTTP responses.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		if errors.Is(err, reports.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "NotFound", "report not found")
			return
		}

		kind := domain.KindOf(err)
		switch kind {
		case domain.KindUnauthenticated:
			middleware.WriteError(w, http.StatusUnauthorized, kind, "authentication required")
		case domain.KindInvalidInput:
			middleware.WriteError(w, http.StatusBadRequest, kind, err.Error())
		case domain.KindEngineUnreachable, domain.KindEngineMalformedResponse:
			middleware.WriteError(w, http.StatusInternalServerError, kind, err.Error())
		case domain.KindPersistenceUnavailable:
			details := "report store unavailable"
			if req.Method == http.MethodPost {
				details = "analysis succeeded but the report could not be saved"
			}
			middleware.WriteError(w, http.StatusInternalServerError, kind, details)
		default:
			r.logger.ErrorContext(req.Context(), "unhandled error",
				"path", req.URL.Path, "error", err)
			middleware.WriteError(w, http.StatusInternalServerError, kind, "internal error")
		}
	}
}

func (r *Router) unauthenticated(w http.ResponseWriter, _ *http.Request, err error) {
	middleware.WriteError(w, http.StatusUnauthorized, domain.KindUnauthenticated, err.Error())
}

// POST /v1/analyze/simulated
func (r *Router) handleSimulated(w http.ResponseWriter, req *http.Request) error {
	out, err := r.svc.AnalyzeSimulated(req.Context(), middleware.GetOwnerFromContext(req.Context()))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, out)
	return nil
}

// POST /v1/analyze/upload (multipart, field "dataset")
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUploadBytes)
	if err := req.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: upload exceeds %d MB", domain.ErrInvalidInput, r.maxUploadBytes>>20)
		}
		return fmt.Errorf("%w: expected multipart form with a %q file", domain.ErrInvalidInput, datasetField)
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile(datasetField)
	if err != nil {
		return fmt.Errorf("%w: missing %q file", domain.ErrInvalidInput, datasetField)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("%w: read upload: %v", domain.ErrInvalidInput, err)
	}

	out, err := r.svc.AnalyzeUpload(req.Context(), middleware.GetOwnerFromContext(req.Context()), header.Filename, content)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, out)
	return nil
}

// POST /v1/analyze/live-source
// Body: {"connection_descriptor": "...", "query_text": "..."}
func (r *Router) handleLiveSource(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		ConnectionDescriptor string `json:"connection_descriptor"`
		QueryText            string `json:"query_text"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxLiveSourceBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return fmt.Errorf("%w: body must be JSON with connection_descriptor and query_text", domain.ErrInvalidInput)
	}

	out, err := r.svc.AnalyzeLiveSource(req.Context(), middleware.GetOwnerFromContext(req.Context()),
		body.ConnectionDescriptor, body.QueryText)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, out)
	return nil
}

// GET /v1/reports?limit=10
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	limit := appanalysis.DefaultHistoryLimit
	if v := strings.TrimSpace(req.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidInput)
		}
		limit = n
	}

	list, err := r.svc.ListRecent(req.Context(), middleware.GetOwnerFromContext(req.Context()), limit)
	if err != nil {
		return err
	}
	out := make([]reports.Summary, 0, len(list))
	for _, rep := range list {
		out = append(out, rep.ToSummary())
	}
	middleware.WriteJSON(w, http.StatusOK, out)
	return nil
}

// GET /v1/reports/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	rep, err := r.svc.Get(req.Context(), middleware.GetOwnerFromContext(req.Context()), reports.ReportID(id))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, rep)
	return nil
}
