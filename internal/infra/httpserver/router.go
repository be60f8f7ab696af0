package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appanalysis "github.com/verdantlab/plantscan/internal/application/analysis"
	appreports "github.com/verdantlab/plantscan/internal/application/reports"
	domain "github.com/verdantlab/plantscan/internal/domain/analysis"
	domreports "github.com/verdantlab/plantscan/internal/domain/reports"
	"github.com/verdantlab/plantscan/internal/middleware"
)

type Router struct {
	analysisSvc    *appanalysis.Service
	reportsSvc     *appreports.Service
	log            zerolog.Logger
	maxUploadBytes int64
}

// Options configures route behavior beyond the service wiring.
type Options struct {
	MaxUploadBytes int64
	AnalyzePerMin  int
	AnalyzeBurst   int
	Checkers       map[string]middleware.HealthChecker
}

func NewRouter(analysisSvc *appanalysis.Service, reportsSvc *appreports.Service, log zerolog.Logger, opts Options) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	r := &Router{
		analysisSvc:    analysisSvc,
		reportsSvc:     reportsSvc,
		log:            log,
		maxUploadBytes: opts.MaxUploadBytes,
	}
	mux := chi.NewRouter()

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/healthz", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	if opts.AnalyzePerMin > 0 {
		mux.With(middleware.RateLimit(opts.AnalyzePerMin, opts.AnalyzeBurst)).
			Post("/analyze", r.wrap(r.handleAnalyze))
	} else {
		mux.Post("/analyze", r.wrap(r.handleAnalyze))
	}
	mux.Post("/download", r.wrap(r.handleDownload))
	mux.Get("/test-pdf", r.wrap(r.handleTestPDF))
	mux.Get("/images/{id}", r.wrap(r.handleGetImage))
	mux.Get("/analyses", r.wrap(r.handleAnalyses))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		r.log.Error().Str("path", req.URL.Path).Err(err).Msg("request failed")
		writeError(w, err, statusFor(err))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNoImage),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domreports.ErrBadImage):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	default:
		// store unavailable, storage, upstream and render failures
		return http.StatusInternalServerError
	}
}

// writeError emits the {"error": message} body. When a PDF response has
// already started streaming the header set is a no-op and the client sees a
// truncated stream instead; nothing structured can reach it at that point.
func writeError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Del("Content-Disposition")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// POST /analyze
// multipart field "image"; the object is written to the store before the
// vision call runs.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUploadBytes)

	file, header, err := req.FormFile("image")
	if err != nil {
		return domain.ErrNoImage
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := middleware.ValidateImageContentType(contentType); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("%w: reading upload: %v", domain.ErrValidation, err)
	}

	res, err := r.analysisSvc.Analyze(req.Context(), domain.UploadedImage{
		Filename:    middleware.SanitizeFilename(header.Filename),
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	middleware.IncrementAnalyses()

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{
		"result":      res.Result,
		"image":       domreports.EncodeDataURL(contentType, data),
		"imageFileId": res.ImageFileID,
	})
}

// POST /download
// Body: {"result": "...", "image": "data:image/...;base64,..."}
// Responds with the generated PDF as an attachment.
func (r *Router) handleDownload(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Result string `json:"result"`
		Image  string `json:"image"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename=Plant_Report.pdf`)
	if err := r.reportsSvc.Download(req.Context(), body.Result, body.Image, w); err != nil {
		return err
	}
	middleware.IncrementReports()
	return nil
}

// GET /test-pdf
// Liveness check of the renderer path only; touches neither store nor AI.
func (r *Router) handleTestPDF(w http.ResponseWriter, req *http.Request) error {
	w.Header().Set("Content-Type", "application/pdf")
	if err := r.reportsSvc.Probe(req.Context(), w); err != nil {
		return err
	}
	middleware.IncrementReports()
	return nil
}

// GET /images/{id}
func (r *Router) handleGetImage(w http.ResponseWriter, req *http.Request) error {
	key := chi.URLParam(req, "id")
	data, contentType, err := r.analysisSvc.FetchImage(req.Context(), key)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	_, err = w.Write(data)
	return err
}

// GET /analyses?limit=20
func (r *Router) handleAnalyses(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.analysisSvc.Latest(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Analysis{}
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}
