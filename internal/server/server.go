package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/contract-forecast/internal/forecast"
	"github.com/iwvelando/contract-forecast/internal/snapshot"
	"github.com/iwvelando/contract-forecast/pkg/constants"
	"github.com/iwvelando/contract-forecast/pkg/output"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request identifier echoed on every response.
const RequestIDHeader = "X-Request-ID"

type handler struct {
	logger        *zap.Logger
	service       *forecast.Service
	defaults      forecast.Options
	maxUploadSize int64
	version       string
}

// NewHandler constructs the HTTP handler that serves the forecast API. service
// may be nil, in which case only snapshot uploads are served.
func NewHandler(logger *zap.Logger, service *forecast.Service, maxUploadSize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:        logger,
		service:       service,
		defaults:      forecast.Options{IncludePending: true},
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
	}
	if service != nil {
		h.defaults = service.Options()
	}

	mux := http.NewServeMux()

	// Stored project forecasts
	mux.HandleFunc("GET /api/projects/{id}/forecast", h.handleProjectForecast)
	mux.HandleFunc("GET /api/projects/{id}/forecast.csv", h.handleProjectExport(constants.OutputFormatCSV))
	mux.HandleFunc("GET /api/projects/{id}/forecast.xlsx", h.handleProjectExport(constants.OutputFormatXLSX))

	// Forecast API endpoint (snapshot upload)
	mux.HandleFunc("POST /api/forecast", h.handleForecast)

	mux.HandleFunc("GET /api/version", h.handleVersion)

	return h.withRequestID(mux)
}

type forecastResponse struct {
	output.Document
	Duration string `json:"duration"`
}

// requestFlags are the includePending and verify switches shared by every
// forecast endpoint.
type requestFlags struct {
	includePending bool
	verify         bool
}

func (h *handler) parseFlags(get func(string) string) (requestFlags, error) {
	flags := requestFlags{includePending: h.defaults.IncludePending}

	parse := func(name string, dst *bool) error {
		raw := strings.TrimSpace(get(name))
		if raw == "" {
			return nil
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid %s value %q", name, raw)
		}
		*dst = b
		return nil
	}
	if err := parse("includePending", &flags.includePending); err != nil {
		return flags, err
	}
	if err := parse("verify", &flags.verify); err != nil {
		return flags, err
	}
	return flags, nil
}

// run computes, and optionally verifies, one project through the service.
func (h *handler) run(r *http.Request, projectID string, flags requestFlags) (*forecast.Result, *forecast.Verification, error) {
	if flags.verify {
		v, err := h.service.Verify(r.Context(), projectID, flags.includePending)
		if err != nil {
			return nil, nil, err
		}
		return v.Result, v, nil
	}
	result, err := h.service.Forecast(r.Context(), projectID, flags.includePending)
	return result, nil, err
}

func (h *handler) handleProjectForecast(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleProjectForecast"
	start := time.Now()

	if h.service == nil {
		h.respondErrorWithOp(w, r, http.StatusServiceUnavailable, "no project source is configured", op)
		return
	}

	flags, err := h.parseFlags(r.URL.Query().Get)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	result, v, err := h.run(r, r.PathValue("id"), flags)
	if err != nil {
		h.respondEngineError(w, r, err, op)
		return
	}

	h.writeJSON(w, http.StatusOK, forecastResponse{
		Document: output.NewDocument(result, v),
		Duration: time.Since(start).String(),
	})
}

func (h *handler) handleProjectExport(outputFormat string) http.HandlerFunc {
	op := "server.handleProjectExport." + outputFormat
	return func(w http.ResponseWriter, r *http.Request) {
		if h.service == nil {
			h.respondErrorWithOp(w, r, http.StatusServiceUnavailable, "no project source is configured", op)
			return
		}

		flags, err := h.parseFlags(r.URL.Query().Get)
		if err != nil {
			h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
			return
		}

		projectID := r.PathValue("id")
		result, v, err := h.run(r, projectID, flags)
		if err != nil {
			h.respondEngineError(w, r, err, op)
			return
		}

		var buf bytes.Buffer
		if err := output.Write(&buf, outputFormat, result, v); err != nil {
			h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to render forecast: %v", err), op)
			return
		}

		filename := fmt.Sprintf("forecast-%s%s", projectID, output.FileExtension(outputFormat))
		w.Header().Set("Content-Type", output.ContentType(outputFormat))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(buf.Bytes()); err != nil {
			h.logger.Warn("failed to write export",
				zap.String("op", op),
				zap.String("requestId", requestID(w)),
				zap.Error(err),
			)
		}
	}
}

func (h *handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleForecast"
	start := time.Now()

	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	flags, err := h.parseFlags(r.FormValue)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "missing snapshot file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to read snapshot: %v", err), op)
		return
	}

	snap, err := snapshot.Decode(&buf)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	opts := h.defaults
	opts.IncludePending = flags.includePending

	var (
		result *forecast.Result
		v      *forecast.Verification
	)
	if flags.verify {
		v, err = forecast.VerifyWithOptions(snap, opts)
		if v != nil {
			result = v.Result
		}
	} else {
		result, err = forecast.ComputeWithOptions(snap, opts)
	}
	if err != nil {
		h.respondEngineError(w, r, err, op)
		return
	}

	h.logger.Info("computed uploaded forecast",
		zap.String("op", op),
		zap.String("requestId", requestID(w)),
		zap.String("project", result.ProjectID),
		zap.Int("lines", len(result.Lines)),
	)
	h.writeJSON(w, http.StatusOK, forecastResponse{
		Document: output.NewDocument(result, v),
		Duration: time.Since(start).String(),
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// statusFor maps engine and loader errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		integrityErr *snapshot.DataIntegrityError
		configErr    *snapshot.ConfigurationError
	)
	switch {
	case errors.Is(err, snapshot.ErrProjectNotFound):
		return http.StatusNotFound
	case errors.As(err, &integrityErr), errors.As(err, &configErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, forecast.ErrNilLoader):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *handler) respondEngineError(w http.ResponseWriter, r *http.Request, err error, op string) {
	h.respondErrorWithOp(w, r, statusFor(err), err.Error(), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.logger.Error("forecast request failed",
		zap.String("op", op),
		zap.String("requestId", requestID(w)),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// withRequestID tags every request with an identifier, reusing one supplied
// by the caller, and logs the request once it completes.
func (h *handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		h.logger.Debug("handled request",
			zap.String("requestId", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func requestID(w http.ResponseWriter) string {
	return w.Header().Get(RequestIDHeader)
}
