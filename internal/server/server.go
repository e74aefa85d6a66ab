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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/iwvelando/true-cost/internal/allocation"
	"github.com/iwvelando/true-cost/internal/batch"
	"github.com/iwvelando/true-cost/internal/currency"
	"github.com/iwvelando/true-cost/internal/metrics"
	"github.com/iwvelando/true-cost/internal/order"
	"github.com/iwvelando/true-cost/internal/report"
	"github.com/iwvelando/true-cost/internal/source"
	"github.com/iwvelando/true-cost/pkg/constants"
	"github.com/iwvelando/true-cost/pkg/output"
	"github.com/iwvelando/true-cost/pkg/validation"
	"go.uber.org/zap"
)

// Service bundles the collaborators the API runs orders through.
type Service struct {
	Runner   *batch.Runner
	Registry *source.Registry
	// Metrics is optional; when set it is served on /metrics.
	Metrics *metrics.Registry
	// Warnings are configuration warnings attached to every response.
	Warnings       []string
	AllowedOrigins []string
}

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	svc           Service
}

// NewHandler constructs the HTTP handler that serves the allocation API.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string, svc Service) http.Handler {
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

	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion, svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.instrument)
	if len(svc.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: svc.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	// Allocation of an uploaded order file or PDF invoice
	r.Post("/api/allocate", h.handleAllocate)

	// Allocation of an order sent as JSON
	r.Post("/api/allocate/json", h.handleAllocateJSON)

	// Version endpoint for client metadata
	r.Get("/api/version", h.handleVersion)

	if svc.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", svc.Metrics.Handler())
	}

	return r
}

type allocateResponse struct {
	OrderID          string         `json:"orderId"`
	OrderDate        string         `json:"orderDate,omitempty"`
	Currency         string         `json:"currency"`
	OriginalCurrency string         `json:"originalCurrency"`
	ExchangeRate     float64        `json:"exchangeRate"`
	OverheadRate     string         `json:"overheadRate"`
	Header           []string       `json:"header"`
	Rows             [][]string     `json:"rows"`
	Summary          [][]string     `json:"summary"`
	Reconciliation   reconciliation `json:"reconciliation"`
	CSV              string         `json:"csv"`
	Warnings         []string       `json:"warnings,omitempty"`
	Duration         string         `json:"duration"`
}

type reconciliation struct {
	Distributed string `json:"distributed"`
	Original    string `json:"original"`
	Difference  string `json:"difference"`
}

type allocateJSONRequest struct {
	Order json.RawMessage `json:"order"`
	Rate  *float64        `json:"rate,omitempty"`
}

func (h *handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAllocate"
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing order file", op)
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

	rate, err := parseRate(r.FormValue("rate"))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read order: %v", err), op)
		return
	}

	rec, err := h.svc.Registry.Parse(header.Filename, buf.Bytes())
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}

	h.runAllocation(w, rec, rate, start, op)
}

func (h *handler) handleAllocateJSON(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAllocateJSON"
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	var payload allocateJSONRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return
	}
	if len(payload.Order) == 0 {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing order", op)
		return
	}

	var rate float64
	if payload.Rate != nil {
		if err := validation.ValidateExchangeRate(*payload.Rate); err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		rate = *payload.Rate
	}

	rec, err := h.svc.Registry.Parse("order.json", payload.Order)
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}

	h.runAllocation(w, rec, rate, start, op)
}

func (h *handler) runAllocation(w http.ResponseWriter, rec order.Record, rate float64, start time.Time, op string) {
	outcome := h.svc.Runner.ProcessRecord(rec, rate)
	if outcome.Failed() {
		h.respondErrorWithOp(w, statusFor(outcome.Err), outcome.Err.Error(), op)
		return
	}

	csvText, err := output.CsvString(outcome.Report)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}

	elapsed := time.Since(start)
	response := buildResponse(outcome.Report, csvText, h.svc.Warnings, elapsed)

	h.logger.Info("allocation computed",
		zap.String("op", op),
		zap.String("order", response.OrderID),
		zap.Int("rows", len(response.Rows)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func buildResponse(rep report.Report, csvText string, configWarnings []string, elapsed time.Duration) allocateResponse {
	warnings := append([]string(nil), configWarnings...)
	warnings = append(warnings, rep.Notes...)
	return allocateResponse{
		OrderID:          rep.OrderID,
		OrderDate:        rep.OrderDate,
		Currency:         rep.TargetCurrency,
		OriginalCurrency: rep.SourceCurrency,
		ExchangeRate:     rep.ExchangeRate,
		OverheadRate:     rep.OverheadRate,
		Header:           rep.Header,
		Rows:             rep.Rows,
		Summary:          rep.Summary,
		Reconciliation: reconciliation{
			Distributed: rep.Reconciliation.Distributed,
			Original:    rep.Reconciliation.Original,
			Difference:  rep.Reconciliation.Difference,
		},
		CSV:      csvText,
		Warnings: warnings,
		Duration: elapsed.String(),
	}
}

type versionResponse struct {
	Version string `json:"version"`
	PDF     bool   `json:"pdf"`
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, versionResponse{
		Version: h.version,
		PDF:     h.svc.Registry.Capabilities().PDF,
	})
}

// parseRate reads the optional rate form value; zero means the configured rate.
func parseRate(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	rate, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q: %v", value, err)
	}
	if err := validation.ValidateExchangeRate(rate); err != nil {
		return 0, err
	}
	return rate, nil
}

func statusFor(err error) int {
	var (
		invalidOrder *order.InvalidOrderDataError
		invalidRate  *currency.InvalidRateError
		zeroQuantity *allocation.DivisionByZeroError
	)
	switch {
	case errors.Is(err, source.ErrUnsupportedSource):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &invalidOrder), errors.As(err, &invalidRate), errors.As(err, &zeroQuantity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// instrument logs every request and counts it by route pattern and status.
func (h *handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		if h.svc.Metrics != nil {
			h.svc.Metrics.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		}
		h.logger.Debug("handled request",
			zap.String("op", "server.instrument"),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("requestId", middleware.GetReqID(r.Context())),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("allocation request failed",
		zap.String("op", op),
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
