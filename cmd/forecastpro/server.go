package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	forecaster "github.com/srirammulukuntla11/forecastpro-app"
	"github.com/srirammulukuntla11/forecastpro-app/forecast"
	"github.com/srirammulukuntla11/forecastpro-app/logging"
	"github.com/srirammulukuntla11/forecastpro-app/metrics"
	"github.com/srirammulukuntla11/forecastpro-app/models"
	"github.com/srirammulukuntla11/forecastpro-app/stats"
	"github.com/srirammulukuntla11/forecastpro-app/table"
	"github.com/srirammulukuntla11/forecastpro-app/timedataset"
	"golang.org/x/time/rate"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrTooManyRows  = errors.New("too many rows")
	ErrBodyTooLarge = errors.New("request body too large")
)

// ServerOptions configures the HTTP service
type ServerOptions struct {
	Addr         string
	Rate         float64
	Burst        int
	CacheSize    int
	MaxRows      int
	MaxBodyBytes int64
}

func NewDefaultServerOptions() *ServerOptions {
	return &ServerOptions{
		Addr:         ":8080",
		Rate:         10,
		Burst:        20,
		CacheSize:    128,
		MaxRows:      100000,
		MaxBodyBytes: 8 << 20,
	}
}

// Server answers forecasting requests over JSON. Trained models are cached by
// the hash of their input rows, kind and cutoff.
type Server struct {
	f        *forecaster.Forecaster
	limiter  *rate.Limiter
	models   *lru.Cache[string, *forecast.TrainedModel]
	metrics  *metrics.Collector
	gatherer prometheus.Gatherer
	maxRows  int
	maxBody  int64
}

// NewServer registers the pipeline metrics with reg and builds the handlers
func NewServer(opt *ServerOptions, fopt *forecaster.Options, reg *prometheus.Registry) (*Server, error) {
	if opt == nil {
		opt = NewDefaultServerOptions()
	}
	if fopt == nil {
		fopt = forecaster.NewDefaultOptions()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	collector := metrics.New(reg)
	fopt.Metrics = collector

	f, err := forecaster.New(fopt)
	if err != nil {
		return nil, err
	}
	maxBody := opt.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = NewDefaultServerOptions().MaxBodyBytes
	}
	cache, err := lru.New[string, *forecast.TrainedModel](opt.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create model cache")
	}
	return &Server{
		f:        f,
		limiter:  rate.NewLimiter(rate.Limit(opt.Rate), opt.Burst),
		models:   cache,
		metrics:  collector,
		gatherer: reg,
		maxRows:  opt.MaxRows,
		maxBody:  maxBody,
	}, nil
}

// Routes returns the router of every endpoint
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(s.rateLimit)
	api.HandleFunc("/forecast", s.handleForecast).Methods(http.MethodPost)
	api.HandleFunc("/compare", s.handleCompare).Methods(http.MethodPost)
	api.HandleFunc("/anomalies", s.handleAnomalies).Methods(http.MethodPost)
	return r
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.metrics.ObserveRateLimited()
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Request is the body of every POST endpoint. Rows may be objects keyed by
// column or arrays in column order.
type Request struct {
	Columns []string          `json:"columns"`
	Rows    []json.RawMessage `json:"rows"`
	Model   string            `json:"model,omitempty"`
	Horizon int               `json:"horizon,omitempty"`
	Method  string            `json:"method,omitempty"`
	Column  string            `json:"column,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*Request, *table.Table, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, errors.Wrapf(ErrBodyTooLarge, "maximum is %d bytes", tooLarge.Limit)
		}
		return nil, nil, errors.Mark(errors.Wrap(err, "unable to read body"), ErrBadRequest)
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, nil, errors.Mark(errors.Wrap(err, "unable to decode body"), ErrBadRequest)
	}
	if s.maxRows > 0 && len(req.Rows) > s.maxRows {
		return nil, nil, errors.Wrapf(ErrTooManyRows, "%d rows, maximum is %d", len(req.Rows), s.maxRows)
	}
	tbl, err := table.Document{Columns: req.Columns, Rows: req.Rows}.Table()
	if err != nil {
		return nil, nil, errors.Mark(err, ErrBadRequest)
	}
	if req.Horizon == 0 {
		req.Horizon = DefaultHorizon
	}
	return &req, tbl, nil
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	req, tbl, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kind, err := models.ParseKind(req.Model)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := forecaster.CheckHorizon(req.Horizon); err != nil {
		s.writeError(w, r, err)
		return
	}

	series, report, err := s.f.Build(tbl)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	key := s.cacheKey(req, kind)
	model, hit := s.models.Get(key)
	s.metrics.ObserveCache(hit)
	if !hit {
		model, err = s.f.Train(series, kind)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.models.Add(key, model)
	}

	res, err := s.f.Predict(series, model, req.Horizon)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res.Report = report
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	req, tbl, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := forecaster.CheckHorizon(req.Horizon); err != nil {
		s.writeError(w, r, err)
		return
	}
	cmp, err := s.f.Compare(tbl, req.Horizon)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	req, tbl, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	method := stats.MethodZScore
	if req.Method != "" {
		if method, err = stats.ParseAnomalyMethod(req.Method); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	report, err := s.f.Anomalies(tbl, method, req.Column)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// cacheKey hashes the input rows, model kind and cutoff
func (s *Server) cacheKey(req *Request, kind models.Kind) string {
	h := sha256.New()
	for _, c := range req.Columns {
		h.Write([]byte(c))
		h.Write([]byte{0})
	}
	for _, row := range req.Rows {
		h.Write(row)
		h.Write([]byte{'\n'})
	}
	h.Write([]byte(kind.String()))
	h.Write([]byte(s.f.Options().Build.Cutoff.Format(time.RFC3339)))
	return hex.EncodeToString(h.Sum(nil))
}

// StatusCode maps pipeline errors onto HTTP status codes
func StatusCode(err error) int {
	switch {
	case errors.Is(err, forecaster.ErrInsufficientHistory),
		errors.Is(err, timedataset.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrTooManyRows),
		errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, models.ErrUnknownModelKind),
		errors.Is(err, forecaster.ErrHorizonTooLarge),
		errors.Is(err, forecast.ErrInvalidHorizon),
		errors.Is(err, stats.ErrUnknownAnomalyMethod),
		errors.Is(err, forecaster.ErrUnknownColumn),
		errors.Is(err, forecaster.ErrNonNumericColumn),
		errors.Is(err, table.ErrNoColumns),
		errors.Is(err, table.ErrMismatchedDataLen):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "status", code, logging.ErrAttr(err))
	} else {
		slog.Debug("request rejected", "path", r.URL.Path, "status", code, "error", err.Error())
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("unable to write response", logging.ErrAttr(err))
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func serveCmd(g *globalOptions) *cobra.Command {
	opt := NewDefaultServerOptions()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the forecasting pipeline over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			fopt, err := g.options(nil)
			if err != nil {
				return err
			}
			if g.maxRows > 0 {
				opt.MaxRows = g.maxRows
			}
			srv, err := NewServer(opt, fopt, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context(), opt.Addr)
		},
	}
	cmd.Flags().StringVar(&opt.Addr, "addr", getEnv("ADDR", opt.Addr), "Listen address")
	cmd.Flags().Float64Var(&opt.Rate, "rate", opt.Rate, "Requests per second allowed across all clients")
	cmd.Flags().IntVar(&opt.Burst, "burst", opt.Burst, "Request burst allowed above the rate")
	cmd.Flags().IntVar(&opt.CacheSize, "cache-size", getEnvInt("CACHE_SIZE", opt.CacheSize), "Trained models kept in memory")
	return cmd
}

// ListenAndServe runs the server until ctx is done or the process receives
// SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server shutdown")
	}
	slog.Info("server stopped")
	return nil
}
