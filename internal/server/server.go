package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"stockdash/internal/collector"
	"stockdash/internal/model"
	"stockdash/internal/recorder"
)

const (
	requestTimeout      = 30 * time.Second
	defaultHistoryLimit = 20
)

// Analyzer runs a single analysis request.
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.Report, error)
}

// Server exposes analyses and recorded history over JSON.
type Server struct {
	Analyzer      Analyzer
	Recorder      recorder.Recorder
	DefaultTicker string
	LookbackDays  int
	Now           func() time.Time
}

// New creates a Server.
func New(analyzer Analyzer, rec recorder.Recorder, defaultTicker string, lookbackDays int) *Server {
	return &Server{
		Analyzer:      analyzer,
		Recorder:      rec,
		DefaultTicker: defaultTicker,
		LookbackDays:  lookbackDays,
		Now:           time.Now,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/analysis", s.handleAnalysis)
		r.Get("/history/{ticker}", s.handleHistory)
	})
	return r
}

// HTTPServer wraps the routes in an http.Server with conservative timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

type analysisResponse struct {
	Ticker      string      `json:"ticker"`
	Start       string      `json:"start"`
	End         string      `json:"end"`
	Source      string      `json:"source"`
	Bars        int         `json:"bars"`
	Summary     summaryDTO  `json:"summary"`
	Returns     *returnsDTO `json:"returns"`
	Changes     []changeDTO `json:"changes"`
	Chart       Chart       `json:"chart"`
	GeneratedAt time.Time   `json:"generated_at"`
}

type summaryDTO struct {
	LastClose     float64  `json:"last_close"`
	Change        float64  `json:"change"`
	PercentChange *float64 `json:"percent_change"`
	PeriodHigh    float64  `json:"period_high"`
	PeriodLow     float64  `json:"period_low"`
	TotalVolume   int64    `json:"total_volume"`
}

type returnsDTO struct {
	AnnualizedReturnPct *float64 `json:"annualized_return_pct"`
	AnnualizedStdDevPct *float64 `json:"annualized_std_dev_pct"`
	RiskAdjustedReturn  *float64 `json:"risk_adjusted_return"`
	Observations        int      `json:"observations"`
}

type changeDTO struct {
	Date      string  `json:"date"`
	AdjClose  float64 `json:"adj_close"`
	PctChange float64 `json:"pct_change"`
}

// finite maps NaN and ±Inf to nil so they encode as JSON null.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func newAnalysisResponse(r *model.Report) analysisResponse {
	s := r.Summary
	resp := analysisResponse{
		Ticker: r.Request.Ticker,
		Start:  r.Request.Start.Format(model.DateLayout),
		End:    r.Request.End.Format(model.DateLayout),
		Source: r.Source,
		Bars:   r.Series.Len(),
		Summary: summaryDTO{
			LastClose:     s.LastClose,
			Change:        s.Change,
			PercentChange: finite(s.PercentChange),
			PeriodHigh:    s.PeriodHigh,
			PeriodLow:     s.PeriodLow,
			TotalVolume:   s.TotalVolume,
		},
		Changes:     make([]changeDTO, 0, len(r.Changes)),
		Chart:       BuildChart(r),
		GeneratedAt: r.GeneratedAt,
	}
	if r.Returns != nil {
		resp.Returns = &returnsDTO{
			AnnualizedReturnPct: finite(r.Returns.AnnualizedReturnPct),
			AnnualizedStdDevPct: finite(r.Returns.AnnualizedStdDevPct),
			RiskAdjustedReturn:  finite(r.Returns.RiskAdjustedReturn),
			Observations:        r.Returns.Observations,
		}
	}
	for _, c := range r.Changes {
		resp.Changes = append(resp.Changes, changeDTO{
			Date:      c.Date.Format(model.DateLayout),
			AdjClose:  c.AdjClose,
			PctChange: c.PctChange,
		})
	}
	return resp
}

// parseRequest fills in defaults: configured ticker, end today, start end minus lookback days.
func (s *Server) parseRequest(q map[string][]string) (model.AnalysisRequest, error) {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	req := model.AnalysisRequest{Ticker: get("ticker"), Chart: model.ChartType(strings.ToLower(get("chart")))}
	if req.Ticker == "" {
		req.Ticker = s.DefaultTicker
	}
	if req.Chart == "" {
		req.Chart = model.ChartCandlestick
	}
	if !req.Chart.Valid() {
		return req, errors.New("chart must be candlestick or line")
	}

	now := s.Now()
	req.End = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if v := get("end"); v != "" {
		t, err := time.Parse(model.DateLayout, v)
		if err != nil {
			return req, errors.New("end must be YYYY-MM-DD")
		}
		req.End = t
	}
	req.Start = req.End.AddDate(0, 0, -s.LookbackDays)
	if v := get("start"); v != "" {
		t, err := time.Parse(model.DateLayout, v)
		if err != nil {
			return req, errors.New("start must be YYYY-MM-DD")
		}
		req.Start = t
	}
	return req, nil
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.Analyzer.Analyze(r.Context(), req)
	switch {
	case errors.Is(err, collector.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, collector.ErrNoData):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		log.Printf("[ERROR] analyze %s: %v", req.Ticker, err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if err := s.Recorder.RecordAnalysis(report); err != nil {
		log.Printf("[ERROR] record %s: %v", report.Request.Ticker, err)
	}
	writeJSON(w, http.StatusOK, newAnalysisResponse(report))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "ticker")))
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	snaps, err := s.Recorder.History(ticker, limit)
	if err != nil {
		log.Printf("[ERROR] history %s: %v", ticker, err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if snaps == nil {
		snaps = []recorder.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
