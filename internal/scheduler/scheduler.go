package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"stockdash/internal/collector"
	"stockdash/internal/model"
	"stockdash/internal/notifier"
	"stockdash/internal/recorder"
)

// maxConcurrentFetches bounds parallel provider calls during a refresh.
const maxConcurrentFetches = 4

// Analyzer runs a single analysis request.
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.Report, error)
}

// Sender delivers a text message, retrying up to maxRetries times.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler refreshes the watchlist on a cron schedule and answers chat commands.
type Scheduler struct {
	Cron         *cron.Cron
	Analyzer     Analyzer
	Recorder     recorder.Recorder
	Sender       Sender // nil disables notifications
	Watchlist    []string
	LookbackDays int
	Ctx          context.Context
	Now          func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, analyzer Analyzer, rec recorder.Recorder, sender Sender, watchlist []string, lookbackDays int) *Scheduler {
	return &Scheduler{
		Cron:         cron.New(cron.WithSeconds()),
		Analyzer:     analyzer,
		Recorder:     rec,
		Sender:       sender,
		Watchlist:    watchlist,
		LookbackDays: lookbackDays,
		Ctx:          ctx,
		Now:          time.Now,
	}
}

// Register adds the watchlist refresh task.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, func() { s.Refresh() }); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// Request builds an analysis request ending today and covering days calendar days.
func (s *Scheduler) Request(ticker string, days int) model.AnalysisRequest {
	now := s.Now()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return model.AnalysisRequest{
		Ticker: ticker,
		Start:  end.AddDate(0, 0, -days),
		End:    end,
		Chart:  model.ChartCandlestick,
	}
}

// Refresh analyzes every watchlist ticker concurrently, records each report
// and sends a digest. Per-ticker failures do not abort the others.
func (s *Scheduler) Refresh() ([]*model.Report, map[string]error) {
	if len(s.Watchlist) == 0 {
		log.Println("[INFO] watchlist empty, nothing to refresh")
		return nil, nil
	}
	log.Printf("[INFO] refreshing %d watchlist tickers", len(s.Watchlist))

	var (
		mu       sync.Mutex
		reports  []*model.Report
		failures = make(map[string]error)
	)
	g, ctx := errgroup.WithContext(s.Ctx)
	g.SetLimit(maxConcurrentFetches)
	for _, ticker := range s.Watchlist {
		g.Go(func() error {
			report, err := s.Analyzer.Analyze(ctx, s.Request(ticker, s.LookbackDays))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[ERROR] refresh %s: %v", ticker, err)
				failures[ticker] = err
				return nil
			}
			reports = append(reports, report)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(reports, func(i, j int) bool { return reports[i].Request.Ticker < reports[j].Request.Ticker })
	for _, r := range reports {
		if err := s.Recorder.RecordAnalysis(r); err != nil {
			log.Printf("[ERROR] record %s: %v", r.Request.Ticker, err)
		}
	}

	s.trySend(notifier.FormatDigest(reports, failures))
	return reports, failures
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch strings.ToLower(fields[0]) {
	case "/analyze":
		if len(fields) < 2 {
			return "usage: /analyze TICKER [DAYS]"
		}
		days := s.LookbackDays
		if len(fields) > 2 {
			n, err := strconv.Atoi(fields[2])
			if err != nil || n <= 0 {
				return fmt.Sprintf("invalid day count: %s", html.EscapeString(fields[2]))
			}
			days = n
		}
		report, err := s.Analyzer.Analyze(s.Ctx, s.Request(fields[1], days))
		if err != nil {
			if errors.Is(err, collector.ErrNoData) {
				return notifier.FormatNoData(err)
			}
			if errors.Is(err, collector.ErrInvalidRequest) {
				return html.EscapeString(err.Error())
			}
			log.Printf("[ERROR] analyze %s: %v", fields[1], err)
			return notifier.FormatError("analysis failed", err)
		}
		if err := s.Recorder.RecordAnalysis(report); err != nil {
			log.Printf("[ERROR] record %s: %v", report.Request.Ticker, err)
		}
		return notifier.FormatReport(report)
	case "/watchlist":
		reports, failures := s.Refresh()
		if s.Sender != nil {
			return "" // digest already sent
		}
		return notifier.FormatDigest(reports, failures)
	case "/history":
		if len(fields) < 2 {
			return "usage: /history TICKER"
		}
		ticker := strings.ToUpper(fields[1])
		snaps, err := s.Recorder.History(ticker, 10)
		if err != nil {
			log.Printf("[ERROR] history %s: %v", ticker, err)
			return notifier.FormatError("history unavailable", err)
		}
		return notifier.FormatHistory(ticker, snaps)
	default:
		return helpText
	}
}

const helpText = "Available commands:\n• /analyze TICKER [DAYS]\n• /watchlist\n• /history TICKER"

func (s *Scheduler) trySend(text string) {
	if s.Sender == nil {
		return
	}
	if err := s.Sender.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
