// Package server exposes the Telegram webhook, a health check and the
// report archive over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"quantDashboard/internal/logging"
	"quantDashboard/internal/storage"
)

var httpLog = logging.New("http")

// ReportLister is satisfied by storage.Store.
type ReportLister interface {
	RecentReports(limit int) ([]storage.ReportRecord, error)
}

// NewHTTPMux wires the routes. A nil webhook or reports leaves that route out.
func NewHTTPMux(webhook http.HandlerFunc, reports ReportLister) *http.ServeMux {
	mux := http.NewServeMux()
	if webhook != nil {
		mux.HandleFunc("POST /telegram/webhook", webhook)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	if reports != nil {
		mux.HandleFunc("GET /reports", reportsHandler(reports))
	}
	return mux
}

type reportView struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Tickers         []string  `json:"tickers"`
	LastDate        string    `json:"last_date"`
	LastValue       *float64  `json:"portfolio_last_value"`
	AnnReturn       *float64  `json:"ann_return"`
	AnnVol          *float64  `json:"ann_vol"`
	Sharpe          *float64  `json:"sharpe"`
	MaxDrawdown     *float64  `json:"max_drawdown"`
	Diversification *float64  `json:"diversification"`
}

// finite maps undefined metrics to JSON null.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// reportsHandler lists archived reports, newest first. ?limit=N, default 10, max 100.
func reportsHandler(reports ReportLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = min(n, 100)
		}
		recs, err := reports.RecentReports(limit)
		if err != nil {
			httpLog.Error().Err(err).Msg("http: list reports failed")
			http.Error(w, "reports unavailable", http.StatusInternalServerError)
			return
		}
		out := make([]reportView, 0, len(recs))
		for _, rec := range recs {
			out = append(out, reportView{
				ID:              rec.ID,
				CreatedAt:       rec.CreatedAt.UTC(),
				Tickers:         rec.Tickers,
				LastDate:        rec.LastDate,
				LastValue:       finite(rec.LastValue),
				AnnReturn:       finite(rec.AnnReturn),
				AnnVol:          finite(rec.AnnVol),
				Sharpe:          finite(rec.Sharpe),
				MaxDrawdown:     finite(rec.MaxDrawdown),
				Diversification: finite(rec.Diversification),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	httpLog.Info().Str("addr", addr).Msg("http: listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
