package monitoring

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"time"

	"shop-finder/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	queueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shop_queue_length",
			Help: "Current queue length per shop",
		},
		[]string{"shop_id"},
	)

	averageWait = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shop_average_wait_minutes",
			Help: "Latest average wait estimate per shop",
		},
		[]string{"shop_id"},
	)

	shopScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shop_total_score",
			Help: "Total score from the latest scoring pass",
		},
		[]string{"shop_id"},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_operations_total",
			Help: "Total queue operations",
		},
		[]string{"operation", "shop_id", "status"},
	)

	snapshotFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_fetches_total",
			Help: "Snapshot reads by kind and result",
		},
		[]string{"kind", "result"},
	)

	recommendations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alternative_recommendations_total",
			Help: "Alternative shops recommended",
		},
	)

	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "0 closed, 1 half-open, 2 open",
		},
		[]string{"name"},
	)

	scoringDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scoring_duration_seconds",
			Help:    "Duration of scoring passes",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)
)

func TrackQueueOperation(operation, shopID, status string) {
	queueOperations.WithLabelValues(operation, shopID, status).Inc()
}

// TrackFetch records a snapshot read. result is "ok", "empty" or "error".
func TrackFetch(kind, result string) {
	snapshotFetches.WithLabelValues(kind, result).Inc()
}

func TrackRecommendations(n int) {
	recommendations.Add(float64(n))
}

func TrackRateLimited(route string) {
	rateLimited.WithLabelValues(route).Inc()
}

func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}

func ObserveScoring(operation string, started time.Time) {
	scoringDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func RecordScores(scores []models.ShopScore) {
	for _, s := range scores {
		shopScore.WithLabelValues(s.ShopID).Set(s.TotalScore)
	}
}

func RecordQueue(shopID string, queue *models.QueueSnapshot) {
	if queue == nil {
		queueLength.WithLabelValues(shopID).Set(0)
		averageWait.WithLabelValues(shopID).Set(0)
		return
	}
	queueLength.WithLabelValues(shopID).Set(float64(queue.CurrentQueueSize))
	averageWait.WithLabelValues(shopID).Set(queue.AverageWaitTime)
}

type QueueReader interface {
	ShopIDs(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context, shopID string) (*models.QueueSnapshot, error)
}

type Monitor struct {
	queues   QueueReader
	interval time.Duration
}

func NewMonitor(queues QueueReader, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{queues: queues, interval: interval}
}

// Run refreshes the queue gauges every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CollectQueueMetrics(ctx)
	for {
		select {
		case <-ticker.C:
			m.CollectQueueMetrics(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) CollectQueueMetrics(ctx context.Context) {
	shopIDs, err := m.queues.ShopIDs(ctx)
	if err != nil {
		slog.Warn("collect queue metrics", "error", err)
		return
	}

	for _, shopID := range shopIDs {
		queue, err := m.queues.Snapshot(ctx, shopID)
		if err != nil {
			slog.Warn("collect queue metrics", "shopID", shopID, "error", err)
			continue
		}
		RecordQueue(shopID, queue)
	}
}

// Serve exposes /metrics on port until ctx is done.
func Serve(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("Metrics server listening on :%s", port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
