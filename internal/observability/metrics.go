package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	queryRequests     *CounterVec
	queryLatency      *HistogramVec
	queryBranchErrors *CounterVec

	contextAssemblies    *CounterVec
	contextConfidence    *HistogramVec
	contextLatency       *HistogramVec
	contextSubtaskErrors *CounterVec

	predictions            *CounterVec
	predictionBranchErrors *CounterVec

	vectorSearchLatency *HistogramVec
	embedRequests       *CounterVec
	embedLatency        *HistogramVec

	feedbackTotal *CounterVec

	graphNodes    *GaugeVec
	graphEdges    *GaugeVec
	mirrorDropped *Gauge

	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

// Current returns the process metrics, or nil when metrics are disabled. All
// methods are nil-safe.
func Current() *Metrics {
	return instance
}

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("devctx_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("devctx_api_request_duration_seconds", "API request latency in seconds.", []string{"method", "route", "status"}, latencyBuckets),
		apiInflight: NewGauge("devctx_api_inflight_requests", "In-flight API requests."),

		queryRequests:     NewCounterVec("devctx_query_requests_total", "Routed queries by classified intent.", []string{"intent"}),
		queryLatency:      NewHistogramVec("devctx_query_duration_seconds", "Query router latency in seconds.", []string{"intent"}, latencyBuckets),
		queryBranchErrors: NewCounterVec("devctx_query_branch_errors_total", "Query router branches that degraded to empty.", []string{"branch"}),

		contextAssemblies:    NewCounterVec("devctx_context_assemblies_total", "Context packages served by cache status.", []string{"cache"}),
		contextConfidence:    NewHistogramVec("devctx_context_confidence", "Confidence score of assembled context packages.", []string{"event_type"}, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}),
		contextLatency:       NewHistogramVec("devctx_context_duration_seconds", "Context assembly latency in seconds.", []string{"cache"}, latencyBuckets),
		contextSubtaskErrors: NewCounterVec("devctx_context_subtask_errors_total", "Context sub-fetches that failed or timed out.", []string{"subtask"}),

		predictions:            NewCounterVec("devctx_predictions_total", "Predictions by primary intent.", []string{"intent"}),
		predictionBranchErrors: NewCounterVec("devctx_prediction_branch_errors_total", "Prediction analyses that failed.", []string{"analysis"}),

		vectorSearchLatency: NewHistogramVec("devctx_vector_search_duration_seconds", "Vector search latency in seconds.", []string{"status"}, latencyBuckets),
		embedRequests:       NewCounterVec("devctx_embedding_requests_total", "Embedding API requests by model/status.", []string{"model", "status"}),
		embedLatency:        NewHistogramVec("devctx_embedding_duration_seconds", "Embedding API latency in seconds.", []string{"model"}, latencyBuckets),

		feedbackTotal: NewCounterVec("devctx_feedback_total", "Feedback submissions by rating band.", []string{"quality"}),

		graphNodes:    NewGaugeVec("devctx_graph_nodes", "Graph nodes by kind.", []string{"kind"}),
		graphEdges:    NewGaugeVec("devctx_graph_edges", "Graph edges by relationship type.", []string{"type"}),
		mirrorDropped: NewGauge("devctx_graph_mirror_dropped", "Graph writes dropped by the Neo4j mirror."),

		redisUp:   NewGauge("devctx_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing: NewGauge("devctx_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.queryRequests, m.queryLatency, m.queryBranchErrors,
		m.contextAssemblies, m.contextConfidence, m.contextLatency, m.contextSubtaskErrors,
		m.predictions, m.predictionBranchErrors,
		m.vectorSearchLatency, m.embedRequests, m.embedLatency,
		m.feedbackTotal,
		m.graphNodes, m.graphEdges, m.mirrorDropped,
		m.redisUp, m.redisPing,
	}
	for _, pw := range all {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveQuery(intent string, dur time.Duration) {
	if m == nil {
		return
	}
	m.queryRequests.Inc(intent)
	m.queryLatency.Observe(dur.Seconds(), intent)
}

func (m *Metrics) IncQueryBranchError(branch string) {
	if m == nil {
		return
	}
	m.queryBranchErrors.Inc(branch)
}

// ObserveContextAssembly records one served package. cache is "hit", "l2_hit"
// or "miss".
func (m *Metrics) ObserveContextAssembly(cache, eventType string, confidence float64, dur time.Duration) {
	if m == nil {
		return
	}
	m.contextAssemblies.Inc(cache)
	m.contextLatency.Observe(dur.Seconds(), cache)
	if cache == "miss" {
		m.contextConfidence.Observe(confidence, eventType)
	}
}

func (m *Metrics) IncContextSubtaskError(subtask string) {
	if m == nil {
		return
	}
	m.contextSubtaskErrors.Inc(subtask)
}

func (m *Metrics) ObservePrediction(intent string) {
	if m == nil {
		return
	}
	m.predictions.Inc(intent)
}

func (m *Metrics) IncPredictionBranchError(analysis string) {
	if m == nil {
		return
	}
	m.predictionBranchErrors.Inc(analysis)
}

func (m *Metrics) ObserveVectorSearch(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.vectorSearchLatency.Observe(dur.Seconds(), status)
}

func (m *Metrics) ObserveEmbedding(model, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.embedRequests.Inc(model, status)
	m.embedLatency.Observe(dur.Seconds(), model)
}

func (m *Metrics) IncFeedback(quality string) {
	if m == nil {
		return
	}
	m.feedbackTotal.Inc(quality)
}

// GraphSnapshot is what the graph collector samples.
type GraphSnapshot struct {
	NodesByKind map[string]int
	EdgesByType map[string]int
	Dropped     int64
}

// StartGraphCollector samples graph size every scrape interval until ctx is done.
func (m *Metrics) StartGraphCollector(ctx context.Context, sample func() GraphSnapshot) {
	if m == nil || sample == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			m.setGraph(sample())
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (m *Metrics) setGraph(s GraphSnapshot) {
	for k, v := range s.NodesByKind {
		m.graphNodes.Set(float64(v), k)
	}
	for k, v := range s.EdgesByType {
		m.graphEdges.Set(float64(v), k)
	}
	m.mirrorDropped.Set(float64(s.Dropped))
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func scrapeInterval() time.Duration {
	if v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS")); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil && d > 0 {
			return d
		}
	}
	return 15 * time.Second
}
