// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TimelineCollector はタイムライン集計のメトリクス収集インターフェース。
// サービス層から利用する。
type TimelineCollector interface {
	RecordTimelineRequest(filterType string)
	RecordMergeLatency(duration time.Duration)
	RecordCandidates(kind string, count int)
	RecordUpstreamError(kind string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	timelineRequests  *prometheus.CounterVec
	mergeLatency      prometheus.Histogram
	candidatesFetched *prometheus.CounterVec
	upstreamErrors    *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		timelineRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vitafeed_timeline_requests_total",
			Help: "フィルタ種別ごとのタイムラインリクエスト数",
		}, []string{"filter_type"}),
		mergeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vitafeed_timeline_merge_latency_seconds",
			Help:    "タイムラインのクエリとマージのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		candidatesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vitafeed_timeline_candidates_total",
			Help: "種別ごとに取得されたマージ候補の合計数",
		}, []string{"kind"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vitafeed_timeline_upstream_errors_total",
			Help: "種別ごとのストア呼び出し失敗の合計数",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vitafeed_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.timelineRequests,
		c.mergeLatency,
		c.candidatesFetched,
		c.upstreamErrors,
		c.httpStatus,
	)

	return c
}

// RecordTimelineRequest はタイムラインリクエストを記録する。
func (c *Collector) RecordTimelineRequest(filterType string) {
	c.timelineRequests.WithLabelValues(filterType).Inc()
}

// RecordMergeLatency はクエリとマージのレイテンシを記録する。
func (c *Collector) RecordMergeLatency(duration time.Duration) {
	c.mergeLatency.Observe(duration.Seconds())
}

// RecordCandidates は種別ごとのマージ候補数を記録する。
func (c *Collector) RecordCandidates(kind string, count int) {
	c.candidatesFetched.WithLabelValues(kind).Add(float64(count))
}

// RecordUpstreamError はストア呼び出し失敗を記録する。
func (c *Collector) RecordUpstreamError(kind string) {
	c.upstreamErrors.WithLabelValues(kind).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// NopTimelineCollector は何も記録しないTimelineCollector。テスト用。
type NopTimelineCollector struct{}

func (NopTimelineCollector) RecordTimelineRequest(string)     {}
func (NopTimelineCollector) RecordMergeLatency(time.Duration) {}
func (NopTimelineCollector) RecordCandidates(string, int)     {}
func (NopTimelineCollector) RecordUpstreamError(string)       {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ TimelineCollector = (*Collector)(nil)
var _ TimelineCollector = NopTimelineCollector{}
