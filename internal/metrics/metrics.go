// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordFollowCreated()
	RecordFollowRemoved()
	RecordLikeToggled(liked bool)
	RecordPostCreated()
	RecordPostDeleted()
	RecordCounterRepairs(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	followCreated  prometheus.Counter
	followRemoved  prometheus.Counter
	likeToggled    *prometheus.CounterVec
	postCreated    prometheus.Counter
	postDeleted    prometheus.Counter
	counterRepairs prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monknet_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "monknet_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		followCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monknet_follow_created_total",
			Help: "作成されたフォローエッジの合計数",
		}),
		followRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monknet_follow_removed_total",
			Help: "削除されたフォローエッジの合計数",
		}),
		likeToggled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monknet_like_toggled_total",
			Help: "いいね状態遷移の合計数",
		}, []string{"direction"}),
		postCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monknet_post_created_total",
			Help: "作成された投稿の合計数",
		}),
		postDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monknet_post_deleted_total",
			Help: "削除された投稿の合計数",
		}),
		counterRepairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monknet_counter_repairs_total",
			Help: "整合ワーカーが修復したカウンターの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.followCreated,
		c.followRemoved,
		c.likeToggled,
		c.postCreated,
		c.postDeleted,
		c.counterRepairs,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordFollowCreated はフォローエッジの作成を記録する。
func (c *Collector) RecordFollowCreated() {
	c.followCreated.Inc()
}

// RecordFollowRemoved はフォローエッジの削除を記録する。
func (c *Collector) RecordFollowRemoved() {
	c.followRemoved.Inc()
}

// RecordLikeToggled はいいね状態の遷移を記録する。
func (c *Collector) RecordLikeToggled(liked bool) {
	direction := "like"
	if !liked {
		direction = "unlike"
	}
	c.likeToggled.WithLabelValues(direction).Inc()
}

// RecordPostCreated は投稿の作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postCreated.Inc()
}

// RecordPostDeleted は投稿の削除を記録する。
func (c *Collector) RecordPostDeleted() {
	c.postDeleted.Inc()
}

// RecordCounterRepairs はワーカーによるカウンター修復件数を記録する。
func (c *Collector) RecordCounterRepairs(count int) {
	c.counterRepairs.Add(float64(count))
}

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

// NopCollector は何も記録しないMetricsCollector実装。テストで使用する。
type NopCollector struct{}

func (NopCollector) RecordHTTPStatus(int)              {}
func (NopCollector) RecordRequestLatency(time.Duration) {}
func (NopCollector) RecordFollowCreated()              {}
func (NopCollector) RecordFollowRemoved()              {}
func (NopCollector) RecordLikeToggled(bool)            {}
func (NopCollector) RecordPostCreated()                {}
func (NopCollector) RecordPostDeleted()                {}
func (NopCollector) RecordCounterRepairs(int)          {}

// compile-time interface checks
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
