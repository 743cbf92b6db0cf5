// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordLogin(provider string)
	RecordBookmarkCreated()
	RecordBookmarkDeleted()
	RecordFeedEvent(operation string)
	IncFeedSubscribers()
	DecFeedSubscribers()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins           *prometheus.CounterVec
	bookmarksCreated prometheus.Counter
	bookmarksDeleted prometheus.Counter
	feedEvents       *prometheus.CounterVec
	feedSubscribers  prometheus.Gauge
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marksync_logins_total",
			Help: "プロバイダー別のログイン成功の合計数",
		}, []string{"provider"}),
		bookmarksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marksync_bookmarks_created_total",
			Help: "作成されたブックマークの合計数",
		}),
		bookmarksDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marksync_bookmarks_deleted_total",
			Help: "削除されたブックマークの合計数",
		}),
		feedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marksync_feed_events_total",
			Help: "変更フィードで配信されたイベントの合計数",
		}, []string{"operation"}),
		feedSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "marksync_feed_subscribers",
			Help: "現在の変更フィード購読者数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marksync_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.logins,
		c.bookmarksCreated,
		c.bookmarksDeleted,
		c.feedEvents,
		c.feedSubscribers,
		c.httpStatus,
	)

	return c
}

// RecordLogin はログイン成功を記録する。
func (c *Collector) RecordLogin(provider string) {
	c.logins.WithLabelValues(provider).Inc()
}

// RecordBookmarkCreated はブックマーク作成を記録する。
func (c *Collector) RecordBookmarkCreated() {
	c.bookmarksCreated.Inc()
}

// RecordBookmarkDeleted はブックマーク削除を記録する。
func (c *Collector) RecordBookmarkDeleted() {
	c.bookmarksDeleted.Inc()
}

// RecordFeedEvent は変更フィードイベントの配信を記録する。
func (c *Collector) RecordFeedEvent(operation string) {
	c.feedEvents.WithLabelValues(operation).Inc()
}

// IncFeedSubscribers は変更フィード購読者数を増加させる。
func (c *Collector) IncFeedSubscribers() {
	c.feedSubscribers.Inc()
}

// DecFeedSubscribers は変更フィード購読者数を減少させる。
func (c *Collector) DecFeedSubscribers() {
	c.feedSubscribers.Dec()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
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

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
