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
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordSubscriptionScored(status string)
	RecordActionItem(actionType string)
	RecordVendorFeedback(outcome string)
	RecordVendorConfidence(confidence string)
	RecordHTTPStatus(statusCode int)
	RecordRescanDuration(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	subscriptionsScored *prometheus.CounterVec
	actionItems         *prometheus.CounterVec
	vendorFeedback      *prometheus.CounterVec
	vendorConfidence    *prometheus.CounterVec
	httpStatus          *prometheus.CounterVec
	rescanDuration      prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		subscriptionsScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subsense_subscriptions_scored_total",
			Help: "ステータス別のスコアリング件数",
		}, []string{"status"}),
		actionItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subsense_action_items_total",
			Help: "種類別の生成アクション数",
		}, []string{"type"}),
		vendorFeedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subsense_vendor_feedback_total",
			Help: "結果別の解約リンクフィードバック数",
		}, []string{"outcome"}),
		vendorConfidence: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subsense_vendor_confidence_total",
			Help: "フィードバック反映後の信頼度別件数",
		}, []string{"confidence"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subsense_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		rescanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "subsense_rescan_duration_seconds",
			Help:    "再スコアリング1周あたりの所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.subscriptionsScored,
		c.actionItems,
		c.vendorFeedback,
		c.vendorConfidence,
		c.httpStatus,
		c.rescanDuration,
	)

	return c
}

// RecordSubscriptionScored はスコアリング結果のステータスを記録する。
func (c *Collector) RecordSubscriptionScored(status string) {
	c.subscriptionsScored.WithLabelValues(status).Inc()
}

// RecordActionItem は生成されたアクションの種類を記録する。
func (c *Collector) RecordActionItem(actionType string) {
	c.actionItems.WithLabelValues(actionType).Inc()
}

// RecordVendorFeedback はフィードバックの結果を記録する。
func (c *Collector) RecordVendorFeedback(outcome string) {
	c.vendorFeedback.WithLabelValues(outcome).Inc()
}

// RecordVendorConfidence は再計算後の信頼度を記録する。
func (c *Collector) RecordVendorConfidence(confidence string) {
	c.vendorConfidence.WithLabelValues(confidence).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRescanDuration は再スコアリング1周の所要時間を記録する。
func (c *Collector) RecordRescanDuration(duration time.Duration) {
	c.rescanDuration.Observe(duration.Seconds())
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

var _ MetricsCollector = (*Collector)(nil)
