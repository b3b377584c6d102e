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
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordLikeToggle(action string)
	RecordTokenRejected(reason string)
	RecordLogin(result string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(route string, duration time.Duration)
	RecordRateLimited(limitType string)
	RecordPanic()
}

// Collector はPrometheusメトリクスを収集する実装。
// サービス名はconst labelとして全メトリクスに付与する。
type Collector struct {
	likeToggles    *prometheus.CounterVec
	tokenRejected  *prometheus.CounterVec
	logins         *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	rateLimited    *prometheus.CounterVec
	panics         prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer, service string) *Collector {
	labels := prometheus.Labels{"service": service}
	c := &Collector{
		likeToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "redsocial_like_toggles_total",
			Help:        "いいねトグルの結果別の合計数",
			ConstLabels: labels,
		}, []string{"action"}),
		tokenRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "redsocial_token_rejected_total",
			Help:        "ガードで拒否したトークンの理由別の合計数",
			ConstLabels: labels,
		}, []string{"reason"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "redsocial_logins_total",
			Help:        "ログイン試行の結果別の合計数",
			ConstLabels: labels,
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "redsocial_http_status_total",
			Help:        "HTTPステータスコード別のレスポンス数",
			ConstLabels: labels,
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "redsocial_request_duration_seconds",
			Help:        "ルート別のリクエスト処理時間（秒）",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"route"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "redsocial_rate_limited_total",
			Help:        "レート制限で拒否したリクエスト数",
			ConstLabels: labels,
		}, []string{"limit_type"}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "redsocial_panics_total",
			Help:        "ハンドラーで回復したpanicの数",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(
		c.likeToggles,
		c.tokenRejected,
		c.logins,
		c.httpStatus,
		c.requestLatency,
		c.rateLimited,
		c.panics,
	)

	return c
}

// RecordLikeToggle はいいねトグルの結果（added / removed）を記録する。
func (c *Collector) RecordLikeToggle(action string) {
	c.likeToggles.WithLabelValues(action).Inc()
}

// RecordTokenRejected はトークン拒否を理由（missing / invalid / expired）別に記録する。
func (c *Collector) RecordTokenRejected(reason string) {
	c.tokenRejected.WithLabelValues(reason).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はルート別の処理時間を記録する。
func (c *Collector) RecordRequestLatency(route string, duration time.Duration) {
	c.requestLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited(limitType string) {
	c.rateLimited.WithLabelValues(limitType).Inc()
}

// RecordPanic は回復したpanicを記録する。
func (c *Collector) RecordPanic() {
	c.panics.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordLikeToggle(string)                    {}
func (NopCollector) RecordTokenRejected(string)                 {}
func (NopCollector) RecordLogin(string)                         {}
func (NopCollector) RecordHTTPStatus(int)                       {}
func (NopCollector) RecordRequestLatency(string, time.Duration) {}
func (NopCollector) RecordRateLimited(string)                   {}
func (NopCollector) RecordPanic()                               {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
