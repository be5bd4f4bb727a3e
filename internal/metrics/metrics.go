// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// カタログサービスのMetricsRecorderとHTTPミドルウェアのRequestMetricsを満たす。
type Collector struct {
	cacheHit       *prometheus.CounterVec
	cacheMiss      *prometheus.CounterVec
	moviesUpserted prometheus.Counter
	providerError  *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheHit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinedex_cache_hit_total",
			Help: "キャッシュヒットの合計数（キー種別ごと）",
		}, []string{"family"}),
		cacheMiss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinedex_cache_miss_total",
			Help: "キャッシュミスの合計数（キー種別ごと）",
		}, []string{"family"}),
		moviesUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinedex_movies_upserted_total",
			Help: "アップサートされた映画の合計数",
		}),
		providerError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinedex_provider_error_total",
			Help: "TMDbへのリクエスト失敗の合計数（エンドポイントごと）",
		}, []string{"endpoint"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinedex_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cinedex_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.cacheHit,
		c.cacheMiss,
		c.moviesUpserted,
		c.providerError,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit(family string) {
	c.cacheHit.WithLabelValues(family).Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss(family string) {
	c.cacheMiss.WithLabelValues(family).Inc()
}

// RecordMoviesUpserted はアップサートされた映画数を記録する。
func (c *Collector) RecordMoviesUpserted(count int) {
	c.moviesUpserted.Add(float64(count))
}

// RecordProviderError はTMDbへのリクエスト失敗を記録する。
func (c *Collector) RecordProviderError(endpoint string) {
	c.providerError.WithLabelValues(endpoint).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
