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
// auth.AttemptRecorder、backend.CallRecorder、middleware.GateRecorder、
// middleware.RateLimitRecorder を満たす。
type Collector struct {
	loginAttempts   *prometheus.CounterVec
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	gateBlocks      *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	imageProxy      *prometheus.CounterVec
	revocationSwept prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planeats_login_attempts_total",
			Help: "結果別のログイン試行数",
		}, []string{"result"}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planeats_backend_requests_total",
			Help: "メソッドとステータスコード別のバックエンド呼び出し数（通信エラーは0）",
		}, []string{"method", "status_code"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "planeats_backend_latency_seconds",
			Help:    "バックエンド呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		gateBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planeats_gate_blocks_total",
			Help: "未認証で遮断したリクエスト数",
		}, []string{"kind"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planeats_rate_limited_total",
			Help: "レート制限で拒否したリクエスト数",
		}, []string{"limit_type"}),
		imageProxy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planeats_image_proxy_total",
			Help: "結果別の画像プロキシ要求数",
		}, []string{"result"}),
		revocationSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planeats_revocations_swept_total",
			Help: "期限切れで削除した失効エントリの合計数",
		}),
	}

	reg.MustRegister(
		c.loginAttempts,
		c.backendRequests,
		c.backendLatency,
		c.gateBlocks,
		c.rateLimited,
		c.imageProxy,
		c.revocationSwept,
	)

	return c
}

// RecordLoginAttempt はログイン試行の結果を記録する。
func (c *Collector) RecordLoginAttempt(result string) {
	c.loginAttempts.WithLabelValues(result).Inc()
}

// RecordBackendCall はバックエンド呼び出しのステータスとレイテンシを記録する。
func (c *Collector) RecordBackendCall(method string, statusCode int, duration time.Duration) {
	c.backendRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.backendLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordGateBlock はゲートによる遮断を記録する。
func (c *Collector) RecordGateBlock(kind string) {
	c.gateBlocks.WithLabelValues(kind).Inc()
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited(limitType string) {
	c.rateLimited.WithLabelValues(limitType).Inc()
}

// RecordImageProxy は画像プロキシの結果を記録する。
func (c *Collector) RecordImageProxy(result string) {
	c.imageProxy.WithLabelValues(result).Inc()
}

// RecordRevocationsSwept は失効リストの定期削除件数を記録する。
func (c *Collector) RecordRevocationsSwept(count int) {
	c.revocationSwept.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
