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
// レシピ生成、設定の解決・同期、広告取り込み、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordGenerationSuccess(duration time.Duration)
	RecordGenerationFailure(kind string, duration time.Duration)
	RecordSettingsResolution(source string)
	RecordRemoteSync(outcome string)
	RecordAdImport(count int, err error)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	generations       *prometheus.CounterVec
	generationLatency prometheus.Histogram
	resolutions       *prometheus.CounterVec
	remoteSyncs       *prometheus.CounterVec
	adImports         *prometheus.CounterVec
	adsImported       prometheus.Counter
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "samkitchen_generation_total",
			Help: "レシピ生成の結果別の回数（resultはsuccessまたは失敗の種類）",
		}, []string{"result"}),
		generationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "samkitchen_generation_latency_seconds",
			Help:    "レシピ生成APIのレイテンシ（秒）",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "samkitchen_settings_resolution_total",
			Help: "設定解決で最後に適用されたレイヤー別の回数",
		}, []string{"source"}),
		remoteSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "samkitchen_settings_remote_sync_total",
			Help: "管理者保存時のリモート同期の結果別の回数",
		}, []string{"outcome"}),
		adImports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "samkitchen_ad_import_total",
			Help: "広告フィード取り込みの結果別の回数",
		}, []string{"outcome"}),
		adsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "samkitchen_ads_imported_total",
			Help: "フィードから取り込んだ広告の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "samkitchen_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.generations,
		c.generationLatency,
		c.resolutions,
		c.remoteSyncs,
		c.adImports,
		c.adsImported,
		c.httpStatus,
	)

	return c
}

// RecordGenerationSuccess は生成成功とレイテンシを記録する。
func (c *Collector) RecordGenerationSuccess(duration time.Duration) {
	c.generations.WithLabelValues("success").Inc()
	c.generationLatency.Observe(duration.Seconds())
}

// RecordGenerationFailure は失敗の種類別に生成失敗とレイテンシを記録する。
func (c *Collector) RecordGenerationFailure(kind string, duration time.Duration) {
	c.generations.WithLabelValues(kind).Inc()
	c.generationLatency.Observe(duration.Seconds())
}

// RecordSettingsResolution は設定解決を記録する。
func (c *Collector) RecordSettingsResolution(source string) {
	c.resolutions.WithLabelValues(source).Inc()
}

// RecordRemoteSync はリモート同期の結果を記録する。
func (c *Collector) RecordRemoteSync(outcome string) {
	c.remoteSyncs.WithLabelValues(outcome).Inc()
}

// RecordAdImport は広告取り込みの結果を記録する。
func (c *Collector) RecordAdImport(count int, err error) {
	if err != nil {
		c.adImports.WithLabelValues("failure").Inc()
		return
	}
	c.adImports.WithLabelValues("success").Inc()
	c.adsImported.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
