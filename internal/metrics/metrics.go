package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry 是服务专用的 Prometheus registry
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// OptimizationRuns 按来源 (api、worker、cli) 和结果状态统计优化次数
	OptimizationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "optimization_runs_total", Help: "Optimization runs by origin and outcome."},
		[]string{"origin", "status"},
	)
	OptimizationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "optimization_duration_seconds", Help: "Wall-clock duration of optimization runs.", Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300}},
		[]string{"origin"},
	)
	BestFitness = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "optimization_best_fitness", Help: "Best fitness reached by completed runs.", Buckets: prometheus.ExponentialBuckets(100, 2, 12)},
	)
	Generations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "optimization_generations_total", Help: "Generations evaluated across all runs."},
	)
	JobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "optimization_jobs_in_flight", Help: "Optimization jobs currently being processed by this process."},
	)
)

var regOnce sync.Once

// RegisterDefault 把所有指标注册到 Registry，多次调用只注册一次
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(OptimizationRuns)
		Registry.MustRegister(OptimizationDuration)
		Registry.MustRegister(BestFitness)
		Registry.MustRegister(Generations)
		Registry.MustRegister(JobsInFlight)
		// 运行时和进程指标
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler 返回 /metrics 的 handler
func Handler() http.Handler {
	RegisterDefault()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
