package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Request latency buckets, in milliseconds. Outbound platform calls can take
// tens of seconds, so the range extends well past the usual API percentiles.
var HistogramBuckets = []float64{
	25, 50, 75, 100, 150, 200, 300, 400, 500,
	750, 1000, 1500, 2000,
	3000, 5000, 7500, 10000, 15000,
	30000, 60000, 120000,
}

// Prometheus exposes HTTP request metrics on a dedicated listener.
type Prometheus struct {
	reqCnt  *prometheus.CounterVec
	reqDur  *prometheus.HistogramVec
	urlFn   func(c *gin.Context) string
	log     *zap.SugaredLogger
	address string
}

type NewPrometheusOptions struct {
	// ReqCntURLLabelMappingFn maps a request to its url label; defaults to the
	// matched route path to keep cardinality bounded.
	ReqCntURLLabelMappingFn func(c *gin.Context) string
	Logger                  *zap.SugaredLogger
}

func NewPrometheus(opts NewPrometheusOptions) *Prometheus {
	p := &Prometheus{
		reqCnt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "http",
			Name:      "req_total",
			Help:      "How many HTTP requests processed, partitioned by status code, method and url.",
		}, []string{"code", "method", "url"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: "http",
			Name:      "req_dur_ms",
			Help:      "The HTTP request latencies in milliseconds.",
			Buckets:   HistogramBuckets,
		}, []string{"code", "method", "url"}),
		urlFn: opts.ReqCntURLLabelMappingFn,
		log:   opts.Logger,
	}
	if p.urlFn == nil {
		p.urlFn = func(c *gin.Context) string {
			if fp := c.FullPath(); fp != "" {
				return fp
			}
			return c.Request.URL.Path
		}
	}
	prometheus.MustRegister(p.reqCnt, p.reqDur)
	return p
}

func (p *Prometheus) SetListenAddress(addr string) { p.address = addr }

// Use attaches the middleware to the engine and starts the metrics listener.
func (p *Prometheus) Use(r *gin.Engine) {
	r.Use(p.handlerFunc())
	if p.address != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(p.address, mux); err != nil && p.log != nil {
				p.log.Errorw("metrics listener stopped", "err", err)
			}
		}()
	}
}

func (p *Prometheus) handlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		url := p.urlFn(c)
		elapsed := float64(time.Since(start).Milliseconds())
		p.reqCnt.WithLabelValues(status, c.Request.Method, url).Inc()
		p.reqDur.WithLabelValues(status, c.Request.Method, url).Observe(elapsed)
	}
}
