package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Comments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lyceum_comments_total",
		Help: "Comment mutations by action.",
	}, []string{"action"})

	Votes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lyceum_votes_total",
		Help: "Vote mutations by target type and action.",
	}, []string{"type", "action"})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lyceum_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Register adds the collectors to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{Comments, Votes, RequestDuration} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// Middleware records request latency labelled by the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
