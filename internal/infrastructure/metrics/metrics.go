package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/futuretasks/core/internal/domain/entities"
)

// Collector owns the prometheus registry and every metric the application exports.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	taskOperations      *prometheus.CounterVec
	persistenceFailures *prometheus.CounterVec
	tasks               *prometheus.GaugeVec
}

// New creates and registers all collectors
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		taskOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "futuretasks_task_operations_total",
				Help: "Task store operations by outcome",
			},
			[]string{"operation", "result"},
		),
		persistenceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "futuretasks_persistence_failures_total",
				Help: "Backend reads and writes that failed",
			},
			[]string{"op"},
		),
		tasks: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "futuretasks_tasks",
				Help: "Tasks currently held by the store",
			},
			[]string{"state"},
		),
	}

	c.registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.taskOperations,
		c.persistenceFailures,
		c.tasks,
	)

	return c
}

// Registry exposes the underlying registry for tests and custom handlers.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveOperation counts one task store operation.
func (c *Collector) ObserveOperation(operation string, err error) {
	c.taskOperations.WithLabelValues(operation, resultLabel(err)).Inc()
}

// ObservePersistenceFailure counts one failed backend call.
func (c *Collector) ObservePersistenceFailure(op string) {
	c.persistenceFailures.WithLabelValues(op).Inc()
}

// SetTaskCounts publishes the current collection size.
func (c *Collector) SetTaskCounts(stats entities.Stats) {
	c.tasks.WithLabelValues("total").Set(float64(stats.Total))
	c.tasks.WithLabelValues("completed").Set(float64(stats.Completed))
	c.tasks.WithLabelValues("pending").Set(float64(stats.Pending))
}

// Middleware records request counts and latencies
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			duration := time.Since(start)
			status := ctx.Response().Status

			c.requestsTotal.WithLabelValues(
				ctx.Request().Method,
				ctx.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			c.requestDuration.WithLabelValues(
				ctx.Request().Method,
				ctx.Path(),
			).Observe(duration.Seconds())

			return err
		}
	}
}

// Handler serves the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case entities.IsWarning(err):
		return "warning"
	case errors.Is(err, entities.ErrTaskNotFound):
		return "not_found"
	case errors.Is(err, entities.ErrInvalidInput), errors.Is(err, entities.ErrInvalidFormat):
		return "rejected"
	default:
		return "error"
	}
}
