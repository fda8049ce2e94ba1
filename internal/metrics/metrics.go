package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"makiti/internal/domain"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "makiti_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "makiti_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	orderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "makiti_order_operations_total",
			Help: "Order operations by outcome",
		},
		[]string{"operation", "status"},
	)

	checkoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "makiti_checkout_duration_seconds",
			Help:    "Duration of the checkout saga",
			Buckets: prometheus.DefBuckets,
		},
	)

	stockCompensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "makiti_stock_compensations_total",
			Help: "Stock restorations made by checkout compensation",
		},
		[]string{"result"},
	)

	dispatchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "makiti_notification_dispatch_total",
			Help: "Outbox deliveries by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)

// Middleware collects request counters and latencies per route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		code := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			} else {
				code = fiber.StatusInternalServerError
			}
		}
		status := strconv.Itoa(code)
		httpRequestsTotal.WithLabelValues(c.Method(), path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), path, status).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the default registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// RecordOrderOperation counts an order operation; the status label is
// "success" or the lower-cased error code.
func RecordOrderOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = strings.ToLower(string(domain.CodeOf(err)))
	}
	orderOperations.WithLabelValues(operation, status).Inc()
}

func ObserveCheckout(d time.Duration) { checkoutDuration.Observe(d.Seconds()) }

func RecordCompensation(ok bool) {
	result := "restored"
	if !ok {
		result = "failed"
	}
	stockCompensations.WithLabelValues(result).Inc()
}

func RecordDispatch(kind, outcome string) { dispatchOutcomes.WithLabelValues(kind, outcome).Inc() }
