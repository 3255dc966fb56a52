package middleware

import (
	"strconv"
	"time"

	"Sahaaya/internal/metrics"

	"github.com/labstack/echo/v4"
)

// HTTPMetrics records request counts, latencies and in-flight requests.
// Endpoints are labelled by route template so ids do not explode cardinality.
func HTTPMetrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			method := c.Request().Method

			m.IncRequestsInFlight(method, endpoint)
			defer m.DecRequestsInFlight(method, endpoint)

			if err := next(c); err != nil {
				c.Error(err)
			}

			statusCode := strconv.Itoa(c.Response().Status)
			m.RecordHTTPRequest(method, endpoint, statusCode, time.Since(start).Seconds())
			return nil
		}
	}
}
