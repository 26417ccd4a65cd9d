package middleware

import (
	"bookstore-payments/internal/metric"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the final status
				c.Error(err)
			}
			metric.HTTPRequests.
				WithLabelValues(c.Request().Method, strconv.Itoa(c.Response().Status)).
				Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
