package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorCodeKey ключ gin контекста с кодом ошибки API ("superseded", "out_of_order", ...)
const ErrorCodeKey = "api_error_code"

// SetErrorCode сохраняет код ошибки API для метрик запроса
func SetErrorCode(c *gin.Context, code string) {
	c.Set(ErrorCodeKey, code)
}

// HTTPMetricsMiddleware собирает длительность и число запросов по маршрутам,
// а для ответов с ошибкой еще и по коду ошибки API. Пути из skip не учитываются.
func HTTPMetricsMiddleware(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		HTTPRequestDuration.WithLabelValues(method, endpoint, status).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()

		if code := c.GetString(ErrorCodeKey); code != "" {
			HTTPErrorsTotal.WithLabelValues(endpoint, code).Inc()
		}
	}
}
