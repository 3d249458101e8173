package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/flybeeper/ais-dashboard/internal/aisclient"
	"github.com/flybeeper/ais-dashboard/internal/filter"
	"github.com/flybeeper/ais-dashboard/internal/metrics"
	"github.com/flybeeper/ais-dashboard/internal/query"
	"github.com/flybeeper/ais-dashboard/internal/session"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
	"github.com/gin-gonic/gin"
)

// apiError код и HTTP статус ошибки API
type apiError struct {
	Status  int
	Code    string
	Message string
}

// classifyError сопоставляет доменные ошибки с ответами API
func classifyError(err error) apiError {
	var se *aisclient.StatusError
	switch {
	case errors.Is(err, query.ErrInvalidParams):
		return apiError{http.StatusBadRequest, "invalid_params", err.Error()}
	case errors.Is(err, aisclient.ErrNoData):
		return apiError{http.StatusNotFound, "no_data", "No route data for the requested vessel and period"}
	case errors.Is(err, session.ErrNotFound):
		return apiError{http.StatusNotFound, "search_not_found", "Search result not found or expired"}
	case errors.Is(err, session.ErrSuperseded):
		return apiError{http.StatusConflict, "superseded", "A newer search was started"}
	case errors.Is(err, filter.ErrOutOfOrder):
		return apiError{http.StatusUnprocessableEntity, "out_of_order", err.Error()}
	case errors.Is(err, aisclient.ErrUnavailable):
		return apiError{http.StatusServiceUnavailable, "upstream_unavailable", "AIS backend is temporarily unavailable"}
	case errors.Is(err, aisclient.ErrMalformedResponse), errors.As(err, &se):
		return apiError{http.StatusBadGateway, "upstream_error", err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return apiError{http.StatusGatewayTimeout, "upstream_timeout", "AIS backend did not respond in time"}
	default:
		return apiError{http.StatusInternalServerError, "internal_error", "Internal server error"}
	}
}

// respondError пишет {code,message}. Ошибки 5xx логируются.
func respondError(c *gin.Context, logger *utils.Logger, err error) {
	apiErr := classifyError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.WithField("path", c.FullPath()).WithError(err).Error("Request failed")
	}
	writeError(c, apiErr.Status, apiErr.Code, apiErr.Message)
}

func badRequest(c *gin.Context, code, message string) {
	writeError(c, http.StatusBadRequest, code, message)
}

// writeError пишет тело {code, message} и отмечает код для метрик
func writeError(c *gin.Context, status int, code, message string) {
	metrics.SetErrorCode(c, code)
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}
