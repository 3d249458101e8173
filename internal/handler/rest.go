package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/config"
	"github.com/flybeeper/ais-dashboard/internal/export"
	"github.com/flybeeper/ais-dashboard/internal/filter"
	"github.com/flybeeper/ais-dashboard/internal/format"
	"github.com/flybeeper/ais-dashboard/internal/metrics"
	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/flybeeper/ais-dashboard/internal/query"
	"github.com/flybeeper/ais-dashboard/internal/repository"
	"github.com/flybeeper/ais-dashboard/internal/session"
	"github.com/flybeeper/ais-dashboard/pkg/pool"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
	"github.com/gin-gonic/gin"
)

// ClientIDHeader идентификатор вкладки/клиента для last-write-wins поиска
const ClientIDHeader = "X-Client-ID"

// RESTHandler обработчик REST API endpoints
type RESTHandler struct {
	sessions *session.Manager
	upstream Upstream
	buoys    repository.BuoyCache
	catalog  repository.BuoyCatalog
	loc      *time.Location
	features config.FeaturesConfig
	logger   *utils.Logger
	timeout  time.Duration
}

// NewRESTHandler создает новый REST handler
func NewRESTHandler(deps Dependencies, features config.FeaturesConfig, logger *utils.Logger) *RESTHandler {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &RESTHandler{
		sessions: deps.Sessions,
		upstream: deps.Upstream,
		buoys:    deps.Buoys,
		catalog:  deps.Catalog,
		loc:      loc,
		features: features,
		logger:   logger,
		timeout:  60 * time.Second,
	}
}

// clientID берется из заголовка, затем из query, иначе IP
func clientID(c *gin.Context) string {
	if id := c.GetHeader(ClientIDHeader); id != "" {
		return id
	}
	if id := c.Query("client_id"); id != "" {
		return id
	}
	return c.ClientIP()
}

// GetGapOptions значения селектора интервала
// GET /api/v1/gap-options
func (h *RESTHandler) GetGapOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"options": filter.GapOptions,
	})
}

// GetRadiusOptions радиусы зоны анализа
// GET /api/v1/radius-options
func (h *RESTHandler) GetRadiusOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"options":    query.RadiusOptions,
		"default":    query.DefaultRadiusMeters,
		"min_hours":  query.MinWindowHours,
		"max_hours":  query.MaxWindowHours,
		"any_radius": h.features.AllowAnyRadius,
	})
}

// searchRequest тело POST /history/search. Время в Unix секундах или RFC3339.
type searchRequest struct {
	MMSI  models.FlexString `json:"mmsi"`
	Name  string            `json:"name"`
	Begin models.FlexString `json:"begin"`
	End   models.FlexString `json:"end"`
	Gap   models.FlexString `json:"gap"`
}

func (r searchRequest) values() url.Values {
	v := url.Values{}
	v.Set("mmsi", r.MMSI.String())
	v.Set("name", r.Name)
	v.Set("begin", r.Begin.String())
	v.Set("end", r.End.String())
	v.Set("gap", r.Gap.String())
	return v
}

func searchValues(c *gin.Context) (url.Values, error) {
	if c.Request.Method != http.MethodPost {
		return c.Request.URL.Query(), nil
	}
	if c.ContentType() == gin.MIMEJSON {
		var req searchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, fmt.Errorf("%w: %v", query.ErrInvalidParams, err)
		}
		return req.values(), nil
	}
	if err := c.Request.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrInvalidParams, err)
	}
	return c.Request.Form, nil
}

// SearchHistory запрашивает маршрут у AIS бэкенда и сохраняет сырой список.
// Ответ содержит первое представление с интервалом gap.
// GET|POST /api/v1/history/search?mmsi=...&begin=...&end=...&gap=300
func (h *RESTHandler) SearchHistory(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	values, err := searchValues(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	params, err := query.ParseHistoryParams(values)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	sample, err := filter.ParseGap(values.Get("gap"))
	if err != nil {
		badRequest(c, "invalid_gap", err.Error())
		return
	}

	result, err := h.sessions.Search(ctx, clientID(c), params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	view, err := h.sessions.View(ctx, result.SearchID, sample)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, searchJSON{
		SearchID: result.SearchID,
		TotalRaw: result.RawCount,
		View:     convertView(view, h.loc),
	})
}

// GetLatestSearch представление последнего зафиксированного поиска клиента
// GET /api/v1/history?gap=300
func (h *RESTHandler) GetLatestSearch(c *gin.Context) {
	sample, err := filter.ParseGap(c.Query("gap"))
	if err != nil {
		badRequest(c, "invalid_gap", err.Error())
		return
	}

	searchID, ok := h.sessions.Latest(c.Request.Context(), clientID(c))
	if !ok {
		writeError(c, http.StatusNotFound, "search_not_found", "No search for this client")
		return
	}

	view, err := h.sessions.View(c.Request.Context(), searchID, sample)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, convertView(view, h.loc))
}

// DiscardSearch отменяет поиск клиента и удаляет сырой список (уход со страницы)
// DELETE /api/v1/history
func (h *RESTHandler) DiscardSearch(c *gin.Context) {
	h.sessions.Discard(c.Request.Context(), clientID(c))
	c.Status(http.StatusNoContent)
}

// GetView пересчитывает представление из сырого списка
// GET /api/v1/history/:search_id?gap=300
func (h *RESTHandler) GetView(c *gin.Context) {
	sample, err := filter.ParseGap(c.Query("gap"))
	if err != nil {
		badRequest(c, "invalid_gap", err.Error())
		return
	}

	view, err := h.sessions.View(c.Request.Context(), c.Param("search_id"), sample)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, convertView(view, h.loc))
}

// ExportView выгружает все точки представления (без ограничения таблицы)
// GET /api/v1/history/:search_id/export?gap=300&format=xlsx
func (h *RESTHandler) ExportView(c *gin.Context) {
	sample, err := filter.ParseGap(c.Query("gap"))
	if err != nil {
		badRequest(c, "invalid_gap", err.Error())
		return
	}
	f, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		badRequest(c, "invalid_format", err.Error())
		return
	}

	view, err := h.sessions.View(c.Request.Context(), c.Param("search_id"), sample)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	buf := pool.Global.GetBuffer()
	defer pool.Global.PutBuffer(buf)

	if err := export.Write(buf, f, view.Points, h.loc); err != nil {
		respondError(c, h.logger, fmt.Errorf("export %s: %w", f, err))
		return
	}
	metrics.ExportsTotal.WithLabelValues(string(f)).Inc()

	name := export.FileName(export.FilePrefix, time.Now(), f)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, f.ContentType(), buf.Bytes())

	h.logger.WithFields(map[string]interface{}{
		"search_id": view.SearchID,
		"format":    string(f),
		"points":    len(view.Points),
		"bytes":     buf.Len(),
	}).Info("Route exported")
}

// GetBuoyActivity анализ активности судна у буя
// GET /api/v1/buoy-activity?mmsi=...&buoy_id=...&start_time=...&hours=2&radius=100
func (h *RESTHandler) GetBuoyActivity(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	params, err := query.ParseActivityParams(c.Request.URL.Query(), h.features.AllowAnyRadius)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	activity, err := h.upstream.FetchBuoyActivity(ctx, params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activity":   convertActivity(activity),
		"start_time": params.Start.Unix(),
		"end_time":   params.End().Unix(),
		"window":     fmt.Sprintf("%s - %s", format.Time(params.Start.Unix(), h.loc), format.Time(params.End().Unix(), h.loc)),
	})
}

// isNotFound ошибка отсутствия записи в кеше или каталоге
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
