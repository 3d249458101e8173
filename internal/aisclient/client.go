// Package aisclient клиент внешнего AIS бэкенда: исторические маршруты,
// список буев и анализ активности у буя.
package aisclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/config"
	"github.com/flybeeper/ais-dashboard/internal/metrics"
	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/flybeeper/ais-dashboard/internal/query"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	HistoryRoutePath = "/ais/historyroute"
	BuoysPath        = "/buoys"
	BuoyActivityPath = "/ais/buoy-activity"

	maxResponseBytes = 64 << 20
	maxErrorBody     = 512

	// maxAbsUTCPos 9999-12-31T23:59:59Z. Разность любых двух допустимых
	// значений помещается в int64.
	maxAbsUTCPos = 253402300799
)

var (
	// ErrNoData ответ не содержит списка точек (нет Response или Response[0] не массив)
	ErrNoData = errors.New("no data")
	// ErrMalformedResponse ответ бэкенда не удалось разобрать
	ErrMalformedResponse = errors.New("malformed AIS response")
	// ErrUnavailable бэкенд временно недоступен (circuit breaker открыт)
	ErrUnavailable = errors.New("AIS backend unavailable")
)

// StatusError бэкенд вернул не-2xx статус
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("AIS backend %s returned status %d", e.Endpoint, e.Code)
}

// Client HTTP клиент AIS бэкенда
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	cb        *gobreaker.CircuitBreaker[[]byte]
	logger    *utils.Logger
	now       func() time.Time
}

// New создает клиент
func New(cfg *config.AISConfig, breaker *config.BreakerConfig, logger *utils.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ais config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid AIS base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	if breaker == nil {
		breaker = &config.BreakerConfig{MaxRequests: 3, Interval: time.Minute, Timeout: 30 * time.Second, FailureThreshold: 5}
	}

	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		cb:        newBreaker(breakerName, breaker, logger),
		logger:    logger,
		now:       time.Now,
	}, nil
}

// BreakerState текущее состояние circuit breaker
func (c *Client) BreakerState() string {
	return stateToString(c.cb.State())
}

// historyEnvelope ответ /ais/historyroute
type historyEnvelope struct {
	Response []json.RawMessage `json:"Response"`
}

// rawPoint точка до проверки времени
type rawPoint struct {
	UTCPos   json.Number       `json:"utcpos"`
	Distance float64           `json:"distance"`
	Lon      float64           `json:"lon"`
	Lat      float64           `json:"lat"`
	Cog      models.FlexString `json:"cog"`
	Sog      models.FlexString `json:"sog"`
	Name     string            `json:"name"`
}

// FetchHistoryRoute запрашивает исторический маршрут судна.
// Каждый вызов уникален (параметр _ содержит текущее время в миллисекундах).
func (c *Client) FetchHistoryRoute(ctx context.Context, params query.HistoryParams) ([]models.TrackPoint, error) {
	body, err := c.get(ctx, HistoryRoutePath, params.Values(c.now().UnixMilli()))
	if err != nil {
		return nil, err
	}

	points, err := decodeHistory(body)
	if err != nil {
		return nil, err
	}

	metrics.TrackPointsFetched.Observe(float64(len(points)))
	c.logger.WithFields(map[string]interface{}{
		"mmsi":   params.MMSI,
		"name":   params.Name,
		"points": len(points),
	}).Debug("Fetched history route")

	return points, nil
}

// decodeHistory разбирает {"Response":[[...]]}. Нечисловое utcpos отклоняет весь ответ.
func decodeHistory(body []byte) ([]models.TrackPoint, error) {
	var env historyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(env.Response) == 0 {
		return nil, ErrNoData
	}
	first := bytes.TrimSpace(env.Response[0])
	if len(first) == 0 || first[0] != '[' {
		return nil, ErrNoData
	}

	var raw []rawPoint
	if err := json.Unmarshal(first, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	points := make([]models.TrackPoint, len(raw))
	for i, r := range raw {
		ts, err := parseTimestamp(r.UTCPos)
		if err != nil {
			return nil, fmt.Errorf("%w: point %d: %v", ErrMalformedResponse, i, err)
		}
		points[i] = models.TrackPoint{
			Timestamp:  ts,
			Latitude:   r.Lat,
			Longitude:  r.Lon,
			Heading:    r.Cog,
			Speed:      r.Sog,
			DistanceKm: r.Distance,
			Name:       r.Name,
		}
	}
	return points, nil
}

func parseTimestamp(n json.Number) (int64, error) {
	if n == "" {
		return 0, fmt.Errorf("missing utcpos")
	}
	if ts, err := n.Int64(); err == nil {
		if ts > maxAbsUTCPos || ts < -maxAbsUTCPos {
			return 0, fmt.Errorf("utcpos %d is out of range", ts)
		}
		return ts, nil
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("utcpos %q is not numeric", n.String())
	}
	f = math.Floor(f)
	if f > maxAbsUTCPos || f < -maxAbsUTCPos {
		return 0, fmt.Errorf("utcpos %q is out of range", n.String())
	}
	return int64(f), nil
}

// FetchBuoys запрашивает список буев
func (c *Client) FetchBuoys(ctx context.Context) ([]models.Buoy, error) {
	body, err := c.get(ctx, BuoysPath, nil)
	if err != nil {
		return nil, err
	}

	var buoys []models.Buoy
	if err := json.Unmarshal(body, &buoys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if buoys == nil {
		buoys = []models.Buoy{}
	}
	return buoys, nil
}

// FetchBuoyActivity запрашивает анализ активности судна у буя
func (c *Client) FetchBuoyActivity(ctx context.Context, params query.ActivityParams) (*models.BuoyActivity, error) {
	body, err := c.get(ctx, BuoyActivityPath, params.Values())
	if err != nil {
		return nil, err
	}

	var activity models.BuoyActivity
	if err := json.Unmarshal(body, &activity); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &activity, nil
}

// get выполняет GET через circuit breaker
func (c *Client) get(ctx context.Context, path string, values url.Values) ([]byte, error) {
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.doGet(ctx, path, values)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.WithField("endpoint", path).WithError(err).Warn("AIS request rejected by circuit breaker")
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) doGet(ctx context.Context, path string, values url.Values) ([]byte, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if values != nil {
		u.RawQuery = values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequestDuration.WithLabelValues(path, "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("AIS request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	metrics.UpstreamRequestDuration.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Endpoint: path, Code: resp.StatusCode, Body: string(snippet)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read AIS response: %w", err)
	}
	return body, nil
}
