// Package session управляет результатами поиска исторических маршрутов:
// хранит сырой список точек и строит из него прореженные представления.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/config"
	"github.com/flybeeper/ais-dashboard/internal/filter"
	"github.com/flybeeper/ais-dashboard/internal/metrics"
	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/flybeeper/ais-dashboard/internal/query"
	"github.com/flybeeper/ais-dashboard/internal/repository"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
	"github.com/google/uuid"
)

var (
	// ErrSuperseded пока шел запрос, клиент начал более новый поиск
	ErrSuperseded = errors.New("search superseded by a newer one")
	// ErrNotFound результат поиска отсутствует или истек
	ErrNotFound = errors.New("search not found")
)

// Fetcher источник исторических маршрутов
type Fetcher interface {
	FetchHistoryRoute(ctx context.Context, params query.HistoryParams) ([]models.TrackPoint, error)
}

// SearchResult зафиксированный результат поиска
type SearchResult struct {
	SearchID string
	RawCount int
}

// View прореженное представление сырого списка
type View struct {
	SearchID   string
	GapSeconds int64
	RawCount   int
	Points     []models.TrackPoint
	Stats      filter.FilterStats
}

// Manager связывает загрузку маршрутов, хранилище сырых списков и прореживание
type Manager struct {
	fetcher Fetcher
	store   repository.TrackStore
	tracker *Tracker
	order   filter.OrderPolicy
	logger  *utils.Logger
	newID   func() string
}

// NewManager создает менеджер. Состояние клиентов живет столько же, сколько
// сырые списки (TrackTTL), и ограничено MaxClients.
func NewManager(fetcher Fetcher, store repository.TrackStore, sessions *config.SessionConfig, order filter.OrderPolicy, logger *utils.Logger) *Manager {
	if logger == nil {
		logger = utils.NopLogger()
	}
	maxClients, ttl := DefaultMaxClients, repository.DefaultTrackTTL
	if sessions != nil {
		if sessions.MaxClients > 0 {
			maxClients = sessions.MaxClients
		}
		if sessions.TrackTTL > 0 {
			ttl = sessions.TrackTTL
		}
	}
	return &Manager{
		fetcher: fetcher,
		store:   store,
		tracker: NewTracker(maxClients, ttl),
		order:   order,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// Search загружает маршрут и фиксирует его как последний результат клиента.
// Незавершенный предыдущий поиск клиента отменяется. Если во время загрузки
// клиент начал новый поиск, результат отбрасывается с ErrSuperseded.
func (m *Manager) Search(ctx context.Context, clientID string, params query.HistoryParams) (*SearchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	metrics.ActiveSearches.Inc()
	defer metrics.ActiveSearches.Dec()

	// Отмена родителя освобождает контекст запроса, даже если состояние клиента уже вытеснено
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fetchCtx, gen := m.tracker.Begin(ctx, clientID)
	defer m.tracker.Finish(clientID, gen)

	start := time.Now()
	points, err := m.fetcher.FetchHistoryRoute(fetchCtx, params)
	if err != nil {
		if !m.tracker.Current(clientID, gen) {
			return nil, ErrSuperseded
		}
		return nil, err
	}

	searchID := m.newID()
	if err := m.store.SaveTrack(ctx, searchID, points); err != nil {
		return nil, fmt.Errorf("failed to store search result: %w", err)
	}

	previous, ok := m.tracker.Commit(clientID, gen, searchID)
	if !ok {
		m.discard(ctx, searchID)
		return nil, ErrSuperseded
	}
	if previous != "" {
		m.discard(ctx, previous)
	}

	m.logger.WithFields(map[string]interface{}{
		"client_id": clientID,
		"search_id": searchID,
		"mmsi":      params.MMSI,
		"points":    len(points),
		"duration":  time.Since(start).String(),
	}).Info("History search completed")

	return &SearchResult{SearchID: searchID, RawCount: len(points)}, nil
}

// View строит представление с заданным интервалом из сохраненного сырого списка.
// Сырой список не изменяется и прореженный результат не сохраняется.
func (m *Manager) View(ctx context.Context, searchID string, sample filter.SampleFilterConfig) (*View, error) {
	raw, err := m.Raw(ctx, searchID)
	if err != nil {
		return nil, err
	}

	chain := filter.NewFilterChain(&filter.FilterConfig{Sample: sample, Order: m.order}, m.logger)
	result, err := chain.Filter(&filter.TrackData{Points: raw})
	if err != nil {
		if errors.Is(err, filter.ErrOutOfOrder) {
			metrics.SamplerRejected.Inc()
		}
		return nil, err
	}

	metrics.ObserveSample(len(raw), len(result.Points), result.Statistics.OutOfOrder)

	gap := sample.MinGapSeconds
	if gap < 0 {
		gap = 0
	}
	return &View{
		SearchID:   searchID,
		GapSeconds: gap,
		RawCount:   len(raw),
		Points:     result.Points,
		Stats:      result.Statistics,
	}, nil
}

// Raw возвращает сырой список поиска (для выгрузки)
func (m *Manager) Raw(ctx context.Context, searchID string) ([]models.TrackPoint, error) {
	raw, err := m.store.LoadTrack(ctx, searchID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, searchID)
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Latest последний зафиксированный поиск клиента, сырой список которого еще хранится
func (m *Manager) Latest(ctx context.Context, clientID string) (string, bool) {
	searchID, ok := m.tracker.Latest(clientID)
	if !ok {
		return "", false
	}

	exists, err := m.store.HasTrack(ctx, searchID)
	if err != nil {
		// Хранилище недоступно: ошибку вернет последующая загрузка
		m.logger.WithField("search_id", searchID).WithError(err).Warn("Failed to check raw track")
		return searchID, true
	}
	if !exists {
		m.tracker.Drop(clientID, searchID)
		return "", false
	}
	return searchID, true
}

// Discard отменяет незавершенный поиск клиента и удаляет его последний результат
func (m *Manager) Discard(ctx context.Context, clientID string) {
	if latest, ok := m.tracker.Forget(clientID); ok {
		m.discard(ctx, latest)
	}
}

func (m *Manager) discard(ctx context.Context, searchID string) {
	if err := m.store.DeleteTrack(ctx, searchID); err != nil {
		m.logger.WithField("search_id", searchID).WithError(err).Warn("Failed to discard raw track")
	}
}
