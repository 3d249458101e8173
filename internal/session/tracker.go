package session

import (
	"context"
	"sync"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/cache"
)

// DefaultMaxClients предел числа клиентов, состояние которых хранит трекер
const DefaultMaxClients = 10000

// clientState состояние поиска одного клиента
type clientState struct {
	gen    uint64
	cancel context.CancelFunc
	latest string
}

// Tracker реализует last-write-wins для поисков клиента: новый поиск
// отменяет предыдущий незавершенный запрос, а результат фиксируется,
// только если за время запроса не начался более новый поиск.
//
// Состояние клиента живет не дольше ttl с последнего Begin или Commit
// и вытесняется LRU при превышении maxClients.
type Tracker struct {
	mu      sync.Mutex
	clients *cache.LRUCache[*clientState]
	nextGen uint64 // общий счетчик, поколения не повторяются и после Forget
}

// NewTracker создает трекер. maxClients <= 0 и ttl <= 0 снимают ограничения.
func NewTracker(maxClients int, ttl time.Duration) *Tracker {
	return &Tracker{clients: cache.NewLRUCache[*clientState](maxClients, ttl)}
}

// Begin начинает новое поколение поиска клиента и отменяет предыдущее.
// Возвращает контекст запроса, который отменяется следующим Begin.
func (t *Tracker) Begin(ctx context.Context, clientID string) (context.Context, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.clients.Get(clientID)
	if !ok {
		st = &clientState{}
	}
	if st.cancel != nil {
		st.cancel()
	}

	t.nextGen++
	st.gen = t.nextGen
	fetchCtx, cancel := context.WithCancel(ctx)
	st.cancel = cancel
	t.clients.Set(clientID, st)
	return fetchCtx, st.gen
}

// Current проверяет, что gen все еще последнее поколение клиента
func (t *Tracker) Current(clientID string, gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.clients.Get(clientID)
	return ok && st.gen == gen
}

// Commit фиксирует searchID как последний результат клиента, если gen актуально.
// Возвращает предыдущий зафиксированный searchID.
func (t *Tracker) Commit(clientID string, gen uint64, searchID string) (previous string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, exists := t.clients.Get(clientID)
	if !exists || st.gen != gen {
		return "", false
	}
	previous = st.latest
	st.latest = searchID
	t.clients.Set(clientID, st)
	return previous, true
}

// Finish освобождает контекст поколения gen, если оно все еще текущее
func (t *Tracker) Finish(clientID string, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.clients.Get(clientID)
	if !ok || st.gen != gen || st.cancel == nil {
		return
	}
	st.cancel()
	st.cancel = nil
}

// Latest последний зафиксированный searchID клиента
func (t *Tracker) Latest(clientID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.clients.Get(clientID)
	if !ok || st.latest == "" {
		return "", false
	}
	return st.latest, true
}

// Drop забывает зафиксированный searchID, если он все еще последний у клиента
func (t *Tracker) Drop(clientID, searchID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.clients.Get(clientID); ok && st.latest == searchID {
		st.latest = ""
	}
}

// Forget отменяет незавершенный поиск и забывает клиента.
// Возвращает последний зафиксированный searchID для удаления.
func (t *Tracker) Forget(clientID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.clients.Get(clientID)
	if !ok {
		return "", false
	}
	if st.cancel != nil {
		st.cancel()
	}
	t.clients.Delete(clientID)
	return st.latest, st.latest != ""
}

// Clients число клиентов с живым состоянием
func (t *Tracker) Clients() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clients.Clean()
	return t.clients.Size()
}
