package engine

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luckypick/wingo/internal/domain"
)

// memStore is an in-memory implementation of the wager, result, user, and
// settlement store interfaces used by the engine tests. Apply mimics the
// production contract: it is atomic under the mutex, guarded by the result's
// existence, and only touches pending wagers.
type memStore struct {
	mu       sync.Mutex
	wagers   map[string]domain.Wager
	results  map[string]domain.RoundResult
	balances map[string]decimal.Decimal

	listErr    error
	applyErrs  []error // popped per Apply call before any state change
	applyCalls int
	applyGate  chan struct{} // when set, Apply blocks until the gate closes
}

func newMemStore() *memStore {
	return &memStore{
		wagers:   make(map[string]domain.Wager),
		results:  make(map[string]domain.RoundResult),
		balances: make(map[string]decimal.Decimal),
	}
}

func (m *memStore) Create(_ context.Context, w domain.Wager) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wagers[w.ID] = w
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (domain.Wager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wagers[id]
	if !ok {
		return domain.Wager{}, domain.ErrNotFound
	}
	return w, nil
}

func (m *memStore) ListPending(_ context.Context, roundID string, before time.Time) ([]domain.Wager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Wager
	for _, w := range m.wagers {
		if w.RoundID == roundID && w.Status == domain.WagerStatusPending && w.CreatedAt.Before(before) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) ListByUser(_ context.Context, userID string, _ domain.ListOpts) ([]domain.Wager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Wager
	for _, w := range m.wagers {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) GetByRound(_ context.Context, roundID string) (domain.RoundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[roundID]
	if !ok {
		return domain.RoundResult{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *memStore) ListRecent(_ context.Context, limit int) ([]domain.RoundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.RoundResult, 0, len(m.results))
	for _, r := range m.results {
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) GetBalance(_ context.Context, userID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[userID]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	return b, nil
}

func (m *memStore) Apply(_ context.Context, s domain.Settlement) error {
	m.mu.Lock()
	gate := m.applyGate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyCalls++

	if len(m.applyErrs) > 0 {
		err := m.applyErrs[0]
		m.applyErrs = m.applyErrs[1:]
		if err != nil {
			return err
		}
	}

	if _, exists := m.results[s.Result.RoundID]; exists {
		return domain.ErrAlreadySettled
	}
	m.results[s.Result.RoundID] = s.Result

	for _, ws := range s.Wagers {
		w, ok := m.wagers[ws.WagerID]
		if !ok || w.Status != domain.WagerStatusPending {
			continue
		}
		w.Status = ws.Status
		w.Payout = ws.Payout
		settledAt := s.Result.EndedAt
		w.SettledAt = &settledAt
		m.wagers[ws.WagerID] = w
	}

	for _, c := range s.Credits {
		m.balances[c.UserID] = m.balances[c.UserID].Add(c.Amount)
	}
	return nil
}

func (m *memStore) wager(id string) domain.Wager {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wagers[id]
}

func (m *memStore) applied() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyCalls
}

// recordingBus captures published events in order.
type recordingBus struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (b *recordingBus) Publish(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	b.payloads = append(b.payloads, cp)
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (b *recordingBus) published() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.payloads))
	copy(out, b.payloads)
	return out
}

// recordingAlerter captures alert events.
type recordingAlerter struct {
	mu     sync.Mutex
	events []string
}

func (a *recordingAlerter) Notify(_ context.Context, event, _, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *recordingAlerter) recorded() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.events))
	copy(out, a.events)
	return out
}
