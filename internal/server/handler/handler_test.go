package handler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckypick/wingo/internal/domain"
	"github.com/luckypick/wingo/internal/engine"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fakeWagerStore struct {
	created []domain.Wager
	byUser  map[string][]domain.Wager
	err     error
}

func (f *fakeWagerStore) Create(_ context.Context, w domain.Wager) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, w)
	return nil
}

func (f *fakeWagerStore) GetByID(_ context.Context, _ string) (domain.Wager, error) {
	return domain.Wager{}, domain.ErrNotFound
}

func (f *fakeWagerStore) ListPending(_ context.Context, _ string, _ time.Time) ([]domain.Wager, error) {
	return nil, nil
}

func (f *fakeWagerStore) ListByUser(_ context.Context, userID string, _ domain.ListOpts) ([]domain.Wager, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byUser[userID], nil
}

type fakeResultStore struct {
	results map[string]domain.RoundResult
	recent  []domain.RoundResult
	err     error
}

func (f *fakeResultStore) GetByRound(_ context.Context, roundID string) (domain.RoundResult, error) {
	if f.err != nil {
		return domain.RoundResult{}, f.err
	}
	r, ok := f.results[roundID]
	if !ok {
		return domain.RoundResult{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeResultStore) ListRecent(_ context.Context, _ int) ([]domain.RoundResult, error) {
	return f.recent, f.err
}

type fakeUserStore struct {
	balances map[string]decimal.Decimal
}

func (f *fakeUserStore) GetBalance(_ context.Context, userID string) (decimal.Decimal, error) {
	b, ok := f.balances[userID]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	return b, nil
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

func newWagerHandler(t *testing.T, store *fakeWagerStore, round domain.Round) *WagerHandler {
	t.Helper()
	settler := engine.NewSettler(store, nil, nil, rand.New(rand.NewSource(1)), engine.SettlerConfig{Attempts: 1}, testLogger())
	coord := engine.NewCoordinator(settler, testLogger())
	if round.ID != "" {
		coord.RoundOpened(round)
	}
	return NewWagerHandler(engine.NewIntake(coord, store, testLogger()), testLogger())
}

func openRound(id string) domain.Round {
	now := time.Now()
	return domain.Round{
		ID:       id,
		Phase:    domain.RoundPhaseOpen,
		OpenedAt: now,
		LocksAt:  now.Add(45 * time.Second),
		EndsAt:   now.Add(time.Minute),
	}
}

func TestPlaceWager(t *testing.T) {
	tests := []struct {
		name       string
		round      domain.Round
		body       string
		wantStatus int
	}{
		{
			name:       "accepted",
			round:      openRound("r1"),
			body:       `{"user_id":"alice","amount":"12.50","kind":"color","target":"green"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid json",
			round:      openRound("r1"),
			body:       `{"user_id":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unparseable amount",
			round:      openRound("r1"),
			body:       `{"user_id":"alice","amount":"a lot","kind":"color","target":"green"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid target",
			round:      openRound("r1"),
			body:       `{"user_id":"alice","amount":"5","kind":"number","target":"11"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no round open",
			round:      domain.Round{},
			body:       `{"user_id":"alice","amount":"5","kind":"number","target":"7"}`,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "stale round id",
			round:      openRound("r2"),
			body:       `{"user_id":"alice","round_id":"r1","amount":"5","kind":"number","target":"7"}`,
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeWagerStore{}
			h := newWagerHandler(t, store, tt.round)

			req := httptest.NewRequest(http.MethodPost, "/api/wagers", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.PlaceWager(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusCreated {
				require.Len(t, store.created, 1)
				assert.Equal(t, "alice", store.created[0].UserID)
				assert.Equal(t, domain.WagerStatusPending, store.created[0].Status)
			} else {
				assert.Empty(t, store.created)
			}
		})
	}
}

func TestGetByRound(t *testing.T) {
	settled := domain.NewRoundResult("r1", 4, time.Date(2025, 3, 1, 12, 1, 0, 0, time.UTC))
	h := NewResultHandler(nil, &fakeResultStore{results: map[string]domain.RoundResult{"r1": settled}}, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/results/{id}", h.GetByRound)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results/r1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"round_id": "r1",
		"winning_number": 4,
		"winning_color": "orange",
		"winning_size": "small",
		"ended_at": "2025-03-01T12:01:00Z"
	}`, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results/r9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRecent_EmptyIsJSONArray(t *testing.T) {
	h := NewResultHandler(nil, &fakeResultStore{}, testLogger())

	rec := httptest.NewRecorder()
	h.ListRecent(rec, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestGetBalance(t *testing.T) {
	users := &fakeUserStore{balances: map[string]decimal.Decimal{
		"alice": decimal.RequireFromString("107.50"),
	}}
	h := NewUserHandler(users, &fakeWagerStore{}, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/{id}/balance", h.GetBalance)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/alice/balance", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"alice","balance":"107.5"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/nobody/balance", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"postgres": &fakePinger{},
		"redis":    &fakePinger{},
	})

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	h = NewHealthHandler(map[string]Pinger{
		"postgres": &fakePinger{},
		"redis":    &fakePinger{err: errors.New("connection refused")},
	})

	rec = httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestParseListOpts(t *testing.T) {
	tests := []struct {
		query string
		want  domain.ListOpts
	}{
		{"", domain.ListOpts{Limit: 50}},
		{"?limit=10&offset=30", domain.ListOpts{Limit: 10, Offset: 30}},
		{"?limit=9999", domain.ListOpts{Limit: 200}},
		{"?limit=-1&offset=-2", domain.ListOpts{Limit: 50}},
		{"?limit=abc", domain.ListOpts{Limit: 50}},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/users/u/wagers"+tt.query, nil)
		assert.Equal(t, tt.want, parseListOpts(req), "query %q", tt.query)
	}
}
