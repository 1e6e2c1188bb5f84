package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/packpicker/internal/gacha"
	"github.com/xtding233/packpicker/internal/pack"
	"github.com/xtding233/packpicker/internal/picker"
	"github.com/xtding233/packpicker/internal/snapshot"
)

type fakePicker struct {
	res    *snapshot.Result
	err    error
	gotUID string
}

func (f *fakePicker) Get(_ context.Context, userID string) (*snapshot.Result, error) {
	f.gotUID = userID
	return f.res, f.err
}

type fakeBoosters struct {
	booster pack.Booster
	odds    map[pack.Rarity]picker.RarityOdds
	pulls   []picker.OpenedCard
	err     error
}

func (f *fakeBoosters) Odds(_ context.Context, id string) (pack.Booster, map[pack.Rarity]picker.RarityOdds, error) {
	if f.err != nil {
		return pack.Booster{}, nil, f.err
	}
	if id != f.booster.TCGID {
		return pack.Booster{}, nil, fmt.Errorf("%w: %s", picker.ErrBoosterNotFound, id)
	}
	return f.booster, f.odds, nil
}

func (f *fakeBoosters) Open(_ context.Context, _, id string, _ gacha.RandomSource) (pack.Booster, []picker.OpenedCard, error) {
	if id != f.booster.TCGID {
		return pack.Booster{}, nil, fmt.Errorf("%w: %s", picker.ErrBoosterNotFound, id)
	}
	return f.booster, f.pulls, nil
}

func (f *fakeBoosters) ListBoosters(context.Context) ([]pack.Booster, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []pack.Booster{f.booster}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

var testBooster = pack.Booster{ID: 1, TCGID: "A1-mewtwo", Name: "Mewtwo", SetTCGID: "A1", GodPackProb: 0.0005, SixthCardProb: 0.05}

func testResult() *snapshot.Result {
	return &snapshot.Result{
		Boosters: []picker.BoosterStats{{
			Booster: testBooster,
			Overall: picker.Stat{ChanceNew: 27.1, ExpectedNew: 0.3, MissingCount: 5, TotalCount: 20},
			Base:    picker.Stat{ChanceNew: 27.1, ExpectedNew: 0.3, MissingCount: 5, TotalCount: 20},
			Rarities: map[pack.Rarity]picker.Stat{
				pack.TwoDiamond: {ChanceNew: 27.1, ExpectedNew: 0.3, MissingCount: 5, TotalCount: 10},
				pack.OneDiamond: {TotalCount: 10},
				pack.Crown:      {},
			},
		}},
		LastRefresh: time.Date(2025, 6, 1, 12, 0, 0, 500, time.UTC),
		State:       snapshot.StateStale,
	}
}

type testEnv struct {
	picker   *fakePicker
	boosters *fakeBoosters
	db       *fakePinger
	router   http.Handler
}

func newTestEnv(cfg RouterConfig) *testEnv {
	env := &testEnv{
		picker:   &fakePicker{res: testResult()},
		boosters: &fakeBoosters{booster: testBooster},
		db:       &fakePinger{},
	}
	h := NewHandler(env.picker, env.boosters, env.boosters, env.db, func() gacha.RandomSource { return gacha.NewSeededRNG(1) })
	env.router = NewRouter(h, cfg)
	return env
}

func do(t *testing.T, h http.Handler, method, path, user string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if user != "" {
		req.Header.Set(UserIDHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPackPickerRequiresUser(t *testing.T) {
	env := newTestEnv(RouterConfig{})
	rec := do(t, env.router, http.MethodGet, "/api/pack/picker", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), UserIDHeader)
}

func TestPackPickerWireFormat(t *testing.T) {
	env := newTestEnv(RouterConfig{})
	rec := do(t, env.router, http.MethodGet, "/api/pack/picker", "ash")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ash", env.picker.gotUID)

	var body struct {
		Boosters []map[string]any `json:"boosters"`
		LastRefresh string        `json:"last_refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2025-06-01T12:00:00.0000005Z", body.LastRefresh)
	require.Len(t, body.Boosters, 1)

	b := body.Boosters[0]
	assert.Equal(t, "Mewtwo", b["booster_name"])
	assert.Equal(t, "A1-mewtwo", b["booster_id"])
	assert.Equal(t, "A1", b["booster_set_id"])
	assert.Equal(t, 27.1, b["chance_new"])
	assert.Equal(t, 0.3, b["expected_new"])
	assert.EqualValues(t, 5, b["missing_count"])
	assert.EqualValues(t, 20, b["base_total_count"])
	assert.EqualValues(t, 0, b["rare_total_count"])
	for _, key := range []string{"base_chance_new", "base_missing_count", "rare_chance_new", "rare_missing_count", "total_count"} {
		assert.Contains(t, b, key)
	}

	rc, ok := b["rarity_chances"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, rc, 3)
	two := rc["Two Diamond"].(map[string]any)
	assert.Equal(t, 27.1, two["chance_new"])
	assert.EqualValues(t, 10, two["total_count"])

	// keys follow the rarity order, not map or alphabetical order
	raw := rec.Body.String()
	one, second, crown := strings.Index(raw, `"One Diamond"`), strings.Index(raw, `"Two Diamond"`), strings.Index(raw, `"Crown"`)
	assert.True(t, one < second && second < crown, raw)
}

func TestPackPickerRepeatedReadsAreByteIdentical(t *testing.T) {
	env := newTestEnv(RouterConfig{})
	first := do(t, env.router, http.MethodGet, "/api/pack/picker", "ash")
	second := do(t, env.router, http.MethodGet, "/api/pack/picker", "ash")
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestPackPickerErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"rate limited", snapshot.ErrRateLimited, http.StatusTooManyRequests, `{"error":"No data. Refresh again soon."}`},
		{"timeout", fmt.Errorf("%w after 30s: %w", picker.ErrSimulationTimeout, context.DeadlineExceeded), http.StatusGatewayTimeout, `{"error":"simulation timed out"}`},
		{"store down", errors.New("database is locked"), http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(RouterConfig{})
			env.picker.res, env.picker.err = nil, tt.err
			rec := do(t, env.router, http.MethodGet, "/api/pack/picker", "ash")
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestBoosters(t *testing.T) {
	env := newTestEnv(RouterConfig{})
	rec := do(t, env.router, http.MethodGet, "/api/boosters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"boosters":[{"booster_id":"A1-mewtwo","booster_name":"Mewtwo","booster_set_id":"A1","god_pack_prob":0.0005,"sixth_card_prob":0.05}]}`, rec.Body.String())

	env.boosters.err = errors.New("boom")
	rec = do(t, env.router, http.MethodGet, "/api/boosters", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBoosterOdds(t *testing.T) {
	env := newTestEnv(RouterConfig{})
	env.boosters.odds = map[pack.Rarity]picker.RarityOdds{
		pack.Crown:      {Regular: 10, God: 40.95, Total: 10.02},
		pack.OneDiamond: {Regular: 100, Total: 99.95},
	}

	rec := do(t, env.router, http.MethodGet, "/api/boosters/A1-mewtwo/odds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"booster_id":"A1-mewtwo","booster_name":"Mewtwo","booster_set_id":"A1",
		"god_pack_prob":0.0005,"sixth_card_prob":0.05,
		"rarities":{
			"One Diamond":{"regular":100,"sixth":0,"god":0,"total":99.95},
			"Crown":{"regular":10,"sixth":0,"god":40.95,"total":10.02}
		}}`, rec.Body.String())

	rec = do(t, env.router, http.MethodGet, "/api/boosters/missing/odds", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpenBooster(t *testing.T) {
	env := newTestEnv(RouterConfig{})
	card := &pack.Card{ID: 7, TCGID: "A1-007", Name: "Gloom", Rarity: pack.OneDiamond}
	owned := &pack.Card{ID: 8, TCGID: "A1-008", Name: "Oddish", Rarity: pack.OneDiamond}
	env.boosters.pulls = []picker.OpenedCard{
		{Pull: picker.Pull{Slot: pack.SlotFirstThree, Rarity: pack.OneDiamond, Pool: pack.PoolNormal}, Card: card},
		{Pull: picker.Pull{Slot: pack.SlotFirstThree, Rarity: pack.OneDiamond, Pool: pack.PoolNormal}, Card: owned, Owned: true},
		{Pull: picker.Pull{Slot: pack.SlotFour, Rarity: pack.Crown, Pool: pack.PoolNormal}},
	}

	rec := do(t, env.router, http.MethodPost, "/api/boosters/A1-mewtwo/open", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, env.router, http.MethodPost, "/api/boosters/A1-mewtwo/open", "ash")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"booster_id":"A1-mewtwo","new_count":1,"cards":[
		{"slot":"1-3","rarity":"One Diamond","pool":"normal","card_id":"A1-007","card_name":"Gloom","owned":false,"new":true},
		{"slot":"1-3","rarity":"One Diamond","pool":"normal","card_id":"A1-008","card_name":"Oddish","owned":true,"new":false},
		{"slot":"4","rarity":"Crown","pool":"normal","owned":false,"new":false}
	]}`, rec.Body.String())

	rec = do(t, env.router, http.MethodPost, "/api/boosters/missing/open", "ash")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, env.router, http.MethodGet, "/api/boosters/A1-mewtwo/open", "ash")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(RouterConfig{})
	rec := do(t, env.router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	env.db.err = errors.New("closed")
	rec = do(t, env.router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(RouterConfig{})
	do(t, env.router, http.MethodGet, "/api/boosters", "")

	rec := do(t, env.router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `packpicker_http_request_duration_seconds_count{method="GET",route="/api/boosters",status="200"}`)
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(RouterConfig{})

	rec := do(t, env.router, http.MethodGet, "/healthz", "")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "client-id-1")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, "client-id-1", rec.Header().Get(RequestIDHeader))
}

func TestRateLimitPerIP(t *testing.T) {
	env := newTestEnv(RouterConfig{RateLimitRequests: 1, RateLimitWindow: time.Minute})

	assert.Equal(t, http.StatusOK, do(t, env.router, http.MethodGet, "/api/boosters", "").Code)
	rec := do(t, env.router, http.MethodGet, "/api/boosters", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"too many requests"}`, rec.Body.String())

	// health checks are not limited
	assert.Equal(t, http.StatusOK, do(t, env.router, http.MethodGet, "/healthz", "").Code)
}
