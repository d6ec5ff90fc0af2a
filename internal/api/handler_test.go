package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"pool-status-backend/config"
	"pool-status-backend/internal/feed"
	"pool-status-backend/internal/forecast"
	"pool-status-backend/internal/model"
	"pool-status-backend/internal/status"
	"pool-status-backend/internal/store"
)

type stubSource struct {
	days map[string]forecast.DayForecast
	err  error
}

func (s *stubSource) Fetch(ctx context.Context, fromDate string) (map[string]forecast.DayForecast, error) {
	return s.days, s.err
}

type testEnv struct {
	handler *Handler
	store   store.Store
	now     time.Time
}

func newTestEnv(t *testing.T, now time.Time, source forecast.Source) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.OccupancySample{}, &model.ForecastBlob{}, &model.PushSubscription{}))

	s := store.NewGormStore(db)
	if source == nil {
		source = &stubSource{}
	}

	env := &testEnv{store: s, now: now}
	clock := func() time.Time { return env.now }

	hours := status.NewHours(config.HoursConfig{
		OpenHour:             6,
		CloseHour:            22,
		ClosingSoonMinutes:   90,
		ClosingUrgentMinutes: 60,
	})
	client := feed.NewClient(config.FeedConfig{Facility: "Hallenbad City"})
	t.Cleanup(client.Close)

	fc := forecast.NewCache(source, s, 30*time.Minute, clock)
	env.handler = NewHandler(s, client, fc, hours, "Hallenbad City", nil, clock)
	return env
}

func (e *testEnv) router() *gin.Engine {
	return NewRouter(e.handler, config.ServerConfig{RateLimitPerSec: 1000, CacheTTLSeconds: 1})
}

func TestBuildOccupancy(t *testing.T) {
	snap := &feed.Snapshot{
		FacilityName:        "Hallenbad City",
		FreeSpaces:          45,
		TotalCapacity:       100,
		CurrentFill:         55,
		AvailabilityPercent: 45,
		ReceivedAt:          time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}

	t.Run("closed hours render null placeholders even with a snapshot", func(t *testing.T) {
		env := newTestEnv(t, time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC), nil)
		state := feed.State{Status: feed.StatusConnected, Snapshot: snap}

		resp := env.handler.buildOccupancy(state, env.now)

		assert.False(t, resp.Open)
		assert.Equal(t, "Closed", resp.StatusLabel)
		assert.Nil(t, resp.FreeSpaces)
		assert.Nil(t, resp.TotalCapacity)
		assert.Nil(t, resp.CurrentFill)
		assert.Nil(t, resp.AvailabilityPercent)
		assert.Nil(t, resp.ReceivedAt)
		assert.Equal(t, feed.StatusConnected, resp.ConnectionStatus)
	})

	t.Run("open with snapshot derives the level label", func(t *testing.T) {
		env := newTestEnv(t, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), nil)
		state := feed.State{Status: feed.StatusConnected, Snapshot: snap}

		resp := env.handler.buildOccupancy(state, env.now)

		assert.True(t, resp.Open)
		assert.Equal(t, "High availability", resp.StatusLabel)
		require.NotNil(t, resp.AvailabilityPercent)
		assert.InDelta(t, 45.0, *resp.AvailabilityPercent, 0.001)
		require.NotNil(t, resp.FreeSpaces)
		assert.Equal(t, 45, *resp.FreeSpaces)
		assert.False(t, resp.Closing.Active)
	})

	t.Run("open without snapshot reports no data", func(t *testing.T) {
		env := newTestEnv(t, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), nil)

		resp := env.handler.buildOccupancy(feed.State{Status: feed.StatusDisconnected}, env.now)

		assert.True(t, resp.Open)
		assert.Equal(t, "No data", resp.StatusLabel)
		assert.Nil(t, resp.AvailabilityPercent)
	})

	t.Run("closing warning inside the final window", func(t *testing.T) {
		env := newTestEnv(t, time.Date(2026, 3, 14, 21, 15, 0, 0, time.UTC), nil)

		resp := env.handler.buildOccupancy(feed.State{Status: feed.StatusConnected, Snapshot: snap}, env.now)

		assert.True(t, resp.Closing.Active)
		assert.True(t, resp.Closing.Urgent)
		assert.Equal(t, 45, resp.Closing.RemainingMinutes)
	})
}

func TestGetOccupancy(t *testing.T) {
	env := newTestEnv(t, time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC), nil)
	router := env.router()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/occupancy", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp occupancyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Hallenbad City", resp.Facility)
	assert.False(t, resp.Open)
	assert.Equal(t, "Closed", resp.StatusLabel)
}

func TestGetHistory(t *testing.T) {
	env := newTestEnv(t, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), nil)
	router := env.router()

	ctx := context.Background()
	old := model.OccupancySample{ObservedAt: env.now.AddDate(0, 0, -10), FreeSpaces: 10, TotalCapacity: 100, CurrentFill: 90, FreePercent: 10}
	recent := model.OccupancySample{ObservedAt: env.now.Add(-time.Hour), FreeSpaces: 60, TotalCapacity: 100, CurrentFill: 40, FreePercent: 60}
	require.NoError(t, env.store.SaveSample(ctx, old))
	require.NoError(t, env.store.SaveSample(ctx, recent))

	t.Run("defaults to the last seven days", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/occupancy/history", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var samples []model.OccupancySample
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &samples))
		require.Len(t, samples, 1)
		assert.Equal(t, 60, samples[0].FreeSpaces)
	})

	t.Run("honours an explicit since bound", func(t *testing.T) {
		w := httptest.NewRecorder()
		since := env.now.AddDate(0, 0, -30).Format(time.RFC3339)
		req := httptest.NewRequest("GET", "/api/occupancy/history?since="+since, nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var samples []model.OccupancySample
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &samples))
		assert.Len(t, samples, 2)
	})

	t.Run("rejects a malformed since", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/occupancy/history?since=yesterday", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetForecast(t *testing.T) {
	lunch := 35.0
	evening := 70.0
	lower := 60.0
	upper := 80.0
	source := &stubSource{days: map[string]forecast.DayForecast{
		"2026-03-14": {
			LastUpdated: time.Date(2026, 3, 14, 4, 0, 0, 0, time.UTC),
			Periods: map[string]forecast.PeriodForecast{
				"lunch":   {PredictedFreePercent: lunch},
				"evening": {PredictedFreePercent: evening, LowerBound: &lower, UpperBound: &upper},
			},
		},
	}}
	env := newTestEnv(t, time.Date(2026, 3, 14, 14, 30, 0, 0, time.UTC), source)
	router := env.router()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/forecast", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp forecastResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.FetchedAt)
	require.Len(t, resp.Days, 1)

	day := resp.Days[0]
	assert.Equal(t, "2026-03-14", day.Date)
	require.Len(t, day.Periods, 6)

	byName := make(map[string]periodView, len(day.Periods))
	for _, pv := range day.Periods {
		byName[pv.Period] = pv
	}

	// 14:30 is inside the afternoon bucket: lunch already ended, evening
	// still ahead.
	assert.True(t, byName["lunch"].Past)
	assert.Nil(t, byName["lunch"].Predicted)

	ev := byName["evening"]
	assert.False(t, ev.Past)
	require.NotNil(t, ev.Predicted)
	assert.InDelta(t, evening, *ev.Predicted, 0.001)
	require.NotNil(t, ev.LowerBound)
	assert.InDelta(t, lower, *ev.LowerBound, 0.001)

	// Bucket with no forecast value stays null without a past marker.
	am := byName["early_morning"]
	assert.True(t, am.Past)
	assert.Nil(t, am.Predicted)
	aw := byName["after_work"]
	assert.False(t, aw.Past)
	assert.Nil(t, aw.Predicted)
}

func TestPostForecastRefresh(t *testing.T) {
	source := &stubSource{days: map[string]forecast.DayForecast{}}
	env := newTestEnv(t, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), source)
	router := env.router()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/forecast/refresh", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp forecastResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.FetchedAt)
	assert.Empty(t, resp.Days)
}

func TestPostReconnect_ClosedClient(t *testing.T) {
	env := newTestEnv(t, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), nil)
	env.handler.feed.Close()
	router := env.router()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/occupancy/reconnect", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
