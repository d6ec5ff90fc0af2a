package forecast

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"pool-status-backend/internal/status"
)

// CacheKey identifies the single persisted forecast blob.
const CacheKey = "forecast_v1"

// Persister round-trips the cache contents through local storage so a process
// restart starts warm. The blob is read and overwritten wholesale.
type Persister interface {
	LoadForecastBlob(ctx context.Context, key string) (payload string, fetchedAt time.Time, err error)
	SaveForecastBlob(ctx context.Context, key string, payload string, fetchedAt time.Time) error
}

// Cache serves the multi-day forecast view, keeping remote calls bounded by a
// validity window. A failed fetch degrades to the previous contents; it never
// surfaces an error to callers.
type Cache struct {
	source   Source
	persist  Persister
	validity time.Duration
	now      func() time.Time

	mu        sync.Mutex
	entries   map[string]DayForecast
	fetchedAt time.Time
}

// NewCache creates a forecast cache. persist may be nil (no local
// persistence). now reports facility-local time; nil means time.Now.
func NewCache(source Source, persist Persister, validity time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		source:   source,
		persist:  persist,
		validity: validity,
		now:      now,
		entries:  map[string]DayForecast{},
	}
}

type persistedCache struct {
	Entries map[string]DayForecast `json:"entries"`
}

// Load restores the persisted blob, if any. A corrupt blob is a cache miss,
// not an error.
func (c *Cache) Load(ctx context.Context) {
	if c.persist == nil {
		return
	}
	payload, fetchedAt, err := c.persist.LoadForecastBlob(ctx, CacheKey)
	if err != nil || payload == "" {
		return
	}
	var stored persistedCache
	if err := json.Unmarshal([]byte(payload), &stored); err != nil {
		log.Printf("forecast: discarding corrupt cache blob: %v", err)
		return
	}
	c.mu.Lock()
	c.entries = stored.Entries
	if c.entries == nil {
		c.entries = map[string]DayForecast{}
	}
	c.fetchedAt = fetchedAt
	c.mu.Unlock()
	log.Printf("forecast: restored %d cached days (fetched %s)", len(stored.Entries), fetchedAt.Format(time.RFC3339))
}

// Get returns the forecast mapping for all days >= today. Cached contents are
// served without a remote call while they are inside the validity window and
// force is false. A fetch that yields zero documents is cached as an empty
// result. A failed fetch falls back to whatever is cached.
func (c *Cache) Get(ctx context.Context, force bool) map[string]DayForecast {
	now := c.now()

	c.mu.Lock()
	if !force && !c.fetchedAt.IsZero() && now.Sub(c.fetchedAt) < c.validity {
		out := copyEntries(c.entries)
		c.mu.Unlock()
		return out
	}
	c.mu.Unlock()

	fromDate := now.Format("2006-01-02")
	fetched, err := c.source.Fetch(ctx, fromDate)
	if err != nil {
		log.Printf("forecast: fetch failed, serving cached contents: %v", err)
		c.mu.Lock()
		out := copyEntries(c.entries)
		c.mu.Unlock()
		return out
	}
	if fetched == nil {
		fetched = map[string]DayForecast{}
	}

	// Two fetches racing across the expiry boundary are allowed; the later
	// completion wins.
	c.mu.Lock()
	c.entries = fetched
	c.fetchedAt = c.now()
	fetchedAt := c.fetchedAt
	out := copyEntries(c.entries)
	c.mu.Unlock()

	c.save(ctx, out, fetchedAt)
	return out
}

// Refresh discards the cache and fetches unconditionally.
func (c *Cache) Refresh(ctx context.Context) map[string]DayForecast {
	c.mu.Lock()
	c.entries = map[string]DayForecast{}
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
	return c.Get(ctx, true)
}

// PeriodValue looks up the aggregate predicted percentage for one bucket of
// one day. The second return is false when the day or the bucket is absent;
// callers must not conflate that with a zero prediction.
func (c *Cache) PeriodValue(date string, p status.Period) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	day, ok := c.entries[date]
	if !ok {
		return 0, false
	}
	pf, ok := day.Periods[string(p)]
	if !ok {
		return 0, false
	}
	return pf.PredictedFreePercent, true
}

// FetchedAt reports when the cache contents were last fetched; zero when
// nothing has been fetched yet.
func (c *Cache) FetchedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchedAt
}

func (c *Cache) save(ctx context.Context, entries map[string]DayForecast, fetchedAt time.Time) {
	if c.persist == nil {
		return
	}
	payload, err := json.Marshal(persistedCache{Entries: entries})
	if err != nil {
		log.Printf("forecast: failed to serialize cache: %v", err)
		return
	}
	if err := c.persist.SaveForecastBlob(ctx, CacheKey, string(payload), fetchedAt); err != nil {
		log.Printf("forecast: failed to persist cache: %v", err)
	}
}

func copyEntries(src map[string]DayForecast) map[string]DayForecast {
	out := make(map[string]DayForecast, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
