package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Source fetches all forecast documents whose date key is >= fromDate.
// The comparison is string-lexicographic, which is safe because the keys are
// fixed-width zero-padded YYYY-MM-DD.
type Source interface {
	Fetch(ctx context.Context, fromDate string) (map[string]DayForecast, error)
}

// HTTPSource retrieves forecast documents from a JSON endpoint that returns
// a {date: document} object. It serves non-GCP deployments and tests.
type HTTPSource struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewHTTPSource creates an HTTP-backed forecast source.
func NewHTTPSource(rawURL string, headers map[string]string) *HTTPSource {
	return &HTTPSource{
		url:     rawURL,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch queries the endpoint with a from=<date> range filter.
func (s *HTTPSource) Fetch(ctx context.Context, fromDate string) (map[string]DayForecast, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return nil, fmt.Errorf("invalid forecast URL: %w", err)
	}
	q := u.Query()
	q.Set("from", fromDate)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var days map[string]DayForecast
	if err := json.Unmarshal(body, &days); err != nil {
		return nil, fmt.Errorf("failed to unmarshal forecast response: %w", err)
	}

	// The endpoint is expected to range-filter, but do not rely on it.
	filtered := make(map[string]DayForecast, len(days))
	for date, day := range days {
		if date >= fromDate {
			filtered[date] = day
		}
	}
	return filtered, nil
}
