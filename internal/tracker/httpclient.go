package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const changelogPageSize = 100

type httpClient struct {
	cfg        Config
	httpClient *http.Client

	mu          sync.Mutex
	lastRequest time.Time

	// Session cache for repeated lookups within one process lifetime.
	cache      map[string]*cacheEntry
	cacheMutex sync.RWMutex
}

type cacheEntry struct {
	value      interface{}
	expiration time.Time
}

func newHTTPClient(cfg Config) *httpClient {
	if cfg.RequestDelay == 0 {
		cfg.RequestDelay = 2 * time.Second
	}
	if cfg.HealthField == "" {
		cfg.HealthField = "Health"
	}
	return &httpClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		cache: make(map[string]*cacheEntry),
	}
}

func (c *httpClient) getFromCache(key string) (interface{}, bool) {
	c.cacheMutex.RLock()
	defer c.cacheMutex.RUnlock()

	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expiration) {
		return nil, false
	}
	log.Debug().Str("key", key).Msg("Session cache hit")
	return entry.value, true
}

func (c *httpClient) addToCache(key string, value interface{}, ttl time.Duration) {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.cache[key] = &cacheEntry{value: value, expiration: time.Now().Add(ttl)}
}

// throttle spaces out requests so bulk runs stay inside upstream rate limits.
func (c *httpClient) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < c.cfg.RequestDelay {
		wait := c.cfg.RequestDelay - elapsed
		log.Debug().Dur("wait", wait).Msg("Throttling tracker request")
		time.Sleep(wait)
	}
	c.lastRequest = time.Now()
}

func (c *httpClient) do(ctx context.Context, rawURL string, out interface{}) error {
	c.throttle()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.Token))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("tracker authentication failed (%d), check the API token", resp.StatusCode)
		case http.StatusTooManyRequests:
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				return fmt.Errorf("tracker rate limit exceeded (429), retry after %s seconds", retryAfter)
			}
			return fmt.Errorf("tracker rate limit exceeded (429)")
		default:
			return fmt.Errorf("tracker API returned status %d", resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode tracker response: %w", err)
	}
	return nil
}

// SearchIssues runs a paginated issue search.
func (c *httpClient) SearchIssues(ctx context.Context, query string, startAt, maxResults int) ([]Issue, int, error) {
	cacheKey := fmt.Sprintf("search:%s:%d:%d", query, startAt, maxResults)
	if val, ok := c.getFromCache(cacheKey); ok {
		cached := val.(*searchResponse)
		return c.mapSearchResponse(cached), cached.Total, nil
	}

	params := url.Values{}
	params.Set("jql", query)
	params.Set("startAt", fmt.Sprintf("%d", startAt))
	params.Set("maxResults", fmt.Sprintf("%d", maxResults))
	params.Set("fields", "summary,status,created,updated")

	searchURL := fmt.Sprintf("%s/rest/api/2/search?%s", c.cfg.BaseURL, params.Encode())
	log.Info().Msg("Requesting issues from tracker")
	log.Debug().Str("url", searchURL).Str("query", query).Msg("Tracker search details")

	var result searchResponse
	if err := c.do(ctx, searchURL, &result); err != nil {
		return nil, 0, err
	}

	c.addToCache(cacheKey, &result, 5*time.Minute)
	return c.mapSearchResponse(&result), result.Total, nil
}

func (c *httpClient) mapSearchResponse(resp *searchResponse) []Issue {
	issues := make([]Issue, 0, len(resp.Issues))
	for _, dto := range resp.Issues {
		issues = append(issues, mapIssue(dto))
	}
	return issues
}

// ChangeHistory pages through the changelog endpoint until the last page and
// returns every entry as a canonical ChangeRecord. Entries whose timestamp
// fails to parse are skipped and logged, never fatal.
func (c *httpClient) ChangeHistory(ctx context.Context, issueKey string) ([]ChangeRecord, error) {
	var records []ChangeRecord
	startAt := 0

	for {
		pageURL := fmt.Sprintf("%s/rest/api/2/issue/%s/changelog?startAt=%d&maxResults=%d",
			c.cfg.BaseURL, url.PathEscape(issueKey), startAt, changelogPageSize)

		var page changelogDTO
		if err := c.do(ctx, pageURL, &page); err != nil {
			return nil, fmt.Errorf("changelog fetch for %s failed at offset %d: %w", issueKey, startAt, err)
		}

		entries := page.entries()
		if len(entries) == 0 {
			break
		}

		for _, h := range entries {
			rec, err := mapHistory(h, c.cfg.HealthField)
			if err != nil {
				log.Warn().Err(err).Str("issue", issueKey).Str("created", h.Created).
					Msg("Skipping change record with malformed timestamp")
				continue
			}
			records = append(records, rec)
		}

		startAt += len(entries)
		if page.IsLast || (page.Total > 0 && startAt >= page.Total) {
			break
		}
	}

	return records, nil
}
