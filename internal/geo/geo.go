// Package geo resolves client addresses to a coarse city and country.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"commentboard/internal/cache"
	"commentboard/internal/observability"
	"commentboard/internal/voter"
)

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 3 * time.Second

// Location is where a comment was posted from.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

var (
	// Unknown is used whenever a lookup fails.
	Unknown = Location{City: "Unknown", Country: "Unknown"}
	// Localhost is used for loopback clients.
	Localhost = Location{City: "Localhost", Country: "Localhost"}
)

// Locator looks up addresses against an ipapi.co compatible service. Results
// are cached in Redis and concurrent lookups of one address share a request.
//
// Locator is safe for concurrent use.
type Locator struct {
	baseURL    string
	httpClient *http.Client
	redis      *redis.Client
	group      singleflight.Group
}

// NewLocator creates a Locator for baseURL. rdb may be nil to disable caching.
func NewLocator(baseURL string, timeout time.Duration, rdb *redis.Client) *Locator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Locator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		redis:      rdb,
	}
}

// ipapiResponse is the subset of the lookup response we read.
type ipapiResponse struct {
	City        string `json:"city"`
	CountryName string `json:"country_name"`
	Country     string `json:"country"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// Locate never fails: loopback and empty addresses resolve to Localhost and
// any lookup problem resolves to Unknown.
func (l *Locator) Locate(ctx context.Context, ip string) Location {
	ip = strings.TrimSpace(ip)
	if ip == "" || voter.IsLoopback(ip) {
		return Localhost
	}
	if net.ParseIP(ip) == nil {
		return Unknown
	}

	var cached Location
	if ok, err := cache.GetJSON(ctx, l.redis, cache.GeoKey(ip), &cached); err == nil && ok {
		return cached
	}

	v, err, _ := l.group.Do(ip, func() (interface{}, error) {
		loc, err := l.fetch(ctx, ip)
		if err != nil {
			return nil, err
		}
		if err := cache.SetJSON(ctx, l.redis, cache.GeoKey(ip), loc, cache.GeoTTL); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "failed to cache location", "error", err.Error())
		}
		return loc, nil
	})
	if err != nil {
		observability.UpstreamRequests.WithLabelValues("geo", "error").Inc()
		observability.GlobalLogger.WarnContext(ctx, "location lookup failed, using fallback", "error", err.Error())
		return Unknown
	}
	observability.UpstreamRequests.WithLabelValues("geo", "ok").Inc()
	return v.(Location)
}

func (l *Locator) fetch(ctx context.Context, ip string) (Location, error) {
	endpoint := fmt.Sprintf("%s/%s/json/", l.baseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Location{}, fmt.Errorf("location service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out ipapiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return Location{}, fmt.Errorf("decode location: %w", err)
	}
	if out.Error {
		return Location{}, errors.New("location service: " + out.Reason)
	}

	loc := Location{City: out.City, Country: out.CountryName}
	if loc.Country == "" {
		loc.Country = out.Country
	}
	if loc.City == "" {
		loc.City = Unknown.City
	}
	if loc.Country == "" {
		loc.Country = Unknown.Country
	}
	return loc, nil
}
