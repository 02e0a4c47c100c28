package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/params"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

type ipAPIResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Query       string  `json:"query"`
}

// IPAPILocator resolves addresses with the ip-api.com JSON endpoint.
type IPAPILocator struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[Location]
}

func (l *IPAPILocator) Locate(ctx context.Context, ip string) (Location, error) {
	if !l.limiter.Allow() {
		return Location{}, ErrRateLimited
	}
	return l.cb.Execute(func() (Location, error) {
		return l.query(ctx, ip)
	})
}

func (l *IPAPILocator) query(ctx context.Context, ip string) (Location, error) {
	endpoint := strings.TrimRight(l.baseURL, "/") + "/" + url.PathEscape(ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if result.Status != "success" {
		return Location{}, fmt.Errorf("%w: %w: %s", ErrLookupFailed, ErrUnresolvable, result.Message)
	}

	region := result.RegionName
	if region == "" {
		region = result.Region
	}
	return Location{
		Country:   result.Country,
		Region:    region,
		City:      result.City,
		Latitude:  result.Lat,
		Longitude: result.Lon,
	}, nil
}

func NewIPAPILocator(baseURL string, timeout time.Duration) *IPAPILocator {
	if baseURL == "" {
		baseURL = params.DefaultGeoAPIBaseURL
	}
	if timeout <= 0 {
		timeout = params.GeoLookupTimeout
	}
	cb := gobreaker.NewCircuitBreaker[Location](gobreaker.Settings{
		Name:        "ip-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		// a fail answer means the provider is up, only transport errors count
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUnresolvable)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &IPAPILocator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/params.GeoRequestsPerMinute), params.GeoRequestsPerMinute),
		cb:      cb,
	}
}
