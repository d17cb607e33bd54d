// Package currency provides the USD to INR rate used to display and enter amounts
// in rupees.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"spendly/internal/prefs"
)

const (
	DefaultRatesURL = "https://api.frankfurter.app/latest?from=USD&to=INR"
	FallbackRate    = 83.5
	MaxAge          = time.Hour

	ErrMessageFallback = "Failed to fetch live rates, using fallback"
)

// Rates is the rate to use right now. Error is set, and the rate is the last known
// or fallback value, when a live fetch failed.
type Rates struct {
	USDToINR  float64   `json:"usdToInr"`
	FetchedAt time.Time `json:"fetchedAt"`
	Cached    bool      `json:"cached"`
	Error     string    `json:"error,omitempty"`
}

type Service struct {
	repo *prefs.Repository
	http *http.Client
	url  string
	now  func() time.Time
}

type Option func(*Service)

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Service) { s.http = hc }
}

func WithURL(url string) Option {
	return func(s *Service) { s.url = url }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo *prefs.Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		http: &http.Client{Timeout: 10 * time.Second},
		url:  DefaultRatesURL,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rates returns the cached rate while it is fresh and otherwise fetches a new one.
// It never fails; failures are reported through Rates.Error.
func (s *Service) Rates(ctx context.Context) Rates {
	cached, haveCache, err := s.repo.LoadRate(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read cached currency rate")
		haveCache = false
	}

	now := s.now()
	if haveCache && cached.Rate > 0 && now.Sub(cached.FetchedAt()) < MaxAge {
		return Rates{USDToINR: cached.Rate, FetchedAt: cached.FetchedAt(), Cached: true}
	}

	rate, err := s.fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Currency rate fetch failed")
		if haveCache && cached.Rate > 0 {
			return Rates{USDToINR: cached.Rate, FetchedAt: cached.FetchedAt(), Cached: true, Error: ErrMessageFallback}
		}
		return Rates{USDToINR: FallbackRate, Error: ErrMessageFallback}
	}

	if err := s.repo.SaveRate(ctx, prefs.CachedRate{Rate: rate, Timestamp: now.UnixMilli()}); err != nil {
		log.Warn().Err(err).Msg("Failed to cache currency rate")
	}
	return Rates{USDToINR: rate, FetchedAt: now}
}

type frankfurterResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

func (s *Service) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build rates request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch rates: unexpected status %d", resp.StatusCode)
	}

	var body frankfurterResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode rates: %w", err)
	}
	rate, ok := body.Rates["INR"]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("rates response has no INR rate")
	}
	return rate, nil
}
