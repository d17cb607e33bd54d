package currency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendly/internal/prefs"
)

func ratesServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestRatesFetchesAndCaches(t *testing.T) {
	ctx := context.Background()
	srv, hits := ratesServer(t, http.StatusOK, `{"amount":1.0,"base":"USD","date":"2024-03-01","rates":{"INR":82.9}}`)
	repo := prefs.NewRepository(prefs.NewMemoryStore())

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(repo, WithURL(srv.URL+"/latest?from=USD&to=INR"), WithClock(func() time.Time { return now }))

	r := svc.Rates(ctx)
	assert.Equal(t, 82.9, r.USDToINR)
	assert.Empty(t, r.Error)
	assert.False(t, r.Cached)

	cached, ok, err := repo.LoadRate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, now.UnixMilli(), cached.Timestamp)

	now = now.Add(30 * time.Minute)
	r = svc.Rates(ctx)
	assert.True(t, r.Cached)
	assert.Equal(t, int32(1), hits.Load(), "fresh cache avoids a second fetch")

	now = now.Add(31 * time.Minute)
	svc.Rates(ctx)
	assert.Equal(t, int32(2), hits.Load(), "stale cache is refreshed")
}

func TestRatesFallback(t *testing.T) {
	ctx := context.Background()
	srv, _ := ratesServer(t, http.StatusInternalServerError, `oops`)

	t.Run("no cache uses the fixed fallback", func(t *testing.T) {
		svc := NewService(prefs.NewRepository(prefs.NewMemoryStore()), WithURL(srv.URL))
		r := svc.Rates(ctx)
		assert.Equal(t, FallbackRate, r.USDToINR)
		assert.Equal(t, ErrMessageFallback, r.Error)
	})

	t.Run("stale cache beats the fixed fallback", func(t *testing.T) {
		repo := prefs.NewRepository(prefs.NewMemoryStore())
		old := time.Now().Add(-3 * time.Hour)
		require.NoError(t, repo.SaveRate(ctx, prefs.CachedRate{Rate: 81.0, Timestamp: old.UnixMilli()}))

		svc := NewService(repo, WithURL(srv.URL))
		r := svc.Rates(ctx)
		assert.Equal(t, 81.0, r.USDToINR)
		assert.Equal(t, ErrMessageFallback, r.Error)
	})

	t.Run("response without INR", func(t *testing.T) {
		bad, _ := ratesServer(t, http.StatusOK, `{"rates":{"EUR":0.9}}`)
		svc := NewService(prefs.NewRepository(prefs.NewMemoryStore()), WithURL(bad.URL))
		r := svc.Rates(ctx)
		assert.Equal(t, FallbackRate, r.USDToINR)
		assert.NotEmpty(t, r.Error)
	})
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$0.00", FormatUSD(0))
	assert.Equal(t, "$999.50", FormatUSD(999.5))
	assert.Equal(t, "$1,234.56", FormatUSD(1234.56))
	assert.Equal(t, "$1,234,567.00", FormatUSD(1234567))
	assert.Equal(t, "-$12.30", FormatUSD(-12.3))

	assert.Equal(t, "₹999.00", FormatINR(999))
	assert.Equal(t, "₹1,234.00", FormatINR(1234))
	assert.Equal(t, "₹1,23,456.78", FormatINR(123456.78))
	assert.Equal(t, "₹12,34,56,789.00", FormatINR(123456789))
}

func TestConversion(t *testing.T) {
	assert.Equal(t, 12.0, ToUSD(1002, INR, 83.5))
	assert.Equal(t, 50.0, ToUSD(50, USD, 83.5))
	assert.Equal(t, 835.0, ToINR(10, 83.5))

	code, err := ParseCode(" inr ")
	require.NoError(t, err)
	assert.Equal(t, INR, code)
	_, err = ParseCode("EUR")
	assert.Error(t, err)
}
