package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackLocation_Deterministic(t *testing.T) {
	for _, ip := range []string{"203.0.113.7", "10.0.0.1", "::1", "unknown", ""} {
		assert.Equal(t, FallbackLocation(ip), FallbackLocation(ip), ip)
	}
	// 1+2+3+4 = 10, 10 % 8 = 2
	assert.Equal(t, "Austria", FallbackLocation("1.2.3.4").Country)
	// 0 % 8 = 0
	assert.Equal(t, "Hungary", FallbackLocation("0.0.0.0").Country)
}

func TestIPAPILocator_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/8.8.8.8", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","country":"United States","countryCode":"US","region":"CA","regionName":"California","city":"Mountain View","lat":37.42,"lon":-122.08,"query":"8.8.8.8"}`))
	}))
	defer srv.Close()

	locator := NewIPAPILocator(srv.URL, 0)
	loc, err := locator.Locate(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, Location{
		Country:   "United States",
		Region:    "California",
		City:      "Mountain View",
		Latitude:  37.42,
		Longitude: -122.08,
	}, loc)
}

func TestIPAPILocator_FailStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"private range","query":"10.0.0.1"}`))
	}))
	defer srv.Close()

	locator := NewIPAPILocator(srv.URL, 0)
	_, err := locator.Locate(context.Background(), "10.0.0.1")
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.ErrorIs(t, err, ErrUnresolvable)

	loc, err := WithFallback(locator).Locate(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, FallbackLocation("10.0.0.1"), loc)
}

func TestIPAPILocator_FailStatusKeepsBreakerClosed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"status":"fail","message":"private range","query":"192.168.1.10"}`))
	}))
	defer srv.Close()

	locator := NewIPAPILocator(srv.URL, 0)
	for i := 0; i < 10; i++ {
		_, err := locator.Locate(context.Background(), "192.168.1.10")
		require.ErrorIs(t, err, ErrUnresolvable, "lookup %d", i)
	}
	assert.EqualValues(t, 10, calls.Load())
	assert.Equal(t, gobreaker.StateClosed, locator.cb.State())
}

func TestIPAPILocator_TransportErrorsTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	locator := NewIPAPILocator(srv.URL, 0)
	for i := 0; i < 5; i++ {
		_, err := locator.Locate(context.Background(), "8.8.8.8")
		require.ErrorIs(t, err, ErrLookupFailed)
	}
	assert.Equal(t, gobreaker.StateOpen, locator.cb.State())
	_, err := locator.Locate(context.Background(), "8.8.8.8")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestWithFallback_NilPrimary(t *testing.T) {
	loc, err := WithFallback(nil).Locate(context.Background(), "192.0.2.1")
	require.NoError(t, err)
	assert.Equal(t, FallbackLocation("192.0.2.1"), loc)
}
