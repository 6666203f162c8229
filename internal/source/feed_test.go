package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedFixture = `{
	"listings": [
		{"id": "z-1", "address": "123 Main Street", "city": "Springfield", "price": 450000, "bedrooms": 3, "bathrooms": 2, "squareFeet": 1850, "url": "https://example.com/z-1"},
		{"id": "z-2", "address": "", "price": 100}
	],
	"market": [
		{"location": "Springfield", "medianPrice": 412500.50, "activeListings": 120, "avgDaysOnMarket": 21, "yoyChangePct": 4.2}
	],
	"neighborhoods": [
		{"name": "Downtown", "city": "Springfield", "walkScore": 88, "schoolRating": 7.5, "crimeIndex": 2.1, "medianRent": 1850}
	]
}`

func TestFeedFetchMapsDocument(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feedFixture))
	}))
	defer srv.Close()

	adapter := NewFeedAdapter("zenlow", srv.URL, "secret", srv.Client())
	records, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)

	// the listing without an address is skipped
	require.Len(t, records, 3)

	prop, ok := records[0].(model.PropertyRecord)
	require.True(t, ok)
	assert.Equal(t, "zenlow", prop.Source)
	assert.Equal(t, model.PriceFromDollars(450_000), prop.Price)
	assert.Equal(t, 3, prop.Bedrooms)
	assert.False(t, prop.Fetched.IsZero())

	market, ok := records[1].(model.MarketSnapshot)
	require.True(t, ok)
	assert.Equal(t, model.PriceFromDollars(412_500.50), market.MedianPrice)
	assert.Equal(t, 120, market.ActiveListings)

	hood, ok := records[2].(model.NeighborhoodSnapshot)
	require.True(t, ok)
	assert.Equal(t, 88, hood.WalkScore)
}

func TestFeedFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	adapter := NewFeedAdapter("zenlow", srv.URL, "", srv.Client())
	_, err := adapter.Fetch(context.Background())
	require.Error(t, err)
}

func TestFeedFetchHonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	adapter := NewFeedAdapter("slowpoke", srv.URL, "", srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := adapter.Fetch(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
