package archive

import (
	"testing"
	"time"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowForProperty(t *testing.T) {
	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	archived := fetched.Add(time.Second)

	record := model.PropertyRecord{
		Source:     "zenlow",
		ListingID:  "z-17",
		Address:    "123 Main Street",
		City:       "Austin",
		Price:      model.PriceFromDollars(450_000),
		Bedrooms:   3,
		Bathrooms:  2.5,
		SquareFeet: 1800,
		URL:        "https://zenlow.test/z-17",
		Fetched:    fetched,
	}

	row, err := rowFor(record, archived)
	require.NoError(t, err)

	prop, ok := row.(*PropertyRow)
	require.True(t, ok)
	assert.Equal(t, record.Key().ID, prop.Key)
	assert.Equal(t, "zenlow", prop.Source)
	assert.Equal(t, int64(record.Price), prop.PriceCents)
	assert.Equal(t, fetched, prop.FetchedAt)
	assert.Equal(t, archived, prop.ArchivedAt)
}

func TestRowForSnapshots(t *testing.T) {
	fetched := time.Now()

	row, err := rowFor(model.MarketSnapshot{
		Source:      "hausly",
		Location:    "Austin",
		MedianPrice: model.PriceFromDollars(512_000),
		Fetched:     fetched,
	}, fetched)
	require.NoError(t, err)
	market, ok := row.(*MarketRow)
	require.True(t, ok)
	assert.Equal(t, "austin", market.Key)
	assert.Equal(t, int64(model.PriceFromDollars(512_000)), market.MedianPriceCents)

	row, err = rowFor(model.NeighborhoodSnapshot{
		Source:     "hausly",
		Name:       "East Side",
		City:       "Austin",
		WalkScore:  88,
		MedianRent: model.PriceFromDollars(2_100),
		Fetched:    fetched,
	}, fetched)
	require.NoError(t, err)
	hood, ok := row.(*NeighborhoodRow)
	require.True(t, ok)
	assert.Equal(t, "east side", hood.Key)
	assert.Equal(t, 88, hood.WalkScore)
}

func TestSameKeyUpsertsSameRow(t *testing.T) {
	first := model.PropertyRecord{Address: "123 Main St", City: "Austin", Price: model.PriceFromDollars(450_000)}
	second := model.PropertyRecord{Address: "123 Main Street", City: "Austin", Price: model.PriceFromDollars(451_000)}

	a, err := rowFor(first, time.Now())
	require.NoError(t, err)
	b, err := rowFor(second, time.Now())
	require.NoError(t, err)
	assert.Equal(t, a.(*PropertyRow).Key, b.(*PropertyRow).Key)
}
