package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model"
	"github.com/SlimmithJimmith/Aibodes-sub001/pkg/exception"
	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const maxFeedBody = 16 << 20

// FeedAdapter fetches a provider's JSON feed document over HTTP.
type FeedAdapter struct {
	name   string
	url    string
	apiKey string
	client *http.Client
	now    func() time.Time
}

// NewFeedAdapter creates an adapter for one provider endpoint. A nil client
// falls back to a default with no overall timeout; the per-fetch context
// carries the deadline.
func NewFeedAdapter(name, url, apiKey string, client *http.Client) *FeedAdapter {
	if client == nil {
		client = &http.Client{}
	}
	return &FeedAdapter{
		name:   name,
		url:    url,
		apiKey: apiKey,
		client: client,
		now:    time.Now,
	}
}

func (a *FeedAdapter) Name() string { return a.name }

// Fetch downloads and maps the provider document into canonical records.
// Individual malformed entries are logged and skipped; the document itself
// failing to decode fails the whole fetch.
func (a *FeedAdapter) Fetch(ctx context.Context) ([]model.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build feed request").With("source", a.name)
	}
	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch feed").With("source", a.name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrap(exception.ErrFeedStatus, "fetch feed").
			With("source", a.name).
			With("status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return nil, errors.Wrap(err, "read feed body").With("source", a.name)
	}

	var doc feedDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(err, "decode feed document").With("source", a.name)
	}

	return a.mapDocument(doc), nil
}

type feedDocument struct {
	Listings      []feedListing      `json:"listings"`
	Market        []feedMarket       `json:"market"`
	Neighborhoods []feedNeighborhood `json:"neighborhoods"`
}

type feedListing struct {
	ID         string          `json:"id"`
	Address    string          `json:"address"`
	City       string          `json:"city"`
	Price      decimal.Decimal `json:"price"`
	Bedrooms   int             `json:"bedrooms"`
	Bathrooms  float64         `json:"bathrooms"`
	SquareFeet int             `json:"squareFeet"`
	URL        string          `json:"url"`
}

type feedMarket struct {
	Location       string          `json:"location"`
	MedianPrice    decimal.Decimal `json:"medianPrice"`
	ActiveListings int             `json:"activeListings"`
	AvgDaysOnMkt   int             `json:"avgDaysOnMarket"`
	YoYChangePct   float64         `json:"yoyChangePct"`
}

type feedNeighborhood struct {
	Name         string          `json:"name"`
	City         string          `json:"city"`
	WalkScore    int             `json:"walkScore"`
	SchoolRating float64         `json:"schoolRating"`
	CrimeIndex   float64         `json:"crimeIndex"`
	MedianRent   decimal.Decimal `json:"medianRent"`
}

func (a *FeedAdapter) mapDocument(doc feedDocument) []model.Record {
	fetched := a.now()
	records := make([]model.Record, 0, len(doc.Listings)+len(doc.Market)+len(doc.Neighborhoods))

	for _, l := range doc.Listings {
		if l.Address == "" {
			logs.Infof("skip listing without address, source: %s, id: %s", a.name, l.ID)
			continue
		}
		price, err := model.PriceFromDecimal(l.Price)
		if err != nil {
			logs.Errorf("skip listing with bad price, source: %s, id: %s, err: %+v", a.name, l.ID, err)
			continue
		}
		records = append(records, model.PropertyRecord{
			Source:     a.name,
			ListingID:  l.ID,
			Address:    l.Address,
			City:       l.City,
			Price:      price,
			Bedrooms:   l.Bedrooms,
			Bathrooms:  l.Bathrooms,
			SquareFeet: l.SquareFeet,
			URL:        l.URL,
			Fetched:    fetched,
		})
	}

	for _, m := range doc.Market {
		if m.Location == "" {
			continue
		}
		median, err := model.PriceFromDecimal(m.MedianPrice)
		if err != nil {
			logs.Errorf("skip market snapshot with bad price, source: %s, location: %s, err: %+v", a.name, m.Location, err)
			continue
		}
		records = append(records, model.MarketSnapshot{
			Source:         a.name,
			Location:       m.Location,
			MedianPrice:    median,
			ActiveListings: m.ActiveListings,
			AvgDaysOnMkt:   m.AvgDaysOnMkt,
			YoYChangePct:   m.YoYChangePct,
			Fetched:        fetched,
		})
	}

	for _, n := range doc.Neighborhoods {
		if n.Name == "" {
			continue
		}
		rent, err := model.PriceFromDecimal(n.MedianRent)
		if err != nil {
			logs.Errorf("skip neighborhood with bad rent, source: %s, name: %s, err: %+v", a.name, n.Name, err)
			continue
		}
		records = append(records, model.NeighborhoodSnapshot{
			Source:       a.name,
			Name:         n.Name,
			City:         n.City,
			WalkScore:    n.WalkScore,
			SchoolRating: n.SchoolRating,
			CrimeIndex:   n.CrimeIndex,
			MedianRent:   rent,
			Fetched:      fetched,
		})
	}

	return records
}
