package model

import (
	"time"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model/enum"
)

// Key is the cross-source identity of a canonical record. Provider listing
// IDs never participate: the same listing carries a different ID on every
// provider.
type Key struct {
	Kind enum.RecordKind
	ID   string
}

func (k Key) String() string {
	return k.Kind.String() + "/" + k.ID
}

// Record is the canonical unit held by the store. Variants are value types;
// an interface value is always a copy of the payload.
type Record interface {
	Key() Key
	Kind() enum.RecordKind
	FetchedAt() time.Time
	// EqualPayload reports whether the source-agnostic payload matches,
	// ignoring fetch time and originating source.
	EqualPayload(other Record) bool
}

// PropertyRecord is a single de-duplicated property listing.
type PropertyRecord struct {
	Source     string
	ListingID  string
	Address    string
	City       string
	Price      Price
	Bedrooms   int
	Bathrooms  float64
	SquareFeet int
	URL        string
	Fetched    time.Time
}

func (r PropertyRecord) Key() Key {
	return Key{
		Kind: enum.RecordKindProperty,
		ID:   NormalizeAddress(r.Address, r.City) + "#" + bucketString(r.Price.Bucket()),
	}
}

func (r PropertyRecord) Kind() enum.RecordKind { return enum.RecordKindProperty }

func (r PropertyRecord) FetchedAt() time.Time { return r.Fetched }

func (r PropertyRecord) EqualPayload(other Record) bool {
	o, ok := other.(PropertyRecord)
	if !ok {
		return false
	}
	return r.Address == o.Address &&
		r.City == o.City &&
		r.Price == o.Price &&
		r.Bedrooms == o.Bedrooms &&
		r.Bathrooms == o.Bathrooms &&
		r.SquareFeet == o.SquareFeet
}

// MarketSnapshot is the market view for one location.
type MarketSnapshot struct {
	Source         string
	Location       string
	MedianPrice    Price
	ActiveListings int
	AvgDaysOnMkt   int
	YoYChangePct   float64
	Fetched        time.Time
}

func (r MarketSnapshot) Key() Key {
	return Key{Kind: enum.RecordKindMarket, ID: normalizeToken(r.Location)}
}

func (r MarketSnapshot) Kind() enum.RecordKind { return enum.RecordKindMarket }

func (r MarketSnapshot) FetchedAt() time.Time { return r.Fetched }

func (r MarketSnapshot) EqualPayload(other Record) bool {
	o, ok := other.(MarketSnapshot)
	if !ok {
		return false
	}
	return r.Location == o.Location &&
		r.MedianPrice == o.MedianPrice &&
		r.ActiveListings == o.ActiveListings &&
		r.AvgDaysOnMkt == o.AvgDaysOnMkt &&
		r.YoYChangePct == o.YoYChangePct
}

// NeighborhoodSnapshot is the livability view for one neighborhood.
type NeighborhoodSnapshot struct {
	Source       string
	Name         string
	City         string
	WalkScore    int
	SchoolRating float64
	CrimeIndex   float64
	MedianRent   Price
	Fetched      time.Time
}

func (r NeighborhoodSnapshot) Key() Key {
	return Key{Kind: enum.RecordKindNeighborhood, ID: normalizeToken(r.Name)}
}

func (r NeighborhoodSnapshot) Kind() enum.RecordKind { return enum.RecordKindNeighborhood }

func (r NeighborhoodSnapshot) FetchedAt() time.Time { return r.Fetched }

func (r NeighborhoodSnapshot) EqualPayload(other Record) bool {
	o, ok := other.(NeighborhoodSnapshot)
	if !ok {
		return false
	}
	return r.Name == o.Name &&
		r.City == o.City &&
		r.WalkScore == o.WalkScore &&
		r.SchoolRating == o.SchoolRating &&
		r.CrimeIndex == o.CrimeIndex &&
		r.MedianRent == o.MedianRent
}

// PriceAlert is a push-only notification payload; it never enters the store.
type PriceAlert struct {
	Address  string
	City     string
	OldPrice Price
	NewPrice Price
	URL      string
	At       time.Time
}
