package archive

import (
	"sync"
	"time"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/bus"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model/enum"
	"github.com/SlimmithJimmith/Aibodes-sub001/pkg/conn"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gorm.io/gorm/clause"
)

// queue capacity for the archive subscriber; sized generously since a
// full queue loses the oldest change.
const subscriberBuffer = 1024

// PropertyRow is the persisted form of a property listing.
type PropertyRow struct {
	Key        string    `gorm:"primaryKey;column:record_key"`
	Source     string    `gorm:"column:source"`
	ListingID  string    `gorm:"column:listing_id"`
	Address    string    `gorm:"column:address"`
	City       string    `gorm:"column:city"`
	PriceCents int64     `gorm:"column:price_cents"`
	Bedrooms   int       `gorm:"column:bedrooms"`
	Bathrooms  float64   `gorm:"column:bathrooms"`
	SquareFeet int       `gorm:"column:square_feet"`
	URL        string    `gorm:"column:url"`
	FetchedAt  time.Time `gorm:"column:fetched_at"`
	ArchivedAt time.Time `gorm:"column:archived_at"`
}

func (PropertyRow) TableName() string { return "property_records" }

// MarketRow is the persisted form of a market snapshot.
type MarketRow struct {
	Key              string    `gorm:"primaryKey;column:record_key"`
	Source           string    `gorm:"column:source"`
	Location         string    `gorm:"column:location"`
	MedianPriceCents int64     `gorm:"column:median_price_cents"`
	ActiveListings   int       `gorm:"column:active_listings"`
	AvgDaysOnMkt     int       `gorm:"column:avg_days_on_market"`
	YoYChangePct     float64   `gorm:"column:yoy_change_pct"`
	FetchedAt        time.Time `gorm:"column:fetched_at"`
	ArchivedAt       time.Time `gorm:"column:archived_at"`
}

func (MarketRow) TableName() string { return "market_snapshots" }

// NeighborhoodRow is the persisted form of a neighborhood snapshot.
type NeighborhoodRow struct {
	Key             string    `gorm:"primaryKey;column:record_key"`
	Source          string    `gorm:"column:source"`
	Name            string    `gorm:"column:name"`
	City            string    `gorm:"column:city"`
	WalkScore       int       `gorm:"column:walk_score"`
	SchoolRating    float64   `gorm:"column:school_rating"`
	CrimeIndex      float64   `gorm:"column:crime_index"`
	MedianRentCents int64     `gorm:"column:median_rent_cents"`
	FetchedAt       time.Time `gorm:"column:fetched_at"`
	ArchivedAt      time.Time `gorm:"column:archived_at"`
}

func (NeighborhoodRow) TableName() string { return "neighborhood_snapshots" }

// Archiver persists every add and update flowing through the event bus
// into PostgreSQL, keyed by the record identity. Rows are upserted, so
// the table always holds the latest accepted value per key.
type Archiver struct {
	client *conn.Client
	sub    *bus.Subscriber
	wg     sync.WaitGroup
	now    func() time.Time
}

// New migrates the archive tables and registers a subscriber on the bus.
// The subscriber only sees events published after this call.
func New(client *conn.Client, b *bus.Bus) (*Archiver, error) {
	if err := client.DB().AutoMigrate(&PropertyRow{}, &MarketRow{}, &NeighborhoodRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate archive tables")
	}
	sub := b.SubscribeBuffered(subscriberBuffer,
		enum.EventPropertyChanged,
		enum.EventMarketChanged,
		enum.EventNeighborhoodChanged,
	)
	return &Archiver{
		client: client,
		sub:    sub,
		now:    time.Now,
	}, nil
}

// Start consumes change events until the subscription closes.
func (a *Archiver) Start() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			event, ok := a.sub.Next()
			if !ok {
				return
			}
			if event.Record == nil {
				continue
			}
			if err := a.persist(event.Record); err != nil {
				logs.Errorf("archive %s: %+v", event.Record.Key().ID, err)
			}
		}
	}()
}

// Stop detaches from the bus and waits for in-flight writes.
func (a *Archiver) Stop() {
	a.sub.Close()
	a.wg.Wait()
}

func (a *Archiver) persist(record model.Record) error {
	row, err := rowFor(record, a.now())
	if err != nil {
		return err
	}
	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_key"}},
		UpdateAll: true,
	}
	if err := a.client.DB().Clauses(upsert).Create(row).Error; err != nil {
		return errors.Wrap(err, "upsert archive row")
	}
	return nil
}

// rowFor maps a canonical record onto its table row. The upsert key is
// the same identity key the in-memory store dedups on.
func rowFor(record model.Record, archivedAt time.Time) (any, error) {
	switch r := record.(type) {
	case model.PropertyRecord:
		return &PropertyRow{
			Key:        r.Key().ID,
			Source:     r.Source,
			ListingID:  r.ListingID,
			Address:    r.Address,
			City:       r.City,
			PriceCents: int64(r.Price),
			Bedrooms:   r.Bedrooms,
			Bathrooms:  r.Bathrooms,
			SquareFeet: r.SquareFeet,
			URL:        r.URL,
			FetchedAt:  r.FetchedAt(),
			ArchivedAt: archivedAt,
		}, nil
	case model.MarketSnapshot:
		return &MarketRow{
			Key:              r.Key().ID,
			Source:           r.Source,
			Location:         r.Location,
			MedianPriceCents: int64(r.MedianPrice),
			ActiveListings:   r.ActiveListings,
			AvgDaysOnMkt:     r.AvgDaysOnMkt,
			YoYChangePct:     r.YoYChangePct,
			FetchedAt:        r.FetchedAt(),
			ArchivedAt:       archivedAt,
		}, nil
	case model.NeighborhoodSnapshot:
		return &NeighborhoodRow{
			Key:             r.Key().ID,
			Source:          r.Source,
			Name:            r.Name,
			City:            r.City,
			WalkScore:       r.WalkScore,
			SchoolRating:    r.SchoolRating,
			CrimeIndex:      r.CrimeIndex,
			MedianRentCents: int64(r.MedianRent),
			FetchedAt:       r.FetchedAt(),
			ArchivedAt:      archivedAt,
		}, nil
	default:
		return nil, errors.Errorf("unsupported record kind %s", record.Kind())
	}
}
