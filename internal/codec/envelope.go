package codec

import (
	"encoding/json"
	"time"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model"
	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
)

// MessageKind is the closed set of inbound push-channel message variants.
// The wire type string is mapped to a variant exactly once, at this
// boundary; everything downstream switches on the variant.
type MessageKind uint8

const (
	MessageUnknown MessageKind = iota
	MessagePropertyUpdate
	MessageMarketUpdate
	MessageNeighborhoodUpdate
	MessagePriceAlert
	MessageNewListing
	MessageAuthAck
)

// Message is one decoded inbound push message.
type Message struct {
	Kind   MessageKind
	Type   string // raw wire type, kept for logging unknown values
	Record model.Record
	Alert  model.PriceAlert
	AuthOK bool
}

type envelope struct {
	Type string `json:"type"`

	// property_update / new_listing
	ID         string          `json:"id"`
	Address    string          `json:"address"`
	City       string          `json:"city"`
	Price      decimal.Decimal `json:"price"`
	Bedrooms   int             `json:"bedrooms"`
	Bathrooms  float64         `json:"bathrooms"`
	SquareFeet int             `json:"squareFeet"`
	URL        string          `json:"url"`
	Source     string          `json:"source"`

	// market_data_update
	Location       string          `json:"location"`
	MedianPrice    decimal.Decimal `json:"medianPrice"`
	ActiveListings int             `json:"activeListings"`
	AvgDaysOnMkt   int             `json:"avgDaysOnMarket"`
	YoYChangePct   float64         `json:"yoyChangePct"`

	// neighborhood_data_update
	Name         string          `json:"name"`
	WalkScore    int             `json:"walkScore"`
	SchoolRating float64         `json:"schoolRating"`
	CrimeIndex   float64         `json:"crimeIndex"`
	MedianRent   decimal.Decimal `json:"medianRent"`

	// price_alert
	OldPrice decimal.Decimal `json:"oldPrice"`
	NewPrice decimal.Decimal `json:"newPrice"`

	// auth_ack
	OK bool `json:"ok"`

	// unix milliseconds; zero means "use receive time"
	UpdatedAt int64 `json:"updatedAt"`
}

// Decode parses one inbound message. now is the receive time used as the
// record fetch time when the message carries no timestamp.
func Decode(data []byte, now time.Time) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, errors.Wrap(err, "decode push envelope")
	}

	fetched := now
	if env.UpdatedAt > 0 {
		fetched = time.UnixMilli(env.UpdatedAt)
	}

	switch env.Type {
	case "property_update", "new_listing":
		record, err := env.property(fetched)
		if err != nil {
			return Message{}, err
		}
		kind := MessagePropertyUpdate
		if env.Type == "new_listing" {
			kind = MessageNewListing
		}
		return Message{Kind: kind, Type: env.Type, Record: record}, nil

	case "market_data_update":
		median, err := model.PriceFromDecimal(env.MedianPrice)
		if err != nil {
			return Message{}, errors.Wrap(err, "decode market median price")
		}
		return Message{
			Kind: MessageMarketUpdate,
			Type: env.Type,
			Record: model.MarketSnapshot{
				Source:         env.Source,
				Location:       env.Location,
				MedianPrice:    median,
				ActiveListings: env.ActiveListings,
				AvgDaysOnMkt:   env.AvgDaysOnMkt,
				YoYChangePct:   env.YoYChangePct,
				Fetched:        fetched,
			},
		}, nil

	case "neighborhood_data_update":
		rent, err := model.PriceFromDecimal(env.MedianRent)
		if err != nil {
			return Message{}, errors.Wrap(err, "decode neighborhood median rent")
		}
		return Message{
			Kind: MessageNeighborhoodUpdate,
			Type: env.Type,
			Record: model.NeighborhoodSnapshot{
				Source:       env.Source,
				Name:         env.Name,
				City:         env.City,
				WalkScore:    env.WalkScore,
				SchoolRating: env.SchoolRating,
				CrimeIndex:   env.CrimeIndex,
				MedianRent:   rent,
				Fetched:      fetched,
			},
		}, nil

	case "price_alert":
		oldPrice, err := model.PriceFromDecimal(env.OldPrice)
		if err != nil {
			return Message{}, errors.Wrap(err, "decode alert old price")
		}
		newPrice, err := model.PriceFromDecimal(env.NewPrice)
		if err != nil {
			return Message{}, errors.Wrap(err, "decode alert new price")
		}
		return Message{
			Kind: MessagePriceAlert,
			Type: env.Type,
			Alert: model.PriceAlert{
				Address:  env.Address,
				City:     env.City,
				OldPrice: oldPrice,
				NewPrice: newPrice,
				URL:      env.URL,
				At:       fetched,
			},
		}, nil

	case "auth_ack":
		return Message{Kind: MessageAuthAck, Type: env.Type, AuthOK: env.OK}, nil

	default:
		return Message{Kind: MessageUnknown, Type: env.Type}, nil
	}
}

func (env envelope) property(fetched time.Time) (model.Record, error) {
	price, err := model.PriceFromDecimal(env.Price)
	if err != nil {
		return nil, errors.Wrap(err, "decode property price")
	}
	return model.PropertyRecord{
		Source:     env.Source,
		ListingID:  env.ID,
		Address:    env.Address,
		City:       env.City,
		Price:      price,
		Bedrooms:   env.Bedrooms,
		Bathrooms:  env.Bathrooms,
		SquareFeet: env.SquareFeet,
		URL:        env.URL,
		Fetched:    fetched,
	}, nil
}

type authEnvelope struct {
	Type   string `json:"type"`
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// EncodeAuth builds the one-shot outbound auth envelope.
func EncodeAuth(token, userID string) ([]byte, error) {
	data, err := json.Marshal(authEnvelope{
		Type:   "auth",
		Token:  token,
		UserID: userID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode auth envelope")
	}
	return data, nil
}
