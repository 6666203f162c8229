package enum

// EventKind identifies an update event published on the bus.
type EventKind uint8

const (
	_event_kind_beg EventKind = iota
	EventPropertyChanged
	EventMarketChanged
	EventNeighborhoodChanged
	EventConnectionState
	EventPriceAlert
	EventNewListing
	_event_kind_end
)

func (k EventKind) IsAvailable() bool {
	return k > _event_kind_beg && k < _event_kind_end
}

func (k EventKind) String() string {
	switch k {
	case EventPropertyChanged:
		return "property_changed"
	case EventMarketChanged:
		return "market_changed"
	case EventNeighborhoodChanged:
		return "neighborhood_changed"
	case EventConnectionState:
		return "connection_state"
	case EventPriceAlert:
		return "price_alert"
	case EventNewListing:
		return "new_listing"
	default:
		return "unknown"
	}
}

// ChangeKind distinguishes how a record change event was produced.
type ChangeKind uint8

const (
	ChangeNone ChangeKind = iota
	ChangeAdded
	ChangeUpdated
)

func (c ChangeKind) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeUpdated:
		return "updated"
	default:
		return "none"
	}
}

// EventKindForRecord maps a record variant to its change event kind.
func EventKindForRecord(k RecordKind) EventKind {
	switch k {
	case RecordKindProperty:
		return EventPropertyChanged
	case RecordKindMarket:
		return EventMarketChanged
	case RecordKindNeighborhood:
		return EventNeighborhoodChanged
	default:
		return _event_kind_beg
	}
}
