package enum

// RecordKind describes the canonical record variant.
type RecordKind uint8

const (
	_record_kind_beg RecordKind = iota
	RecordKindProperty
	RecordKindMarket
	RecordKindNeighborhood
	_record_kind_end
)

func (k RecordKind) IsAvailable() bool {
	return k > _record_kind_beg && k < _record_kind_end
}

func (k RecordKind) String() string {
	switch k {
	case RecordKindProperty:
		return "property"
	case RecordKindMarket:
		return "market"
	case RecordKindNeighborhood:
		return "neighborhood"
	default:
		return "unknown"
	}
}
