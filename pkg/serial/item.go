package serial

import (
	"errors"
	"slices"
)

// Confidence is how closely a buffer matched a known-good layout.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Category is the item classification derived from the type character.
type Category string

const (
	CategoryWeapon       Category = "weapon"
	CategoryEquipment    Category = "equipment"
	CategoryEquipmentAlt Category = "equipment_alt"
	CategoryUnknown      Category = "unknown"
	CategoryFailed       Category = "decode_failed"
)

// ItemTypeError marks the sentinel item returned for undecodable input.
const ItemTypeError = "error"

var (
	// ErrMissingPrefix is recorded when a serial does not start with "@U"
	// and a type character.
	ErrMissingPrefix = errors.New("serial: missing @U prefix")
	// ErrPoolNibbleMismatch is returned when the reserved pool is paired
	// with a nibble other than ReservedNibble.
	ErrPoolNibbleMismatch = errors.New("serial: pool /F requires length nibble 5")
	// ErrInvalidNibble is returned when a pool nibble is not a single
	// alphabet character or its position does not hold a nibble.
	ErrInvalidNibble = errors.New("serial: invalid pool length nibble")
	// ErrInconsistentItem means the item's bookkeeping no longer describes
	// its serial.
	ErrInconsistentItem = errors.New("serial: item bookkeeping does not match serial")
	// ErrValueRange means an edited value does not fit its slot.
	ErrValueRange = errors.New("serial: value out of range for field")
	// ErrInvalidFlags means edited flags cannot be written as a tail triad.
	ErrInvalidFlags = errors.New("serial: flags must be three alphabet characters")
	// ErrPartsOverflow means more parts were supplied than the buffer holds.
	ErrPartsOverflow = errors.New("serial: too many parts for buffer")
	// ErrMarkerCollision means rewriting a field's digits would change
	// marker text. The field is left unchanged and reported as skipped.
	ErrMarkerCollision = errors.New("serial: edit would rewrite marker text")
)

// Field names a semantic stat.
type Field string

const (
	FieldPrimaryStat   Field = "primary_stat"
	FieldSecondaryStat Field = "secondary_stat"
	FieldLevel         Field = "level"
	FieldRarity        Field = "rarity"
	FieldManufacturer  Field = "manufacturer"
	FieldItemClass     Field = "item_class"
)

// Fields lists the numeric stat fields in display order.
var Fields = []Field{FieldPrimaryStat, FieldSecondaryStat, FieldLevel, FieldRarity, FieldManufacturer, FieldItemClass}

// Stats are the semantic fields of an item. A nil field was not extracted
// with any confidence; it is not zero.
type Stats struct {
	PrimaryStat   *int  `json:"primary_stat,omitempty"`
	SecondaryStat *int  `json:"secondary_stat,omitempty"`
	Level         *int  `json:"level,omitempty"`
	Rarity        *int  `json:"rarity,omitempty"`
	Manufacturer  *int  `json:"manufacturer,omitempty"`
	ItemClass     *int  `json:"item_class,omitempty"`
	ItemClassRaw  *int  `json:"item_class_raw,omitempty"`
	Flags         []int `json:"flags,omitempty"`
	Parts         []int `json:"parts,omitempty"`
}

// Get returns the value of a numeric field.
func (s *Stats) Get(f Field) *int {
	switch f {
	case FieldPrimaryStat:
		return s.PrimaryStat
	case FieldSecondaryStat:
		return s.SecondaryStat
	case FieldLevel:
		return s.Level
	case FieldRarity:
		return s.Rarity
	case FieldManufacturer:
		return s.Manufacturer
	case FieldItemClass:
		return s.ItemClass
	}
	return nil
}

// Set assigns a numeric field.
func (s *Stats) Set(f Field, v int) {
	switch f {
	case FieldPrimaryStat:
		s.PrimaryStat = Int(v)
	case FieldSecondaryStat:
		s.SecondaryStat = Int(v)
	case FieldLevel:
		s.Level = Int(v)
	case FieldRarity:
		s.Rarity = Int(v)
	case FieldManufacturer:
		s.Manufacturer = Int(v)
	case FieldItemClass:
		s.ItemClass = Int(v)
	}
}

// Clone returns a deep copy.
func (s Stats) Clone() Stats {
	c := s
	for _, f := range Fields {
		if v := s.Get(f); v != nil {
			c.Set(f, *v)
		}
	}
	if s.ItemClassRaw != nil {
		c.ItemClassRaw = Int(*s.ItemClassRaw)
	}
	c.Flags = slices.Clone(s.Flags)
	c.Parts = slices.Clone(s.Parts)
	return c
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// Item is a decoded serial. It is created fresh by every Decode call and
// owned by the caller.
type Item struct {
	Serial     string     `json:"serial"`
	ItemType   string     `json:"item_type"`
	Category   Category   `json:"item_category"`
	Length     int        `json:"length"`
	Stats      Stats      `json:"stats"`
	RawFields  RawFields  `json:"raw_fields"`
	Confidence Confidence `json:"confidence"`
	WeaponName string     `json:"weapon_name,omitempty"`

	Prefix        string         `json:"original_prefix"`
	Payload       string         `json:"original_payload"`
	Binary        []byte         `json:"original_binary"`
	DataPositions []int          `json:"data_positions"`
	Markers       map[string]int `json:"markers,omitempty"`
	Regions       Regions        `json:"regions"`
}

// Editable reports whether the item may be fed to Encode.
func (it *Item) Editable() bool {
	return it != nil && it.ItemType != ItemTypeError && it.Confidence != ConfidenceNone
}

// Clone returns a deep copy so callers can edit without touching the
// original.
func (it *Item) Clone() *Item {
	c := *it
	c.Stats = it.Stats.Clone()
	c.Binary = slices.Clone(it.Binary)
	c.DataPositions = slices.Clone(it.DataPositions)
	if it.Markers != nil {
		c.Markers = make(map[string]int, len(it.Markers))
		for k, v := range it.Markers {
			c.Markers[k] = v
		}
	}
	if it.Regions.Pool != nil {
		p := *it.Regions.Pool
		c.Regions.Pool = &p
	}
	if it.Regions.TailTriad != nil {
		t := *it.Regions.TailTriad
		c.Regions.TailTriad = &t
	}
	return &c
}

func errorItem(serial string, err error) *Item {
	return &Item{
		Serial:     serial,
		ItemType:   ItemTypeError,
		Category:   CategoryFailed,
		Confidence: ConfidenceNone,
		RawFields:  RawFields{Error: err.Error()},
	}
}
