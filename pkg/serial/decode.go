package serial

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	serialMagic = "@U"
	prefixLen   = len(serialMagic) + 1
)

// CodecConfig holds the codec's collaborators
type CodecConfig struct {
	Logger *slog.Logger
}

// Codec decodes and encodes item serials
type Codec struct {
	log *slog.Logger
}

// NewCodec creates a codec. A nil logger discards output.
func NewCodec(config CodecConfig) *Codec {
	log := config.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Codec{log: log}
}

var defaultCodec = NewCodec(CodecConfig{})

// Decode decodes serial with a codec that discards its log output.
func Decode(serial string) *Item {
	return defaultCodec.Decode(serial)
}

// Encode encodes item with a codec that discards its log output. It returns
// the original serial when the encode falls back.
func Encode(item *Item) (string, error) {
	res, err := defaultCodec.Encode(item)
	if err != nil {
		return "", err
	}
	return res.Serial, nil
}

// splitSerial separates the "@U<type>" prefix from the payload.
// typeChar is the single byte after "@U", kept as a string slice so
// non-ASCII bytes are reported unchanged.
func splitSerial(serial string) (prefix, typeChar, payload string, err error) {
	if !strings.HasPrefix(serial, serialMagic) || len(serial) < prefixLen {
		return "", "", "", fmt.Errorf("%w: %q", ErrMissingPrefix, truncate(serial, 16))
	}
	return serial[:prefixLen], serial[prefixLen-1 : prefixLen], serial[prefixLen:], nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Decode turns a serial into an Item. It never panics and never returns
// nil: undecodable input yields an Item with ItemType ItemTypeError.
func (c *Codec) Decode(serial string) (item *Item) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("serial decode panicked", "serial", serial, "panic", r)
			item = errorItem(serial, fmt.Errorf("decode panic: %v", r))
		}
	}()

	prefix, typeChar, payload, err := splitSerial(serial)
	if err != nil {
		return errorItem(serial, err)
	}

	kind, itemType := kindOf(typeChar)
	buf := DecodeDigits(payload)
	markers := scanMarkers(payload)
	regions := scanRegions(payload, markers, kind == KindWeapon)

	item = &Item{
		Serial:        serial,
		ItemType:      itemType,
		Category:      kind.Category(),
		Length:        len(buf),
		Prefix:        prefix,
		Payload:       payload,
		Binary:        buf,
		DataPositions: Positions(payload),
		Markers:       markers,
		Regions:       regions,
		RawFields:     Extract(buf),
		Confidence:    ConfidenceLow,
	}
	if len(buf) == 0 {
		return item
	}

	l := layoutFor(kind)
	p := l.resolve(buf, item.RawFields, regions)
	item.Confidence = l.confidence(buf)
	item.RawFields.LevelTier = p.levelTier

	for _, b := range p.bindings {
		item.Stats.Set(b.field, b.value)
	}
	if item.Stats.ItemClass != nil {
		item.Stats.ItemClassRaw = Int(*item.Stats.ItemClass)
	}
	if p.parts.source != "" {
		item.Stats.Parts = p.parts.values
		item.RawFields.PartsSource = p.parts.source
		item.RawFields.PartOffsets = p.parts.offsets
	}
	if kind == KindWeapon && regions.TailTriad != nil {
		item.Stats.Flags = triadFlags(regions.TailTriad.Text)
	}
	if kind == KindWeapon {
		item.WeaponName = WeaponName(serial)
	}

	c.log.Debug("serial decoded",
		"item_type", item.ItemType,
		"length", item.Length,
		"confidence", item.Confidence,
		"level_tier", p.levelTier)
	return item
}

func triadFlags(text string) []int {
	flags := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		flags[i] = int(text[i])
	}
	return flags
}
