package serial

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

const (
	candidateWindow = 20
	statMin         = 100
	statMax         = 10000
	flagMax         = 100
)

// Candidate is a value found at a byte offset.
type Candidate struct {
	Offset int `json:"offset"`
	Value  int `json:"value"`
}

// RawFields is every integer the extractor read from the raw buffer. It is
// derived data: the encoder reads it to decide which fields changed and
// low-confidence items show it as-is.
type RawFields struct {
	HeaderLE *uint32 `json:"header_le,omitempty"`
	HeaderBE *uint32 `json:"header_be,omitempty"`
	Field2LE *uint32 `json:"field2_le,omitempty"`
	Field3LE *uint32 `json:"field3_le,omitempty"`

	// Bytes holds the 8-bit value at every offset.
	Bytes []int `json:"bytes,omitempty"`
	// Words holds 16-bit little-endian values at even offsets below 20.
	Words map[int]int `json:"words,omitempty"`

	PotentialStats []Candidate `json:"potential_stats,omitempty"`
	PotentialFlags []Candidate `json:"potential_flags,omitempty"`

	LevelTier   string `json:"level_tier,omitempty"`
	PartsSource string `json:"parts_source,omitempty"`
	PartOffsets []int  `json:"part_offsets,omitempty"`

	Error string `json:"error,omitempty"`
}

// Extract reads the candidate fields out of data. It never modifies data.
func Extract(data []byte) RawFields {
	var f RawFields

	if len(data) >= 4 {
		le := binary.LittleEndian.Uint32(data[0:4])
		be := binary.BigEndian.Uint32(data[0:4])
		f.HeaderLE, f.HeaderBE = &le, &be
	}
	if len(data) >= 8 {
		v := binary.LittleEndian.Uint32(data[4:8])
		f.Field2LE = &v
	}
	if len(data) >= 12 {
		v := binary.LittleEndian.Uint32(data[8:12])
		f.Field3LE = &v
	}

	f.Bytes = make([]int, len(data))
	for i, b := range data {
		f.Bytes[i] = int(b)
		if i < candidateWindow && int(b) < flagMax {
			f.PotentialFlags = append(f.PotentialFlags, Candidate{Offset: i, Value: int(b)})
		}
	}

	f.Words = make(map[int]int)
	for i := 0; i+1 < len(data) && i < candidateWindow; i += 2 {
		v := int(binary.LittleEndian.Uint16(data[i:]))
		f.Words[i] = v
		if v >= statMin && v <= statMax {
			f.PotentialStats = append(f.PotentialStats, Candidate{Offset: i, Value: v})
		}
	}
	return f
}

// Lookup returns a raw field by name: "header_le", "header_be",
// "field2_le", "field3_le", "byte_N" or "val16_at_N".
func (f RawFields) Lookup(name string) (int64, bool) {
	switch name {
	case "header_le":
		return u32(f.HeaderLE)
	case "header_be":
		return u32(f.HeaderBE)
	case "field2_le":
		return u32(f.Field2LE)
	case "field3_le":
		return u32(f.Field3LE)
	}

	if s, ok := strings.CutPrefix(name, "byte_"); ok {
		i, err := strconv.Atoi(s)
		if err != nil || i < 0 || i >= len(f.Bytes) {
			return 0, false
		}
		return int64(f.Bytes[i]), true
	}
	if s, ok := strings.CutPrefix(name, "val16_at_"); ok {
		i, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		v, ok := f.Words[i]
		return int64(v), ok
	}
	return 0, false
}

// Keys lists the names accepted by Lookup for this buffer, headers first.
func (f RawFields) Keys() []string {
	var keys []string
	for _, k := range []struct {
		name string
		v    *uint32
	}{{"header_le", f.HeaderLE}, {"header_be", f.HeaderBE}, {"field2_le", f.Field2LE}, {"field3_le", f.Field3LE}} {
		if k.v != nil {
			keys = append(keys, k.name)
		}
	}
	for i := 0; i < len(f.Bytes); i += 2 {
		if _, ok := f.Words[i]; ok {
			keys = append(keys, fmt.Sprintf("val16_at_%d", i))
		}
	}
	for i := range f.Bytes {
		keys = append(keys, fmt.Sprintf("byte_%d", i))
	}
	return keys
}

func u32(v *uint32) (int64, bool) {
	if v == nil {
		return 0, false
	}
	return int64(*v), true
}
