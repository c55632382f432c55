package serial

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// Kind selects one of the decode paths.
type Kind int

const (
	KindUnknown Kind = iota
	KindWeapon
	KindEquipment
	KindEquipmentAlt
)

func (k Kind) String() string {
	switch k {
	case KindWeapon:
		return "weapon"
	case KindEquipment:
		return "equipment"
	case KindEquipmentAlt:
		return "equipment_alt"
	}
	return "unknown"
}

// Category maps the kind to its item category.
func (k Kind) Category() Category {
	switch k {
	case KindWeapon:
		return CategoryWeapon
	case KindEquipment:
		return CategoryEquipment
	case KindEquipmentAlt:
		return CategoryEquipmentAlt
	}
	return CategoryUnknown
}

// kindOf maps the prefix type character, as the one-byte slice of the
// serial that holds it, to its kind and reported item type.
func kindOf(typeChar string) (Kind, string) {
	switch typeChar {
	case "r", "g":
		return KindWeapon, "r"
	case "e":
		return KindEquipment, "e"
	case "d":
		return KindEquipmentAlt, "d"
	}
	return KindUnknown, typeChar
}

// KindOfItemType maps a decoded item type back to its kind.
func KindOfItemType(itemType string) Kind {
	k, _ := kindOf(itemType)
	return k
}

type locKind int

const (
	locByte locKind = iota
	locWord
	locBits
)

// loc is where a field lives in the raw buffer: a byte, a little-endian
// word, or a bit range [start, end) of the big-endian header word with a
// bias added on read.
type loc struct {
	kind   locKind
	offset int
	start  uint
	end    uint
	bias   int
}

func atByte(off int) loc { return loc{kind: locByte, offset: off} }
func atWord(off int) loc { return loc{kind: locWord, offset: off} }
func atBits(start, end uint, bias int) loc {
	return loc{kind: locBits, start: start, end: end, bias: bias}
}

func (l loc) size() int {
	switch l.kind {
	case locWord:
		return 2
	case locBits:
		return 4
	}
	return 1
}

// span lists the byte offsets the location touches.
func (l loc) span() []int {
	switch l.kind {
	case locWord:
		return []int{l.offset, l.offset + 1}
	case locBits:
		var s []int
		for i := 3 - int((l.end-1)/8); i <= 3-int(l.start/8); i++ {
			s = append(s, i)
		}
		return s
	}
	return []int{l.offset}
}

func (l loc) mask() uint32 {
	return (uint32(1)<<(l.end-l.start) - 1) << l.start
}

func (l loc) read(buf []byte) (int, bool) {
	if l.offset+l.size() > len(buf) {
		return 0, false
	}
	switch l.kind {
	case locWord:
		return int(binary.LittleEndian.Uint16(buf[l.offset:])), true
	case locBits:
		h := binary.BigEndian.Uint32(buf)
		return int((h&l.mask())>>l.start) + l.bias, true
	}
	return int(buf[l.offset]), true
}

func (l loc) write(buf []byte, v int) error {
	if l.offset+l.size() > len(buf) {
		return fmt.Errorf("%w: buffer too short", ErrValueRange)
	}
	switch l.kind {
	case locWord:
		if v < 0 || v > 0xFFFF {
			return fmt.Errorf("%w: %d does not fit 16 bits", ErrValueRange, v)
		}
		binary.LittleEndian.PutUint16(buf[l.offset:], uint16(v))
	case locBits:
		raw := v - l.bias
		if raw < 0 || uint32(raw) > l.mask()>>l.start {
			return fmt.Errorf("%w: %d does not fit header bits [%d,%d)", ErrValueRange, v, l.start, l.end)
		}
		h := binary.BigEndian.Uint32(buf)
		h = h&^l.mask() | uint32(raw)<<l.start
		binary.BigEndian.PutUint32(buf, h)
	default:
		if v < 0 || v > 0xFF {
			return fmt.Errorf("%w: %d does not fit 8 bits", ErrValueRange, v)
		}
		buf[l.offset] = byte(v)
	}
	return nil
}

type slot struct {
	field    Field
	at       loc
	readOnly bool
	minLen   int
}

type signature struct {
	offset int
	value  byte
}

// layout is the fixed offset table of one item kind.
type layout struct {
	kind         Kind
	slots        []slot
	classOffset  int
	signature    signature
	goodLengths  []int
	defaultParts int
}

var (
	weaponLayout = layout{
		kind: KindWeapon,
		slots: []slot{
			{field: FieldPrimaryStat, at: atWord(0)},
			{field: FieldRarity, at: atBits(12, 15, 0), readOnly: true},
			{field: FieldManufacturer, at: atByte(4), readOnly: true},
			{field: FieldItemClass, at: atByte(8)},
			{field: FieldSecondaryStat, at: atWord(12)},
		},
		classOffset:  8,
		signature:    signature{offset: 7, value: 0x01},
		goodLengths:  []int{22, 23, 24, 26},
		defaultParts: 4,
	}

	equipmentLayout = layout{
		kind: KindEquipment,
		slots: []slot{
			{field: FieldManufacturer, at: atByte(1)},
			{field: FieldItemClass, at: atByte(3)},
			{field: FieldPrimaryStat, at: atWord(4)},
			{field: FieldSecondaryStat, at: atWord(6)},
			{field: FieldRarity, at: atByte(9)},
			{field: FieldLevel, at: atWord(10), minLen: 39},
		},
		classOffset:  3,
		signature:    signature{offset: 1, value: 49},
		goodLengths:  []int{20, 22},
		defaultParts: 3,
	}

	equipmentAltLayout = layout{
		kind: KindEquipmentAlt,
		slots: []slot{
			{field: FieldPrimaryStat, at: atWord(2)},
			{field: FieldManufacturer, at: atByte(5)},
			{field: FieldItemClass, at: atByte(6)},
			{field: FieldSecondaryStat, at: atWord(8)},
			{field: FieldLevel, at: atWord(10)},
			{field: FieldRarity, at: atByte(14)},
		},
		classOffset:  6,
		signature:    signature{offset: 5, value: 15},
		goodLengths:  []int{24, 26},
		defaultParts: 3,
	}

	genericLayout = layout{
		kind: KindUnknown,
		slots: []slot{
			{field: FieldManufacturer, at: atByte(1)},
			{field: FieldRarity, at: atByte(2)},
			{field: FieldItemClass, at: atByte(3)},
		},
		classOffset: -1,
	}
)

func layoutFor(k Kind) *layout {
	switch k {
	case KindWeapon:
		return &weaponLayout
	case KindEquipment:
		return &equipmentLayout
	case KindEquipmentAlt:
		return &equipmentAltLayout
	}
	return &genericLayout
}

// binding is a field resolved against one buffer.
type binding struct {
	field    Field
	at       loc
	value    int
	readOnly bool
	// tier names the level tier that read the value; level writes go
	// through writeLevel so the chain reads them back.
	tier string
	// stat marks a word picked from the potential stats list, which only
	// holds values inside the stat window.
	stat bool
}

// bounds is the range of values the binding can hold and read back.
func (b binding) bounds() (int, int) {
	switch {
	case b.tier != "":
		return 1, MaxLevel
	case b.stat:
		return statMin, statMax
	case b.at.kind == locWord:
		return 0, 0xFFFF
	case b.at.kind == locBits:
		return b.at.bias, b.at.bias + int(b.at.mask()>>b.at.start)
	}
	return 0, 0xFF
}

func (b binding) write(buf []byte, v int) error {
	if lo, hi := b.bounds(); v < lo || v > hi {
		return fmt.Errorf("%w: %s %d outside [%d, %d]", ErrValueRange, b.field, v, lo, hi)
	}
	if b.tier != "" {
		return writeLevel(buf, b.tier, v)
	}
	return b.at.write(buf, v)
}

// plan is a layout resolved against one buffer. Decode reads values out of
// it and Encode uses it to locate and compare the same fields.
type plan struct {
	bindings  []binding
	levelTier string
	parts     partsPlan
}

func (p *plan) binding(f Field) (binding, bool) {
	for _, b := range p.bindings {
		if b.field == f {
			return b, true
		}
	}
	return binding{}, false
}

func (l *layout) resolve(buf []byte, raw RawFields, regions Regions) plan {
	var p plan

	for _, s := range l.slots {
		if len(buf) < s.minLen {
			continue
		}
		v, ok := s.at.read(buf)
		if !ok {
			continue
		}
		p.bindings = append(p.bindings, binding{field: s.field, at: s.at, value: v, readOnly: s.readOnly})
	}

	switch l.kind {
	case KindWeapon:
		l.resolveWeapon(buf, &p)
	case KindUnknown:
		for i, f := range []Field{FieldPrimaryStat, FieldSecondaryStat} {
			if i < len(raw.PotentialStats) {
				c := raw.PotentialStats[i]
				p.bindings = append(p.bindings, binding{field: f, at: atWord(c.Offset), value: c.Value, stat: true})
			}
		}
		p.dropInsideStats()
	}

	if l.kind != KindUnknown && regions.MaxRarity() {
		p.override(FieldRarity, int(RarityPearlescent))
	}

	if l.classOffset >= 0 && l.classOffset < len(buf) {
		p.parts = extractParts(buf, l.freeAfterClass(buf, p.bindings), l.defaultParts)
	}
	return p
}

func (l *layout) resolveWeapon(buf []byte, p *plan) {
	if len(buf) < 4 {
		return
	}
	if binary.BigEndian.Uint32(buf) == anomalyHeader {
		p.levelTier = "override"
		p.override(FieldLevel, MaxLevel)
		p.override(FieldRarity, int(RarityLegendary))
		// the primary stat bytes are half of the pinned header
		if b, ok := p.binding(FieldPrimaryStat); ok {
			p.override(FieldPrimaryStat, b.value)
		}
		return
	}
	if t, v, ok := readLevel(buf, len(buf)); ok {
		p.levelTier = t.name
		p.bindings = append(p.bindings, binding{field: FieldLevel, at: t.at, value: v, tier: t.name})
	}
}

// override replaces a field with a fixed, read-only value.
func (p *plan) override(f Field, v int) {
	p.bindings = slices.DeleteFunc(p.bindings, func(b binding) bool { return b.field == f })
	p.bindings = append(p.bindings, binding{field: f, value: v, readOnly: true})
}

// dropInsideStats removes byte fields that sit inside a potential stat word.
// Those bytes belong to the stat.
func (p *plan) dropInsideStats() {
	var inside []int
	for _, b := range p.bindings {
		if b.stat {
			inside = append(inside, b.at.span()...)
		}
	}
	p.bindings = slices.DeleteFunc(p.bindings, func(b binding) bool {
		return b.at.kind == locByte && !b.stat && slices.Contains(inside, b.at.offset)
	})
}

// freeAfterClass lists the offsets after the item class that no fixed field
// claims, in ascending order.
func (l *layout) freeAfterClass(buf []byte, bs []binding) []int {
	claimed := make(map[int]bool)
	for _, s := range l.slots {
		for _, i := range s.at.span() {
			claimed[i] = true
		}
	}
	for _, b := range bs {
		if b.at.kind == locBits || b.readOnly && b.at == (loc{}) {
			continue
		}
		for _, i := range b.at.span() {
			claimed[i] = true
		}
	}
	var free []int
	for i := l.classOffset + 1; i < len(buf); i++ {
		if !claimed[i] {
			free = append(free, i)
		}
	}
	return free
}

func (l *layout) confidence(buf []byte) Confidence {
	if l.kind == KindUnknown || len(buf) == 0 {
		return ConfidenceLow
	}
	if slices.Contains(l.goodLengths, len(buf)) &&
		l.signature.offset < len(buf) && buf[l.signature.offset] == l.signature.value {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}
