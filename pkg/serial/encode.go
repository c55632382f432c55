package serial

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// EncodeResult is the outcome of an encode. Fallback is set when the codec
// gave up and returned the original serial; Changed is set when Serial
// differs from the item's original serial.
type EncodeResult struct {
	Serial   string  `json:"serial"`
	Changed  bool    `json:"changed"`
	Fallback bool    `json:"fallback"`
	Reason   string  `json:"reason,omitempty"`
	Skipped  []Field `json:"skipped,omitempty"`
}

// errNotEditable marks sentinel and nil items handed to Encode.
var errNotEditable = errors.New("serial: item is not editable")

// Encode writes the item's stats back into its serial. Only stats that
// differ from what the serial holds are written, and only the digit groups
// covering changed bytes are rewritten.
//
// The returned error is non-nil only for pool / nibble violations
// (ErrPoolNibbleMismatch, ErrInvalidNibble). Every other failure is logged
// and reported as a fallback carrying the original serial.
func (c *Codec) Encode(item *Item) (res *EncodeResult, err error) {
	if !item.Editable() {
		orig := ""
		if item != nil {
			orig = item.Serial
		}
		return c.fallback(orig, errNotEditable), nil
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = c.fallback(item.Serial, fmt.Errorf("encode panic: %v", r)), nil
		}
	}()

	res, err = c.encode(item)
	if err != nil {
		if errors.Is(err, ErrPoolNibbleMismatch) || errors.Is(err, ErrInvalidNibble) {
			c.log.Warn("serial encode rejected", "serial", item.Serial, "error", err)
			return nil, err
		}
		return c.fallback(item.Serial, err), nil
	}
	return res, nil
}

func (c *Codec) fallback(serial string, err error) *EncodeResult {
	c.log.Warn("serial encode fell back to original", "serial", serial, "reason", err)
	return &EncodeResult{Serial: serial, Fallback: true, Reason: err.Error()}
}

func (c *Codec) encode(item *Item) (*EncodeResult, error) {
	prefix, typeChar, payload, err := splitSerial(item.Serial)
	if err != nil {
		return nil, err
	}
	if item.Prefix != "" && item.Prefix != prefix || item.Payload != "" && item.Payload != payload {
		return nil, fmt.Errorf("%w: prefix or payload", ErrInconsistentItem)
	}

	kind, _ := kindOf(typeChar)
	orig := DecodeDigits(payload)
	if item.Binary != nil && !bytes.Equal(item.Binary, orig) {
		return nil, fmt.Errorf("%w: binary", ErrInconsistentItem)
	}

	regions := scanRegions(payload, scanMarkers(payload), kind == KindWeapon)

	patched, err := patchPool(payload, regions.Pool, item.Regions.Pool)
	if err != nil {
		return nil, err
	}
	if kind == KindWeapon {
		if patched, err = patchTriad(patched, regions.TailTriad, item.Stats.Flags); err != nil {
			return nil, err
		}
	}

	base := DecodeDigits(patched)
	if len(base) != len(orig) {
		return nil, fmt.Errorf("%w: patched payload changed length", ErrInconsistentItem)
	}

	l := layoutFor(kind)
	origPlan := l.resolve(orig, Extract(orig), regions)

	chk := newEditCheck(l, patched, base, kind == KindWeapon)
	cur, err := chk.read(base)
	if err != nil {
		return nil, err
	}

	after := slices.Clone(base)
	var skipped []Field
	for _, f := range Fields {
		want := item.Stats.Get(f)
		if want == nil {
			continue
		}
		b, ok := origPlan.binding(f)
		if !ok {
			skipped = append(skipped, f)
			continue
		}
		if *want == b.value {
			continue
		}
		if b.readOnly || kind == KindWeapon && (f == FieldRarity || f == FieldManufacturer) {
			skipped = append(skipped, f)
			continue
		}

		trial := slices.Clone(after)
		if err := b.write(trial, *want); err != nil {
			return nil, fmt.Errorf("write %s: %w", f, err)
		}
		next, err := chk.read(trial)
		if err == nil {
			err = next.sameAs(cur, f, *want)
		}
		if errors.Is(err, ErrMarkerCollision) {
			c.log.Debug("serial field left unchanged", "field", f, "reason", err)
			skipped = append(skipped, f)
			continue
		}
		if err != nil {
			return nil, err
		}
		after, cur = trial, next
	}

	if item.Stats.Parts != nil && !slices.Equal(item.Stats.Parts, origPlan.parts.values) {
		free := l.freeAfterClass(orig, origPlan.bindings)
		if err := origPlan.parts.write(after, free, item.Stats.Parts); err != nil {
			return nil, err
		}
		if _, err := chk.read(after); err != nil {
			return nil, fmt.Errorf("write parts: %w", err)
		}
	}

	res := &EncodeResult{Serial: item.Serial, Skipped: skipped}
	if patched == payload && bytes.Equal(after, orig) {
		return res, nil
	}
	res.Serial = prefix + patchGroups(patched, base, after)
	res.Changed = res.Serial != item.Serial
	return res, nil
}

// patchPool rewrites the length nibble after the pool code when the item's
// nibble differs from the serial's.
func patchPool(payload string, have, want *PoolSelector) (string, error) {
	if want == nil {
		return payload, nil
	}
	if have == nil || have.Code != want.Code || have.Offset != want.Offset {
		return "", fmt.Errorf("%w: pool selector", ErrInconsistentItem)
	}
	if want.Nibble == have.Nibble {
		return payload, nil
	}
	if want.Code == ReservedPool && want.Nibble != ReservedNibble {
		return "", fmt.Errorf("%w: got %q", ErrPoolNibbleMismatch, want.Nibble)
	}
	if len(want.Nibble) != 1 || !IsDigit(want.Nibble[0]) || have.Nibble == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidNibble, want.Nibble)
	}

	n := have.NibbleOffset()
	out := []byte(payload)
	out[n] = want.Nibble[0]
	return string(out), nil
}

// patchTriad rewrites the tail triad from flag character codes.
func patchTriad(payload string, have *TailTriad, flags []int) (string, error) {
	if flags == nil {
		return payload, nil
	}
	if have == nil {
		return "", fmt.Errorf("%w: no tail triad", ErrInvalidFlags)
	}
	if len(flags) != len(have.Text) {
		return "", fmt.Errorf("%w: got %d flags", ErrInvalidFlags, len(flags))
	}

	if slices.Equal(flags, triadFlags(have.Text)) {
		return payload, nil
	}

	text := make([]byte, len(flags))
	for i, f := range flags {
		if f < 0 || f > 0xFF || !IsDigit(byte(f)) {
			return "", fmt.Errorf("%w: flag %d", ErrInvalidFlags, f)
		}
		text[i] = byte(f)
	}
	return payload[:have.Offset] + string(text) + payload[have.Offset+len(text):], nil
}

// editCheck re-reads a candidate buffer the way Decode reads the serial it
// turns into. Candidates whose rewritten digits change marker text are
// refused with ErrMarkerCollision.
type editCheck struct {
	l         *layout
	patched   string
	base      []byte
	withTriad bool
	markers   map[string]int
	regions   Regions
}

func newEditCheck(l *layout, patched string, base []byte, withTriad bool) *editCheck {
	markers := scanMarkers(patched)
	return &editCheck{
		l:         l,
		patched:   patched,
		base:      base,
		withTriad: withTriad,
		markers:   markers,
		regions:   scanRegions(patched, markers, withTriad),
	}
}

func (e *editCheck) read(buf []byte) (plan, error) {
	payload := patchGroups(e.patched, e.base, buf)
	markers := scanMarkers(payload)
	regions := scanRegions(payload, markers, e.withTriad)
	if !maps.Equal(markers, e.markers) || !regions.equal(e.regions) {
		return plan{}, ErrMarkerCollision
	}
	return e.l.resolve(buf, Extract(buf), regions), nil
}

// sameAs checks that p holds v for the edited field and reads every other
// field and the parts as prev does.
func (p plan) sameAs(prev plan, edited Field, v int) error {
	for _, f := range Fields {
		got, ok := p.binding(f)
		if f == edited {
			if !ok || got.value != v {
				return fmt.Errorf("%w: %s does not read back", ErrValueRange, f)
			}
			continue
		}
		was, had := prev.binding(f)
		if ok != had || got.value != was.value {
			return fmt.Errorf("%w: editing %s disturbs %s", ErrValueRange, edited, f)
		}
	}
	if !slices.Equal(p.parts.values, prev.parts.values) {
		return fmt.Errorf("%w: editing %s disturbs parts", ErrValueRange, edited)
	}
	return nil
}
