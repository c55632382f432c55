package serial

import "fmt"

const (
	partMin      = 1
	partMax      = 63
	maxPartCount = 12
	minPartRun   = 2
)

// Sources of a parts list, recorded in RawFields.PartsSource.
const (
	PartsStructured = "structured"
	PartsHeuristic  = "heuristic"
	PartsDefault    = "default"
)

// partsPlan is where the parts of one buffer live.
type partsPlan struct {
	source  string
	count   int // offset of the count byte, -1 if none
	offsets []int
	values  []int
}

func isPart(b byte) bool {
	return b >= partMin && b <= partMax
}

// extractParts reads parts from the free offsets following the item class.
// A count byte followed by that many part bytes wins, then the first run of
// part-like bytes, then a fixed number of free bytes.
func extractParts(buf []byte, free []int, fallback int) partsPlan {
	p := partsPlan{count: -1}
	if len(free) == 0 {
		return p
	}

	if c := int(buf[free[0]]); c >= 1 && c <= maxPartCount && c < len(free) {
		ok := true
		for _, off := range free[1 : 1+c] {
			if !isPart(buf[off]) {
				ok = false
				break
			}
		}
		if ok {
			p.source = PartsStructured
			p.count = free[0]
			p.offsets = free[1 : 1+c]
			return p.fill(buf)
		}
	}

	for i := 0; i < len(free); i++ {
		if !isPart(buf[free[i]]) {
			continue
		}
		j := i
		for j < len(free) && j-i < maxPartCount && isPart(buf[free[j]]) {
			j++
		}
		if j-i >= minPartRun {
			p.source = PartsHeuristic
			p.offsets = free[i:j]
			return p.fill(buf)
		}
		i = j
	}

	p.source = PartsDefault
	p.offsets = free[:min(fallback, len(free))]
	return p.fill(buf)
}

func (p partsPlan) fill(buf []byte) partsPlan {
	p.offsets = append([]int(nil), p.offsets...)
	p.values = make([]int, len(p.offsets))
	for i, off := range p.offsets {
		p.values[i] = int(buf[off])
	}
	return p
}

// write stores parts into successive free offsets starting at the first
// part offset, updating the count byte when there is one.
func (p partsPlan) write(buf []byte, free []int, parts []int) error {
	if len(p.offsets) == 0 {
		if len(parts) == 0 {
			return nil
		}
		return fmt.Errorf("%w: no part slots", ErrPartsOverflow)
	}

	start := 0
	for start < len(free) && free[start] != p.offsets[0] {
		start++
	}
	slots := free[start:]
	if len(parts) > len(slots) {
		return fmt.Errorf("%w: %d parts, %d slots", ErrPartsOverflow, len(parts), len(slots))
	}
	if p.count >= 0 && len(parts) > maxPartCount {
		return fmt.Errorf("%w: %d parts exceeds count limit", ErrPartsOverflow, len(parts))
	}

	for i, v := range parts {
		if v < 0 || v > 0xFF {
			return fmt.Errorf("%w: part %d", ErrValueRange, v)
		}
		buf[slots[i]] = byte(v)
	}
	if p.count >= 0 {
		buf[p.count] = byte(len(parts))
	}
	return nil
}
