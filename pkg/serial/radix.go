package serial

import (
	"encoding/binary"
	"strings"
)

// Alphabet is the digit set used by serial payloads. A digit's value is its
// index in the string.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz!#$%&()*+-;<=>?@^_`{/}~"

const (
	c4 = 0x31C84B1 // 85^4
	c3 = 0x95EED   // 85^3
	c2 = 0x1C39    // 85^2
	c1 = 0x55      // 85

	groupDigits = 5
	groupBytes  = 4
	padDigit    = byte(len(Alphabet) - 1)
)

var radix = [groupDigits]uint64{c4, c3, c2, c1, 1}

var digitValues = func() [256]int16 {
	var t [256]int16
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		t[Alphabet[i]] = int16(i)
	}
	return t
}()

// IsDigit reports whether c belongs to the serial alphabet.
func IsDigit(c byte) bool {
	return digitValues[c] >= 0
}

// Positions returns the payload index of every alphabet character, in order.
// Digit i of the payload lives at payload[Positions(payload)[i]].
func Positions(payload string) []int {
	pos := make([]int, 0, len(payload))
	for i := 0; i < len(payload); i++ {
		if IsDigit(payload[i]) {
			pos = append(pos, i)
		}
	}
	return pos
}

func digitsOf(payload string) []byte {
	ds := make([]byte, 0, len(payload))
	for i := 0; i < len(payload); i++ {
		if v := digitValues[payload[i]]; v >= 0 {
			ds = append(ds, byte(v))
		}
	}
	return ds
}

// DecodeDigits converts a payload into its raw bytes. Characters outside the
// alphabet are skipped.
func DecodeDigits(payload string) []byte {
	ds := digitsOf(payload)
	full := len(ds) - len(ds)%groupDigits

	out := make([]byte, 0, full/groupDigits*groupBytes+groupBytes)
	for i := 0; i < full; i += groupDigits {
		out = binary.LittleEndian.AppendUint32(out, groupValue(ds[i:i+groupDigits]))
	}

	if rest := ds[full:]; len(rest) > 0 {
		g := [groupDigits]byte{padDigit, padDigit, padDigit, padDigit, padDigit}
		copy(g[:], rest)
		var b [groupBytes]byte
		binary.LittleEndian.PutUint32(b[:], groupValue(g[:]))
		out = append(out, b[:len(rest)-1]...)
	}
	return out
}

// groupValue is the weighted digit sum truncated to 32 bits.
func groupValue(g []byte) uint32 {
	var v uint64
	for i, d := range g {
		v += uint64(d) * radix[i]
	}
	return uint32(v)
}

// EncodeDigits converts raw bytes into a payload. Every four bytes become
// five digits; a trailing k bytes become k+1 digits. DecodeDigits inverts it
// exactly.
func EncodeDigits(b []byte) string {
	var sb strings.Builder
	sb.Grow((len(b)/groupBytes + 1) * groupDigits)

	full := len(b) - len(b)%groupBytes
	for i := 0; i < full; i += groupBytes {
		sb.Write(encodeGroup(b[i : i+groupBytes]))
	}
	if rest := b[full:]; len(rest) > 0 {
		sb.Write(encodeTail(rest))
	}
	return sb.String()
}

func encodeGroup(b []byte) []byte {
	return spell(uint64(binary.LittleEndian.Uint32(b)), groupDigits)
}

// encodeTail picks the k+1 leading digits whose max-digit padding decodes
// back to the k given bytes. With m = 4-k the padded value is
// 85^m*(Y+1) - 1, so Y+1 = (want+1) / 85^m modulo 2^(8k).
func encodeTail(b []byte) []byte {
	k := len(b)
	var want uint32
	for i := k - 1; i >= 0; i-- {
		want = want<<8 | uint32(b[i])
	}
	mask := uint32(1)<<(8*uint(k)) - 1
	scale := uint32(radix[k])
	y := ((want+1)*inverseOdd(scale) - 1) & mask
	return spell(uint64(y), k+1)
}

// spell writes v as n digits, most significant first, dividing by the
// trailing n radix weights.
func spell(v uint64, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		w := radix[groupDigits-n+i]
		out[i] = Alphabet[v/w]
		v %= w
	}
	return out
}

// inverseOdd returns the multiplicative inverse of an odd a modulo 2^32.
func inverseOdd(a uint32) uint32 {
	x := a // correct to 3 bits for any odd a
	for i := 0; i < 4; i++ {
		x *= 2 - a*x
	}
	return x
}

// patchGroups rewrites the digit groups of payload whose bytes differ
// between before and after. Unchanged groups keep their original characters.
func patchGroups(payload string, before, after []byte) string {
	pos := Positions(payload)
	out := []byte(payload)

	groups := (len(before) + groupBytes - 1) / groupBytes
	for g := 0; g < groups; g++ {
		lo := g * groupBytes
		hi := min(lo+groupBytes, len(before))
		if string(before[lo:hi]) == string(after[lo:hi]) {
			continue
		}
		var digits []byte
		if hi-lo == groupBytes {
			digits = encodeGroup(after[lo:hi])
		} else {
			digits = encodeTail(after[lo:hi])
		}
		for i, d := range digits {
			out[pos[g*groupDigits+i]] = d
		}
	}
	return string(out)
}
