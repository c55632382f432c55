package serial

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
)

// MaxLevel is the level cap.
const MaxLevel = 50

// anomalyHeader is the header word of the Jakobs Ordnance family, whose
// level and rarity bits do not follow the tier layout.
const anomalyHeader = 0xDCBE42A7

type levelTier struct {
	name   string
	minLen int
	at     loc
}

// levelTiers are tried length-selected first, then in this order. Every
// tier is six bits wide with a bias that lets it hold levels 1 to 50.
var levelTiers = []levelTier{
	{name: "very_long", minLen: 30, at: atBits(6, 12, -4)},
	{name: "long", minLen: 26, at: atBits(5, 11, 1)},
	{name: "medium", minLen: 22, at: atBits(1, 7, -3)},
	{name: "short", minLen: 0, at: atBits(3, 9, -2)},
}

func tiersFor(n int) []levelTier {
	for i, t := range levelTiers {
		if n >= t.minLen {
			out := make([]levelTier, 0, len(levelTiers))
			out = append(out, t)
			out = append(out, levelTiers[:i]...)
			return append(out, levelTiers[i+1:]...)
		}
	}
	return levelTiers
}

// readLevel walks the tier chain for a buffer of n bytes whose header is
// buf[:4]. The first tier reading a level in [1, MaxLevel] wins.
func readLevel(buf []byte, n int) (levelTier, int, bool) {
	for _, t := range tiersFor(n) {
		if v, _ := t.at.read(buf); v >= 1 && v <= MaxLevel {
			return t, v, true
		}
	}
	return levelTier{}, 0, false
}

// writeLevel stores v in the header so that readLevel finds it again. The
// tier that held the old level is kept while the tiers ahead of it in the
// chain still read out of range; otherwise the length-selected tier, which
// is always read first, takes the value.
func writeLevel(buf []byte, from string, v int) error {
	if len(buf) < 4 {
		return fmt.Errorf("%w: buffer too short", ErrValueRange)
	}
	chain := tiersFor(len(buf))
	candidates := []levelTier{chain[0]}
	if i := slices.IndexFunc(chain, func(t levelTier) bool { return t.name == from }); i > 0 {
		candidates = []levelTier{chain[i], chain[0]}
	}

	for _, t := range candidates {
		header := slices.Clone(buf[:4])
		if err := t.at.write(header, v); err != nil {
			continue
		}
		if binary.BigEndian.Uint32(header) == anomalyHeader {
			continue
		}
		if got, gv, ok := readLevel(header, len(buf)); ok && got.name == t.name && gv == v {
			copy(buf, header)
			return nil
		}
	}
	return fmt.Errorf("%w: level %d has no tier in a %d byte header", ErrValueRange, v, len(buf))
}

// family is a known weapon family keyed by the leading payload characters.
type family struct {
	code string
	name string
}

var families = func() []family {
	fs := []family{
		{"d_t@", "Jakobs Shotgun"},
		{"bV{r", "Jakobs Pistol"},
		{"y3L+2}", "Jakobs Sniper"},
		{"eU_{", "Maliwan Shotgun"},
		{"w$Yw2}", "Maliwan SMG"},
		{"velk2}", "Vladof AR"},
		{"xFw!2}", "Vladof SMG"},
		{"xp/&2}", "Ripper Sniper"},
		{"ct)%", "Torgue Pistol"},
		{"fs(8", "Daedalus AR"},
		{"b)Kv", "Order Pistol"},
		{"y>^2}", "Order Sniper"},
		{"r$WBm", "Jakobs Ordnance"},
	}
	slices.SortStableFunc(fs, func(a, b family) int { return len(b.code) - len(a.code) })
	return fs
}()

// weaponFamilyPrefix marks serials whose payload begins with a family code.
const weaponFamilyPrefix = "@Ug"

// WeaponName returns the family name of a weapon serial, or "" when the
// family is not known.
func WeaponName(serial string) string {
	payload, ok := strings.CutPrefix(serial, weaponFamilyPrefix)
	if !ok {
		return ""
	}
	for _, f := range families {
		if strings.HasPrefix(payload, f.code) {
			return f.name
		}
	}
	return ""
}
