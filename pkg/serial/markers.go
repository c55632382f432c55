package serial

import "strings"

// Marker substrings, scanned in this order.
var markerList = []string{"Fme!K", "}TYg", "}TYs", "RG}", "RG/", "/A", "/B", "/C", "/D", "/F"}

const (
	familyMarker      = "Fme!K"
	bundleLen         = 5
	maxRarityBundle   = "V0_S6"
	effectsTerminator = 's'
	nibbleLead        = '`'

	// ReservedPool only pairs with ReservedNibble.
	ReservedPool   = "/F"
	ReservedNibble = "5"
)

var (
	effectsMarkers = []string{"RG}", "RG/"}
	poolCodes      = []string{"/A", "/B", "/C", "/D", "/F"}
)

// Regions holds the marker-delimited parts of a payload.
type Regions struct {
	FamilyMarker        string        `json:"family_marker,omitempty"`
	RarityBundle        string        `json:"rarity_bundle,omitempty"`
	EffectsMarker       string        `json:"effects_marker,omitempty"`
	ManufacturerEffects string        `json:"manufacturer_effects,omitempty"`
	Pool                *PoolSelector `json:"pool,omitempty"`
	TailTriad           *TailTriad    `json:"tail_triad,omitempty"`
}

// PoolSelector is a pool code and the length nibble written after it.
// Nibble is the one editable part; Offset is the payload index of Code.
type PoolSelector struct {
	Code   string `json:"code"`
	Offset int    `json:"offset"`
	Nibble string `json:"nibble,omitempty"`
}

// NibbleOffset is the payload index of the length nibble.
func (p *PoolSelector) NibbleOffset() int {
	return p.Offset + len(p.Code) + 1
}

// TailTriad is the three character flag block near the end of a weapon
// payload.
type TailTriad struct {
	Offset int    `json:"offset"`
	Text   string `json:"text"`
}

// MaxRarity reports whether the rarity bundle signals the top rarity tier.
func (r Regions) MaxRarity() bool {
	return r.RarityBundle == maxRarityBundle
}

func (r Regions) equal(o Regions) bool {
	if r.FamilyMarker != o.FamilyMarker || r.RarityBundle != o.RarityBundle ||
		r.EffectsMarker != o.EffectsMarker || r.ManufacturerEffects != o.ManufacturerEffects {
		return false
	}
	if (r.Pool == nil) != (o.Pool == nil) || r.Pool != nil && *r.Pool != *o.Pool {
		return false
	}
	return (r.TailTriad == nil) == (o.TailTriad == nil) && (r.TailTriad == nil || *r.TailTriad == *o.TailTriad)
}

// scanMarkers records the first index of each marker found in payload.
func scanMarkers(payload string) map[string]int {
	found := make(map[string]int)
	for _, m := range markerList {
		if i := strings.Index(payload, m); i >= 0 {
			found[m] = i
		}
	}
	return found
}

func scanRegions(payload string, markers map[string]int, withTriad bool) Regions {
	var r Regions

	if i, ok := markers[familyMarker]; ok {
		r.FamilyMarker = familyMarker
		start := i + len(familyMarker)
		if len(payload) >= start+bundleLen {
			r.RarityBundle = payload[start : start+bundleLen]
		}
	}

	for _, m := range effectsMarkers {
		i, ok := markers[m]
		if !ok {
			continue
		}
		block := payload[i+len(m):]
		if end := strings.IndexByte(block, effectsTerminator); end >= 0 {
			block = block[:end]
		}
		r.EffectsMarker = m
		r.ManufacturerEffects = block
		break
	}

	for _, code := range poolCodes {
		i, ok := markers[code]
		if !ok {
			continue
		}
		p := &PoolSelector{Code: code, Offset: i}
		if n := p.NibbleOffset(); n < len(payload) && payload[n-1] == nibbleLead {
			p.Nibble = payload[n : n+1]
		}
		r.Pool = p
		break
	}

	if withTriad {
		r.TailTriad = tailTriad(payload)
	}
	return r
}

// tailTriad treats a trailing 00 as padding after the flags.
func tailTriad(payload string) *TailTriad {
	n := len(payload)
	switch {
	case strings.HasSuffix(payload, "00") && n >= 5:
		return &TailTriad{Offset: n - 5, Text: payload[n-5 : n-2]}
	case n >= 3:
		return &TailTriad{Offset: n - 3, Text: payload[n-3:]}
	}
	return nil
}
