package serial

import (
	"fmt"
	"strings"
)

// Rarity is an item's rarity tier.
type Rarity int

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
	RarityPearlescent
)

var rarityLabels = []string{"Common", "Uncommon", "Rare", "Epic", "Legendary", "Pearlescent"}

func (r Rarity) String() string {
	if r >= 0 && int(r) < len(rarityLabels) {
		return rarityLabels[r]
	}
	return fmt.Sprintf("Unknown (%d)", int(r))
}

// ParseRarity maps a label such as "legendary" back to its tier.
func ParseRarity(label string) (Rarity, bool) {
	for i, l := range rarityLabels {
		if strings.EqualFold(l, label) {
			return Rarity(i), true
		}
	}
	return 0, false
}

var itemTypeLabels = map[string]string{
	"r": "Weapon (r)",
	"e": "Equipment (e)",
	"d": "Equipment (d)",
}

// ItemTypeLabel describes a decoded item type.
func ItemTypeLabel(itemType string) string {
	if l, ok := itemTypeLabels[itemType]; ok {
		return l
	}
	return fmt.Sprintf("Unknown (%s)", itemType)
}

// DisplayName is a short human label for a serial: the weapon family and
// level when known, the category otherwise.
func DisplayName(serial string) string {
	if !strings.HasPrefix(serial, serialMagic) {
		if serial == "" {
			return "None"
		}
		return serial
	}

	item := Decode(serial)
	if item.ItemType == ItemTypeError {
		return fmt.Sprintf("Item (%s...)", serial[:min(10, len(serial))])
	}

	var parts []string
	if item.WeaponName != "" {
		parts = append(parts, item.WeaponName)
	}
	if item.Stats.Level != nil && *item.Stats.Level != 0 {
		parts = append(parts, fmt.Sprintf("Lvl %d", *item.Stats.Level))
	}
	if len(parts) > 0 {
		return strings.Join(parts, " - ")
	}
	return fmt.Sprintf("%s (%s)", item.Category, item.ItemType)
}
