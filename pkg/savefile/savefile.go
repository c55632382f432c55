// Package savefile finds item serials inside a decrypted save document and
// replaces them in place. The document is kept as a YAML node tree so keys,
// tags and ordering the package does not touch survive a round trip.
package savefile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/bl4serial/pkg/serial"
)

var (
	// ErrSlotNotFound is returned by SetSerial for a path that does not
	// name a serial.
	ErrSlotNotFound = errors.New("savefile: slot not found")
	// ErrEmptyDocument is returned by Load for input without a document.
	ErrEmptyDocument = errors.New("savefile: empty document")
)

// Container names an item container in the save.
type Container string

const (
	Backpack Container = "backpack"
	Equipped Container = "equipped"
	Bank     Container = "bank"
	LostLoot Container = "lostloot"
)

var containerOrder = []Container{Backpack, Equipped, Bank, LostLoot}

// container paths, dotted, from the document root
var (
	backpackPath = []string{"state", "inventory", "items", "backpack"}
	equippedPath = []string{"state", "inventory", "equipped_inventory", "equipped"}
	bankPath     = []string{"domains", "local", "shared", "inventory", "items", "bank"}
	lostLootPath = []string{"state", "lostloot", "items"}
)

const (
	slotPrefix = "slot_"
	serialKey  = "serial"
)

// Slot is one item serial in the document. Path addresses the serial scalar
// and is what SetSerial takes.
type Slot struct {
	Container Container `json:"container"`
	Index     int       `json:"index"`
	Path      string    `json:"path"`
	Serial    string    `json:"serial"`
}

// Document is a parsed save document.
type Document struct {
	root *yaml.Node
}

// Load parses a decrypted save document.
func Load(data []byte) (*Document, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse save document: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ErrEmptyDocument
	}
	return &Document{root: &doc}, nil
}

// Bytes marshals the document back to YAML.
func (d *Document) Bytes() ([]byte, error) {
	out, err := yaml.Marshal(d.root)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal save document: %w", err)
	}
	return out, nil
}

// Slots lists every slot holding a serial, ordered by container and index.
func (d *Document) Slots() []Slot {
	var slots []Slot
	slots = append(slots, d.slotMap(Backpack, backpackPath, false)...)
	slots = append(slots, d.slotMap(Equipped, equippedPath, true)...)
	slots = append(slots, d.slotMap(Bank, bankPath, false)...)
	slots = append(slots, d.slotList(LostLoot, lostLootPath)...)

	slices.SortStableFunc(slots, func(a, b Slot) int {
		if c := slices.Index(containerOrder, a.Container) - slices.Index(containerOrder, b.Container); c != 0 {
			return c
		}
		return a.Index - b.Index
	})
	return slots
}

// slotMap reads "slot_N" keys of a mapping container. Equipped slots hold a
// list whose first entry carries the serial.
func (d *Document) slotMap(c Container, path []string, nested bool) []Slot {
	n := d.lookup(path)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}

	var slots []Slot
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		idx, err := strconv.Atoi(strings.TrimPrefix(key, slotPrefix))
		if !strings.HasPrefix(key, slotPrefix) || err != nil {
			continue
		}

		entry := n.Content[i+1]
		segs := append(slices.Clone(path), key)
		if nested {
			if entry.Kind != yaml.SequenceNode || len(entry.Content) == 0 {
				continue
			}
			entry = entry.Content[0]
			segs = append(segs, "0")
		}
		if s, ok := serialOf(entry); ok {
			slots = append(slots, Slot{Container: c, Index: idx, Path: strings.Join(append(segs, serialKey), "."), Serial: s})
		}
	}
	return slots
}

func (d *Document) slotList(c Container, path []string) []Slot {
	n := d.lookup(path)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}

	var slots []Slot
	for i, entry := range n.Content {
		if s, ok := serialOf(entry); ok {
			segs := append(slices.Clone(path), strconv.Itoa(i), serialKey)
			slots = append(slots, Slot{Container: c, Index: i, Path: strings.Join(segs, "."), Serial: s})
		}
	}
	return slots
}

func serialOf(n *yaml.Node) (string, bool) {
	v := child(n, serialKey)
	if v == nil || v.Kind != yaml.ScalarNode || v.Value == "" {
		return "", false
	}
	return v.Value, true
}

// SetSerial replaces the serial at path.
func (d *Document) SetSerial(path, value string) error {
	n := d.lookup(strings.Split(path, "."))
	if n == nil || n.Kind != yaml.ScalarNode || !strings.HasSuffix(path, "."+serialKey) {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, path)
	}
	n.Value = value
	n.Tag = "!!str"
	return nil
}

// lookup walks mapping keys and numeric sequence indexes from the root.
func (d *Document) lookup(path []string) *yaml.Node {
	n := d.root.Content[0]
	for _, seg := range path {
		n = child(n, seg)
		if n == nil {
			return nil
		}
	}
	return n
}

func child(n *yaml.Node, seg string) *yaml.Node {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == seg {
				return n.Content[i+1]
			}
		}
	case yaml.SequenceNode:
		i, err := strconv.Atoi(seg)
		if err == nil && i >= 0 && i < len(n.Content) {
			return n.Content[i]
		}
	case yaml.AliasNode:
		return child(n.Alias, seg)
	}
	return nil
}

// Decoder decodes one serial. *serial.Codec satisfies it.
type Decoder interface {
	Decode(serial string) *serial.Item
}

// DecodedSlot pairs a slot with its decoded item.
type DecodedSlot struct {
	Slot
	Item *serial.Item `json:"item"`
}

// DecodeSlots decodes every slot with at most workers goroutines. The result
// keeps the order of slots. It stops early when ctx is cancelled.
func DecodeSlots(ctx context.Context, codec Decoder, slots []Slot, workers int) ([]DecodedSlot, error) {
	if workers < 1 {
		workers = 1
	}

	out := make([]DecodedSlot, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, s := range slots {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = DecodedSlot{Slot: s, Item: codec.Decode(s.Serial)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	return out, nil
}
