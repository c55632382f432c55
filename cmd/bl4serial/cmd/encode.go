/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/bl4serial/pkg/serial"
)

// ErrEncodeFallback is returned when the codec kept the original serial
var ErrEncodeFallback = errors.New("encode fell back to the original serial")

// editFields maps --set keys to stat fields
var editFields = map[string]serial.Field{
	"primary":      serial.FieldPrimaryStat,
	"secondary":    serial.FieldSecondaryStat,
	"level":        serial.FieldLevel,
	"rarity":       serial.FieldRarity,
	"manufacturer": serial.FieldManufacturer,
	"class":        serial.FieldItemClass,
}

// encodeCmd represents the encode command
var encodeCmd = &cobra.Command{
	Use:   "encode <serial>",
	Short: "Edit an item serial",
	Long: `Decode a serial, apply edits and print the re-encoded serial.

Editable keys: primary, secondary, level, rarity, manufacturer, class,
parts (comma separated), flags (three serial characters) and nibble
(pool length nibble).

Examples:
  bl4serial encode '@Ugr...' --set level=20
  bl4serial encode '@Ugr...' --set primary=1200 --set parts=3,4,5,6`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		edits, _ := cmd.Flags().GetStringArray("set")
		if len(edits) == 0 {
			return errors.New("at least one --set field=value is required")
		}

		codec := container.GetCodec()
		item := codec.Decode(args[0])
		if !item.Editable() {
			return fmt.Errorf("cannot edit serial: %s", item.RawFields.Error)
		}

		for _, edit := range edits {
			if err := applyEditString(item, edit); err != nil {
				return err
			}
		}

		res, err := codec.Encode(item)
		if err != nil {
			return fmt.Errorf("encode rejected: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), res.Serial)
		warnSkipped(cmd, "", res.Skipped)
		if res.Fallback {
			return fmt.Errorf("%w: %s", ErrEncodeFallback, res.Reason)
		}
		if !res.Changed {
			cmd.PrintErrln("serial unchanged")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().StringArray("set", nil, "Edit as field=value (repeatable)")
}

func warnSkipped(cmd *cobra.Command, where string, skipped []serial.Field) {
	if where != "" {
		where = " at " + where
	}
	for _, f := range skipped {
		cmd.PrintErrf("warning: %s is not writable for this item%s and was left unchanged\n", f, where)
	}
}

// applyEditString applies one "field=value" edit
func applyEditString(item *serial.Item, edit string) error {
	key, value, ok := strings.Cut(edit, "=")
	if !ok {
		return fmt.Errorf("invalid edit %q, expected field=value", edit)
	}
	return applyEdit(item, strings.TrimSpace(key), strings.TrimSpace(value))
}

// applyEdit sets one editable property of item from its string form
func applyEdit(item *serial.Item, key, value string) error {
	if f, ok := editFields[key]; ok {
		v, err := parseFieldValue(f, value)
		if err != nil {
			return err
		}
		item.Stats.Set(f, v)
		return nil
	}

	switch key {
	case "parts":
		var parts []int
		for _, p := range strings.Split(value, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return fmt.Errorf("invalid part %q: %w", p, err)
			}
			parts = append(parts, n)
		}
		item.Stats.Parts = parts
	case "flags":
		if serial.KindOfItemType(item.ItemType) != serial.KindWeapon {
			return fmt.Errorf("flags only apply to weapons, not item type %q", item.ItemType)
		}
		if len(value) != 3 {
			return fmt.Errorf("flags must be three characters, got %q", value)
		}
		item.Stats.Flags = []int{int(value[0]), int(value[1]), int(value[2])}
	case "nibble":
		if item.Regions.Pool == nil {
			return errors.New("serial has no pool selector to hold a nibble")
		}
		item.Regions.Pool.Nibble = value
	default:
		return fmt.Errorf("unknown field %q", key)
	}
	return nil
}

func parseFieldValue(f serial.Field, value string) (int, error) {
	if f == serial.FieldRarity {
		if r, ok := serial.ParseRarity(value); ok {
			return int(r), nil
		}
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for %s: %w", value, f, err)
	}
	return v, nil
}
