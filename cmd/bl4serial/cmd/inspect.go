/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/bl4serial/pkg/savefile"
	"github.com/ssargent/bl4serial/pkg/serial"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <save.yaml>",
	Short: "List the items of a decrypted save document",
	Long: `Read a decrypted save document (YAML), find every item serial in the
backpack, equipped slots, bank and lost loot, and decode them.

--set edits the serial at a slot path (as listed in the JSON output) with
path=field=value. Without --write the edited document is printed instead
of the item list.

Examples:
  bl4serial inspect ./1.yaml
  bl4serial inspect -o json ./1.yaml
  bl4serial inspect ./1.yaml -w --set state.inventory.items.backpack.slot_0.serial=level=20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read save document: %w", err)
		}
		doc, err := savefile.Load(data)
		if err != nil {
			return err
		}

		edits, _ := cmd.Flags().GetStringArray("set")
		write, _ := cmd.Flags().GetBool("write")
		if len(edits) > 0 {
			if err := editSlots(cmd, doc, edits); err != nil {
				return err
			}
			out, err := doc.Bytes()
			if err != nil {
				return err
			}
			if !write {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], out, info.Mode().Perm()); err != nil {
				return fmt.Errorf("failed to write save document: %w", err)
			}
			container.Logger().Info("save document updated", "path", args[0], "edits", len(edits))
		}

		decoded, err := savefile.DecodeSlots(cmd.Context(), container.GetCodec(), doc.Slots(), appConfig.Codec.BatchWorkers)
		if err != nil {
			return err
		}
		container.Logger().Debug("save document inspected", "path", args[0], "slots", len(decoded))

		if format == outputJSON {
			return writeJSON(cmd.OutOrStdout(), decoded)
		}

		headers := append([]string{"Container", "Slot"}, itemColumns...)
		rows := make([][]string, len(decoded))
		for i, d := range decoded {
			rows[i] = append([]string{string(d.Container), strconv.Itoa(d.Index)}, itemRow(d.Item)...)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, 2, 5, 7, 8, 9, 10))
		fmt.Fprintf(cmd.OutOrStdout(), "%d items\n", len(decoded))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	addOutputFlag(inspectCmd)
	inspectCmd.Flags().StringArray("set", nil, "Edit a slot as path=field=value (repeatable)")
	inspectCmd.Flags().BoolP("write", "w", false, "Write edits back to the save document")
}

// editSlots applies path=field=value edits. Edits to the same path share
// one encode.
func editSlots(cmd *cobra.Command, doc *savefile.Document, edits []string) error {
	codec := container.GetCodec()
	slots := doc.Slots()
	items := make(map[string]*serial.Item)
	var paths []string

	for _, edit := range edits {
		path, fieldValue, ok := strings.Cut(edit, "=")
		if !ok || !strings.Contains(fieldValue, "=") {
			return fmt.Errorf("invalid edit %q, expected path=field=value", edit)
		}
		path = strings.TrimSpace(path)

		item, seen := items[path]
		if !seen {
			i := slices.IndexFunc(slots, func(s savefile.Slot) bool { return s.Path == path })
			if i < 0 {
				return fmt.Errorf("%w: %s", savefile.ErrSlotNotFound, path)
			}
			item = codec.Decode(slots[i].Serial)
			if !item.Editable() {
				return fmt.Errorf("cannot edit serial at %s: %s", path, item.RawFields.Error)
			}
			items[path] = item
			paths = append(paths, path)
		}
		if err := applyEditString(item, fieldValue); err != nil {
			return err
		}
	}

	for _, path := range paths {
		res, err := codec.Encode(items[path])
		if err != nil {
			return fmt.Errorf("encode rejected at %s: %w", path, err)
		}
		if res.Fallback {
			return fmt.Errorf("%w at %s: %s", ErrEncodeFallback, path, res.Reason)
		}
		warnSkipped(cmd, path, res.Skipped)
		if err := doc.SetSerial(path, res.Serial); err != nil {
			return err
		}
	}
	return nil
}
