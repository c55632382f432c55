/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ssargent/bl4serial/pkg/serial"
)

const (
	outputAuto  = "auto"
	outputTable = "table"
	outputJSON  = "json"
)

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", outputAuto, "Output format: auto, table or json (auto picks table on a terminal)")
}

// outputFormat resolves the --output flag. Auto writes a table to a
// terminal and JSON everywhere else.
func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	switch strings.ToLower(format) {
	case outputTable:
		return outputTable, nil
	case outputJSON:
		return outputJSON, nil
	case outputAuto, "":
		if isTerminal(cmd.OutOrStdout()) {
			return outputTable, nil
		}
		return outputJSON, nil
	}
	return "", fmt.Errorf("unsupported output format %q", format)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, col := range rightAligned {
		configs = append(configs, table.ColumnConfig{
			Number:      col,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// itemColumns are the table columns shared by decode and inspect
var itemColumns = []string{"Type", "Name", "Level", "Rarity", "Primary", "Secondary", "Mfr", "Class", "Parts", "Confidence"}

func itemRow(item *serial.Item) []string {
	s := item.Stats
	rarity := "-"
	if s.Rarity != nil {
		rarity = serial.Rarity(*s.Rarity).String()
	}
	parts := make([]string, len(s.Parts))
	for i, p := range s.Parts {
		parts[i] = strconv.Itoa(p)
	}
	return []string{
		serial.ItemTypeLabel(item.ItemType),
		serial.DisplayName(item.Serial),
		formatInt(s.Level),
		rarity,
		formatInt(s.PrimaryStat),
		formatInt(s.SecondaryStat),
		formatInt(s.Manufacturer),
		formatInt(s.ItemClass),
		strings.Join(parts, ","),
		string(item.Confidence),
	}
}

func formatInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
