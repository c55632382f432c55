/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ssargent/bl4serial/pkg/serial"
)

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode <serial>...",
	Short: "Decode one or more item serials",
	Long: `Decode item serials and print their stats. A terminal gets a table;
pipes and redirects get JSON with every decoded field.

Examples:
  bl4serial decode '@Ugr$Q9m/$Qa!a%H` + "`" + `NgZl^aX^(?UrYc'
  bl4serial decode -o json '@Ugr...' '@Ude...'
  bl4serial decode --raw '@Ugr...'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		codec := container.GetCodec()
		items := make([]*serial.Item, len(args))
		for i, s := range args {
			items[i] = codec.Decode(s)
		}

		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			return writeRawFields(cmd, format, items)
		}

		if format == outputJSON {
			return writeJSON(cmd.OutOrStdout(), items)
		}

		headers := append([]string{"Serial"}, itemColumns...)
		rows := make([][]string, len(items))
		for i, item := range items {
			rows[i] = append([]string{truncateSerial(item.Serial)}, itemRow(item)...)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, 4, 6, 7, 8, 9))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	addOutputFlag(decodeCmd)
	decodeCmd.Flags().Bool("raw", false, "Print the raw header, word and byte fields instead of stats")
}

type rawField struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

type rawItem struct {
	Serial string     `json:"serial"`
	Error  string     `json:"error,omitempty"`
	Fields []rawField `json:"fields"`
}

func writeRawFields(cmd *cobra.Command, format string, items []*serial.Item) error {
	out := make([]rawItem, len(items))
	for i, item := range items {
		out[i] = rawItem{Serial: item.Serial, Error: item.RawFields.Error, Fields: []rawField{}}
		for _, k := range item.RawFields.Keys() {
			if v, ok := item.RawFields.Lookup(k); ok {
				out[i].Fields = append(out[i].Fields, rawField{Key: k, Value: v})
			}
		}
	}

	if format == outputJSON {
		return writeJSON(cmd.OutOrStdout(), out)
	}

	var rows [][]string
	for _, it := range out {
		for _, f := range it.Fields {
			rows = append(rows, []string{truncateSerial(it.Serial), f.Key, strconv.FormatInt(f.Value, 10)})
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Serial", "Field", "Value"}, rows, 3))
	return nil
}

func truncateSerial(s string) string {
	const limit = 24
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
