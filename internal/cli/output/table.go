package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// PrintKeyValue prints alternating key/value arguments as aligned
// "key: value" rows, preserving argument order. A trailing key without
// a value prints with an empty value.
func PrintKeyValue(w io.Writer, kv ...string) error {
	pairs := make([][2]string, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		pair := [2]string{kv[i], ""}
		if i+1 < len(kv) {
			pair[1] = kv[i+1]
		}
		pairs = append(pairs, pair)
	}
	return SimpleTable(w, pairs)
}

// SimpleTable prints a simple key-value table.
func SimpleTable(w io.Writer, pairs [][2]string) error {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator(":")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, pair := range pairs {
		table.Append([]string{pair[0], pair[1]})
	}

	table.Render()
	return nil
}
