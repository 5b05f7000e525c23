package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/deidaraiorek/xmlsql/internal/storage"
)

// printResult renders a result set as an aligned table followed by a row count.
func printResult(w io.Writer, result *storage.ResultSet) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(result.Columns, "\t"))

	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()

	if len(result.Rows) == 1 {
		fmt.Fprintln(w, "(1 row)")
	} else {
		fmt.Fprintf(w, "(%d rows)\n", len(result.Rows))
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDocuments(w io.Writer, docs []storage.Document) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "id\tname\troot_node_id\tcreated_at")
	for _, d := range docs {
		root := "NULL"
		if d.RootNodeID != nil {
			root = fmt.Sprint(*d.RootNodeID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.ID, d.Name, root, d.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("<blob %d bytes>", len(t))
	case string:
		return strings.ReplaceAll(strings.ReplaceAll(t, "\n", `\n`), "\t", `\t`)
	default:
		return fmt.Sprint(t)
	}
}
