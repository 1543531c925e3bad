package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/minglechen/dynamorio/topk"
)

// printTopKTable renders entries as a human-readable table. This is
// non-contractual sugar on top of a report's wire format (print_stats, the
// CSV output): it exists only for a terminal reader, and its column
// layout carries no guarantee the way those formats do.
func printTopKTable(w io.Writer, title string, entries []topk.Entry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{title, "count"})
	for _, e := range entries {
		if e.Count == 0 && e.Addr == 0 {
			continue
		}
		table.Append([]string{fmt.Sprintf("0x%x", e.Addr), strconv.FormatUint(e.Count, 10)})
	}
	table.Render()
}
