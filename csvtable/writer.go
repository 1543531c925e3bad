package csvtable

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
)

// InstrCountRow is one row of the instruction-count CSV output.
type InstrCountRow struct {
	Addr  uint64
	Count uint64
}

// WriteInstrCountsCSV writes the header row `addr,count,path,line,symbol`
// followed by one row per entry in rows, symbolized via table when
// available. Unsymbolized addresses get the literal fallback
// "unknown,0,unknown" for the final three fields. Rows are written in
// ascending address order for reproducible output.
func WriteInstrCountsCSV(w io.Writer, rows []InstrCountRow, table *Addr2LineTable) error {
	sorted := make([]InstrCountRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Addr < sorted[j].Addr })

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"addr", "count", "path", "line", "symbol"}); err != nil {
		return err
	}
	for _, row := range sorted {
		addrField := strconv.FormatUint(row.Addr, 10)
		countField := strconv.FormatUint(row.Count, 10)
		path, line, symbol := "unknown", "0", "unknown"
		if table != nil {
			if info, ok := table.Lookup(row.Addr); ok {
				path = info.Path
				line = strconv.Itoa(info.Line)
				symbol = info.Symbol
			}
		}
		if err := cw.Write([]string{addrField, countField, path, line, symbol}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
