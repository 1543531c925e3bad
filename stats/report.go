package stats

import (
	"bufio"
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/minglechen/dynamorio/topk"
)

var localePrinter = message.NewPrinter(language.English)

func formatCount(n uint64) string {
	return localePrinter.Sprintf("%v", number.Decimal(n))
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}

func formatLine(w io.Writer, prefix, label string, labelWidth int, value string, valueWidth int) {
	fmt.Fprintf(w, "%s%-*s%*s\n", prefix, labelWidth, label, valueWidth, value)
}

// PrintStats renders the full report to w: warmup snapshot (if enabled),
// counts and invalidations, miss rate, child hits and total miss rate (if
// there are child hits), miss histogram (if enabled), and working-set
// history (if enabled), in that order. Division
// is skipped wherever the denominator is zero.
func (e *Engine) PrintStats(w io.Writer, prefix string, instrCount uint64) error {
	bw := bufio.NewWriter(w)

	if e.warmupEnabled {
		formatLine(bw, prefix, "Warmup hits:", 18, formatCount(e.counters.HitsAtReset), 20)
		formatLine(bw, prefix, "Warmup misses:", 18, formatCount(e.counters.MissesAtReset), 20)
	}

	e.printCounts(bw, prefix)
	e.printRates(bw, prefix)
	e.printChildStats(bw, prefix)

	if e.recordInstrAccessMisses {
		e.printMissHist(bw, prefix)
	}
	if e.workingSet != nil {
		e.printWorkingSet(bw, prefix, instrCount)
	}

	return bw.Flush()
}

func (e *Engine) printCounts(w io.Writer, prefix string) {
	formatLine(w, prefix, "Hits:", 18, formatCount(e.counters.Hits), 20)
	formatLine(w, prefix, "Misses:", 18, formatCount(e.counters.Misses), 20)
	formatLine(w, prefix, "Compulsory misses:", 18, formatCount(e.counters.CompulsoryMisses), 20)

	if e.coherent {
		formatLine(w, prefix, "Parent invalidations:", 21, formatCount(e.counters.InclusiveInvalidates), 17)
		formatLine(w, prefix, "Write invalidations:", 20, formatCount(e.counters.CoherenceInvalidates), 18)
	} else {
		formatLine(w, prefix, "Invalidations:", 18, formatCount(e.counters.InclusiveInvalidates), 20)
	}
}

func (e *Engine) printRates(w io.Writer, prefix string) {
	total := e.counters.Hits + e.counters.Misses
	if total == 0 {
		return
	}
	label := "Miss rate:"
	if e.counters.ChildHits != 0 {
		label = "Local miss rate:"
	}
	rate := float64(e.counters.Misses) * 100 / float64(total)
	formatLine(w, prefix, label, 18, formatPercent(rate), 20)
}

func (e *Engine) printChildStats(w io.Writer, prefix string) {
	if e.counters.ChildHits == 0 {
		return
	}
	formatLine(w, prefix, "Child hits:", 18, formatCount(e.counters.ChildHits), 20)

	denom := e.counters.Hits + e.counters.ChildHits + e.counters.Misses
	if denom == 0 {
		return
	}
	rate := float64(e.counters.Misses) * 100 / float64(denom)
	formatLine(w, prefix, "Total miss rate:", 18, formatPercent(rate), 20)
}

func (e *Engine) printMissHist(w io.Writer, prefix string) {
	symbolize := e.ensureAddr2Line()

	fmt.Fprintf(w, "%sTop data instr misses:\n", prefix)
	for _, entry := range topk.Top(e.instrAccessHist, e.topK) {
		formatLine(w, prefix+"  ", fmt.Sprintf("0x%x", entry.Addr), 16, fmt.Sprintf("%d", entry.Count), 18)
		if symbolize {
			if info, ok := e.addr2Line.Lookup(entry.Addr); ok {
				fmt.Fprintf(w, "%s    %s:%d %s\n", prefix, info.Path, info.Line, info.Symbol)
			}
		}
	}
}

func (e *Engine) printWorkingSet(w io.Writer, prefix string, instrCount uint64) {
	e.workingSet.FinalizeAt(instrCount)

	fmt.Fprintf(w, "%sWorking set:\n", prefix)
	for _, entry := range e.workingSet.History() {
		formatLine(w, prefix+"  ", fmt.Sprintf("%d", entry.InstrCount), 16, fmt.Sprintf("%d", entry.WindowSize), 18)
	}
}
