package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minglechen/dynamorio/memref"
)

// readTrace opens path (or stdin, if path is "-") and calls visit with each
// decoded reference in order. Blank lines are skipped.
func readTrace(path string, visit func(memref.Reference) error) error {
	var r io.ReadCloser
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("cachesim: open trace %s: %w", path, err)
		}
		r = f
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ref, err := memref.DecodeTraceLine(line)
		if err != nil {
			return fmt.Errorf("cachesim: trace %s line %d: %w", path, lineNo, err)
		}
		if err := visit(ref); err != nil {
			return err
		}
	}
	return scanner.Err()
}
