package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/minglechen/dynamorio/instrcount"
	"github.com/minglechen/dynamorio/memref"
	"github.com/minglechen/dynamorio/topk"
)

func instrCountCommand() *cli.Command {
	return &cli.Command{
		Name:      "instr-count",
		Usage:     "count per-PC instruction references over a trace and report the top-K",
		ArgsUsage: "<trace-file>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top-k", Value: instrcount.DefaultTopK, Usage: "histogram rows to report"},
			&cli.StringFlag{Name: "addr2line", Usage: "side-car CSV symbolizing reported addresses"},
			&cli.StringFlag{Name: "output-dir", Usage: "write instr_counts.csv under this directory"},
			&cli.IntFlag{Name: "shards", Value: 1, Usage: "partition the trace across this many shards via RunSharded"},
			&cli.BoolFlag{Name: "table", Usage: "also print a non-contractual top-K table"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("cachesim instr-count: missing <trace-file>")
			}

			opts := []instrcount.Option{instrcount.WithTopK(c.Int("top-k")), instrcount.WithLogger(logger)}
			if path := c.String("addr2line"); path != "" {
				opts = append(opts, instrcount.WithAddr2LineTable(path))
			}
			if dir := c.String("output-dir"); dir != "" {
				opts = append(opts, instrcount.WithOutputDir(dir))
			}
			tool := instrcount.NewTool(opts...)

			shards := c.Int("shards")
			if shards > 1 {
				var refs []memref.Reference
				if err := readTrace(c.Args().Get(0), func(ref memref.Reference) error {
					refs = append(refs, ref)
					return nil
				}); err != nil {
					return err
				}
				if err := tool.RunSharded(context.Background(), refs, shards); err != nil {
					return fmt.Errorf("cachesim instr-count: %w", err)
				}
			} else {
				err := readTrace(c.Args().Get(0), func(ref memref.Reference) error {
					tool.ProcessMemref(ref)
					return nil
				})
				if err != nil {
					return err
				}
			}

			if err := tool.PrintResults(os.Stdout); err != nil {
				return fmt.Errorf("cachesim instr-count: %w", err)
			}

			if c.Bool("table") {
				printTopKTable(os.Stdout, "instruction pc", topk.Top(tool.ReduceResults(), c.Int("top-k")))
			}
			return nil
		},
	}
}
