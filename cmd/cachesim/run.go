package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/minglechen/dynamorio/democache"
	"github.com/minglechen/dynamorio/memref"
	"github.com/minglechen/dynamorio/stats"
	"github.com/minglechen/dynamorio/topk"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "drive a democache.Cache over a trace and print its stats.Engine report",
		ArgsUsage: "<trace-file>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "size", Value: 32 * 1024, Usage: "cache size in bytes"},
			&cli.IntFlag{Name: "ways", Value: 8, Usage: "associativity"},
			&cli.IntFlag{Name: "line-size", Value: 64, Usage: "block/line size in bytes"},
			&cli.StringFlag{Name: "miss-dump", Usage: "write a CSV of (pc,addr) per miss to this path"},
			&cli.BoolFlag{Name: "no-compress", Usage: "disable gzip compression of --miss-dump"},
			&cli.StringFlag{Name: "addr2line", Usage: "side-car CSV symbolizing reported addresses"},
			&cli.BoolFlag{Name: "record-instr-misses", Usage: "build the per-PC data-miss histogram"},
			&cli.BoolFlag{Name: "warmup", Usage: "track pre-reset hit/miss counts for a warmup report"},
			&cli.BoolFlag{Name: "coherent", Usage: "report this cache's invalidations as a coherent cache's"},
			&cli.IntFlag{Name: "working-set-line", Usage: "enable the in-cache working-set sampler at this line size"},
			&cli.IntFlag{Name: "top-k", Value: stats.DefaultTopK, Usage: "histogram rows to report"},
			&cli.BoolFlag{Name: "table", Usage: "also print a non-contractual top-K table of data-miss PCs"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("cachesim run: missing <trace-file>")
			}

			opts := []stats.Option{stats.WithTopK(c.Int("top-k")), stats.WithLogger(logger)}
			if path := c.String("miss-dump"); path != "" {
				opts = append(opts, stats.WithMissDumpPath(path), stats.WithMissDumpCompression(!c.Bool("no-compress")))
			}
			if path := c.String("addr2line"); path != "" {
				opts = append(opts, stats.WithAddr2LineTable(path))
			}
			if c.Bool("record-instr-misses") {
				opts = append(opts, stats.WithRecordInstrAccessMisses())
			}
			if c.Bool("warmup") {
				opts = append(opts, stats.WithWarmup())
			}
			if c.Bool("coherent") {
				opts = append(opts, stats.WithCoherent())
			}
			if lineSize := c.Int("working-set-line"); lineSize > 0 {
				opts = append(opts, stats.WithWorkingSet(uint64(lineSize)))
			}

			engine, err := stats.New(uint64(c.Int("line-size")), opts...)
			if err != nil {
				return fmt.Errorf("cachesim run: %w", err)
			}
			defer engine.Close()

			cacheCfg := democache.Config{
				Size:          c.Int("size"),
				Associativity: c.Int("ways"),
				BlockSize:     c.Int("line-size"),
			}
			cache := democache.New(cacheCfg, engine)

			var instrCount uint64
			err = readTrace(c.Args().Get(0), func(ref memref.Reference) error {
				cache.Access(ref)
				if ref.Kind.IsInstr() {
					instrCount++
				}
				return nil
			})
			if err != nil {
				return err
			}

			if err := engine.PrintStats(os.Stdout, "", instrCount); err != nil {
				return fmt.Errorf("cachesim run: %w", err)
			}

			if c.Bool("table") && c.Bool("record-instr-misses") {
				printTopKTable(os.Stdout, "miss pc", topk.Top(engine.MissHistogram(), c.Int("top-k")))
			}
			return nil
		},
	}
}
