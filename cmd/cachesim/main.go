// Command cachesim is a CLI driver over the stats/accounting core: it reads
// a trace of memref.Reference lines and runs one of a cache-backed report,
// a standalone working-set sampler, or the instruction-count tool against
// it. pprof CPU/memory profiling flags are kept from a prior profiling
// wrapper that drove the original functional/timing emulator the same way.
package main

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/urfave/cli/v2"

	"github.com/minglechen/dynamorio/dlog"
)

var (
	cpuProfileFile *os.File
	logger         dlog.Logger
)

func main() {
	app := &cli.App{
		Name:  "cachesim",
		Usage: "drive the cache-statistics core over a memory-reference trace",
		Flags: []cli.Flag{
			&dlog.LevelFlag,
			&cli.StringFlag{Name: "cpuprofile", Usage: "write a CPU profile to this path"},
			&cli.StringFlag{Name: "memprofile", Usage: "write a heap profile to this path"},
		},
		Before: func(c *cli.Context) error {
			logger = dlog.New(c.String("log"), "cachesim")
			if path := c.String("cpuprofile"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("cachesim: create cpu profile: %w", err)
				}
				cpuProfileFile = f
				if err := pprof.StartCPUProfile(f); err != nil {
					return fmt.Errorf("cachesim: start cpu profile: %w", err)
				}
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if cpuProfileFile != nil {
				pprof.StopCPUProfile()
				cpuProfileFile.Close()
			}
			if path := c.String("memprofile"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("cachesim: create mem profile: %w", err)
				}
				defer f.Close()
				if err := pprof.WriteHeapProfile(f); err != nil {
					return fmt.Errorf("cachesim: write mem profile: %w", err)
				}
			}
			return nil
		},
		Commands: []*cli.Command{
			runCommand(),
			workingSetCommand(),
			instrCountCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
