package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/minglechen/dynamorio/memref"
	"github.com/minglechen/dynamorio/workingset"
)

func workingSetCommand() *cli.Command {
	return &cli.Command{
		Name:      "working-set",
		Usage:     "sample instruction and data working sets over a trace, independent of any cache",
		ArgsUsage: "<trace-file>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "line-size", Value: 64, Usage: "line size in bytes"},
			&cli.Uint64Flag{Name: "reset-interval", Usage: "instructions between flushes (0 = default)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("cachesim working-set: missing <trace-file>")
			}

			sampler, err := workingset.NewToolSampler(uint64(c.Int("line-size")), c.Uint64("reset-interval"))
			if err != nil {
				return fmt.Errorf("cachesim working-set: %w", err)
			}

			err = readTrace(c.Args().Get(0), func(ref memref.Reference) error {
				sampler.Process(ref)
				return nil
			})
			if err != nil {
				return err
			}
			sampler.Finalize()

			fmt.Fprintln(os.Stdout, "Instruction working set:")
			printWorkingSetHistory(os.Stdout, sampler.InstructionHistory())
			fmt.Fprintln(os.Stdout, "Data working set:")
			printWorkingSetHistory(os.Stdout, sampler.DataHistory())
			return nil
		},
	}
}

func printWorkingSetHistory(w io.Writer, entries []workingset.HistoryEntry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%16d%18d\n", e.InstrCount, e.WindowSize)
	}
}
