// Command extract copies a contiguous run of fixed-size elements from
// one file to another, optionally skipping a leading header. Grounded
// on original_source/src/extract.c's Extract, which prompts
// interactively for the header size, element size, first element, and
// element count; here those become CLI flags (-s, -z, -f, -c) per
// spec.md §6's "positional input/output, short flags" CLI surface.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func extract(inputPath, outputPath string, hdrSize, elemSize, first, count int) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("extract: opening input file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("extract: creating output file: %w", err)
	}
	defer out.Close()

	skip := int64(hdrSize) + int64(first)*int64(elemSize)
	if _, err := in.Seek(skip, io.SeekStart); err != nil {
		return fmt.Errorf("extract: seeking to first element: %w", err)
	}

	buf := make([]byte, int64(count)*int64(elemSize))
	n, err := io.ReadFull(in, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("extract: reading elements: %w", err)
	}

	if _, err := out.Write(buf[:n]); err != nil {
		return fmt.Errorf("extract: writing output: %w", err)
	}

	return nil
}

func main() {
	app := &cli.App{
		Name:      "extract",
		Usage:     "extract a contiguous run of fixed-size elements from a binary file",
		ArgsUsage: "input-path output-path",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "s", Usage: "size of header to skip, in bytes"},
			&cli.IntFlag{Name: "z", Usage: "size of each element, in bytes", Value: 4},
			&cli.IntFlag{Name: "f", Usage: "index of first element to keep (counting from 0)", Value: 0},
			&cli.IntFlag{Name: "c", Usage: "number of elements to extract", Required: true},
		},
		Action: func(cCtx *cli.Context) error {
			if cCtx.NArg() < 2 {
				return fmt.Errorf("extract: requires an input file name and an output file name")
			}
			return extract(cCtx.Args().Get(0), cCtx.Args().Get(1), cCtx.Int("s"), cCtx.Int("z"), cCtx.Int("f"), cCtx.Int("c"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
