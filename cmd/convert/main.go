// Command convert performs the §6 type-conversion utility: reads a
// fixed-width input file element by element and writes each element out
// as a (possibly different) fixed-width type, optionally skipping or
// copying a leading header. Grounded on original_source/src/convert.c's
// Convert, with its getopt-style -i, -o, -s and -h options re-expressed
// as urfave/cli/v2 flags, matching the CLI library the teacher's own
// cmd/main.go builds on. The original's -n and -e options are not
// provided.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/irl-simset/simset/cmd/internal/rawio"
)

func convert(inputPath, outputPath string, inType, outType int, hdrSize int, copyHdr bool) error {
	inTypeVal, err := rawio.ParseDataType(inType)
	if err != nil {
		return err
	}
	outTypeVal, err := rawio.ParseDataType(outType)
	if err != nil {
		return err
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("convert: opening input file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("convert: creating output file: %w", err)
	}
	defer out.Close()

	if hdrSize > 0 {
		hdr := make([]byte, hdrSize)
		if _, err := io.ReadFull(in, hdr); err != nil {
			return fmt.Errorf("convert: reading header: %w", err)
		}
		if copyHdr {
			if _, err := out.Write(hdr); err != nil {
				return fmt.Errorf("convert: copying header: %w", err)
			}
		}
	}

	for {
		v, err := rawio.ReadElement(in, inTypeVal)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("convert: reading element: %w", err)
		}
		if err := rawio.WriteElement(out, outTypeVal, v); err != nil {
			return fmt.Errorf("convert: writing element: %w", err)
		}
	}

	return nil
}

func main() {
	app := &cli.App{
		Name:      "convert",
		Usage:     "convert a fixed-width binary file from one element type to another",
		ArgsUsage: "input-path output-path",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "i", Usage: "input element data type code", Required: true},
			&cli.IntFlag{Name: "o", Usage: "output element data type code", Required: true},
			&cli.IntFlag{Name: "s", Usage: "size of header to skip, in bytes"},
			&cli.BoolFlag{Name: "h", Usage: "copy the skipped header to the output file"},
		},
		Action: func(cCtx *cli.Context) error {
			if cCtx.NArg() < 2 {
				return fmt.Errorf("convert: requires an input file name and an output file name")
			}
			return convert(cCtx.Args().Get(0), cCtx.Args().Get(1), cCtx.Int("i"), cCtx.Int("o"), cCtx.Int("s"), cCtx.Bool("h"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
