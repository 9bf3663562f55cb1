// Command byteswap reverses the byte order of every fixed-width element
// in a binary file, for moving a history or image file between
// big-endian and little-endian hosts — spec.md §6 notes that payload
// bytes stay host-endian and files are therefore not portable across
// endianness without an explicit pass like this one. Grounded on
// original_source/src/breakpoint.swap.c's chunked read/swap/write loop
// (its BUFF_SIZE constant), re-expressed as a streaming copy instead of
// a single large in-memory buffer.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/irl-simset/simset/cmd/internal/rawio"
)

const chunkElements = 1 << 16 // elements per chunk; mirrors breakpoint.swap.c's BUFF_SIZE intent at a smaller, type-agnostic scale

func byteswap(inputPath, outputPath string, elemSize, hdrSize int, copyHdr bool) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("byteswap: opening input file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("byteswap: creating output file: %w", err)
	}
	defer out.Close()

	if hdrSize > 0 {
		hdr := make([]byte, hdrSize)
		if _, err := io.ReadFull(in, hdr); err != nil {
			return fmt.Errorf("byteswap: reading header: %w", err)
		}
		if copyHdr {
			if _, err := out.Write(hdr); err != nil {
				return fmt.Errorf("byteswap: copying header: %w", err)
			}
		}
	}

	buf := make([]byte, elemSize*chunkElements)
	for {
		n, readErr := io.ReadFull(in, buf)
		if n > 0 {
			if n%elemSize != 0 {
				return fmt.Errorf("byteswap: trailing %d bytes do not form a whole element of size %d", n, elemSize)
			}
			if err := rawio.SwapBytes(buf[:n], elemSize); err != nil {
				return err
			}
			if _, err := out.Write(buf[:n]); err != nil {
				return fmt.Errorf("byteswap: writing output: %w", err)
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("byteswap: reading input: %w", readErr)
		}
	}

	return nil
}

func main() {
	app := &cli.App{
		Name:      "byteswap",
		Usage:     "reverse the byte order of every fixed-width element in a binary file",
		ArgsUsage: "input-path output-path",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "e", Usage: "element size in bytes", Required: true},
			&cli.IntFlag{Name: "s", Usage: "size of header to skip, in bytes"},
			&cli.BoolFlag{Name: "h", Usage: "copy the skipped header to the output file"},
		},
		Action: func(cCtx *cli.Context) error {
			if cCtx.NArg() < 2 {
				return fmt.Errorf("byteswap: requires an input file name and an output file name")
			}
			return byteswap(cCtx.Args().Get(0), cCtx.Args().Get(1), cCtx.Int("e"), cCtx.Int("s"), cCtx.Bool("h"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
