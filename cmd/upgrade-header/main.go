// Command upgrade-header rewrites a fixed-size header region into a
// larger one, carrying every existing field across unchanged — the §6
// utility a schema migration needs when a new field is registered and
// old history/image files were written with a smaller header region.
// Grounded on original_source/src/PhgHdr.c's header-size field
// (HDR_PHG_HEADER_SIZE_ID is itself a registered field, so the new
// region's size is written back into the copy) and spec.md §7's
// HeaderSizeMismatch error kind, which this utility exists to resolve
// offline rather than at simulation run time.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/irl-simset/simset/header"
)

func upgradeHeader(inputPath, outputPath string, oldSize, newSize int, verbose bool) error {
	if newSize < oldSize {
		return fmt.Errorf("upgrade-header: new size %d is smaller than old size %d", newSize, oldSize)
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("upgrade-header: opening input file: %w", err)
	}
	defer in.Close()

	oldHdr, err := header.Open(in, oldSize)
	if err != nil {
		return fmt.Errorf("upgrade-header: reading old header: %w", err)
	}

	if verbose {
		fmt.Fprintln(os.Stderr, "upgrade-header: source header fields:")
		if err := oldHdr.Dump(os.Stderr); err != nil {
			return fmt.Errorf("upgrade-header: dumping source header: %w", err)
		}
	}

	newHdr := header.New(newSize)
	for _, id := range oldHdr.Fields() {
		def, ok := header.Lookup(id)
		if !ok {
			return fmt.Errorf("upgrade-header: field id %d in source header is not in the registry", id)
		}
		payload, err := oldHdr.Get(id, def.Size)
		if err != nil {
			return fmt.Errorf("upgrade-header: reading field %s: %w", def.Name, err)
		}
		if err := newHdr.Set(id, def.Size, payload); err != nil {
			return fmt.Errorf("upgrade-header: writing field %s to new header: %w", def.Name, err)
		}
	}

	if err := newHdr.SetUint32(header.PhgHeaderSizeID, uint32(newSize)); err != nil {
		return fmt.Errorf("upgrade-header: updating header size field: %w", err)
	}

	if verbose {
		fmt.Fprintln(os.Stderr, "upgrade-header: upgraded header fields:")
		if err := newHdr.Dump(os.Stderr); err != nil {
			return fmt.Errorf("upgrade-header: dumping upgraded header: %w", err)
		}
	}

	rest, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("upgrade-header: re-reading input file: %w", err)
	}
	body := rest[oldSize:]

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("upgrade-header: creating output file: %w", err)
	}
	defer out.Close()

	if _, err := newHdr.WriteTo(out); err != nil {
		return fmt.Errorf("upgrade-header: writing new header: %w", err)
	}
	if _, err := out.Write(body); err != nil {
		return fmt.Errorf("upgrade-header: copying file body: %w", err)
	}

	return nil
}

func main() {
	app := &cli.App{
		Name:      "upgrade-header",
		Usage:     "rewrite a fixed-size header region into a larger one, preserving every registered field",
		ArgsUsage: "input-path output-path",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "old-size", Usage: "size in bytes of the existing header region", Required: true},
			&cli.IntFlag{Name: "new-size", Usage: "size in bytes of the upgraded header region", Required: true},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "print every field before and after upgrading"},
		},
		Action: func(cCtx *cli.Context) error {
			if cCtx.NArg() < 2 {
				return fmt.Errorf("upgrade-header: requires an input file name and an output file name")
			}
			return upgradeHeader(cCtx.Args().Get(0), cCtx.Args().Get(1), cCtx.Int("old-size"), cCtx.Int("new-size"), cCtx.Bool("verbose"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
