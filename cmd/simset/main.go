// Command simset is the simulator's CLI entry point: "simulate" runs one
// parameter file end to end, "batch" fans a directory of parameter
// files out across a fixed worker pool. Grounded on the teacher's
// cmd/main.go, whose "convert"/"convert-trawl" command pair is the
// single-item/list-of-items split this binary's "simulate"/"batch"
// commands mirror, down to the same pond.New(n, 0,
// pond.MinWorkers(n), pond.Context(ctx)) pool construction and
// signal.NotifyContext-driven cancellation.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	"github.com/alitto/pond"
	"github.com/urfave/cli/v2"

	"github.com/irl-simset/simset/binner"
	"github.com/irl-simset/simset/collimator"
	"github.com/irl-simset/simset/config"
	"github.com/irl-simset/simset/cylinder"
	"github.com/irl-simset/simset/diagnostics"
	"github.com/irl-simset/simset/header"
	"github.com/irl-simset/simset/object"
	"github.com/irl-simset/simset/productivity"
	"github.com/irl-simset/simset/runner"
	"github.com/irl-simset/simset/tracker"
)

// historySink adapts a binner.History into a runner.Sink: every
// delivered photon becomes one fixed-width history record, and the
// run's overall photon/weight summary is accumulated alongside for the
// final diagnostics report.
type historySink struct {
	hist    *binner.History
	records []diagnostics.PhotonRecord
}

func (s *historySink) Deliver(decayIndex uint64, decayTime float64, photon tracker.Photon, primary bool) {
	rec := binner.HistoryRecord{
		DecayIndex:    decayIndex,
		DecayTime:     decayTime,
		Weight:        photon.Weight,
		EnergyKeV:     photon.EnergyKeV,
		NumScatters:   uint32(photon.ScatterCount),
		AxialPosition: photon.Position.Z,
	}
	if err := s.hist.Append(rec); err != nil {
		log.Printf("simset: dropping photon, history write failed: %v", err)
		return
	}
	s.records = append(s.records, diagnostics.PhotonRecord{
		Weight:       photon.Weight,
		EnergyKeV:    photon.EnergyKeV,
		ScatterCount: photon.ScatterCount,
		Primary:      primary,
		DecayTime:    decayTime,
	})
}

func loadObject(materialPath, voxelPath string, numX, numY int, slice object.Slice) (*object.Object, error) {
	if err := config.ValidateObjectBounds(slice.XMin, slice.XMax, slice.YMin, slice.YMax); err != nil {
		return nil, err
	}

	matFile, err := os.Open(materialPath)
	if err != nil {
		return nil, fmt.Errorf("simset: opening material file: %w", err)
	}
	defer matFile.Close()
	materials, err := object.LoadMaterialTable(matFile)
	if err != nil {
		return nil, err
	}

	voxFile, err := os.Open(voxelPath)
	if err != nil {
		return nil, fmt.Errorf("simset: opening voxel-index file: %w", err)
	}
	defer voxFile.Close()
	tissue, err := object.LoadVoxelGrid(voxFile, numX, numY)
	if err != nil {
		return nil, err
	}

	slice.ActTissue = tissue
	slice.AttTissue = tissue
	slice.ActNumX, slice.ActNumY = numX, numY
	slice.AttNumX, slice.AttNumY = numX, numY

	objCyl := cylinder.Cylinder{Radius: slice.XMax, ZMin: slice.ZMin, ZMax: slice.ZMax}
	return object.New([]object.Slice{slice}, objCyl, materials)
}

func simulate(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runID, summary, err := simulateOne(ctx, cCtx.Args().Get(0), cCtx.Args().Get(1), cCtx)
	if err != nil {
		return err
	}

	log.Printf("simset: run %s complete: %d photons, weight sum %.6g", runID, summary.NumPhotons, summary.WeightSum)
	return nil
}

func batch(cCtx *cli.Context) error {
	dir := cCtx.Args().Get(0)
	outdir := cCtx.Args().Get(1)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("simset: reading batch directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n := runtime.NumCPU()
	pool := pond.New(n, 0, pond.MinWorkers(n), pond.Context(ctx))
	defer pool.StopAndWait()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		pool.Submit(func() {
			paramPath := filepath.Join(dir, name)
			outPath := filepath.Join(outdir, name+".history")
			if _, _, err := simulateOne(ctx, paramPath, outPath, cCtx); err != nil {
				log.Printf("simset: batch item %s failed: %v", paramPath, err)
			}
		})
	}

	return nil
}

// simulateOne runs one parameter file end to end: load config, load the
// voxelized object from the CLI-supplied material/voxel files, plan
// decays, and run the pipeline to a history file. Shared by both
// "simulate" (one file) and "batch" (every file in a directory, on a
// worker pool).
func simulateOne(ctx context.Context, paramPath, outPath string, cCtx *cli.Context) (runID string, summary diagnostics.RunSummary, err error) {
	paramFile, err := os.Open(paramPath)
	if err != nil {
		return "", diagnostics.RunSummary{}, fmt.Errorf("simset: opening parameter file: %w", err)
	}
	cfg, err := config.Load(paramFile)
	paramFile.Close()
	if err != nil {
		return "", diagnostics.RunSummary{}, err
	}

	numX := cCtx.Int("grid-size")
	extent := cCtx.Float64("extent")
	slice := object.Slice{
		ZMin: -extent, ZMax: extent,
		XMin: -extent, XMax: extent,
		YMin: -extent, YMax: extent,
	}

	obj, err := loadObject(cCtx.String("material-file"), cCtx.String("voxel-file"), numX, numX, slice)
	if err != nil {
		return "", diagnostics.RunSummary{}, err
	}

	prod := productivity.NewUnstratified(len(obj.Slices))
	target := cylinder.Cylinder{Radius: extent, ZMin: -extent, ZMax: extent}
	limit := cylinder.Cylinder{Radius: extent * 4, ZMin: -extent * 4, ZMax: extent * 4}

	var col *collimator.Collimator
	if cfg.Collimator != nil {
		col = collimator.New(*cfg.Collimator)
	}

	hdr := header.New(256)
	outFile, err := os.Create(outPath)
	if err != nil {
		return "", diagnostics.RunSummary{}, fmt.Errorf("simset: creating history file: %w", err)
	}
	defer outFile.Close()

	hist, err := binner.NewHistory(outFile, hdr)
	if err != nil {
		return "", diagnostics.RunSummary{}, err
	}
	defer hist.Flush()

	sink := &historySink{hist: hist}
	activity := func(sliceIdx, xIdx, yIdx int) float64 { return 1.0 }
	planned := object.CalcTimeBinDecays(obj, prod, cfg.DecaysPerCurie, cfg.BinDurationSecs, cfg.RequestedEvents, activity, func() float64 { return 0.5 })
	streams := []runner.Stream{{Index: 0, Planned: planned}}

	runID, err = runner.Run(ctx, cfg, obj, prod, target, limit, col, streams, sink)
	if err != nil {
		return "", diagnostics.RunSummary{}, err
	}

	summary = diagnostics.Summarize(sink.records)
	if !cfg.ReferenceTime.IsZero() && summary.NumPhotons > 0 {
		first := cfg.ReferenceTime.Add(time.Duration(summary.MinDecayTime * float64(time.Second)))
		last := cfg.ReferenceTime.Add(time.Duration(summary.MaxDecayTime * float64(time.Second)))
		log.Printf("simset: run %s spans %s to %s", runID, first.Format(time.RFC3339), last.Format(time.RFC3339))
	}

	return runID, summary, nil
}

func main() {
	geometryFlags := []cli.Flag{
		&cli.StringFlag{Name: "material-file", Usage: "path to the material attenuation file", Required: true},
		&cli.StringFlag{Name: "voxel-file", Usage: "path to the voxel-index file", Required: true},
		&cli.IntFlag{Name: "grid-size", Usage: "voxel grid width/height (square grid)", Value: 64},
		&cli.Float64Flag{Name: "extent", Usage: "object half-extent in x/y/z", Value: 10},
	}

	app := &cli.App{
		Name:  "simset",
		Usage: "Monte Carlo PET/SPECT photon transport simulation",
		Commands: []*cli.Command{
			{
				Name:      "simulate",
				Usage:     "run one parameter file and write a history file",
				ArgsUsage: "param-file history-file",
				Flags:     geometryFlags,
				Action:    simulate,
			},
			{
				Name:      "batch",
				Usage:     "run every parameter file in a directory across a worker pool",
				ArgsUsage: "param-dir output-dir",
				Flags:     geometryFlags,
				Action:    batch,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
