// Package runner wires the decay generator, tracker, optional
// collimator, and binner together into a concurrent simulation run:
// disjoint decay streams with per-stream deterministic PRNG seeds,
// executed on a fixed worker pool, joined at a mutex-serialized sink,
// per spec.md §5's concurrency model. Grounded on the worker-pool
// idiom in the root module's cmd/main.go (pond.New/Submit/StopAndWait
// around a signal-cancellable context).
package runner

import (
	"context"
	"log"
	"sync"

	"github.com/alitto/pond"
	"github.com/google/uuid"

	"github.com/irl-simset/simset/collimator"
	"github.com/irl-simset/simset/config"
	"github.com/irl-simset/simset/cylinder"
	"github.com/irl-simset/simset/decaygen"
	"github.com/irl-simset/simset/mathkernel"
	"github.com/irl-simset/simset/object"
	"github.com/irl-simset/simset/productivity"
	"github.com/irl-simset/simset/sortedlist"
	"github.com/irl-simset/simset/tracker"
)

// Sink receives every photon the pipeline produces (real exits,
// forced-detection copies, and collimated photons alike) plus the
// decay's own index and timestamp, and must be safe for concurrent
// use — the runner only guarantees exclusive access per call, not
// ordering across streams.
type Sink interface {
	Deliver(decayIndex uint64, decayTime float64, photon tracker.Photon, primary bool)
}

// mutexSink wraps a Sink with the single-writer serialization spec.md
// §5 requires for binner/history access.
type mutexSink struct {
	mu   sync.Mutex
	sink Sink
}

func (m *mutexSink) Deliver(decayIndex uint64, decayTime float64, photon tracker.Photon, primary bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink.Deliver(decayIndex, decayTime, photon, primary)
}

// Stream is one disjoint slice of planned decays to simulate, assigned
// its own deterministic PRNG stream.
type Stream struct {
	Index   int
	Planned []object.PlannedDecay
}

// Run executes every stream's planned decays across a fixed pond
// worker pool, deriving each stream's PRNG seed from cfg.RunSeed via
// mathkernel.Derive, and delivers every resulting photon to sink
// (wrapped for mutual exclusion). Cancellation is cooperative: ctx is
// polled at each decay boundary, matching spec.md §5's "termination
// flag polled at decay boundaries".
func Run(ctx context.Context, cfg config.SimConfig, obj *object.Object, prod *productivity.Table, target, limit cylinder.Cylinder, col *collimator.Collimator, streams []Stream, sink Sink) (runID string, err error) {
	runID = uuid.NewString()
	guarded := &mutexSink{sink: sink}

	numWorkers := len(streams)
	if numWorkers < 1 {
		numWorkers = 1
	}
	pool := pond.New(numWorkers, 0, pond.MinWorkers(numWorkers), pond.Context(ctx))
	defer pool.StopAndWait()

	var decayCounter uint64
	var counterMu sync.Mutex
	nextDecayIndex := func() uint64 {
		counterMu.Lock()
		defer counterMu.Unlock()
		decayCounter++
		return decayCounter
	}

	for _, stream := range streams {
		stream := stream
		pool.Submit(func() {
			runStream(ctx, cfg, obj, prod, target, limit, col, stream, guarded, nextDecayIndex)
		})
	}

	return runID, nil
}

// pendingDelivery is one fully-collimated photon awaiting time-ordered
// delivery to sink, keyed by its decay's timestamp.
type pendingDelivery struct {
	decayIndex uint64
	decayTime  float64
	photon     tracker.Photon
	primary    bool
}

// runStream carries every planned decay in stream through the decay
// generator, tracker, and optional collimator, then delivers every
// resulting photon to sink in decayTime order via a sortedlist.List,
// matching spec.md §2/§3's "used to order time-stamped events".
func runStream(ctx context.Context, cfg config.SimConfig, obj *object.Object, prod *productivity.Table, target, limit cylinder.Cylinder, col *collimator.Collimator, stream Stream, sink Sink, nextDecayIndex func() uint64) {
	rng := mathkernel.NewRNG(mathkernel.Derive(cfg.RunSeed, stream.Index))

	gen := &decaygen.Generator{
		Object:                 obj,
		Productivity:           prod,
		RNG:                    rng,
		SourceMode:             decaygenSourceMode(cfg.SourceMode),
		DecayType:              decaygenDecayType(cfg.DecayMode),
		ScanLength:             cfg.BinDurationSecs,
		ModelNonCollinearity:   cfg.ModelNonCollinearity,
		NonCollinearityFWHMDeg: cfg.NonCollinearityFWHMDeg,
	}

	var stats collimator.Stats
	ordered := sortedlist.New(0)

	for _, plan := range stream.Planned {
		select {
		case <-ctx.Done():
			return
		default:
		}

		decayIndex := nextDecayIndex()

		for n := uint64(0); n < plan.Simulated; n++ {
			decay, err := gen.Next(plan)
			if err != nil {
				continue
			}

			trackOneDecay(obj, target, limit, rng, cfg, decayIndex, decay, col, &stats, ordered)

			// Positron decays emit a second, antiparallel photon,
			// tracked independently from the same site and time.
			if decay.Type == decaygen.Positron {
				partner := gen.Partner(decay)
				trackOneDecay(obj, target, limit, rng, cfg, decayIndex, partner, col, &stats, ordered)
			}
		}
	}

	for item, ok := ordered.First(); ok; item, ok = ordered.Next(item.Handle) {
		d := item.Data.(pendingDelivery)
		sink.Deliver(d.decayIndex, d.decayTime, d.photon, d.primary)
	}

	if col != nil {
		log.Print(stats.Report())
	}
}

// trackOneDecay selects the photon's starting energy by decay type,
// tracks it through obj, and queues every detected copy (collimated, if
// col is configured) into ordered for later time-ordered delivery.
func trackOneDecay(obj *object.Object, target, limit cylinder.Cylinder, rng *mathkernel.RNG, cfg config.SimConfig, decayIndex uint64, decay decaygen.Decay, col *collimator.Collimator, stats *collimator.Stats, ordered *sortedlist.List) {
	energyKeV := cfg.EmissionEnergyKeV
	if decay.Type == decaygen.Positron {
		energyKeV = decaygen.AnnihilationEnergyKeV
	}

	photon := tracker.Photon{
		Position:    decay.Position,
		Direction:   decay.Direction,
		EnergyKeV:   energyKeV,
		Weight:      decay.Weight,
		StartWeight: decay.Weight,
	}

	result := tracker.Track(photon, obj, target, limit, rng, cfg.Tracker)

	for _, detected := range result.Detected {
		queuePhoton(ordered, decayIndex, decay.DecayTime, detected, col, decay.Weight, rng, stats)
	}
}

func queuePhoton(ordered *sortedlist.List, decayIndex uint64, decayTime float64, detected tracker.Detected, col *collimator.Collimator, decayWeight float64, rng *mathkernel.RNG, stats *collimator.Stats) {
	if col == nil {
		ordered.Insert(decayTime, 0, pendingDelivery{decayIndex: decayIndex, decayTime: decayTime, photon: detected.Photon, primary: detected.Primary})
		return
	}

	colPhoton := collimator.Photon{
		Position:    detected.Photon.Position,
		Direction:   detected.Photon.Direction,
		Weight:      detected.Photon.Weight,
		NumScatters: detected.Photon.ScatterCount,
	}

	result, ok := col.Collimate(colPhoton, decayWeight, rng.Float64, stats)
	if !ok {
		return
	}

	finalPhoton := detected.Photon
	finalPhoton.Position = result.Position
	finalPhoton.Weight = result.Weight
	ordered.Insert(decayTime, 0, pendingDelivery{decayIndex: decayIndex, decayTime: decayTime, photon: finalPhoton, primary: detected.Primary})
}

func decaygenSourceMode(m config.SourceMode) decaygen.SourceMode {
	switch m {
	case config.SourcePoint:
		return decaygen.PointSource
	case config.SourceLine:
		return decaygen.LineSource
	default:
		return decaygen.Uniform
	}
}

func decaygenDecayType(m config.DecayMode) decaygen.DecayType {
	switch m {
	case config.ModeSPECT:
		return decaygen.SinglePhoton
	case config.ModeCoincidence:
		return decaygen.Complex
	default:
		return decaygen.Positron
	}
}
