// Package driver orchestrates the pipeline spec §6 names
// build_implicit_surfaces: ingestion, per-cell extraction, face
// cleanup, and handoff to a surf.Store, with precondition checks and
// phase timing on rank 0.
package driver

import (
	"io"
	"log/slog"
	"time"

	"github.com/distsurf/isosurf/ablate"
	"github.com/distsurf/isosurf/cleanup"
	"github.com/distsurf/isosurf/corner"
	"github.com/distsurf/isosurf/cubes"
	"github.com/distsurf/isosurf/errs"
	"github.com/distsurf/isosurf/exchange"
	"github.com/distsurf/isosurf/gridindex"
	"github.com/distsurf/isosurf/squares"
	"github.com/distsurf/isosurf/surf"
	"gonum.org/v1/gonum/spatial/r3"
)

// Options mirrors spec §6's optional driver arguments.
type Options struct {
	Group        string
	TypeFile     io.Reader
	AblateHandle ablate.CornerSink
}

// Config is the full set of inputs to BuildImplicitSurfaces, combining
// spec §6's build_implicit_surfaces arguments with the topology this
// module needs as an external collaborator.
type Config struct {
	Topo       gridindex.Topology
	CornerFile io.Reader
	Threshold  float64
	Options    Options

	// Preconditions the real grid/particle/surface subsystems would
	// check; this module has no such subsystems, so callers report
	// their state here (spec §6's "grid must exist, ... not
	// axisymmetric" constraints).
	GridExists          bool
	SurfacesAreImplicit bool
	HasExistingSurfaces bool
	HasParticles        bool
	Axisymmetric        bool

	Logger *slog.Logger
}

// Stats reports per-phase wall time, matching spec §6's "ingest /
// extract / check / cell-binding / ghost / classify / store"
// partition. This module has no ghost-cell phase of its own (that
// collaborator is out of scope), so Ghost is always zero and reported
// for shape-compatibility with a real deployment's phase breakdown.
type Stats struct {
	Ingest, Extract, Check, CellBinding, Ghost, Classify, Store time.Duration
	TriangleCount, SegmentCount                                 int
}

func checkPreconditions(cfg Config) error {
	if !cfg.GridExists {
		return errs.New(errs.BadPrerequisite, "grid does not exist")
	}
	if !cfg.SurfacesAreImplicit {
		return errs.New(errs.BadPrerequisite, "global surfaces must be declared implicit")
	}
	if cfg.HasExistingSurfaces {
		return errs.New(errs.BadPrerequisite, "surfaces already exist")
	}
	if cfg.HasParticles {
		return errs.New(errs.BadPrerequisite, "particles exist")
	}
	if cfg.Axisymmetric {
		return errs.New(errs.BadPrerequisite, "axisymmetric domains are not supported")
	}
	if err := corner.ValidateThreshold(cfg.Threshold); err != nil {
		return err
	}
	return nil
}

// BuildImplicitSurfaces runs the full single-process-per-rank pipeline
// for every rank in cfg.Topo, returning one surf.Store per rank along
// with aggregate stats. ranks[i] corresponds to rank i.
func BuildImplicitSurfaces(cfg Config) ([]*surf.Store, Stats, error) {
	var stats Stats
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := checkPreconditions(cfg); err != nil {
		return nil, stats, err
	}

	numRanks := cfg.Topo.NumRanks
	if numRanks <= 0 {
		numRanks = 1
	}

	t0 := time.Now()
	stores := make([]*corner.Store, numRanks)
	for i := range stores {
		stores[i] = corner.NewStore(cfg.Topo, i)
	}
	if err := corner.ReadCorners(cfg.CornerFile, stores, cfg.Topo.Dim, cfg.Topo.Nx, cfg.Topo.Ny, cfg.Topo.Nz, nil); err != nil {
		return nil, stats, err
	}
	if cfg.Options.TypeFile != nil {
		if err := corner.ReadTypes(cfg.Options.TypeFile, stores, cfg.Topo.Dim, cfg.Topo.Nx, cfg.Topo.Ny, cfg.Topo.Nz, nil); err != nil {
			return nil, stats, err
		}
	}
	stats.Ingest = time.Since(t0)

	sink := cfg.Options.AblateHandle
	if sink == nil {
		sink = ablate.NoOp{}
	}

	t1 := time.Now()
	surfStores := make([]*surf.Store, numRanks)
	for i, cs := range stores {
		surfStores[i] = surf.NewStore()
		if err := extractRank(cfg.Topo, cs, cfg.Threshold, surfStores[i], sink); err != nil {
			return nil, stats, err
		}
	}
	stats.Extract = time.Since(t1)

	if cfg.Topo.Dim == 3 {
		t2 := time.Now()
		ranks := make([]*cleanup.Rank, numRanks)
		for i := range ranks {
			ranks[i] = &cleanup.Rank{ID: i, Topo: cfg.Topo, Store: surfStores[i]}
		}
		ip := exchange.NewInProcess(numRanks)
		if err := cleanup.Run(ranks, func(rankID int) exchange.Exchanger { return ip.Rank(rankID) }); err != nil {
			return nil, stats, err
		}
		stats.Check = time.Since(t2)
	}

	for _, s := range surfStores {
		for _, p := range s.All() {
			if p.Is3D {
				stats.TriangleCount++
			} else {
				stats.SegmentCount++
			}
		}
	}

	logger.Info("build_implicit_surfaces complete",
		"ingest", stats.Ingest, "extract", stats.Extract, "check", stats.Check,
		"triangles", stats.TriangleCount, "segments", stats.SegmentCount)

	return surfStores, stats, nil
}

// extractRank runs Marching Squares/Cubes over every owned cell of one
// rank's corner.Store, appending the resulting primitives to out.
func extractRank(topo gridindex.Topology, cs *corner.Store, threshold float64, out *surf.Store, sink ablate.CornerSink) error {
	for _, cell := range cs.CellIDs() {
		lo, hi := topo.Bounds(cell)
		if topo.Dim == 3 {
			v, _ := cs.Corners3(cell)
			sink.StoreCorners(cell, v[:])
			tris, err := cubes.Extract(v, threshold, lo, hi)
			if err != nil {
				return err
			}
			if len(tris) == 0 {
				continue
			}
			prims := make([]surf.Primitive, len(tris))
			label := cs.Type(cell)
			for i, t := range tris {
				prims[i] = surf.Primitive{
					Cell: cell, Label: label, Is3D: true,
					A: toVec(t.A), B: toVec(t.B), C: toVec(t.C), Normal: toVec(t.Normal),
				}
			}
			out.Add(cell, prims)
		} else {
			v, _ := cs.Corners2(cell)
			sink.StoreCorners(cell, v[:])
			segs := squares.Extract(v[0], v[1], v[2], v[3], threshold, lo, hi)
			if len(segs) == 0 {
				continue
			}
			prims := make([]surf.Primitive, len(segs))
			label := cs.Type(cell)
			for i, s := range segs {
				normal := segmentNormal(s)
				prims[i] = surf.Primitive{Cell: cell, Label: label, Is3D: false, A: toVec(s.A), B: toVec(s.B), Normal: toVec(normal)}
			}
			out.Add(cell, prims)
		}
	}
	return nil
}

func toVec(v r3.Vec) surf.Vec { return surf.Vec{X: v.X, Y: v.Y, Z: v.Z} }

// segmentNormal derives a 2-D segment's normal (z=0 plane) by rotating
// its A->B direction 90 degrees counter-clockwise. squares.Extract
// always orders each segment's endpoints so this rotation already
// points from the above-threshold side toward the below-threshold
// side, matching spec §8 scenario 1's "normal pointing toward (1,1)".
func segmentNormal(s squares.Segment) r3.Vec {
	d := r3.Sub(s.B, s.A)
	n := r3.Vec{X: -d.Y, Y: d.X}
	if norm := r3.Norm(n); norm > 0 {
		n = r3.Scale(1/norm, n)
	}
	return n
}
