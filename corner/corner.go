// Package corner implements distributed corner-value ingestion into
// cell-local corner vectors (spec §4.1): CornerStore and TypeMap.
package corner

import (
	"github.com/distsurf/isosurf/errs"
	"github.com/distsurf/isosurf/gridindex"
)

// Vector3 is the 8-byte corner vector for a 3-D cell, in bit-zyx order
// (x fastest): v0=000, v1=001, v2=010, v3=011, v4=100, v5=101, v6=110, v7=111.
type Vector3 [8]uint8

// Vector2 is the 4-byte corner vector for a 2-D cell: v0=lower-left,
// v1=lower-right, v2=upper-left, v3=upper-right.
type Vector2 [4]uint8

// Store holds the corner vectors and material types for every cell a
// single rank owns. Boundary and extent checks happen in ReadCorners and
// ReadTypes, not here; Store itself is a flat array-of-handles container, mirroring the
// teacher's preference for plain indexed slices over pointer graphs
// (internal/d3, veci.go) rather than a corner-vector-per-cell map.
type Store struct {
	Topo gridindex.Topology
	Rank int

	slot map[gridindex.CellID]int
	ids  []gridindex.CellID
	v3   []Vector3
	v2   []Vector2
	typ  []int32 // parallel to ids; default 1 when TypeMap absent
}

// NewStore builds a Store for every cell Topo assigns to rank, in a
// stable deterministic order (x fastest, then y, then z), matching
// spec §5's "Ordering" guarantee that ingestion is read-order
// deterministic given a fixed decomposition.
func NewStore(topo gridindex.Topology, rank int) *Store {
	ids := topo.OwnedCells(rank)
	s := &Store{
		Topo: topo,
		Rank: rank,
		slot: make(map[gridindex.CellID]int, len(ids)),
		ids:  ids,
		typ:  make([]int32, len(ids)),
	}
	for i := range s.typ {
		s.typ[i] = 1 // default label, spec §3 TypeMap "absent -> default label 1"
	}
	if topo.Dim == 3 {
		s.v3 = make([]Vector3, len(ids))
	} else {
		s.v2 = make([]Vector2, len(ids))
	}
	for i, id := range ids {
		s.slot[id] = i
	}
	return s
}

// CellIDs returns the owned cell IDs in Store iteration order.
func (s *Store) CellIDs() []gridindex.CellID { return s.ids }

// Corners3 returns the corner vector for an owned 3-D cell.
func (s *Store) Corners3(id gridindex.CellID) (Vector3, bool) {
	i, ok := s.slot[id]
	if !ok {
		return Vector3{}, false
	}
	return s.v3[i], true
}

// Corners2 returns the corner vector for an owned 2-D cell.
func (s *Store) Corners2(id gridindex.CellID) (Vector2, bool) {
	i, ok := s.slot[id]
	if !ok {
		return Vector2{}, false
	}
	return s.v2[i], true
}

// Type returns the material label for an owned cell (default 1).
func (s *Store) Type(id gridindex.CellID) int32 {
	i, ok := s.slot[id]
	if !ok {
		return 1
	}
	return s.typ[i]
}

func (s *Store) setCorner3(id gridindex.CellID, ncorner int, v uint8) {
	i, ok := s.slot[id]
	if !ok {
		return
	}
	s.v3[i][ncorner] = v
}

func (s *Store) setCorner2(id gridindex.CellID, ncorner int, v uint8) {
	i, ok := s.slot[id]
	if !ok {
		return
	}
	s.v2[i][ncorner] = v
}

func (s *Store) setType(id gridindex.CellID, v int32) {
	i, ok := s.slot[id]
	if !ok {
		return
	}
	s.typ[i] = v
}

// assignCornerSample stores one corner-point sample into every owned cell
// that shares that corner, per spec §4.1: "walks the up to eight cells
// that share a given corner sample and stores the sample into the
// appropriate slot of each such cell's CornerVector". pix,piy,piz are the
// corner's lattice coordinates in [0,nx],[0,ny],[0,nz].
func (s *Store) assignCornerSample(pix, piy, piz int, val uint8) {
	nx, ny, nz := s.Topo.Nx, s.Topo.Ny, s.Topo.Nz
	if s.Topo.Dim == 3 {
		ncorner := 8
		for ciz := piz - 1; ciz <= piz; ciz++ {
			for ciy := piy - 1; ciy <= piy; ciy++ {
				for cix := pix - 1; cix <= pix; cix++ {
					ncorner--
					if cix < 0 || cix >= nx || ciy < 0 || ciy >= ny || ciz < 0 || ciz >= nz {
						continue
					}
					id := s.Topo.CellID(cix, ciy, ciz)
					s.setCorner3(id, ncorner, val)
				}
			}
		}
	} else {
		ncorner := 4
		for ciy := piy - 1; ciy <= piy; ciy++ {
			for cix := pix - 1; cix <= pix; cix++ {
				ncorner--
				if cix < 0 || cix >= nx || ciy < 0 || ciy >= ny {
					continue
				}
				id := s.Topo.CellID(cix, ciy, 0)
				s.setCorner2(id, ncorner, val)
			}
		}
	}
}

// assignTypeSample stores one per-cell type sample, if this rank owns
// the cell at the given lattice coordinates.
func (s *Store) assignTypeSample(cix, ciy, ciz int, val int32) {
	id := s.Topo.CellID(cix, ciy, ciz)
	s.setType(id, val)
}

// validateThreshold enforces spec §6's driver-invocation constraints on
// threshold: 0 < threshold < 255 and not integer-valued (spec §9:
// "avoids division-by-zero in EdgeInterpolator").
func validateThreshold(threshold float64) error {
	if threshold <= 0 || threshold >= 255 {
		return errs.Newf(errs.BadArguments, "threshold %g out of range (0,255)", threshold)
	}
	if float64(int64(threshold)) == threshold {
		return errs.Newf(errs.BadArguments, "integer threshold %g is not allowed", threshold)
	}
	return nil
}

// ValidateThreshold is the exported form of validateThreshold, used by
// driver.Config validation.
func ValidateThreshold(threshold float64) error { return validateThreshold(threshold) }
