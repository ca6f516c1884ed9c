// Package surf holds the extracted surface primitives bound to grid
// cells (spec §4.4), a compactable store for them (spec §4.7's deferred
// deletion with back-pointer repair), and STL/OBJ export adapted from
// the teacher's render/stl.go.
package surf

import "github.com/distsurf/isosurf/gridindex"

// Primitive is one extracted triangle (3-D) or line segment (2-D),
// bound to the cell it was generated in. 2-D primitives use only A and
// B; C is the zero vector and unused.
type Primitive struct {
	Cell   gridindex.CellID
	Label  int32
	A, B, C Vec
	Normal Vec
	Is3D   bool
}

// Vec is a plain 3-tuple so this package has no import-time dependency
// on gonum beyond what callers already bring in through cubes/squares;
// conversions happen at the call site.
type Vec struct{ X, Y, Z float64 }

// Store holds every Primitive currently live for a rank, indexed by
// cell so deletion can swap the removed element with the store's last
// element and repair the moved element's cell index in O(per-cell
// primitive count), matching spec §4.7's compaction algorithm
// (grounded on the descending-order deletion + swap-with-last loop at
// the end of ReadISurf::cleanup_MC).
type Store struct {
	prims    []Primitive
	byCell   map[gridindex.CellID][]int // cell -> indices into prims
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{byCell: make(map[gridindex.CellID][]int)}
}

// Len returns the number of live primitives.
func (s *Store) Len() int { return len(s.prims) }

// All returns the live primitives in index order. The returned slice
// aliases Store's backing array and must not be retained across a call
// that mutates the Store.
func (s *Store) All() []Primitive { return s.prims }

// Add appends primitives for a single cell.
func (s *Store) Add(cell gridindex.CellID, prims []Primitive) {
	for _, p := range prims {
		idx := len(s.prims)
		s.prims = append(s.prims, p)
		s.byCell[cell] = append(s.byCell[cell], idx)
	}
}

// CellPrimitives returns the current store indices of a cell's
// primitives. The returned slice aliases Store's internal bookkeeping
// and must not be mutated by the caller.
func (s *Store) CellPrimitives(cell gridindex.CellID) []int {
	return s.byCell[cell]
}

// At returns the primitive currently stored at index idx.
func (s *Store) At(idx int) Primitive { return s.prims[idx] }

// DeleteIndices removes the primitives at the given indices. indices
// need not be sorted; DeleteIndices sorts a private copy into
// descending order and applies a swap-with-last deletion for each, so
// indices computed before the call remain valid for every entry still
// to be processed - this is the same ordering discipline
// ReadISurf::cleanup_MC's "dellist" pass uses before compacting tris[].
func (s *Store) DeleteIndices(indices []int) {
	if len(indices) == 0 {
		return
	}
	sorted := append([]int(nil), indices...)
	sortDescending(sorted)
	for _, idx := range sorted {
		s.deleteAt(idx)
	}
}

func (s *Store) deleteAt(idx int) {
	last := len(s.prims) - 1
	if idx < 0 || idx > last {
		return
	}
	removed := s.prims[idx]
	s.removeCellIndex(removed.Cell, idx)
	if idx != last {
		moved := s.prims[last]
		s.prims[idx] = moved
		s.replaceCellIndex(moved.Cell, last, idx)
	}
	s.prims = s.prims[:last]
}

func (s *Store) removeCellIndex(cell gridindex.CellID, idx int) {
	list := s.byCell[cell]
	for i, v := range list {
		if v == idx {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.byCell, cell)
	} else {
		s.byCell[cell] = list
	}
}

func (s *Store) replaceCellIndex(cell gridindex.CellID, oldIdx, newIdx int) {
	list := s.byCell[cell]
	for i, v := range list {
		if v == oldIdx {
			list[i] = newIdx
			return
		}
	}
}

func sortDescending(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1] < a[j]; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}
