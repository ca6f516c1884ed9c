// Package gridindex is the reference implementation of the GridIndex
// service the rest of the module treats as an external collaborator
// (see spec §1: "the core calls into ... a GridIndex service (cell-ID
// lookups, face-neighbour queries) but does not implement them"). A real
// deployment backs that role with the surrounding particle-simulation grid;
// this package supplies a pure-arithmetic uniform-lattice implementation
// so the core is independently testable.
package gridindex

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// CellID identifies a cell with a 64-bit ID, per spec §3. ID 0 is never
// issued; IDs are 1 + the cell's x-fastest linear lattice index.
type CellID uint64

// Face indices, matching spec §4.6's six cube faces. idim = face/2,
// face%2==0 is the lo side of that axis.
const (
	XLO = 0
	XHI = 1
	YLO = 2
	YHI = 3
	ZLO = 4
	ZHI = 5
)

// PartitionFunc assigns an owning rank to a cell given its lattice
// coordinates and the global extent. Implementations must be a pure
// function of their arguments: the cleanup protocol's determinism
// (spec §5 "Ordering") depends on every rank computing identical
// ownership decisions from identical inputs.
type PartitionFunc func(ix, iy, iz, nx, ny, nz, numRanks int) int

// SlabPartition is the default decomposition: contiguous slabs along the
// slowest varying axis (z in 3-D, y in 2-D). It is the simplest partition
// that still produces genuine cross-rank shared faces, which is what the
// cleanup protocol's cross-process pass needs to be exercised.
func SlabPartition(ix, iy, iz, nx, ny, nz, numRanks int) int {
	if numRanks <= 1 {
		return 0
	}
	slow := iz
	n := nz
	if n <= 1 {
		slow, n = iy, ny
	}
	per := (n + numRanks - 1) / numRanks
	if per == 0 {
		per = 1
	}
	rank := slow / per
	if rank >= numRanks {
		rank = numRanks - 1
	}
	_ = ix
	return rank
}

// Topology is the reference GridIndex: a uniform lattice of nx*ny*nz cells
// (nz==1 in 2-D) spanning [Lo,Hi], decomposed across NumRanks by Partition.
type Topology struct {
	Dim        int
	Nx, Ny, Nz int
	Lo, Hi     r3.Vec
	NumRanks   int
	Partition  PartitionFunc
}

func (t Topology) partition() PartitionFunc {
	if t.Partition != nil {
		return t.Partition
	}
	return SlabPartition
}

// CellSize returns the size of a single cell along each axis.
func (t Topology) CellSize() r3.Vec {
	return r3.Vec{
		X: (t.Hi.X - t.Lo.X) / float64(t.Nx),
		Y: (t.Hi.Y - t.Lo.Y) / float64(t.Ny),
		Z: (t.Hi.Z - t.Lo.Z) / float64(maxInt(t.Nz, 1)),
	}
}

// CellID returns the ID of the cell at lattice coordinates (ix,iy,iz).
func (t Topology) CellID(ix, iy, iz int) CellID {
	return CellID(1 + int64(iz)*int64(t.Nx)*int64(t.Ny) + int64(iy)*int64(t.Nx) + int64(ix))
}

// Decode recovers the lattice coordinates of a cell ID produced by CellID.
func (t Topology) Decode(id CellID) (ix, iy, iz int) {
	lin := int64(id) - 1
	ix = int(lin % int64(t.Nx))
	iy = int((lin / int64(t.Nx)) % int64(t.Ny))
	iz = int(lin / (int64(t.Nx) * int64(t.Ny)))
	return
}

// Bounds returns the axis-aligned lo/hi corners of a cell.
func (t Topology) Bounds(id CellID) (lo, hi r3.Vec) {
	ix, iy, iz := t.Decode(id)
	sz := t.CellSize()
	lo = r3.Vec{X: t.Lo.X + float64(ix)*sz.X, Y: t.Lo.Y + float64(iy)*sz.Y, Z: t.Lo.Z + float64(iz)*sz.Z}
	hi = r3.Vec{X: lo.X + sz.X, Y: lo.Y + sz.Y, Z: lo.Z + sz.Z}
	if t.Dim == 2 {
		lo.Z, hi.Z = 0, 0
	}
	return lo, hi
}

// Owner returns the rank that owns a cell.
func (t Topology) Owner(id CellID) int {
	ix, iy, iz := t.Decode(id)
	return t.partition()(ix, iy, iz, t.Nx, t.Ny, t.Nz, maxInt(t.NumRanks, 1))
}

// OwnedCells enumerates every cell ID owned by rank.
func (t Topology) OwnedCells(rank int) []CellID {
	var ids []CellID
	nz := maxInt(t.Nz, 1)
	for iz := 0; iz < nz; iz++ {
		for iy := 0; iy < t.Ny; iy++ {
			for ix := 0; ix < t.Nx; ix++ {
				id := t.CellID(ix, iy, iz)
				if t.Owner(id) == rank {
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}

// FaceNeighbor returns the neighbouring cell across the given face, and
// false if that face lies on the outer boundary of the global lattice.
func (t Topology) FaceNeighbor(id CellID, face int) (CellID, bool) {
	ix, iy, iz := t.Decode(id)
	switch face {
	case XLO:
		if ix == 0 {
			return 0, false
		}
		ix--
	case XHI:
		if ix == t.Nx-1 {
			return 0, false
		}
		ix++
	case YLO:
		if iy == 0 {
			return 0, false
		}
		iy--
	case YHI:
		if iy == t.Ny-1 {
			return 0, false
		}
		iy++
	case ZLO:
		if t.Dim != 3 || iz == 0 {
			return 0, false
		}
		iz--
	case ZHI:
		if t.Dim != 3 || iz == maxInt(t.Nz, 1)-1 {
			return 0, false
		}
		iz++
	default:
		panic(fmt.Sprintf("gridindex: invalid face %d", face))
	}
	return t.CellID(ix, iy, iz), true
}

// OppositeFace returns the face index on the neighbouring cell that abuts
// face on this cell (spec §4.6: "otherface = iface-1" / "iface+1").
func OppositeFace(face int) int {
	if face%2 == 0 {
		return face + 1
	}
	return face - 1
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
