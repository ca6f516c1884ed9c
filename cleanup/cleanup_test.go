package cleanup

import (
	"testing"

	"github.com/distsurf/isosurf/errs"
	"github.com/distsurf/isosurf/exchange"
	"github.com/distsurf/isosurf/gridindex"
	"github.com/distsurf/isosurf/surf"
	"gonum.org/v1/gonum/spatial/r3"
)

// twoCellTopo is a 2x1x1 lattice: cell0 = [0,1]x[0,1]x[0,1], cell1 =
// [1,2]x[0,1]x[0,1], sharing the x=1 face (cell0's XHI, cell1's XLO).
func twoCellTopo(numRanks int, partition gridindex.PartitionFunc) gridindex.Topology {
	return gridindex.Topology{Dim: 3, Nx: 2, Ny: 1, Nz: 1, Hi: r3.Vec{X: 2, Y: 1, Z: 1}, NumRanks: numRanks, Partition: partition}
}

// facePair returns two triangles tiling the shared x=1 face, with the
// given outward-facing sign (true => normal points +X, false => -X).
func facePair(cell gridindex.CellID, normalX float64) []surf.Primitive {
	n := surf.Vec{X: normalX}
	return []surf.Primitive{
		{Cell: cell, A: surf.Vec{X: 1, Y: 0, Z: 0}, B: surf.Vec{X: 1, Y: 1, Z: 0}, C: surf.Vec{X: 1, Y: 0, Z: 1}, Normal: n, Is3D: true},
		{Cell: cell, A: surf.Vec{X: 1, Y: 1, Z: 0}, B: surf.Vec{X: 1, Y: 1, Z: 1}, C: surf.Vec{X: 1, Y: 0, Z: 1}, Normal: n, Is3D: true},
	}
}

func samePartition(ix, iy, iz, nx, ny, nz, numRanks int) int { return 0 }

func TestRunDeletesAllFourWhenBothSidesHaveTwo(t *testing.T) {
	topo := twoCellTopo(1, samePartition)
	store := surf.NewStore()
	cell0, cell1 := topo.CellID(0, 0, 0), topo.CellID(1, 0, 0)
	store.Add(cell0, facePair(cell0, -1)) // inward for cell0's XHI face
	store.Add(cell1, facePair(cell1, -1)) // NOT inward for cell1's XLO face -> both sides claim 2, so all 4 go

	rank := &Rank{ID: 0, Topo: topo, Store: store}
	if err := Run([]*Rank{rank}, func(int) exchange.Exchanger { return exchange.NewInProcess(1).Rank(0) }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 (both sides had 2 tris, all four should be deleted)", store.Len())
	}
}

func TestRunKeepsInwardSideWhenOtherHasNone(t *testing.T) {
	topo := twoCellTopo(1, samePartition)
	store := surf.NewStore()
	cell0 := topo.CellID(0, 0, 0)
	// cell0's XHI face is inward when Normal.X < 0.
	store.Add(cell0, facePair(cell0, -1))

	rank := &Rank{ID: 0, Topo: topo, Store: store}
	if err := Run([]*Rank{rank}, func(int) exchange.Exchanger { return exchange.NewInProcess(1).Rank(0) }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (inward side should stand unchanged)", store.Len())
	}
	cell1 := topo.CellID(1, 0, 0)
	if len(store.CellPrimitives(cell1)) != 0 {
		t.Fatalf("cell1 should own no primitives, got %v", store.CellPrimitives(cell1))
	}
}

func TestRunReassignsOutwardSideToNeighborWhenOtherHasNone(t *testing.T) {
	topo := twoCellTopo(1, samePartition)
	store := surf.NewStore()
	cell0 := topo.CellID(0, 0, 0)
	// Normal.X > 0 is NOT inward for cell0's XHI face (inward needs < 0).
	store.Add(cell0, facePair(cell0, 1))

	rank := &Rank{ID: 0, Topo: topo, Store: store}
	if err := Run([]*Rank{rank}, func(int) exchange.Exchanger { return exchange.NewInProcess(1).Rank(0) }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (triangles should survive, reassigned to the neighbor cell)", store.Len())
	}
	cell1 := topo.CellID(1, 0, 0)
	owned := store.CellPrimitives(cell1)
	if len(owned) != 2 {
		t.Fatalf("cell1 should now own 2 primitives, got %v", owned)
	}
	for _, idx := range owned {
		if store.At(idx).Cell != cell1 {
			t.Fatalf("reassigned primitive still has Cell=%d", store.At(idx).Cell)
		}
	}
}

func TestRunRejectsUnpairedFace(t *testing.T) {
	topo := twoCellTopo(1, samePartition)
	store := surf.NewStore()
	cell0 := topo.CellID(0, 0, 0)
	// Only one triangle on the shared face: violates the 0-or-2 invariant.
	store.Add(cell0, facePair(cell0, -1)[:1])

	rank := &Rank{ID: 0, Topo: topo, Store: store}
	err := Run([]*Rank{rank}, func(int) exchange.Exchanger { return exchange.NewInProcess(1).Rank(0) })
	if !errs.Is(err, errs.NonPairedFace) {
		t.Fatalf("err = %v, want NonPairedFace", err)
	}
}

func crossProcessPartition(ix, iy, iz, nx, ny, nz, numRanks int) int { return ix }

// TestRunDropsCrossRankDuplicatePair covers the case where both ranks
// independently extracted 2 triangles on the shared face: like the
// same-process case, this is treated as a duplicate artifact and every
// copy is dropped, regardless of which side's normal happens to read
// as inward.
func TestRunDropsCrossRankDuplicatePair(t *testing.T) {
	topo := twoCellTopo(2, crossProcessPartition)
	cell0, cell1 := topo.CellID(0, 0, 0), topo.CellID(1, 0, 0)

	store0, store1 := surf.NewStore(), surf.NewStore()
	store0.Add(cell0, facePair(cell0, -1)) // inward on cell0's side
	store1.Add(cell1, facePair(cell1, -1)) // NOT inward on cell1's side, but still a duplicate claim

	rank0 := &Rank{ID: 0, Topo: topo, Store: store0}
	rank1 := &Rank{ID: 1, Topo: topo, Store: store1}

	ip := exchange.NewInProcess(2)
	err := Run([]*Rank{rank0, rank1}, func(id int) exchange.Exchanger { return ip.Rank(id) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store0.Len() != 0 {
		t.Fatalf("rank0 Len() = %d, want 0", store0.Len())
	}
	if store1.Len() != 0 {
		t.Fatalf("rank1 Len() = %d, want 0", store1.Len())
	}
}

// TestRunKeepsCrossRankInwardSideWhenOtherHasNone mirrors
// TestRunKeepsInwardSideWhenOtherHasNone across the rank boundary: the
// neighbor rank owns cell1 but never extracted anything on the shared
// face, so cell0's inward-facing pair should stand untouched.
func TestRunKeepsCrossRankInwardSideWhenOtherHasNone(t *testing.T) {
	topo := twoCellTopo(2, crossProcessPartition)
	cell0 := topo.CellID(0, 0, 0)

	store0, store1 := surf.NewStore(), surf.NewStore()
	store0.Add(cell0, facePair(cell0, -1)) // inward on cell0's side

	rank0 := &Rank{ID: 0, Topo: topo, Store: store0}
	rank1 := &Rank{ID: 1, Topo: topo, Store: store1}

	ip := exchange.NewInProcess(2)
	err := Run([]*Rank{rank0, rank1}, func(id int) exchange.Exchanger { return ip.Rank(id) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store0.Len() != 2 {
		t.Fatalf("rank0 Len() = %d, want 2", store0.Len())
	}
	if store1.Len() != 0 {
		t.Fatalf("rank1 Len() = %d, want 0", store1.Len())
	}
}

// TestApplyReceivedRejectsStaleOneTriangleTally exercises applyReceived
// directly (white-box, same package) for the bookkeeping state spec §7
// calls out as distinct from NonPairedFace: NonPairedFace is raised on
// the sending rank before anything is ever exchanged, for a face that
// never had a matching pair locally. MissingSurfOnCell instead covers
// the receive side finding a face tally of exactly one after the local
// pass already guaranteed every owned face was 0 or 2 - a state that
// should be unreachable unless the pass's own bookkeeping (e.g. a
// primitive landing on the wrong cell/face between the two tallies)
// went wrong.
func TestApplyReceivedRejectsStaleOneTriangleTally(t *testing.T) {
	topo := twoCellTopo(1, samePartition)
	store := surf.NewStore()
	cell1 := topo.CellID(1, 0, 0)
	// One triangle already sits on cell1's XLO face - the state
	// applyReceived should never see, given the invariant the local pass
	// enforces on every tallyFaces call preceding it.
	store.Add(cell1, facePair(cell1, -1)[:1])

	rank := &Rank{ID: 0, Topo: topo, Store: store}
	tallies := map[gridindex.CellID]faceTally{
		cell1: tallyFaces(topo, cell1, store),
	}
	rec := sendRecord{
		OtherCell:    cell1,
		OtherFace:    gridindex.XLO,
		InwardNormal: true,
		Tri1:         facePair(cell1, 1)[0],
		Tri2:         facePair(cell1, 1)[1],
	}
	err := applyReceived(rank, rec, tallies, newPendingDelete())
	if !errs.Is(err, errs.MissingSurfOnCell) {
		t.Fatalf("err = %v, want MissingSurfOnCell", err)
	}
}

// TestRunAdoptsCrossRankOutwardSideWhenOtherHasNone mirrors
// TestRunReassignsOutwardSideToNeighborWhenOtherHasNone across the rank
// boundary: cell0's pair is not inward and cell1 has none of its own,
// so the neighbor rank should adopt the pair onto cell1.
func TestRunAdoptsCrossRankOutwardSideWhenOtherHasNone(t *testing.T) {
	topo := twoCellTopo(2, crossProcessPartition)
	cell0, cell1 := topo.CellID(0, 0, 0), topo.CellID(1, 0, 0)

	store0, store1 := surf.NewStore(), surf.NewStore()
	store0.Add(cell0, facePair(cell0, 1)) // NOT inward on cell0's side

	rank0 := &Rank{ID: 0, Topo: topo, Store: store0}
	rank1 := &Rank{ID: 1, Topo: topo, Store: store1}

	ip := exchange.NewInProcess(2)
	err := Run([]*Rank{rank0, rank1}, func(id int) exchange.Exchanger { return ip.Rank(id) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store0.Len() != 0 {
		t.Fatalf("rank0 Len() = %d, want 0", store0.Len())
	}
	if store1.Len() != 2 {
		t.Fatalf("rank1 Len() = %d, want 2", store1.Len())
	}
	owned := store1.CellPrimitives(cell1)
	if len(owned) != 2 {
		t.Fatalf("cell1 should own 2 adopted primitives, got %v", owned)
	}
}
