package gridindex

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func testTopo() Topology {
	return Topology{Dim: 3, Nx: 4, Ny: 4, Nz: 4, Hi: r3.Vec{X: 4, Y: 4, Z: 4}, NumRanks: 2}
}

func TestCellIDRoundTrip(t *testing.T) {
	topo := testTopo()
	for iz := 0; iz < topo.Nz; iz++ {
		for iy := 0; iy < topo.Ny; iy++ {
			for ix := 0; ix < topo.Nx; ix++ {
				id := topo.CellID(ix, iy, iz)
				gx, gy, gz := topo.Decode(id)
				if gx != ix || gy != iy || gz != iz {
					t.Fatalf("Decode(CellID(%d,%d,%d)) = (%d,%d,%d)", ix, iy, iz, gx, gy, gz)
				}
			}
		}
	}
}

func TestOwnedCellsPartitionIsExhaustive(t *testing.T) {
	topo := testTopo()
	seen := make(map[CellID]bool)
	for rank := 0; rank < topo.NumRanks; rank++ {
		for _, id := range topo.OwnedCells(rank) {
			if seen[id] {
				t.Fatalf("cell %d owned by more than one rank", id)
			}
			seen[id] = true
			if topo.Owner(id) != rank {
				t.Fatalf("OwnedCells(%d) returned cell %d but Owner says %d", rank, id, topo.Owner(id))
			}
		}
	}
	total := topo.Nx * topo.Ny * topo.Nz
	if len(seen) != total {
		t.Fatalf("got %d owned cells total, want %d", len(seen), total)
	}
}

func TestFaceNeighborBoundary(t *testing.T) {
	topo := testTopo()
	corner := topo.CellID(0, 0, 0)
	if _, ok := topo.FaceNeighbor(corner, XLO); ok {
		t.Error("XLO face of corner cell should be a boundary")
	}
	if _, ok := topo.FaceNeighbor(corner, YLO); ok {
		t.Error("YLO face of corner cell should be a boundary")
	}
	nb, ok := topo.FaceNeighbor(corner, XHI)
	if !ok {
		t.Fatal("XHI face of corner cell should have a neighbor")
	}
	if nb != topo.CellID(1, 0, 0) {
		t.Fatalf("XHI neighbor = %d, want cell (1,0,0)", nb)
	}
}

func TestFaceNeighborIsSymmetric(t *testing.T) {
	topo := testTopo()
	id := topo.CellID(1, 2, 1)
	for face := 0; face < 6; face++ {
		nb, ok := topo.FaceNeighbor(id, face)
		if !ok {
			continue
		}
		back, ok := topo.FaceNeighbor(nb, OppositeFace(face))
		if !ok || back != id {
			t.Fatalf("face %d: neighbor %d does not point back to %d (got %d, ok=%v)", face, nb, id, back, ok)
		}
	}
}
