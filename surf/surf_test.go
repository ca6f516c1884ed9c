package surf

import "testing"

func TestAddAndAllPreservesInsertionOrder(t *testing.T) {
	s := NewStore()
	s.Add(1, []Primitive{{Cell: 1, Label: 1}, {Cell: 1, Label: 2}})
	s.Add(2, []Primitive{{Cell: 2, Label: 3}})
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	all := s.All()
	for i, want := range []int32{1, 2, 3} {
		if all[i].Label != want {
			t.Errorf("All()[%d].Label = %d, want %d", i, all[i].Label, want)
		}
	}
}

func TestDeleteIndicesRepairsCellIndex(t *testing.T) {
	s := NewStore()
	s.Add(1, []Primitive{{Cell: 1, Label: 1}, {Cell: 1, Label: 2}})
	s.Add(2, []Primitive{{Cell: 2, Label: 3}})

	// delete cell 1's first primitive (index 0); the last element
	// (cell 2's primitive, index 2) should be swapped into its place and
	// byCell[2] must be repaired to point at the new index.
	s.DeleteIndices([]int{0})

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	cell1 := s.CellPrimitives(1)
	if len(cell1) != 1 {
		t.Fatalf("cell 1 has %d primitives, want 1", len(cell1))
	}
	if got := s.At(cell1[0]).Label; got != 2 {
		t.Fatalf("remaining cell-1 primitive has label %d, want 2", got)
	}
	cell2 := s.CellPrimitives(2)
	if len(cell2) != 1 {
		t.Fatalf("cell 2 has %d primitives, want 1", len(cell2))
	}
	if got := s.At(cell2[0]).Label; got != 3 {
		t.Fatalf("cell-2 primitive has label %d, want 3", got)
	}
}

func TestDeleteIndicesMultipleFromSameCell(t *testing.T) {
	s := NewStore()
	s.Add(1, []Primitive{{Cell: 1, Label: 1}, {Cell: 1, Label: 2}, {Cell: 1, Label: 3}, {Cell: 1, Label: 4}})

	// delete indices out of order; DeleteIndices must sort descending
	// internally so earlier deletions don't invalidate later indices.
	s.DeleteIndices([]int{1, 3})

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	remaining := map[int32]bool{}
	for _, p := range s.All() {
		remaining[p.Label] = true
	}
	if !remaining[1] || !remaining[3] {
		t.Fatalf("remaining labels = %v, want {1,3}", remaining)
	}
	if len(s.CellPrimitives(1)) != 2 {
		t.Fatalf("cell 1 index list has %d entries, want 2", len(s.CellPrimitives(1)))
	}
}

func TestDeleteIndicesAllFromCellRemovesCellEntry(t *testing.T) {
	s := NewStore()
	s.Add(1, []Primitive{{Cell: 1, Label: 1}})
	s.DeleteIndices([]int{0})
	if got := s.CellPrimitives(1); len(got) != 0 {
		t.Fatalf("CellPrimitives(1) = %v, want empty", got)
	}
}
