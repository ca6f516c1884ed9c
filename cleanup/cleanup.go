// Package cleanup implements the face-based reconciliation protocol
// that removes duplicate triangles generated independently by the two
// cells sharing a cube face (spec §4.6), grounded directly on
// ReadISurf::cleanup_MC's local pass, cross-process pass and deferred
// compaction. It applies to 3-D triangles only; the driver runs no
// cleanup pass for 2-D segments.
package cleanup

import (
	"bytes"
	"encoding/gob"
	"sort"
	"sync"

	"github.com/distsurf/isosurf/errs"
	"github.com/distsurf/isosurf/exchange"
	"github.com/distsurf/isosurf/gridindex"
	"github.com/distsurf/isosurf/surf"
	"gonum.org/v1/gonum/spatial/r3"
)

const faceTol = 1e-9

// Rank bundles one rank's owned cells, its primitive store, and the
// shared topology/ownership view every rank agrees on.
type Rank struct {
	ID    int
	Topo  gridindex.Topology
	Store *surf.Store
}

// faceTally is the per-cell, per-face triangle count and the indices
// (into the rank's Store) of up to two triangles found on that face,
// mirroring ReadISurf::cleanup_MC's nfacetri/facetris arrays.
type faceTally struct {
	count [6]int
	idx   [6][2]int
}

// tallyFaces walks every primitive owned by a cell and assigns it to a
// cube face if all three vertices lie on that face's plane, matching
// Geometry::tri_on_hex_face's role in the original pass.
func tallyFaces(topo gridindex.Topology, cell gridindex.CellID, store *surf.Store) faceTally {
	var t faceTally
	lo, hi := topo.Bounds(cell)
	for _, idx := range store.CellPrimitives(cell) {
		p := store.At(idx)
		face, ok := primitiveFace(p, lo, hi)
		if !ok {
			continue
		}
		if t.count[face] < 2 {
			t.idx[face][t.count[face]] = idx
		}
		t.count[face]++
	}
	return t
}

func primitiveFace(p surf.Primitive, lo, hi r3.Vec) (int, bool) {
	pts := [3]surf.Vec{p.A, p.B, p.C}
	onPlane := func(coord func(surf.Vec) float64, v float64) bool {
		for _, pt := range pts {
			if abs(coord(pt)-v) > faceTol {
				return false
			}
		}
		return true
	}
	switch {
	case onPlane(func(v surf.Vec) float64 { return v.X }, lo.X):
		return gridindex.XLO, true
	case onPlane(func(v surf.Vec) float64 { return v.X }, hi.X):
		return gridindex.XHI, true
	case onPlane(func(v surf.Vec) float64 { return v.Y }, lo.Y):
		return gridindex.YLO, true
	case onPlane(func(v surf.Vec) float64 { return v.Y }, hi.Y):
		return gridindex.YHI, true
	case onPlane(func(v surf.Vec) float64 { return v.Z }, lo.Z):
		return gridindex.ZLO, true
	case onPlane(func(v surf.Vec) float64 { return v.Z }, hi.Z):
		return gridindex.ZHI, true
	}
	return 0, false
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// inwardNormal applies spec §4.6's rule: a triangle's normal is
// "inward" on a face if it points into the cell, i.e. the component
// along that face's axis has the sign that opposes the face's outward
// direction (negative on a HI face, positive on a LO face).
func inwardNormal(p surf.Primitive, face int) bool {
	idim := face / 2
	var comp float64
	switch idim {
	case 0:
		comp = p.Normal.X
	case 1:
		comp = p.Normal.Y
	default:
		comp = p.Normal.Z
	}
	if face%2 == 1 {
		return comp < 0
	}
	return comp > 0
}

// sendRecord is the wire payload for the cross-process pass, equivalent
// to SPARTA's SendDatum.
type sendRecord struct {
	OtherCell    gridindex.CellID
	OtherFace    int
	InwardNormal bool
	Tri1, Tri2   surf.Primitive
}

func encodeRecord(r sendRecord) []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		panic(err) // gob-encoding a plain value tree never fails
	}
	return buf.Bytes()
}

func decodeRecord(b []byte) (sendRecord, error) {
	var r sendRecord
	err := gob.NewDecoder(bytes.NewReader(b)).Decode(&r)
	return r, err
}

// pendingDelete accumulates (rank, store-index) pairs to delete after
// both the local and cross-process passes complete, so indices computed
// earlier in the pass stay valid throughout - spec §4.7's deferred
// compaction. A shared face pair is reached once from each side's own
// cell/face iteration, so add dedupes per (rank, index): scheduling the
// same live index twice would make Store.DeleteIndices's swap-with-last
// compaction delete whatever got swapped into that slot by the first
// pass instead of a no-op.
type pendingDelete struct {
	byRank map[int][]int
	seen   map[int]map[int]bool
}

func newPendingDelete() *pendingDelete {
	return &pendingDelete{byRank: make(map[int][]int), seen: make(map[int]map[int]bool)}
}

func (p *pendingDelete) add(rank int, idx int) {
	if p.seen[rank] == nil {
		p.seen[rank] = make(map[int]bool)
	}
	if p.seen[rank][idx] {
		return
	}
	p.seen[rank][idx] = true
	p.byRank[rank] = append(p.byRank[rank], idx)
}

// Run executes the full reconciliation protocol across every rank:
// local pass for same-rank neighbor pairs, a cross-process exchange
// round for cross-rank pairs, then deferred compaction of every rank's
// Store. exchangers supplies one Exchanger per rank for the
// cross-process round (e.g. exchange.NewInProcess(len(ranks)).Rank(i));
// since InProcess.Exchange is a barrier, Run itself calls every rank's
// Exchanger concurrently, one goroutine per rank.
func Run(ranks []*Rank, exchangers func(rankID int) exchange.Exchanger) error {
	byID := make(map[int]*Rank, len(ranks))
	for _, r := range ranks {
		byID[r.ID] = r
	}

	dels := newPendingDelete()
	sendTo := make(map[int][]int)      // rankID -> destination rank IDs
	sendPayload := make(map[int][][]byte)

	for _, r := range ranks {
		tallies := make(map[gridindex.CellID]faceTally)
		for _, cell := range ownedCellsWithSurf(r) {
			tallies[cell] = tallyFaces(r.Topo, cell, r.Store)
		}

		for cell, tally := range tallies {
			for face := 0; face < 6; face++ {
				if tally.count[face] == 0 {
					continue
				}
				if tally.count[face] != 2 {
					return errs.WithContext(errs.NonPairedFace, "cell face does not have exactly two triangles",
						map[string]any{"cell": cell, "face": face, "count": tally.count[face]})
				}
			}
		}

		for cell, tally := range tallies {
			for face := 0; face < 6; face++ {
				if tally.count[face] != 2 {
					continue
				}
				otherCell, ok := r.Topo.FaceNeighbor(cell, face)
				if !ok {
					return errs.WithContext(errs.NonPairedFace, "paired face lies on global boundary",
						map[string]any{"cell": cell, "face": face})
				}
				otherFace := gridindex.OppositeFace(face)
				otherRankID := r.Topo.Owner(otherCell)
				tri1 := r.Store.At(tally.idx[face][0])
				in := inwardNormal(tri1, face)

				if otherRankID == r.ID {
					otherRank := byID[otherRankID]
					reconcileLocal(r, otherRank, cell, face, otherCell, otherFace, tally, in, dels)
					continue
				}

				rec := sendRecord{OtherCell: otherCell, OtherFace: otherFace, InwardNormal: in, Tri1: tri1, Tri2: r.Store.At(tally.idx[face][1])}
				sendTo[r.ID] = append(sendTo[r.ID], otherRankID)
				sendPayload[r.ID] = append(sendPayload[r.ID], encodeRecord(rec))
				if !in {
					dels.add(r.ID, tally.idx[face][0])
					dels.add(r.ID, tally.idx[face][1])
				}
			}
		}
	}

	// Cross-process pass: exchange all pending records, one Exchanger
	// call per rank. A barrier-style Exchanger (e.g. exchange.InProcess)
	// requires every rank to post before any rank can read its mailbox,
	// so every rank's call must run concurrently even though Run itself
	// is driving all ranks from a single goroutine.
	recvPayloads := make(map[int][][]byte)
	errCh := make(chan error, len(ranks))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, r := range ranks {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, payloads, err := exchangers(r.ID).Exchange(sendTo[r.ID], sendPayload[r.ID])
			if err != nil {
				errCh <- err
				return
			}
			mu.Lock()
			recvPayloads[r.ID] = payloads
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return err
	}

	for _, r := range ranks {
		tallies := make(map[gridindex.CellID]faceTally)
		for _, cell := range ownedCellsWithSurf(r) {
			tallies[cell] = tallyFaces(r.Topo, cell, r.Store)
		}
		for _, payload := range recvPayloads[r.ID] {
			rec, err := decodeRecord(payload)
			if err != nil {
				return err
			}
			if err := applyReceived(r, rec, tallies, dels); err != nil {
				return err
			}
		}
	}

	for _, r := range ranks {
		r.Store.DeleteIndices(dels.byRank[r.ID])
	}
	return nil
}

// reconcileLocal implements the otherproc==me branch of
// ReadISurf::cleanup_MC: if both cells have 2 tris on the shared face,
// delete all four; otherwise the cell whose tri normal matches
// "inward" keeps its 2 tris and the other cell's 2 (if any) are
// discarded, with the non-inward side always the one yielding.
func reconcileLocal(r, other *Rank, cell gridindex.CellID, face int, otherCell gridindex.CellID, otherFace int, tally faceTally, in bool, dels *pendingDelete) {
	otherTally := tallyFaces(other.Topo, otherCell, other.Store)
	ntriOther := otherTally.count[otherFace]

	if ntriOther == 0 && in {
		// this cell's 2 tris stand; nothing to do.
		return
	}
	if ntriOther == 2 {
		dels.add(r.ID, tally.idx[face][0])
		dels.add(r.ID, tally.idx[face][1])
		dels.add(other.ID, otherTally.idx[otherFace][0])
		dels.add(other.ID, otherTally.idx[otherFace][1])
		return
	}
	// ntriOther == 0 and !in: this cell's tris are not inward-facing and
	// the neighbor has none, so this cell's 2 tris are reassigned to the
	// neighbor cell (spec §4.6's "cell that matches inward normal is
	// assigned the tris").
	tri1 := r.Store.At(tally.idx[face][0])
	tri2 := r.Store.At(tally.idx[face][1])
	tri1.Cell, tri2.Cell = otherCell, otherCell
	dels.add(r.ID, tally.idx[face][0])
	dels.add(r.ID, tally.idx[face][1])
	other.Store.Add(otherCell, []surf.Primitive{tri1, tri2})
}

// applyReceived implements the receive-side loop at the end of
// ReadISurf::cleanup_MC (lines following "loop over list of received
// face/tri info").
func applyReceived(r *Rank, rec sendRecord, tallies map[gridindex.CellID]faceTally, dels *pendingDelete) error {
	cell, face := rec.OtherCell, rec.OtherFace
	tally, ok := tallies[cell]
	if !ok {
		tally = tallyFaces(r.Topo, cell, r.Store)
		tallies[cell] = tally
	}

	// The local pass already required every face to have 0 or 2
	// triangles before anything was sent; a receive-side face with
	// exactly one isn't a data problem (NonPairedFace covers that, on
	// the sending rank) but a bookkeeping inconsistency in this pass
	// itself - a primitive assigned to the wrong cell/face, say.
	if tally.count[face] != 0 && tally.count[face] != 2 {
		return errs.WithContext(errs.MissingSurfOnCell,
			"cell face has neither zero nor two triangles during cross-process reconciliation",
			map[string]any{"cell": cell, "face": face, "count": tally.count[face]})
	}

	if tally.count[face] == 0 && rec.InwardNormal {
		return nil
	}
	if tally.count[face] == 0 {
		tri1, tri2 := rec.Tri1, rec.Tri2
		tri1.Cell, tri2.Cell = cell, cell
		r.Store.Add(cell, []surf.Primitive{tri1, tri2})
		return nil
	}

	// tally.count[face] == 2: both sides have 2 tris on the shared face.
	mine := r.Store.At(tally.idx[face][0])
	in := inwardNormal(mine, face)
	if !in {
		return nil // sender already deleted or will delete its own copy.
	}
	dels.add(r.ID, tally.idx[face][0])
	dels.add(r.ID, tally.idx[face][1])
	return nil
}

// ownedCellsWithSurf returns the subset of a rank's owned cells that
// currently have at least one live primitive, to avoid walking empty
// cells during the face tally.
func ownedCellsWithSurf(r *Rank) []gridindex.CellID {
	seen := make(map[gridindex.CellID]bool)
	var out []gridindex.CellID
	for _, p := range r.Store.All() {
		if !seen[p.Cell] {
			seen[p.Cell] = true
			out = append(out, p.Cell)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
