package corner

import (
	"encoding/binary"
	"io"

	"github.com/distsurf/isosurf/errs"
)

// chunkBytes mirrors SPARTA's read_isurf.cpp CHUNK constant: corner and
// type files are read and broadcast in fixed-size windows rather than in
// one shot, so a single rank reading a multi-gigabyte lattice never has
// to hold the whole file in memory at once.
const chunkBytes = 8192

// Broadcaster fans a chunk of freshly read bytes out to every rank. A
// production deployment backs this with a real collective broadcast
// (e.g. MPI_Bcast); ReadCorners and ReadTypes call it once per
// chunkBytes-sized window
// regardless of how many ranks exist, so swapping the transport never
// touches the ingestion logic.
type Broadcaster interface {
	Bcast(chunk []byte) error
}

// LocalBroadcaster is the in-process reference Broadcaster: it hands the
// same chunk slice to every sink immediately, useful for tests and for a
// single-process multi-rank simulation.
type LocalBroadcaster struct {
	Sinks []func(chunk []byte)
}

// Bcast implements Broadcaster.
func (b LocalBroadcaster) Bcast(chunk []byte) error {
	for _, sink := range b.Sinks {
		sink(chunk)
	}
	return nil
}

// header is the dim-int32 extent record every corner/type file opens
// with, per spec §4.1.
func readHeader(r io.Reader, dim int) ([]int32, error) {
	raw := make([]byte, 4*dim)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errs.Newf(errs.OpenFailure, "reading header: %v", err)
	}
	ext := make([]int32, dim)
	for i := range ext {
		ext[i] = int32(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return ext, nil
}

// ReadCorners ingests a binary corner-sample file into every Store in
// stores. The file holds a little-endian header of dim int32 extents
// followed by (nx+1)*(ny+1)*(nz+1) uint8 corner samples, x-fastest
// (spec §4.1, grounded on ReadISurf::read_corners/assign_corners). Every
// rank's Store is updated from the same broadcast chunk stream, so the
// result is identical regardless of which rank's Source the caller
// actually reads from in a real MPI deployment.
func ReadCorners(r io.Reader, stores []*Store, dim, nx, ny, nz int, bcast Broadcaster) error {
	ext, err := readHeader(r, dim)
	if err != nil {
		return err
	}
	if int(ext[0]) != nx || int(ext[1]) != ny || (dim == 3 && int(ext[2]) != nz) {
		return errs.Newf(errs.ExtentMismatch, "corner file extent %v does not match grid (%d,%d,%d)", ext, nx, ny, nz)
	}

	npx, npy, npz := nx+1, ny+1, 1
	if dim == 3 {
		npz = nz + 1
	}
	total := int64(npx) * int64(npy) * int64(npz)

	if bcast == nil {
		bcast = defaultBroadcaster(stores)
	}

	buf := make([]byte, chunkBytes)
	var done int64
	for done < total {
		n := int64(len(buf))
		if total-done < n {
			n = total - done
		}
		chunk := buf[:n]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return errs.Newf(errs.OpenFailure, "reading corner chunk at offset %d: %v", done, err)
		}
		if err := checkBoundaryZero(chunk, done, npx, npy, npz, dim, nx, ny, nz); err != nil {
			return err
		}
		offset := done
		if err := bcast.Bcast(chunk); err != nil {
			return err
		}
		for i, b := range chunk {
			lin := offset + int64(i)
			pix := int(lin % int64(npx))
			piy := int((lin / int64(npx)) % int64(npy))
			piz := int(lin / (int64(npx) * int64(npy)))
			for _, s := range stores {
				s.assignCornerSample(pix, piy, piz, b)
			}
		}
		done += n
	}
	return nil
}

// checkBoundaryZero enforces spec §4.1's "any non-zero corner sample on
// the outer boundary of the global lattice" precondition.
func checkBoundaryZero(chunk []byte, offset int64, npx, npy, npz, dim, nx, ny, nz int) error {
	for i, b := range chunk {
		if b == 0 {
			continue
		}
		lin := offset + int64(i)
		pix := int(lin % int64(npx))
		piy := int((lin / int64(npx)) % int64(npy))
		piz := int(lin / (int64(npx) * int64(npy)))
		onBoundary := pix == 0 || pix == nx || piy == 0 || piy == ny
		if dim == 3 {
			onBoundary = onBoundary || piz == 0 || piz == nz
		}
		if onBoundary {
			return errs.WithContext(errs.BoundaryNotZero, "nonzero corner sample on global boundary",
				map[string]any{"pix": pix, "piy": piy, "piz": piz, "value": b})
		}
	}
	return nil
}

// ReadTypes ingests a binary per-cell type file: a dim-int32 header
// followed by nx*ny*nz little-endian int32 labels, x-fastest (spec §4.1,
// grounded on ReadISurf::read_types/assign_types).
func ReadTypes(r io.Reader, stores []*Store, dim, nx, ny, nz int, bcast Broadcaster) error {
	ext, err := readHeader(r, dim)
	if err != nil {
		return err
	}
	if int(ext[0]) != nx || int(ext[1]) != ny || (dim == 3 && int(ext[2]) != nz) {
		return errs.Newf(errs.ExtentMismatch, "type file extent %v does not match grid (%d,%d,%d)", ext, nx, ny, nz)
	}

	nzUse := 1
	if dim == 3 {
		nzUse = nz
	}
	total := int64(nx) * int64(ny) * int64(nzUse)

	if bcast == nil {
		bcast = defaultBroadcaster(stores)
	}

	const recordBytes = 4
	perChunk := (chunkBytes / recordBytes) * recordBytes
	buf := make([]byte, perChunk)
	var doneRecords int64
	for doneRecords < total {
		recs := int64(len(buf) / recordBytes)
		if total-doneRecords < recs {
			recs = total - doneRecords
		}
		chunk := buf[:recs*recordBytes]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return errs.Newf(errs.OpenFailure, "reading type chunk at record %d: %v", doneRecords, err)
		}
		offset := doneRecords
		if err := bcast.Bcast(chunk); err != nil {
			return err
		}
		for k := int64(0); k < recs; k++ {
			val := int32(binary.LittleEndian.Uint32(chunk[k*recordBytes:]))
			lin := offset + k
			cix := int(lin % int64(nx))
			ciy := int((lin / int64(nx)) % int64(ny))
			ciz := int(lin / (int64(nx) * int64(ny)))
			for _, s := range stores {
				s.assignTypeSample(cix, ciy, ciz, val)
			}
		}
		doneRecords += recs
	}
	return nil
}

// defaultBroadcaster simulates the collective broadcast in-process by
// doing nothing: ReadCorners/ReadTypes already apply each chunk to every
// Store directly after it returns, so a nil bcast is equivalent to an
// always-succeeding Broadcaster.
func defaultBroadcaster(stores []*Store) Broadcaster {
	return LocalBroadcaster{}
}
