package surf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/chewxy/math32"
	"github.com/distsurf/isosurf/errs"
)

// stlHeader mirrors the 84-byte binary STL header: 80 reserved bytes
// then a little-endian triangle count.
type stlHeader struct {
	_     [80]uint8
	Count uint32
}

// WriteSTL serializes every 3-D primitive in the store as a binary STL
// file, adapted from the teacher's render/stl.go. 2-D primitives are
// skipped; callers extracting a 2-D field should use WriteOBJ's segment
// path instead.
func WriteSTL(w io.Writer, prims []Primitive) error {
	n3d := 0
	for _, p := range prims {
		if p.Is3D {
			n3d++
		}
	}
	if n3d == 0 {
		return errs.New(errs.BadPrerequisite, "no 3-D primitives to export as STL")
	}
	header := stlHeader{Count: uint32(n3d)}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	var buf [50]byte
	for _, p := range prims {
		if !p.Is3D {
			continue
		}
		if vecHasNonFinite(p.A) || vecHasNonFinite(p.B) || vecHasNonFinite(p.C) || vecHasNonFinite(p.Normal) {
			return errs.WithContext(errs.BadPrerequisite, "non-finite coordinate in extracted triangle",
				map[string]any{"cell": p.Cell})
		}
		put3F32(buf[0:12], p.Normal)
		put3F32(buf[12:24], p.A)
		put3F32(buf[24:36], p.B)
		put3F32(buf[36:48], p.C)
		binary.LittleEndian.PutUint16(buf[48:], 0)
		if _, err := io.Copy(w, bytes.NewReader(buf[:])); err != nil {
			return err
		}
	}
	return nil
}

func put3F32(b []byte, v Vec) {
	_ = b[11]
	binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(float32(v.Z)))
}

// WriteOBJ serializes both 2-D (as line elements) and 3-D (as faces)
// primitives to Wavefront OBJ text, which is the simplest format that
// can represent both a triangle mesh and a bare segment set without a
// second file format.
func WriteOBJ(w io.Writer, prims []Primitive) error {
	var vbuf bytes.Buffer
	var ebuf bytes.Buffer
	idx := 0
	emit := func(v Vec) int {
		fmt.Fprintf(&vbuf, "v %g %g %g\n", v.X, v.Y, v.Z)
		idx++
		return idx
	}
	for _, p := range prims {
		if p.Is3D {
			a, b, c := emit(p.A), emit(p.B), emit(p.C)
			fmt.Fprintf(&ebuf, "f %d %d %d\n", a, b, c)
		} else {
			a, b := emit(p.A), emit(p.B)
			fmt.Fprintf(&ebuf, "l %d %d\n", a, b)
		}
	}
	if _, err := w.Write(vbuf.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(ebuf.Bytes())
	return err
}

// vecHasNonFinite mirrors the teacher's render/stl.go bad3F32 check,
// run against the float32 values actually written to the STL file.
func vecHasNonFinite(v Vec) bool {
	x, y, z := float32(v.X), float32(v.Y), float32(v.Z)
	return math32.IsNaN(x) || math32.IsInf(x, 0) ||
		math32.IsNaN(y) || math32.IsInf(y, 0) ||
		math32.IsNaN(z) || math32.IsInf(z, 0)
}
