// Package classify holds the cube topology and per-corner arithmetic
// used by Marching Cubes: face layout, above-threshold classification
// and threshold interpolation. cubes.Extract resolves each of a cube's six faces with
// the same 2-D case dispatch squares uses (package squares' CaseEdges)
// and stitches the results into 3-D contours, rather than decomposing
// the cube into tetrahedra first - an earlier revision did the latter
// (Marching Tetrahedra) and was rejected in review: a fixed tetrahedral
// split changes the cube's primitive topology and can produce triangle
// counts spec §8 explicitly excludes (e.g. 7, for two opposite edges
// above threshold). See DESIGN.md for the face-stitching approach and
// its own documented gap against spec §8 scenario 3's case-13 count.
package classify

import "gonum.org/v1/gonum/spatial/r3"

// Face is one of the cube's six faces, its four corners labelled in the
// v00/v01/v10/v11 order squares.Case expects: C00-C01 and C00-C10 are
// cube edges (the face's two axes), C11 is diagonal to C00. Corner
// indices use corner.Vector3's bit order, index = z*4 + y*2 + x.
type Face struct {
	C00, C01, C10, C11 int
}

// Faces lists the cube's six faces. Opposite faces sit at indices 0/1
// (z), 2/3 (y) and 4/5 (x).
var Faces = [6]Face{
	{C00: 0, C01: 1, C10: 2, C11: 3}, // z = lo
	{C00: 4, C01: 5, C10: 6, C11: 7}, // z = hi
	{C00: 0, C01: 1, C10: 4, C11: 5}, // y = lo
	{C00: 2, C01: 3, C10: 6, C11: 7}, // y = hi
	{C00: 0, C01: 2, C10: 4, C11: 6}, // x = lo
	{C00: 1, C01: 3, C10: 5, C11: 7}, // x = hi
}

// Above reports, for each of a cube's eight corners, whether its sample
// exceeds threshold.
func Above(vals [8]uint8, threshold float64) [8]bool {
	var a [8]bool
	for i, v := range vals {
		a[i] = float64(v) > threshold
	}
	return a
}

// Count returns the number of true entries in a.
func Count(a [8]bool) int {
	n := 0
	for _, b := range a {
		if b {
			n++
		}
	}
	return n
}

// Lerp linearly interpolates the threshold crossing along the segment
// pa-pb given scalar samples va,vb, clamped to [0,1] to absorb
// degenerate equal endpoints.
func Lerp(pa, pb r3.Vec, va, vb uint8, threshold float64) r3.Vec {
	t := (threshold - float64(va)) / (float64(vb) - float64(va))
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return r3.Add(pa, r3.Scale(t, r3.Sub(pb, pa)))
}
