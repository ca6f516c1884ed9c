// Package squares implements 2-D Marching Squares extraction of line
// segments from a cell's four corner samples (spec §4.2, case 0-15
// dispatch). It is grounded directly on ReadISurf::marching_squares.
package squares

import (
	"github.com/distsurf/isosurf/interp"
	"gonum.org/v1/gonum/spatial/r3"
)

// Segment is one extracted line segment, in the cell's local coordinate
// frame (its two endpoints carry absolute world coordinates, since lo/hi
// are passed in by the caller).
type Segment struct {
	A, B r3.Vec
}

// FaceEdge names one of a quad's four edges in the v00/v01/v10/v11
// labelling Case uses: Left joins v00-v10, Bottom joins v00-v01, Right
// joins v01-v11, Top joins v10-v11. Package cubes reuses these labels to
// stitch the same per-face resolution across a cube's six faces.
type FaceEdge int

const (
	EdgeLeft FaceEdge = iota
	EdgeBottom
	EdgeRight
	EdgeTop
)

// Case classifies the four corner samples against threshold into a
// 4-bit case index, matching spec §4.2's bit assignment: bit0=v00,
// bit1=v01, bit2=v11, bit3=v10 (note v11/v10 swapped relative to lattice
// order, to stay consistent with the conventional Marching Squares case
// table - see ReadISurf::marching_squares's "make last 2 bits consistent
// with Wiki page" comment).
func Case(v00, v01, v10, v11 uint8, threshold float64) int {
	bit := func(v uint8) int {
		if float64(v) <= threshold {
			return 0
		}
		return 1
	}
	return (bit(v10) << 3) | (bit(v11) << 2) | (bit(v01) << 1) | bit(v00)
}

// CaseEdges returns, as (from,to) FaceEdge pairs, the segment(s) Case's
// dispatch connects for these four corner samples. It holds the same
// per-case table as Extract, factored out so package cubes can stitch
// the identical 2-D resolution into a cube face's contribution to a 3-D
// contour - a shared cell face must resolve to the same segments
// whichever cube reaches it first, or the surface would not be
// watertight across the boundary.
func CaseEdges(v00, v01, v10, v11 uint8, threshold float64) [][2]FaceEdge {
	which := Case(v00, v01, v10, v11, threshold)
	switch which {
	case 0, 15:
		return nil
	case 1:
		return [][2]FaceEdge{{EdgeLeft, EdgeBottom}}
	case 2:
		return [][2]FaceEdge{{EdgeBottom, EdgeRight}}
	case 3:
		return [][2]FaceEdge{{EdgeLeft, EdgeRight}}
	case 4:
		return [][2]FaceEdge{{EdgeRight, EdgeTop}}
	case 6:
		return [][2]FaceEdge{{EdgeBottom, EdgeTop}}
	case 7:
		return [][2]FaceEdge{{EdgeLeft, EdgeTop}}
	case 8:
		return [][2]FaceEdge{{EdgeTop, EdgeLeft}}
	case 9:
		return [][2]FaceEdge{{EdgeTop, EdgeBottom}}
	case 11:
		return [][2]FaceEdge{{EdgeTop, EdgeRight}}
	case 12:
		return [][2]FaceEdge{{EdgeRight, EdgeLeft}}
	case 13:
		return [][2]FaceEdge{{EdgeRight, EdgeBottom}}
	case 14:
		return [][2]FaceEdge{{EdgeBottom, EdgeLeft}}
	case 5:
		if saddleConnects(v00, v01, v10, v11, threshold) {
			return [][2]FaceEdge{{EdgeLeft, EdgeTop}, {EdgeRight, EdgeBottom}}
		}
		return [][2]FaceEdge{{EdgeLeft, EdgeBottom}, {EdgeRight, EdgeTop}}
	case 10:
		if saddleConnects(v00, v01, v10, v11, threshold) {
			return [][2]FaceEdge{{EdgeBottom, EdgeLeft}, {EdgeTop, EdgeRight}}
		}
		return [][2]FaceEdge{{EdgeTop, EdgeLeft}, {EdgeBottom, EdgeRight}}
	}
	return nil
}

// saddleConnects is the ambiguous-face test for cases 5 and 10: the
// bilinear field over the face, f(x,y) = g00 + (g01-g00)x + (g10-g00)y +
// A*x*y with gij = vij-threshold and A = g00-g01-g10+g11, has a single
// critical point at x*=(g00-g10)/A, y*=(g00-g01)/A. When that point
// falls inside the face, its sign - not the four corners' average -
// decides whether the two diagonal peaks connect through the middle or
// stay separated (the Nielson-Hamann asymptotic decider). The average
// test is kept as the fallback for the degenerate A==0 case (the two
// diagonals' saddle line runs parallel to a face edge, so there is no
// interior extremum) and whenever the critical point falls outside the
// unit square.
func saddleConnects(v00, v01, v10, v11 uint8, threshold float64) bool {
	g00 := float64(v00) - threshold
	g01 := float64(v01) - threshold
	g10 := float64(v10) - threshold
	g11 := float64(v11) - threshold
	a := g00 - g01 - g10 + g11
	if a != 0 {
		x := (g00 - g10) / a
		y := (g00 - g01) / a
		if x > 0 && x < 1 && y > 0 && y < 1 {
			f := g00 + (g01-g00)*x + (g10-g00)*y + a*x*y
			return f > 0
		}
	}
	return g00+g01+g10+g11 > 0
}

// Extract runs Marching Squares on one cell given its four corner
// samples (v00=lower-left, v01=lower-right, v10=upper-left,
// v11=upper-right, matching corner.Vector2's layout) and its axis-aligned
// bounds [lo,hi] in the z=0 plane. Ambiguous saddle cases 5 and 10 are
// resolved by saddleConnects, the bilinear asymptotic decider.
func Extract(v00, v01, v10, v11 uint8, threshold float64, lo, hi r3.Vec) []Segment {
	edges := CaseEdges(v00, v01, v10, v11, threshold)
	if len(edges) == 0 {
		return nil
	}

	ex := func(a, b uint8, axLo, axHi float64) float64 {
		return interp.Edge(a, b, threshold, axLo, axHi)
	}
	pos := func(e FaceEdge) r3.Vec {
		switch e {
		case EdgeLeft:
			return r3.Vec{X: lo.X, Y: ex(v00, v10, lo.Y, hi.Y)}
		case EdgeBottom:
			return r3.Vec{X: ex(v00, v01, lo.X, hi.X), Y: lo.Y}
		case EdgeRight:
			return r3.Vec{X: hi.X, Y: ex(v01, v11, lo.Y, hi.Y)}
		default: // EdgeTop
			return r3.Vec{X: ex(v10, v11, lo.X, hi.X), Y: hi.Y}
		}
	}

	segs := make([]Segment, len(edges))
	for i, e := range edges {
		segs[i] = Segment{A: pos(e[0]), B: pos(e[1])}
	}
	return segs
}
