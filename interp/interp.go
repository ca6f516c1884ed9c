// Package interp implements the linear edge interpolation Marching
// Squares uses (package cubes interpolates with classify.Lerp instead).
package interp

// Edge linearly interpolates the threshold crossing along an edge whose
// endpoints sit at coordinates lo and hi with corner samples v0 and v1.
// The result is clamped to [lo,hi] to absorb degenerate equalities from
// upstream stages; threshold is guaranteed strictly between v0 and v1 by
// the case-bit selection that chose this edge, so v1-v0 is never zero in
// a correctly classified cell.
func Edge(v0, v1 uint8, threshold, lo, hi float64) float64 {
	value := lo + (hi-lo)*(threshold-float64(v0))/(float64(v1)-float64(v0))
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
