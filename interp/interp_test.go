package interp

import "testing"

func TestEdge(t *testing.T) {
	cases := []struct {
		name           string
		v0, v1         uint8
		threshold      float64
		lo, hi         float64
		want           float64
	}{
		{"midpoint", 0, 200, 100, 0, 1, 0.5},
		{"scenario1", 200, 0, 127.5, 0, 1, (127.5 - 200) / (0 - 200)},
		{"clamped-low", 100, 200, 50, 0, 1, 0},
		{"clamped-high", 0, 100, 150, 0, 1, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Edge(c.v0, c.v1, c.threshold, c.lo, c.hi)
			if diff := got - c.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Edge(%d,%d,%g,%g,%g) = %g, want %g", c.v0, c.v1, c.threshold, c.lo, c.hi, got, c.want)
			}
		})
	}
}
