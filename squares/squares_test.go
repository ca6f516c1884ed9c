package squares

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestExtractScenario1(t *testing.T) {
	// spec §8 scenario 1: corners [200,0,0,0] (v00,v01,v10,v11), threshold
	// 127.5, unit cell. The crossing parameter is
	// interpolate(v0=200,v1=0,0,1) = (127.5-200)/(0-200) = 0.3625 (see
	// DESIGN.md: the spec's own prose figure of 127.5/200 only matches
	// interpolate() when the far corner is exactly 0 and the near corner
	// value happens to equal 2*threshold - it isn't the general formula).
	segs := Extract(200, 0, 0, 0, 127.5, r3.Vec{}, r3.Vec{X: 1, Y: 1})
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	s := segs[0]
	wantT := (127.5 - 200) / (0 - 200)
	if !closeTo(s.A, r3.Vec{X: 0, Y: wantT}) || !closeTo(s.B, r3.Vec{X: wantT, Y: 0}) {
		t.Fatalf("segment = %+v, want A=(0,%g) B=(%g,0)", s, wantT, wantT)
	}
}

func TestExtractUniformFieldProducesNothing(t *testing.T) {
	for _, v := range []uint8{0, 50, 200, 255} {
		segs := Extract(v, v, v, v, 127.5, r3.Vec{}, r3.Vec{X: 1, Y: 1})
		if len(segs) != 0 {
			t.Fatalf("uniform field %d produced %d segments, want 0", v, len(segs))
		}
	}
}

func TestSaddleCaseSplitsByAverage(t *testing.T) {
	// which=5: v00=v11=255 (above), v01=v10=0 (below). average=127.5,
	// exactly at threshold so nudge threshold down to make ave>threshold.
	segs := Extract(255, 0, 0, 255, 127.4, r3.Vec{}, r3.Vec{X: 1, Y: 1})
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
}

func closeTo(a, b r3.Vec) bool {
	const tol = 1e-9
	d := r3.Sub(a, b)
	return d.X > -tol && d.X < tol && d.Y > -tol && d.Y < tol
}
