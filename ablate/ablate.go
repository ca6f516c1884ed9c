// Package ablate defines the CornerSink collaborator the driver can
// push freshly ingested corner values into, for an external ablation
// subsystem to consume (spec §1: ablation is out of scope for this
// module, but the core still calls into the interface it would use).
package ablate

import "github.com/distsurf/isosurf/gridindex"

// CornerSink receives a cell's corner samples as they are ingested.
// A real deployment's ablation subsystem implements this to track
// material removal; this module never reads surface state back out of
// it.
type CornerSink interface {
	StoreCorners(cell gridindex.CellID, corners []uint8)
}

// NoOp is a CornerSink that discards everything, the default when no
// ablation subsystem is configured.
type NoOp struct{}

// StoreCorners implements CornerSink by doing nothing.
func (NoOp) StoreCorners(gridindex.CellID, []uint8) {}
