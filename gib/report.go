package gib

import (
	"fmt"
	"strings"
)

// State of the engine within a pass
type State uint8

const (
	Idle State = iota
	MotionRequested
	Classified
	Stabilized
	Snapped
	Committed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case MotionRequested:
		return "MotionRequested"
	case Classified:
		return "Classified"
	case Stabilized:
		return "Stabilized"
	case Snapped:
		return "Snapped"
	case Committed:
		return "Committed"
	}
	return fmt.Sprintf("State(%d)", s)
}

// PassReport counts what one pass did on this rank
type PassReport struct {
	Pass  int
	Moved bool

	ZoneSize      int
	Entered, Left int

	FlipCells      int
	FlipResets     int
	DoubleClaims   int
	DoubleReleases int
	PopsReverted   int
	// Local indices of the cells flipped by the pass
	FlippedCells []int

	Projected, Frozen, Revised, Clamped int
	MinVolumeRatio                      float64
}

func (r PassReport) String() string {
	if !r.Moved {
		return fmt.Sprintf("pass %d: no motion", r.Pass)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "pass %d: zone %d faces (+%d -%d)", r.Pass, r.ZoneSize, r.Entered, r.Left)
	fmt.Fprintf(&sb, ", flips %d (reset %d)", r.FlipCells, r.FlipResets)
	if r.DoubleClaims+r.DoubleReleases > 0 {
		fmt.Fprintf(&sb, ", ambiguous votes %d/%d", r.DoubleClaims, r.DoubleReleases)
	}
	if r.PopsReverted > 0 {
		fmt.Fprintf(&sb, ", pops reverted %d", r.PopsReverted)
	}
	fmt.Fprintf(&sb, ", points projected %d frozen %d revised %d clamped %d",
		r.Projected, r.Frozen, r.Revised, r.Clamped)
	fmt.Fprintf(&sb, ", min volume ratio %.4g", r.MinVolumeRatio)
	return sb.String()
}
