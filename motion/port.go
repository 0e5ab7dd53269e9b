package motion

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gibmesh/surface"
)

var (
	// ErrConfig marks an invalid motion configuration
	ErrConfig = errors.New("motion configuration error")
	// ErrFieldSize marks a driver field that does not match the mesh points
	ErrFieldSize = errors.New("motion field size does not match points")
)

// Snapshot is the point state handed to a driver for one pass.
// Interface marks the points of the new interface zone.
type Snapshot struct {
	Base      []r3.Vec
	Current   []r3.Vec
	Interface []bool
}

func (s Snapshot) check() error {
	if len(s.Current) != len(s.Base) || len(s.Interface) != len(s.Base) {
		return ErrFieldSize
	}
	return nil
}

// Port is the surface motion seen by the interface engine
type Port interface {
	// Advance moves the surface forward by dt and reports whether it moved
	Advance(dt float64) (bool, error)
	// ProposedPoints returns a target position for every point, interface
	// points follow the surface
	ProposedPoints(s Snapshot) ([]r3.Vec, error)
}

// SurfaceSource is implemented by drivers carrying a triangulated surface
type SurfaceSource interface {
	Surface() *surface.Surface
}

// Reverter is implemented by drivers able to undo the last Advance
type Reverter interface {
	Revert()
}
