package gib

import "errors"

var (
	// ErrZoneEmpty is returned when a pass leaves no interface faces while
	// the tracked surface still overlaps the mesh
	ErrZoneEmpty = errors.New("zone empty while surface still enclosed")
	// ErrSelfIntersection is returned when the corrected points invert a cell
	ErrSelfIntersection = errors.New("snapped points produce a self intersecting cell")
	// ErrInconsistentZone marks a face list and flip map that do not match
	ErrInconsistentZone = errors.New("inconsistent interface zone")
	// ErrConfig marks invalid engine options
	ErrConfig = errors.New("interface engine configuration error")
	// ErrRemoteRank is returned on ranks whose pass failed because another
	// rank failed
	ErrRemoteRank = errors.New("pass failed on another rank")
)
