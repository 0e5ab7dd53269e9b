package gib

import (
	"github.com/notargets/gibmesh/mesh"
	"github.com/notargets/gibmesh/parallel"
)

// removePops reverts cells that would become enclosed by the zone in one
// pass. A pop is a cell with only interior faces, none of them in the
// committed zone, that either has every face newly marked or is a flip
// cell every face of which was a candidate. Its faces leave the zone and
// its flip is cleared.
func removePops(m mesh.Provider, s parallel.Syncer, fc faceClasses,
	newMark, prevMark, candMark, flipCell []bool) (popped []int, err error) {
	var (
		cells  = m.Cells()
		revert = make([]bool, m.NFaces())
	)
	for c, faces := range cells {
		var (
			allInterior, noPrev = true, true
			allNew, allCand     = true, true
		)
		for _, f := range faces {
			allInterior = allInterior && fc.interior(f)
			noPrev = noPrev && !prevMark[f]
			allNew = allNew && newMark[f]
			allCand = allCand && candMark[f]
		}
		if !allInterior || !noPrev {
			continue
		}
		if allNew || (flipCell[c] && allCand) {
			popped = append(popped, c)
			flipCell[c] = false
			for _, f := range faces {
				revert[f] = true
			}
		}
	}
	if err = s.SyncFaceBool(revert, parallel.OrOp); err != nil {
		return nil, err
	}
	for f, r := range revert {
		if r {
			newMark[f] = false
		}
	}
	return
}
