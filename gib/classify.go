package gib

import (
	"log"

	"github.com/notargets/gibmesh/mesh"
)

// classifyFlipCells marks the cells next to zone faces whose points are
// all interface points. Only owners are tested for boundary faces. This
// is a necessary condition for a flip, votes decide the rest.
func classifyFlipCells(m mesh.Provider, mark, interPoints []bool) []bool {
	var (
		nInternal  = m.NInternalFaces()
		owner      = m.Owner()
		nbr        = m.Neighbour()
		cellPoints = m.CellPoints()
		flip       = make([]bool, m.NCells())
		tested     = make([]bool, m.NCells())
	)
	test := func(c int) {
		if tested[c] {
			return
		}
		tested[c] = true
		for _, p := range cellPoints[c] {
			if !interPoints[p] {
				return
			}
		}
		flip[c] = true
	}
	for f, in := range mark {
		if !in {
			continue
		}
		test(owner[f])
		if f < nInternal {
			test(nbr[f])
		}
	}
	return flip
}

// resetFlipCellsWithFewFaces clears flip cells with five or six faces,
// flipping them leaves degenerate sub-volumes
func resetFlipCellsWithFewFaces(m mesh.Provider, flipCell []bool, logger *log.Logger) (nReset int) {
	cells := m.Cells()
	for c, fc := range flipCell {
		if !fc {
			continue
		}
		if nf := len(cells[c]); nf == 5 || nf == 6 {
			flipCell[c] = false
			nReset++
			logger.Printf("warning: cell %d with %d faces excluded from flipping", c, nf)
		}
	}
	return
}

func countTrue(field []bool) (n int) {
	for _, b := range field {
		if b {
			n++
		}
	}
	return
}
