package gib

import (
	"github.com/notargets/gibmesh/mesh"
)

// faceClasses caches the patch predicates of every face
type faceClasses struct {
	nInternal int
	// Processor faces, with a neighbour cell on another rank
	coupled []bool
	// Faces taking part in flip votes
	voting []bool
	// Physical boundary faces that are neither coupled nor empty
	outer []bool
	// Rank on the far side of a coupled face, -1 elsewhere
	nbrRank []int
}

func classifyFaces(m mesh.Provider) faceClasses {
	nFaces := m.NFaces()
	fc := faceClasses{
		nInternal: m.NInternalFaces(),
		coupled:   make([]bool, nFaces),
		voting:    make([]bool, nFaces),
		outer:     make([]bool, nFaces),
		nbrRank:   make([]int, nFaces),
	}
	patches := m.Patches()
	for f := 0; f < nFaces; f++ {
		fc.nbrRank[f] = -1
		if f < fc.nInternal {
			fc.voting[f] = true
			continue
		}
		p := patches[m.WhichPatch(f)]
		switch {
		case p.IsCoupled():
			fc.coupled[f] = true
			fc.voting[f] = true
			fc.nbrRank[f] = p.NeighbourRank
		case p.IsEmpty():
		case p.IsWedge(), p.IsSymmetry():
			fc.outer[f] = true
		default:
			fc.outer[f] = true
			fc.voting[f] = true
		}
	}
	return fc
}

// interior is true for faces with a neighbour cell on this or another rank
func (fc faceClasses) interior(f int) bool {
	return f < fc.nInternal || fc.coupled[f]
}
