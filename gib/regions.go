package gib

import (
	"github.com/notargets/gibmesh/mesh"
	"github.com/notargets/gibmesh/parallel"
)

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// floodRegions labels every cell with the side of the zone it lies on.
// Cells next to zone faces are seeded from the flip map, labels spread
// across faces outside the zone keeping the larger label, across ranks
// until no rank changes. Cells never reached get label 0.
func floodRegions(m mesh.Provider, s parallel.Syncer, fc faceClasses, mark, flipMap []bool) ([]int, error) {
	var (
		owner  = m.Owner()
		nbr    = m.Neighbour()
		cells  = m.Cells()
		label  = make([]int, m.NCells())
		queue  []int
		shared = make([]int, m.NFaces())
	)
	for c := range label {
		label[c] = -1
	}
	raise := func(c, l int) {
		if l > label[c] {
			label[c] = l
			queue = append(queue, c)
		}
	}
	for f, in := range mark {
		if !in {
			continue
		}
		side := b2i(flipMap[f])
		raise(owner[f], side)
		if f < fc.nInternal {
			raise(nbr[f], 1-side)
		}
	}
	for {
		for len(queue) > 0 {
			c := queue[0]
			queue = queue[1:]
			for _, f := range cells[c] {
				if f >= fc.nInternal || mark[f] {
					continue
				}
				other := owner[f]
				if other == c {
					other = nbr[f]
				}
				raise(other, label[c])
			}
		}
		for f, cpl := range fc.coupled {
			shared[f] = -1
			if cpl && !mark[f] {
				shared[f] = label[owner[f]]
			}
		}
		if err := s.SyncFaceInt(shared, parallel.MaxOp); err != nil {
			return nil, err
		}
		for f, cpl := range fc.coupled {
			if cpl && !mark[f] {
				raise(owner[f], shared[f])
			}
		}
		grown, err := s.ReduceOr(len(queue) > 0)
		if err != nil {
			return nil, err
		}
		if !grown {
			break
		}
	}
	for c, l := range label {
		if l < 0 {
			label[c] = 0
		}
	}
	return label, nil
}

// flippedRegions applies the cell flips to the region labels
func flippedRegions(label []int, flipCell []bool) []int {
	out := make([]int, len(label))
	for c, l := range label {
		out[c] = l ^ b2i(flipCell[c])
	}
	return out
}

// faceOwnership is true on faces whose two cells lie on different sides.
// On coupled faces each rank contributes the side of its own cell and
// the two bits are XOR-combined.
func faceOwnership(m mesh.Provider, s parallel.Syncer, fc faceClasses, region []int) ([]bool, error) {
	var (
		owner = m.Owner()
		nbr   = m.Neighbour()
		id    = make([]bool, m.NFaces())
	)
	for f := 0; f < fc.nInternal; f++ {
		id[f] = region[owner[f]] != region[nbr[f]]
	}
	for f, cpl := range fc.coupled {
		if cpl {
			id[f] = region[owner[f]] == 1
		}
	}
	if err := s.SyncFaceBool(id, parallel.XorOp); err != nil {
		return nil, err
	}
	return id, nil
}
