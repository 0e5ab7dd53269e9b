package mesh

import (
	"fmt"
	"math"
)

/*
EdgeKey is an always positive number that stores an edge's points as indices in a way that can be compared
An edge between points [4] and [0] will always be stored as [0,4], in the ascending order of the index values
*/
type EdgeKey uint64

func NewEdgeKey(verts [2]int) (packed EdgeKey) {
	// Packs two point indices into two 32 bit unsigned integers
	var (
		limit = math.MaxUint32
	)
	for _, vert := range verts {
		if vert < 0 || vert > limit {
			panic(fmt.Errorf("unable to pack two ints into a uint64, have %d and %d as inputs",
				verts[0], verts[1]))
		}
	}
	i1, i2 := verts[0], verts[1]
	if i1 > i2 {
		i1, i2 = i2, i1
	}
	packed = EdgeKey(i1 + i2<<32)
	return
}

func (ek EdgeKey) GetVertices() (verts [2]int) {
	hi := ek >> 32
	verts[1] = int(hi)
	verts[0] = int(ek - hi<<32)
	return
}

// Edge is a mesh edge with ascending point indices
type Edge [2]int

// Other returns the opposite end of the edge from point p
func (e Edge) Other(p int) int {
	if e[0] == p {
		return e[1]
	}
	return e[0]
}
