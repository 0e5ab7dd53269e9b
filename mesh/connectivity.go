package mesh

import (
	"sort"

	"github.com/james-bowman/sparse"
)

// buildConnectivity derives the cell, point and edge addressing from the
// face lists
func (m *PolyMesh) buildConnectivity() {
	var (
		nFaces  = len(m.faces)
		nPoints = len(m.points)
	)
	m.cells = make([][]int, m.nCells)
	for f := 0; f < nFaces; f++ {
		m.cells[m.owner[f]] = append(m.cells[m.owner[f]], f)
		if f < m.nInternalFaces {
			m.cells[m.neighbour[f]] = append(m.cells[m.neighbour[f]], f)
		}
	}

	m.pointFaces = make([][]int, nPoints)
	for f, verts := range m.faces {
		for _, p := range verts {
			m.pointFaces[p] = append(m.pointFaces[p], f)
		}
	}

	m.cellPoints = make([][]int, m.nCells)
	if m.nCells > 0 && nFaces > 0 && nPoints > 0 {
		// Cell to point incidence is the product of the cell to face and
		// face to point incidence matrices
		cellFaceDOK := sparse.NewDOK(m.nCells, nFaces)
		for c, cf := range m.cells {
			for _, f := range cf {
				cellFaceDOK.Set(c, f, 1)
			}
		}
		facePointDOK := sparse.NewDOK(nFaces, nPoints)
		for f, verts := range m.faces {
			for _, p := range verts {
				facePointDOK.Set(f, p, 1)
			}
		}
		cellPoint := sparse.NewCSR(m.nCells, nPoints, nil, nil, nil)
		cellPoint.Mul(cellFaceDOK.ToCSR(), facePointDOK.ToCSR())
		cellPoint.DoNonZero(func(c, p int, v float64) {
			if v != 0 {
				m.cellPoints[c] = append(m.cellPoints[c], p)
			}
		})
		for c := range m.cellPoints {
			sort.Ints(m.cellPoints[c])
		}
	}

	edgeMap := make(map[EdgeKey]int)
	m.faceEdges = make([][]int, nFaces)
	for f, verts := range m.faces {
		n := len(verts)
		m.faceEdges[f] = make([]int, n)
		for i := 0; i < n; i++ {
			ek := NewEdgeKey([2]int{verts[i], verts[(i+1)%n]})
			e, ok := edgeMap[ek]
			if !ok {
				e = len(m.edges)
				edgeMap[ek] = e
				m.edges = append(m.edges, Edge(ek.GetVertices()))
				m.edgeFaces = append(m.edgeFaces, nil)
			}
			m.faceEdges[f][i] = e
			m.edgeFaces[e] = append(m.edgeFaces[e], f)
		}
	}
	m.pointEdges = make([][]int, nPoints)
	for e, edge := range m.edges {
		m.pointEdges[edge[0]] = append(m.pointEdges[edge[0]], e)
		m.pointEdges[edge[1]] = append(m.pointEdges[edge[1]], e)
	}
}
