package mesh

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/spatial/r3"
)

// Provider is the mesh view consumed by the interface engine.
// Face normals point from Owner to Neighbour. Internal faces come first,
// boundary faces follow grouped by patch.
type Provider interface {
	NPoints() int
	NFaces() int
	NInternalFaces() int
	NCells() int

	// Points are the current (start of pass) positions, BasePoints the
	// undeformed background mesh
	Points() []r3.Vec
	BasePoints() []r3.Vec

	Faces() [][]int
	Owner() []int
	Neighbour() []int
	Cells() [][]int
	CellPoints() [][]int
	PointFaces() [][]int
	Edges() []Edge
	PointEdges() [][]int
	FaceEdges() [][]int
	EdgeFaces() [][]int

	Patches() []Patch
	// WhichPatch returns the patch index of a face, -1 for internal faces
	WhichPatch(face int) int

	FaceAreas() []r3.Vec
	FaceCentres() []r3.Vec
	CellCentres() []r3.Vec
	CellVolumes() []float64
	BaseFaceAreas() []r3.Vec
	BaseFaceCentres() []r3.Vec
	BaseCellCentres() []r3.Vec
	BaseCellVolumes() []float64

	// VolumesAt evaluates cell volumes for a trial point set without moving the mesh
	VolumesAt(points []r3.Vec) []float64
	// MovePoints replaces the current points and updates the geometry
	MovePoints(points []r3.Vec) error
}

// PolyMesh is a face-addressed polyhedral mesh
type PolyMesh struct {
	basePoints []r3.Vec
	points     []r3.Vec

	faces          [][]int
	owner          []int
	neighbour      []int
	nInternalFaces int
	nCells         int
	patches        []Patch
	facePatch      []int

	// Derived connectivity
	cells      [][]int
	cellPoints [][]int
	pointFaces [][]int
	edges      []Edge
	pointEdges [][]int
	faceEdges  [][]int
	edgeFaces  [][]int

	current, base geometry
}

var _ Provider = (*PolyMesh)(nil)

// NewPolyMesh validates the face addressing and builds the derived
// connectivity and geometry
func NewPolyMesh(points []r3.Vec, faces [][]int, owner, neighbour []int,
	patches []Patch) (*PolyMesh, error) {
	var (
		nFaces    = len(faces)
		nInternal = len(neighbour)
	)
	if len(owner) != nFaces {
		return nil, fmt.Errorf("have %d faces but %d owners", nFaces, len(owner))
	}
	if nInternal > nFaces {
		return nil, fmt.Errorf("have %d neighbours for %d faces", nInternal, nFaces)
	}
	start := nInternal
	for ip, p := range patches {
		if p.Start != start || p.Size < 0 {
			return nil, fmt.Errorf("patch %d (%s) starts at face %d with size %d, expected start %d",
				ip, p.Name, p.Start, p.Size, start)
		}
		start += p.Size
	}
	if start != nFaces {
		return nil, fmt.Errorf("patches cover faces [%d,%d) of %d", nInternal, start, nFaces)
	}
	nCells := 0
	for f, verts := range faces {
		if len(verts) < 3 {
			return nil, fmt.Errorf("face %d has %d points", f, len(verts))
		}
		for _, p := range verts {
			if p < 0 || p >= len(points) {
				return nil, fmt.Errorf("face %d references point %d, have %d points", f, p, len(points))
			}
		}
		if owner[f] < 0 {
			return nil, fmt.Errorf("face %d has negative owner %d", f, owner[f])
		}
		nCells = max(nCells, owner[f]+1)
		if f < nInternal {
			if neighbour[f] < 0 || neighbour[f] == owner[f] {
				return nil, fmt.Errorf("internal face %d has invalid neighbour %d", f, neighbour[f])
			}
			nCells = max(nCells, neighbour[f]+1)
		}
	}
	m := &PolyMesh{
		basePoints:     append([]r3.Vec(nil), points...),
		points:         append([]r3.Vec(nil), points...),
		faces:          faces,
		owner:          owner,
		neighbour:      neighbour,
		nInternalFaces: nInternal,
		nCells:         nCells,
		patches:        patches,
	}
	m.facePatch = make([]int, nFaces)
	for f := 0; f < nInternal; f++ {
		m.facePatch[f] = -1
	}
	for ip, p := range patches {
		for f := p.Start; f < p.Start+p.Size; f++ {
			m.facePatch[f] = ip
		}
	}
	m.buildConnectivity()
	m.base = m.computeGeometry(m.basePoints)
	m.current = m.base.clone()
	return m, nil
}

func (m *PolyMesh) NPoints() int         { return len(m.points) }
func (m *PolyMesh) NFaces() int          { return len(m.faces) }
func (m *PolyMesh) NInternalFaces() int  { return m.nInternalFaces }
func (m *PolyMesh) NCells() int          { return m.nCells }
func (m *PolyMesh) Points() []r3.Vec     { return m.points }
func (m *PolyMesh) BasePoints() []r3.Vec { return m.basePoints }
func (m *PolyMesh) Faces() [][]int       { return m.faces }
func (m *PolyMesh) Owner() []int         { return m.owner }
func (m *PolyMesh) Neighbour() []int     { return m.neighbour }
func (m *PolyMesh) Cells() [][]int       { return m.cells }
func (m *PolyMesh) CellPoints() [][]int  { return m.cellPoints }
func (m *PolyMesh) PointFaces() [][]int  { return m.pointFaces }
func (m *PolyMesh) Edges() []Edge        { return m.edges }
func (m *PolyMesh) PointEdges() [][]int  { return m.pointEdges }
func (m *PolyMesh) FaceEdges() [][]int   { return m.faceEdges }
func (m *PolyMesh) EdgeFaces() [][]int   { return m.edgeFaces }
func (m *PolyMesh) Patches() []Patch     { return m.patches }

func (m *PolyMesh) WhichPatch(face int) int { return m.facePatch[face] }

func (m *PolyMesh) FaceAreas() []r3.Vec        { return m.current.faceAreas }
func (m *PolyMesh) FaceCentres() []r3.Vec      { return m.current.faceCentres }
func (m *PolyMesh) CellCentres() []r3.Vec      { return m.current.cellCentres }
func (m *PolyMesh) CellVolumes() []float64     { return m.current.cellVolumes }
func (m *PolyMesh) BaseFaceAreas() []r3.Vec    { return m.base.faceAreas }
func (m *PolyMesh) BaseFaceCentres() []r3.Vec  { return m.base.faceCentres }
func (m *PolyMesh) BaseCellCentres() []r3.Vec  { return m.base.cellCentres }
func (m *PolyMesh) BaseCellVolumes() []float64 { return m.base.cellVolumes }

func (m *PolyMesh) VolumesAt(points []r3.Vec) []float64 {
	return m.computeGeometry(points).cellVolumes
}

func (m *PolyMesh) MovePoints(points []r3.Vec) error {
	if len(points) != len(m.points) {
		return fmt.Errorf("cannot move %d points with a field of size %d", len(m.points), len(points))
	}
	copy(m.points, points)
	m.current = m.computeGeometry(m.points)
	return nil
}

// PatchByName returns the index of the named patch or -1
func (m *PolyMesh) PatchByName(name string) int {
	for ip, p := range m.patches {
		if p.Name == name {
			return ip
		}
	}
	return -1
}

// Bounds returns the bounding box of the current points
func (m *PolyMesh) Bounds() r3.Box {
	return BoundingBox(m.points)
}

// PrintStatistics logs mesh statistics
func (m *PolyMesh) PrintStatistics() {
	log.Printf("Mesh Statistics:")
	log.Printf("  Points: %d", m.NPoints())
	log.Printf("  Cells: %d", m.NCells())
	log.Printf("  Faces: %d (%d internal)", m.NFaces(), m.NInternalFaces())
	log.Printf("  Edges: %d", len(m.edges))
	for _, p := range m.patches {
		log.Printf("  Patch %-20s %-14s %d faces", p.Name, p.Type, p.Size)
	}
}
