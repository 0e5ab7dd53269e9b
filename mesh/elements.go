package mesh

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// ElementType represents the cell shapes accepted by the element builder
type ElementType int

const (
	Tet ElementType = iota
	Hex
	Prism
	Pyramid
)

func (e ElementType) String() string {
	return [...]string{"Tet", "Hex", "Prism", "Pyramid"}[e]
}

// NumVertices returns the number of points defining the element
func (e ElementType) NumVertices() int {
	return [...]int{4, 8, 6, 5}[e]
}

// GetElementFaces returns the face vertices for each element type
// Every face is ordered so that its right-hand normal points out of the element
func GetElementFaces(elemType ElementType, vertices []int) [][]int {
	v := vertices
	switch elemType {
	case Tet:
		return [][]int{
			{v[0], v[2], v[1]}, // Face 0
			{v[0], v[1], v[3]}, // Face 1
			{v[1], v[2], v[3]}, // Face 2
			{v[0], v[3], v[2]}, // Face 3
		}
	case Hex:
		return [][]int{
			{v[0], v[3], v[2], v[1]}, // Face 0 (bottom)
			{v[4], v[5], v[6], v[7]}, // Face 1 (top)
			{v[0], v[1], v[5], v[4]}, // Face 2
			{v[1], v[2], v[6], v[5]}, // Face 3
			{v[2], v[3], v[7], v[6]}, // Face 4
			{v[3], v[0], v[4], v[7]}, // Face 5
		}
	case Prism:
		return [][]int{
			{v[0], v[2], v[1]},       // Face 0 (bottom tri)
			{v[3], v[4], v[5]},       // Face 1 (top tri)
			{v[0], v[1], v[4], v[3]}, // Face 2 (quad)
			{v[1], v[2], v[5], v[4]}, // Face 3 (quad)
			{v[2], v[0], v[3], v[5]}, // Face 4 (quad)
		}
	case Pyramid:
		return [][]int{
			{v[0], v[3], v[2], v[1]}, // Face 0 (base quad)
			{v[0], v[1], v[4]},       // Face 1 (tri)
			{v[1], v[2], v[4]},       // Face 2 (tri)
			{v[2], v[3], v[4]},       // Face 3 (tri)
			{v[3], v[0], v[4]},       // Face 4 (tri)
		}
	default:
		return [][]int{}
	}
}

// BoundarySet names a group of boundary faces by their point lists
type BoundarySet struct {
	Name  string
	Type  PatchType
	Faces [][]int
}

// DefaultPatchName collects the boundary faces not claimed by any BoundarySet
const DefaultPatchName = "defaultFaces"

// faceKey builds an orientation independent key from the face points
func faceKey(verts []int) string {
	sorted := make([]int, len(verts))
	copy(sorted, verts)
	sort.Ints(sorted)
	return fmt.Sprintf("%v", sorted)
}

type elementFace struct {
	verts      []int
	owner, nbr int
}

// FromElements builds a PolyMesh from a zoo of standard elements.
// Shared faces become internal faces owned by the lower numbered element.
// Boundary faces are grouped into one patch per BoundarySet, in the order
// given, followed by a DefaultPatchName wall patch when any face is left over.
func FromElements(points []r3.Vec, elements [][]int, types []ElementType,
	boundaries []BoundarySet) (*PolyMesh, error) {
	if len(elements) != len(types) {
		return nil, fmt.Errorf("have %d elements but %d element types", len(elements), len(types))
	}
	var (
		faces   []elementFace
		faceMap = make(map[string]int)
	)
	for elemID, verts := range elements {
		if len(verts) != types[elemID].NumVertices() {
			return nil, fmt.Errorf("element %d of type %s has %d vertices, need %d",
				elemID, types[elemID], len(verts), types[elemID].NumVertices())
		}
		for _, v := range verts {
			if v < 0 || v >= len(points) {
				return nil, fmt.Errorf("element %d references point %d, have %d points",
					elemID, v, len(points))
			}
		}
		for _, fv := range GetElementFaces(types[elemID], verts) {
			key := faceKey(fv)
			if faceID, exists := faceMap[key]; exists {
				f := &faces[faceID]
				if f.nbr >= 0 {
					return nil, fmt.Errorf("face %v is shared by more than two elements", fv)
				}
				f.nbr = elemID
				continue
			}
			faceMap[key] = len(faces)
			faces = append(faces, elementFace{verts: fv, owner: elemID, nbr: -1})
		}
	}

	// Map boundary faces onto patches
	patchOf := make(map[string]int)
	for ip, bs := range boundaries {
		for _, fv := range bs.Faces {
			key := faceKey(fv)
			faceID, ok := faceMap[key]
			if !ok {
				return nil, fmt.Errorf("boundary %s: face %v is not an element face", bs.Name, fv)
			}
			if faces[faceID].nbr >= 0 {
				return nil, fmt.Errorf("boundary %s: face %v is an internal face", bs.Name, fv)
			}
			patchOf[key] = ip
		}
	}

	var (
		meshFaces  [][]int
		owner      []int
		neighbour  []int
		byPatch    = make([][]int, len(boundaries)+1)
		nUnclaimed int
	)
	for i, f := range faces {
		if f.nbr >= 0 {
			meshFaces = append(meshFaces, f.verts)
			owner = append(owner, f.owner)
			neighbour = append(neighbour, f.nbr)
			continue
		}
		ip, ok := patchOf[faceKey(f.verts)]
		if !ok {
			ip = len(boundaries)
			nUnclaimed++
		}
		byPatch[ip] = append(byPatch[ip], i)
	}
	var patches []Patch
	for ip, list := range byPatch {
		if ip == len(boundaries) && nUnclaimed == 0 {
			break
		}
		p := Patch{Start: len(meshFaces), Size: len(list)}
		if ip < len(boundaries) {
			p.Name, p.Type = boundaries[ip].Name, boundaries[ip].Type
		} else {
			p.Name, p.Type = DefaultPatchName, PatchWall
		}
		for _, i := range list {
			meshFaces = append(meshFaces, faces[i].verts)
			owner = append(owner, faces[i].owner)
		}
		patches = append(patches, p)
	}
	return NewPolyMesh(points, meshFaces, owner, neighbour, patches)
}
