package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Side indices of a HexBlock
const (
	XMin = iota
	XMax
	YMin
	YMax
	ZMin
	ZMax
)

var sideNames = [6]string{"xMin", "xMax", "yMin", "yMax", "zMin", "zMax"}

// HexBlock describes a structured block of hexahedra
type HexBlock struct {
	N        [3]int
	Min, Max r3.Vec
	// Sides sharing a name are merged into one patch
	Names [6]string
	Types [6]PatchType
}

// NewHexBlock returns a block with one wall patch per side
func NewHexBlock(nx, ny, nz int, min, max r3.Vec) HexBlock {
	hb := HexBlock{N: [3]int{nx, ny, nz}, Min: min, Max: max, Names: sideNames}
	for i := range hb.Types {
		hb.Types[i] = PatchWall
	}
	return hb
}

// SetSide renames and retypes a side of the block
func (hb *HexBlock) SetSide(side int, name string, pt PatchType) {
	hb.Names[side], hb.Types[side] = name, pt
}

func (hb HexBlock) PointIndex(i, j, k int) int {
	return i + (hb.N[0]+1)*(j+(hb.N[1]+1)*k)
}

func (hb HexBlock) CellIndex(i, j, k int) int {
	return i + hb.N[0]*(j+hb.N[1]*k)
}

// Build generates the block as a PolyMesh
func (hb HexBlock) Build() (*PolyMesh, error) {
	nx, ny, nz := hb.N[0], hb.N[1], hb.N[2]
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("hex block needs at least one cell per direction, have %v", hb.N)
	}
	d := r3.Sub(hb.Max, hb.Min)
	if d.X <= 0 || d.Y <= 0 || d.Z <= 0 {
		return nil, fmt.Errorf("hex block has empty extent %v to %v", hb.Min, hb.Max)
	}
	points := make([]r3.Vec, (nx+1)*(ny+1)*(nz+1))
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				points[hb.PointIndex(i, j, k)] = r3.Vec{
					X: hb.Min.X + d.X*float64(i)/float64(nx),
					Y: hb.Min.Y + d.Y*float64(j)/float64(ny),
					Z: hb.Min.Z + d.Z*float64(k)/float64(nz),
				}
			}
		}
	}

	var (
		elements = make([][]int, nx*ny*nz)
		types    = make([]ElementType, nx*ny*nz)
		// Local hex face carrying each block side
		sideFace = [6]int{5, 3, 2, 4, 0, 1}
		sides    [6][][]int
	)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				c := hb.CellIndex(i, j, k)
				v := []int{
					hb.PointIndex(i, j, k), hb.PointIndex(i+1, j, k),
					hb.PointIndex(i+1, j+1, k), hb.PointIndex(i, j+1, k),
					hb.PointIndex(i, j, k+1), hb.PointIndex(i+1, j, k+1),
					hb.PointIndex(i+1, j+1, k+1), hb.PointIndex(i, j+1, k+1),
				}
				elements[c], types[c] = v, Hex
				faces := GetElementFaces(Hex, v)
				onSide := [6]bool{i == 0, i == nx-1, j == 0, j == ny-1, k == 0, k == nz-1}
				for s := range onSide {
					if onSide[s] {
						sides[s] = append(sides[s], faces[sideFace[s]])
					}
				}
			}
		}
	}

	var (
		boundaries []BoundarySet
		byName     = make(map[string]int)
	)
	for s := 0; s < 6; s++ {
		name := hb.Names[s]
		if name == "" {
			name = sideNames[s]
		}
		ib, ok := byName[name]
		if !ok {
			ib = len(boundaries)
			byName[name] = ib
			boundaries = append(boundaries, BoundarySet{Name: name, Type: hb.Types[s]})
		}
		boundaries[ib].Faces = append(boundaries[ib].Faces, sides[s]...)
	}
	return FromElements(points, elements, types, boundaries)
}
