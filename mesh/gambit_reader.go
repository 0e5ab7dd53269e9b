package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ReadMeshFile reads a mesh file based on extension
func ReadMeshFile(filename string) (*PolyMesh, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".neu":
		return ReadGambitNeutral(filename)
	default:
		return nil, fmt.Errorf("unsupported mesh format: %s", ext)
	}
}

// ReadGambitNeutral reads a Gambit neutral file (.neu)
func ReadGambitNeutral(filename string) (*PolyMesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadGambit(file)
}

// Gambit node order to element builder node order
var gambitNodeOrder = map[ElementType][]int{
	Hex:     {0, 1, 3, 2, 4, 5, 7, 6},
	Prism:   {0, 1, 2, 3, 4, 5},
	Tet:     {0, 1, 2, 3},
	Pyramid: {0, 1, 3, 2, 4},
}

// Gambit face numbering, in Gambit node order, 0-based
var gambitFaces = map[ElementType][][]int{
	Hex: {
		{0, 1, 5, 4}, {1, 3, 7, 5}, {3, 2, 6, 7},
		{2, 0, 4, 6}, {1, 0, 2, 3}, {4, 5, 7, 6},
	},
	Prism: {
		{0, 1, 4, 3}, {1, 2, 5, 4}, {2, 0, 3, 5},
		{0, 2, 1}, {3, 4, 5},
	},
	Tet: {
		{1, 0, 2}, {0, 1, 3}, {1, 2, 3}, {2, 0, 3},
	},
	Pyramid: {
		{0, 2, 3, 1}, {0, 1, 4}, {1, 3, 4}, {3, 2, 4}, {2, 0, 4},
	},
}

func gambitElementType(gambitType int) (ElementType, bool) {
	switch gambitType {
	case 4: // Brick
		return Hex, true
	case 5: // Wedge
		return Prism, true
	case 6: // Tetrahedron
		return Tet, true
	case 7: // Pyramid
		return Pyramid, true
	}
	return 0, false
}

// ReadGambit parses a 3-D Gambit neutral stream into a PolyMesh.
// Each BOUNDARY CONDITIONS section with element/face entries becomes a
// patch, typed by ParsePatchType of its name.
func ReadGambit(r io.Reader) (*PolyMesh, error) {
	var (
		scanner      = bufio.NewScanner(r)
		numnp, nelem int
		points       []r3.Vec
		gambitNodes  [][]int // Element nodes in Gambit order
		elements     [][]int
		types        []ElementType
		boundaries   []BoundarySet
	)

	// Read control info section
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.Contains(line, "NUMNP") && strings.Contains(line, "NELEM") {
			if !scanner.Scan() {
				return nil, fmt.Errorf("unexpected EOF after control header")
			}
			values := strings.Fields(scanner.Text())
			if len(values) < 6 {
				return nil, fmt.Errorf("malformed control info: %q", scanner.Text())
			}
			numnp, _ = strconv.Atoi(values[0])
			nelem, _ = strconv.Atoi(values[1])
			if ndfcd, _ := strconv.Atoi(values[4]); ndfcd != 3 {
				return nil, fmt.Errorf("only 3-D Gambit meshes are supported, have NDFCD=%d", ndfcd)
			}
			break
		}
	}
	if numnp == 0 || nelem == 0 {
		return nil, fmt.Errorf("no control info found")
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.Contains(line, "NODAL COORDINATES"):
			points = make([]r3.Vec, numnp)
			for i := 0; i < numnp; i++ {
				if !scanner.Scan() {
					return nil, fmt.Errorf("unexpected EOF reading nodes")
				}
				fields := strings.Fields(scanner.Text())
				if len(fields) < 4 {
					return nil, fmt.Errorf("malformed node line %q", scanner.Text())
				}
				nodeID, _ := strconv.Atoi(fields[0])
				var xyz [3]float64
				for d := 0; d < 3; d++ {
					val, err := strconv.ParseFloat(fields[1+d], 64)
					if err != nil {
						return nil, fmt.Errorf("node %d: %w", nodeID, err)
					}
					xyz[d] = val
				}
				// Gambit uses 1-based node IDs
				idx := nodeID - 1
				if idx < 0 || idx >= numnp {
					return nil, fmt.Errorf("node ID %d out of range", nodeID)
				}
				points[idx] = r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
			}

		case strings.Contains(line, "ELEMENTS/CELLS"):
			for i := 0; i < nelem; i++ {
				if !scanner.Scan() {
					return nil, fmt.Errorf("unexpected EOF reading elements")
				}
				fields := strings.Fields(scanner.Text())
				if len(fields) < 3 {
					return nil, fmt.Errorf("malformed element line %q", scanner.Text())
				}
				gambitType, _ := strconv.Atoi(fields[1])
				numNodes, _ := strconv.Atoi(fields[2])
				etype, ok := gambitElementType(gambitType)
				if !ok || numNodes != etype.NumVertices() {
					return nil, fmt.Errorf("unsupported Gambit element type %d with %d nodes",
						gambitType, numNodes)
				}
				nodeFields := fields[3:]
				// Long node lists continue on the following line
				for len(nodeFields) < numNodes {
					if !scanner.Scan() {
						return nil, fmt.Errorf("unexpected EOF reading element nodes")
					}
					nodeFields = append(nodeFields, strings.Fields(scanner.Text())...)
				}
				nodes := make([]int, numNodes)
				for j := 0; j < numNodes; j++ {
					nodeID, err := strconv.Atoi(nodeFields[j])
					if err != nil {
						return nil, fmt.Errorf("element %s: %w", fields[0], err)
					}
					nodes[j] = nodeID - 1
				}
				verts := make([]int, numNodes)
				for j, g := range gambitNodeOrder[etype] {
					verts[j] = nodes[g]
				}
				gambitNodes = append(gambitNodes, nodes)
				elements = append(elements, verts)
				types = append(types, etype)
			}

		case strings.Contains(line, "BOUNDARY CONDITIONS"):
			if !scanner.Scan() {
				return nil, fmt.Errorf("unexpected EOF reading boundary conditions")
			}
			// Format: NAME ITYPE NENTRY NVALUES IBCODE1 ...
			parts := strings.Fields(scanner.Text())
			if len(parts) < 3 {
				return nil, fmt.Errorf("malformed boundary header %q", scanner.Text())
			}
			bcName := parts[0]
			itype, _ := strconv.Atoi(parts[1])
			nentry, _ := strconv.Atoi(parts[2])
			bs := BoundarySet{Name: bcName, Type: ParsePatchType(bcName)}
			for i := 0; i < nentry; i++ {
				if !scanner.Scan() {
					return nil, fmt.Errorf("unexpected EOF reading boundary %s", bcName)
				}
				if itype != 1 {
					// Node boundary conditions carry no faces
					continue
				}
				fields := strings.Fields(scanner.Text())
				if len(fields) < 3 {
					return nil, fmt.Errorf("malformed boundary entry %q", scanner.Text())
				}
				elemID, _ := strconv.Atoi(fields[0])
				faceID, _ := strconv.Atoi(fields[2])
				elemIdx := elemID - 1
				if elemIdx < 0 || elemIdx >= len(elements) {
					return nil, fmt.Errorf("boundary %s references element %d", bcName, elemID)
				}
				table := gambitFaces[types[elemIdx]]
				if faceID < 1 || faceID > len(table) {
					return nil, fmt.Errorf("boundary %s: element %d has no face %d", bcName, elemID, faceID)
				}
				local := table[faceID-1]
				fv := make([]int, len(local))
				for j, g := range local {
					fv[j] = gambitNodes[elemIdx][g]
				}
				bs.Faces = append(bs.Faces, fv)
			}
			if itype == 1 {
				boundaries = append(boundaries, bs)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	if points == nil || elements == nil {
		return nil, fmt.Errorf("missing nodal coordinates or elements")
	}
	return FromElements(points, elements, types, boundaries)
}
