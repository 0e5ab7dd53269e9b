package mesh

import "strings"

// PatchType classifies a boundary patch of the background mesh
type PatchType uint16

const (
	// PatchGeneric is a plain boundary patch with no constraint
	PatchGeneric PatchType = iota

	// Physical boundaries
	PatchWall
	PatchInlet
	PatchOutlet

	// Geometric constraint boundaries
	PatchSymmetry      // Symmetry, plane fitted from the patch faces
	PatchSymmetryPlane // Symmetry, exactly planar
	PatchWedge         // Axisymmetric wedge side
	PatchEmpty         // Front/back of a 2-D mesh

	// Parallel/domain decomposition
	PatchProcessor // Boundary between mesh partitions
)

// String returns the string representation of a PatchType
func (pt PatchType) String() string {
	names := map[PatchType]string{
		PatchGeneric:       "patch",
		PatchWall:          "wall",
		PatchInlet:         "inlet",
		PatchOutlet:        "outlet",
		PatchSymmetry:      "symmetry",
		PatchSymmetryPlane: "symmetryPlane",
		PatchWedge:         "wedge",
		PatchEmpty:         "empty",
		PatchProcessor:     "processor",
	}
	if name, ok := names[pt]; ok {
		return name
	}
	return "unknown"
}

// PatchNameMap maps common boundary names onto a PatchType
// Keys are lowercase for case-insensitive matching
var PatchNameMap = map[string]PatchType{
	"patch":   PatchGeneric,
	"generic": PatchGeneric,

	"wall":    PatchWall,
	"no_slip": PatchWall,
	"noslip":  PatchWall,
	"body":    PatchWall,

	"inlet":           PatchInlet,
	"inflow":          PatchInlet,
	"velocity_inlet":  PatchInlet,
	"mass_flow_inlet": PatchInlet,

	"outlet":          PatchOutlet,
	"outflow":         PatchOutlet,
	"exit":            PatchOutlet,
	"pressure_outlet": PatchOutlet,

	"symmetry":       PatchSymmetry,
	"symmetric":      PatchSymmetry,
	"symmetryplane":  PatchSymmetryPlane,
	"symmetry_plane": PatchSymmetryPlane,
	"wedge":          PatchWedge,
	"empty":          PatchEmpty,
	"frontandback":   PatchEmpty,

	"processor": PatchProcessor,
}

// ParsePatchType converts a boundary name to a PatchType
// The matching is case-insensitive and trims whitespace. Unknown names
// are generic patches.
func ParsePatchType(name string) PatchType {
	lowerName := strings.ToLower(strings.TrimSpace(name))
	if pt, ok := PatchNameMap[lowerName]; ok {
		return pt
	}
	// Names like "inlet1" or "outlet_top" still carry their type
	for _, prefix := range []string{"inlet", "outlet", "symmetry", "wedge", "empty", "wall"} {
		if strings.HasPrefix(lowerName, prefix) {
			return PatchNameMap[prefix]
		}
	}
	return PatchGeneric
}

// Patch is a contiguous range of boundary faces
type Patch struct {
	Name  string
	Type  PatchType
	Start int // First face index
	Size  int // Number of faces

	// Only used by processor patches
	NeighbourRank int
}

func (p Patch) IsWedge() bool     { return p.Type == PatchWedge }
func (p Patch) IsEmpty() bool     { return p.Type == PatchEmpty }
func (p Patch) IsProcessor() bool { return p.Type == PatchProcessor }

// IsSymmetry is true for both fitted and exact symmetry planes
func (p Patch) IsSymmetry() bool {
	return p.Type == PatchSymmetry || p.Type == PatchSymmetryPlane
}

// IsCoupled is true when the faces of the patch have a neighbour cell on
// another partition
func (p Patch) IsCoupled() bool { return p.Type == PatchProcessor }

// IsConstraint is true for patches whose points must stay on the patch plane
func (p Patch) IsConstraint() bool { return p.IsSymmetry() || p.IsWedge() }

// IsInflowOutflow is true for patches that are frozen by default
func (p Patch) IsInflowOutflow() bool {
	return p.Type == PatchInlet || p.Type == PatchOutlet
}

// Contains reports whether the face index belongs to this patch
func (p Patch) Contains(face int) bool {
	return face >= p.Start && face < p.Start+p.Size
}
