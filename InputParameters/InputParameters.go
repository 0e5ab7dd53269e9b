package InputParameters

import (
	"fmt"
	"strings"

	"github.com/ghodss/yaml"
	"gonum.org/v1/gonum/spatial/r3"
)

// Parameters obtained from the YAML input file
type GIBParameters struct {
	Title             string                `yaml:"Title"`
	ZoneName          string                `yaml:"ZoneName"`
	Motion            MotionParameters      `yaml:"Motion"`
	InitialZone       InitialZoneParameters `yaml:"InitialZone"`
	AllowPrismFlip    bool                  `yaml:"AllowPrismFlip"`
	DoubleRelease     string                `yaml:"DoubleRelease"` // conservative or regions
	ConstraintPatches []string              `yaml:"ConstraintPatches"`
	EmptyDirection    *int                  `yaml:"EmptyDirection"` // 0, 1 or 2, detected when absent
	Tolerance         float64               `yaml:"Tolerance"`
	AdmissibilityTol  float64               `yaml:"AdmissibilityTol"`
	MaxFlipIterations int                   `yaml:"MaxFlipIterations"`
	Ranks             int                   `yaml:"Ranks"`
	PartitionMethod   string                `yaml:"PartitionMethod"` // block or metis
	DumpSurface       string                `yaml:"DumpSurface"`     // STL file name of the cut surface
}

// MotionParameters select and configure the surface motion driver
type MotionParameters struct {
	Type string `yaml:"Type"` // rigid, frame, sensitivity or external

	// Triangulated surface, from a file or a built-in shape
	Surface string    `yaml:"Surface"`
	Box     []float64 `yaml:"Box"`    // xmin ymin zmin xmax ymax zmax
	Sphere  []float64 `yaml:"Sphere"` // cx cy cz radius

	// rigid: velocity and angular velocity about Centre
	// frame: the same, given in the frame spanned by Axis and Frame at Origin
	Velocity []float64 `yaml:"Velocity"`
	Omega    []float64 `yaml:"Omega"`
	Centre   []float64 `yaml:"Centre"`
	Origin   []float64 `yaml:"Origin"`
	Axis     []float64 `yaml:"Axis"`  // Local z direction
	Frame    []float64 `yaml:"Frame"` // Local x direction

	// sensitivity: displacement per unit time is StepSize times the field
	StepSize        float64 `yaml:"StepSize"`
	SensitivityFile string  `yaml:"SensitivityFile"`

	// external: registered solver motion function
	Function string `yaml:"Function"`
}

// InitialZoneParameters describe how the first interface zone is cut
type InitialZoneParameters struct {
	Type    string    `yaml:"Type"` // surface, plane or patches
	Patches []string  `yaml:"Patches"`
	Point   []float64 `yaml:"Point"`
	Normal  []float64 `yaml:"Normal"`
}

// NewGIBParameters returns the defaults used for keys absent from the input
func NewGIBParameters() *GIBParameters {
	return &GIBParameters{
		ZoneName:          "gibFaces",
		DoubleRelease:     "conservative",
		Tolerance:         1.e-6,
		AdmissibilityTol:  1.e-12,
		MaxFlipIterations: 1,
		Ranks:             1,
		PartitionMethod:   "block",
		InitialZone:       InitialZoneParameters{Type: "surface"},
	}
}

func (ip *GIBParameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, ip); err != nil {
		return err
	}
	return ip.Validate()
}

// Validate checks value ranges and vector lengths
func (ip *GIBParameters) Validate() error {
	if ip.EmptyDirection != nil && (*ip.EmptyDirection < 0 || *ip.EmptyDirection > 2) {
		return fmt.Errorf("EmptyDirection must be 0, 1 or 2, have %d", *ip.EmptyDirection)
	}
	if ip.Tolerance < 0 || ip.AdmissibilityTol < 0 {
		return fmt.Errorf("tolerances must be non negative")
	}
	if ip.MaxFlipIterations < 1 {
		return fmt.Errorf("MaxFlipIterations must be at least 1, have %d", ip.MaxFlipIterations)
	}
	if ip.Ranks < 1 {
		return fmt.Errorf("Ranks must be at least 1, have %d", ip.Ranks)
	}
	switch strings.ToLower(ip.DoubleRelease) {
	case "conservative", "regions":
	default:
		return fmt.Errorf("unknown DoubleRelease policy %q", ip.DoubleRelease)
	}
	vecs := map[string][]float64{
		"Motion.Velocity": ip.Motion.Velocity, "Motion.Omega": ip.Motion.Omega,
		"Motion.Centre": ip.Motion.Centre, "Motion.Origin": ip.Motion.Origin,
		"Motion.Axis": ip.Motion.Axis, "Motion.Frame": ip.Motion.Frame,
		"InitialZone.Point": ip.InitialZone.Point, "InitialZone.Normal": ip.InitialZone.Normal,
	}
	for name, v := range vecs {
		if v != nil && len(v) != 3 {
			return fmt.Errorf("%s needs 3 components, have %d", name, len(v))
		}
	}
	if ip.Motion.Box != nil && len(ip.Motion.Box) != 6 {
		return fmt.Errorf("Motion.Box needs 6 values, have %d", len(ip.Motion.Box))
	}
	if ip.Motion.Sphere != nil && len(ip.Motion.Sphere) != 4 {
		return fmt.Errorf("Motion.Sphere needs 4 values, have %d", len(ip.Motion.Sphere))
	}
	return nil
}

// Vec converts an optional 3 component list, absent lists are the zero vector
func Vec(v []float64) r3.Vec {
	if len(v) != 3 {
		return r3.Vec{}
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

func (ip *GIBParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s]\t\t= Zone Name\n", ip.ZoneName)
	fmt.Printf("[%s]\t\t\t= Motion Type\n", ip.Motion.Type)
	if ip.Motion.Surface != "" {
		fmt.Printf("[%s]\t= Motion Surface\n", ip.Motion.Surface)
	}
	fmt.Printf("[%s]\t\t= Initial Zone\n", ip.InitialZone.Type)
	fmt.Printf("[%v]\t\t\t= Allow Prism Flip\n", ip.AllowPrismFlip)
	fmt.Printf("[%s]\t= Double Release Policy\n", ip.DoubleRelease)
	fmt.Printf("%v\t\t\t= Constraint Patches\n", ip.ConstraintPatches)
	if ip.EmptyDirection != nil {
		fmt.Printf("[%d]\t\t\t\t= Empty Direction\n", *ip.EmptyDirection)
	}
	fmt.Printf("%8.5g\t\t= Tolerance\n", ip.Tolerance)
	fmt.Printf("%8.5g\t\t= Admissibility Tolerance\n", ip.AdmissibilityTol)
	fmt.Printf("[%d]\t\t\t\t= Max Flip Iterations\n", ip.MaxFlipIterations)
	fmt.Printf("[%d]\t\t\t\t= Ranks\n", ip.Ranks)
	fmt.Printf("[%s]\t\t\t= Partition Method\n", ip.PartitionMethod)
}
