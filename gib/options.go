package gib

import (
	"fmt"
	"log"
	"strings"

	"github.com/notargets/gibmesh/InputParameters"
)

// ReleasePolicy decides the fate of a zone face released by both of its cells
type ReleasePolicy uint8

const (
	// ReleaseConservative keeps the face in the zone
	ReleaseConservative ReleasePolicy = iota
	// ReleaseRegions keeps the face only when the region labels on its two
	// sides differ
	ReleaseRegions
)

func (rp ReleasePolicy) String() string {
	switch rp {
	case ReleaseConservative:
		return "conservative"
	case ReleaseRegions:
		return "regions"
	}
	return fmt.Sprintf("ReleasePolicy(%d)", rp)
}

func ParseReleasePolicy(name string) (ReleasePolicy, error) {
	switch strings.ToLower(name) {
	case "", "conservative":
		return ReleaseConservative, nil
	case "regions":
		return ReleaseRegions, nil
	}
	return 0, fmt.Errorf("%w: unknown double release policy %q", ErrConfig, name)
}

type Options struct {
	ZoneName       string
	AllowPrismFlip bool
	DoubleRelease  ReleasePolicy
	// Points on these patches keep their base position. Nil selects every
	// inlet and outlet patch.
	ConstraintPatches []string
	// Empty direction of a 2-D mesh, -1 detects it from empty patches
	EmptyDirection    int
	Tolerance         float64
	AdmissibilityTol  float64
	MaxFlipIterations int
	Logger            *log.Logger
}

func DefaultOptions() Options {
	return Options{
		ZoneName:          "gibFaces",
		DoubleRelease:     ReleaseConservative,
		EmptyDirection:    -1,
		Tolerance:         1.e-6,
		AdmissibilityTol:  1.e-12,
		MaxFlipIterations: 1,
	}
}

// OptionsFromParameters converts the input file settings
func OptionsFromParameters(ip *InputParameters.GIBParameters) (opts Options, err error) {
	opts = DefaultOptions()
	opts.ZoneName = ip.ZoneName
	opts.AllowPrismFlip = ip.AllowPrismFlip
	if opts.DoubleRelease, err = ParseReleasePolicy(ip.DoubleRelease); err != nil {
		return
	}
	opts.ConstraintPatches = ip.ConstraintPatches
	if ip.EmptyDirection != nil {
		opts.EmptyDirection = *ip.EmptyDirection
	}
	opts.Tolerance = ip.Tolerance
	opts.AdmissibilityTol = ip.AdmissibilityTol
	opts.MaxFlipIterations = ip.MaxFlipIterations
	return opts, opts.validate()
}

func (o *Options) validate() error {
	if o.EmptyDirection < -1 || o.EmptyDirection > 2 {
		return fmt.Errorf("%w: empty direction %d", ErrConfig, o.EmptyDirection)
	}
	if o.Tolerance < 0 || o.AdmissibilityTol < 0 {
		return fmt.Errorf("%w: negative tolerance", ErrConfig)
	}
	if o.MaxFlipIterations < 1 {
		o.MaxFlipIterations = 1
	}
	if o.ZoneName == "" {
		o.ZoneName = "gibFaces"
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return nil
}
