package motion

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gibmesh/surface"
)

// surfaceDriver moves a triangulated surface with a rigid motion law and
// projects interface points onto it. Interface points keep their hit on
// the surface from pass to pass, so they ride along with the motion.
type surfaceDriver struct {
	base, current *surface.Surface
	law           func(t float64) Transform
	static        bool
	time          float64
	hits          *surface.HitCache

	// State before the last Advance
	prevTime    float64
	prevCurrent *surface.Surface
	prevHits    *surface.HitCache
}

func newSurfaceDriver(s *surface.Surface, law func(t float64) Transform, static bool) surfaceDriver {
	return surfaceDriver{
		base:        s,
		current:     s,
		law:         law,
		static:      static,
		prevCurrent: s,
	}
}

func (d *surfaceDriver) Surface() *surface.Surface { return d.current }

func (d *surfaceDriver) Time() float64 { return d.time }

func (d *surfaceDriver) Advance(dt float64) (moved bool, err error) {
	d.prevTime, d.prevCurrent = d.time, d.current
	d.prevHits = nil
	if d.hits != nil {
		d.prevHits = d.hits.Clone()
	}
	if dt < 0 {
		return false, fmt.Errorf("negative time step %g", dt)
	}
	d.time += dt
	if dt == 0 || d.static {
		return false, nil
	}
	tr := d.law(d.time)
	d.current = d.base.Transformed(tr.Apply)
	return true, nil
}

func (d *surfaceDriver) Revert() {
	d.time, d.current, d.hits = d.prevTime, d.prevCurrent, d.prevHits
}

func (d *surfaceDriver) ProposedPoints(s Snapshot) (out []r3.Vec, err error) {
	if err = s.check(); err != nil {
		return nil, err
	}
	if d.hits == nil {
		d.hits = surface.NewHitCache(len(s.Base))
	}
	if err = d.hits.Check(len(s.Base)); err != nil {
		return nil, err
	}
	out = make([]r3.Vec, len(s.Base))
	for p := range out {
		if !s.Interface[p] {
			d.hits.Clear(p)
			out[p] = s.Current[p]
			continue
		}
		h, ok := d.hits.Get(p)
		if !ok {
			h = d.current.Nearest(s.Current[p])
			d.hits.Set(p, h)
			out[p] = h.Point
			continue
		}
		if out[p], err = d.current.Evaluate(h); err != nil {
			return nil, fmt.Errorf("point %d: %w", p, err)
		}
	}
	return
}

// RigidTransform translates the surface with Velocity and spins it with
// angular velocity Omega about Centre
type RigidTransform struct {
	surfaceDriver
	Centre, Velocity, Omega r3.Vec
}

func NewRigidTransform(s *surface.Surface, centre, velocity, omega r3.Vec) *RigidTransform {
	rt := &RigidTransform{Centre: centre, Velocity: velocity, Omega: omega}
	rt.surfaceDriver = newSurfaceDriver(s, func(t float64) Transform {
		return RigidAt(rt.Centre, rt.Velocity, rt.Omega, t)
	}, velocity == r3.Vec{} && omega == r3.Vec{})
	return rt
}

// CoordinateFrame is a rigid motion given in a local frame. The local z
// axis is Axis, the local x axis is Frame made orthogonal to Axis.
type CoordinateFrame struct {
	surfaceDriver
	Origin      r3.Vec
	Axes        [3]r3.Vec // Local x, y, z in global coordinates
	LocalVel    r3.Vec
	LocalOmega  r3.Vec
	globalVel   r3.Vec
	globalOmega r3.Vec
}

func NewCoordinateFrame(s *surface.Surface, origin, axis, frame, velocity, omega r3.Vec) (cf *CoordinateFrame, err error) {
	if r3.Norm(axis) == 0 {
		return nil, fmt.Errorf("%w: frame axis is zero", ErrConfig)
	}
	e3 := r3.Unit(axis)
	e1 := r3.Sub(frame, r3.Scale(r3.Dot(frame, e3), e3))
	if r3.Norm(e1) < 1.e-12*(1+r3.Norm(frame)) {
		return nil, fmt.Errorf("%w: frame direction %v is parallel to axis %v", ErrConfig, frame, axis)
	}
	e1 = r3.Unit(e1)
	cf = &CoordinateFrame{
		Origin:     origin,
		Axes:       [3]r3.Vec{e1, r3.Cross(e3, e1), e3},
		LocalVel:   velocity,
		LocalOmega: omega,
	}
	cf.globalVel, cf.globalOmega = cf.ToGlobal(velocity), cf.ToGlobal(omega)
	cf.surfaceDriver = newSurfaceDriver(s, func(t float64) Transform {
		return RigidAt(cf.Origin, cf.globalVel, cf.globalOmega, t)
	}, velocity == r3.Vec{} && omega == r3.Vec{})
	return
}

// ToGlobal maps a direction from local to global coordinates
func (cf *CoordinateFrame) ToGlobal(v r3.Vec) r3.Vec {
	return r3.Add(r3.Add(r3.Scale(v.X, cf.Axes[0]), r3.Scale(v.Y, cf.Axes[1])), r3.Scale(v.Z, cf.Axes[2]))
}
