package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/graphics"
)

// Plane represents a half-space: ax + by + cz + d = 0
// Normal (a, b, c) points into the "inside" of the frustum.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// DistanceTo returns the signed distance from a point to the plane.
// Positive means on the "inside" (same side as Normal).
func (p Plane) DistanceTo(pt mgl32.Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// Frustum holds the six clip planes of a view frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumFromMatrix extracts the six frustum planes from a projection × view
// matrix (Gribb/Hartmann). The planes are normalized so DistanceTo returns a
// true distance in world units.
func FrustumFromMatrix(vp mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := vp.Row(0), vp.Row(1), vp.Row(2), vp.Row(3)

	var f Frustum
	f.Planes[0] = normalizePlane(r3.Add(r0)) // left
	f.Planes[1] = normalizePlane(r3.Sub(r0)) // right
	f.Planes[2] = normalizePlane(r3.Add(r1)) // bottom
	f.Planes[3] = normalizePlane(r3.Sub(r1)) // top
	f.Planes[4] = normalizePlane(r3.Add(r2)) // near
	f.Planes[5] = normalizePlane(r3.Sub(r2)) // far
	return f
}

func normalizePlane(v mgl32.Vec4) Plane {
	n := v.Vec3()
	l := n.Len()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: n.Mul(1 / l), D: v[3] / l}
}

// ContainsPoint reports whether pt is inside all six planes.
func (f *Frustum) ContainsPoint(pt mgl32.Vec3) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceTo(pt) < 0 {
			return false
		}
	}
	return true
}

// IntersectsAABB returns false if the box is completely outside the frustum.
// Uses the "positive vertex" test: for each plane, check if the corner most
// aligned with the plane normal is on the outside.
func (f *Frustum) IntersectsAABB(box graphics.AABB) bool {
	for i := range f.Planes {
		p := f.Planes[i]
		var pv mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			pv[axis] = box.Max[axis]
			if p.Normal[axis] < 0 {
				pv[axis] = box.Min[axis]
			}
		}
		if p.DistanceTo(pv) < 0 {
			return false // outside this plane
		}
	}
	return true
}
