package graphics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box. The zero value is a degenerate box at
// the origin; use EmptyAABB for a box that grows from nothing.
type AABB struct {
	Min, Max mgl32.Vec3
}

// EmptyAABB returns an inverted box that any Expand call replaces.
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// NewAABB returns the tight box around points.
func NewAABB(points ...mgl32.Vec3) AABB {
	box := EmptyAABB()
	for _, p := range points {
		box = box.Expand(p)
	}
	return box
}

func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

func (b AABB) Expand(p mgl32.Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = math32.Min(b.Min[i], p[i])
		b.Max[i] = math32.Max(b.Max[i], p[i])
	}
	return b
}

func (b AABB) Union(other AABB) AABB {
	if other.IsEmpty() {
		return b
	}
	return b.Expand(other.Min).Expand(other.Max)
}

func (b AABB) Contains(p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Corners returns the eight corners of the box.
func (b AABB) Corners() [8]mgl32.Vec3 {
	mn, mx := b.Min, b.Max
	return [8]mgl32.Vec3{
		{mn[0], mn[1], mn[2]},
		{mx[0], mn[1], mn[2]},
		{mn[0], mx[1], mn[2]},
		{mx[0], mx[1], mn[2]},
		{mn[0], mn[1], mx[2]},
		{mx[0], mn[1], mx[2]},
		{mn[0], mx[1], mx[2]},
		{mx[0], mx[1], mx[2]},
	}
}

// Transform returns the box enclosing all eight transformed corners.
func (b AABB) Transform(m mgl32.Mat4) AABB {
	if b.IsEmpty() {
		return b
	}
	out := EmptyAABB()
	for _, c := range b.Corners() {
		out = out.Expand(mgl32.TransformCoordinate(c, m))
	}
	return out
}

// Raycast intersects a ray with the box using the slab method. The returned
// distance is along dir and is negative when the origin is inside the box.
func (b AABB) Raycast(origin, dir mgl32.Vec3, maxDistance float32) (float32, bool) {
	tmin := math32.Inf(-1)
	tmax := math32.Inf(1)
	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			// Parallel to the slab: inside or never.
			if origin[i] < b.Min[i] || origin[i] > b.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[i]
		t1 := (b.Min[i] - origin[i]) * inv
		t2 := (b.Max[i] - origin[i]) * inv
		tmin = math32.Max(tmin, math32.Min(t1, t2))
		tmax = math32.Min(tmax, math32.Max(t1, t2))
	}

	if tmax < 0 || tmin > tmax || tmin > maxDistance {
		return 0, false
	}
	return tmin, true
}
