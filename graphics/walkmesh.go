package graphics

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Face is one walkmesh triangle in object space.
type Face struct {
	Index    int
	Material uint32
	Vertices [3]mgl32.Vec3
	Normal   mgl32.Vec3
}

// Centroid returns the average of the three corners.
func (f *Face) Centroid() mgl32.Vec3 {
	return f.Vertices[0].Add(f.Vertices[1]).Add(f.Vertices[2]).Mul(1.0 / 3.0)
}

// Area returns the surface area of the triangle.
func (f *Face) Area() float32 {
	e1 := f.Vertices[1].Sub(f.Vertices[0])
	e2 := f.Vertices[2].Sub(f.Vertices[0])
	return 0.5 * e1.Cross(e2).Len()
}

// Walkmesh is an immutable collision surface. Area walkmeshes cover a whole
// room and are never skipped by distance checks; placeable and door walkmeshes
// are.
type Walkmesh struct {
	Name  string
	Faces []Face
	Area  bool

	aabb AABB
}

// NewWalkmesh computes face normals and the bounding box.
func NewWalkmesh(name string, faces []Face, area bool) *Walkmesh {
	w := &Walkmesh{Name: name, Faces: faces, Area: area, aabb: EmptyAABB()}
	for i := range w.Faces {
		f := &w.Faces[i]
		f.Index = i
		e1 := f.Vertices[1].Sub(f.Vertices[0])
		e2 := f.Vertices[2].Sub(f.Vertices[0])
		if n := e1.Cross(e2); n.Len() > 0 {
			f.Normal = n.Normalize()
		}
		for _, v := range f.Vertices {
			w.aabb = w.aabb.Expand(v)
		}
	}
	return w
}

// WalkmeshFromMesh converts a triangle mesh with per-face materials.
func WalkmeshFromMesh(name string, mesh *Mesh, area bool) *Walkmesh {
	faces := make([]Face, mesh.NumFaces())
	for i := range faces {
		faces[i] = Face{Material: mesh.FaceMaterial(i), Vertices: mesh.Face(i)}
	}
	return NewWalkmesh(name, faces, area)
}

func (w *Walkmesh) IsAreaWalkmesh() bool {
	return w.Area
}

func (w *Walkmesh) AABB() AABB {
	return w.aabb
}

// Raycast returns the nearest face whose material is in materials and which
// the ray hits within [0, maxDistance]. Origin and dir are in object space;
// dir is expected to be normalised.
func (w *Walkmesh) Raycast(materials MaterialSet, origin, dir mgl32.Vec3, maxDistance float32) (*Face, float32, bool) {
	if len(w.Faces) == 0 || w.aabb.IsEmpty() {
		return nil, 0, false
	}
	if _, ok := w.aabb.Raycast(origin, dir, maxDistance); !ok {
		return nil, 0, false
	}
	var (
		best     *Face
		bestDist = maxDistance
	)
	for i := range w.Faces {
		f := &w.Faces[i]
		if !materials.Has(f.Material) {
			continue
		}
		t, ok := rayTriangle(origin, dir, f.Vertices[0], f.Vertices[1], f.Vertices[2])
		if !ok || t > bestDist {
			continue
		}
		if best == nil || t < bestDist {
			best = f
			bestDist = t
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, bestDist, true
}

// rayTriangle is the Möller–Trumbore intersection. Both faces of the triangle
// are hit; the returned distance is non-negative.
func rayTriangle(origin, dir, v0, v1, v2 mgl32.Vec3) (float32, bool) {
	const epsilon = 0.0000001

	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	h := dir.Cross(edge2)
	a := edge1.Dot(h)

	if a > -epsilon && a < epsilon {
		return 0, false // parallel
	}

	f := 1.0 / a
	s := origin.Sub(v0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return 0, false
	}

	q := s.Cross(edge1)
	v := f * dir.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return 0, false
	}

	t := f * edge2.Dot(q)
	return t, t >= 0
}
