package graphics

import (
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/core"
)

// Mesh holds CPU-side vertex/index data.
// GPU upload is managed by the renderer backend.
type Mesh struct {
	Name     string
	Vertices []core.Vertex
	Indices  []uint32

	// FaceMaterials holds one surface material per triangle, used by AABB
	// meshes that grass and walkmesh debugging read.
	FaceMaterials []uint32

	// Cached local-space AABB (computed by NewMesh).
	LocalAABB AABB

	// GPUData is set by the renderer backend (e.g. *opengl.GPUMesh).
	GPUData interface{}
}

// NewMesh builds a Mesh and pre-computes its local-space AABB.
func NewMesh(name string, vertices []core.Vertex, indices []uint32) *Mesh {
	m := &Mesh{
		Name:     name,
		Vertices: vertices,
		Indices:  indices,
	}
	m.LocalAABB = EmptyAABB()
	for _, v := range vertices {
		m.LocalAABB = m.LocalAABB.Expand(v.Position)
	}
	return m
}

// NumFaces returns the triangle count of the mesh.
func (m *Mesh) NumFaces() int {
	if len(m.Indices) > 0 {
		return len(m.Indices) / 3
	}
	return len(m.Vertices) / 3
}

// Face returns the object-space corners of triangle i.
func (m *Mesh) Face(i int) [3]mgl32.Vec3 {
	if len(m.Indices) > 0 {
		return [3]mgl32.Vec3{
			m.Vertices[m.Indices[3*i]].Position,
			m.Vertices[m.Indices[3*i+1]].Position,
			m.Vertices[m.Indices[3*i+2]].Position,
		}
	}
	return [3]mgl32.Vec3{
		m.Vertices[3*i].Position,
		m.Vertices[3*i+1].Position,
		m.Vertices[3*i+2].Position,
	}
}

// FaceMaterial returns the material of triangle i, or 0 when the mesh
// carries no per-face materials.
func (m *Mesh) FaceMaterial(i int) uint32 {
	if i < len(m.FaceMaterials) {
		return m.FaceMaterials[i]
	}
	return 0
}

// NewQuad returns a unit quad in the XY plane centred at the origin.
func NewQuad() *Mesh {
	n := mgl32.Vec3{0, 0, 1}
	vertices := []core.Vertex{
		{Position: mgl32.Vec3{-0.5, -0.5, 0}, Normal: n, UV: mgl32.Vec2{0, 0}, Color: core.ColorWhite},
		{Position: mgl32.Vec3{0.5, -0.5, 0}, Normal: n, UV: mgl32.Vec2{1, 0}, Color: core.ColorWhite},
		{Position: mgl32.Vec3{0.5, 0.5, 0}, Normal: n, UV: mgl32.Vec2{1, 1}, Color: core.ColorWhite},
		{Position: mgl32.Vec3{-0.5, 0.5, 0}, Normal: n, UV: mgl32.Vec2{0, 1}, Color: core.ColorWhite},
	}
	return NewMesh("Quad", vertices, []uint32{0, 1, 2, 2, 3, 0})
}
