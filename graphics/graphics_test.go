package graphics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotor-render/core"
)

const eps = 1e-4

func TestAABBRaycast(t *testing.T) {
	box := AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}

	d, ok := box.Raycast(mgl32.Vec3{-5, 0, 0}, mgl32.Vec3{1, 0, 0}, 10)
	require.True(t, ok)
	assert.InDelta(t, 4, d, eps)

	_, ok = box.Raycast(mgl32.Vec3{-5, 0, 0}, mgl32.Vec3{1, 0, 0}, 3)
	assert.False(t, ok, "box beyond max distance")

	_, ok = box.Raycast(mgl32.Vec3{-5, 3, 0}, mgl32.Vec3{1, 0, 0}, 10)
	assert.False(t, ok, "ray passes above")

	_, ok = box.Raycast(mgl32.Vec3{5, 0, 0}, mgl32.Vec3{1, 0, 0}, 10)
	assert.False(t, ok, "box behind origin")

	d, ok = box.Raycast(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}, 10)
	require.True(t, ok)
	assert.Less(t, d, float32(0), "origin inside")
}

func TestAABBTransformAndUnion(t *testing.T) {
	box := NewAABB(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1})
	moved := box.Transform(mgl32.Translate3D(10, 0, 0))
	assert.InDelta(t, 10, moved.Min[0], eps)
	assert.InDelta(t, 11, moved.Max[0], eps)

	u := EmptyAABB().Union(box).Union(moved)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, u.Min)
	assert.InDelta(t, 11, u.Max[0], eps)
	assert.True(t, EmptyAABB().IsEmpty())
	assert.True(t, u.Contains(mgl32.Vec3{5, 0.5, 0.5}))
}

func floorWalkmesh(materials ...uint32) *Walkmesh {
	// Two 10x10 quads at z=0 and z=2 over the same footprint.
	quad := func(z float32, material uint32) []Face {
		return []Face{
			{Material: material, Vertices: [3]mgl32.Vec3{{0, 0, z}, {10, 0, z}, {10, 10, z}}},
			{Material: material, Vertices: [3]mgl32.Vec3{{0, 0, z}, {10, 10, z}, {0, 10, z}}},
		}
	}
	var faces []Face
	faces = append(faces, quad(0, materials[0])...)
	faces = append(faces, quad(2, materials[1])...)
	return NewWalkmesh("floor", faces, true)
}

func TestWalkmeshRaycastNearest(t *testing.T) {
	w := floorWalkmesh(1, 2)
	down := mgl32.Vec3{0, 0, -1}

	face, d, ok := w.Raycast(NewMaterialSet(1, 2), mgl32.Vec3{5, 4, 10}, down, 100)
	require.True(t, ok)
	assert.InDelta(t, 8, d, eps)
	assert.Equal(t, uint32(2), face.Material)
	assert.InDelta(t, 1, face.Normal[2], eps)
}

func TestWalkmeshRaycastMaterialFilter(t *testing.T) {
	w := floorWalkmesh(1, 2)
	down := mgl32.Vec3{0, 0, -1}

	face, d, ok := w.Raycast(NewMaterialSet(1), mgl32.Vec3{5, 4, 10}, down, 100)
	require.True(t, ok)
	assert.InDelta(t, 10, d, eps)
	assert.Equal(t, uint32(1), face.Material)

	_, _, ok = w.Raycast(NewMaterialSet(7), mgl32.Vec3{5, 4, 10}, down, 100)
	assert.False(t, ok)

	_, _, ok = w.Raycast(nil, mgl32.Vec3{5, 4, 10}, down, 100)
	assert.False(t, ok, "nil set matches nothing")
}

func TestWalkmeshRaycastMaxDistance(t *testing.T) {
	w := floorWalkmesh(1, 2)
	down := mgl32.Vec3{0, 0, -1}

	_, _, ok := w.Raycast(NewMaterialSet(1, 2), mgl32.Vec3{5, 4, 10}, down, 5)
	assert.False(t, ok)

	_, _, ok = w.Raycast(NewMaterialSet(1, 2), mgl32.Vec3{20, 4, 10}, down, 100)
	assert.False(t, ok, "outside footprint")

	_, _, ok = w.Raycast(NewMaterialSet(1, 2), mgl32.Vec3{5, 4, -1}, down, 100)
	assert.False(t, ok, "surfaces behind the ray")
}

func TestWalkmeshFromMesh(t *testing.T) {
	mesh := NewMesh("aabb", []core.Vertex{
		{Position: mgl32.Vec3{0, 0, 0}},
		{Position: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{0, 1, 0}},
	}, []uint32{0, 1, 2})
	mesh.FaceMaterials = []uint32{4}

	w := WalkmeshFromMesh("wm", mesh, false)
	require.Len(t, w.Faces, 1)
	assert.Equal(t, uint32(4), w.Faces[0].Material)
	assert.False(t, w.IsAreaWalkmesh())
	assert.InDelta(t, 0.5, w.Faces[0].Area(), eps)
}

func TestModelNodeSampling(t *testing.T) {
	n := NewModelNode("arm")
	n.Translations = []TranslationKey{{Time: 0, Value: mgl32.Vec3{0, 0, 0}}, {Time: 1, Value: mgl32.Vec3{2, 0, 0}}}
	n.Scales = []ScaleKey{{Time: 0, Value: 1}, {Time: 2, Value: 3}}

	v, ok := n.TranslationAt(0.5, 1)
	require.True(t, ok)
	assert.InDelta(t, 1, v[0], eps)

	v, _ = n.TranslationAt(0.5, 2)
	assert.InDelta(t, 2, v[0], eps, "scaled")

	v, _ = n.TranslationAt(5, 1)
	assert.InDelta(t, 2, v[0], eps, "clamped after last key")

	v, _ = n.TranslationAt(-1, 1)
	assert.InDelta(t, 0, v[0], eps, "clamped before first key")

	s, ok := n.ScaleAt(1)
	require.True(t, ok)
	assert.InDelta(t, 2, s, eps)

	_, ok = n.OrientationAt(0)
	assert.False(t, ok)
}

func TestModelIndexing(t *testing.T) {
	root := NewModelNode("root")
	child := NewModelNode("child")
	child.Position = mgl32.Vec3{5, 0, 0}
	child.Mesh = &TriangleMesh{Mesh: NewQuad(), Render: true}
	root.AddChild(child)

	anim := &Animation{Name: "walk", Length: 1}
	super := NewModel("super", NewModelNode("sroot"), &Animation{Name: "idle", Length: 2})
	m := NewModel("m", root, anim)
	m.Super = super

	n, ok := m.Node("child")
	require.True(t, ok)
	assert.Equal(t, uint16(1), n.Number)
	byNumber, ok := m.NodeByNumber(1)
	require.True(t, ok)
	assert.Same(t, n, byNumber)

	assert.InDelta(t, 4.5, m.AABB().Min[0], eps)
	assert.InDelta(t, 5.5, m.AABB().Max[0], eps)

	_, ok = m.Animation("walk")
	assert.True(t, ok)
	_, ok = m.Animation("idle")
	assert.True(t, ok, "found on supermodel")
	_, ok = m.Animation("run")
	assert.False(t, ok)
}

func TestTextureSetPixelsAndSample(t *testing.T) {
	tex := NewTexture("t", DefaultTextureProperties())
	err := tex.SetPixels(1, 1, PixelFormatRGB)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	require.NoError(t, tex.SetPixelsSingle(2, 1, PixelFormatBGRA, []byte{
		255, 0, 0, 255,
		0, 0, 255, 0,
	}))
	c, err := tex.SampleAt(0, 0)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 1}, c)

	c, err = tex.Sample(1.0-0.01, 0)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 0}, c)

	assert.NoError(t, tex.CanFlush())
}

func TestTextureUnsupportedOperations(t *testing.T) {
	compressed := NewTexture("dxt", DefaultTextureProperties())
	require.NoError(t, compressed.SetPixelsSingle(4, 4, PixelFormatDXT1, make([]byte, 8)))
	_, err := compressed.SampleAt(0, 0)
	assert.ErrorIs(t, err, core.ErrLogic)

	cube := NewTexture("cube", TextureProperties{CubeMap: true})
	cube.Clear(4, 4, PixelFormatRGB, 6)
	_, err = cube.SampleAt(0, 0)
	assert.ErrorIs(t, err, core.ErrLogic)
	assert.ErrorIs(t, cube.CanFlush(), core.ErrLogic)

	ms := NewTexture("ms", TextureProperties{NumSamples: 4})
	ms.Clear(4, 4, PixelFormatRGBA, 1)
	assert.ErrorIs(t, ms.CanFlush(), core.ErrLogic)
}

func TestSolidTexture(t *testing.T) {
	tex := NewSolidTexture("white", core.ColorWhite)
	c, err := tex.SampleAt(0, 0)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, c)
}
