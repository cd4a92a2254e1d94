package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"kotor-render/core"
	"kotor-render/graphics"
)

const eps = 1e-3

// ── Painter ──────────────────────────────────────────────────────────────────

type recordingPainter struct {
	culling    []CullFaceMode
	depthTests []DepthTestMode
	materials  [MaxWalkmeshMaterials]mgl32.Vec4

	meshes       []MeshDraw
	shadowMeshes int
	walkmeshes   int
	triggers     int
	batches      []int
	flares       []mgl32.Vec3
}

func (p *recordingPainter) WithFaceCulling(mode CullFaceMode, draw func()) {
	p.culling = append(p.culling, mode)
	draw()
}

func (p *recordingPainter) WithDepthTest(mode DepthTestMode, draw func()) {
	p.depthTests = append(p.depthTests, mode)
	draw()
}

func (p *recordingPainter) SetWalkmeshMaterials(colors *[MaxWalkmeshMaterials]mgl32.Vec4) {
	p.materials = *colors
}

func (p *recordingPainter) DrawMesh(cmd MeshDraw) { p.meshes = append(p.meshes, cmd) }
func (p *recordingPainter) DrawShadowMesh(*graphics.Mesh, mgl32.Mat4) { p.shadowMeshes++ }
func (p *recordingPainter) DrawWalkmesh(*graphics.Walkmesh, mgl32.Mat4) { p.walkmeshes++ }
func (p *recordingPainter) DrawTrigger([]mgl32.Vec3, mgl32.Mat4) { p.triggers++ }

func (p *recordingPainter) DrawBillboards(batch BillboardBatch) {
	p.batches = append(p.batches, len(batch.Billboards))
}

func (p *recordingPainter) DrawLensFlare(_ graphics.LensFlare, position mgl32.Vec3) {
	p.flares = append(p.flares, position)
}

// ── Audio ────────────────────────────────────────────────────────────────────

type fakeSource struct {
	name     string
	stopped  bool
	position mgl32.Vec3
}

func (s *fakeSource) Stop() { s.stopped = true }
func (s *fakeSource) IsPlaying() bool { return !s.stopped }
func (s *fakeSource) SetPosition(p mgl32.Vec3) { s.position = p }

type fakeAudio struct {
	sources []*fakeSource
}

func (a *fakeAudio) Play(name string, _ float32, _ bool, position *mgl32.Vec3) (AudioSource, error) {
	s := &fakeSource{name: name}
	if position != nil {
		s.position = *position
	}
	a.sources = append(a.sources, s)
	return s, nil
}

func (a *fakeAudio) played() []string {
	names := make([]string, 0, len(a.sources))
	for _, s := range a.sources {
		names = append(names, s.name)
	}
	return names
}

// ── Fixtures ─────────────────────────────────────────────────────────────────

// newTestGraph returns a graph whose active camera sits at the origin
// looking down -Z.
func newTestGraph(opts ...Option) (*SceneGraph, *CameraSceneNode) {
	g := NewSceneGraph("test", opts...)
	camera := g.NewCamera("camera")
	g.SetActiveCamera(camera)
	return g, camera
}

// meshModel is a root with one unit quad mesh child.
func meshModel(name string, tm graphics.TriangleMesh) *graphics.Model {
	root := graphics.NewModelNode(name)
	node := graphics.NewModelNode(name + "_mesh")
	if tm.Mesh == nil {
		tm.Mesh = graphics.NewQuad()
	}
	node.Mesh = &tm
	root.AddChild(node)
	return graphics.NewModel(name, root)
}

func addModel(t *testing.T, g *SceneGraph, model *graphics.Model, usage ModelUsage, position mgl32.Vec3) *ModelSceneNode {
	t.Helper()
	m, err := g.NewModel(model, usage, nil)
	require.NoError(t, err)
	m.SetPosition(position)
	require.NoError(t, g.AddRoot(m))
	return m
}

func addLight(t *testing.T, g *SceneGraph, name string, light graphics.Light, position mgl32.Vec3) (*ModelSceneNode, *LightSceneNode) {
	t.Helper()
	m := addModel(t, g, graphics.NewLightModel(name, light), UsagePlaceable, position)
	m.SetCullable(false)
	var found *LightSceneNode
	Traverse(m, func(n Node) {
		if l, ok := n.(*LightSceneNode); ok {
			found = l
		}
	})
	require.NotNil(t, found)
	return m, found
}

func quadFaces(a, b, c, d mgl32.Vec3, material uint32) []graphics.Face {
	return []graphics.Face{
		{Material: material, Vertices: [3]mgl32.Vec3{a, b, c}},
		{Material: material, Vertices: [3]mgl32.Vec3{a, c, d}},
	}
}

// floor is a 20x20 quad at height z centred on the origin.
func floor(z float32, material uint32) *graphics.Walkmesh {
	faces := quadFaces(
		mgl32.Vec3{-10, -10, z}, mgl32.Vec3{10, -10, z},
		mgl32.Vec3{10, 10, z}, mgl32.Vec3{-10, 10, z}, material)
	return graphics.NewWalkmesh("floor", faces, true)
}

// wallX is a 10x10 quad in the plane x = c.
func wallX(c float32, material uint32) *graphics.Walkmesh {
	faces := quadFaces(
		mgl32.Vec3{c, -5, -5}, mgl32.Vec3{c, 5, -5},
		mgl32.Vec3{c, 5, 5}, mgl32.Vec3{c, -5, 5}, material)
	return graphics.NewWalkmesh("wall", faces, true)
}

// wallZ is a 10x10 quad in the plane z = c.
func wallZ(c float32, material uint32) *graphics.Walkmesh {
	faces := quadFaces(
		mgl32.Vec3{-5, -5, c}, mgl32.Vec3{5, -5, c},
		mgl32.Vec3{5, 5, c}, mgl32.Vec3{-5, 5, c}, material)
	return graphics.NewWalkmesh("ceiling", faces, true)
}

func addWalkmesh(t *testing.T, g *SceneGraph, w *graphics.Walkmesh, user any) *WalkmeshSceneNode {
	t.Helper()
	node, err := g.NewWalkmesh(w)
	require.NoError(t, err)
	require.NoError(t, node.SetUser(user))
	require.NoError(t, g.AddRoot(node))
	return node
}

// grassPatch is an AABB node with a 2x2 square of grass faces at z = -5.
func grassPatch(material uint32) *graphics.ModelNode {
	n := graphics.NewModelNode("aabb")
	n.AABBMesh = true
	mesh := graphics.NewMesh("aabb", graphics.FlatColorVertices(core.ColorWhite,
		mgl32.Vec3{-1, -1, -5}, mgl32.Vec3{1, -1, -5},
		mgl32.Vec3{1, 1, -5}, mgl32.Vec3{-1, 1, -5}),
		[]uint32{0, 1, 2, 0, 2, 3})
	mesh.FaceMaterials = []uint32{material, material}
	n.Mesh = &graphics.TriangleMesh{Mesh: mesh}
	return n
}
