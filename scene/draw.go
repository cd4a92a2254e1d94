package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/graphics"
)

type CullFaceMode int

const (
	CullFaceNone CullFaceMode = iota
	CullFaceBack
	CullFaceFront
)

type DepthTestMode int

const (
	DepthTestLess DepthTestMode = iota
	DepthTestNone
	DepthTestEqual
	DepthTestLessOrEqual
)

// MeshDraw is everything a painter needs to draw one mesh node.
type MeshDraw struct {
	Mesh           *graphics.Mesh
	Transform      mgl32.Mat4
	Diffuse        string
	Lightmap       string
	UVOffset       mgl32.Vec2
	Alpha          float32
	SelfIllumColor mgl32.Vec3
	Transparent    bool
	Lightmapped    bool
}

// Billboard is one camera-facing sprite. Frame indexes a cell of the
// texture's sprite sheet.
type Billboard struct {
	Position mgl32.Vec3
	Size     float32
	Color    mgl32.Vec4
	Frame    int
}

type BillboardBatch struct {
	Texture    string
	Blend      graphics.EmitterBlend
	GridWidth  int
	GridHeight int
	Billboards []Billboard
}

// Painter is the render backend the graph draws through. Slices passed to it
// are only valid for the duration of the call.
type Painter interface {
	WithFaceCulling(mode CullFaceMode, draw func())
	WithDepthTest(mode DepthTestMode, draw func())

	SetWalkmeshMaterials(colors *[MaxWalkmeshMaterials]mgl32.Vec4)

	DrawMesh(cmd MeshDraw)
	DrawShadowMesh(mesh *graphics.Mesh, transform mgl32.Mat4)
	DrawWalkmesh(walkmesh *graphics.Walkmesh, transform mgl32.Mat4)
	DrawTrigger(geometry []mgl32.Vec3, transform mgl32.Mat4)
	DrawBillboards(batch BillboardBatch)
	DrawLensFlare(flare graphics.LensFlare, position mgl32.Vec3)
}

var (
	walkableColor    = mgl32.Vec4{0, 1, 0, 1}
	nonWalkableColor = mgl32.Vec4{1, 0, 0, 1}
	triggerColor     = mgl32.Vec4{0, 0, 1, 1}
)

// DrawShadows draws the shadow casters with front-face culling.
func (g *SceneGraph) DrawShadows(p Painter) {
	if g.activeCamera == nil {
		return
	}
	p.WithFaceCulling(CullFaceFront, func() {
		for _, mesh := range g.shadowMeshes {
			mesh.drawShadow(p)
		}
	})
}

// DrawOpaque draws opaque meshes and leafs, or walkmeshes in debug mode.
func (g *SceneGraph) DrawOpaque(p Painter) {
	if g.activeCamera == nil {
		return
	}
	if g.drawWalkmeshes || g.drawTriggers {
		var colors [MaxWalkmeshMaterials]mgl32.Vec4
		for i := 0; i < MaxWalkmeshMaterials-1; i++ {
			if g.surfaces.Walkable.Has(uint32(i)) {
				colors[i] = walkableColor
			} else {
				colors[i] = nonWalkableColor
			}
		}
		colors[MaxWalkmeshMaterials-1] = triggerColor
		p.SetWalkmeshMaterials(&colors)
	}
	if g.drawWalkmeshes {
		for _, kv := range g.walkmeshRoots.Order {
			if kv.Key.IsEnabled() {
				kv.Key.draw(p)
			}
		}
	} else {
		for _, mesh := range g.opaqueMeshes {
			mesh.draw(p)
		}
		for _, bucket := range g.opaqueLeafs {
			g.drawLeafs(p, bucket)
		}
	}
	if g.drawTriggers {
		for _, kv := range g.triggerRoots.Order {
			kv.Key.draw(p)
		}
	}
}

// DrawTransparent draws transparent leaf buckets in the order they were built.
func (g *SceneGraph) DrawTransparent(p Painter) {
	if g.activeCamera == nil || g.drawWalkmeshes {
		return
	}
	for _, bucket := range g.transparentLeafs {
		g.drawLeafs(p, bucket)
	}
}

// DrawLensFlares draws the first flare of every flare light visible from the camera.
func (g *SceneGraph) DrawLensFlares(p Painter) {
	if g.activeCamera == nil || len(g.flareLights) == 0 || g.drawWalkmeshes {
		return
	}
	p.WithDepthTest(DepthTestNone, func() {
		cameraPos := g.activeCamera.Origin()
		for _, light := range g.flareLights {
			if _, blocked := g.TestLineOfSight(cameraPos, light.Origin()); blocked {
				continue
			}
			light.drawLensFlare(p, light.light.Flares[0])
		}
	})
}

// drawLeafs dispatches a bucket on the kind of its parent.
func (g *SceneGraph) drawLeafs(p Painter, bucket LeafBucket) {
	switch parent := bucket.Parent.(type) {
	case *EmitterSceneNode:
		g.billboards = parent.drawLeafs(p, bucket.Leafs, g.billboards)
	case *GrassSceneNode:
		g.billboards = parent.drawLeafs(p, bucket.Leafs, g.billboards)
	default:
		for _, leaf := range bucket.Leafs {
			if mesh, ok := leaf.(*MeshSceneNode); ok {
				mesh.draw(p)
			}
		}
	}
}

func (e *EmitterSceneNode) drawLeafs(p Painter, leafs []Node, scratch []Billboard) []Billboard {
	scratch = scratch[:0]
	for _, leaf := range leafs {
		if particle, ok := leaf.(*ParticleSceneNode); ok {
			scratch = append(scratch, particle.billboard())
		}
	}
	p.DrawBillboards(BillboardBatch{
		Texture:    e.emitter.Texture,
		Blend:      e.emitter.Blend,
		GridWidth:  e.emitter.GridWidth,
		GridHeight: e.emitter.GridHeight,
		Billboards: scratch,
	})
	return scratch
}
