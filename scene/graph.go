package scene

import (
	"context"
	"fmt"
	"log/slog"

	"cogentcore.org/core/ordmap"
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/core"
	"kotor-render/graphics"
)

const (
	MaxLights        = 16
	MaxFlareLights   = 4
	MaxSoundCount    = 4
	MaxGrassClusters = 256
	MaxParticles     = 64

	ShadowFadeSpeed = 2.0
	ElevationTestZ  = 1024.0
	LightRadiusBias = 64.0

	MaxCollisionDistanceWalk        = 8.0
	MaxCollisionDistanceLineOfSight = 16.0

	MaxWalkmeshMaterials = 64
)

// Fog is linear distance fog.
type Fog struct {
	Enabled bool
	Near    float32
	Far     float32
	Color   mgl32.Vec3
}

// LeafBucket is a group of leaf nodes drawn in one call by their parent.
type LeafBucket struct {
	Parent Node
	Leafs  []Node
}

type Option func(*SceneGraph)

func WithSurfaces(s graphics.Surfaces) Option {
	return func(g *SceneGraph) { g.surfaces = s }
}

func WithAudioPlayer(p AudioPlayer) Option {
	return func(g *SceneGraph) { g.audioPlayer = p }
}

// WithViewport sets the screen size used to unproject pick coordinates.
func WithViewport(width, height int) Option {
	return func(g *SceneGraph) { g.viewport = core.Viewport{Width: width, Height: height} }
}

func WithUpdateRoots(on bool) Option {
	return func(g *SceneGraph) { g.updateRoots = on }
}

// SceneGraph owns the root nodes of a scene and turns them into draw lists
// every frame. It is not safe for concurrent use.
type SceneGraph struct {
	name        string
	surfaces    graphics.Surfaces
	audioPlayer AudioPlayer
	viewport    core.Viewport

	updateRoots    bool
	drawWalkmeshes bool
	drawTriggers   bool
	ambientColor   mgl32.Vec3
	fog            Fog

	modelRoots    *ordmap.Map[*ModelSceneNode, struct{}]
	walkmeshRoots *ordmap.Map[*WalkmeshSceneNode, struct{}]
	triggerRoots  *ordmap.Map[*TriggerSceneNode, struct{}]
	grassRoots    *ordmap.Map[*GrassSceneNode, struct{}]
	soundRoots    *ordmap.Map[*SoundSceneNode, struct{}]

	activeCamera *CameraSceneNode

	shadowLight    *LightSceneNode
	shadowActive   bool
	shadowStrength float32

	// Rebuilt every frame
	opaqueMeshes      []*MeshSceneNode
	transparentMeshes []*MeshSceneNode
	shadowMeshes      []*MeshSceneNode
	lights            []*LightSceneNode
	emitters          []*EmitterSceneNode
	activeLights      []*LightSceneNode
	flareLights       []*LightSceneNode
	opaqueLeafs       []LeafBucket
	transparentLeafs  []LeafBucket

	// Scratch buffers reused across frames
	closestLights       []*LightSceneNode
	lightDistances      []lightDistance
	lightLookup         map[*LightSceneNode]struct{}
	soundDistances      []soundDistance
	opaqueLeafPool      []Node
	transparentLeafPool []Node
	billboards          []Billboard
}

func NewSceneGraph(name string, opts ...Option) *SceneGraph {
	g := &SceneGraph{
		name:          name,
		updateRoots:   true,
		ambientColor:  mgl32.Vec3{0.2, 0.2, 0.2},
		modelRoots:    ordmap.New[*ModelSceneNode, struct{}](),
		walkmeshRoots: ordmap.New[*WalkmeshSceneNode, struct{}](),
		triggerRoots:  ordmap.New[*TriggerSceneNode, struct{}](),
		grassRoots:    ordmap.New[*GrassSceneNode, struct{}](),
		soundRoots:    ordmap.New[*SoundSceneNode, struct{}](),
		lightLookup:   make(map[*LightSceneNode]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *SceneGraph) Name() string { return g.name }

// ── Roots ────────────────────────────────────────────────────────────────────

// AddRoot inserts a model, walkmesh, trigger, grass or sound node into its
// root set. Adding a root twice keeps its original position.
func (g *SceneGraph) AddRoot(node Node) error {
	switch n := node.(type) {
	case *ModelSceneNode:
		if n == nil {
			break
		}
		if _, ok := g.modelRoots.Map[n]; !ok {
			g.modelRoots.Add(n, struct{}{})
		}
		return nil
	case *WalkmeshSceneNode:
		if n == nil {
			break
		}
		if _, ok := g.walkmeshRoots.Map[n]; !ok {
			g.walkmeshRoots.Add(n, struct{}{})
		}
		return nil
	case *TriggerSceneNode:
		if n == nil {
			break
		}
		if _, ok := g.triggerRoots.Map[n]; !ok {
			g.triggerRoots.Add(n, struct{}{})
		}
		return nil
	case *GrassSceneNode:
		if n == nil {
			break
		}
		if _, ok := g.grassRoots.Map[n]; !ok {
			g.grassRoots.Add(n, struct{}{})
		}
		return nil
	case *SoundSceneNode:
		if n == nil {
			break
		}
		if _, ok := g.soundRoots.Map[n]; !ok {
			g.soundRoots.Add(n, struct{}{})
		}
		return nil
	case nil:
	default:
		return fmt.Errorf("add root %q: %v nodes cannot be roots: %w", node.Name(), node.Type(), core.ErrInvalidArgument)
	}
	return fmt.Errorf("add root: node is nil: %w", core.ErrInvalidArgument)
}

// RemoveRoot removes a root. Removing a model also drops its lights from the
// active list and clears it as shadow light.
func (g *SceneGraph) RemoveRoot(node Node) {
	switch n := node.(type) {
	case *ModelSceneNode:
		if !g.modelRoots.DeleteKey(n) {
			return
		}
		owned := func(l *LightSceneNode) bool { return l.model != nil && isWithin(l.model, n) }
		g.activeLights = removeLights(g.activeLights, owned)
		g.flareLights = removeLights(g.flareLights, owned)
		if g.shadowLight != nil && owned(g.shadowLight) {
			g.shadowLight = nil
			g.shadowActive = false
			g.shadowStrength = 0
		}
	case *WalkmeshSceneNode:
		g.walkmeshRoots.DeleteKey(n)
	case *TriggerSceneNode:
		g.triggerRoots.DeleteKey(n)
	case *GrassSceneNode:
		g.grassRoots.DeleteKey(n)
	case *SoundSceneNode:
		if g.soundRoots.DeleteKey(n) {
			n.Stop()
		}
	}
}

// isWithin reports whether n is root or one of its descendants.
func isWithin(n Node, root Node) bool {
	for ; n != nil; n = n.Parent() {
		if n == root {
			return true
		}
	}
	return false
}

func removeLights(lights []*LightSceneNode, pred func(*LightSceneNode) bool) []*LightSceneNode {
	out := lights[:0]
	for _, l := range lights {
		if !pred(l) {
			out = append(out, l)
		}
	}
	clear(lights[len(out):])
	return out
}

// Clear removes every root and all light state.
func (g *SceneGraph) Clear() {
	for _, kv := range g.soundRoots.Order {
		kv.Key.Stop()
	}
	g.modelRoots.Reset()
	g.walkmeshRoots.Reset()
	g.triggerRoots.Reset()
	g.grassRoots.Reset()
	g.soundRoots.Reset()

	g.activeLights = g.activeLights[:0]
	g.flareLights = g.flareLights[:0]
	g.shadowLight = nil
	g.shadowActive = false
	g.shadowStrength = 0
	g.resetFrameLists()
}

func (g *SceneGraph) resetFrameLists() {
	g.opaqueMeshes = g.opaqueMeshes[:0]
	g.transparentMeshes = g.transparentMeshes[:0]
	g.shadowMeshes = g.shadowMeshes[:0]
	g.lights = g.lights[:0]
	g.emitters = g.emitters[:0]
	g.opaqueLeafs = g.opaqueLeafs[:0]
	g.transparentLeafs = g.transparentLeafs[:0]
}

func (g *SceneGraph) ModelRoots() []*ModelSceneNode { return g.modelRoots.Keys() }
func (g *SceneGraph) WalkmeshRoots() []*WalkmeshSceneNode { return g.walkmeshRoots.Keys() }
func (g *SceneGraph) TriggerRoots() []*TriggerSceneNode { return g.triggerRoots.Keys() }
func (g *SceneGraph) GrassRoots() []*GrassSceneNode { return g.grassRoots.Keys() }
func (g *SceneGraph) SoundRoots() []*SoundSceneNode { return g.soundRoots.Keys() }

// ── Settings ─────────────────────────────────────────────────────────────────

func (g *SceneGraph) ActiveCamera() *CameraSceneNode { return g.activeCamera }

// SetActiveCamera selects the camera used for culling; nil disables drawing.
func (g *SceneGraph) SetActiveCamera(c *CameraSceneNode) { g.activeCamera = c }

func (g *SceneGraph) Surfaces() graphics.Surfaces { return g.surfaces }
func (g *SceneGraph) SetSurfaces(s graphics.Surfaces) { g.surfaces = s }
func (g *SceneGraph) Viewport() core.Viewport { return g.viewport }
func (g *SceneGraph) SetViewport(width, height int) { g.viewport = core.Viewport{Width: width, Height: height} }
func (g *SceneGraph) SetUpdateRoots(on bool) { g.updateRoots = on }
func (g *SceneGraph) SetDrawWalkmeshes(on bool) { g.drawWalkmeshes = on }
func (g *SceneGraph) SetDrawTriggers(on bool) { g.drawTriggers = on }
func (g *SceneGraph) AmbientColor() mgl32.Vec3 { return g.ambientColor }
func (g *SceneGraph) SetAmbientColor(c mgl32.Vec3) { g.ambientColor = c }
func (g *SceneGraph) Fog() Fog { return g.fog }
func (g *SceneGraph) SetFog(f Fog) { g.fog = f }

// ── Frame results ────────────────────────────────────────────────────────────
// The slices below are owned by the graph and only valid until the next Update.

func (g *SceneGraph) OpaqueMeshes() []*MeshSceneNode { return g.opaqueMeshes }
func (g *SceneGraph) TransparentMeshes() []*MeshSceneNode { return g.transparentMeshes }
func (g *SceneGraph) ShadowMeshes() []*MeshSceneNode { return g.shadowMeshes }
func (g *SceneGraph) Lights() []*LightSceneNode { return g.lights }
func (g *SceneGraph) Emitters() []*EmitterSceneNode { return g.emitters }
func (g *SceneGraph) ActiveLights() []*LightSceneNode { return g.activeLights }
func (g *SceneGraph) FlareLights() []*LightSceneNode { return g.flareLights }
func (g *SceneGraph) OpaqueLeafs() []LeafBucket { return g.opaqueLeafs }
func (g *SceneGraph) TransparentLeafs() []LeafBucket { return g.transparentLeafs }

// ShadowLight returns the light casting shadows, if any.
func (g *SceneGraph) ShadowLight() (*LightSceneNode, bool) {
	return g.shadowLight, g.shadowLight != nil
}

func (g *SceneGraph) IsShadowActive() bool { return g.shadowActive }
func (g *SceneGraph) ShadowStrength() float32 { return g.shadowStrength }

// ── Frame ────────────────────────────────────────────────────────────────────

// Update advances animation and rebuilds every per-frame list.
func (g *SceneGraph) Update(dt float32) {
	if g.updateRoots {
		for _, kv := range g.modelRoots.Order {
			updateNode(kv.Key, dt)
		}
		for _, kv := range g.grassRoots.Order {
			updateNode(kv.Key, dt)
		}
		for _, kv := range g.soundRoots.Order {
			updateNode(kv.Key, dt)
		}
	}
	if g.activeCamera == nil {
		return
	}
	g.cullRoots()
	g.refresh()
	g.updateLighting()
	g.updateShadowLight(dt)
	g.updateFlareLights()
	g.updateSounds()
	g.prepareOpaqueLeafs()
	g.prepareTransparentLeafs()

	if logger := core.Logger(); logger.Enabled(context.Background(), slog.LevelDebug) {
		logger.Debug("scene updated",
			"scene", g.name,
			"opaque", len(g.opaqueMeshes),
			"transparent", len(g.transparentMeshes),
			"shadow", len(g.shadowMeshes),
			"lights", len(g.activeLights),
			"opaqueLeafs", len(g.opaqueLeafs),
			"transparentLeafs", len(g.transparentLeafs))
	}
}

// updateNode advances one node and its subtree.
func updateNode(n Node, dt float32) {
	switch node := n.(type) {
	case *ModelSceneNode:
		if !node.enabled {
			return
		}
		node.animate(dt)
	case *MeshSceneNode:
		node.update(dt)
	case *LightSceneNode:
		node.update(dt)
	case *EmitterSceneNode:
		node.update(dt)
		return // particles are advanced by the emitter
	case *GrassSceneNode:
		node.update(dt)
		return
	case *SoundSceneNode:
		node.update(dt)
	}
	for _, child := range n.Children() {
		updateNode(child, dt)
	}
}

func (g *SceneGraph) cullRoots() {
	camera := g.activeCamera
	for _, kv := range g.modelRoots.Order {
		root := kv.Key
		drawDistance := root.drawDistance
		culled := !root.enabled ||
			root.SquareDistanceTo(camera) > drawDistance*drawDistance ||
			(root.cullable && !camera.IsInFrustumAABB(root.WorldAABB()))
		root.culled = culled
	}
}

func (g *SceneGraph) refresh() {
	g.opaqueMeshes = g.opaqueMeshes[:0]
	g.transparentMeshes = g.transparentMeshes[:0]
	g.shadowMeshes = g.shadowMeshes[:0]
	g.lights = g.lights[:0]
	g.emitters = g.emitters[:0]

	for _, kv := range g.modelRoots.Order {
		g.refreshFromNode(kv.Key)
	}
}

func (g *SceneGraph) refreshFromNode(n Node) {
	switch node := n.(type) {
	case *ModelSceneNode:
		if node.culled {
			return
		}
	case *MeshSceneNode:
		if node.ShouldRender() {
			if node.IsTransparent() {
				g.transparentMeshes = append(g.transparentMeshes, node)
			} else {
				g.opaqueMeshes = append(g.opaqueMeshes, node)
			}
		}
		if node.ShouldCastShadows() {
			g.shadowMeshes = append(g.shadowMeshes, node)
		}
	case *LightSceneNode:
		g.lights = append(g.lights, node)
	case *EmitterSceneNode:
		g.emitters = append(g.emitters, node)
	}
	for _, child := range n.Children() {
		g.refreshFromNode(child)
	}
}
