package graphics

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/core"
)

// ── Keyframes ────────────────────────────────────────────────────────────────

type TranslationKey struct {
	Time  float32
	Value mgl32.Vec3
}

type OrientationKey struct {
	Time  float32
	Value mgl32.Quat
}

type ScaleKey struct {
	Time  float32
	Value float32
}

// bracket finds the keys surrounding t in a time-sorted track and the blend
// factor between them. Times before the first key clamp to it, times after
// the last key clamp to the last one.
func bracket(n int, timeAt func(int) float32, t float32) (int, int, float32) {
	if n == 1 || t <= timeAt(0) {
		return 0, 0, 0
	}
	if t >= timeAt(n-1) {
		return n - 1, n - 1, 0
	}
	i := sort.Search(n, func(i int) bool { return timeAt(i) > t }) - 1
	t0, t1 := timeAt(i), timeAt(i+1)
	if t1 <= t0 {
		return i, i, 0
	}
	return i, i + 1, (t - t0) / (t1 - t0)
}

// ── Node payloads ────────────────────────────────────────────────────────────

// TriangleMesh is the renderable payload of a model node.
type TriangleMesh struct {
	Mesh *Mesh

	Render bool
	Shadow bool

	// Transparency is the sort hint of the original asset; any positive value
	// marks the mesh as transparent.
	Transparency int

	Diffuse  string
	Lightmap string

	// UVScroll is a constant texture coordinate velocity, in UV units per second.
	UVScroll mgl32.Vec2

	SelfIllumColor mgl32.Vec3
	Alpha          float32
}

// LensFlare is one sprite of a light's flare chain.
type LensFlare struct {
	Texture  string
	Color    mgl32.Vec3
	Position float32
	Size     float32
}

// Light is the light payload of a model node.
type Light struct {
	Color       mgl32.Vec3
	Multiplier  float32
	Radius      float32
	Directional bool
	AmbientOnly bool
	DynamicType int
	Shadow      bool
	FlareRadius float32
	Flares      []LensFlare
}

type EmitterUpdate int

const (
	EmitterFountain EmitterUpdate = iota // continuous birth rate
	EmitterSingle                        // one particle kept alive forever
	EmitterExplosion                     // burst of BirthRate particles on demand
)

type EmitterBlend int

const (
	EmitterBlendNormal EmitterBlend = iota
	EmitterBlendPunch
	EmitterBlendLighten
)

// Emitter is the particle system payload of a model node.
type Emitter struct {
	Update  EmitterUpdate
	Blend   EmitterBlend
	Texture string

	GridWidth  int
	GridHeight int
	FrameStart int
	FrameEnd   int
	FPS        float32

	BirthRate      float32 // particles per second
	LifeExpectancy float32 // seconds, 0 = live forever
	Velocity       float32
	RandomVelocity float32
	Spread         float32 // cone half angle in radians
	Mass           float32 // gravity scale along -Z
	Loop           bool

	// Start, mid and end values over the particle lifetime.
	ColorStart, ColorMid, ColorEnd mgl32.Vec3
	AlphaStart, AlphaMid, AlphaEnd float32
	SizeStart, SizeMid, SizeEnd    float32
}

// ── ModelNode ────────────────────────────────────────────────────────────────

// ModelNode is one node of an immutable model (or animation) hierarchy.
type ModelNode struct {
	Number      uint16
	Name        string
	Position    mgl32.Vec3
	Orientation mgl32.Quat

	Parent   *ModelNode
	Children []*ModelNode

	Mesh    *TriangleMesh
	Light   *Light
	Emitter *Emitter

	// AABBMesh marks the node whose mesh is the model's walk/grass face tree.
	AABBMesh bool

	Translations []TranslationKey
	Orientations []OrientationKey
	Scales       []ScaleKey

	absRest mgl32.Mat4
}

func NewModelNode(name string) *ModelNode {
	return &ModelNode{
		Name:        name,
		Orientation: mgl32.QuatIdent(),
		absRest:     mgl32.Ident4(),
	}
}

func (n *ModelNode) AddChild(child *ModelNode) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// LocalTransform returns the rest pose transform relative to the parent.
func (n *ModelNode) LocalTransform() mgl32.Mat4 {
	return mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2]).Mul4(n.Orientation.Mat4())
}

// AbsoluteRestTransform returns the rest pose transform relative to the model root.
func (n *ModelNode) AbsoluteRestTransform() mgl32.Mat4 {
	return n.absRest
}

// TranslationAt samples the translation track at time, multiplied by scale.
func (n *ModelNode) TranslationAt(time, scale float32) (mgl32.Vec3, bool) {
	if len(n.Translations) == 0 {
		return mgl32.Vec3{}, false
	}
	i, j, f := bracket(len(n.Translations), func(k int) float32 { return n.Translations[k].Time }, time)
	a, b := n.Translations[i].Value, n.Translations[j].Value
	return a.Add(b.Sub(a).Mul(f)).Mul(scale), true
}

// OrientationAt samples the orientation track at time.
func (n *ModelNode) OrientationAt(time float32) (mgl32.Quat, bool) {
	if len(n.Orientations) == 0 {
		return mgl32.QuatIdent(), false
	}
	i, j, f := bracket(len(n.Orientations), func(k int) float32 { return n.Orientations[k].Time }, time)
	if i == j {
		return n.Orientations[i].Value, true
	}
	return mgl32.QuatSlerp(n.Orientations[i].Value, n.Orientations[j].Value, f), true
}

// ScaleAt samples the uniform scale track at time.
func (n *ModelNode) ScaleAt(time float32) (float32, bool) {
	if len(n.Scales) == 0 {
		return 0, false
	}
	i, j, f := bracket(len(n.Scales), func(k int) float32 { return n.Scales[k].Time }, time)
	a, b := n.Scales[i].Value, n.Scales[j].Value
	return a + (b-a)*f, true
}

// Traverse visits the node and its descendants in pre-order.
func (n *ModelNode) Traverse(callback func(*ModelNode)) {
	callback(n)
	for _, child := range n.Children {
		child.Traverse(callback)
	}
}

// ── Animation ────────────────────────────────────────────────────────────────

// AnimationEvent is a named marker fired when playback passes Time.
type AnimationEvent struct {
	Time float32
	Name string
}

// Animation is an immutable keyframed clip over a node tree whose names
// match the animated model's nodes.
type Animation struct {
	Name           string
	Length         float32
	TransitionTime float32
	Root           *ModelNode
	Events         []AnimationEvent
}

// ── Model ────────────────────────────────────────────────────────────────────

type ModelClassification int

const (
	ClassificationOther ModelClassification = iota
	ClassificationEffect
	ClassificationTile
	ClassificationCharacter
	ClassificationDoor
	ClassificationPlaceable
)

// Model is an immutable asset shared by every scene node that shows it.
type Model struct {
	Name           string
	Classification ModelClassification
	Root           *ModelNode
	Super          *Model
	AnimationScale float32

	animations    map[string]*Animation
	nodesByName   map[string]*ModelNode
	nodesByNumber map[uint16]*ModelNode
	nodes         []*ModelNode
	aabb          AABB
}

// NewModel indexes the node tree, numbers nodes in pre-order, computes rest
// transforms and the object-space AABB of all meshes.
func NewModel(name string, root *ModelNode, animations ...*Animation) *Model {
	m := &Model{
		Name:           name,
		Root:           root,
		AnimationScale: 1,
		animations:     make(map[string]*Animation),
		nodesByName:    make(map[string]*ModelNode),
		nodesByNumber:  make(map[uint16]*ModelNode),
		aabb:           EmptyAABB(),
	}
	for _, a := range animations {
		m.animations[a.Name] = a
	}
	if root == nil {
		return m
	}
	var number uint16
	var walk func(n *ModelNode, parentAbs mgl32.Mat4)
	walk = func(n *ModelNode, parentAbs mgl32.Mat4) {
		n.Number = number
		number++
		n.absRest = parentAbs.Mul4(n.LocalTransform())
		m.nodes = append(m.nodes, n)
		m.nodesByName[n.Name] = n
		m.nodesByNumber[n.Number] = n
		if n.Mesh != nil && n.Mesh.Mesh != nil && !n.AABBMesh {
			m.aabb = m.aabb.Union(n.Mesh.Mesh.LocalAABB.Transform(n.absRest))
		}
		for _, child := range n.Children {
			walk(child, n.absRest)
		}
	}
	walk(root, mgl32.Ident4())
	if m.aabb.IsEmpty() {
		m.aabb = AABB{}
	}
	return m
}

// Node looks a node up by name.
func (m *Model) Node(name string) (*ModelNode, bool) {
	n, ok := m.nodesByName[name]
	return n, ok
}

func (m *Model) NodeByNumber(number uint16) (*ModelNode, bool) {
	n, ok := m.nodesByNumber[number]
	return n, ok
}

// Nodes returns every node in pre-order.
func (m *Model) Nodes() []*ModelNode {
	return m.nodes
}

// AABBNode returns the node flagged as the face tree, if any.
func (m *Model) AABBNode() (*ModelNode, bool) {
	for _, n := range m.nodes {
		if n.AABBMesh {
			return n, true
		}
	}
	return nil, false
}

// Animation looks a clip up on the model, then on its supermodel chain.
func (m *Model) Animation(name string) (*Animation, bool) {
	for model := m; model != nil; model = model.Super {
		if a, ok := model.animations[name]; ok {
			return a, true
		}
	}
	return nil, false
}

// AnimationNames lists the clips defined directly on the model, sorted.
func (m *Model) AnimationNames() []string {
	names := make([]string, 0, len(m.animations))
	for name := range m.animations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AABB returns the object-space bounds of all renderable meshes.
func (m *Model) AABB() AABB {
	return m.aabb
}

// NewLightModel builds a one-node model carrying a light, the shape area
// layouts use for standalone lights.
func NewLightModel(name string, light Light) *Model {
	root := NewModelNode(name)
	lightNode := NewModelNode(name + "_light")
	lightNode.Light = &light
	root.AddChild(lightNode)
	return NewModel(name, root)
}

// FlatColorVertices is a helper for procedural meshes: one colour for all corners.
func FlatColorVertices(color core.Color, positions ...mgl32.Vec3) []core.Vertex {
	out := make([]core.Vertex, len(positions))
	for i, p := range positions {
		out[i] = core.Vertex{Position: p, Normal: mgl32.Vec3{0, 0, 1}, Color: color}
	}
	return out
}
