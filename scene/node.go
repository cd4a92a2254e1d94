package scene

import (
	"fmt"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/core"
	"kotor-render/graphics"
)

// NodeType tags the closed set of scene node kinds.
type NodeType int

const (
	NodeModel NodeType = iota
	NodeMesh
	NodeLight
	NodeEmitter
	NodeWalkmesh
	NodeTrigger
	NodeGrass
	NodeGrassCluster
	NodeParticle
	NodeSound
	NodeCamera
	NodeDummy
)

func (t NodeType) String() string {
	switch t {
	case NodeModel:
		return "Model"
	case NodeMesh:
		return "Mesh"
	case NodeLight:
		return "Light"
	case NodeEmitter:
		return "Emitter"
	case NodeWalkmesh:
		return "Walkmesh"
	case NodeTrigger:
		return "Trigger"
	case NodeGrass:
		return "Grass"
	case NodeGrassCluster:
		return "GrassCluster"
	case NodeParticle:
		return "Particle"
	case NodeSound:
		return "Sound"
	case NodeCamera:
		return "Camera"
	case NodeDummy:
		return "Dummy"
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Node is implemented by every scene node kind. The set of kinds is closed:
// only types of this package embed SceneNode.
type Node interface {
	Type() NodeType
	Name() string
	Parent() Node
	Children() []Node
	IsEnabled() bool
	SetEnabled(enabled bool)
	LocalTransform() mgl32.Mat4
	SetLocalTransform(m mgl32.Mat4)
	AbsoluteTransform() mgl32.Mat4
	AbsoluteTransformInverse() mgl32.Mat4
	Origin() mgl32.Vec3

	base() *SceneNode
}

// SceneNode is the state shared by all node kinds. The absolute transform
// is recomputed lazily: changing a local transform marks the node and its
// whole subtree dirty.
type SceneNode struct {
	typ   NodeType
	name  string
	graph *SceneGraph
	self  Node

	parent   Node
	children []Node
	enabled  bool

	localTransform  mgl32.Mat4
	absTransform    mgl32.Mat4
	absTransformInv mgl32.Mat4
	absDirty        bool

	// version increments every time the absolute transform is recomputed.
	version uint64
}

func (n *SceneNode) init(self Node, typ NodeType, name string, graph *SceneGraph) {
	n.typ = typ
	n.name = name
	n.graph = graph
	n.self = self
	n.enabled = true
	n.localTransform = mgl32.Ident4()
	n.absTransform = mgl32.Ident4()
	n.absTransformInv = mgl32.Ident4()
	n.absDirty = true
}

func (n *SceneNode) base() *SceneNode { return n }

func (n *SceneNode) Type() NodeType { return n.typ }
func (n *SceneNode) Name() string { return n.name }

func (n *SceneNode) Parent() Node {
	return n.parent
}

// Children returns the owned children. The slice must not be modified.
func (n *SceneNode) Children() []Node {
	return n.children
}

func (n *SceneNode) IsEnabled() bool { return n.enabled }
func (n *SceneNode) SetEnabled(on bool) { n.enabled = on }
func (n *SceneNode) Graph() *SceneGraph { return n.graph }
func (n *SceneNode) LocalTransform() mgl32.Mat4 { return n.localTransform }

func (n *SceneNode) SetLocalTransform(m mgl32.Mat4) {
	n.localTransform = m
	n.markDirty()
}

// SetPosition replaces the translation of the local transform.
func (n *SceneNode) SetPosition(p mgl32.Vec3) {
	n.localTransform.SetCol(3, p.Vec4(1))
	n.markDirty()
}

func (n *SceneNode) markDirty() {
	if n.absDirty {
		// Descendants were marked when this node became dirty and
		// stay dirty until read through this node.
		return
	}
	n.absDirty = true
	for _, child := range n.children {
		child.base().markDirty()
	}
}

func (n *SceneNode) refreshAbsolute() {
	if !n.absDirty {
		return
	}
	if n.parent != nil {
		n.absTransform = n.parent.AbsoluteTransform().Mul4(n.localTransform)
	} else {
		n.absTransform = n.localTransform
	}
	n.absTransformInv = n.absTransform.Inv()
	n.absDirty = false
	n.version++
}

func (n *SceneNode) AbsoluteTransform() mgl32.Mat4 {
	n.refreshAbsolute()
	return n.absTransform
}

func (n *SceneNode) AbsoluteTransformInverse() mgl32.Mat4 {
	n.refreshAbsolute()
	return n.absTransformInv
}

// Origin returns the world-space position of the node.
func (n *SceneNode) Origin() mgl32.Vec3 {
	return n.AbsoluteTransform().Col(3).Vec3()
}

// AddChild attaches child, detaching it from its previous parent first.
func (n *SceneNode) AddChild(child Node) {
	cb := child.base()
	if cb.parent != nil {
		cb.parent.base().RemoveChild(child)
	}
	cb.parent = n.self
	n.children = append(n.children, child)
	cb.absDirty = false
	cb.markDirty()
}

func (n *SceneNode) RemoveChild(child Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			cb := child.base()
			cb.parent = nil
			cb.absDirty = false
			cb.markDirty()
			return
		}
	}
}

func (n *SceneNode) RemoveAllChildren() {
	for _, c := range n.children {
		cb := c.base()
		cb.parent = nil
		cb.absDirty = false
		cb.markDirty()
	}
	n.children = n.children[:0]
}

// SquareDistanceTo returns the squared distance between node origins.
func (n *SceneNode) SquareDistanceTo(other Node) float32 {
	return n.SquareDistanceToPoint(other.Origin())
}

func (n *SceneNode) SquareDistanceToPoint(p mgl32.Vec3) float32 {
	d := n.Origin().Sub(p)
	return d.Dot(d)
}

// SquareDistanceTo2D ignores the Z axis.
func (n *SceneNode) SquareDistanceTo2D(p mgl32.Vec2) float32 {
	o := n.Origin()
	dx, dy := o[0]-p[0], o[1]-p[1]
	return dx*dx + dy*dy
}

// Traverse visits n and its descendants in pre-order.
func Traverse(n Node, callback func(Node)) {
	callback(n)
	for _, child := range n.Children() {
		Traverse(child, callback)
	}
}

// Find returns the first node named name in the subtree of n.
func Find(n Node, name string) (Node, bool) {
	if n.Name() == name {
		return n, true
	}
	for _, child := range n.Children() {
		if found, ok := Find(child, name); ok {
			return found, true
		}
	}
	return nil, false
}

// ── Dummy ────────────────────────────────────────────────────────────────────

// DummySceneNode is a transform-only node.
type DummySceneNode struct {
	ModelNodeSceneNode
}

func newDummy(graph *SceneGraph, model *ModelSceneNode, modelNode *graphics.ModelNode) *DummySceneNode {
	d := &DummySceneNode{}
	name := "dummy"
	if modelNode != nil {
		name = modelNode.Name
	}
	d.init(d, NodeDummy, name, graph)
	d.bindModelNode(model, modelNode)
	return d
}

// checkUser rejects owner identities that cannot be compared with ==.
func checkUser(user any) error {
	if user != nil && !reflect.TypeOf(user).Comparable() {
		return fmt.Errorf("user of type %T is not comparable: %w", user, core.ErrInvalidArgument)
	}
	return nil
}
