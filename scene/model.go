package scene

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/core"
	"kotor-render/graphics"
)

type ModelUsage int

const (
	UsageGUI ModelUsage = iota
	UsageRoom
	UsageCreature
	UsagePlaceable
	UsageDoor
	UsageEquipment
	UsageProjectile
	UsageTemporary
)

// ── ModelNodeSceneNode ───────────────────────────────────────────────────────

// ModelNodeSceneNode is embedded by the kinds that mirror a node of a
// model: dummies, meshes, lights and emitters.
type ModelNodeSceneNode struct {
	SceneNode

	model     *ModelSceneNode
	modelNode *graphics.ModelNode

	// animated is set while an animation channel drives the local transform.
	animated bool
}

func (n *ModelNodeSceneNode) bindModelNode(model *ModelSceneNode, modelNode *graphics.ModelNode) {
	n.model = model
	n.modelNode = modelNode
}

// Model returns the owning model, nil for standalone nodes.
func (n *ModelNodeSceneNode) Model() *ModelSceneNode { return n.model }

func (n *ModelNodeSceneNode) ModelNode() *graphics.ModelNode { return n.modelNode }

// ── ModelSceneNode ───────────────────────────────────────────────────────────

// ModelSceneNode is an instance of an immutable model with its own
// animation state. It can be a root of the graph or attached to a node of
// another model.
type ModelSceneNode struct {
	SceneNode

	model    *graphics.Model
	usage    ModelUsage
	listener AnimationEventListener

	drawDistance float32
	cullable     bool
	pickable     bool
	user         any
	culled       bool
	alpha        float32

	nodes        []*ModelNodeSceneNode
	nodeByName   map[string]*ModelNodeSceneNode
	nodeByNumber map[uint16]*ModelNodeSceneNode

	channel  *AnimationChannel
	previous *AnimationChannel
}

func newModel(graph *SceneGraph, model *graphics.Model, usage ModelUsage, listener AnimationEventListener) (*ModelSceneNode, error) {
	if model == nil {
		return nil, fmt.Errorf("new model: model is nil: %w", core.ErrInvalidArgument)
	}
	m := &ModelSceneNode{
		model:        model,
		usage:        usage,
		listener:     listener,
		drawDistance: math32.Inf(1),
		cullable:     usage != UsageGUI,
		pickable:     usage == UsageCreature || usage == UsagePlaceable || usage == UsageDoor,
		alpha:        1,
		nodeByName:   make(map[string]*ModelNodeSceneNode),
		nodeByNumber: make(map[uint16]*ModelNodeSceneNode),
	}
	m.init(m, NodeModel, model.Name, graph)
	if model.Root != nil {
		m.buildNodeTree(m, model.Root)
	}
	m.channel, _ = NewAnimationChannel(m)
	m.previous, _ = NewAnimationChannel(m)
	return m, nil
}

func (m *ModelSceneNode) buildNodeTree(parent Node, modelNode *graphics.ModelNode) {
	var (
		node   Node
		holder *ModelNodeSceneNode
	)
	if modelNode.Mesh != nil && !modelNode.AABBMesh {
		mesh := newMesh(m.graph, m, modelNode)
		node, holder = mesh, &mesh.ModelNodeSceneNode
	} else {
		dummy := newDummy(m.graph, m, modelNode)
		node, holder = dummy, &dummy.ModelNodeSceneNode
	}
	holder.localTransform = modelNode.LocalTransform()
	parent.base().AddChild(node)

	m.nodes = append(m.nodes, holder)
	m.nodeByName[modelNode.Name] = holder
	m.nodeByNumber[modelNode.Number] = holder

	if modelNode.Light != nil {
		node.base().AddChild(newLight(m.graph, m, modelNode))
	}
	if modelNode.Emitter != nil {
		node.base().AddChild(newEmitter(m.graph, m, modelNode))
	}
	for _, child := range modelNode.Children {
		m.buildNodeTree(node, child)
	}
}

func (m *ModelSceneNode) modelNodeByName(name string) (*ModelNodeSceneNode, bool) {
	n, ok := m.nodeByName[name]
	return n, ok
}

// NodeByName returns the scene node mirroring the named model node.
func (m *ModelSceneNode) NodeByName(name string) (Node, bool) {
	n, ok := m.nodeByName[name]
	if !ok {
		return nil, false
	}
	return n.self, true
}

func (m *ModelSceneNode) NodeByNumber(number uint16) (Node, bool) {
	n, ok := m.nodeByNumber[number]
	if !ok {
		return nil, false
	}
	return n.self, true
}

func (m *ModelSceneNode) signalEvent(name string) {
	if m.listener != nil {
		m.listener.OnEventSignalled(name)
	}
}

func (m *ModelSceneNode) Model() *graphics.Model { return m.model }
func (m *ModelSceneNode) Usage() ModelUsage { return m.usage }

// AABB returns the object-space bounds of the model.
func (m *ModelSceneNode) AABB() graphics.AABB { return m.model.AABB() }

// WorldAABB returns the bounds transformed to world space.
func (m *ModelSceneNode) WorldAABB() graphics.AABB {
	return m.model.AABB().Transform(m.AbsoluteTransform())
}

func (m *ModelSceneNode) DrawDistance() float32 { return m.drawDistance }
func (m *ModelSceneNode) SetDrawDistance(d float32) { m.drawDistance = d }
func (m *ModelSceneNode) IsCullable() bool { return m.cullable }
func (m *ModelSceneNode) SetCullable(on bool) { m.cullable = on }
func (m *ModelSceneNode) IsPickable() bool { return m.pickable }
func (m *ModelSceneNode) SetPickable(on bool) { m.pickable = on }
func (m *ModelSceneNode) IsCulled() bool { return m.culled }
func (m *ModelSceneNode) Alpha() float32 { return m.alpha }
func (m *ModelSceneNode) SetAlpha(a float32) { m.alpha = a }

// User returns the opaque identity of the game object owning the model.
func (m *ModelSceneNode) User() any { return m.user }

// SetUser sets the owner identity. A non-comparable user is an
// ErrInvalidArgument.
func (m *ModelSceneNode) SetUser(user any) error {
	if err := checkUser(user); err != nil {
		return err
	}
	m.user = user
	return nil
}

// ── Attachments ──────────────────────────────────────────────────────────────

// AttachTo parents node under the named model node, e.g. a weapon to a hand.
func (m *ModelSceneNode) AttachTo(nodeName string, node Node) error {
	if node == nil {
		return fmt.Errorf("attach to %q: node is nil: %w", nodeName, core.ErrInvalidArgument)
	}
	parent, ok := m.nodeByName[nodeName]
	if !ok {
		return fmt.Errorf("attach to %q: no such node in %q: %w", nodeName, m.name, core.ErrInvalidArgument)
	}
	parent.AddChild(node)
	return nil
}

// Detach removes node from whichever model node it was attached to.
func (m *ModelSceneNode) Detach(node Node) {
	if parent := node.Parent(); parent != nil {
		parent.base().RemoveChild(node)
	}
}

// ── Animation ────────────────────────────────────────────────────────────────

// PlayAnimation starts anim. With AnimationBlend the previous animation keeps
// playing and is cross-faded out until the new one passes its transition time.
func (m *ModelSceneNode) PlayAnimation(anim *graphics.Animation, props AnimationProperties) error {
	if anim == nil {
		return fmt.Errorf("play animation on %q: animation is nil: %w", m.name, core.ErrInvalidArgument)
	}
	if m.channel.IsActive() && m.channel.IsSameAnimation(anim, props) {
		return nil
	}
	if props.Flags&AnimationBlend != 0 && m.channel.IsActive() {
		m.channel, m.previous = m.previous, m.channel
	} else {
		m.previous.Reset()
	}
	return m.channel.ResetWith(anim, props)
}

// PlayAnimationByName looks the animation up on the model and its supermodels.
func (m *ModelSceneNode) PlayAnimationByName(name string, props AnimationProperties) error {
	anim, ok := m.model.Animation(name)
	if !ok {
		return fmt.Errorf("play animation on %q: unknown animation %q: %w", m.name, name, core.ErrInvalidArgument)
	}
	return m.PlayAnimation(anim, props)
}

func (m *ModelSceneNode) StopAnimation() {
	m.channel.Reset()
	m.previous.Reset()
}

// Channel returns the channel driving the current animation.
func (m *ModelSceneNode) Channel() *AnimationChannel { return m.channel }

func (m *ModelSceneNode) IsAnimationFinished() bool {
	return m.channel.IsFinished()
}

func (m *ModelSceneNode) animate(dt float32) {
	m.channel.Update(dt)
	if m.previous.IsActive() {
		if m.channel.IsPastTransitionTime() || !m.channel.IsActive() {
			m.previous.Reset()
		} else {
			m.previous.Update(dt)
		}
	}
	if m.channel.Animation() == nil && m.previous.Animation() == nil {
		m.restorePose()
		return
	}
	m.applyChannels()
}

func (m *ModelSceneNode) applyChannels() {
	blending := m.previous.IsActive() && m.channel.TransitionTime() > 0
	factor := float32(1)
	if blending {
		factor = mgl32.Clamp(m.channel.Time()/m.channel.TransitionTime(), 0, 1)
	}
	for _, n := range m.nodes {
		number := n.modelNode.Number
		current, hasCurrent := m.channel.TransformByNodeNumber(number)
		if blending {
			previous, hasPrevious := m.previous.TransformByNodeNumber(number)
			if hasCurrent || hasPrevious {
				rest := n.modelNode.LocalTransform()
				if !hasCurrent {
					current = rest
				}
				if !hasPrevious {
					previous = rest
				}
				current = blendTransforms(previous, current, factor)
				hasCurrent = true
			}
		}
		switch {
		case hasCurrent:
			n.SetLocalTransform(current)
			n.animated = true
		case n.animated:
			n.SetLocalTransform(n.modelNode.LocalTransform())
			n.animated = false
		}
	}
}

func (m *ModelSceneNode) restorePose() {
	for _, n := range m.nodes {
		if n.animated {
			n.SetLocalTransform(n.modelNode.LocalTransform())
			n.animated = false
		}
	}
}

// blendTransforms interpolates two uniform-scale rigid transforms.
func blendTransforms(a, b mgl32.Mat4, t float32) mgl32.Mat4 {
	sa, sb := a.Col(0).Vec3().Len(), b.Col(0).Vec3().Len()
	if sa == 0 || sb == 0 {
		return b
	}
	qa := mgl32.Mat4ToQuat(a.Mul(1 / sa))
	qb := mgl32.Mat4ToQuat(b.Mul(1 / sb))
	ta, tb := a.Col(3).Vec3(), b.Col(3).Vec3()

	tr := ta.Add(tb.Sub(ta).Mul(t))
	s := sa + (sb-sa)*t
	q := mgl32.QuatSlerp(qa, qb, t)
	return mgl32.Translate3D(tr[0], tr[1], tr[2]).Mul4(mgl32.Scale3D(s, s, s)).Mul4(q.Mat4())
}
