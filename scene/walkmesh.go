package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/graphics"
)

// WalkmeshSceneNode places a collision surface in the world.
type WalkmeshSceneNode struct {
	SceneNode

	walkmesh *graphics.Walkmesh
	user     any
}

func newWalkmesh(graph *SceneGraph, walkmesh *graphics.Walkmesh) *WalkmeshSceneNode {
	w := &WalkmeshSceneNode{walkmesh: walkmesh}
	w.init(w, NodeWalkmesh, walkmesh.Name, graph)
	return w
}

func (w *WalkmeshSceneNode) Walkmesh() *graphics.Walkmesh { return w.walkmesh }
func (w *WalkmeshSceneNode) User() any { return w.user }

// SetUser sets the owner identity used by TestWalk exclusion and picking.
// A non-comparable user is an ErrInvalidArgument.
func (w *WalkmeshSceneNode) SetUser(user any) error {
	if err := checkUser(user); err != nil {
		return err
	}
	w.user = user
	return nil
}

func (w *WalkmeshSceneNode) draw(p Painter) {
	p.DrawWalkmesh(w.walkmesh, w.AbsoluteTransform())
}

// TriggerSceneNode is a closed polygon on the ground that reacts to objects
// entering it.
type TriggerSceneNode struct {
	SceneNode

	geometry []mgl32.Vec3
	user     any
}

func newTrigger(graph *SceneGraph, name string, geometry []mgl32.Vec3) *TriggerSceneNode {
	t := &TriggerSceneNode{geometry: geometry}
	t.init(t, NodeTrigger, name, graph)
	return t
}

// Geometry returns the polygon vertices relative to the node.
func (t *TriggerSceneNode) Geometry() []mgl32.Vec3 { return t.geometry }
func (t *TriggerSceneNode) User() any { return t.user }

func (t *TriggerSceneNode) SetUser(user any) error {
	if err := checkUser(user); err != nil {
		return err
	}
	t.user = user
	return nil
}

// IsIn reports whether the world-space point lies inside the polygon,
// projected onto the XY plane.
func (t *TriggerSceneNode) IsIn(point mgl32.Vec2) bool {
	if len(t.geometry) < 3 {
		return false
	}
	abs := t.AbsoluteTransform()
	inside := false
	j := len(t.geometry) - 1
	for i := range t.geometry {
		a := mgl32.TransformCoordinate(t.geometry[i], abs)
		b := mgl32.TransformCoordinate(t.geometry[j], abs)
		if (a[1] > point[1]) != (b[1] > point[1]) &&
			point[0] < (b[0]-a[0])*(point[1]-a[1])/(b[1]-a[1])+a[0] {
			inside = !inside
		}
		j = i
	}
	return inside
}

func (t *TriggerSceneNode) draw(p Painter) {
	p.DrawTrigger(t.geometry, t.AbsoluteTransform())
}
