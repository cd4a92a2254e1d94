package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/graphics"
)

// LightFadeSpeed is how fast a light's strength ramps, per second.
const LightFadeSpeed = 2.0

// LightSceneNode is a light of a model node. The graph decides whether it
// is active; strength follows that decision gradually.
type LightSceneNode struct {
	ModelNodeSceneNode

	light    *graphics.Light
	active   bool
	strength float32
}

func newLight(graph *SceneGraph, model *ModelSceneNode, modelNode *graphics.ModelNode) *LightSceneNode {
	l := &LightSceneNode{light: modelNode.Light}
	l.init(l, NodeLight, modelNode.Name+"_light", graph)
	l.bindModelNode(model, modelNode)
	return l
}

func (l *LightSceneNode) update(dt float32) {
	if l.active {
		l.strength = math32.Min(1, l.strength+LightFadeSpeed*dt)
	} else {
		l.strength = math32.Max(0, l.strength-LightFadeSpeed*dt)
	}
}

// Light returns the light definition, shared with the model node.
func (l *LightSceneNode) Light() *graphics.Light { return l.light }

func (l *LightSceneNode) Color() mgl32.Vec3 { return l.light.Color }
func (l *LightSceneNode) Multiplier() float32 { return l.light.Multiplier }
func (l *LightSceneNode) Radius() float32 { return l.light.Radius }
func (l *LightSceneNode) IsDirectional() bool { return l.light.Directional }
func (l *LightSceneNode) IsActive() bool { return l.active }
func (l *LightSceneNode) SetActive(on bool) { l.active = on }
func (l *LightSceneNode) Strength() float32 { return l.strength }

func (l *LightSceneNode) modelEnabled() bool {
	return l.model == nil || l.model.IsEnabled()
}

func (l *LightSceneNode) drawLensFlare(p Painter, flare graphics.LensFlare) {
	p.DrawLensFlare(flare, l.Origin())
}
