package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/core"
	"kotor-render/graphics"
)

// ── Factory ──────────────────────────────────────────────────────────────────
// Nodes are created through the graph they will live in. Creating a node does
// not add it as a root.

// NewModel instantiates model. listener may be nil.
func (g *SceneGraph) NewModel(model *graphics.Model, usage ModelUsage, listener AnimationEventListener) (*ModelSceneNode, error) {
	return newModel(g, model, usage, listener)
}

// NewDummy creates a transform-only node for a model node that is not part
// of an instantiated model.
func (g *SceneGraph) NewDummy(modelNode *graphics.ModelNode) (*DummySceneNode, error) {
	if modelNode == nil {
		return nil, fmt.Errorf("new dummy: model node is nil: %w", core.ErrInvalidArgument)
	}
	d := newDummy(g, nil, modelNode)
	d.localTransform = modelNode.LocalTransform()
	return d, nil
}

func (g *SceneGraph) NewWalkmesh(walkmesh *graphics.Walkmesh) (*WalkmeshSceneNode, error) {
	if walkmesh == nil {
		return nil, fmt.Errorf("new walkmesh: walkmesh is nil: %w", core.ErrInvalidArgument)
	}
	return newWalkmesh(g, walkmesh), nil
}

// NewTrigger creates a trigger from a polygon of at least three vertices.
func (g *SceneGraph) NewTrigger(name string, geometry []mgl32.Vec3) (*TriggerSceneNode, error) {
	if len(geometry) < 3 {
		return nil, fmt.Errorf("new trigger %q: %d vertices: %w", name, len(geometry), core.ErrInvalidArgument)
	}
	return newTrigger(g, name, geometry), nil
}

func (g *SceneGraph) NewCamera(name string) *CameraSceneNode {
	c := newCamera(g, name)
	if g.viewport.Width > 0 && g.viewport.Height > 0 {
		c.UpdateAspectRatio(float32(g.viewport.Width), float32(g.viewport.Height))
	}
	return c
}

// NewSound creates a sound node playing through the graph's audio player.
func (g *SceneGraph) NewSound(name string) (*SoundSceneNode, error) {
	if g.audioPlayer == nil {
		return nil, fmt.Errorf("new sound %q: no audio player: %w", name, core.ErrLogic)
	}
	return newSound(g, name, g.audioPlayer), nil
}

// NewGrass creates a grass root covering the faces of aabbNode.
func (g *SceneGraph) NewGrass(props GrassProperties, aabbNode *graphics.ModelNode) (*GrassSceneNode, error) {
	if aabbNode == nil || aabbNode.Mesh == nil {
		return nil, fmt.Errorf("new grass: node has no mesh: %w", core.ErrInvalidArgument)
	}
	if props.Density < 0 || props.QuadSize <= 0 {
		return nil, fmt.Errorf("new grass: density %v, quad size %v: %w", props.Density, props.QuadSize, core.ErrInvalidArgument)
	}
	return newGrass(g, props, aabbNode), nil
}
