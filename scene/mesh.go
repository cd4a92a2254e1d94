package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/graphics"
)

// MeshSceneNode draws the triangle mesh of a model node.
type MeshSceneNode struct {
	ModelNodeSceneNode

	diffuse        string
	uvOffset       mgl32.Vec2
	alpha          float32
	selfIllumColor mgl32.Vec3
}

func newMesh(graph *SceneGraph, model *ModelSceneNode, modelNode *graphics.ModelNode) *MeshSceneNode {
	m := &MeshSceneNode{alpha: 1}
	m.init(m, NodeMesh, modelNode.Name, graph)
	m.bindModelNode(model, modelNode)
	if tm := modelNode.Mesh; tm != nil {
		m.diffuse = tm.Diffuse
		m.selfIllumColor = tm.SelfIllumColor
		if tm.Alpha > 0 {
			m.alpha = tm.Alpha
		}
	}
	return m
}

func (m *MeshSceneNode) mesh() *graphics.TriangleMesh {
	return m.modelNode.Mesh
}

func (m *MeshSceneNode) ShouldRender() bool {
	tm := m.mesh()
	return tm != nil && tm.Mesh != nil && tm.Render && m.alpha > 0
}

// ShouldCastShadows is true for shadow-flagged opaque meshes of models that
// are not lightmapped rooms.
func (m *MeshSceneNode) ShouldCastShadows() bool {
	tm := m.mesh()
	if tm == nil || tm.Mesh == nil || !tm.Shadow {
		return false
	}
	if m.model != nil && m.model.usage == UsageRoom {
		return false
	}
	return !m.IsTransparent()
}

func (m *MeshSceneNode) IsTransparent() bool {
	if m.model != nil {
		if m.model.usage == UsageGUI {
			return false
		}
		if m.model.alpha < 1 {
			return true
		}
	}
	if m.alpha < 1 {
		return true
	}
	tm := m.mesh()
	return tm != nil && tm.Transparency > 0
}

func (m *MeshSceneNode) IsSelfIlluminated() bool {
	return m.selfIllumColor != (mgl32.Vec3{})
}

func (m *MeshSceneNode) SetDiffuseTexture(name string) { m.diffuse = name }
func (m *MeshSceneNode) DiffuseTexture() string { return m.diffuse }
func (m *MeshSceneNode) SetAlpha(a float32) { m.alpha = a }
func (m *MeshSceneNode) SetSelfIllumColor(c mgl32.Vec3) { m.selfIllumColor = c }
func (m *MeshSceneNode) UVOffset() mgl32.Vec2 { return m.uvOffset }

func (m *MeshSceneNode) update(dt float32) {
	tm := m.mesh()
	if tm == nil || tm.UVScroll == (mgl32.Vec2{}) {
		return
	}
	m.uvOffset = m.uvOffset.Add(tm.UVScroll.Mul(dt))
	m.uvOffset[0] -= math32.Floor(m.uvOffset[0])
	m.uvOffset[1] -= math32.Floor(m.uvOffset[1])
}

func (m *MeshSceneNode) drawCommand() MeshDraw {
	tm := m.mesh()
	alpha := m.alpha
	if m.model != nil {
		alpha *= m.model.alpha
	}
	return MeshDraw{
		Mesh:           tm.Mesh,
		Transform:      m.AbsoluteTransform(),
		Diffuse:        m.diffuse,
		Lightmap:       tm.Lightmap,
		UVOffset:       m.uvOffset,
		Alpha:          alpha,
		SelfIllumColor: m.selfIllumColor,
		Transparent:    m.IsTransparent(),
		Lightmapped:    tm.Lightmap != "",
	}
}

func (m *MeshSceneNode) draw(p Painter) {
	p.DrawMesh(m.drawCommand())
}

func (m *MeshSceneNode) drawShadow(p Painter) {
	p.DrawShadowMesh(m.mesh().Mesh, m.AbsoluteTransform())
}
