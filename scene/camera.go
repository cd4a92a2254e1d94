package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/graphics"
)

// CameraSceneNode is a perspective camera. Its view matrix is the inverse of
// its absolute transform; the camera looks down its local -Z axis.
type CameraSceneNode struct {
	SceneNode

	fovy   float32 // radians
	aspect float32
	near   float32
	far    float32

	projection     mgl32.Mat4
	frustum        Frustum
	frustumVersion uint64
	frustumDirty   bool
}

func newCamera(graph *SceneGraph, name string) *CameraSceneNode {
	c := &CameraSceneNode{}
	c.init(c, NodeCamera, name, graph)
	c.SetPerspective(mgl32.DegToRad(55), 4.0/3.0, 0.1, 10000)
	return c
}

// SetPerspective replaces the projection. fovy is in radians.
func (c *CameraSceneNode) SetPerspective(fovy, aspect, near, far float32) {
	c.fovy, c.aspect, c.near, c.far = fovy, aspect, near, far
	c.projection = mgl32.Perspective(fovy, aspect, near, far)
	c.frustumDirty = true
}

// UpdateAspectRatio keeps the field of view and clip planes.
func (c *CameraSceneNode) UpdateAspectRatio(width, height float32) {
	if height > 0 {
		c.SetPerspective(c.fovy, width/height, c.near, c.far)
	}
}

func (c *CameraSceneNode) FieldOfView() float32 { return c.fovy }
func (c *CameraSceneNode) AspectRatio() float32 { return c.aspect }
func (c *CameraSceneNode) ZNear() float32 { return c.near }
func (c *CameraSceneNode) ZFar() float32 { return c.far }

func (c *CameraSceneNode) Projection() mgl32.Mat4 {
	return c.projection
}

func (c *CameraSceneNode) View() mgl32.Mat4 {
	return c.AbsoluteTransformInverse()
}

// LookAt positions the camera at eye facing target.
func (c *CameraSceneNode) LookAt(eye, target, up mgl32.Vec3) {
	c.SetLocalTransform(mgl32.LookAtV(eye, target, up).Inv())
}

// Forward returns the world-space viewing direction.
func (c *CameraSceneNode) Forward() mgl32.Vec3 {
	return c.AbsoluteTransform().Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3().Normalize()
}

func (c *CameraSceneNode) Frustum() *Frustum {
	view := c.AbsoluteTransformInverse()
	if c.frustumDirty || c.frustumVersion != c.version {
		c.frustum = FrustumFromMatrix(c.projection.Mul4(view))
		c.frustumVersion = c.version
		c.frustumDirty = false
	}
	return &c.frustum
}

func (c *CameraSceneNode) IsInFrustum(point mgl32.Vec3) bool {
	return c.Frustum().ContainsPoint(point)
}

// IsInFrustumAABB tests a world-space box.
func (c *CameraSceneNode) IsInFrustumAABB(box graphics.AABB) bool {
	return c.Frustum().IntersectsAABB(box)
}
