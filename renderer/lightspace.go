package renderer

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/core"
)

// NumShadowCascades is the number of directional shadow map layers.
const NumShadowCascades = 8

// cascadeDivisors split the camera depth range. Cascade i ends at
// zFar*cascadeDivisors[i]; the last cascade ends at zFar.
var cascadeDivisors = [NumShadowCascades - 1]float32{0.005, 0.015, 0.035, 0.075, 0.155, 0.315, 0.635}

const (
	PointShadowNear = 0.1
	PointShadowFar  = 10000
)

// CubeFace indexes the six point shadow map faces in GL order.
type CubeFace int

const (
	CubeFacePositiveX CubeFace = iota
	CubeFaceNegativeX
	CubeFacePositiveY
	CubeFaceNegativeY
	CubeFacePositiveZ
	CubeFaceNegativeZ
	NumCubeFaces
)

// CascadeRange returns the near and far plane of cascade i.
func CascadeRange(i int, zNear, zFar float32) (float32, float32) {
	near := zNear
	if i > 0 {
		near = zFar * cascadeDivisors[i-1]
	}
	far := zFar
	if i < NumShadowCascades-1 {
		far = zFar * cascadeDivisors[i]
	}
	return near, far
}

// CascadeFarPlanes returns the far plane of every cascade, used by the
// shader to pick a layer.
func CascadeFarPlanes(zNear, zFar float32) [NumShadowCascades]float32 {
	var planes [NumShadowCascades]float32
	for i := range planes {
		_, planes[i] = CascadeRange(i, zNear, zFar)
	}
	return planes
}

// FrustumCornersWorld returns the eight world-space corners of the frustum
// described by projection and view.
func FrustumCornersWorld(projection, view mgl32.Mat4) [8]mgl32.Vec3 {
	inv := projection.Mul4(view).Inv()
	var corners [8]mgl32.Vec3
	i := 0
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			for z := 0; z < 2; z++ {
				p := inv.Mul4x1(mgl32.Vec4{2*float32(x) - 1, 2*float32(y) - 1, 2*float32(z) - 1, 1})
				corners[i] = p.Vec3().Mul(1 / p.W())
				i++
			}
		}
	}
	return corners
}

// DirectionalLightSpace fits an orthographic light projection around one
// slice of the camera frustum.
func DirectionalLightSpace(fovy, aspect, near, far float32, view mgl32.Mat4, lightDir mgl32.Vec3) mgl32.Mat4 {
	corners := FrustumCornersWorld(mgl32.Perspective(fovy, aspect, near, far), view)

	var center mgl32.Vec3
	for _, c := range corners {
		center = center.Add(c)
	}
	center = center.Mul(1.0 / float32(len(corners)))

	lightView := mgl32.LookAtV(center.Sub(lightDir), center, mgl32.Vec3{0, 1, 0})

	minV := mgl32.Vec3{math32.Inf(1), math32.Inf(1), math32.Inf(1)}
	maxV := mgl32.Vec3{math32.Inf(-1), math32.Inf(-1), math32.Inf(-1)}
	for _, c := range corners {
		p := mgl32.TransformCoordinate(c, lightView)
		for k := 0; k < 3; k++ {
			minV[k] = math32.Min(minV[k], p[k])
			maxV[k] = math32.Max(maxV[k], p[k])
		}
	}

	// Pull the depth range out so casters behind the slice still land in it.
	const zMult = 10
	if minV[2] < 0 {
		minV[2] *= zMult
	} else {
		minV[2] /= zMult
	}
	if maxV[2] < 0 {
		maxV[2] /= zMult
	} else {
		maxV[2] *= zMult
	}

	return mgl32.Ortho(minV[0], maxV[0], minV[1], maxV[1], minV[2], maxV[2]).Mul4(lightView)
}

// CascadeLightSpaces returns one light-space matrix per cascade for a
// directional light at lightPos seen from the camera.
func CascadeLightSpaces(fovy, aspect, zNear, zFar float32, view mgl32.Mat4, cameraPos, lightPos mgl32.Vec3) [NumShadowCascades]mgl32.Mat4 {
	lightDir := cameraPos.Sub(lightPos)
	if lightDir.Len() == 0 {
		lightDir = mgl32.Vec3{0, 0, -1}
	}
	lightDir = lightDir.Normalize()
	var out [NumShadowCascades]mgl32.Mat4
	for i := range out {
		near, far := CascadeRange(i, zNear, zFar)
		out[i] = DirectionalLightSpace(fovy, aspect, near, far, view, lightDir)
	}
	return out
}

var cubeFaceAxes = [NumCubeFaces]struct{ dir, up mgl32.Vec3 }{
	CubeFacePositiveX: {mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	CubeFaceNegativeX: {mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	CubeFacePositiveY: {mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}},
	CubeFaceNegativeY: {mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 0, -1}},
	CubeFacePositiveZ: {mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, -1, 0}},
	CubeFaceNegativeZ: {mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, -1, 0}},
}

// PointLightSpace returns the view-projection of one cube face of a point
// light shadow map.
func PointLightSpace(position mgl32.Vec3, face CubeFace) (mgl32.Mat4, error) {
	if face < 0 || face >= NumCubeFaces {
		return mgl32.Mat4{}, fmt.Errorf("invalid cube face %d: %w", face, core.ErrLogic)
	}
	axes := cubeFaceAxes[face]
	projection := mgl32.Perspective(mgl32.DegToRad(90), 1, PointShadowNear, PointShadowFar)
	view := mgl32.LookAtV(position, position.Add(axes.dir), axes.up)
	return projection.Mul4(view), nil
}

// PointLightSpaces returns all six cube face matrices.
func PointLightSpaces(position mgl32.Vec3) [NumCubeFaces]mgl32.Mat4 {
	var out [NumCubeFaces]mgl32.Mat4
	for face := range out {
		out[face], _ = PointLightSpace(position, CubeFace(face))
	}
	return out
}
