package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotor-render/core"
)

func TestCascadeRanges(t *testing.T) {
	near, far := CascadeRange(0, 0.1, 1000)
	assert.Equal(t, float32(0.1), near)
	assert.InDelta(t, 5, far, 1e-4)

	near, far = CascadeRange(3, 0.1, 1000)
	assert.InDelta(t, 35, near, 1e-3)
	assert.InDelta(t, 75, far, 1e-3)

	near, far = CascadeRange(NumShadowCascades-1, 0.1, 1000)
	assert.InDelta(t, 635, near, 1e-3)
	assert.Equal(t, float32(1000), far)

	planes := CascadeFarPlanes(0.1, 1000)
	for i := 1; i < NumShadowCascades; i++ {
		assert.Greater(t, planes[i], planes[i-1])
		n, _ := CascadeRange(i, 0.1, 1000)
		assert.Equal(t, planes[i-1], n, "cascades are contiguous")
	}
}

func TestFrustumCornersWorld(t *testing.T) {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	corners := FrustumCornersWorld(mgl32.Perspective(mgl32.DegToRad(90), 1, 1, 10), view)

	// x, y and z all -1 is the near bottom-left corner.
	assert.InDelta(t, -1, corners[0][0], 1e-4)
	assert.InDelta(t, -1, corners[0][1], 1e-4)
	assert.InDelta(t, -1, corners[0][2], 1e-4)
	// The last corner is far top-right.
	assert.InDelta(t, 10, corners[7][0], 1e-3)
	assert.InDelta(t, 10, corners[7][1], 1e-3)
	assert.InDelta(t, -10, corners[7][2], 1e-3)
}

func TestDirectionalLightSpaceContainsSlice(t *testing.T) {
	fovy, aspect := mgl32.DegToRad(55), float32(4.0/3.0)
	cameraPos := mgl32.Vec3{2, -8, 6}
	view := mgl32.LookAtV(cameraPos, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1})
	lightPos := mgl32.Vec3{50, 40, 100}

	spaces := CascadeLightSpaces(fovy, aspect, 0.1, 100, view, cameraPos, lightPos)
	for i, lightSpace := range spaces {
		near, far := CascadeRange(i, 0.1, 100)
		for _, c := range FrustumCornersWorld(mgl32.Perspective(fovy, aspect, near, far), view) {
			p := mgl32.TransformCoordinate(c, lightSpace)
			assert.InDelta(t, 0, p[0], 1+1e-3, "cascade %d x", i)
			assert.InDelta(t, 0, p[1], 1+1e-3, "cascade %d y", i)
		}
	}
}

func TestPointLightSpace(t *testing.T) {
	pos := mgl32.Vec3{1, 2, 3}

	m, err := PointLightSpace(pos, CubeFacePositiveX)
	require.NoError(t, err)
	p := mgl32.TransformCoordinate(pos.Add(mgl32.Vec3{5, 0, 0}), m)
	assert.InDelta(t, 0, p[0], 1e-5)
	assert.InDelta(t, 0, p[1], 1e-5)

	m, err = PointLightSpace(pos, CubeFaceNegativeZ)
	require.NoError(t, err)
	p = mgl32.TransformCoordinate(pos.Add(mgl32.Vec3{0, 0, -2}), m)
	assert.InDelta(t, 0, p[0], 1e-5)
	assert.InDelta(t, 0, p[1], 1e-5)

	_, err = PointLightSpace(pos, NumCubeFaces)
	assert.ErrorIs(t, err, core.ErrLogic)
	_, err = PointLightSpace(pos, -1)
	assert.ErrorIs(t, err, core.ErrLogic)

	faces := PointLightSpaces(pos)
	assert.Equal(t, m, faces[CubeFaceNegativeZ])
}
