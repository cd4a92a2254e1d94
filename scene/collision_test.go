package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotor-render/core"
	"kotor-render/graphics"
)

var testSurfaces = graphics.Surfaces{
	Walkable:    graphics.NewMaterialSet(1),
	Walkcheck:   graphics.NewMaterialSet(1, 2),
	LineOfSight: graphics.NewMaterialSet(2),
}

func TestElevationOnWalkableFloor(t *testing.T) {
	g, _ := newTestGraph(WithSurfaces(testSurfaces))
	addWalkmesh(t, g, floor(0, 1), "area")

	c, ok := g.TestElevation(mgl32.Vec2{1, 2})
	require.True(t, ok)
	assert.InDelta(t, 0, c.Intersection[2], eps)
	assert.InDelta(t, 1, c.Intersection[0], eps)
	assert.InDelta(t, 2, c.Intersection[1], eps)
	assert.InDelta(t, 1, c.Normal[2], eps)
	assert.Equal(t, uint32(1), c.Material)
	assert.Equal(t, "area", c.User)

	_, ok = g.TestElevation(mgl32.Vec2{100, 100})
	assert.False(t, ok, "no floor")
}

func TestElevationOnBlockedFloor(t *testing.T) {
	g, _ := newTestGraph(WithSurfaces(testSurfaces))
	addWalkmesh(t, g, floor(0, 2), nil)

	_, ok := g.TestElevation(mgl32.Vec2{1, 2})
	assert.False(t, ok)
}

func TestElevationUsesNearestFloor(t *testing.T) {
	g, _ := newTestGraph(WithSurfaces(testSurfaces))
	addWalkmesh(t, g, floor(0, 1), nil)
	addWalkmesh(t, g, floor(2, 2), nil)

	_, ok := g.TestElevation(mgl32.Vec2{1, 2})
	assert.False(t, ok, "the upper floor is not walkable")

	g, _ = newTestGraph(WithSurfaces(testSurfaces))
	addWalkmesh(t, g, floor(0, 2), nil)
	addWalkmesh(t, g, floor(2, 1), nil)

	c, ok := g.TestElevation(mgl32.Vec2{1, 2})
	require.True(t, ok)
	assert.InDelta(t, 2, c.Intersection[2], eps)
}

func TestLineOfSightReportsNearestHit(t *testing.T) {
	g, _ := newTestGraph(WithSurfaces(testSurfaces))
	addWalkmesh(t, g, wallX(5, 2), "far")
	addWalkmesh(t, g, wallX(3, 2), "near")

	origin := mgl32.Vec3{0, 1, -2}
	c, ok := g.TestLineOfSight(origin, mgl32.Vec3{10, 1, -2})
	require.True(t, ok)
	assert.InDelta(t, 3, c.Intersection[0], eps)
	assert.Equal(t, "near", c.User)
	assert.InDelta(t, 3, c.Distance, eps)

	_, ok = g.TestLineOfSight(origin, mgl32.Vec3{2, 1, -2})
	assert.False(t, ok, "segment ends before the walls")
}

func TestLineOfSightIgnoresOtherSurfaces(t *testing.T) {
	g, _ := newTestGraph(WithSurfaces(testSurfaces))
	addWalkmesh(t, g, wallX(3, 1), nil)

	_, ok := g.TestLineOfSight(mgl32.Vec3{0, 1, -2}, mgl32.Vec3{10, 1, -2})
	assert.False(t, ok)
}

func TestWalkExcludesUser(t *testing.T) {
	g, _ := newTestGraph(WithSurfaces(testSurfaces))
	addWalkmesh(t, g, wallX(5, 2), "far")
	addWalkmesh(t, g, wallX(3, 2), "near")
	origin := mgl32.Vec3{0, 1, -2}

	c, ok := g.TestWalk(origin, mgl32.Vec3{10, 1, -2}, nil)
	require.True(t, ok)
	assert.Equal(t, "near", c.User)

	c, ok = g.TestWalk(origin, mgl32.Vec3{10, 1, -2}, "near")
	require.True(t, ok)
	assert.Equal(t, "far", c.User)
	assert.InDelta(t, 5, c.Intersection[0], eps)

	_, ok = g.TestWalk(origin, mgl32.Vec3{4, 1, -2}, "near")
	assert.False(t, ok, "hit beyond the segment")
}

func TestUncomparableUsersAreRejected(t *testing.T) {
	g, _ := newTestGraph(WithSurfaces(testSurfaces))
	wall := addWalkmesh(t, g, wallX(3, 2), "wall")
	assert.ErrorIs(t, wall.SetUser([]int{1}), core.ErrInvalidArgument)
	assert.Equal(t, "wall", wall.User())

	crate := addModel(t, g, meshModel("crate", graphics.TriangleMesh{Render: true}), UsagePlaceable, mgl32.Vec3{0, 0, -5})
	assert.ErrorIs(t, crate.SetUser(map[string]int{}), core.ErrInvalidArgument)
	assert.Nil(t, crate.User())

	trigger, err := g.NewTrigger("door", []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	require.NoError(t, err)
	assert.ErrorIs(t, trigger.SetUser(func() {}), core.ErrInvalidArgument)

	origin := mgl32.Vec3{0, 1, -2}
	assert.NotPanics(t, func() {
		c, ok := g.TestWalk(origin, mgl32.Vec3{10, 1, -2}, []int{1})
		require.True(t, ok)
		assert.Equal(t, "wall", c.User)
	})
}

func TestWalkIsLimitedToCollisionDistance(t *testing.T) {
	g, _ := newTestGraph(WithSurfaces(testSurfaces))
	addWalkmesh(t, g, wallX(9, 2), nil)

	_, ok := g.TestWalk(mgl32.Vec3{0, 1, -2}, mgl32.Vec3{20, 1, -2}, nil)
	assert.False(t, ok)

	c, ok := g.TestLineOfSight(mgl32.Vec3{0, 1, -2}, mgl32.Vec3{20, 1, -2})
	require.True(t, ok)
	assert.InDelta(t, 9, c.Intersection[0], eps)
}

func TestPlaceableWalkmeshInWorldSpace(t *testing.T) {
	g, _ := newTestGraph(WithSurfaces(testSurfaces))
	door := graphics.NewWalkmesh("door", quadFaces(
		mgl32.Vec3{0, -5, -5}, mgl32.Vec3{0, 5, -5},
		mgl32.Vec3{0, 5, 5}, mgl32.Vec3{0, -5, 5}, 2), false)
	node := addWalkmesh(t, g, door, "door")
	node.SetPosition(mgl32.Vec3{3, 0, 0})

	c, ok := g.TestWalk(mgl32.Vec3{0, 1, -2}, mgl32.Vec3{10, 1, -2}, nil)
	require.True(t, ok)
	assert.InDelta(t, 3, c.Intersection[0], eps)
	assert.InDelta(t, 1, c.Intersection[1], eps)
	assert.Equal(t, "door", c.User)

	node.SetPosition(mgl32.Vec3{30, 0, 0})
	_, ok = g.TestWalk(mgl32.Vec3{0, 1, -2}, mgl32.Vec3{40, 1, -2}, nil)
	assert.False(t, ok, "far placeable walkmeshes are skipped")
}

func TestDisabledWalkmeshesAreIgnored(t *testing.T) {
	g, _ := newTestGraph(WithSurfaces(testSurfaces))
	node := addWalkmesh(t, g, floor(0, 1), nil)
	node.SetEnabled(false)

	_, ok := g.TestElevation(mgl32.Vec2{1, 2})
	assert.False(t, ok)
}

func TestPickModelAt(t *testing.T) {
	g, _ := newTestGraph(WithSurfaces(testSurfaces), WithViewport(800, 600))
	crate := addModel(t, g, meshModel("crate", graphics.TriangleMesh{Render: true}), UsagePlaceable, mgl32.Vec3{0, 0, -5})
	require.NoError(t, crate.SetUser("crate"))

	picked, ok := g.PickModelAt(400, 300, nil)
	require.True(t, ok)
	assert.Same(t, crate, picked)

	_, ok = g.PickModelAt(400, 300, "crate")
	assert.False(t, ok, "excluded user")

	_, ok = g.PickModelAt(10, 10, nil)
	assert.False(t, ok, "nothing under the corner")

	crate.SetPickable(false)
	_, ok = g.PickModelAt(400, 300, nil)
	assert.False(t, ok)
	crate.SetPickable(true)

	blocker := graphics.NewWalkmesh("blocker", []graphics.Face{{
		Material: 2,
		Vertices: [3]mgl32.Vec3{{-5, -5, -2}, {5, -5, -2}, {0, 5, -2}},
	}}, true)
	addWalkmesh(t, g, blocker, "wall")
	_, ok = g.PickModelAt(400, 300, nil)
	assert.False(t, ok, "hidden behind a wall")
}

func TestRoomsAreNotPickable(t *testing.T) {
	g, _ := newTestGraph(WithViewport(800, 600))
	addModel(t, g, meshModel("room", graphics.TriangleMesh{Render: true}), UsageRoom, mgl32.Vec3{0, 0, -5})

	_, ok := g.PickModelAt(400, 300, nil)
	assert.False(t, ok)
}

func TestTriggerIsIn(t *testing.T) {
	g, _ := newTestGraph()
	trigger, err := g.NewTrigger("exit", []mgl32.Vec3{{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}})
	require.NoError(t, err)
	trigger.SetPosition(mgl32.Vec3{10, 10, 0})

	assert.True(t, trigger.IsIn(mgl32.Vec2{10, 10}))
	assert.True(t, trigger.IsIn(mgl32.Vec2{10.5, 9.5}))
	assert.False(t, trigger.IsIn(mgl32.Vec2{0, 0}))
	assert.False(t, trigger.IsIn(mgl32.Vec2{12, 10}))

	_, err = g.NewTrigger("bad", []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}})
	assert.Error(t, err)
}
