package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/graphics"
)

const (
	maxCollisionDistanceWalk2        = MaxCollisionDistanceWalk * MaxCollisionDistanceWalk
	maxCollisionDistanceLineOfSight2 = MaxCollisionDistanceLineOfSight * MaxCollisionDistanceLineOfSight
)

// Collision describes the nearest hit of a raycast query. User is the
// back-reference of the walkmesh root that was hit.
type Collision struct {
	User         any
	Intersection mgl32.Vec3
	Normal       mgl32.Vec3
	Material     uint32
	Distance     float32
}

// raycastRoot casts a world-space ray against one walkmesh root. The returned
// distance is measured in world units.
func raycastRoot(root *WalkmeshSceneNode, materials graphics.MaterialSet, origin, dir mgl32.Vec3, maxDistance float32) (Collision, bool) {
	inv := root.AbsoluteTransformInverse()
	objOrigin := mgl32.TransformCoordinate(origin, inv)
	objDir := inv.Mul4x1(dir.Vec4(0)).Vec3()

	face, t, ok := root.walkmesh.Raycast(materials, objOrigin, objDir, maxDistance)
	if !ok {
		return Collision{}, false
	}
	abs := root.AbsoluteTransform()
	hit := mgl32.TransformCoordinate(objOrigin.Add(objDir.Mul(t)), abs)
	normal := abs.Mul4x1(face.Normal.Vec4(0)).Vec3()
	if normal.Len() > 0 {
		normal = normal.Normalize()
	}
	return Collision{
		User:         root.user,
		Intersection: hit,
		Normal:       normal,
		Material:     face.Material,
		Distance:     hit.Sub(origin).Len(),
	}, true
}

// TestElevation casts straight down at xy. It reports false when there is
// no floor or when the nearest floor is not walkable.
func (g *SceneGraph) TestElevation(xy mgl32.Vec2) (Collision, bool) {
	origin := mgl32.Vec3{xy[0], xy[1], ElevationTestZ}
	down := mgl32.Vec3{0, 0, -1}

	var (
		best  Collision
		found bool
	)
	for _, kv := range g.walkmeshRoots.Order {
		root := kv.Key
		if !root.IsEnabled() {
			continue
		}
		if !root.walkmesh.IsAreaWalkmesh() && root.SquareDistanceTo2D(xy) > maxCollisionDistanceWalk2 {
			continue
		}
		c, ok := raycastRoot(root, g.surfaces.Walkcheck, origin, down, 2*ElevationTestZ)
		if !ok || (found && c.Distance >= best.Distance) {
			continue
		}
		best, found = c, true
	}
	if !found || !g.surfaces.Walkable.Has(best.Material) {
		return Collision{}, false
	}
	return best, true
}

// TestLineOfSight reports the nearest surface blocking the segment from
// origin to dest.
func (g *SceneGraph) TestLineOfSight(origin, dest mgl32.Vec3) (Collision, bool) {
	return g.nearestSegmentHit(origin, dest, g.surfaces.LineOfSight, nil, false, maxCollisionDistanceLineOfSight2, 0)
}

// TestWalk reports the nearest walk-check surface between origin and dest,
// ignoring walkmeshes owned by excludeUser. Hits further than
// MaxCollisionDistanceWalk are not reported.
func (g *SceneGraph) TestWalk(origin, dest mgl32.Vec3, excludeUser any) (Collision, bool) {
	return g.nearestSegmentHit(origin, dest, g.surfaces.Walkcheck, excludeUser, excludeUser != nil, maxCollisionDistanceWalk2, MaxCollisionDistanceWalk)
}

// nearestSegmentHit casts from origin toward dest against every enabled
// walkmesh root. A non-zero castDistance bounds the ray in addition to the
// segment length.
func (g *SceneGraph) nearestSegmentHit(origin, dest mgl32.Vec3, materials graphics.MaterialSet, excludeUser any, exclude bool, broadPhase2, castDistance float32) (Collision, bool) {
	segment := dest.Sub(origin)
	length := segment.Len()
	if length == 0 {
		return Collision{}, false
	}
	dir := segment.Mul(1 / length)
	maxDistance := length
	if castDistance > 0 {
		maxDistance = math32.Min(length, castDistance)
	}

	var (
		best  Collision
		found bool
	)
	for _, kv := range g.walkmeshRoots.Order {
		root := kv.Key
		if !root.IsEnabled() || (exclude && root.user == excludeUser) {
			continue
		}
		if !root.walkmesh.IsAreaWalkmesh() && root.SquareDistanceToPoint(origin) > broadPhase2 {
			continue
		}
		c, ok := raycastRoot(root, materials, origin, dir, maxDistance)
		if !ok || c.Distance > maxDistance || (found && c.Distance >= best.Distance) {
			continue
		}
		best, found = c, true
	}
	return best, found
}

// PickModelAt returns the nearest pickable model under the screen
// coordinates, ignoring models whose user is except and models hidden
// behind line-of-sight blockers.
func (g *SceneGraph) PickModelAt(x, y int, except any) (*ModelSceneNode, bool) {
	camera := g.activeCamera
	if camera == nil || g.viewport.Width == 0 || g.viewport.Height == 0 {
		return nil, false
	}
	w, h := g.viewport.Width, g.viewport.Height
	winY := float32(h - y)
	view, projection := camera.View(), camera.Projection()

	start, err := mgl32.UnProject(mgl32.Vec3{float32(x), winY, 0}, view, projection, 0, 0, w, h)
	if err != nil {
		return nil, false
	}
	end, err := mgl32.UnProject(mgl32.Vec3{float32(x), winY, 1}, view, projection, 0, 0, w, h)
	if err != nil {
		return nil, false
	}
	ray := end.Sub(start)
	if ray.Len() == 0 {
		return nil, false
	}
	dir := ray.Normalize()

	var (
		best     *ModelSceneNode
		bestDist = math32.Inf(1)
	)
	for _, kv := range g.modelRoots.Order {
		model := kv.Key
		if !model.pickable || !model.enabled || (except != nil && model.user == except) {
			continue
		}
		if model.SquareDistanceToPoint(start) > maxCollisionDistanceLineOfSight2 {
			continue
		}
		inv := model.AbsoluteTransformInverse()
		objStart := mgl32.TransformCoordinate(start, inv)
		objDir := inv.Mul4x1(dir.Vec4(0)).Vec3()
		distance, ok := model.AABB().Raycast(objStart, objDir, MaxCollisionDistanceLineOfSight)
		if !ok || distance <= 0 {
			continue
		}
		if c, blocked := g.TestLineOfSight(start, start.Add(dir.Mul(distance))); blocked && c.User != model.user {
			continue
		}
		if distance < bestDist {
			best, bestDist = model, distance
		}
	}
	return best, best != nil
}
