package scene

import (
	"slices"
	"sort"

	"github.com/chewxy/math32"
)

const lightRadiusBias2 = LightRadiusBias * LightRadiusBias

type lightDistance struct {
	light     *LightSceneNode
	distance2 float32
}

type soundDistance struct {
	sound     *SoundSceneNode
	distance2 float32
}

// computeClosestLights appends to out up to count lights accepted by pred,
// directional lights first, then by ascending squared distance to the camera.
func (g *SceneGraph) computeClosestLights(count int, pred func(*LightSceneNode, float32) bool, out []*LightSceneNode) []*LightSceneNode {
	distances := g.lightDistances[:0]
	for _, light := range g.lights {
		d2 := light.SquareDistanceTo(g.activeCamera)
		if !pred(light, d2) {
			continue
		}
		distances = append(distances, lightDistance{light, d2})
	}
	sort.SliceStable(distances, func(i, j int) bool {
		a, b := distances[i], distances[j]
		if a.light.IsDirectional() != b.light.IsDirectional() {
			return a.light.IsDirectional()
		}
		return a.distance2 < b.distance2
	})
	if len(distances) > count {
		distances = distances[:count]
	}
	for _, d := range distances {
		out = append(out, d.light)
	}
	g.lightDistances = distances[:0]
	return out
}

func (g *SceneGraph) updateLighting() {
	g.closestLights = g.computeClosestLights(MaxLights, func(light *LightSceneNode, d2 float32) bool {
		r2 := light.Radius() * light.Radius()
		return d2 < r2*r2+lightRadiusBias2
	}, g.closestLights[:0])

	lookup := g.lightLookup
	clear(lookup)
	for _, light := range g.closestLights {
		lookup[light] = struct{}{}
	}

	// Lights already in the list stay; unselected ones start fading out.
	for _, light := range g.activeLights {
		if _, ok := lookup[light]; ok {
			light.SetActive(true)
			delete(lookup, light)
		} else {
			light.SetActive(false)
		}
	}

	// Drop lights that have faded out or whose model is disabled.
	kept := g.activeLights[:0]
	for _, light := range g.activeLights {
		if (!light.IsActive() && light.Strength() == 0) || !light.modelEnabled() {
			continue
		}
		kept = append(kept, light)
	}
	clear(g.activeLights[len(kept):])
	g.activeLights = kept

	// Add newly selected lights in closeness order.
	for _, light := range g.closestLights {
		if _, ok := lookup[light]; !ok {
			continue
		}
		if len(g.activeLights) >= MaxLights {
			break
		}
		light.SetActive(true)
		g.activeLights = append(g.activeLights, light)
	}
}

func isShadowCandidate(light *LightSceneNode, d2 float32) bool {
	if !light.light.Shadow {
		return false
	}
	r := light.Radius()
	return d2 < r*r
}

// shadowLightValid reports whether the current shadow light still passes
// the selection predicate and is still among the collected lights.
func (g *SceneGraph) shadowLightValid() bool {
	light := g.shadowLight
	if !slices.Contains(g.lights, light) {
		return false
	}
	return isShadowCandidate(light, light.SquareDistanceTo(g.activeCamera))
}

func (g *SceneGraph) updateShadowLight(dt float32) {
	if g.shadowLight != nil {
		// A closer candidate never replaces a shadow light that is still valid.
		if !g.shadowLightValid() {
			g.shadowActive = false
		}
		if g.shadowActive {
			g.shadowStrength = math32.Min(1, g.shadowStrength+ShadowFadeSpeed*dt)
		} else {
			g.shadowStrength = math32.Max(0, g.shadowStrength-ShadowFadeSpeed*dt)
			if g.shadowStrength == 0 {
				g.shadowLight = nil
			}
		}
	}
	if g.shadowLight != nil {
		return
	}
	g.closestLights = g.computeClosestLights(1, isShadowCandidate, g.closestLights[:0])
	if len(g.closestLights) > 0 {
		g.shadowLight = g.closestLights[0]
		g.shadowActive = true
	}
}

func (g *SceneGraph) updateFlareLights() {
	g.flareLights = g.computeClosestLights(MaxFlareLights, func(light *LightSceneNode, d2 float32) bool {
		if len(light.light.Flares) == 0 {
			return false
		}
		r := light.light.FlareRadius
		return d2 < r*r
	}, g.flareLights[:0])
}

func (g *SceneGraph) updateSounds() {
	cameraPos := g.activeCamera.Origin()

	distances := g.soundDistances[:0]
	for _, kv := range g.soundRoots.Order {
		sound := kv.Key
		sound.SetAudible(false)
		if !sound.IsEnabled() {
			continue
		}
		d2 := sound.SquareDistanceToPoint(cameraPos)
		if d2 > sound.maxDistance*sound.maxDistance {
			continue
		}
		distances = append(distances, soundDistance{sound, d2})
	}

	sort.SliceStable(distances, func(i, j int) bool {
		a, b := distances[i], distances[j]
		if a.sound.priority != b.sound.priority {
			return a.sound.priority < b.sound.priority
		}
		return a.distance2 < b.distance2
	})
	if len(distances) > MaxSoundCount {
		distances = distances[:MaxSoundCount]
	}
	for _, d := range distances {
		d.sound.SetAudible(true)
	}
	g.soundDistances = distances[:0]
}
