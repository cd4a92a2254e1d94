package scene

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotor-render/core"
	"kotor-render/graphics"
)

func TestAddRootRejectsUnsupportedNodes(t *testing.T) {
	g, camera := newTestGraph()

	assert.ErrorIs(t, g.AddRoot(nil), core.ErrInvalidArgument)
	assert.ErrorIs(t, g.AddRoot(camera), core.ErrInvalidArgument)

	var model *ModelSceneNode
	assert.ErrorIs(t, g.AddRoot(model), core.ErrInvalidArgument)

	m, err := g.NewModel(meshModel("box", graphics.TriangleMesh{Render: true}), UsagePlaceable, nil)
	require.NoError(t, err)
	require.NoError(t, g.AddRoot(m))
	require.NoError(t, g.AddRoot(m))
	assert.Len(t, g.ModelRoots(), 1)

	_, err = g.NewModel(nil, UsagePlaceable, nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestCullingByDrawDistance(t *testing.T) {
	g, _ := newTestGraph()
	m := addModel(t, g, meshModel("box", graphics.TriangleMesh{Render: true}), UsagePlaceable, mgl32.Vec3{0, 0, -5})

	m.SetDrawDistance(3)
	g.Update(0)
	assert.True(t, m.IsCulled())
	assert.Empty(t, g.OpaqueMeshes())

	m.SetDrawDistance(10)
	g.Update(0)
	assert.False(t, m.IsCulled())
	assert.Len(t, g.OpaqueMeshes(), 1)
}

func TestCullingByFrustum(t *testing.T) {
	g, _ := newTestGraph()
	behind := addModel(t, g, meshModel("behind", graphics.TriangleMesh{Render: true}), UsagePlaceable, mgl32.Vec3{0, 0, 5})

	g.Update(0)
	assert.True(t, behind.IsCulled())

	behind.SetCullable(false)
	g.Update(0)
	assert.False(t, behind.IsCulled())

	behind.SetEnabled(false)
	g.Update(0)
	assert.True(t, behind.IsCulled())
}

func TestMeshClassification(t *testing.T) {
	g, _ := newTestGraph()
	at := mgl32.Vec3{0, 0, -5}
	addModel(t, g, meshModel("opaque", graphics.TriangleMesh{Render: true, Shadow: true}), UsagePlaceable, at)
	addModel(t, g, meshModel("glass", graphics.TriangleMesh{Render: true, Shadow: true, Transparency: 1}), UsagePlaceable, at)
	addModel(t, g, meshModel("caster", graphics.TriangleMesh{Shadow: true}), UsagePlaceable, at)
	addModel(t, g, meshModel("room", graphics.TriangleMesh{Render: true, Shadow: true}), UsageRoom, at)

	g.Update(0)

	names := func(meshes []*MeshSceneNode) []string {
		var out []string
		for _, m := range meshes {
			out = append(out, m.Name())
		}
		return out
	}
	assert.Equal(t, []string{"opaque_mesh", "room_mesh"}, names(g.OpaqueMeshes()))
	assert.Equal(t, []string{"glass_mesh"}, names(g.TransparentMeshes()))
	assert.Equal(t, []string{"opaque_mesh", "caster_mesh"}, names(g.ShadowMeshes()))
}

// ── Lighting ─────────────────────────────────────────────────────────────────

func TestActiveLightsAreBounded(t *testing.T) {
	g, _ := newTestGraph()
	var points []*LightSceneNode
	for i := 0; i < 20; i++ {
		_, l := addLight(t, g, fmt.Sprintf("point%02d", i),
			graphics.Light{Radius: 10, Multiplier: 1}, mgl32.Vec3{float32(i + 1), 0, 0})
		points = append(points, l)
	}
	_, sun := addLight(t, g, "sun",
		graphics.Light{Radius: 10, Multiplier: 1, Directional: true}, mgl32.Vec3{0, 0, 100})

	g.Update(0.1)

	active := g.ActiveLights()
	require.Len(t, active, MaxLights)
	assert.Same(t, sun, active[0], "directional lights come first")
	for i := 0; i < MaxLights-1; i++ {
		assert.Same(t, points[i], active[i+1])
	}
	for _, l := range points[MaxLights-1:] {
		assert.NotContains(t, active, l)
	}
}

func TestInactiveLightFadesOut(t *testing.T) {
	g, _ := newTestGraph()
	m, light := addLight(t, g, "lamp", graphics.Light{Radius: 2, Multiplier: 1}, mgl32.Vec3{1, 0, 0})

	g.Update(0.5)
	g.Update(0.5)
	require.Equal(t, []*LightSceneNode{light}, g.ActiveLights())
	assert.Equal(t, float32(1), light.Strength())

	m.SetPosition(mgl32.Vec3{1000, 0, 0})
	g.Update(0.25)
	require.Len(t, g.ActiveLights(), 1, "kept while fading out")
	assert.False(t, light.IsActive())

	g.Update(0.25)
	assert.Len(t, g.ActiveLights(), 1)
	assert.Equal(t, float32(0.5), light.Strength())

	g.Update(0.25)
	assert.Empty(t, g.ActiveLights())
	assert.Equal(t, float32(0), light.Strength())
}

func TestShadowLightHysteresis(t *testing.T) {
	g, _ := newTestGraph()
	ma, a := addLight(t, g, "a", graphics.Light{Radius: 10, Shadow: true}, mgl32.Vec3{1, 0, 0})
	_, b := addLight(t, g, "b", graphics.Light{Radius: 10, Shadow: true}, mgl32.Vec3{2, 0, 0})

	g.Update(0.5)
	shadow, ok := g.ShadowLight()
	require.True(t, ok)
	assert.Same(t, a, shadow)
	assert.True(t, g.IsShadowActive())
	assert.Equal(t, float32(0), g.ShadowStrength())

	g.Update(0.5)
	assert.Equal(t, float32(1), g.ShadowStrength())

	ma.SetPosition(mgl32.Vec3{50, 0, 0})
	g.Update(0.25)
	shadow, ok = g.ShadowLight()
	require.True(t, ok)
	assert.Same(t, a, shadow, "kept until faded out")
	assert.False(t, g.IsShadowActive())
	assert.Equal(t, float32(0.5), g.ShadowStrength())

	g.Update(0.25)
	shadow, ok = g.ShadowLight()
	require.True(t, ok)
	assert.Same(t, b, shadow)
	assert.True(t, g.IsShadowActive())
	assert.Equal(t, float32(0), g.ShadowStrength())
}

func TestShadowLightKeptWhenCloserCandidateAppears(t *testing.T) {
	g, _ := newTestGraph()
	ma, a := addLight(t, g, "a", graphics.Light{Radius: 10, Shadow: true}, mgl32.Vec3{5, 0, 0})

	g.Update(0.5)
	g.Update(0.5)
	require.Equal(t, float32(1), g.ShadowStrength())

	_, b := addLight(t, g, "b", graphics.Light{Radius: 10, Shadow: true}, mgl32.Vec3{1, 0, 0})
	for i := 0; i < 3; i++ {
		g.Update(0.25)
		shadow, ok := g.ShadowLight()
		require.True(t, ok)
		assert.Same(t, a, shadow, "frame %d", i)
		assert.True(t, g.IsShadowActive())
		assert.Equal(t, float32(1), g.ShadowStrength())
	}

	ma.SetPosition(mgl32.Vec3{50, 0, 0})
	g.Update(0.25)
	shadow, _ := g.ShadowLight()
	assert.Same(t, a, shadow, "fading out")
	assert.False(t, g.IsShadowActive())

	g.Update(0.25)
	shadow, ok := g.ShadowLight()
	require.True(t, ok)
	assert.Same(t, b, shadow)
	assert.True(t, g.IsShadowActive())
}

func TestFadingLightReactivatedWhenSelectedAgain(t *testing.T) {
	g, _ := newTestGraph()
	m, light := addLight(t, g, "lamp", graphics.Light{Radius: 2, Multiplier: 1}, mgl32.Vec3{1, 0, 0})

	g.Update(0.5)
	g.Update(0.5)
	require.Equal(t, float32(1), light.Strength())

	m.SetPosition(mgl32.Vec3{1000, 0, 0})
	g.Update(0.25)
	g.Update(0.25)
	require.False(t, light.IsActive())
	require.Equal(t, float32(0.5), light.Strength())

	m.SetPosition(mgl32.Vec3{1, 0, 0})
	g.Update(0.1)
	assert.True(t, light.IsActive(), "selected again before fading out")
	assert.Equal(t, []*LightSceneNode{light}, g.ActiveLights())
	assert.InDelta(t, 0.3, light.Strength(), 1e-6)

	g.Update(0.5)
	assert.Equal(t, float32(1), light.Strength())
	assert.Equal(t, []*LightSceneNode{light}, g.ActiveLights())
}

func TestRemoveRootEvictsLights(t *testing.T) {
	g, _ := newTestGraph()
	m, light := addLight(t, g, "torch", graphics.Light{
		Radius:      10,
		Shadow:      true,
		FlareRadius: 10,
		Flares:      []graphics.LensFlare{{Texture: "flare", Size: 1}},
	}, mgl32.Vec3{1, 0, 0})

	g.Update(0.5)
	require.Contains(t, g.ActiveLights(), light)
	require.Contains(t, g.FlareLights(), light)
	_, ok := g.ShadowLight()
	require.True(t, ok)

	g.RemoveRoot(m)
	assert.Empty(t, g.ActiveLights())
	assert.Empty(t, g.FlareLights())
	_, ok = g.ShadowLight()
	assert.False(t, ok)
	assert.Equal(t, float32(0), g.ShadowStrength())
}

func TestFillLightingUniforms(t *testing.T) {
	g, _ := newTestGraph()
	addLight(t, g, "sun", graphics.Light{
		Color: mgl32.Vec3{1, 0.5, 0.25}, Multiplier: 2, Radius: 10, Directional: true,
	}, mgl32.Vec3{0, 0, 5})
	addLight(t, g, "lamp", graphics.Light{Multiplier: 1, Radius: 4, DynamicType: 1}, mgl32.Vec3{2, 0, 0})
	g.SetFog(Fog{Enabled: true, Near: 1, Far: 50, Color: mgl32.Vec3{0.5, 0.5, 0.5}})

	g.Update(0.5)
	g.Update(0.5)

	var u LightingUniforms
	g.FillLightingUniforms(&u)
	require.Equal(t, 2, u.NumLights)
	assert.Equal(t, mgl32.Vec4{0, 0, 5, 0}, u.Lights[0].Position)
	assert.Equal(t, mgl32.Vec4{1, 0.5, 0.25, 1}, u.Lights[0].Color)
	assert.InDelta(t, 2, u.Lights[0].Multiplier, eps)
	assert.Equal(t, mgl32.Vec4{2, 0, 0, 1}, u.Lights[1].Position)
	assert.Equal(t, 1, u.Lights[1].DynamicType)
	assert.Equal(t, mgl32.Vec3{0.2, 0.2, 0.2}, u.AmbientColor)
	assert.True(t, u.FogEnabled)
	assert.Equal(t, float32(50), u.FogFar)
}

// ── Sounds ───────────────────────────────────────────────────────────────────

func TestAudibleSoundsAreBounded(t *testing.T) {
	audio := &fakeAudio{}
	g, _ := newTestGraph(WithAudioPlayer(audio))

	var sounds []*SoundSceneNode
	for i := 0; i < 6; i++ {
		s, err := g.NewSound(fmt.Sprintf("s%d", i))
		require.NoError(t, err)
		s.SetPosition(mgl32.Vec3{float32(i), 0, 0})
		s.Play(fmt.Sprintf("sound%d", i), 1, true, true)
		require.NoError(t, g.AddRoot(s))
		sounds = append(sounds, s)
	}
	// The nearest sound has the lowest precedence.
	sounds[0].SetPriority(1)

	g.Update(0.1)
	assert.Empty(t, audio.sources, "sounds start on the frame after they become audible")
	for i, s := range sounds {
		assert.Equal(t, i >= 1 && i <= 4, s.IsAudible(), "sound %d", i)
	}

	g.Update(0.1)
	assert.Equal(t, []string{"sound1", "sound2", "sound3", "sound4"}, audio.played())
	assert.Equal(t, mgl32.Vec3{2, 0, 0}, audio.sources[1].position)

	g.RemoveRoot(sounds[1])
	assert.True(t, audio.sources[0].stopped)
}

func TestNewSoundRequiresPlayer(t *testing.T) {
	g, _ := newTestGraph()
	_, err := g.NewSound("ambient")
	assert.ErrorIs(t, err, core.ErrLogic)
}

// ── Leafs ────────────────────────────────────────────────────────────────────

func TestGrassBucketsAreCapped(t *testing.T) {
	g, _ := newTestGraph()
	grass, err := g.NewGrass(GrassProperties{
		Density:       200,
		QuadSize:      0.5,
		Probabilities: mgl32.Vec4{0.25, 0.25, 0.25, 0.25},
		Materials:     graphics.NewMaterialSet(3),
		Texture:       "grass",
	}, grassPatch(3))
	require.NoError(t, err)
	require.NoError(t, g.AddRoot(grass))

	g.Update(0)
	require.Equal(t, 800, grass.NumClusters())

	buckets := g.OpaqueLeafs()
	require.Len(t, buckets, 4)
	total := 0
	for _, b := range buckets {
		assert.Same(t, grass, b.Parent)
		assert.LessOrEqual(t, len(b.Leafs), MaxGrassClusters)
		total += len(b.Leafs)
	}
	assert.Equal(t, 800, total)

	p := &recordingPainter{}
	g.DrawOpaque(p)
	assert.Equal(t, []int{256, 256, 256, 32}, p.batches)
}

func TestGrassDematerialisesOutOfRange(t *testing.T) {
	g, camera := newTestGraph()
	grass, err := g.NewGrass(GrassProperties{
		Density:   10,
		QuadSize:  0.5,
		Materials: graphics.NewMaterialSet(3),
	}, grassPatch(3))
	require.NoError(t, err)
	require.NoError(t, g.AddRoot(grass))

	g.Update(0)
	first := grass.NumClusters()
	require.Equal(t, 40, first)

	camera.SetPosition(mgl32.Vec3{100, 0, 0})
	g.Update(0)
	assert.Equal(t, 0, grass.NumClusters())

	camera.SetPosition(mgl32.Vec3{})
	g.Update(0)
	assert.Equal(t, first, grass.NumClusters(), "materialisation is deterministic")
}

func TestParticleBucketsAreCapped(t *testing.T) {
	g, _ := newTestGraph()
	root := graphics.NewModelNode("fx")
	root.Emitter = &graphics.Emitter{
		Update:    graphics.EmitterFountain,
		BirthRate: 100,
		Texture:   "spark",
		SizeStart: 1, SizeMid: 1, SizeEnd: 1,
		AlphaStart: 1, AlphaMid: 1, AlphaEnd: 1,
	}
	addModel(t, g, graphics.NewModel("fx", root), UsagePlaceable, mgl32.Vec3{0, 0, -10})

	g.Update(1)

	require.Len(t, g.Emitters(), 1)
	emitter := g.Emitters()[0]
	buckets := g.TransparentLeafs()
	require.Len(t, buckets, 2)
	assert.Same(t, emitter, buckets[0].Parent)
	assert.Len(t, buckets[0].Leafs, MaxParticles)
	assert.Len(t, buckets[1].Leafs, 36)

	p := &recordingPainter{}
	g.DrawTransparent(p)
	assert.Equal(t, []int{64, 36}, p.batches)
}

func TestTransparentMeshesBucketPerModel(t *testing.T) {
	g, _ := newTestGraph()
	a := addModel(t, g, meshModel("a", graphics.TriangleMesh{Render: true, Transparency: 1}), UsagePlaceable, mgl32.Vec3{0, 0, -5})
	b := addModel(t, g, meshModel("b", graphics.TriangleMesh{Render: true}), UsagePlaceable, mgl32.Vec3{1, 0, -5})
	b.SetAlpha(0.5)

	g.Update(0)

	buckets := g.TransparentLeafs()
	require.Len(t, buckets, 2)
	assert.Same(t, a, buckets[0].Parent)
	assert.Same(t, b, buckets[1].Parent)

	p := &recordingPainter{}
	g.DrawTransparent(p)
	require.Len(t, p.meshes, 2)
	assert.InDelta(t, 0.5, p.meshes[1].Alpha, eps)
	assert.True(t, p.meshes[1].Transparent)
}

// ── Drawing ──────────────────────────────────────────────────────────────────

func TestDrawModes(t *testing.T) {
	surfaces := graphics.Surfaces{Walkable: graphics.NewMaterialSet(1)}
	g, _ := newTestGraph(WithSurfaces(surfaces))
	addModel(t, g, meshModel("box", graphics.TriangleMesh{Render: true, Shadow: true}), UsageCreature, mgl32.Vec3{0, 0, -5})
	addWalkmesh(t, g, floor(0, 1), nil)
	trigger, err := g.NewTrigger("exit", []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}})
	require.NoError(t, err)
	require.NoError(t, g.AddRoot(trigger))

	g.Update(0)

	p := &recordingPainter{}
	g.DrawShadows(p)
	g.DrawOpaque(p)
	assert.Equal(t, []CullFaceMode{CullFaceFront}, p.culling)
	assert.Equal(t, 1, p.shadowMeshes)
	assert.Len(t, p.meshes, 1)
	assert.Zero(t, p.walkmeshes)
	assert.Zero(t, p.triggers)

	g.SetDrawWalkmeshes(true)
	g.SetDrawTriggers(true)
	p = &recordingPainter{}
	g.DrawOpaque(p)
	g.DrawTransparent(p)
	assert.Empty(t, p.meshes)
	assert.Equal(t, 1, p.walkmeshes)
	assert.Equal(t, 1, p.triggers)
	assert.Equal(t, walkableColor, p.materials[1])
	assert.Equal(t, nonWalkableColor, p.materials[2])
	assert.Equal(t, triggerColor, p.materials[MaxWalkmeshMaterials-1])
}

func TestDrawingWithoutCameraIsNoop(t *testing.T) {
	g := NewSceneGraph("empty")
	m, err := g.NewModel(meshModel("box", graphics.TriangleMesh{Render: true}), UsagePlaceable, nil)
	require.NoError(t, err)
	require.NoError(t, g.AddRoot(m))

	g.Update(0.1)
	p := &recordingPainter{}
	g.DrawShadows(p)
	g.DrawOpaque(p)
	g.DrawTransparent(p)
	g.DrawLensFlares(p)
	assert.Empty(t, p.meshes)
	assert.Empty(t, p.culling)
}

func TestLensFlaresRespectLineOfSight(t *testing.T) {
	surfaces := graphics.Surfaces{LineOfSight: graphics.NewMaterialSet(2)}
	g, _ := newTestGraph(WithSurfaces(surfaces))
	position := mgl32.Vec3{0.5, 1.5, -5}
	addLight(t, g, "lamp", graphics.Light{
		Radius:      5,
		FlareRadius: 10,
		Flares:      []graphics.LensFlare{{Texture: "flare", Size: 1}},
	}, position)

	g.Update(0)
	p := &recordingPainter{}
	g.DrawLensFlares(p)
	require.Len(t, p.flares, 1)
	assert.InDelta(t, 0, p.flares[0].Sub(position).Len(), eps)
	assert.Equal(t, []DepthTestMode{DepthTestNone}, p.depthTests)

	addWalkmesh(t, g, wallZ(-2, 2), nil)
	g.Update(0)
	p = &recordingPainter{}
	g.DrawLensFlares(p)
	assert.Empty(t, p.flares)
}

func TestClear(t *testing.T) {
	audio := &fakeAudio{}
	g, _ := newTestGraph(WithAudioPlayer(audio))
	addLight(t, g, "lamp", graphics.Light{Radius: 10, Shadow: true}, mgl32.Vec3{1, 0, 0})
	addWalkmesh(t, g, floor(0, 1), nil)

	g.Update(0.1)
	require.NotEmpty(t, g.ActiveLights())

	g.Clear()
	assert.Empty(t, g.ModelRoots())
	assert.Empty(t, g.WalkmeshRoots())
	assert.Empty(t, g.ActiveLights())
	_, ok := g.ShadowLight()
	assert.False(t, ok)
}
