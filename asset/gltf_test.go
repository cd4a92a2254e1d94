package asset

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotor-render/core"
	"kotor-render/graphics"
)

// crateDocument is a placeable with a triangle floor mesh, a lamp and a
// one second "slide" animation on the floor node.
func crateDocument() *gltf.Document {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	times := modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 1})
	values := modeler.WriteAccessor(doc, gltf.TargetNone, [][3]float32{{0, 0, 1}, {2, 0, 1}})

	doc.Materials = []*gltf.Material{{Name: "grass", Extras: map[string]any{"surface": 3}}}
	prim := &gltf.Primitive{Indices: gltf.Index(idx), Material: gltf.Index(0)}
	prim.Attributes = map[string]int{"POSITION": pos}
	doc.Meshes = []*gltf.Mesh{{Name: "floor", Primitives: []*gltf.Primitive{prim}}}

	doc.Nodes = []*gltf.Node{
		{Name: "body", Children: []int{1, 2}},
		{
			Name:        "floor",
			Mesh:        gltf.Index(0),
			Translation: [3]float64{0, 0, 1},
			Extras:      map[string]any{"shadow": true, "diffuse": "crate01"},
		},
		{
			Name:        "lamp",
			Translation: [3]float64{0, 0, 2},
			Extras: map[string]any{"light": map[string]any{
				"color":  []float64{1, 0.5, 0},
				"radius": 5,
				"flares": []any{map[string]any{"texture": "flare01", "size": 2}},
			}},
		},
	}
	doc.Scene = gltf.Index(0)
	doc.Scenes = []*gltf.Scene{{
		Nodes:  []int{0},
		Extras: map[string]any{"classification": "placeable"},
	}}
	doc.Animations = []*gltf.Animation{{
		Name: "slide",
		Extras: map[string]any{
			"transition": 0.25,
			"events":     []any{map[string]any{"time": 0.5, "name": "hit"}},
		},
		Samplers: []*gltf.AnimationSampler{{Input: times, Output: values}},
		Channels: []*gltf.AnimationChannel{{
			Sampler: 0,
			Target:  gltf.AnimationChannelTarget{Node: gltf.Index(1), Path: gltf.TRSTranslation},
		}},
	}}
	return doc
}

func TestConvertModel(t *testing.T) {
	model, err := ConvertModel("crate", crateDocument())
	require.NoError(t, err)

	assert.Equal(t, "crate", model.Root.Name)
	assert.Equal(t, graphics.ClassificationPlaceable, model.Classification)
	assert.Len(t, model.Nodes(), 4)

	floor, ok := model.Node("floor")
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, floor.Position)
	require.NotNil(t, floor.Mesh)
	assert.True(t, floor.Mesh.Render)
	assert.True(t, floor.Mesh.Shadow)
	assert.Equal(t, "crate01", floor.Mesh.Diffuse)
	assert.Equal(t, float32(1), floor.Mesh.Alpha)
	assert.Equal(t, 1, floor.Mesh.Mesh.NumFaces())
	assert.Equal(t, uint32(3), floor.Mesh.Mesh.FaceMaterial(0))

	lamp, ok := model.Node("lamp")
	require.True(t, ok)
	require.NotNil(t, lamp.Light)
	assert.Equal(t, mgl32.Vec3{1, 0.5, 0}, lamp.Light.Color)
	assert.Equal(t, float32(1), lamp.Light.Multiplier, "default multiplier")
	assert.Equal(t, float32(5), lamp.Light.Radius)
	require.Len(t, lamp.Light.Flares, 1)
	assert.Equal(t, "flare01", lamp.Light.Flares[0].Texture)

	box := model.AABB()
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, box.Min)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, box.Max)
}

func TestConvertModelAnimation(t *testing.T) {
	model, err := ConvertModel("crate", crateDocument())
	require.NoError(t, err)
	assert.Equal(t, []string{"slide"}, model.AnimationNames())

	anim, ok := model.Animation("slide")
	require.True(t, ok)
	assert.Equal(t, float32(1), anim.Length)
	assert.Equal(t, float32(0.25), anim.TransitionTime)
	assert.Equal(t, []graphics.AnimationEvent{{Time: 0.5, Name: "hit"}}, anim.Events)
	assert.Equal(t, "crate", anim.Root.Name)

	require.Len(t, anim.Root.Children, 1)
	floor := anim.Root.Children[0]
	assert.Equal(t, "floor", floor.Name)
	v, ok := floor.TranslationAt(0.5, 1)
	require.True(t, ok)
	assert.InDelta(t, 1, v[0], 1e-6)
	assert.InDelta(t, 1, v[2], 1e-6)
}

func TestConvertModelAABBNode(t *testing.T) {
	doc := crateDocument()
	doc.Nodes[1].Extras = map[string]any{"aabb": true}
	model, err := ConvertModel("crate", doc)
	require.NoError(t, err)

	node, ok := model.AABBNode()
	require.True(t, ok)
	assert.Equal(t, "floor", node.Name)
	assert.False(t, node.Mesh.Render)
}

func TestConvertModelErrors(t *testing.T) {
	doc := crateDocument()
	doc.Scenes[0].Extras = map[string]any{"classification": "spaceship"}
	_, err := ConvertModel("crate", doc)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	doc = crateDocument()
	doc.Nodes[2].Children = []int{1}
	_, err = ConvertModel("crate", doc)
	assert.ErrorIs(t, err, core.ErrInvalidArgument, "node with two parents")

	doc = crateDocument()
	doc.Nodes[2].Extras = map[string]any{"emitter": map[string]any{"update": "sideways"}}
	_, err = ConvertModel("crate", doc)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestConvertModelEmitter(t *testing.T) {
	doc := crateDocument()
	doc.Nodes[2].Extras = map[string]any{"emitter": map[string]any{
		"update":    "single",
		"blend":     "lighten",
		"texture":   "fx_spark",
		"birthRate": 10,
		"size":      []float64{1, 0.5, 0},
	}}
	model, err := ConvertModel("crate", doc)
	require.NoError(t, err)

	lamp, _ := model.Node("lamp")
	require.NotNil(t, lamp.Emitter)
	assert.Equal(t, graphics.EmitterSingle, lamp.Emitter.Update)
	assert.Equal(t, graphics.EmitterBlendLighten, lamp.Emitter.Blend)
	assert.Equal(t, 1, lamp.Emitter.GridWidth)
	assert.Equal(t, float32(10), lamp.Emitter.BirthRate)
	assert.Equal(t, float32(0.5), lamp.Emitter.SizeMid)
}

func TestConvertWalkmesh(t *testing.T) {
	w, err := ConvertWalkmesh("crate_pwk", crateDocument(), false)
	require.NoError(t, err)
	assert.False(t, w.IsAreaWalkmesh())
	require.Len(t, w.Faces, 1)

	f := w.Faces[0]
	assert.Equal(t, uint32(3), f.Material)
	assert.Equal(t, mgl32.Vec3{1, 0, 1}, f.Vertices[1], "placed by the node transform")
	assert.InDelta(t, 1, f.Normal[2], 1e-6)

	_, dist, ok := w.Raycast(graphics.NewMaterialSet(3), mgl32.Vec3{0.2, 0.2, 5}, mgl32.Vec3{0, 0, -1}, 10)
	require.True(t, ok)
	assert.InDelta(t, 4, dist, 1e-5)
}
