package asset

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"kotor-render/core"
	"kotor-render/graphics"
)

// Engine data rides in glTF "extras" objects:
//
//	node:      render, shadow, transparency, diffuse, lightmap, uvScroll,
//	           selfIllum, alpha, aabb, light{...}, emitter{...}
//	material:  surface (walkmesh material id)
//	animation: transition, events[{time, name}]
//	scene:     classification, animationScale

type lensFlareExtras struct {
	Texture  string     `json:"texture"`
	Color    [3]float32 `json:"color"`
	Position float32    `json:"position"`
	Size     float32    `json:"size"`
}

type lightExtras struct {
	Color       [3]float32        `json:"color"`
	Multiplier  *float32          `json:"multiplier"`
	Radius      float32           `json:"radius"`
	Directional bool              `json:"directional"`
	AmbientOnly bool              `json:"ambientOnly"`
	DynamicType int               `json:"dynamicType"`
	Shadow      bool              `json:"shadow"`
	FlareRadius float32           `json:"flareRadius"`
	Flares      []lensFlareExtras `json:"flares"`
}

type emitterExtras struct {
	Update         string        `json:"update"`
	Blend          string        `json:"blend"`
	Texture        string        `json:"texture"`
	Grid           [2]int        `json:"grid"`
	Frames         [2]int        `json:"frames"`
	FPS            float32       `json:"fps"`
	BirthRate      float32       `json:"birthRate"`
	LifeExpectancy float32       `json:"lifeExpectancy"`
	Velocity       float32       `json:"velocity"`
	RandomVelocity float32       `json:"randomVelocity"`
	Spread         float32       `json:"spread"`
	Mass           float32       `json:"mass"`
	Loop           bool          `json:"loop"`
	Color          [3][3]float32 `json:"color"` // start, mid, end
	Alpha          [3]float32    `json:"alpha"`
	Size           [3]float32    `json:"size"`
}

type nodeExtras struct {
	Render       *bool          `json:"render"`
	Shadow       bool           `json:"shadow"`
	Transparency int            `json:"transparency"`
	Diffuse      string         `json:"diffuse"`
	Lightmap     string         `json:"lightmap"`
	UVScroll     [2]float32     `json:"uvScroll"`
	SelfIllum    [3]float32     `json:"selfIllum"`
	Alpha        *float32       `json:"alpha"`
	AABB         bool           `json:"aabb"`
	Light        *lightExtras   `json:"light"`
	Emitter      *emitterExtras `json:"emitter"`
}

type materialExtras struct {
	Surface uint32 `json:"surface"`
}

type animationEventExtras struct {
	Time float32 `json:"time"`
	Name string  `json:"name"`
}

type animationExtras struct {
	Transition float32                `json:"transition"`
	Events     []animationEventExtras `json:"events"`
}

type sceneExtras struct {
	Classification string   `json:"classification"`
	AnimationScale *float32 `json:"animationScale"`
}

// decodeExtras re-decodes a glTF extras value into a typed struct. Missing
// extras leave out untouched.
func decodeExtras(extras any, out any) error {
	if extras == nil {
		return nil
	}
	data, err := json.Marshal(extras)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

var classifications = map[string]graphics.ModelClassification{
	"":          graphics.ClassificationOther,
	"other":     graphics.ClassificationOther,
	"effect":    graphics.ClassificationEffect,
	"tile":      graphics.ClassificationTile,
	"character": graphics.ClassificationCharacter,
	"door":      graphics.ClassificationDoor,
	"placeable": graphics.ClassificationPlaceable,
}

var emitterUpdates = map[string]graphics.EmitterUpdate{
	"":          graphics.EmitterFountain,
	"fountain":  graphics.EmitterFountain,
	"single":    graphics.EmitterSingle,
	"explosion": graphics.EmitterExplosion,
}

var emitterBlends = map[string]graphics.EmitterBlend{
	"":        graphics.EmitterBlendNormal,
	"normal":  graphics.EmitterBlendNormal,
	"punch":   graphics.EmitterBlendPunch,
	"lighten": graphics.EmitterBlendLighten,
}

// NewModels returns a provider of models read from .glb or .gltf files in dir.
func NewModels(dir string) *Provider[*graphics.Model] {
	return NewProvider("model", func(name string) (*graphics.Model, error) {
		path, err := Resolve(dir, name, ".glb", ".gltf")
		if err != nil {
			return nil, err
		}
		return LoadModel(name, path)
	})
}

// NewWalkmeshes returns a provider of walkmeshes read from glTF files in dir.
// Names ending in "_wok" are area walkmeshes.
func NewWalkmeshes(dir string) *Provider[*graphics.Walkmesh] {
	return NewProvider("walkmesh", func(name string) (*graphics.Walkmesh, error) {
		path, err := Resolve(dir, name, ".glb", ".gltf")
		if err != nil {
			return nil, err
		}
		return LoadWalkmesh(name, path, strings.HasSuffix(name, "_wok"))
	})
}

// ── Models ───────────────────────────────────────────────────────────────────

// LoadModel opens a glTF file and converts its default scene into a model
// whose root is called name. Node scale is not supported and is ignored.
func LoadModel(name, path string) (*graphics.Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	return ConvertModel(name, doc)
}

// ConvertModel converts a decoded glTF document into a model.
func ConvertModel(name string, doc *gltf.Document) (*graphics.Model, error) {
	names := nodeNames(doc)

	// ── 1. Meshes ─────────────────────────────────────────────────────────────
	meshes := make([]*graphics.Mesh, len(doc.Meshes))
	for i, gm := range doc.Meshes {
		meshName := gm.Name
		if meshName == "" {
			meshName = fmt.Sprintf("mesh_%d", i)
		}
		m, err := convertMesh(doc, meshName, gm)
		if err != nil {
			return nil, fmt.Errorf("%s: mesh %d: %w", name, i, err)
		}
		meshes[i] = m
	}

	// ── 2. Nodes ──────────────────────────────────────────────────────────────
	nodes := make([]*graphics.ModelNode, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		n, err := convertNode(doc, names[i], gn, meshes)
		if err != nil {
			return nil, fmt.Errorf("%s: node %q: %w", name, names[i], err)
		}
		nodes[i] = n
	}
	for i, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if c < 0 || c >= len(nodes) || nodes[c].Parent != nil {
				return nil, fmt.Errorf("%s: node %q: bad child %d: %w", name, names[i], c, core.ErrInvalidArgument)
			}
			nodes[i].AddChild(nodes[c])
		}
	}

	// ── 3. Root ───────────────────────────────────────────────────────────────
	root := graphics.NewModelNode(name)
	for _, i := range sceneRoots(doc) {
		root.AddChild(nodes[i])
	}

	// ── 4. Animations ─────────────────────────────────────────────────────────
	animations := make([]*graphics.Animation, 0, len(doc.Animations))
	for i, ga := range doc.Animations {
		anim, err := convertAnimation(doc, name, names, ga)
		if err != nil {
			return nil, fmt.Errorf("%s: animation %d: %w", name, i, err)
		}
		animations = append(animations, anim)
	}

	model := graphics.NewModel(name, root, animations...)
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		var extras sceneExtras
		if err := decodeExtras(doc.Scenes[*doc.Scene].Extras, &extras); err != nil {
			return nil, fmt.Errorf("%s: scene extras: %w", name, err)
		}
		class, ok := classifications[extras.Classification]
		if !ok {
			return nil, fmt.Errorf("%s: classification %q: %w", name, extras.Classification, core.ErrInvalidArgument)
		}
		model.Classification = class
		if extras.AnimationScale != nil {
			model.AnimationScale = *extras.AnimationScale
		}
	}
	return model, nil
}

func nodeNames(doc *gltf.Document) []string {
	names := make([]string, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		names[i] = gn.Name
		if names[i] == "" {
			names[i] = fmt.Sprintf("node_%d", i)
		}
	}
	return names
}

// sceneRoots returns the root nodes of the default scene, or every parentless
// node when the document has no default scene.
func sceneRoots(doc *gltf.Document) []int {
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		var roots []int
		for _, i := range doc.Scenes[*doc.Scene].Nodes {
			if i >= 0 && i < len(doc.Nodes) {
				roots = append(roots, i)
			}
		}
		return roots
	}
	hasParent := make([]bool, len(doc.Nodes))
	for _, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if c >= 0 && c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !hasParent[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func convertNode(doc *gltf.Document, name string, gn *gltf.Node, meshes []*graphics.Mesh) (*graphics.ModelNode, error) {
	n := graphics.NewModelNode(name)
	t := gn.TranslationOrDefault()
	n.Position = mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])}
	r := gn.RotationOrDefault() // [x, y, z, w]
	n.Orientation = mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}.Normalize()

	var extras nodeExtras
	if err := decodeExtras(gn.Extras, &extras); err != nil {
		return nil, fmt.Errorf("extras: %w", err)
	}

	if gn.Mesh != nil {
		if *gn.Mesh < 0 || *gn.Mesh >= len(meshes) {
			return nil, fmt.Errorf("mesh %d out of range: %w", *gn.Mesh, core.ErrInvalidArgument)
		}
		tm := &graphics.TriangleMesh{
			Mesh:           meshes[*gn.Mesh],
			Render:         extras.Render == nil || *extras.Render,
			Shadow:         extras.Shadow,
			Transparency:   extras.Transparency,
			Diffuse:        extras.Diffuse,
			Lightmap:       extras.Lightmap,
			UVScroll:       mgl32.Vec2(extras.UVScroll),
			SelfIllumColor: mgl32.Vec3(extras.SelfIllum),
			Alpha:          1,
		}
		if extras.Alpha != nil {
			tm.Alpha = *extras.Alpha
		}
		if tm.Diffuse == "" {
			tm.Diffuse = meshDiffuse(doc, doc.Meshes[*gn.Mesh])
		}
		if extras.AABB {
			n.AABBMesh = true
			tm.Render = false
		}
		n.Mesh = tm
	}
	if l := extras.Light; l != nil {
		light := &graphics.Light{
			Color:       mgl32.Vec3(l.Color),
			Multiplier:  1,
			Radius:      l.Radius,
			Directional: l.Directional,
			AmbientOnly: l.AmbientOnly,
			DynamicType: l.DynamicType,
			Shadow:      l.Shadow,
			FlareRadius: l.FlareRadius,
		}
		if l.Multiplier != nil {
			light.Multiplier = *l.Multiplier
		}
		for _, f := range l.Flares {
			light.Flares = append(light.Flares, graphics.LensFlare{
				Texture:  f.Texture,
				Color:    mgl32.Vec3(f.Color),
				Position: f.Position,
				Size:     f.Size,
			})
		}
		n.Light = light
	}
	if e := extras.Emitter; e != nil {
		update, ok := emitterUpdates[e.Update]
		if !ok {
			return nil, fmt.Errorf("emitter update %q: %w", e.Update, core.ErrInvalidArgument)
		}
		blend, ok := emitterBlends[e.Blend]
		if !ok {
			return nil, fmt.Errorf("emitter blend %q: %w", e.Blend, core.ErrInvalidArgument)
		}
		n.Emitter = &graphics.Emitter{
			Update:         update,
			Blend:          blend,
			Texture:        e.Texture,
			GridWidth:      max(e.Grid[0], 1),
			GridHeight:     max(e.Grid[1], 1),
			FrameStart:     e.Frames[0],
			FrameEnd:       e.Frames[1],
			FPS:            e.FPS,
			BirthRate:      e.BirthRate,
			LifeExpectancy: e.LifeExpectancy,
			Velocity:       e.Velocity,
			RandomVelocity: e.RandomVelocity,
			Spread:         e.Spread,
			Mass:           e.Mass,
			Loop:           e.Loop,
			ColorStart:     mgl32.Vec3(e.Color[0]),
			ColorMid:       mgl32.Vec3(e.Color[1]),
			ColorEnd:       mgl32.Vec3(e.Color[2]),
			AlphaStart:     e.Alpha[0],
			AlphaMid:       e.Alpha[1],
			AlphaEnd:       e.Alpha[2],
			SizeStart:      e.Size[0],
			SizeMid:        e.Size[1],
			SizeEnd:        e.Size[2],
		}
	}
	return n, nil
}

// meshDiffuse names the base colour image of the first textured primitive,
// without its extension.
func meshDiffuse(doc *gltf.Document, gm *gltf.Mesh) string {
	for _, prim := range gm.Primitives {
		if prim.Material == nil || *prim.Material >= len(doc.Materials) {
			continue
		}
		pbr := doc.Materials[*prim.Material].PBRMetallicRoughness
		if pbr == nil || pbr.BaseColorTexture == nil {
			continue
		}
		idx := pbr.BaseColorTexture.Index
		if idx >= len(doc.Textures) || doc.Textures[idx].Source == nil || *doc.Textures[idx].Source >= len(doc.Images) {
			continue
		}
		img := doc.Images[*doc.Textures[idx].Source]
		if img.Name != "" {
			return img.Name
		}
		if img.URI != "" && !img.IsEmbeddedResource() {
			base := filepath.Base(img.URI)
			return strings.TrimSuffix(base, filepath.Ext(base))
		}
	}
	return ""
}

// ── Meshes ───────────────────────────────────────────────────────────────────

// convertMesh merges every triangle primitive of a glTF mesh into one mesh.
// Face materials come from the "surface" extra of each primitive's material.
func convertMesh(doc *gltf.Document, name string, gm *gltf.Mesh) (*graphics.Mesh, error) {
	var vertices []core.Vertex
	var indices []uint32
	var materials []uint32
	for pi, prim := range gm.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			core.Logger().Warn("skipping non-triangle primitive", "mesh", name, "primitive", pi)
			continue
		}
		verts, idx, err := readPrimitive(doc, prim)
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", pi, err)
		}
		surface, err := primitiveSurface(doc, prim)
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", pi, err)
		}
		base := uint32(len(vertices))
		vertices = append(vertices, verts...)
		for _, i := range idx {
			indices = append(indices, base+i)
		}
		for range len(idx) / 3 {
			materials = append(materials, surface)
		}
	}
	m := graphics.NewMesh(name, vertices, indices)
	m.FaceMaterials = materials
	return m, nil
}

// readPrimitive converts one glTF primitive to vertices and triangle indices.
func readPrimitive(doc *gltf.Document, prim *gltf.Primitive) ([]core.Vertex, []uint32, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, nil, fmt.Errorf("no POSITION attribute: %w", core.ErrInvalidArgument)
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, nil, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	var uvs, lightmapUVs [][2]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return nil, nil, fmt.Errorf("normals: %w", err)
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return nil, nil, fmt.Errorf("uvs: %w", err)
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_1"]; ok {
		if lightmapUVs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return nil, nil, fmt.Errorf("lightmap uvs: %w", err)
		}
	}

	verts := make([]core.Vertex, len(positions))
	for i, p := range positions {
		v := core.Vertex{
			Position: mgl32.Vec3(p),
			Normal:   mgl32.Vec3{0, 0, 1},
			Color:    core.ColorWhite,
		}
		if i < len(normals) {
			v.Normal = mgl32.Vec3(normals[i])
		}
		if i < len(uvs) {
			v.UV = mgl32.Vec2(uvs[i])
		}
		if i < len(lightmapUVs) {
			v.LightmapUV = mgl32.Vec2(lightmapUVs[i])
		}
		verts[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
			return nil, nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(verts))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return nil, nil, fmt.Errorf("%d indices is not a triangle list: %w", len(indices), core.ErrInvalidArgument)
	}
	for _, i := range indices {
		if int(i) >= len(verts) {
			return nil, nil, fmt.Errorf("index %d out of range: %w", i, core.ErrInvalidArgument)
		}
	}
	return verts, indices, nil
}

func primitiveSurface(doc *gltf.Document, prim *gltf.Primitive) (uint32, error) {
	if prim.Material == nil || *prim.Material >= len(doc.Materials) {
		return 0, nil
	}
	var extras materialExtras
	if err := decodeExtras(doc.Materials[*prim.Material].Extras, &extras); err != nil {
		return 0, fmt.Errorf("material extras: %w", err)
	}
	return extras.Surface, nil
}

// ── Animations ───────────────────────────────────────────────────────────────

// convertAnimation builds a flat animation tree: one node per animated glTF
// node, named like the node it drives, under a root named after the model.
func convertAnimation(doc *gltf.Document, modelName string, names []string, ga *gltf.Animation) (*graphics.Animation, error) {
	var extras animationExtras
	if err := decodeExtras(ga.Extras, &extras); err != nil {
		return nil, fmt.Errorf("extras: %w", err)
	}
	anim := &graphics.Animation{
		Name:           ga.Name,
		TransitionTime: extras.Transition,
		Root:           graphics.NewModelNode(modelName),
	}
	for _, e := range extras.Events {
		anim.Events = append(anim.Events, graphics.AnimationEvent{Time: e.Time, Name: e.Name})
	}

	byNode := make(map[int]*graphics.ModelNode)
	for ci, ch := range ga.Channels {
		if ch.Target.Node == nil || *ch.Target.Node >= len(names) {
			continue
		}
		if ch.Sampler < 0 || ch.Sampler >= len(ga.Samplers) {
			return nil, fmt.Errorf("channel %d: sampler %d out of range: %w", ci, ch.Sampler, core.ErrInvalidArgument)
		}
		sampler := ga.Samplers[ch.Sampler]
		times, err := readFloats(doc, sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("channel %d input: %w", ci, err)
		}
		if len(times) > 0 && times[len(times)-1] > anim.Length {
			anim.Length = times[len(times)-1]
		}

		node, ok := byNode[*ch.Target.Node]
		if !ok {
			node = graphics.NewModelNode(names[*ch.Target.Node])
			anim.Root.AddChild(node)
			byNode[*ch.Target.Node] = node
		}

		output, err := modeler.ReadAccessor(doc, doc.Accessors[sampler.Output], nil)
		if err != nil {
			return nil, fmt.Errorf("channel %d output: %w", ci, err)
		}
		switch ch.Target.Path {
		case gltf.TRSTranslation:
			values, ok := output.([][3]float32)
			if !ok || len(values) < len(times) {
				return nil, fmt.Errorf("channel %d: translation output: %w", ci, core.ErrInvalidArgument)
			}
			for i, t := range times {
				node.Translations = append(node.Translations, graphics.TranslationKey{Time: t, Value: mgl32.Vec3(values[i])})
			}
		case gltf.TRSRotation:
			values, ok := output.([][4]float32)
			if !ok || len(values) < len(times) {
				return nil, fmt.Errorf("channel %d: rotation output: %w", ci, core.ErrInvalidArgument)
			}
			for i, t := range times {
				v := values[i]
				q := mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}.Normalize()
				node.Orientations = append(node.Orientations, graphics.OrientationKey{Time: t, Value: q})
			}
		case gltf.TRSScale:
			values, ok := output.([][3]float32)
			if !ok || len(values) < len(times) {
				return nil, fmt.Errorf("channel %d: scale output: %w", ci, core.ErrInvalidArgument)
			}
			for i, t := range times {
				node.Scales = append(node.Scales, graphics.ScaleKey{Time: t, Value: values[i][0]})
			}
		default:
			core.Logger().Debug("skipping animation channel", "animation", ga.Name, "path", ch.Target.Path)
		}
	}
	return anim, nil
}

func readFloats(doc *gltf.Document, accessor int) ([]float32, error) {
	if accessor < 0 || accessor >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range: %w", accessor, core.ErrInvalidArgument)
	}
	data, err := modeler.ReadAccessor(doc, doc.Accessors[accessor], nil)
	if err != nil {
		return nil, err
	}
	floats, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("accessor %d is %T, want []float32: %w", accessor, data, core.ErrInvalidArgument)
	}
	return floats, nil
}

// ── Walkmeshes ───────────────────────────────────────────────────────────────

// LoadWalkmesh collects the triangles of every mesh node of a glTF file,
// transformed into file space, into one walkmesh.
func LoadWalkmesh(name, path string, area bool) (*graphics.Walkmesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	return ConvertWalkmesh(name, doc, area)
}

func ConvertWalkmesh(name string, doc *gltf.Document, area bool) (*graphics.Walkmesh, error) {
	meshes := make([]*graphics.Mesh, len(doc.Meshes))
	for i, gm := range doc.Meshes {
		m, err := convertMesh(doc, gm.Name, gm)
		if err != nil {
			return nil, fmt.Errorf("%s: mesh %d: %w", name, i, err)
		}
		meshes[i] = m
	}

	var faces []graphics.Face
	var visit func(i int, parent mgl32.Mat4, depth int) error
	visit = func(i int, parent mgl32.Mat4, depth int) error {
		if i < 0 || i >= len(doc.Nodes) || depth > len(doc.Nodes) {
			return fmt.Errorf("%s: bad node %d: %w", name, i, core.ErrInvalidArgument)
		}
		gn := doc.Nodes[i]
		t := gn.TranslationOrDefault()
		r := gn.RotationOrDefault()
		q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}.Normalize()
		abs := parent.Mul4(mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2]))).Mul4(q.Mat4())
		if gn.Mesh != nil && *gn.Mesh < len(meshes) {
			m := meshes[*gn.Mesh]
			for f := range m.NumFaces() {
				corners := m.Face(f)
				for k := range corners {
					corners[k] = mgl32.TransformCoordinate(corners[k], abs)
				}
				faces = append(faces, graphics.Face{Material: m.FaceMaterial(f), Vertices: corners})
			}
		}
		for _, c := range gn.Children {
			if err := visit(c, abs, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, i := range sceneRoots(doc) {
		if err := visit(i, mgl32.Ident4(), 0); err != nil {
			return nil, err
		}
	}
	return graphics.NewWalkmesh(name, faces, area), nil
}
