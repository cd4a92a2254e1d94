package asset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/core"
	"kotor-render/graphics"
	"kotor-render/scene"
)

// LayoutVersion is written into new layout files.
const LayoutVersion = "1.0"

// Layout is the JSON description of an area: rooms with their walkmeshes,
// placed objects, standalone lights, sounds and triggers.
type Layout struct {
	Version  string        `json:"version"`
	Name     string        `json:"name"`
	Camera   CameraData    `json:"camera"`
	Ambient  [3]float32    `json:"ambient"`
	Fog      *FogData      `json:"fog,omitempty"`
	Rooms    []RoomData    `json:"rooms"`
	Objects  []ObjectData  `json:"objects,omitempty"`
	Lights   []LightData   `json:"lights,omitempty"`
	Sounds   []SoundData   `json:"sounds,omitempty"`
	Triggers []TriggerData `json:"triggers,omitempty"`
}

type CameraData struct {
	Position [3]float32 `json:"position"`
	Target   [3]float32 `json:"target"`
	FOV      float32    `json:"fov"` // degrees
	Near     float32    `json:"near"`
	Far      float32    `json:"far"`
}

type FogData struct {
	Near  float32    `json:"near"`
	Far   float32    `json:"far"`
	Color [3]float32 `json:"color"`
}

// GrassData grows grass on the grass faces of a room's AABB mesh.
type GrassData struct {
	Texture       string     `json:"texture"`
	Density       float32    `json:"density"`
	QuadSize      float32    `json:"quad_size"`
	Probabilities [4]float32 `json:"probabilities"`
}

type RoomData struct {
	Model    string     `json:"model"`
	Walkmesh string     `json:"walkmesh,omitempty"`
	Position [3]float32 `json:"position"`
	Grass    *GrassData `json:"grass,omitempty"`
}

// ObjectData places a creature, placeable or door.
type ObjectData struct {
	Name      string     `json:"name"`
	Model     string     `json:"model"`
	Usage     string     `json:"usage"` // "creature", "placeable" or "door"
	Walkmesh  string     `json:"walkmesh,omitempty"`
	Position  [3]float32 `json:"position"`
	Rotation  [4]float32 `json:"rotation"` // quaternion (x, y, z, w)
	Animation string     `json:"animation,omitempty"`
	Loop      bool       `json:"loop,omitempty"`
}

type LightData struct {
	Name        string     `json:"name"`
	Position    [3]float32 `json:"position"`
	Color       [3]float32 `json:"color"`
	Multiplier  float32    `json:"multiplier"`
	Radius      float32    `json:"radius"`
	Directional bool       `json:"directional,omitempty"`
	Shadow      bool       `json:"shadow,omitempty"`
}

type SoundData struct {
	Name        string     `json:"name"`
	Sound       string     `json:"sound"`
	Position    [3]float32 `json:"position"`
	Gain        float32    `json:"gain"`
	Priority    int        `json:"priority"`
	MaxDistance float32    `json:"max_distance"`
	Loop        bool       `json:"loop"`
	Positional  bool       `json:"positional"`
}

type TriggerData struct {
	Name     string       `json:"name"`
	Position [3]float32   `json:"position"`
	Geometry [][3]float32 `json:"geometry"`
}

var objectUsages = map[string]scene.ModelUsage{
	"creature":  scene.UsageCreature,
	"placeable": scene.UsagePlaceable,
	"door":      scene.UsageDoor,
}

// SaveLayout serializes a layout to a JSON file.
func SaveLayout(path string, layout *Layout) error {
	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal layout: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadLayout deserializes a layout file. Unknown fields are rejected.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout: %w", err)
	}
	return ParseLayout(data)
}

func ParseLayout(data []byte) (*Layout, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	layout := &Layout{}
	if err := dec.Decode(layout); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	return layout, nil
}

// NewDefaultLayout returns an empty layout with the camera looking at the
// origin from above.
func NewDefaultLayout(name string) *Layout {
	return &Layout{
		Version: LayoutVersion,
		Name:    name,
		Camera: CameraData{
			Position: [3]float32{0, -8, 6},
			FOV:      55,
			Near:     0.1,
			Far:      10000,
		},
		Ambient: [3]float32{0.2, 0.2, 0.2},
	}
}

// ── Building ─────────────────────────────────────────────────────────────────

// Getter is the read side of a Provider.
type Getter[T any] interface {
	Get(name string) (T, bool)
}

// Area holds the nodes a layout created.
type Area struct {
	Camera   *scene.CameraSceneNode
	Rooms    []*scene.ModelSceneNode
	Objects  []*scene.ModelSceneNode
	Lights   []*scene.ModelSceneNode
	Sounds   []*scene.SoundSceneNode
	Triggers []*scene.TriggerSceneNode
}

// Build instantiates the layout into g and makes its camera active. Missing
// models are errors; a missing sound player only skips the sounds.
func (l *Layout) Build(g *scene.SceneGraph, models Getter[*graphics.Model], walkmeshes Getter[*graphics.Walkmesh]) (*Area, error) {
	area := &Area{}
	g.SetAmbientColor(mgl32.Vec3(l.Ambient))
	if l.Fog != nil {
		g.SetFog(scene.Fog{Enabled: true, Near: l.Fog.Near, Far: l.Fog.Far, Color: mgl32.Vec3(l.Fog.Color)})
	}

	for _, room := range l.Rooms {
		m, err := l.addModel(g, models, room.Model, scene.UsageRoom, room.Position, [4]float32{})
		if err != nil {
			return nil, err
		}
		area.Rooms = append(area.Rooms, m)
		if err := addWalkmesh(g, walkmeshes, room.Walkmesh, room.Model, room.Position, [4]float32{}); err != nil {
			return nil, err
		}
		if room.Grass != nil {
			if err := addGrass(g, m, room.Grass); err != nil {
				return nil, fmt.Errorf("room %q: %w", room.Model, err)
			}
		}
	}

	for _, obj := range l.Objects {
		usage, ok := objectUsages[obj.Usage]
		if !ok {
			return nil, fmt.Errorf("object %q: usage %q: %w", obj.Name, obj.Usage, core.ErrInvalidArgument)
		}
		m, err := l.addModel(g, models, obj.Model, usage, obj.Position, obj.Rotation)
		if err != nil {
			return nil, err
		}
		if err := m.SetUser(obj.Name); err != nil {
			return nil, err
		}
		if obj.Animation != "" {
			var props scene.AnimationProperties
			if obj.Loop {
				props.Flags = scene.AnimationLoop
			}
			if err := m.PlayAnimationByName(obj.Animation, props); err != nil {
				return nil, fmt.Errorf("object %q: %w", obj.Name, err)
			}
		}
		area.Objects = append(area.Objects, m)
		if err := addWalkmesh(g, walkmeshes, obj.Walkmesh, obj.Name, obj.Position, obj.Rotation); err != nil {
			return nil, err
		}
	}

	for _, ld := range l.Lights {
		light := graphics.Light{
			Color:       mgl32.Vec3(ld.Color),
			Multiplier:  ld.Multiplier,
			Radius:      ld.Radius,
			Directional: ld.Directional,
			Shadow:      ld.Shadow,
		}
		m, err := g.NewModel(graphics.NewLightModel(ld.Name, light), scene.UsageTemporary, nil)
		if err != nil {
			return nil, err
		}
		m.SetCullable(false)
		m.SetPosition(mgl32.Vec3(ld.Position))
		if err := g.AddRoot(m); err != nil {
			return nil, err
		}
		area.Lights = append(area.Lights, m)
	}

	for _, sd := range l.Sounds {
		s, err := g.NewSound(sd.Name)
		if err != nil {
			core.Logger().Warn("skipping sound", "name", sd.Name, "err", err)
			continue
		}
		s.SetPosition(mgl32.Vec3(sd.Position))
		s.SetPriority(sd.Priority)
		if sd.MaxDistance > 0 {
			s.SetMaxDistance(sd.MaxDistance)
		}
		gain := sd.Gain
		if gain == 0 {
			gain = 1
		}
		s.Play(sd.Sound, gain, sd.Loop, sd.Positional)
		if err := g.AddRoot(s); err != nil {
			return nil, err
		}
		area.Sounds = append(area.Sounds, s)
	}

	for _, td := range l.Triggers {
		geometry := make([]mgl32.Vec3, len(td.Geometry))
		for i, v := range td.Geometry {
			geometry[i] = mgl32.Vec3(v)
		}
		t, err := g.NewTrigger(td.Name, geometry)
		if err != nil {
			return nil, err
		}
		t.SetPosition(mgl32.Vec3(td.Position))
		if err := t.SetUser(td.Name); err != nil {
			return nil, err
		}
		if err := g.AddRoot(t); err != nil {
			return nil, err
		}
		area.Triggers = append(area.Triggers, t)
	}

	area.Camera = l.newCamera(g)
	g.SetActiveCamera(area.Camera)
	return area, nil
}

func (l *Layout) addModel(g *scene.SceneGraph, models Getter[*graphics.Model], name string, usage scene.ModelUsage, position [3]float32, rotation [4]float32) (*scene.ModelSceneNode, error) {
	model, ok := models.Get(name)
	if !ok {
		return nil, fmt.Errorf("layout %q: model %q not found: %w", l.Name, name, core.ErrInvalidArgument)
	}
	m, err := g.NewModel(model, usage, nil)
	if err != nil {
		return nil, err
	}
	m.SetLocalTransform(placement(position, rotation))
	if err := g.AddRoot(m); err != nil {
		return nil, err
	}
	return m, nil
}

func addWalkmesh(g *scene.SceneGraph, walkmeshes Getter[*graphics.Walkmesh], name string, user any, position [3]float32, rotation [4]float32) error {
	if name == "" {
		return nil
	}
	wm, ok := walkmeshes.Get(name)
	if !ok {
		return fmt.Errorf("walkmesh %q not found: %w", name, core.ErrInvalidArgument)
	}
	node, err := g.NewWalkmesh(wm)
	if err != nil {
		return err
	}
	if err := node.SetUser(user); err != nil {
		return err
	}
	node.SetLocalTransform(placement(position, rotation))
	return g.AddRoot(node)
}

func addGrass(g *scene.SceneGraph, room *scene.ModelSceneNode, data *GrassData) error {
	aabb, ok := room.Model().AABBNode()
	if !ok {
		return fmt.Errorf("grass needs an AABB mesh: %w", core.ErrInvalidArgument)
	}
	grass, err := g.NewGrass(scene.GrassProperties{
		Density:       data.Density,
		QuadSize:      data.QuadSize,
		Probabilities: mgl32.Vec4(data.Probabilities),
		Materials:     g.Surfaces().Grass,
		Texture:       data.Texture,
	}, aabb)
	if err != nil {
		return err
	}
	grass.SetLocalTransform(room.LocalTransform())
	return g.AddRoot(grass)
}

func (l *Layout) newCamera(g *scene.SceneGraph) *scene.CameraSceneNode {
	c := g.NewCamera(l.Name + "_camera")
	fov, near, far := l.Camera.FOV, l.Camera.Near, l.Camera.Far
	if fov <= 0 {
		fov = 55
	}
	if near <= 0 {
		near = 0.1
	}
	if far <= near {
		far = 10000
	}
	c.SetPerspective(mgl32.DegToRad(fov), c.AspectRatio(), near, far)
	c.LookAt(mgl32.Vec3(l.Camera.Position), mgl32.Vec3(l.Camera.Target), mgl32.Vec3{0, 0, 1})
	return c
}

// placement builds a local transform from a position and an (x, y, z, w)
// quaternion. An all-zero quaternion means no rotation.
func placement(position [3]float32, rotation [4]float32) mgl32.Mat4 {
	m := mgl32.Translate3D(position[0], position[1], position[2])
	if rotation == [4]float32{} {
		return m
	}
	q := mgl32.Quat{W: rotation[3], V: mgl32.Vec3{rotation[0], rotation[1], rotation[2]}}.Normalize()
	return m.Mul4(q.Mat4())
}
