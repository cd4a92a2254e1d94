package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kotor-render/core"
	"kotor-render/graphics"
)

// MaxSurfaceID bounds material ids so they fit the walkmesh debug palette.
const MaxSurfaceID = 62

//go:embed surfaces.yaml
var defaultSurfaces []byte

// SurfaceMaterial is one row of the surface table.
type SurfaceMaterial struct {
	ID          uint32 `yaml:"id"`
	Name        string `yaml:"name"`
	Walk        bool   `yaml:"walk"`
	WalkCheck   bool   `yaml:"walkcheck"`
	LineOfSight bool   `yaml:"lineofsight"`
	Grass       bool   `yaml:"grass"`
}

type SurfaceTable struct {
	Materials []SurfaceMaterial `yaml:"surfaces"`
}

// DefaultSurfaces returns the built-in KotOR surface table.
func DefaultSurfaces() SurfaceTable {
	t, err := ParseSurfaces(defaultSurfaces)
	if err != nil {
		panic(fmt.Sprintf("config: embedded surface table: %v", err))
	}
	return t
}

// LoadSurfaces reads a surface table, or returns the default one when path
// is empty.
func LoadSurfaces(path string) (SurfaceTable, error) {
	if path == "" {
		return DefaultSurfaces(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return SurfaceTable{}, fmt.Errorf("failed to read surfaces: %w", err)
	}
	t, err := ParseSurfaces(data)
	if err != nil {
		return SurfaceTable{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func ParseSurfaces(data []byte) (SurfaceTable, error) {
	var t SurfaceTable
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return SurfaceTable{}, fmt.Errorf("failed to parse surfaces: %w", err)
	}
	seen := make(map[uint32]string, len(t.Materials))
	for _, m := range t.Materials {
		if m.ID > MaxSurfaceID {
			return SurfaceTable{}, fmt.Errorf("surface %q: id %d exceeds %d: %w", m.Name, m.ID, MaxSurfaceID, core.ErrInvalidArgument)
		}
		if other, ok := seen[m.ID]; ok {
			return SurfaceTable{}, fmt.Errorf("surface id %d used by %q and %q: %w", m.ID, other, m.Name, core.ErrInvalidArgument)
		}
		seen[m.ID] = m.Name
	}
	return t, nil
}

func (t SurfaceTable) Material(id uint32) (SurfaceMaterial, bool) {
	for _, m := range t.Materials {
		if m.ID == id {
			return m, true
		}
	}
	return SurfaceMaterial{}, false
}

// Surfaces splits the table into the material sets the scene graph queries.
func (t SurfaceTable) Surfaces() graphics.Surfaces {
	s := graphics.Surfaces{
		Walkable:    graphics.NewMaterialSet(),
		Walkcheck:   graphics.NewMaterialSet(),
		LineOfSight: graphics.NewMaterialSet(),
		Grass:       graphics.NewMaterialSet(),
	}
	for _, m := range t.Materials {
		if m.Walk {
			s.Walkable.Add(m.ID)
		}
		if m.WalkCheck {
			s.Walkcheck.Add(m.ID)
		}
		if m.LineOfSight {
			s.LineOfSight.Add(m.ID)
		}
		if m.Grass {
			s.Grass.Add(m.ID)
		}
	}
	return s
}
