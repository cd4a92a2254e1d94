package main

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/core"
	"kotor-render/graphics"
	"kotor-render/scene"
)

// dayPalette holds the light values for one key time of day.
type dayPalette struct {
	t            float32 // normalised time 0..1
	fogColor     core.Color
	fogFar       float32
	sunColor     core.Color
	sunIntensity float32
	ambient      core.Color
}

// palettes are ordered by t and wrap (0 == 1).
var palettes = []dayPalette{
	{ // noon
		t:            0.00,
		fogColor:     core.Color{R: 0.62, G: 0.78, B: 0.95, A: 1},
		fogFar:       120,
		sunColor:     core.Color{R: 1.00, G: 0.98, B: 0.92, A: 1},
		sunIntensity: 1.20,
		ambient:      core.Color{R: 0.16, G: 0.18, B: 0.26, A: 1},
	},
	{ // golden hour
		t:            0.22,
		fogColor:     core.Color{R: 0.85, G: 0.55, B: 0.25, A: 1},
		fogFar:       90,
		sunColor:     core.Color{R: 1.00, G: 0.65, B: 0.25, A: 1},
		sunIntensity: 0.90,
		ambient:      core.Color{R: 0.10, G: 0.12, B: 0.20, A: 1},
	},
	{ // dusk
		t:            0.30,
		fogColor:     core.Color{R: 0.35, G: 0.18, B: 0.22, A: 1},
		fogFar:       70,
		sunColor:     core.Color{R: 0.70, G: 0.40, B: 0.55, A: 1},
		sunIntensity: 0.25,
		ambient:      core.Color{R: 0.06, G: 0.07, B: 0.14, A: 1},
	},
	{ // midnight, moonlight
		t:            0.50,
		fogColor:     core.Color{R: 0.03, G: 0.03, B: 0.06, A: 1},
		fogFar:       60,
		sunColor:     core.Color{R: 0.40, G: 0.45, B: 0.65, A: 1},
		sunIntensity: 0.12,
		ambient:      core.Color{R: 0.03, G: 0.04, B: 0.09, A: 1},
	},
	{ // pre-dawn
		t:            0.70,
		fogColor:     core.Color{R: 0.30, G: 0.15, B: 0.20, A: 1},
		fogFar:       70,
		sunColor:     core.Color{R: 0.75, G: 0.42, B: 0.60, A: 1},
		sunIntensity: 0.20,
		ambient:      core.Color{R: 0.06, G: 0.07, B: 0.14, A: 1},
	},
	{ // sunrise
		t:            0.78,
		fogColor:     core.Color{R: 0.75, G: 0.40, B: 0.20, A: 1},
		fogFar:       90,
		sunColor:     core.Color{R: 1.00, G: 0.60, B: 0.28, A: 1},
		sunIntensity: 0.70,
		ambient:      core.Color{R: 0.09, G: 0.10, B: 0.17, A: 1},
	},
}

const (
	sunDistance = 2000
	sunRadius   = 100000
)

// DayNight drives a directional sun around the area and blends ambient and
// fog with it.
type DayNight struct {
	Time   float32 // 0..1: 0=noon, 0.25=sunset, 0.5=midnight, 0.75=sunrise
	Speed  float32 // full-cycle duration in seconds
	Active bool    // auto-advance when true

	sun   *scene.ModelSceneNode
	light *graphics.Light
}

// NewDayNight adds a shadow casting sun to g.
func NewDayNight(g *scene.SceneGraph) (*DayNight, error) {
	sun, err := g.NewModel(graphics.NewLightModel("sun", graphics.Light{
		Color:       mgl32.Vec3{1, 1, 1},
		Multiplier:  1,
		Radius:      sunRadius,
		Directional: true,
		Shadow:      true,
	}), scene.UsageTemporary, nil)
	if err != nil {
		return nil, err
	}
	sun.SetCullable(false)
	if err := g.AddRoot(sun); err != nil {
		return nil, err
	}
	node, ok := sun.NodeByName("sun_light")
	if !ok {
		return nil, fmt.Errorf("sun light node: %w", core.ErrLogic)
	}
	return &DayNight{
		Speed:  120,
		Active: true,
		sun:    sun,
		light:  node.(*scene.LightSceneNode).Light(),
	}, nil
}

func (dn *DayNight) Update(dt float32) {
	if !dn.Active {
		return
	}
	dn.Time += dt / dn.Speed
	if dn.Time > 1 {
		dn.Time -= 1
	}
}

// samplePalette interpolates the two keys around t.
func samplePalette(t float32) dayPalette {
	n := len(palettes)
	a, b := palettes[n-1], palettes[0]
	ta, tb := a.t, b.t+1
	for i := 0; i < n-1; i++ {
		if t >= palettes[i].t && t < palettes[i+1].t {
			a, b = palettes[i], palettes[i+1]
			ta, tb = a.t, b.t
			break
		}
	}
	if t < ta {
		t++ // wrap segment from the last key to noon
	}
	local := (t - ta) / (tb - ta)

	return dayPalette{
		fogColor:     a.fogColor.Lerp(b.fogColor, local),
		fogFar:       a.fogFar + (b.fogFar-a.fogFar)*local,
		sunColor:     a.sunColor.Lerp(b.sunColor, local),
		sunIntensity: a.sunIntensity + (b.sunIntensity-a.sunIntensity)*local,
		ambient:      a.ambient.Lerp(b.ambient, local),
	}
}

// Apply moves the sun around center and pushes the blended state to g.
func (dn *DayNight) Apply(g *scene.SceneGraph, center mgl32.Vec3) {
	p := samplePalette(dn.Time)

	// Full rotation in the XZ plane, tilted towards +Y. Noon is overhead.
	angle := dn.Time * 2 * math32.Pi
	dir := mgl32.Vec3{math32.Sin(angle), 0.35, math32.Cos(angle)}.Normalize()
	dn.sun.SetPosition(center.Add(dir.Mul(sunDistance)))

	dn.light.Color = p.sunColor.Vec3()
	dn.light.Multiplier = p.sunIntensity

	g.SetAmbientColor(p.ambient.Vec3())
	fog := g.Fog()
	if fog.Enabled {
		fog.Color = p.fogColor.Vec3()
		fog.Far = p.fogFar
		g.SetFog(fog)
	}
}

// TimeOfDayStr returns a clock label, noon at t=0.
func (dn *DayNight) TimeOfDayStr() string {
	hours := math32.Mod(dn.Time*24+12, 24)
	h := int(hours)
	m := int((hours - float32(h)) * 60)
	return fmt.Sprintf("%02d:%02d", h, m)
}
