package scene

import "github.com/go-gl/mathgl/mgl32"

// LightUniforms is the shader view of one active light.
type LightUniforms struct {
	Position    mgl32.Vec4 // w = 0 for directional lights
	Color       mgl32.Vec4
	Multiplier  float32
	Radius      float32
	AmbientOnly bool
	DynamicType int
}

// LightingUniforms is the per-frame lighting block.
type LightingUniforms struct {
	NumLights    int
	Lights       [MaxLights]LightUniforms
	AmbientColor mgl32.Vec3

	FogEnabled bool
	FogNear    float32
	FogFar     float32
	FogColor   mgl32.Vec3

	ShadowStrength float32
	ShadowRadius   float32
}

// FillLightingUniforms writes the active lights, ambient and fog state.
func (g *SceneGraph) FillLightingUniforms(u *LightingUniforms) {
	u.NumLights = len(g.activeLights)
	for i, light := range g.activeLights {
		w := float32(1)
		if light.IsDirectional() {
			w = 0
		}
		u.Lights[i] = LightUniforms{
			Position:    light.Origin().Vec4(w),
			Color:       light.Color().Vec4(1),
			Multiplier:  light.Multiplier() * light.Strength(),
			Radius:      light.Radius(),
			AmbientOnly: light.light.AmbientOnly,
			DynamicType: light.light.DynamicType,
		}
	}
	u.AmbientColor = g.ambientColor
	u.FogEnabled = g.fog.Enabled
	u.FogNear = g.fog.Near
	u.FogFar = g.fog.Far
	u.FogColor = g.fog.Color
	u.ShadowStrength = g.shadowStrength
	u.ShadowRadius = 0
	if g.shadowLight != nil {
		u.ShadowRadius = g.shadowLight.Radius()
	}
}
