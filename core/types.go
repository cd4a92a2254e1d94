package core

import "github.com/go-gl/mathgl/mgl32"

type Color struct {
	R, G, B, A float32
}

var (
	ColorWhite  = Color{1, 1, 1, 1}
	ColorBlack  = Color{0, 0, 0, 1}
	ColorRed    = Color{1, 0, 0, 1}
	ColorGreen  = Color{0, 1, 0, 1}
	ColorBlue   = Color{0, 0, 1, 1}
	ColorYellow = Color{1, 1, 0, 1}
)

// ColorFromVec3 returns an opaque colour from an RGB vector.
func ColorFromVec3(v mgl32.Vec3) Color {
	return Color{R: v[0], G: v[1], B: v[2], A: 1}
}

func (c Color) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{c.R, c.G, c.B}
}

func (c Color) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{c.R, c.G, c.B, c.A}
}

// Lerp interpolates every channel, t in [0, 1].
func (c Color) Lerp(other Color, t float32) Color {
	return Color{
		R: c.R + (other.R-c.R)*t,
		G: c.G + (other.G-c.G)*t,
		B: c.B + (other.B-c.B)*t,
		A: c.A + (other.A-c.A)*t,
	}
}

// Vertex is the interleaved layout uploaded to vertex buffers.
type Vertex struct {
	Position   mgl32.Vec3
	Normal     mgl32.Vec3
	UV         mgl32.Vec2
	LightmapUV mgl32.Vec2
	Color      Color
}

// Viewport is an integer pixel rectangle.
type Viewport struct {
	X, Y, Width, Height int
}
