package scene

import (
	stdmath "math"
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/graphics"
)

const (
	// maxEmitterParticles bounds the live particles of one emitter.
	maxEmitterParticles = 512

	gravity = 9.8
)

// EmitterSceneNode spawns particle children according to its model node's
// emitter definition.
type EmitterSceneNode struct {
	ModelNodeSceneNode

	emitter    *graphics.Emitter
	spawnAccum float32
	detonate   bool
	rng        *rand.Rand
}

func newEmitter(graph *SceneGraph, model *ModelSceneNode, modelNode *graphics.ModelNode) *EmitterSceneNode {
	e := &EmitterSceneNode{
		emitter: modelNode.Emitter,
		rng:     rand.New(rand.NewSource(int64(modelNode.Number) + 42)),
	}
	e.init(e, NodeEmitter, modelNode.Name+"_emitter", graph)
	e.bindModelNode(model, modelNode)
	return e
}

func (e *EmitterSceneNode) Emitter() *graphics.Emitter { return e.emitter }

// Detonate spawns a burst on the next update of an explosion emitter.
func (e *EmitterSceneNode) Detonate() {
	e.detonate = true
}

func (e *EmitterSceneNode) update(dt float32) {
	e.updateParticles(dt)

	switch e.emitter.Update {
	case graphics.EmitterFountain:
		e.spawnAccum += e.emitter.BirthRate * dt
		for e.spawnAccum >= 1 {
			e.spawnAccum--
			e.spawnParticle()
		}
	case graphics.EmitterSingle:
		if len(e.children) == 0 {
			e.spawnParticle()
		}
	case graphics.EmitterExplosion:
		if e.detonate {
			e.detonate = false
			for i := 0; i < int(e.emitter.BirthRate); i++ {
				e.spawnParticle()
			}
		}
	}
}

// updateParticles advances live particles and drops expired ones.
func (e *EmitterSceneNode) updateParticles(dt float32) {
	write := 0
	for _, child := range e.children {
		p, ok := child.(*ParticleSceneNode)
		if !ok {
			e.children[write] = child
			write++
			continue
		}
		if !p.update(dt) {
			p.parent = nil
			continue
		}
		e.children[write] = p
		write++
	}
	clear(e.children[write:])
	e.children = e.children[:write]
}

func (e *EmitterSceneNode) spawnParticle() {
	if len(e.children) >= maxEmitterParticles {
		return
	}
	def := e.emitter
	speed := def.Velocity + e.rng.Float32()*def.RandomVelocity
	dir := randomInCone(mgl32.Vec3{0, 0, 1}, def.Spread, e.rng)

	p := &ParticleSceneNode{
		emitter:  def,
		velocity: dir.Mul(speed),
		lifetime: def.LifeExpectancy,
		frame:    def.FrameStart,
	}
	p.init(p, NodeParticle, "particle", e.graph)
	p.applyLifetime()
	e.AddChild(p)
}

// ParticleSceneNode is one particle, positioned relative to its emitter.
type ParticleSceneNode struct {
	SceneNode

	emitter  *graphics.Emitter
	position mgl32.Vec3
	velocity mgl32.Vec3
	age      float32
	lifetime float32

	size  float32
	color mgl32.Vec3
	alpha float32
	frame int
}

// update advances the particle and reports whether it is still alive.
func (p *ParticleSceneNode) update(dt float32) bool {
	p.age += dt
	if p.lifetime > 0 && p.age >= p.lifetime {
		return false
	}
	p.velocity[2] -= p.emitter.Mass * gravity * dt
	p.position = p.position.Add(p.velocity.Mul(dt))
	p.SetLocalTransform(mgl32.Translate3D(p.position[0], p.position[1], p.position[2]))
	p.applyLifetime()
	return true
}

func (p *ParticleSceneNode) applyLifetime() {
	def := p.emitter
	t := float32(0)
	if p.lifetime > 0 {
		t = p.age / p.lifetime
	}
	p.color = lerp3(def.ColorStart, def.ColorMid, def.ColorEnd, t)
	p.alpha = lerp3f(def.AlphaStart, def.AlphaMid, def.AlphaEnd, t)
	p.size = lerp3f(def.SizeStart, def.SizeMid, def.SizeEnd, t)

	frames := def.FrameEnd - def.FrameStart + 1
	if frames > 1 && def.FPS > 0 {
		p.frame = def.FrameStart + int(p.age*def.FPS)%frames
	}
}

func (p *ParticleSceneNode) Size() float32 { return p.size }
func (p *ParticleSceneNode) Color() mgl32.Vec3 { return p.color }
func (p *ParticleSceneNode) Alpha() float32 { return p.alpha }
func (p *ParticleSceneNode) Frame() int { return p.frame }
func (p *ParticleSceneNode) Age() float32 { return p.age }

func (p *ParticleSceneNode) billboard() Billboard {
	return Billboard{
		Position: p.Origin(),
		Size:     p.size,
		Color:    p.color.Vec4(p.alpha),
		Frame:    p.frame,
	}
}

// lerp3 interpolates start → mid over the first half of t, mid → end over the second.
func lerp3(start, mid, end mgl32.Vec3, t float32) mgl32.Vec3 {
	if t < 0.5 {
		return start.Add(mid.Sub(start).Mul(t * 2))
	}
	return mid.Add(end.Sub(mid).Mul((t - 0.5) * 2))
}

func lerp3f(start, mid, end, t float32) float32 {
	if t < 0.5 {
		return start + (mid-start)*t*2
	}
	return mid + (end-mid)*(t-0.5)*2
}

// randomInCone returns a uniformly-distributed unit vector within a cone of
// half-angle spread around axis, using the spherical cap mapping.
func randomInCone(axis mgl32.Vec3, spread float32, rng *rand.Rand) mgl32.Vec3 {
	phi := rng.Float32() * 2 * stdmath.Pi
	cosMin := math32.Cos(spread)
	cosTheta := cosMin + rng.Float32()*(1-cosMin)
	sinTheta := math32.Sqrt(math32.Max(0, 1-cosTheta*cosTheta))

	// Orthonormal frame around axis
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(axis.Dot(up)) > 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}
	right := axis.Cross(up).Normalize()
	up = right.Cross(axis).Normalize()

	return axis.Mul(cosTheta).
		Add(right.Mul(sinTheta * math32.Cos(phi))).
		Add(up.Mul(sinTheta * math32.Sin(phi))).
		Normalize()
}
