package scene

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/core"
	"kotor-render/graphics"
)

type AnimationFlags int

const (
	AnimationLoop AnimationFlags = 1 << iota
	AnimationBlend
	AnimationOverlay
)

// AnimationProperties control playback. Zero Speed and Scale mean 1.
type AnimationProperties struct {
	Flags AnimationFlags
	Speed float32
	Scale float32
}

func (p AnimationProperties) normalized() AnimationProperties {
	if p.Speed == 0 {
		p.Speed = 1
	}
	if p.Scale == 0 {
		p.Scale = 1
	}
	return p
}

// AnimationEventListener receives named animation events.
type AnimationEventListener interface {
	OnEventSignalled(name string)
}

// AnimationChannel plays one animation over one model and produces local
// transforms keyed by model node number.
type AnimationChannel struct {
	model       *ModelSceneNode
	ignoreNodes map[string]struct{}

	animation  *graphics.Animation
	properties AnimationProperties
	time       float32
	freeze     bool
	finished   bool

	transformByNodeNumber map[uint16]mgl32.Mat4
}

func NewAnimationChannel(model *ModelSceneNode, ignoreNodes ...string) (*AnimationChannel, error) {
	if model == nil {
		return nil, fmt.Errorf("animation channel: model is nil: %w", core.ErrInvalidArgument)
	}
	ignore := make(map[string]struct{}, len(ignoreNodes))
	for _, name := range ignoreNodes {
		ignore[name] = struct{}{}
	}
	return &AnimationChannel{
		model:                 model,
		ignoreNodes:           ignore,
		transformByNodeNumber: make(map[uint16]mgl32.Mat4),
	}, nil
}

// Reset returns the channel to the idle state.
func (c *AnimationChannel) Reset() {
	c.animation = nil
	c.time = 0
	c.freeze = false
	c.finished = false
	clear(c.transformByNodeNumber)
}

// ResetWith installs anim at time zero.
func (c *AnimationChannel) ResetWith(anim *graphics.Animation, props AnimationProperties) error {
	if anim == nil {
		return fmt.Errorf("animation channel: animation is nil: %w", core.ErrInvalidArgument)
	}
	c.animation = anim
	c.properties = props.normalized()
	c.time = 0
	c.freeze = false
	c.finished = false
	clear(c.transformByNodeNumber)
	return nil
}

func (c *AnimationChannel) Update(dt float32) {
	if c.animation == nil || c.freeze || c.finished {
		return
	}
	length := c.animation.Length
	newTime := math32.Min(c.time+c.properties.Speed*dt, length)

	for _, event := range c.animation.Events {
		if c.time < event.Time && event.Time <= newTime {
			c.model.signalEvent(event.Name)
		}
	}

	clear(c.transformByNodeNumber)
	if c.animation.Root != nil {
		c.computeLocalTransform(c.animation.Root)
	}

	c.time = newTime
	if c.time == length {
		if c.properties.Flags&AnimationLoop != 0 {
			c.time = 0
		} else {
			c.finished = true
		}
	}
}

func (c *AnimationChannel) computeLocalTransform(animNode *graphics.ModelNode) {
	if _, ignored := c.ignoreNodes[animNode.Name]; !ignored {
		if sceneNode, ok := c.model.modelNodeByName(animNode.Name); ok {
			modelNode := sceneNode.ModelNode()
			transform := mgl32.Ident4()
			changed := false

			if scale, ok := animNode.ScaleAt(c.time); ok {
				transform = transform.Mul4(mgl32.Scale3D(scale, scale, scale))
				changed = true
			}

			position := modelNode.Position
			if translation, ok := animNode.TranslationAt(c.time, c.properties.Scale); ok {
				position = position.Add(translation)
				changed = true
			}
			transform = transform.Mul4(mgl32.Translate3D(position[0], position[1], position[2]))

			orientation := modelNode.Orientation
			if q, ok := animNode.OrientationAt(c.time); ok {
				orientation = q
				changed = true
			}
			transform = transform.Mul4(orientation.Mat4())

			if changed {
				c.transformByNodeNumber[modelNode.Number] = transform
			}
		}
	}
	for _, child := range animNode.Children {
		c.computeLocalTransform(child)
	}
}

func (c *AnimationChannel) Freeze() {
	c.freeze = true
}

// IsSameAnimation reports whether anim is already playing with the same properties.
func (c *AnimationChannel) IsSameAnimation(anim *graphics.Animation, props AnimationProperties) bool {
	return c.animation == anim && c.properties == props.normalized()
}

func (c *AnimationChannel) IsActive() bool {
	return c.animation != nil && !c.finished
}

func (c *AnimationChannel) IsPastTransitionTime() bool {
	return c.animation != nil && c.time > c.animation.TransitionTime
}

func (c *AnimationChannel) IsFinished() bool {
	return c.animation != nil && c.finished
}

func (c *AnimationChannel) TransformByNodeNumber(number uint16) (mgl32.Mat4, bool) {
	m, ok := c.transformByNodeNumber[number]
	return m, ok
}

func (c *AnimationChannel) TransitionTime() float32 {
	if c.animation == nil {
		return 0
	}
	return c.animation.TransitionTime
}

func (c *AnimationChannel) Animation() *graphics.Animation { return c.animation }
func (c *AnimationChannel) Properties() AnimationProperties { return c.properties }
func (c *AnimationChannel) Time() float32 { return c.time }
func (c *AnimationChannel) SetTime(t float32) { c.time = t }
