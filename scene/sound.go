package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/core"
)

// AudioSource is a playing sound.
type AudioSource interface {
	Stop()
	IsPlaying() bool
	SetPosition(position mgl32.Vec3)
}

// AudioPlayer starts sounds by resource name. position is nil for
// non-positional playback.
type AudioPlayer interface {
	Play(name string, gain float32, loop bool, position *mgl32.Vec3) (AudioSource, error)
}

// SoundSceneNode is an ambient or positional sound emitter. Only the sounds
// the graph marks audible are actually playing.
type SoundSceneNode struct {
	SceneNode

	player      AudioPlayer
	priority    int
	maxDistance float32
	audible     bool

	sound      string
	gain       float32
	loop       bool
	positional bool
	pending    bool
	source     AudioSource
}

func newSound(graph *SceneGraph, name string, player AudioPlayer) *SoundSceneNode {
	s := &SoundSceneNode{player: player, maxDistance: 32, gain: 1}
	s.init(s, NodeSound, name, graph)
	return s
}

// Play requests playback. The sound starts once the node is audible.
func (s *SoundSceneNode) Play(sound string, gain float32, loop, positional bool) {
	s.stopSource()
	s.sound = sound
	s.gain = gain
	s.loop = loop
	s.positional = positional
	s.pending = true
}

func (s *SoundSceneNode) Stop() {
	s.stopSource()
	s.pending = false
}

func (s *SoundSceneNode) IsSoundPlaying() bool {
	return s.source != nil && s.source.IsPlaying()
}

func (s *SoundSceneNode) stopSource() {
	if s.source != nil {
		s.source.Stop()
		s.source = nil
	}
}

func (s *SoundSceneNode) update(dt float32) {
	if !s.audible || !s.enabled {
		if s.source != nil {
			s.stopSource()
			// Looping sounds resume when the node becomes audible again.
			s.pending = s.loop
		}
		return
	}
	if s.source != nil {
		if s.positional {
			s.source.SetPosition(s.Origin())
		}
		if !s.source.IsPlaying() {
			s.source = nil
		}
		return
	}
	if !s.pending || s.player == nil {
		return
	}
	var position *mgl32.Vec3
	if s.positional {
		origin := s.Origin()
		position = &origin
	}
	source, err := s.player.Play(s.sound, s.gain, s.loop, position)
	if err != nil {
		core.Logger().Warn("sound playback failed", "node", s.name, "sound", s.sound, "err", err)
		s.pending = false
		return
	}
	s.source = source
	s.pending = false
}

func (s *SoundSceneNode) Priority() int { return s.priority }
func (s *SoundSceneNode) SetPriority(p int) { s.priority = p }
func (s *SoundSceneNode) MaxDistance() float32 { return s.maxDistance }
func (s *SoundSceneNode) SetMaxDistance(d float32) { s.maxDistance = d }
func (s *SoundSceneNode) IsAudible() bool { return s.audible }
func (s *SoundSceneNode) SetAudible(on bool) { s.audible = on }
