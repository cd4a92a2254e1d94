// Package audio plays scene sounds through a beep mixer.
package audio

import (
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"

	"kotor-render/asset"
	"kotor-render/config"
	"kotor-render/core"
	"kotor-render/scene"
)

// RefDistance is the distance below which positional sounds play at full gain.
const RefDistance = 1.0

// Player mixes every playing sound into one stream. Positional sounds are
// attenuated by their distance to the listener and panned by their bearing.
// It is safe for concurrent use; the output device pulls from its own goroutine.
type Player struct {
	format beep.Format
	sounds asset.Getter[*beep.Buffer]

	mu      sync.Mutex
	mixer   beep.Mixer
	volume  float64
	ears    listener
	sources []*source
	device  bool
}

type listener struct {
	position mgl32.Vec3
	forward  mgl32.Vec3
	up       mgl32.Vec3
}

// New creates a player that is not attached to an output device; read
// samples from Streamer.
func New(format beep.Format, sounds asset.Getter[*beep.Buffer]) *Player {
	return &Player{
		format: format,
		sounds: sounds,
		volume: 1,
		ears: listener{
			forward: mgl32.Vec3{0, 1, 0},
			up:      mgl32.Vec3{0, 0, 1},
		},
	}
}

// Open initialises the output device and starts playing through it. Sounds
// are WAV files in dir.
func Open(cfg config.AudioConfig, dir string) (*Player, error) {
	format := beep.Format{SampleRate: beep.SampleRate(cfg.SampleRate), NumChannels: 2, Precision: 2}
	p := New(format, NewSounds(dir, format))
	p.SetVolume(cfg.Volume)
	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("failed to initialise audio: %w", err)
	}
	speaker.Play(p.Streamer())
	p.device = true
	core.Logger().Info("audio initialised", "sample_rate", cfg.SampleRate, "volume", cfg.Volume)
	return p, nil
}

// Close stops every sound and releases the output device.
func (p *Player) Close() {
	p.mu.Lock()
	for _, s := range p.sources {
		s.stopLocked()
	}
	p.sources = nil
	p.mu.Unlock()
	if p.device {
		speaker.Clear()
	}
}

// Streamer is the mixed output. It never ends.
func (p *Player) Streamer() beep.Streamer {
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		p.mu.Lock()
		defer p.mu.Unlock()
		n, ok := p.mixer.Stream(samples)
		p.sources = pruneStopped(p.sources)
		return n, ok
	})
}

func (p *Player) Format() beep.Format { return p.format }

// SetVolume sets the master gain, clamped to [0, 1].
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = max(0, min(1, v))
	for _, s := range p.sources {
		s.applyLocked()
	}
}

// SetListener moves the ears, usually to the active camera.
func (p *Player) SetListener(position, forward, up mgl32.Vec3) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ears = listener{position: position, forward: forward, up: up}
	for _, s := range p.sources {
		s.applyLocked()
	}
}

// NumPlaying returns the number of sounds still in the mixer.
func (p *Player) NumPlaying() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mixer.Len()
}

// Play starts the sound called name. position is nil for ambient sounds.
func (p *Player) Play(name string, gain float32, loop bool, position *mgl32.Vec3) (scene.AudioSource, error) {
	buf, ok := p.sounds.Get(name)
	if !ok {
		return nil, fmt.Errorf("sound %q not found: %w", name, core.ErrInvalidArgument)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("sound %q is empty: %w", name, core.ErrInvalidArgument)
	}

	s := &source{player: p, gain: float64(gain)}
	if position != nil {
		s.positional = true
		s.position = *position
	}

	var stream beep.Streamer = buf.Streamer(0, buf.Len())
	if loop {
		stream = beep.Loop(-1, buf.Streamer(0, buf.Len()))
	}
	s.pan = &effects.Pan{Streamer: beep.Seq(stream, beep.Callback(s.finish))}
	s.vol = &effects.Volume{Streamer: s.pan, Base: 2}
	s.ctrl = &beep.Ctrl{Streamer: s.vol}

	p.mu.Lock()
	defer p.mu.Unlock()
	s.applyLocked()
	p.sources = append(p.sources, s)
	p.mixer.Add(s.ctrl)
	return s, nil
}

func pruneStopped(sources []*source) []*source {
	out := sources[:0]
	for _, s := range sources {
		if s.IsPlaying() {
			out = append(out, s)
		}
	}
	clear(sources[len(out):])
	return out
}

// ── Source ───────────────────────────────────────────────────────────────────

type source struct {
	player *Player

	ctrl *beep.Ctrl
	vol  *effects.Volume
	pan  *effects.Pan
	done atomic.Bool

	// Guarded by player.mu
	gain       float64
	positional bool
	position   mgl32.Vec3
}

// finish runs on the mixing goroutine when the stream drains.
func (s *source) finish() {
	s.done.Store(true)
}

func (s *source) Stop() {
	s.player.mu.Lock()
	defer s.player.mu.Unlock()
	s.stopLocked()
}

func (s *source) stopLocked() {
	s.ctrl.Streamer = nil
	s.done.Store(true)
}

func (s *source) IsPlaying() bool {
	return !s.done.Load()
}

func (s *source) SetPosition(position mgl32.Vec3) {
	s.player.mu.Lock()
	defer s.player.mu.Unlock()
	s.position = position
	s.applyLocked()
}

// applyLocked recomputes volume and pan from the gains and the listener.
func (s *source) applyLocked() {
	gain := s.gain * s.player.volume
	pan := 0.0
	if s.positional {
		ears := s.player.ears
		gain *= Attenuation(s.position.Sub(ears.position).Len())
		pan = Pan(ears.position, ears.forward, ears.up, s.position)
	}
	s.pan.Pan = pan
	if gain <= 0 {
		s.vol.Silent = true
		s.vol.Volume = 0
		return
	}
	s.vol.Silent = false
	s.vol.Volume = math.Log2(gain)
}

// Attenuation is the inverse distance gain: 1 within RefDistance, then
// RefDistance/distance.
func Attenuation(distance float32) float64 {
	d := float64(distance)
	if d <= RefDistance {
		return 1
	}
	return RefDistance / d
}

// Pan returns -1 for a sound fully to the listener's left and 1 for fully right.
func Pan(listener, forward, up, sound mgl32.Vec3) float64 {
	dir := sound.Sub(listener)
	right := forward.Cross(up)
	if dir.Len() == 0 || right.Len() == 0 {
		return 0
	}
	return float64(mgl32.Clamp(dir.Normalize().Dot(right.Normalize()), -1, 1))
}

// ── Sound loading ────────────────────────────────────────────────────────────

// NewSounds returns a provider of WAV files in dir decoded into buffers of
// the given format.
func NewSounds(dir string, format beep.Format) *asset.Provider[*beep.Buffer] {
	return asset.NewProvider("sound", func(name string) (*beep.Buffer, error) {
		path, err := asset.Resolve(dir, name, ".wav")
		if err != nil {
			return nil, err
		}
		return LoadWAV(path, format)
	})
}

// LoadWAV decodes a WAV file, resampling it to format.
func LoadWAV(path string, format beep.Format) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound: %w", err)
	}
	defer f.Close()

	stream, src, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	defer stream.Close()

	buf := beep.NewBuffer(format)
	if src.SampleRate == format.SampleRate {
		buf.Append(stream)
	} else {
		buf.Append(beep.Resample(4, src.SampleRate, format.SampleRate, stream))
	}
	return buf, nil
}
