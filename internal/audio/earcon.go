package audio

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const BaseSampleRate = 48000

type Earcon string

const (
	EarconListen     Earcon = "listen"
	EarconProcessing Earcon = "processing"
	EarconStop       Earcon = "stop"
)

type Waveform int

const (
	WaveSine Waveform = iota
	WaveSquare
	WaveTriangle
)

type Ramp int

const (
	RampLinear Ramp = iota
	RampExponential
)

// Tone describes a single oscillator sweep. Frequency moves from StartHz to
// EndHz over Sweep and then holds. Gain moves from StartGain to EndGain over
// the whole Duration.
type Tone struct {
	Wave      Waveform
	StartHz   float64
	EndHz     float64
	Sweep     time.Duration
	FreqRamp  Ramp
	StartGain float64
	EndGain   float64
	GainRamp  Ramp
	Duration  time.Duration
}

var earconTones = map[Earcon]Tone{
	EarconListen: {
		Wave:      WaveSine,
		StartHz:   600,
		EndHz:     1000,
		Sweep:     100 * time.Millisecond,
		FreqRamp:  RampExponential,
		StartGain: 0.1,
		EndGain:   0.01,
		GainRamp:  RampExponential,
		Duration:  500 * time.Millisecond,
	},
	EarconStop: {
		Wave:      WaveTriangle,
		StartHz:   300,
		EndHz:     100,
		Sweep:     200 * time.Millisecond,
		FreqRamp:  RampLinear,
		StartGain: 0.1,
		EndGain:   0.01,
		GainRamp:  RampLinear,
		Duration:  200 * time.Millisecond,
	},
	EarconProcessing: {
		Wave:      WaveSquare,
		StartHz:   440,
		EndHz:     440,
		StartGain: 0.05,
		EndGain:   0.01,
		GainRamp:  RampExponential,
		Duration:  100 * time.Millisecond,
	},
}

func ToneFor(e Earcon) (Tone, bool) {
	t, ok := earconTones[e]
	return t, ok
}

// Render synthesizes a tone as float samples in [-1, 1].
func (t Tone) Render(sampleRate int) []float32 {
	n := int(t.Duration.Seconds() * float64(sampleRate))
	out := make([]float32, n)

	sweep := t.Sweep.Seconds()
	total := t.Duration.Seconds()
	phase := 0.0

	for i := 0; i < n; i++ {
		at := float64(i) / float64(sampleRate)

		freq := t.EndHz
		if sweep > 0 && at < sweep {
			freq = ramp(t.FreqRamp, t.StartHz, t.EndHz, at/sweep)
		}
		gain := ramp(t.GainRamp, t.StartGain, t.EndGain, at/total)

		out[i] = float32(gain * oscillate(t.Wave, phase))

		phase += freq / float64(sampleRate)
		phase -= math.Floor(phase)
	}
	return out
}

func ramp(kind Ramp, from, to, progress float64) float64 {
	if progress >= 1 {
		return to
	}
	if kind == RampExponential && from > 0 && to > 0 {
		return from * math.Pow(to/from, progress)
	}
	return from + (to-from)*progress
}

// oscillate evaluates one cycle of the waveform at phase in [0, 1).
func oscillate(w Waveform, phase float64) float64 {
	switch w {
	case WaveSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case WaveTriangle:
		return 1 - 4*math.Abs(phase-0.5)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// EarconBank renders every earcon once and caches the WAV bytes per sample rate.
type EarconBank struct {
	mu    sync.Mutex
	base  map[Earcon][]float32
	cache map[string][]byte
}

func NewEarconBank() *EarconBank {
	base := make(map[Earcon][]float32, len(earconTones))
	for e, t := range earconTones {
		base[e] = t.Render(BaseSampleRate)
	}
	return &EarconBank{
		base:  base,
		cache: make(map[string][]byte),
	}
}

func (b *EarconBank) WAV(e Earcon, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		sampleRate = BaseSampleRate
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := fmt.Sprintf("%s@%d", e, sampleRate)
	if data, ok := b.cache[key]; ok {
		return data, nil
	}

	samples, ok := b.base[e]
	if !ok {
		return nil, fmt.Errorf("unknown earcon: %s", e)
	}

	data := EncodeWAV(Float32ToInt16(Resample(samples, BaseSampleRate, sampleRate)), sampleRate)
	b.cache[key] = data
	return data, nil
}
