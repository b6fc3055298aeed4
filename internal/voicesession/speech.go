package voicesession

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/eleven-am/sightline/internal/audio"
	"github.com/eleven-am/sightline/internal/shared"
)

const (
	DefaultMaxUtterance = 30 * time.Second
	wordDuration        = 400 * time.Millisecond
	utteranceSlack      = 2 * time.Second
)

// SpeechController keeps at most one utterance audible. A new Speak cancels
// the current one and drops its completion callback; completions are posted
// back through done with the utterance id so stale ones can be told apart.
// done is only ever called from synthesizer and watchdog callbacks, never from
// inside Speak.
type SpeechController struct {
	synth        Synthesizer
	cues         CuePlayer
	clock        Clock
	done         func(id uint64)
	maxUtterance time.Duration
	log          *slog.Logger

	seq      uint64
	speaking bool
	onDone   func()
	watchdog Timer
}

type SpeechConfig struct {
	Synth        Synthesizer
	Cues         CuePlayer
	Clock        Clock
	MaxUtterance time.Duration
	Done         func(id uint64)
	Logger       *slog.Logger
}

func NewSpeechController(cfg SpeechConfig) *SpeechController {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Cues == nil {
		cfg.Cues = noopOutput{}
	}
	if cfg.MaxUtterance <= 0 {
		cfg.MaxUtterance = DefaultMaxUtterance
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SpeechController{
		synth:        cfg.Synth,
		cues:         cfg.Cues,
		clock:        cfg.Clock,
		done:         cfg.Done,
		maxUtterance: cfg.MaxUtterance,
		log:          cfg.Logger,
	}
}

// Speak returns the id of the new utterance. When the synthesizer refuses it
// the utterance is settled on the spot and Speak returns its completion
// callback for the caller to run. The returned func is nil otherwise.
func (c *SpeechController) Speak(text string, onDone func()) (uint64, func()) {
	c.Cancel()
	c.seq++
	id := c.seq
	c.speaking = true
	c.onDone = onDone

	if err := c.synth.Speak(text, func() { c.done(id) }); err != nil {
		if !errors.Is(err, shared.ErrCapabilityUnsupported) {
			c.log.Warn("speech synthesis failed", "error", err)
		}
		return id, c.Done(id)
	}

	c.watchdog = c.clock.AfterFunc(c.estimate(text), func() { c.done(id) })
	return id, nil
}


// Done settles utterance id and returns its completion callback. It returns
// nil when id was superseded or already settled.
func (c *SpeechController) Done(id uint64) func() {
	if !c.speaking || id != c.seq {
		return nil
	}
	c.speaking = false
	c.stopWatchdog()
	cb := c.onDone
	c.onDone = nil
	return cb
}

func (c *SpeechController) Cancel() {
	c.synth.CancelAll()
	c.stopWatchdog()
	c.speaking = false
	c.onDone = nil
	c.seq++
}

func (c *SpeechController) Cue(e audio.Earcon) {
	c.cues.PlayCue(e)
}

func (c *SpeechController) Speaking() bool {
	return c.speaking
}

func (c *SpeechController) estimate(text string) time.Duration {
	d := time.Duration(len(strings.Fields(text)))*wordDuration + utteranceSlack
	if d > c.maxUtterance {
		return c.maxUtterance
	}
	return d
}

func (c *SpeechController) stopWatchdog() {
	if c.watchdog != nil {
		c.watchdog.Stop()
		c.watchdog = nil
	}
}
