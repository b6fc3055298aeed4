package voicesession

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/eleven-am/sightline/internal/audio"
	"github.com/eleven-am/sightline/internal/kv"
	"github.com/eleven-am/sightline/internal/tags"
	"github.com/eleven-am/sightline/internal/vision"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	live := !t.stopped && !t.fired
	t.stopped = true
	return live
}

// Advance moves time forward and runs every timer that came due, in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type statusUpdate struct {
	mode Mode
	text string
}

type fakeDevice struct {
	mu sync.Mutex

	spoken     []string
	speakDone  []func()
	cancels    int
	speakErr   error
	cues       []audio.Earcon
	vibrations [][]int
	statuses   []statusUpdate
	shownTags  [][]tags.Tag

	startErr   error
	recStarts  int
	recStops   int
	recognizer RecognitionCallbacks
}

func (d *fakeDevice) Speak(text string, onDone func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.speakErr != nil {
		return d.speakErr
	}
	d.spoken = append(d.spoken, text)
	d.speakDone = append(d.speakDone, onDone)
	return nil
}

func (d *fakeDevice) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancels++
}

func (d *fakeDevice) PlayCue(e audio.Earcon) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cues = append(d.cues, e)
}

func (d *fakeDevice) Vibrate(pattern ...int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vibrations = append(d.vibrations, pattern)
}

func (d *fakeDevice) ShowStatus(mode Mode, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses = append(d.statuses, statusUpdate{mode: mode, text: text})
}

func (d *fakeDevice) ShowTags(list []tags.Tag) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shownTags = append(d.shownTags, list)
}

func (d *fakeDevice) Start(cb RecognitionCallbacks) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.recStarts++
	d.recognizer = cb
	return nil
}

func (d *fakeDevice) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recStops++
}

func (d *fakeDevice) lastSpoken() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.spoken) == 0 {
		return ""
	}
	return d.spoken[len(d.spoken)-1]
}

func (d *fakeDevice) spokenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.spoken)
}

func (d *fakeDevice) finishLastUtterance() {
	d.mu.Lock()
	done := d.speakDone[len(d.speakDone)-1]
	d.mu.Unlock()
	done()
}

func (d *fakeDevice) callbacks() RecognitionCallbacks {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recognizer
}

func (d *fakeDevice) lastVibration() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.vibrations) == 0 {
		return nil
	}
	return d.vibrations[len(d.vibrations)-1]
}

func (d *fakeDevice) hasCue(e audio.Earcon) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.cues {
		if c == e {
			return true
		}
	}
	return false
}

type fakeCamera struct {
	img   vision.Image
	ok    bool
	calls int
}

func (c *fakeCamera) CaptureFrame() (vision.Image, bool) {
	c.calls++
	return c.img, c.ok
}

type fakeAnalyzer struct {
	mu        sync.Mutex
	narration string
	answer    string
	answerErr error
	analyzed  int
	gotTags   [][]string
	questions []string
	images    []vision.Image
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, img vision.Image, tagNames []string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.analyzed++
	a.gotTags = append(a.gotTags, tagNames)
	return a.narration
}

func (a *fakeAnalyzer) Ask(ctx context.Context, img vision.Image, question string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.questions = append(a.questions, question)
	a.images = append(a.images, img)
	return a.answer, a.answerErr
}

type failingTags struct {
	err error
}

func (f failingTags) List(ctx context.Context) ([]tags.Tag, error) { return nil, f.err }
func (f failingTags) Add(ctx context.Context, description string) (*tags.Tag, error) {
	return nil, f.err
}
func (f failingTags) Remove(ctx context.Context, id string) error { return f.err }

var errBoom = errors.New("boom")

type harness struct {
	t        *testing.T
	s        *Session
	clock    *fakeClock
	device   *fakeDevice
	camera   *fakeCamera
	analyzer *fakeAnalyzer
	kv       kv.Store
	spawned  []func()
}

func testImage() vision.Image {
	return vision.Image{Data: make([]byte, 128), MimeType: vision.MimeJPEG, Width: 512, Height: 384}
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	return newHarnessWithTags(t, cfg, nil)
}

func newHarnessWithTags(t *testing.T, cfg Config, store TagStore) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		clock:    newFakeClock(),
		device:   &fakeDevice{},
		camera:   &fakeCamera{img: testImage(), ok: true},
		analyzer: &fakeAnalyzer{},
		kv:       kv.NewMemoryStore(),
	}
	if store == nil {
		store = tags.NewStore(h.kv, tags.Config{DeviceID: "dev-1", Logger: discardLogger()})
	}
	h.s = New("sess-1", "dev-1", cfg, Deps{
		Camera:   h.camera,
		Analyzer: h.analyzer,
		Answerer: h.analyzer,
		Tags:     store,
		Device:   h.device,
		Clock:    h.clock,
		Logger:   discardLogger(),
	})
	h.s.spawn = func(f func()) { h.spawned = append(h.spawned, f) }
	h.s.mount()
	h.settle()
	return h
}

// drain handles every queued event on the test goroutine.
func (h *harness) drain() {
	for {
		select {
		case e := <-h.s.events:
			h.s.handle(e)
		default:
			return
		}
	}
}

// settle runs spawned remote calls until none are left.
func (h *harness) settle() {
	h.drain()
	for len(h.spawned) > 0 {
		fs := h.spawned
		h.spawned = nil
		for _, f := range fs {
			f()
		}
		h.drain()
	}
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.drain()
}

func (h *harness) hold() {
	h.s.PointerDown()
	h.drain()
	h.advance(h.s.cfg.HoldThreshold)
}

func (h *harness) tap() {
	h.s.PointerDown()
	h.s.PointerUp()
	h.drain()
}

func (h *harness) expectMode(want Mode) {
	h.t.Helper()
	if got := h.s.Mode(); got != want {
		h.t.Fatalf("expected mode %s, got %s", want, got)
	}
}

func (h *harness) recognized(transcript string) {
	cb := h.device.callbacks()
	cb.OnStart()
	cb.OnResult(transcript)
	h.drain()
}
