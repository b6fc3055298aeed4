package voicesession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eleven-am/sightline/internal/audio"
	"github.com/eleven-am/sightline/internal/shared"
	"github.com/eleven-am/sightline/internal/tags"
	"github.com/eleven-am/sightline/internal/vision"
)

type Mode string

const (
	ModeIdle          Mode = "idle"
	ModeMonitoring    Mode = "monitoring"
	ModeListening     Mode = "listening"
	ModeProcessingNav Mode = "processing_nav"
	ModeProcessingQA  Mode = "processing_qa"
	ModeProcessingTag Mode = "processing_tag"
	ModeSpeaking      Mode = "speaking"
)

const (
	msgActive          = "Navigation active."
	msgPaused          = "Paused."
	msgTapToStart      = "Paused. Tap to start."
	msgListening       = "Listening..."
	msgUnsupported     = "Voice control not supported."
	msgMicError        = "Microphone error."
	msgNothingVisible  = "I can't see anything right now."
	msgNoAnswer        = "I couldn't see that."
	msgAnswerFailed    = "Sorry, I couldn't answer."
	msgScanning        = "Scanning..."
	msgScanFailed      = "Error capturing image."
	msgTagDeleted      = "Tag deleted."
	msgTagDeleteFailed = "Could not delete tag."
)

var (
	hapticActivate  = []int{50}
	hapticPause     = []int{50, 50}
	hapticListening = []int{100}
	hapticSuccess   = []int{50, 50}
	hapticFailure   = []int{500}
	hapticScan      = []int{50}
)

const eventQueueSize = 64

type Config struct {
	AutoStart          bool
	HoldThreshold      time.Duration
	FirstFrameDelay    time.Duration
	PostNarrationDelay time.Duration
	BusyRetryDelay     time.Duration
	ListenRetryDelay   time.Duration
	ErrorRetryDelay    time.Duration
	ResumeDelay        time.Duration
	MaxUtterance       time.Duration
}

func DefaultConfig() Config {
	return Config{
		HoldThreshold:      DefaultHoldThreshold,
		FirstFrameDelay:    time.Second,
		PostNarrationDelay: 4 * time.Second,
		BusyRetryDelay:     500 * time.Millisecond,
		ListenRetryDelay:   500 * time.Millisecond,
		ErrorRetryDelay:    time.Second,
		ResumeDelay:        2 * time.Second,
		MaxUtterance:       DefaultMaxUtterance,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HoldThreshold <= 0 {
		c.HoldThreshold = d.HoldThreshold
	}
	if c.FirstFrameDelay <= 0 {
		c.FirstFrameDelay = d.FirstFrameDelay
	}
	if c.PostNarrationDelay <= 0 {
		c.PostNarrationDelay = d.PostNarrationDelay
	}
	if c.BusyRetryDelay <= 0 {
		c.BusyRetryDelay = d.BusyRetryDelay
	}
	if c.ListenRetryDelay <= 0 {
		c.ListenRetryDelay = d.ListenRetryDelay
	}
	if c.ErrorRetryDelay <= 0 {
		c.ErrorRetryDelay = d.ErrorRetryDelay
	}
	if c.ResumeDelay <= 0 {
		c.ResumeDelay = d.ResumeDelay
	}
	if c.MaxUtterance <= 0 {
		c.MaxUtterance = d.MaxUtterance
	}
	return c
}

type Deps struct {
	Camera   Camera
	Analyzer SceneAnalyzer
	Answerer QuestionAnswerer
	Tags     TagStore
	Device   Device
	Clock    Clock
	Logger   *slog.Logger
}

// Session is the interaction state machine for one connected device. All state
// below the event channel is owned by the Run goroutine; the exported methods
// only post events.
type Session struct {
	id        string
	deviceID  string
	cfg       Config
	log       *slog.Logger
	startedAt time.Time

	camera    Camera
	analyzer  SceneAnalyzer
	answerer  QuestionAnswerer
	tagStore  TagStore
	device    Device
	scheduler *FrameScheduler
	gestures  *GestureRecognizer
	voice     *VoiceArbiter
	speech    *SpeechController

	ctx       context.Context
	cancel    context.CancelFunc
	events    chan event
	done      chan struct{}
	finished  chan struct{}
	closeOnce sync.Once
	spawn     func(func())

	modeView atomic.Value

	mode        Mode
	loopEnabled bool
	busy        bool
	lastImage   vision.Image
	hasImage    bool
	tagList     []tags.Tag
	reqGen      uint64
	reqCancel   context.CancelFunc
}

func New(id, deviceID string, cfg Config, deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        id,
		deviceID:  deviceID,
		cfg:       cfg.withDefaults(),
		log:       deps.Logger.With("component", "voicesession", "session_id", id, "device_id", deviceID),
		startedAt: deps.Clock.Now(),
		camera:    deps.Camera,
		analyzer:  deps.Analyzer,
		answerer:  deps.Answerer,
		tagStore:  deps.Tags,
		device:    deps.Device,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan event, eventQueueSize),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		mode:      ModeIdle,
	}
	s.spawn = func(f func()) { go f() }
	s.modeView.Store(ModeIdle)

	s.scheduler = NewFrameScheduler(deps.Clock, func(gen uint64) {
		s.post(timerFired{gen: gen})
	})
	s.gestures = NewGestureRecognizer(deps.Clock, s.cfg.HoldThreshold, func(gen uint64) {
		s.post(holdElapsed{gen: gen})
	})
	s.voice = NewVoiceArbiter(deps.Device, func(e RecognitionEvent) {
		s.post(recognitionUpdate{e})
	}, s.log)
	s.speech = NewSpeechController(SpeechConfig{
		Synth:        deps.Device,
		Cues:         deps.Device,
		Clock:        deps.Clock,
		MaxUtterance: s.cfg.MaxUtterance,
		Done: func(id uint64) {
			s.post(speechFinished{id: id})
		},
		Logger: s.log,
	})
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) DeviceID() string {
	return s.deviceID
}

func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

func (s *Session) Mode() Mode {
	return s.modeView.Load().(Mode)
}

// Done is closed once Run has returned and the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.finished
}

func (s *Session) PointerDown() { s.post(pointerDown{}) }
func (s *Session) PointerUp() { s.post(pointerUp{}) }
func (s *Session) Toggle() { s.post(toggleRequest{}) }
func (s *Session) Scan() { s.post(scanRequest{}) }
func (s *Session) CameraReady() { s.post(cameraReady{}) }
func (s *Session) RefreshTags() { s.post(refreshTags{}) }
func (s *Session) DeleteTag(id string) { s.post(deleteTagRequest{id: id}) }

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Session) Run(ctx context.Context) {
	defer close(s.finished)

	stop := context.AfterFunc(ctx, s.Close)
	defer stop()

	s.mount()
	for {
		select {
		case <-s.done:
			s.unmount()
			return
		case e := <-s.events:
			s.handle(e)
		}
	}
}

func (s *Session) post(e event) {
	select {
	case s.events <- e:
	case <-s.done:
	}
}

func (s *Session) handle(e event) {
	switch e := e.(type) {
	case pointerDown:
		if s.mode != ModeIdle {
			s.speech.Cancel()
		}
		s.gestures.Down()
	case pointerUp:
		s.applyGesture(s.gestures.Up())
	case holdElapsed:
		s.applyGesture(s.gestures.HoldElapsed(e.gen))
	case toggleRequest:
		s.toggle()
	case scanRequest:
		s.scan()
	case cameraReady:
		s.onCameraReady()
	case timerFired:
		s.onTimer(e.gen)
	case narrationReady:
		s.onNarration(e)
	case scanReady:
		s.onScan(e)
	case answerReady:
		s.onAnswer(e)
	case tagAdded:
		s.onTagAdded(e)
	case tagsLoaded:
		s.onTagsLoaded(e)
	case tagDeleted:
		s.onTagDeleted(e)
	case refreshTags:
		s.loadTags()
	case deleteTagRequest:
		s.deleteTag(e.id)
	case speechFinished:
		if cb := s.speech.Done(e.id); cb != nil {
			cb()
		}
	case recognitionUpdate:
		s.onRecognition(e.RecognitionEvent)
	}
}

func (s *Session) mount() {
	s.log.Info("session started", "auto_start", s.cfg.AutoStart)
	s.loadTags()
	if s.cfg.AutoStart {
		s.activate()
		return
	}
	s.device.ShowStatus(ModeIdle, msgTapToStart)
}

func (s *Session) unmount() {
	s.deactivate(false)
	s.gestures.Reset()
	s.cancel()
	s.log.Info("session stopped")
}

func (s *Session) setMode(m Mode) {
	if s.mode == m {
		return
	}
	s.log.Debug("mode changed", "from", s.mode, "to", m)
	s.mode = m
	s.modeView.Store(m)
}

// say speaks text and shows it. While the session is speaking a result the
// new utterance inherits the resume so the session cannot stall in Speaking.
// Nothing is spoken while the microphone is open; the text is only shown.
func (s *Session) say(text string) {
	if s.mode == ModeListening {
		s.device.ShowStatus(s.mode, text)
		return
	}
	var onDone func()
	if s.mode == ModeSpeaking {
		onDone = s.resume
	}
	_, settled := s.speech.Speak(text, onDone)
	s.device.ShowStatus(s.mode, text)
	if settled != nil {
		settled()
	}
}

func (s *Session) applyGesture(g Gesture) {
	switch g {
	case GestureToggle:
		s.toggle()
	case GestureStartAsk:
		s.startAsk()
	case GestureStopAsk:
		if s.mode == ModeListening {
			s.voice.Stop()
		}
	}
}

// toggle switches the narration loop. A press while a scan or an idle
// question is still running drops that work and turns the loop on.
func (s *Session) toggle() {
	if !s.loopEnabled {
		if s.mode != ModeIdle {
			s.halt()
		}
		s.activate()
		return
	}
	s.deactivate(true)
}

func (s *Session) activate() {
	s.loopEnabled = true
	s.setMode(ModeMonitoring)
	s.device.Vibrate(hapticActivate...)
	s.say(msgActive)
	s.scheduler.Schedule(s.cfg.FirstFrameDelay)
}

// halt tears down in a fixed order: timer, recognition, speech, then the
// busy lock with its in-flight request.
func (s *Session) halt() {
	s.scheduler.Cancel()
	s.voice.Abort()
	s.speech.Cancel()
	s.abandonRequest()
}

func (s *Session) deactivate(announce bool) {
	s.halt()
	s.loopEnabled = false
	s.setMode(ModeIdle)

	if announce {
		s.speech.Cue(audio.EarconStop)
		s.device.Vibrate(hapticPause...)
		s.say(msgPaused)
	}
}

// settle releases the busy lock and returns to the pre-gesture mode, resuming
// narration after delay when the loop is enabled.
func (s *Session) settle(delay time.Duration) {
	s.busy = false
	if !s.loopEnabled {
		s.setMode(ModeIdle)
		return
	}
	s.setMode(ModeMonitoring)
	s.scheduler.Schedule(delay)
}

func (s *Session) resume() {
	if s.mode != ModeSpeaking {
		return
	}
	s.settle(s.cfg.ResumeDelay)
}

// respond speaks the outcome of a question, tag or scan and holds the busy lock
// until the utterance completes.
func (s *Session) respond(text string) {
	s.setMode(ModeSpeaking)
	s.say(text)
}

func (s *Session) beginRequest() (uint64, context.Context) {
	s.endRequest()
	s.reqGen++
	ctx, cancel := context.WithCancel(s.ctx)
	s.reqCancel = cancel
	return s.reqGen, ctx
}

func (s *Session) endRequest() {
	if s.reqCancel != nil {
		s.reqCancel()
		s.reqCancel = nil
	}
}

func (s *Session) abandonRequest() {
	s.endRequest()
	s.reqGen++
	s.busy = false
}

func (s *Session) onCameraReady() {
	if s.loopEnabled && s.mode == ModeMonitoring && !s.hasImage && s.scheduler.Pending() {
		s.scheduler.Schedule(s.cfg.FirstFrameDelay)
	}
}

func (s *Session) onTimer(gen uint64) {
	if !s.scheduler.Current(gen) {
		return
	}
	if !s.loopEnabled {
		return
	}
	if s.busy || s.mode != ModeMonitoring {
		s.scheduler.Schedule(s.cfg.BusyRetryDelay)
		return
	}

	img, ok := s.camera.CaptureFrame()
	if !ok {
		s.log.Debug("no frame available, skipping narration")
		s.scheduler.Schedule(s.cfg.PostNarrationDelay)
		return
	}
	s.remember(img)

	s.busy = true
	s.setMode(ModeProcessingNav)
	gen, ctx := s.beginRequest()
	names := tags.Names(s.tagList)
	s.spawn(func() {
		text := s.analyzer.Analyze(ctx, img, names)
		s.post(narrationReady{gen: gen, text: text})
	})
}

func (s *Session) onNarration(e narrationReady) {
	if e.gen != s.reqGen {
		return
	}
	s.endRequest()
	s.busy = false
	if s.mode == ModeProcessingNav {
		s.setMode(ModeMonitoring)
	}
	if e.text != "" {
		s.say(e.text)
	}
	s.scheduler.Schedule(s.cfg.PostNarrationDelay)
}

func (s *Session) startAsk() {
	if s.mode == ModeListening {
		return
	}
	s.scheduler.Cancel()
	s.abandonRequest()
	s.speech.Cancel()

	s.busy = true
	s.setMode(ModeListening)
	if err := s.voice.Begin(); err != nil {
		msg := msgMicError
		if errors.Is(err, shared.ErrCapabilityUnsupported) {
			msg = msgUnsupported
		} else {
			s.log.Warn("failed to start recognition", "error", err)
		}
		s.settle(s.cfg.ListenRetryDelay)
		s.say(msg)
	}
}

func (s *Session) onRecognition(e RecognitionEvent) {
	outcome, transcript := s.voice.Resolve(e)
	switch outcome {
	case OutcomeStarted:
		s.speech.Cue(audio.EarconListen)
		s.device.Vibrate(hapticListening...)
		s.device.ShowStatus(ModeListening, msgListening)
	case OutcomeTranscript:
		s.onTranscript(transcript)
	case OutcomeNoResult:
		s.settle(s.cfg.ListenRetryDelay)
	case OutcomeTransientError:
		s.settle(s.cfg.ErrorRetryDelay)
	case OutcomeFatalError:
		s.settle(s.cfg.ErrorRetryDelay)
		s.say(msgMicError)
	}
}

func (s *Session) onTranscript(transcript string) {
	intent := Classify(transcript)
	s.log.Info("transcript received", "intent", intent.String())
	s.speech.Cue(audio.EarconProcessing)

	if intent == IntentTag {
		s.setMode(ModeProcessingTag)
		s.device.ShowStatus(ModeProcessingTag, fmt.Sprintf("Tagging: %q", transcript))
		gen, ctx := s.beginRequest()
		s.spawn(func() {
			tag, err := s.tagStore.Add(ctx, transcript)
			s.post(tagAdded{gen: gen, tag: tag, err: err})
		})
		return
	}

	s.setMode(ModeProcessingQA)
	s.device.ShowStatus(ModeProcessingQA, fmt.Sprintf("%q", transcript))
	img, ok := s.camera.CaptureFrame()
	if ok {
		s.remember(img)
	} else if s.hasImage {
		img = s.lastImage
	} else {
		s.respond(msgNothingVisible)
		return
	}

	gen, ctx := s.beginRequest()
	s.spawn(func() {
		answer, err := s.answerer.Ask(ctx, img, transcript)
		s.post(answerReady{gen: gen, answer: answer, err: err})
	})
}

func (s *Session) onAnswer(e answerReady) {
	if e.gen != s.reqGen {
		return
	}
	s.endRequest()

	text := e.answer
	switch {
	case e.err != nil:
		s.log.Warn("question answering failed", "error", e.err)
		text = msgAnswerFailed
	case text == "":
		text = msgNoAnswer
	}
	s.respond(text)
}

func (s *Session) onTagAdded(e tagAdded) {
	if e.gen != s.reqGen {
		return
	}
	s.endRequest()

	if e.err != nil {
		if !errors.Is(e.err, tags.ErrLimitReached) && !errors.Is(e.err, tags.ErrNameTooShort) {
			s.log.Error("failed to save tag", "error", e.err)
		}
		s.device.Vibrate(hapticFailure...)
	} else {
		s.log.Info("tag saved", "tag_id", e.tag.ID, "name", e.tag.Name)
		s.device.Vibrate(hapticSuccess...)
		s.loadTags()
	}
	s.respond(tags.Message(e.tag, e.err))
}

func (s *Session) scan() {
	if s.mode != ModeIdle || s.busy {
		return
	}
	s.busy = true
	s.setMode(ModeProcessingNav)
	s.device.Vibrate(hapticScan...)
	s.say(msgScanning)

	img, ok := s.camera.CaptureFrame()
	if !ok {
		s.device.Vibrate(hapticFailure...)
		s.respond(msgScanFailed)
		return
	}
	s.remember(img)

	gen, ctx := s.beginRequest()
	s.spawn(func() {
		text := s.analyzer.Analyze(ctx, img, nil)
		s.post(scanReady{gen: gen, text: text})
	})
}

func (s *Session) onScan(e scanReady) {
	if e.gen != s.reqGen {
		return
	}
	s.endRequest()
	if e.text == "" {
		s.device.Vibrate(hapticFailure...)
		s.respond(msgScanFailed)
		return
	}
	s.device.Vibrate(hapticSuccess...)
	s.respond(e.text)
}

func (s *Session) remember(img vision.Image) {
	s.lastImage = img
	s.hasImage = true
}

func (s *Session) loadTags() {
	ctx := s.ctx
	s.spawn(func() {
		list, err := s.tagStore.List(ctx)
		s.post(tagsLoaded{list: list, err: err})
	})
}

func (s *Session) onTagsLoaded(e tagsLoaded) {
	if e.err != nil {
		s.log.Warn("failed to load tags", "error", e.err)
		return
	}
	s.tagList = e.list
	s.device.ShowTags(e.list)
}

func (s *Session) deleteTag(id string) {
	ctx := s.ctx
	s.spawn(func() {
		err := s.tagStore.Remove(ctx, id)
		s.post(tagDeleted{id: id, err: err})
	})
}

func (s *Session) onTagDeleted(e tagDeleted) {
	if e.err != nil {
		s.log.Error("failed to delete tag", "tag_id", e.id, "error", e.err)
		s.say(msgTagDeleteFailed)
		return
	}
	s.loadTags()
	s.say(msgTagDeleted)
}
