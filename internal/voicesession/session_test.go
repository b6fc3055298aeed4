package voicesession

import (
	"context"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/eleven-am/sightline/internal/audio"
	"github.com/eleven-am/sightline/internal/shared"
	"github.com/eleven-am/sightline/internal/tags"
	"github.com/eleven-am/sightline/internal/vision"
)

func activeHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, Config{})
	h.tap()
	h.expectMode(ModeMonitoring)
	return h
}

func (h *harness) expectScheduled(d time.Duration) {
	h.t.Helper()
	due, ok := h.s.scheduler.Due()
	if !ok {
		h.t.Fatal("expected a pending wake-up")
	}
	if want := h.clock.Now().Add(d); !due.Equal(want) {
		h.t.Fatalf("expected wake-up in %v, got %v", d, due.Sub(h.clock.Now()))
	}
}

func (h *harness) storedTags() []tags.Tag {
	h.t.Helper()
	list, err := h.s.tagStore.List(context.Background())
	if err != nil {
		h.t.Fatalf("List: %v", err)
	}
	return list
}

func TestSession_MountIdle(t *testing.T) {
	h := newHarness(t, Config{})

	h.expectMode(ModeIdle)
	if h.s.scheduler.Pending() {
		t.Error("idle session should not schedule narration")
	}
	if h.device.spokenCount() != 0 {
		t.Errorf("idle mount should be silent, spoke %v", h.device.spoken)
	}
	if len(h.device.shownTags) != 1 {
		t.Errorf("expected tags pushed on mount, got %d", len(h.device.shownTags))
	}
	if got := h.device.statuses[len(h.device.statuses)-1]; got.text != msgTapToStart {
		t.Errorf("expected tap-to-start status, got %q", got.text)
	}
}

func TestSession_AutoStart(t *testing.T) {
	h := newHarness(t, Config{AutoStart: true})

	h.expectMode(ModeMonitoring)
	if h.device.lastSpoken() != msgActive {
		t.Errorf("expected %q, got %q", msgActive, h.device.lastSpoken())
	}
	h.expectScheduled(time.Second)
}

func TestSession_TapActivates(t *testing.T) {
	h := activeHarness(t)

	if h.device.lastSpoken() != msgActive {
		t.Errorf("expected %q, got %q", msgActive, h.device.lastSpoken())
	}
	if !slices.Equal(h.device.lastVibration(), hapticActivate) {
		t.Errorf("expected activation haptic, got %v", h.device.lastVibration())
	}
	h.expectScheduled(time.Second)
}

func TestSession_NarrationCycle(t *testing.T) {
	h := activeHarness(t)
	h.analyzer.narration = "Clear path ahead."

	h.advance(time.Second)
	h.expectMode(ModeProcessingNav)
	if h.s.scheduler.Pending() {
		t.Error("no wake-up should be pending while narrating")
	}

	h.settle()
	h.expectMode(ModeMonitoring)
	if h.device.lastSpoken() != "Clear path ahead." {
		t.Errorf("expected narration spoken, got %q", h.device.lastSpoken())
	}
	h.expectScheduled(4 * time.Second)

	h.advance(4 * time.Second)
	h.settle()
	if h.analyzer.analyzed != 2 {
		t.Errorf("expected second narration, got %d", h.analyzer.analyzed)
	}
}

func TestSession_NarrationPassesTagNames(t *testing.T) {
	h := activeHarness(t)
	if _, err := h.s.tagStore.Add(context.Background(), "remember this is my sofa"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	h.s.RefreshTags()
	h.settle()

	h.advance(time.Second)
	h.settle()

	if len(h.analyzer.gotTags) != 1 || !slices.Equal(h.analyzer.gotTags[0], []string{"Sofa"}) {
		t.Errorf("expected tag context [Sofa], got %v", h.analyzer.gotTags)
	}
}

func TestSession_EmptyNarrationIsSilent(t *testing.T) {
	h := activeHarness(t)
	before := h.device.spokenCount()

	h.advance(time.Second)
	h.settle()

	if h.device.spokenCount() != before {
		t.Errorf("empty narration should not speak, got %q", h.device.lastSpoken())
	}
	h.expectMode(ModeMonitoring)
	h.expectScheduled(4 * time.Second)
}

func TestSession_NoFrameSkipsCycle(t *testing.T) {
	h := activeHarness(t)
	h.camera.ok = false

	h.advance(time.Second)

	if len(h.spawned) != 0 || h.analyzer.analyzed != 0 {
		t.Error("no analysis should start without a frame")
	}
	h.expectMode(ModeMonitoring)
	h.expectScheduled(4 * time.Second)
}

func TestSession_BusyDefersNarration(t *testing.T) {
	h := activeHarness(t)
	h.s.busy = true

	h.advance(time.Second)

	if h.camera.calls != 0 {
		t.Error("busy session must not capture")
	}
	h.expectScheduled(500 * time.Millisecond)

	h.s.busy = false
	h.advance(500 * time.Millisecond)
	h.expectMode(ModeProcessingNav)
}

func TestSession_CameraReadyReschedulesFirstFrame(t *testing.T) {
	h := activeHarness(t)
	h.s.scheduler.Schedule(4 * time.Second)

	h.s.CameraReady()
	h.drain()

	h.expectScheduled(time.Second)
}

func TestSession_ToggleOffDuringNarration(t *testing.T) {
	h := activeHarness(t)
	h.analyzer.narration = "Stairs ahead."

	h.advance(time.Second)
	h.expectMode(ModeProcessingNav)

	h.tap()
	h.expectMode(ModeIdle)
	if h.device.lastSpoken() != msgPaused {
		t.Errorf("expected %q, got %q", msgPaused, h.device.lastSpoken())
	}
	if !h.device.hasCue(audio.EarconStop) {
		t.Error("expected stop earcon")
	}
	if !slices.Equal(h.device.lastVibration(), hapticPause) {
		t.Errorf("expected pause haptic, got %v", h.device.lastVibration())
	}

	h.settle()
	if h.device.lastSpoken() != msgPaused {
		t.Errorf("late narration must be discarded, got %q", h.device.lastSpoken())
	}
	if h.s.scheduler.Pending() {
		t.Error("deactivation must leave no pending wake-up")
	}
	if h.s.busy {
		t.Error("deactivation must clear the busy lock")
	}

	h.advance(time.Minute)
	h.settle()
	if h.analyzer.analyzed != 1 {
		t.Errorf("no narration may run after deactivation, got %d", h.analyzer.analyzed)
	}
}

func TestSession_QuestionAnswerResumesOnce(t *testing.T) {
	h := activeHarness(t)
	h.analyzer.answer = "A door is in front of you."

	h.hold()
	h.expectMode(ModeListening)
	if h.s.scheduler.Pending() {
		t.Error("narration must be suspended while listening")
	}

	h.recognized("what is in front of me")
	h.s.PointerUp()
	h.drain()
	h.expectMode(ModeProcessingQA)
	if !h.device.hasCue(audio.EarconListen) || !h.device.hasCue(audio.EarconProcessing) {
		t.Errorf("expected listen and processing earcons, got %v", h.device.cues)
	}

	h.settle()
	h.expectMode(ModeSpeaking)
	if h.device.lastSpoken() != "A door is in front of you." {
		t.Errorf("expected answer spoken, got %q", h.device.lastSpoken())
	}
	if h.s.scheduler.Pending() {
		t.Error("narration must stay suspended until the answer is spoken")
	}

	h.device.finishLastUtterance()
	h.drain()
	h.expectMode(ModeMonitoring)
	h.expectScheduled(2 * time.Second)

	h.device.finishLastUtterance()
	h.drain()
	h.expectScheduled(2 * time.Second)

	h.advance(2 * time.Second)
	h.settle()
	if h.analyzer.analyzed != 1 {
		t.Errorf("expected exactly one resumed narration, got %d", h.analyzer.analyzed)
	}
}

func TestSession_QuestionUsesLastImageWhenCaptureFails(t *testing.T) {
	h := activeHarness(t)
	first := vision.Image{Data: []byte("first-frame"), MimeType: vision.MimeJPEG}
	h.camera.img = first

	h.advance(time.Second)
	h.settle()

	h.camera.ok = false
	h.hold()
	h.recognized("is the door open")
	h.settle()

	if len(h.analyzer.images) != 1 || string(h.analyzer.images[0].Data) != "first-frame" {
		t.Fatalf("expected last captured image to be used, got %v", h.analyzer.images)
	}
}

func TestSession_QuestionWithoutAnyImage(t *testing.T) {
	h := activeHarness(t)
	h.camera.ok = false

	h.hold()
	h.recognized("what is this")
	h.settle()

	if h.device.lastSpoken() != msgNothingVisible {
		t.Errorf("expected %q, got %q", msgNothingVisible, h.device.lastSpoken())
	}
	if len(h.analyzer.questions) != 0 {
		t.Error("no question should be sent without an image")
	}
	h.expectMode(ModeSpeaking)
}

func TestSession_QuestionFailures(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		err    error
		want   string
	}{
		{"remote error", "", fmt.Errorf("vision: %w", shared.ErrRemoteCall), msgAnswerFailed},
		{"empty answer", "", nil, msgNoAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := activeHarness(t)
			h.analyzer.answer = tt.answer
			h.analyzer.answerErr = tt.err

			h.hold()
			h.recognized("what color is the wall")
			h.settle()

			if h.device.lastSpoken() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, h.device.lastSpoken())
			}
		})
	}
}

func TestSession_TagCommand(t *testing.T) {
	h := activeHarness(t)

	h.hold()
	h.recognized("Remember this is my sofa")
	h.expectMode(ModeProcessingTag)

	h.settle()
	if h.device.lastSpoken() != "Remembered Sofa." {
		t.Errorf("expected confirmation, got %q", h.device.lastSpoken())
	}
	if !slices.Equal(h.device.lastVibration(), hapticSuccess) {
		t.Errorf("expected success haptic, got %v", h.device.lastVibration())
	}
	shown := h.device.shownTags[len(h.device.shownTags)-1]
	if len(shown) != 1 || shown[0].Name != "Sofa" {
		t.Errorf("expected device tag list refreshed, got %v", shown)
	}
	if len(h.analyzer.questions) != 0 {
		t.Error("tag command must not be sent as a question")
	}

	h.device.finishLastUtterance()
	h.drain()
	h.expectMode(ModeMonitoring)
}

func TestSession_TagRejected(t *testing.T) {
	h := activeHarness(t)
	ctx := context.Background()
	_, _ = h.s.tagStore.Add(ctx, "remember kitchen")
	_, _ = h.s.tagStore.Add(ctx, "remember front door")

	h.hold()
	h.recognized("mark this as the red door")
	h.settle()

	if h.device.lastSpoken() != "Tag limit reached." {
		t.Errorf("expected limit message, got %q", h.device.lastSpoken())
	}
	if !slices.Equal(h.device.lastVibration(), hapticFailure) {
		t.Errorf("expected failure haptic, got %v", h.device.lastVibration())
	}
	if got := len(h.storedTags()); got != 2 {
		t.Errorf("expected 2 stored tags, got %d", got)
	}

	h.device.finishLastUtterance()
	h.drain()
	h.expectMode(ModeMonitoring)
}

func TestSession_TagStoreFailure(t *testing.T) {
	h := newHarnessWithTags(t, Config{}, failingTags{err: errBoom})
	h.tap()

	h.hold()
	h.recognized("remember the stairs")
	h.settle()

	if h.device.lastSpoken() != "Could not save tag." {
		t.Errorf("expected save failure message, got %q", h.device.lastSpoken())
	}
}

func TestSession_ReleaseStopsRecognition(t *testing.T) {
	h := activeHarness(t)

	h.hold()
	h.device.callbacks().OnStart()
	h.drain()

	h.s.PointerUp()
	h.drain()
	if h.device.recStops != 1 {
		t.Errorf("release should stop recognition, got %d stops", h.device.recStops)
	}
	h.expectMode(ModeListening)

	h.device.callbacks().OnEnd()
	h.drain()
	h.expectMode(ModeMonitoring)
	h.expectScheduled(500 * time.Millisecond)
}

func TestSession_TransientRecognitionErrorIsSilent(t *testing.T) {
	h := activeHarness(t)

	h.hold()
	before := h.device.spokenCount()
	cb := h.device.callbacks()
	cb.OnStart()
	cb.OnError("no-speech")
	cb.OnEnd()
	h.drain()

	h.expectMode(ModeMonitoring)
	if h.device.spokenCount() != before {
		t.Errorf("transient error must be silent, got %q", h.device.lastSpoken())
	}
	h.expectScheduled(time.Second)
}

func TestSession_FatalRecognitionErrorSpeaks(t *testing.T) {
	h := activeHarness(t)

	h.hold()
	h.device.callbacks().OnError("audio-capture")
	h.drain()

	h.expectMode(ModeMonitoring)
	if h.device.lastSpoken() != msgMicError {
		t.Errorf("expected %q, got %q", msgMicError, h.device.lastSpoken())
	}
	h.expectScheduled(time.Second)
}

func TestSession_RecognitionUnsupported(t *testing.T) {
	tests := []struct {
		name      string
		autoStart bool
		want      Mode
	}{
		{"from monitoring", true, ModeMonitoring},
		{"from idle", false, ModeIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Config{AutoStart: tt.autoStart})
			h.device.startErr = fmt.Errorf("speech recognition: %w", shared.ErrCapabilityUnsupported)

			h.hold()

			h.expectMode(tt.want)
			if h.device.lastSpoken() != msgUnsupported {
				t.Errorf("expected %q, got %q", msgUnsupported, h.device.lastSpoken())
			}
			if h.s.busy {
				t.Error("busy lock must be released")
			}
		})
	}
}

func TestSession_StaleResultAfterDeactivation(t *testing.T) {
	h := activeHarness(t)

	h.hold()
	cb := h.device.callbacks()
	cb.OnStart()
	h.drain()

	h.s.Toggle()
	h.drain()
	h.expectMode(ModeIdle)

	cb.OnResult("remember this is my sofa")
	cb.OnEnd()
	h.settle()

	h.expectMode(ModeIdle)
	if len(h.storedTags()) != 0 {
		t.Error("stale transcript must not add a tag")
	}
	if h.device.lastSpoken() != msgPaused {
		t.Errorf("stale transcript must not produce speech, got %q", h.device.lastSpoken())
	}
}

func TestSession_HoldDuringNarrationDropsIt(t *testing.T) {
	h := activeHarness(t)
	h.analyzer.narration = "Chair on the left."

	h.advance(time.Second)
	h.expectMode(ModeProcessingNav)
	h.hold()
	h.expectMode(ModeListening)

	h.settle()
	if h.device.lastSpoken() == "Chair on the left." {
		t.Error("narration finishing during listening must be dropped")
	}
	h.expectMode(ModeListening)
}

func TestSession_SpeechWatchdogUnsticks(t *testing.T) {
	h := activeHarness(t)
	h.analyzer.answer = "Yes."

	h.hold()
	h.recognized("is it open")
	h.settle()
	h.expectMode(ModeSpeaking)

	h.advance(DefaultMaxUtterance)
	h.expectMode(ModeMonitoring)
}

func TestSession_AnnouncementWhileSpeakingKeepsResume(t *testing.T) {
	h := activeHarness(t)
	h.analyzer.answer = "It is a kitchen."
	tag, err := h.s.tagStore.Add(context.Background(), "remember kitchen")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	h.hold()
	h.recognized("where am I")
	h.settle()
	h.expectMode(ModeSpeaking)

	h.s.DeleteTag(tag.ID)
	h.settle()
	if h.device.lastSpoken() != msgTagDeleted {
		t.Fatalf("expected %q, got %q", msgTagDeleted, h.device.lastSpoken())
	}

	h.device.finishLastUtterance()
	h.drain()
	h.expectMode(ModeMonitoring)
}

func TestSession_DeleteTag(t *testing.T) {
	h := newHarness(t, Config{})
	tag, err := h.s.tagStore.Add(context.Background(), "remember front door")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	h.s.DeleteTag(tag.ID)
	h.settle()

	if h.device.lastSpoken() != msgTagDeleted {
		t.Errorf("expected %q, got %q", msgTagDeleted, h.device.lastSpoken())
	}
	if shown := h.device.shownTags[len(h.device.shownTags)-1]; len(shown) != 0 {
		t.Errorf("expected empty tag list pushed, got %v", shown)
	}
}

func TestSession_DeleteTagFailure(t *testing.T) {
	h := newHarnessWithTags(t, Config{}, failingTags{err: errBoom})

	h.s.DeleteTag("tag-1")
	h.settle()

	if h.device.lastSpoken() != msgTagDeleteFailed {
		t.Errorf("expected %q, got %q", msgTagDeleteFailed, h.device.lastSpoken())
	}
}

func TestSession_Scan(t *testing.T) {
	h := newHarness(t, Config{})
	h.analyzer.narration = "A table with two cups."

	h.s.Scan()
	h.drain()
	h.expectMode(ModeProcessingNav)
	if h.device.lastSpoken() != msgScanning {
		t.Errorf("expected %q, got %q", msgScanning, h.device.lastSpoken())
	}

	h.settle()
	if h.device.lastSpoken() != "A table with two cups." {
		t.Errorf("expected scan result, got %q", h.device.lastSpoken())
	}
	if h.analyzer.gotTags[0] != nil {
		t.Errorf("single scan should not pass tag context, got %v", h.analyzer.gotTags[0])
	}

	h.device.finishLastUtterance()
	h.drain()
	h.expectMode(ModeIdle)
	if h.s.scheduler.Pending() {
		t.Error("single scan must not start the narration loop")
	}
}

func TestSession_ScanFailures(t *testing.T) {
	h := newHarness(t, Config{})
	h.camera.ok = false

	h.s.Scan()
	h.settle()
	if h.device.lastSpoken() != msgScanFailed {
		t.Errorf("expected %q, got %q", msgScanFailed, h.device.lastSpoken())
	}

	h.device.finishLastUtterance()
	h.drain()
	h.camera.ok = true
	h.s.Scan()
	h.settle()
	if h.device.lastSpoken() != msgScanFailed {
		t.Errorf("empty description should report failure, got %q", h.device.lastSpoken())
	}
}

func TestSession_ScanIgnoredWhileActive(t *testing.T) {
	h := activeHarness(t)

	h.s.Scan()
	h.drain()

	if h.device.lastSpoken() == msgScanning {
		t.Error("scan should only run from idle")
	}
}

func TestSession_MutualExclusion(t *testing.T) {
	h := activeHarness(t)
	h.analyzer.narration = "Hallway."
	h.analyzer.answer = "A lamp."

	check := func(step string) {
		t.Helper()
		if h.s.reqCancel != nil && h.s.voice.Active() {
			t.Fatalf("%s: request and recognition in flight together", step)
		}
		if h.s.scheduler.Pending() && h.s.busy && h.s.mode != ModeMonitoring {
			due, _ := h.s.scheduler.Due()
			if due.Sub(h.clock.Now()) != h.s.cfg.BusyRetryDelay {
				t.Fatalf("%s: wake-up pending while busy", step)
			}
		}
	}

	steps := []struct {
		name string
		do   func()
	}{
		{"first frame", func() { h.advance(time.Second) }},
		{"hold", h.hold},
		{"result", func() { h.recognized("what is that") }},
		{"release", func() { h.s.PointerUp(); h.drain() }},
		{"answer", h.settle},
		{"spoken", func() { h.device.finishLastUtterance(); h.drain() }},
		{"resume", func() { h.advance(2 * time.Second) }},
		{"hold again", h.hold},
		{"tag", func() { h.recognized("remember the lamp") }},
		{"tag saved", h.settle},
		{"toggle", func() { h.s.Toggle(); h.drain() }},
		{"late", h.settle},
	}

	for _, step := range steps {
		step.do()
		check(step.name)
	}
	if h.s.scheduler.Pending() {
		t.Error("expected no pending wake-up after deactivation")
	}
}

func TestSession_RunAndClose(t *testing.T) {
	device := &fakeDevice{}
	s := New("sess-run", "dev-run", Config{AutoStart: true}, Deps{
		Camera:   &fakeCamera{},
		Analyzer: &fakeAnalyzer{},
		Answerer: &fakeAnalyzer{},
		Tags:     failingTags{err: errBoom},
		Device:   device,
		Clock:    newFakeClock(),
		Logger:   discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	deadline := time.After(2 * time.Second)
	for s.Mode() != ModeMonitoring {
		select {
		case <-deadline:
			t.Fatal("session did not start")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after context cancel")
	}
	if s.Mode() != ModeIdle {
		t.Errorf("expected idle after close, got %s", s.Mode())
	}

	s.Toggle()
	s.Close()
}

func TestSession_RefusedSpeechKeepsLoopDraining(t *testing.T) {
	device := &fakeDevice{speakErr: fmt.Errorf("speech synthesis: %w", shared.ErrCapabilityUnsupported)}
	s := New("sess-mute", "dev-mute", Config{}, Deps{
		Camera:   &fakeCamera{},
		Analyzer: &fakeAnalyzer{},
		Answerer: &fakeAnalyzer{},
		Tags:     failingTags{err: errBoom},
		Device:   device,
		Clock:    newFakeClock(),
		Logger:   discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	flooded := make(chan struct{})
	go func() {
		for i := 0; i < 40*eventQueueSize; i++ {
			s.Toggle()
		}
		close(flooded)
	}()

	select {
	case <-flooded:
	case <-time.After(3 * time.Second):
		t.Fatalf("event loop stopped draining, mode=%s queued=%d", s.Mode(), len(s.events))
	}

	s.Close()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
}

func TestSession_RefusedAnswerStillResumes(t *testing.T) {
	h := activeHarness(t)
	h.analyzer.answer = "A door."

	h.hold()
	h.recognized("what is ahead")
	h.device.speakErr = shared.ErrCapabilityUnsupported
	h.settle()

	h.expectMode(ModeMonitoring)
	if h.s.busy {
		t.Error("busy lock should be released")
	}
	h.expectScheduled(2 * time.Second)
	if len(h.s.events) != 0 {
		t.Errorf("refused speech must not queue completions, got %d", len(h.s.events))
	}
}

func TestSession_DeleteTagWhileListeningIsSilent(t *testing.T) {
	h := activeHarness(t)
	tag, err := h.s.tagStore.Add(context.Background(), "remember front door")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	h.hold()
	h.device.callbacks().OnStart()
	h.drain()
	h.expectMode(ModeListening)
	spoken := h.device.spokenCount()

	h.s.DeleteTag(tag.ID)
	h.settle()

	h.expectMode(ModeListening)
	if h.device.spokenCount() != spoken {
		t.Errorf("nothing may be spoken while listening, got %q", h.device.lastSpoken())
	}
	last := h.device.statuses[len(h.device.statuses)-1]
	if last.text != msgTagDeleted || last.mode != ModeListening {
		t.Errorf("expected deletion shown as status, got %+v", last)
	}
	if len(h.storedTags()) != 0 {
		t.Error("tag should still be deleted")
	}
}

func TestSession_TapDuringIdleScanActivates(t *testing.T) {
	h := newHarness(t, Config{})
	h.analyzer.narration = "A table with two cups."

	h.s.Scan()
	h.settle()
	h.expectMode(ModeSpeaking)

	h.tap()
	h.expectMode(ModeMonitoring)
	if h.device.lastSpoken() != msgActive {
		t.Errorf("expected %q, got %q", msgActive, h.device.lastSpoken())
	}
	if h.s.busy {
		t.Error("scan busy lock should be dropped")
	}
	h.expectScheduled(time.Second)

	h.device.finishLastUtterance()
	h.drain()
	h.expectMode(ModeMonitoring)
}

func TestSession_Identity(t *testing.T) {
	h := newHarness(t, Config{})
	if h.s.ID() != "sess-1" || h.s.DeviceID() != "dev-1" {
		t.Errorf("unexpected identity %s/%s", h.s.ID(), h.s.DeviceID())
	}
	if !h.s.StartedAt().Equal(h.clock.Now()) {
		t.Errorf("expected start time from clock")
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{PostNarrationDelay: 6 * time.Second}.withDefaults()
	if cfg.PostNarrationDelay != 6*time.Second {
		t.Errorf("explicit value overwritten: %v", cfg.PostNarrationDelay)
	}
	if cfg.FirstFrameDelay != time.Second || cfg.BusyRetryDelay != 500*time.Millisecond {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.ResumeDelay != 2*time.Second || cfg.HoldThreshold != DefaultHoldThreshold {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
