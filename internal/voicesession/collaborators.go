package voicesession

import (
	"context"

	"github.com/eleven-am/sightline/internal/audio"
	"github.com/eleven-am/sightline/internal/tags"
	"github.com/eleven-am/sightline/internal/vision"
)

type Camera interface {
	CaptureFrame() (vision.Image, bool)
}

// SceneAnalyzer never fails; an empty string means nothing worth saying.
type SceneAnalyzer interface {
	Analyze(ctx context.Context, img vision.Image, tagNames []string) string
}

type QuestionAnswerer interface {
	Ask(ctx context.Context, img vision.Image, question string) (string, error)
}

type TagStore interface {
	List(ctx context.Context) ([]tags.Tag, error)
	Add(ctx context.Context, description string) (*tags.Tag, error)
	Remove(ctx context.Context, id string) error
}

type RecognitionCallbacks struct {
	OnStart  func()
	OnResult func(transcript string)
	OnError  func(kind string)
	OnEnd    func()
}

// Recognizer starts one recognition at a time. Start returns an error wrapping
// shared.ErrCapabilityUnsupported when the device has no recognition API.
type Recognizer interface {
	Start(cb RecognitionCallbacks) error
	Stop()
}

// Synthesizer returns an error wrapping shared.ErrCapabilityUnsupported when
// the device cannot speak; onDone is not called in that case.
type Synthesizer interface {
	Speak(text string, onDone func()) error
	CancelAll()
}

type CuePlayer interface {
	PlayCue(e audio.Earcon)
}

type Haptics interface {
	Vibrate(pattern ...int)
}

type Presenter interface {
	ShowStatus(mode Mode, text string)
	ShowTags(list []tags.Tag)
}

// Device bundles the collaborators a connected client provides.
type Device interface {
	Recognizer
	Synthesizer
	CuePlayer
	Haptics
	Presenter
}

type noopOutput struct{}

func (noopOutput) PlayCue(audio.Earcon) {}
func (noopOutput) Vibrate(...int) {}
func (noopOutput) ShowStatus(Mode, string) {}
func (noopOutput) ShowTags([]tags.Tag) {}
