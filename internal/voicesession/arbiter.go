package voicesession

import (
	"log/slog"
	"strings"
)

type RecognitionKind int

const (
	RecognitionStarted RecognitionKind = iota
	RecognitionResult
	RecognitionError
	RecognitionEnded
)

// RecognitionEvent is a recognizer callback tagged with the session id that
// was current when the recognition was started.
type RecognitionEvent struct {
	SessionID  uint64
	Kind       RecognitionKind
	Transcript string
	Error      string
}

type Outcome int

const (
	OutcomeIgnore Outcome = iota
	OutcomeStarted
	OutcomeTranscript
	OutcomeNoResult
	OutcomeTransientError
	OutcomeFatalError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeTranscript:
		return "transcript"
	case OutcomeNoResult:
		return "no_result"
	case OutcomeTransientError:
		return "transient_error"
	case OutcomeFatalError:
		return "fatal_error"
	default:
		return "ignore"
	}
}

// IsTransientRecognitionError reports the error kinds that end a recognition
// silently.
func IsTransientRecognitionError(kind string) bool {
	switch kind {
	case "no-speech", "aborted":
		return true
	}
	return false
}

// VoiceArbiter owns the single recognition session. Each Begin hands the
// recognizer callbacks bound to a fresh id; Abort moves the id on so anything
// the old recognition still reports is ignored. A session settles exactly once.
type VoiceArbiter struct {
	recognizer Recognizer
	post       func(RecognitionEvent)
	log        *slog.Logger

	current  uint64
	active   bool
	received bool
}

func NewVoiceArbiter(recognizer Recognizer, post func(RecognitionEvent), logger *slog.Logger) *VoiceArbiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoiceArbiter{
		recognizer: recognizer,
		post:       post,
		log:        logger,
	}
}

func (a *VoiceArbiter) Begin() error {
	if a.active {
		a.Abort()
	}
	a.current++
	id := a.current
	a.received = false

	err := a.recognizer.Start(RecognitionCallbacks{
		OnStart: func() {
			a.post(RecognitionEvent{SessionID: id, Kind: RecognitionStarted})
		},
		OnResult: func(transcript string) {
			a.post(RecognitionEvent{SessionID: id, Kind: RecognitionResult, Transcript: transcript})
		},
		OnError: func(kind string) {
			a.post(RecognitionEvent{SessionID: id, Kind: RecognitionError, Error: kind})
		},
		OnEnd: func() {
			a.post(RecognitionEvent{SessionID: id, Kind: RecognitionEnded})
		},
	})
	if err != nil {
		a.current++
		return err
	}
	a.active = true
	return nil
}

// Stop asks the recognizer to finish. The final result, if any, is still
// accepted.
func (a *VoiceArbiter) Stop() {
	if a.active {
		a.recognizer.Stop()
	}
}

func (a *VoiceArbiter) Abort() {
	if a.active {
		a.recognizer.Stop()
	}
	a.active = false
	a.current++
}

func (a *VoiceArbiter) Active() bool {
	return a.active
}

func (a *VoiceArbiter) Resolve(e RecognitionEvent) (Outcome, string) {
	if e.SessionID != a.current || a.received {
		return OutcomeIgnore, ""
	}

	switch e.Kind {
	case RecognitionStarted:
		if !a.active {
			return OutcomeIgnore, ""
		}
		return OutcomeStarted, ""

	case RecognitionResult:
		transcript := strings.TrimSpace(e.Transcript)
		if transcript == "" {
			return OutcomeIgnore, ""
		}
		a.settle(true)
		return OutcomeTranscript, transcript

	case RecognitionError:
		a.settle(false)
		if IsTransientRecognitionError(e.Error) {
			a.log.Debug("recognition ended without speech", "kind", e.Error)
			return OutcomeTransientError, ""
		}
		a.log.Warn("recognition error", "kind", e.Error)
		return OutcomeFatalError, ""

	case RecognitionEnded:
		a.settle(false)
		return OutcomeNoResult, ""
	}
	return OutcomeIgnore, ""
}

func (a *VoiceArbiter) settle(stop bool) {
	a.received = true
	if a.active && stop {
		a.recognizer.Stop()
	}
	a.active = false
}
