package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eleven-am/sightline/internal/audio"
	"github.com/eleven-am/sightline/internal/dto"
	"github.com/eleven-am/sightline/internal/shared"
	"github.com/eleven-am/sightline/internal/tags"
	"github.com/eleven-am/sightline/internal/transport"
	"github.com/eleven-am/sightline/internal/voicesession"
)

const cueFormatWAV = "wav"

var ErrUnknownMessage = errors.New("unknown message type")

// Controls is the part of a session driven by device input.
type Controls interface {
	PointerDown()
	PointerUp()
	Toggle()
	Scan()
	DeleteTag(id string)
}

// FrameSink receives camera snapshots from the device.
type FrameSink interface {
	HandleFrame(data []byte, mimeType string) error
}

type DeviceConfig struct {
	Conn       transport.Connection
	Earcons    *audio.EarconBank
	SampleRate int
	SpeechRate float64
	Lang       string
	Logger     *slog.Logger
}

// Device proxies the session's output collaborators onto a device connection
// and routes the device's lifecycle reports back to the pending callbacks.
type Device struct {
	conn       transport.Connection
	earcons    *audio.EarconBank
	sampleRate int
	speechRate float64
	lang       string
	logger     *slog.Logger

	mu         sync.Mutex
	caps       transport.Capabilities
	utterances map[string]func()
	recID      string
	recCB      voicesession.RecognitionCallbacks
}

func NewDevice(cfg DeviceConfig) *Device {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Earcons == nil {
		cfg.Earcons = audio.NewEarconBank()
	}
	return &Device{
		conn:       cfg.Conn,
		earcons:    cfg.Earcons,
		sampleRate: cfg.SampleRate,
		speechRate: cfg.SpeechRate,
		lang:       cfg.Lang,
		logger:     cfg.Logger.With("component", "device"),
		caps:       transport.AllCapabilities(),
		utterances: make(map[string]func()),
	}
}

func (d *Device) Capabilities() transport.Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.caps
}

func (d *Device) SetCapabilities(caps transport.Capabilities) {
	d.mu.Lock()
	d.caps = caps
	d.mu.Unlock()
}

func (d *Device) Speak(text string, onDone func()) error {
	d.mu.Lock()
	if !d.caps.Speech {
		d.mu.Unlock()
		return fmt.Errorf("speak: %w", shared.ErrCapabilityUnsupported)
	}
	id := shared.NewID("utt_")
	d.utterances[id] = onDone
	d.mu.Unlock()

	if err := d.send(transport.MessageTypeSpeak, transport.SpeakPayload{ID: id, Text: text, Rate: d.speechRate}); err != nil {
		d.mu.Lock()
		delete(d.utterances, id)
		d.mu.Unlock()
		return err
	}
	return nil
}

// CancelAll stops device speech. Pending completions are dropped.
func (d *Device) CancelAll() {
	d.mu.Lock()
	clear(d.utterances)
	d.mu.Unlock()

	if err := d.send(transport.MessageTypeCancelSpeech, nil); err != nil {
		d.logger.Debug("cancel speech not delivered", "error", err)
	}
}

func (d *Device) HandleSpeechDone(id string) {
	d.mu.Lock()
	onDone, ok := d.utterances[id]
	delete(d.utterances, id)
	d.mu.Unlock()

	if ok && onDone != nil {
		onDone()
	}
}

func (d *Device) Start(cb voicesession.RecognitionCallbacks) error {
	d.mu.Lock()
	if !d.caps.Recognition {
		d.mu.Unlock()
		return fmt.Errorf("start recognition: %w", shared.ErrCapabilityUnsupported)
	}
	id := shared.NewID("rec_")
	d.recID = id
	d.recCB = cb
	d.mu.Unlock()

	if err := d.send(transport.MessageTypeStartRecognition, transport.StartRecognitionPayload{ID: id, Lang: d.lang}); err != nil {
		d.mu.Lock()
		if d.recID == id {
			d.recID = ""
			d.recCB = voicesession.RecognitionCallbacks{}
		}
		d.mu.Unlock()
		return err
	}
	return nil
}

// Stop asks the device to finish the current recognition. Its final result
// and end reports are still delivered.
func (d *Device) Stop() {
	d.mu.Lock()
	id := d.recID
	d.mu.Unlock()
	if id == "" {
		return
	}

	if err := d.send(transport.MessageTypeStopRecognition, transport.StopRecognitionPayload{ID: id}); err != nil {
		d.logger.Debug("stop recognition not delivered", "error", err)
	}
}

// HandleRecognition routes a recognition report to the callbacks of the
// recognition it names. Reports for any other id are ignored.
func (d *Device) HandleRecognition(t transport.MessageType, p transport.RecognitionPayload) {
	d.mu.Lock()
	if p.ID == "" || p.ID != d.recID {
		d.mu.Unlock()
		return
	}
	cb := d.recCB
	if t == transport.MessageTypeRecognitionEnd {
		d.recID = ""
		d.recCB = voicesession.RecognitionCallbacks{}
	}
	d.mu.Unlock()

	switch t {
	case transport.MessageTypeRecognitionStart:
		if cb.OnStart != nil {
			cb.OnStart()
		}
	case transport.MessageTypeRecognitionResult:
		if cb.OnResult != nil {
			cb.OnResult(p.Transcript)
		}
	case transport.MessageTypeRecognitionError:
		if cb.OnError != nil {
			cb.OnError(p.Error)
		}
	case transport.MessageTypeRecognitionEnd:
		if cb.OnEnd != nil {
			cb.OnEnd()
		}
	}
}

func (d *Device) PlayCue(e audio.Earcon) {
	data, err := d.earcons.WAV(e, d.sampleRate)
	if err != nil {
		d.logger.Warn("failed to render earcon", "earcon", e, "error", err)
		return
	}
	if err := d.send(transport.MessageTypeCue, transport.CuePayload{Name: string(e), Format: cueFormatWAV, Data: data}); err != nil {
		d.logger.Debug("cue not delivered", "error", err)
	}
}

func (d *Device) Vibrate(pattern ...int) {
	if len(pattern) == 0 || !d.Capabilities().Haptics {
		return
	}
	if err := d.send(transport.MessageTypeVibrate, transport.VibratePayload{PatternMS: pattern}); err != nil {
		d.logger.Debug("vibrate not delivered", "error", err)
	}
}

func (d *Device) ShowStatus(mode voicesession.Mode, text string) {
	if err := d.send(transport.MessageTypeStatus, transport.StatusPayload{Mode: string(mode), Text: text}); err != nil {
		d.logger.Debug("status not delivered", "error", err)
	}
}

func (d *Device) ShowTags(list []tags.Tag) {
	out := make([]dto.TagResponse, len(list))
	for i, t := range list {
		out[i] = tags.ToResponse(t)
	}
	if err := d.send(transport.MessageTypeTags, transport.TagsPayload{Tags: out}); err != nil {
		d.logger.Debug("tags not delivered", "error", err)
	}
}

func (d *Device) ReportError(message string) {
	if err := d.send(transport.MessageTypeError, transport.ErrorPayload{Message: message}); err != nil {
		d.logger.Debug("error report not delivered", "error", err)
	}
}

// Dispatch routes one device message to the device proxy, the session
// controls or the frame sink.
func (d *Device) Dispatch(env transport.Envelope, ctl Controls, frames FrameSink) error {
	switch env.Type {
	case transport.MessageTypeHello:
		var p transport.HelloPayload
		if err := env.Decode(&p); err != nil {
			return err
		}
		d.SetCapabilities(p.Capabilities)
		d.logger.Info("device capabilities",
			"speech", p.Capabilities.Speech,
			"recognition", p.Capabilities.Recognition,
			"haptics", p.Capabilities.Haptics,
		)

	case transport.MessageTypePointerDown:
		ctl.PointerDown()
	case transport.MessageTypePointerUp:
		ctl.PointerUp()
	case transport.MessageTypeToggle:
		ctl.Toggle()
	case transport.MessageTypeScan:
		ctl.Scan()

	case transport.MessageTypeFrame:
		var p transport.FramePayload
		if err := env.Decode(&p); err != nil {
			return err
		}
		return frames.HandleFrame(p.Data, p.MimeType)

	case transport.MessageTypeSpeechDone:
		var p transport.SpeechDonePayload
		if err := env.Decode(&p); err != nil {
			return err
		}
		d.HandleSpeechDone(p.ID)

	case transport.MessageTypeRecognitionStart,
		transport.MessageTypeRecognitionResult,
		transport.MessageTypeRecognitionError,
		transport.MessageTypeRecognitionEnd:
		var p transport.RecognitionPayload
		if err := env.Decode(&p); err != nil {
			return err
		}
		d.HandleRecognition(env.Type, p)

	case transport.MessageTypeDeleteTag:
		var p transport.DeleteTagPayload
		if err := env.Decode(&p); err != nil {
			return err
		}
		if p.ID == "" {
			return fmt.Errorf("delete_tag: %w", transport.ErrEmptyPayload)
		}
		ctl.DeleteTag(p.ID)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownMessage, env.Type)
	}
	return nil
}

func (d *Device) send(t transport.MessageType, payload any) error {
	env, err := transport.NewEnvelope(t, payload)
	if err != nil {
		return err
	}
	return d.conn.Send(context.Background(), env)
}
