package transport

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eleven-am/sightline/internal/dto"
)

type MessageType string

// Device to server.
const (
	MessageTypeHello             MessageType = "hello"
	MessageTypePointerDown       MessageType = "pointer_down"
	MessageTypePointerUp         MessageType = "pointer_up"
	MessageTypeToggle            MessageType = "toggle"
	MessageTypeScan              MessageType = "scan"
	MessageTypeFrame             MessageType = "frame"
	MessageTypeSpeechDone        MessageType = "speech_done"
	MessageTypeRecognitionStart  MessageType = "recognition_start"
	MessageTypeRecognitionResult MessageType = "recognition_result"
	MessageTypeRecognitionError  MessageType = "recognition_error"
	MessageTypeRecognitionEnd    MessageType = "recognition_end"
	MessageTypeDeleteTag         MessageType = "delete_tag"
)

// Server to device.
const (
	MessageTypeSpeak            MessageType = "speak"
	MessageTypeCancelSpeech     MessageType = "cancel_speech"
	MessageTypeCue              MessageType = "cue"
	MessageTypeVibrate          MessageType = "vibrate"
	MessageTypeStartRecognition MessageType = "start_recognition"
	MessageTypeStopRecognition  MessageType = "stop_recognition"
	MessageTypeStatus           MessageType = "status"
	MessageTypeTags             MessageType = "tags"
	MessageTypeError            MessageType = "error"
)

var ErrEmptyPayload = errors.New("transport: empty payload")

// Envelope is one JSON text frame on the device channel.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewEnvelope(t MessageType, payload any) (Envelope, error) {
	env := Envelope{Type: t}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	env.Payload = data
	return env, nil
}

func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return ErrEmptyPayload
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

type Capabilities struct {
	Speech      bool `json:"speech"`
	Recognition bool `json:"recognition"`
	Haptics     bool `json:"haptics"`
}

func AllCapabilities() Capabilities {
	return Capabilities{Speech: true, Recognition: true, Haptics: true}
}

type HelloPayload struct {
	Capabilities Capabilities `json:"capabilities"`
}

// FramePayload carries one camera frame; Data is base64 on the wire.
type FramePayload struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

type SpeechDonePayload struct {
	ID string `json:"id"`
}

type RecognitionPayload struct {
	ID         string `json:"id"`
	Transcript string `json:"transcript,omitempty"`
	Error      string `json:"error,omitempty"`
}

type DeleteTagPayload struct {
	ID string `json:"id"`
}

type SpeakPayload struct {
	ID   string  `json:"id"`
	Text string  `json:"text"`
	Rate float64 `json:"rate,omitempty"`
}

type CuePayload struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Data   []byte `json:"data"`
}

type VibratePayload struct {
	PatternMS []int `json:"pattern_ms"`
}

type StartRecognitionPayload struct {
	ID   string `json:"id"`
	Lang string `json:"lang,omitempty"`
}

type StopRecognitionPayload struct {
	ID string `json:"id"`
}

type StatusPayload struct {
	Mode string `json:"mode"`
	Text string `json:"text"`
}

type TagsPayload struct {
	Tags []dto.TagResponse `json:"tags"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
