package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

// Client to server: application commands and platform events relayed by the
// browser adapter.
const (
	TypeClientHello       MessageType = "client_hello"
	TypeSpeakRequest      MessageType = "speak_request"
	TypePlayIntro         MessageType = "play_intro"
	TypeCancelSpeech      MessageType = "cancel_speech"
	TypeSetVoiceMode      MessageType = "set_voice_mode"
	TypeStartListening    MessageType = "start_listening"
	TypeStopListening     MessageType = "stop_listening"
	TypeClearTranscript   MessageType = "clear_transcript"
	TypeUserInteraction   MessageType = "user_interaction"
	TypeVoiceCatalog      MessageType = "voice_catalog"
	TypeUtteranceDone     MessageType = "utterance_done"
	TypeUtteranceError    MessageType = "utterance_error"
	TypeRecognitionResult MessageType = "recognition_result"
	TypeRecognitionError  MessageType = "recognition_error"
	TypeRecognitionEnd    MessageType = "recognition_end"
)

// Server to client: synthesis/recognition commands for the browser adapter
// and state published to the application.
const (
	TypeSpeakUtterance   MessageType = "speak_utterance"
	TypeCancelAll        MessageType = "cancel_all"
	TypeRecognitionStart MessageType = "recognition_start"
	TypeRecognitionStop  MessageType = "recognition_stop"
	TypeRecognitionAbort MessageType = "recognition_abort"
	TypeStateUpdate      MessageType = "state_update"
	TypeErrorEvent       MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientHello announces which platform capabilities the connected adapter
// actually has. Absent capabilities turn the matching operations into
// permanent no-ops for the session.
type ClientHello struct {
	Type                 MessageType `json:"type"`
	SynthesisSupported   bool        `json:"synthesis_supported"`
	RecognitionSupported bool        `json:"recognition_supported"`
}

type SpeakRequest struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type PlayIntro struct {
	Type MessageType `json:"type"`
	Key  string      `json:"key"`
	Text string      `json:"text"`
}

type CancelSpeech struct {
	Type MessageType `json:"type"`
}

type SetVoiceMode struct {
	Type    MessageType `json:"type"`
	Enabled bool        `json:"enabled"`
}

type StartListening struct {
	Type MessageType `json:"type"`
}

type StopListening struct {
	Type MessageType `json:"type"`
}

type ClearTranscript struct {
	Type MessageType `json:"type"`
}

type UserInteraction struct {
	Type MessageType `json:"type"`
	Kind string      `json:"kind"`
}

type CatalogVoice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

type VoiceCatalog struct {
	Type   MessageType    `json:"type"`
	Voices []CatalogVoice `json:"voices"`
}

type UtteranceDone struct {
	Type        MessageType `json:"type"`
	UtteranceID string      `json:"utterance_id"`
}

type UtteranceError struct {
	Type        MessageType `json:"type"`
	UtteranceID string      `json:"utterance_id"`
	Code        string      `json:"code"`
}

type RecognitionResultEntry struct {
	Transcript string `json:"transcript"`
	Final      bool   `json:"final"`
}

// RecognitionResultSet always carries the complete current result list for
// the session, never a delta.
type RecognitionResultSet struct {
	Type      MessageType              `json:"type"`
	SessionID string                   `json:"recognition_id"`
	Results   []RecognitionResultEntry `json:"results"`
}

type RecognitionError struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"recognition_id"`
	Code      string      `json:"code"`
}

type RecognitionEnd struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"recognition_id"`
}

type SpeakUtterance struct {
	Type        MessageType `json:"type"`
	UtteranceID string      `json:"utterance_id"`
	Text        string      `json:"text"`
	VoiceName   string      `json:"voice_name,omitempty"`
	Pitch       float64     `json:"pitch"`
	Rate        float64     `json:"rate"`
}

type CancelAll struct {
	Type MessageType `json:"type"`
}

type RecognitionStart struct {
	Type            MessageType `json:"type"`
	SessionID       string      `json:"recognition_id"`
	Lang            string      `json:"lang"`
	Continuous      bool        `json:"continuous"`
	InterimResults  bool        `json:"interim_results"`
	MaxAlternatives int         `json:"max_alternatives"`
}

type RecognitionStop struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"recognition_id"`
}

type RecognitionAbort struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"recognition_id"`
}

type StateUpdate struct {
	Type  MessageType `json:"type"`
	State any         `json:"state"`
}

type ErrorEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientHello:
		var msg ClientHello
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeSpeakRequest:
		var msg SpeakRequest
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Text == "" {
			return nil, errors.New("invalid speak_request")
		}
		return msg, nil
	case TypePlayIntro:
		var msg PlayIntro
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Key == "" || msg.Text == "" {
			return nil, errors.New("invalid play_intro")
		}
		return msg, nil
	case TypeCancelSpeech:
		var msg CancelSpeech
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeSetVoiceMode:
		var msg SetVoiceMode
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeStartListening:
		var msg StartListening
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeStopListening:
		var msg StopListening
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeClearTranscript:
		var msg ClearTranscript
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeUserInteraction:
		var msg UserInteraction
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeVoiceCatalog:
		var msg VoiceCatalog
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeUtteranceDone:
		var msg UtteranceDone
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.UtteranceID == "" {
			return nil, errors.New("invalid utterance_done")
		}
		return msg, nil
	case TypeUtteranceError:
		var msg UtteranceError
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.UtteranceID == "" {
			return nil, errors.New("invalid utterance_error")
		}
		return msg, nil
	case TypeRecognitionResult:
		var msg RecognitionResultSet
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid recognition_result")
		}
		return msg, nil
	case TypeRecognitionError:
		var msg RecognitionError
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid recognition_error")
		}
		return msg, nil
	case TypeRecognitionEnd:
		var msg RecognitionEnd
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid recognition_end")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
