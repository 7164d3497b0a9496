// Package wire defines the push-channel message model. The server sends
// text frames containing one or more newline-delimited JSON envelopes of
// the form {type, data}; each recognized type decodes into exactly one
// variant of Message.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType tags a push-channel envelope.
type MessageType string

const (
	TypeLog                 MessageType = "log"
	TypeTranslationProgress MessageType = "translation_progress"
	TypePageTranslation     MessageType = "page_translation"
	TypeTranslationComplete MessageType = "translation_complete"
	TypeTranslationError    MessageType = "translation_error"
)

// ErrUnknownType is returned by Decode for a well-formed envelope whose
// type tag is not part of the contract. Callers drop these with a debug
// log entry; they are never fatal.
var ErrUnknownType = errors.New("unknown message type")

// Message is the decoded form of one envelope. Exactly one of the
// variant fields is non-nil, matching Type.
type Message struct {
	Type            MessageType
	Log             *LogEvent
	Progress        *ProgressEvent
	PageTranslation *PageTranslationEvent
	Complete        *CompleteEvent
	Error           *ErrorEvent
}

// LogEvent is a server-side log line forwarded to the client panel.
type LogEvent struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Module  string `json:"module,omitempty"`
}

// ProgressEvent reports whole-job translation progress.
type ProgressEvent struct {
	DocumentID        string  `json:"epub_id"`
	TotalSections     int     `json:"total_chapters"`
	CompletedSections int     `json:"completed_chapters"`
	CurrentSection    string  `json:"current_chapter"`
	ProgressPercent   float64 `json:"progress_percent"`
	Status            string  `json:"status"`
}

// PageTranslationEvent carries one finished section translation.
//
// Older servers emitted Go-style field names, so both spellings are part
// of the wire contract: "chapter_id" or "ChapterID" for the section id,
// and "translated_text" or "TranslatedText" for the content. The
// snake_case name wins when both are present.
type PageTranslationEvent struct {
	DocumentID     string
	SectionID      string
	TranslatedText string
}

func (e *PageTranslationEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		DocumentID        string `json:"epub_id"`
		SectionID         string `json:"chapter_id"`
		SectionIDAlt      string `json:"ChapterID"`
		TranslatedText    string `json:"translated_text"`
		TranslatedTextAlt string `json:"TranslatedText"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.DocumentID = raw.DocumentID
	e.SectionID = raw.SectionID
	if e.SectionID == "" {
		e.SectionID = raw.SectionIDAlt
	}
	e.TranslatedText = raw.TranslatedText
	if e.TranslatedText == "" {
		e.TranslatedText = raw.TranslatedTextAlt
	}
	return nil
}

// CompleteEvent signals that the whole job finished.
type CompleteEvent struct {
	DocumentID string `json:"epub_id"`
}

// ErrorEvent signals a failed job.
type ErrorEvent struct {
	DocumentID string `json:"epub_id"`
	Error      string `json:"error"`
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode parses one envelope. For an unrecognized type tag it returns a
// Message carrying only the tag together with ErrUnknownType.
func Decode(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Message{}, fmt.Errorf("decoding envelope: %w", err)
	}

	msg := Message{Type: MessageType(env.Type)}
	switch msg.Type {
	case TypeLog:
		msg.Log = &LogEvent{}
		if err := json.Unmarshal(env.Data, msg.Log); err != nil {
			return Message{}, fmt.Errorf("decoding log event: %w", err)
		}
	case TypeTranslationProgress:
		msg.Progress = &ProgressEvent{}
		if err := json.Unmarshal(env.Data, msg.Progress); err != nil {
			return Message{}, fmt.Errorf("decoding progress event: %w", err)
		}
	case TypePageTranslation:
		msg.PageTranslation = &PageTranslationEvent{}
		if err := json.Unmarshal(env.Data, msg.PageTranslation); err != nil {
			return Message{}, fmt.Errorf("decoding page translation event: %w", err)
		}
	case TypeTranslationComplete:
		msg.Complete = &CompleteEvent{}
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, msg.Complete); err != nil {
				return Message{}, fmt.Errorf("decoding completion event: %w", err)
			}
		}
	case TypeTranslationError:
		msg.Error = &ErrorEvent{}
		if err := json.Unmarshal(env.Data, msg.Error); err != nil {
			return Message{}, fmt.Errorf("decoding error event: %w", err)
		}
	default:
		return msg, ErrUnknownType
	}
	return msg, nil
}

// SplitFrame splits one websocket text frame into its newline-delimited
// messages, dropping empty lines. The server batches queued messages
// into a single frame this way.
func SplitFrame(frame []byte) [][]byte {
	var out [][]byte
	for _, line := range bytes.Split(frame, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			out = append(out, line)
		}
	}
	return out
}
