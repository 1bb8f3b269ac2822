// Package channel defines the boundary to the remote conversational
// service. Implementations own their network lifecycle and surface inbound
// traffic as a single ordered stream of typed events.
package channel

import "context"

// EventKind enumerates the inbound message kinds the session controller
// dispatches on.
type EventKind string

const (
	// EventAudio carries one decoded PCM16 response chunk at the sink rate.
	EventAudio EventKind = "audio"
	// EventInputTranscription carries a candidate-side transcription delta.
	EventInputTranscription EventKind = "input_transcription"
	// EventOutputTranscription carries an agent-side transcription delta.
	EventOutputTranscription EventKind = "output_transcription"
	// EventTurnComplete marks the end of one conversational exchange.
	EventTurnComplete EventKind = "turn_complete"
	// EventInterrupted signals barge-in: the candidate spoke over the agent.
	EventInterrupted EventKind = "interrupted"
	// EventClosed signals that the remote side closed the channel.
	EventClosed EventKind = "closed"
	// EventError carries a channel-level failure.
	EventError EventKind = "error"
)

// Event is one inbound message, already decoded. Exactly the fields
// relevant to its kind are populated.
type Event struct {
	Kind EventKind
	PCM  []byte
	Text string
	Err  error
}

// Setup is the configuration payload sent when opening the channel.
type Setup struct {
	Model               string
	Voice               string
	SystemInstruction   string
	InputTranscription  bool
	OutputTranscription bool
}

// WireFrame is one outbound capture frame in wire encoding: base64 PCM16
// plus its mime type.
type WireFrame struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Channel is the vendor-agnostic live session handle. Events() yields
// inbound events strictly in arrival order; the channel closes the stream
// after EventClosed or a fatal EventError.
type Channel interface {
	Name() string
	Open(ctx context.Context, setup Setup) error
	Close() error
	Events() <-chan Event
	SendAudio(frame WireFrame) error
}
