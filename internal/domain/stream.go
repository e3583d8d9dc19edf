package domain

// StreamEventType discriminates StreamEvent.
type StreamEventType string

// Stream event types. A stream is exactly one start, any number of deltas, then one done or error.
const (
	StreamStart StreamEventType = "start"
	StreamDelta StreamEventType = "delta"
	StreamDone  StreamEventType = "done"
	StreamError StreamEventType = "error"
)

// StreamEvent is one client-visible frame of a streamed answer.
type StreamEvent struct {
	Type  StreamEventType `json:"type"`
	Model string          `json:"model,omitempty"`
	Text  string          `json:"text,omitempty"`
	Error string          `json:"error,omitempty"`
}

// StartEvent opens a stream.
func StartEvent(model string) StreamEvent { return StreamEvent{Type: StreamStart, Model: model} }

// DeltaEvent carries an incremental text fragment.
func DeltaEvent(text string) StreamEvent { return StreamEvent{Type: StreamDelta, Text: text} }

// DoneEvent terminates a stream with the full text.
func DoneEvent(text string) StreamEvent { return StreamEvent{Type: StreamDone, Text: text} }

// ErrorEvent terminates a stream with a failure.
func ErrorEvent(msg string) StreamEvent { return StreamEvent{Type: StreamError, Error: msg} }

// Terminal reports whether e ends the stream.
func (e StreamEvent) Terminal() bool { return e.Type == StreamDone || e.Type == StreamError }
