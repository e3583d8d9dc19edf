package sdk

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Turn is one prior exchange of the conversation.
type Turn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// AskRequest is one user question.
type AskRequest struct {
	Message string `json:"message"`
	// UseWebSearch defaults to true on the server when nil.
	UseWebSearch *bool  `json:"useWebSearch,omitempty"`
	History      []Turn `json:"history,omitempty"`
}

// Answer is the result of a batch question.
type Answer struct {
	Success   bool   `json:"success"`
	Response  string `json:"response"`
	Mode      string `json:"mode"` // "responses", "responses-fallback" or "social"
	Model     string `json:"model"`
	WebSearch bool   `json:"webSearch"`
	RAGUsed   bool   `json:"ragUsed"`
}

// EventType discriminates stream events.
type EventType string

// Stream event types: one start, deltas, then done or error.
const (
	EventStart EventType = "start"
	EventDelta EventType = "delta"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Event is one stream frame. Done carries the full sanitized answer.
type Event struct {
	Type  EventType `json:"type"`
	Model string    `json:"model,omitempty"`
	Text  string    `json:"text,omitempty"`
	Error string    `json:"error,omitempty"`
}

// Ask sends a question and waits for the full answer.
func (c *Client) Ask(ctx context.Context, req AskRequest) (Answer, error) {
	var ans Answer
	if err := c.do(ctx, "ask", http.MethodPost, "/api/ai", req, &ans); err != nil {
		return Answer{}, err
	}
	return ans, nil
}

// Stream sends a question and calls fn for every event, the terminal one included.
// An error event is also returned as *StreamError. A non-nil error from fn stops reading.
// Errors raised before the stream starts come back as *APIError.
func (c *Client) Stream(ctx context.Context, req AskRequest, fn func(Event) error) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("stream", start, err) }()

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/ai/stream", req)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return readEvents(resp, fn)
}

var dataPrefix = []byte("data:")

func readEvents(resp *http.Response, fn func(Event) error) error {
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64<<10), 4<<20)

	for sc.Scan() {
		line := sc.Bytes()
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		var ev Event
		if err := json.Unmarshal(bytes.TrimSpace(line[len(dataPrefix):]), &ev); err != nil {
			return fmt.Errorf("stream: decode event: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
		switch ev.Type {
		case EventDone:
			return nil
		case EventError:
			return &StreamError{Message: ev.Error}
		case EventStart, EventDelta:
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("stream: read: %w", err)
	}
	return fmt.Errorf("stream: %w", ErrStreamTruncated)
}
