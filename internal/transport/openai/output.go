package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/regassist/internal/domain"
)

// outputShape tells which of the two Responses API payload layouts carried the answer.
type outputShape int

const (
	shapeEmpty outputShape = iota
	// shapeFlat is the convenience "output_text" field.
	shapeFlat
	// shapeNested is output[].content[] with string or object parts.
	shapeNested
)

func (s outputShape) String() string {
	switch s {
	case shapeFlat:
		return "flat"
	case shapeNested:
		return "nested"
	default:
		return "empty"
	}
}

type responsePayload struct {
	Model      string        `json:"model"`
	OutputText *string       `json:"output_text"`
	Output     []outputItem  `json:"output"`
	Usage      *usagePayload `json:"usage"`
	Error      *errorPayload `json:"error"`
}

type outputItem struct {
	Type    string            `json:"type"`
	Content []json.RawMessage `json:"content"`
}

type usagePayload struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

func (u *usagePayload) toDomain() domain.TokenUsage {
	if u == nil {
		return domain.TokenUsage{}
	}
	total := u.TotalTokens
	if total == 0 {
		total = u.InputTokens + u.OutputTokens
	}
	return domain.TokenUsage{InputTokens: u.InputTokens, OutputTokens: u.OutputTokens, TotalTokens: total}
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// normalized is the provider answer reduced to what the pipeline consumes.
type normalized struct {
	Text  string
	Model string
	Usage domain.TokenUsage
	Shape outputShape
}

// normalizeResponse extracts answer text from a raw Responses API body.
// The flat field wins when present and non-blank; otherwise text parts of every output item are concatenated.
func normalizeResponse(raw []byte) (normalized, error) {
	var p responsePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return normalized{}, fmt.Errorf("decode response: %w", err)
	}

	out := normalized{Model: p.Model, Usage: p.Usage.toDomain()}

	if p.OutputText != nil && strings.TrimSpace(*p.OutputText) != "" {
		out.Text = *p.OutputText
		out.Shape = shapeFlat
		return out, nil
	}

	var b strings.Builder
	for _, item := range p.Output {
		for _, part := range item.Content {
			b.WriteString(partText(part))
		}
	}
	if b.Len() > 0 {
		out.Text = b.String()
		out.Shape = shapeNested
	}
	return out, nil
}

// partText reads one content part. Parts are a bare string, {"text": "..."} or {"text": {"value": "..."}}.
// Anything else contributes nothing.
func partText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}

	var obj struct {
		Text json.RawMessage `json:"text"`
	}
	if json.Unmarshal(raw, &obj) != nil || len(obj.Text) == 0 {
		return ""
	}
	if json.Unmarshal(obj.Text, &s) == nil {
		return s
	}

	var wrapped struct {
		Value string `json:"value"`
	}
	if json.Unmarshal(obj.Text, &wrapped) == nil {
		return wrapped.Value
	}
	return ""
}

// streamPayload covers the fields of every stream event type the gateway reacts to.
type streamPayload struct {
	Type     string           `json:"type"`
	Delta    string           `json:"delta"`
	Text     string           `json:"text"`
	Message  string           `json:"message"`
	Code     string           `json:"code"`
	Response *responsePayload `json:"response"`
}

// decodeStreamEvent maps one raw stream event to a provider event.
// Unknown event types map to domain.ProviderOther and are ignored by the consumer. So does a payload
// that does not decode; the error is returned for logging only.
func decodeStreamEvent(eventType string, raw []byte) (domain.ProviderEvent, error) {
	var p streamPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.ProviderEvent{Kind: domain.ProviderOther}, fmt.Errorf("decode stream event %q: %w", eventType, err)
	}
	if eventType == "" {
		eventType = p.Type
	}

	switch eventType {
	case "response.output_text.delta":
		return domain.ProviderEvent{Kind: domain.ProviderDelta, Text: p.Delta}, nil
	case "response.output_text.done":
		return domain.ProviderEvent{Kind: domain.ProviderTextDone, Text: p.Text}, nil
	case "response.completed", "response.done", "response.incomplete":
		ev := domain.ProviderEvent{Kind: domain.ProviderCompleted}
		if p.Response != nil {
			ev.Usage = p.Response.Usage.toDomain()
		}
		return ev, nil
	case "response.failed":
		msg := eventType
		if p.Response != nil && p.Response.Error != nil && p.Response.Error.Message != "" {
			msg = p.Response.Error.Message
		}
		return domain.ProviderEvent{Kind: domain.ProviderFailed, Error: msg}, nil
	case "error":
		msg := p.Message
		if msg == "" {
			msg = "stream error"
		}
		if p.Code != "" {
			msg = p.Code + ": " + msg
		}
		return domain.ProviderEvent{Kind: domain.ProviderFailed, Error: msg}, nil
	default:
		return domain.ProviderEvent{Kind: domain.ProviderOther}, nil
	}
}
