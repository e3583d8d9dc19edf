package domain

// CompletionRequest is a single stateless model call.
type CompletionRequest struct {
	Instructions string
	Input        string
	UseTools     bool
}

// TokenUsage is what the provider reports for one call.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Completion is the normalized result of a model call.
type Completion struct {
	Text  string
	Model string
	Usage TokenUsage
}

// ProviderEventKind is the normalized discriminant of a provider stream event.
type ProviderEventKind int

// Provider stream event kinds.
const (
	ProviderOther ProviderEventKind = iota
	ProviderDelta
	ProviderTextDone
	ProviderCompleted
	ProviderFailed
)

// ProviderEvent is one inbound provider stream event after decoding.
type ProviderEvent struct {
	Kind  ProviderEventKind
	Text  string
	Usage TokenUsage
	Error string
}
