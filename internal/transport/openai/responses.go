package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/domain"
	"github.com/kailas-cloud/regassist/internal/metrics"
)

// GatewayConfig holds the model provider settings.
type GatewayConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	ToolType        string
	ToolChoice      string
	MaxOutputTokens int
	Logger          *zap.Logger
}

// Gateway issues stateless Responses API calls, optionally with the provider's web search tool.
type Gateway struct {
	client     oai.Client
	configured bool
	model      string
	toolType   string
	toolChoice string
	maxOutput  int
	logger     *zap.Logger
}

// NewGateway creates a model gateway. The SDK's own retries are disabled: the only retry is the tool fallback.
func NewGateway(cfg *GatewayConfig) *Gateway {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gateway{
		client:     oai.NewClient(opts...),
		configured: cfg.APIKey != "",
		model:      cfg.Model,
		toolType:   cfg.ToolType,
		toolChoice: cfg.ToolChoice,
		maxOutput:  cfg.MaxOutputTokens,
		logger:     logger,
	}
}

// Configured reports whether a provider credential is set.
func (g *Gateway) Configured() bool { return g.configured }

// Model returns the configured model name.
func (g *Gateway) Model() string { return g.model }

func (g *Gateway) params(req domain.CompletionRequest) (responses.ResponseNewParams, []option.RequestOption) {
	params := responses.ResponseNewParams{
		Model:        g.model,
		Instructions: oai.String(req.Instructions),
		Input:        responses.ResponseNewParamsInputUnion{OfString: oai.String(req.Input)},
	}
	if g.maxOutput > 0 {
		params.MaxOutputTokens = oai.Int(int64(g.maxOutput))
	}

	// The tool type is configurable and may not exist in the SDK's typed tool union,
	// so tools are set on the raw body.
	var opts []option.RequestOption
	if req.UseTools && g.toolType != "" {
		opts = append(opts,
			option.WithJSONSet("tools", []map[string]string{{"type": g.toolType}}),
			option.WithJSONSet("tool_choice", g.toolChoice),
		)
	}
	return params, opts
}

// Complete implements a single-shot model call.
func (g *Gateway) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if !g.configured {
		return domain.Completion{}, domain.ErrMissingCredential
	}

	params, opts := g.params(req)
	start := time.Now()
	resp, err := g.client.Responses.New(ctx, params, opts...)
	g.observe("batch", req.UseTools, start, err)
	if err != nil {
		return domain.Completion{}, classifyError(err)
	}

	out, err := normalizeResponse([]byte(resp.RawJSON()))
	if err != nil {
		// Typed fallback when the raw body cannot be re-read.
		out = normalized{Text: resp.OutputText(), Model: string(resp.Model)}
	}
	if strings.TrimSpace(out.Text) == "" {
		return domain.Completion{}, domain.ErrEmptyResponse
	}
	if out.Model == "" {
		out.Model = g.model
	}
	g.recordUsage(out.Usage)

	g.logger.Debug("model call completed",
		zap.String("model", out.Model),
		zap.Bool("tools", req.UseTools),
		zap.Stringer("shape", out.Shape),
		zap.Int("total_tokens", out.Usage.TotalTokens),
	)

	return domain.Completion{Text: out.Text, Model: out.Model, Usage: out.Usage}, nil
}

// Stream issues a streaming model call and hands every text delta to onDelta as it arrives.
// Iteration stops at the first terminal provider event. An error from onDelta aborts the stream.
// The returned Completion holds the full text and the reported usage.
func (g *Gateway) Stream(
	ctx context.Context,
	req domain.CompletionRequest,
	onDelta func(text string) error,
) (domain.Completion, error) {
	if !g.configured {
		return domain.Completion{}, domain.ErrMissingCredential
	}

	params, opts := g.params(req)
	start := time.Now()
	stream := g.client.Responses.NewStreaming(ctx, params, opts...)
	defer func() { _ = stream.Close() }()

	var (
		deltas strings.Builder
		done   strings.Builder
		usage  domain.TokenUsage
		failed string
	)

loop:
	for stream.Next() {
		current := stream.Current()
		ev, err := decodeStreamEvent(current.Type, []byte(current.RawJSON()))
		if err != nil {
			g.logger.Warn("skipping undecodable stream event", zap.Error(err))
			continue
		}

		switch ev.Kind {
		case domain.ProviderDelta:
			if ev.Text == "" {
				continue
			}
			deltas.WriteString(ev.Text)
			if err := onDelta(ev.Text); err != nil {
				g.observe("stream", req.UseTools, start, err)
				return domain.Completion{}, err
			}
		case domain.ProviderTextDone:
			done.WriteString(ev.Text)
		case domain.ProviderCompleted:
			usage = ev.Usage
			break loop
		case domain.ProviderFailed:
			failed = ev.Error
			break loop
		case domain.ProviderOther:
		}
	}

	if err := stream.Err(); err != nil {
		g.observe("stream", req.UseTools, start, err)
		return domain.Completion{}, classifyError(err)
	}
	if failed != "" {
		err := fmt.Errorf("stream failed: %s: %w", failed, domain.ErrProviderError)
		g.observe("stream", req.UseTools, start, err)
		return domain.Completion{}, err
	}
	g.observe("stream", req.UseTools, start, nil)

	text := done.String()
	if text == "" {
		text = deltas.String()
	}
	if strings.TrimSpace(text) == "" {
		return domain.Completion{}, domain.ErrEmptyResponse
	}
	g.recordUsage(usage)

	return domain.Completion{Text: text, Model: g.model, Usage: usage}, nil
}

func (g *Gateway) observe(mode string, tools bool, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.LLMRequestsTotal.WithLabelValues(g.model, mode, strconv.FormatBool(tools), status).Inc()
	metrics.LLMRequestDuration.WithLabelValues(g.model, mode).Observe(time.Since(start).Seconds())
}

func (g *Gateway) recordUsage(u domain.TokenUsage) {
	if u.InputTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(g.model, "input").Add(float64(u.InputTokens))
	}
	if u.OutputTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(g.model, "output").Add(float64(u.OutputTokens))
	}
}

// classifyError maps provider failures onto the domain sentinels. The provider message is kept
// in the error text; the tool fallback matches on it.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("model request: %w: %w", err, domain.ErrProviderError)
	}

	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		sentinel := domain.ErrProviderError
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			sentinel = domain.ErrProviderRateLimited
		case http.StatusUnauthorized:
			sentinel = domain.ErrProviderUnauthorized
		}
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return fmt.Errorf("model API error %d: %s: %w", apiErr.StatusCode, msg, sentinel)
	}

	return fmt.Errorf("model request failed: %v: %w", err, domain.ErrProviderError)
}
