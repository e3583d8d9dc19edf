package assistant

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/domain"
	"github.com/kailas-cloud/regassist/internal/domain/intent"
	"github.com/kailas-cloud/regassist/internal/domain/prompt"
	"github.com/kailas-cloud/regassist/internal/logger"
	"github.com/kailas-cloud/regassist/internal/metrics"
	"github.com/kailas-cloud/regassist/internal/usecase/quota"
)

// Answer modes.
const (
	ModeResponses = "responses"
	ModeFallback  = "responses-fallback"
	ModeSocial    = "social"
)

const backgroundTimeout = 10 * time.Second

// Request is one user turn.
type Request struct {
	UserID       string
	Role         domain.Role
	Message      string
	UseWebSearch bool
	History      prompt.History
}

// Answer is a completed turn.
type Answer struct {
	Text      string
	Mode      string
	Model     string
	WebSearch bool // tools enabled on the call that produced Text
	RAGUsed   bool
	Usage     domain.TokenUsage
}

// Deps are the pipeline collaborators.
type Deps struct {
	Classifier Classifier
	Retriever  Retriever
	Model      Model
	Quota      QuotaGuard
	Sanitizer  Sanitizer
	Sources    SourceObserver
}

// Options tune the pipeline.
type Options struct {
	Policy           string
	ToolErrorMarkers []string
	CallTimeout      time.Duration // per model call; 0 = none
}

// Service runs the query pipeline: quota, intent, retrieval, prompt, model call with tool fallback,
// sanitizing and the detached side effects.
type Service struct {
	deps     Deps
	policy   string
	detector ToolErrorDetector
	timeout  time.Duration
	bg       sync.WaitGroup
}

// New creates the pipeline.
func New(deps Deps, opts Options) *Service {
	policy := opts.Policy
	if policy == "" {
		policy = prompt.DefaultSystemPolicy
	}
	return &Service{
		deps:     deps,
		policy:   policy,
		detector: NewToolErrorDetector(opts.ToolErrorMarkers),
		timeout:  opts.CallTimeout,
	}
}

// turn is the state shared by the batch and stream paths once admission succeeded.
type turn struct {
	req         Request
	message     string
	cls         intent.Result
	prompt      prompt.Prompt
	useTools    bool
	reservation *quota.Reservation
}

// admit validates the request, checks the credential and reserves quota, then prepares the prompt.
// Nothing is reserved when it fails.
func (s *Service) admit(ctx context.Context, req Request) (*turn, *domain.PipelineError) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, domain.NewPipelineError(domain.KindValidation, msgEmptyMessage, domain.ErrEmptyMessage)
	}
	if !s.deps.Model.Configured() {
		return nil, domain.NewPipelineError(domain.KindConfiguration, msgMissingCredential, domain.ErrMissingCredential)
	}

	decision, reservation, err := s.deps.Quota.CheckAndReserve(ctx, req.UserID, req.Role)
	if err != nil {
		return nil, domain.NewPipelineError(domain.KindQuotaUnavailable, msgQuotaUnavailable, err)
	}
	if !decision.Allowed {
		return nil, quotaError(decision)
	}

	cls := s.deps.Classifier.Classify(message)
	rag := s.deps.Retriever.Retrieve(ctx, message, cls)
	p := prompt.Build(prompt.Input{
		Policy:   s.policy,
		Chunks:   rag.Chunks,
		History:  req.History,
		Message:  message,
		IsSocial: cls.IsSocial,
	})

	t := &turn{
		req:         req,
		message:     message,
		cls:         cls,
		prompt:      p,
		useTools:    req.UseWebSearch && !cls.IsSocial,
		reservation: reservation,
	}

	logger.FromContext(ctx).Info("turn admitted",
		logger.Excerpt("question", message),
		zap.Bool("social", cls.IsSocial),
		zap.Bool("product_intent", cls.IsProductIntent),
		zap.Strings("rules", cls.Matched),
		zap.String("rag_decision", rag.Decision),
		zap.Float64("rag_top_score", rag.TopScore),
		zap.Bool("tools", t.useTools),
		zap.Bool("quota_degraded", decision.Degraded),
	)
	return t, nil
}

// Ask runs one batch turn.
func (s *Service) Ask(ctx context.Context, req Request) (Answer, error) {
	t, perr := s.admit(ctx, req)
	if perr != nil {
		return Answer{}, perr
	}

	completion, mode, tools, err := s.completeWithFallback(ctx, t)
	if err != nil {
		t.reservation.Release(ctx)
		return Answer{}, err
	}

	clean := s.deps.Sanitizer.Clean(completion.Text)
	if clean == "" {
		t.reservation.Release(ctx)
		return Answer{}, domain.NewPipelineError(domain.KindEmptyResponse, msgEmptyResponse, domain.ErrEmptyResponse)
	}

	t.reservation.Commit()
	s.afterAnswer(ctx, t, clean, completion.Usage)

	return Answer{
		Text:      clean,
		Mode:      mode,
		Model:     completion.Model,
		WebSearch: tools,
		RAGUsed:   t.prompt.RAGUsed,
		Usage:     completion.Usage,
	}, nil
}

// completeWithFallback issues the batch call and retries once without tools on a tool failure.
func (s *Service) completeWithFallback(ctx context.Context, t *turn) (domain.Completion, string, bool, *domain.PipelineError) {
	req := domain.CompletionRequest{
		Instructions: t.prompt.Instructions,
		Input:        t.prompt.Input,
		UseTools:     t.useTools,
	}

	completion, err := s.complete(ctx, req)
	if err == nil {
		return completion, t.mode(), req.UseTools, nil
	}
	if !req.UseTools || !s.detector.IsToolError(err) {
		return domain.Completion{}, "", false, classify(err)
	}

	logger.FromContext(ctx).Warn("tool call failed, retrying without tools", zap.Error(err))
	req.UseTools = false
	completion, err = s.complete(ctx, req)
	if err != nil {
		metrics.FallbacksTotal.WithLabelValues("failure").Inc()
		return domain.Completion{}, "", false, fallbackError(err)
	}
	metrics.FallbacksTotal.WithLabelValues("success").Inc()
	return completion, ModeFallback, false, nil
}

func (s *Service) complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.deps.Model.Complete(ctx, req)
}

// fallbackError classifies the failure of the retry. A generic failure keeps the tool kind,
// since the turn only reached the retry because of the tool.
func fallbackError(err error) *domain.PipelineError {
	pe := classify(err)
	if pe.Kind == domain.KindTransport {
		return domain.NewPipelineError(domain.KindTool, msgTool, err)
	}
	return pe
}

func (t *turn) mode() string {
	if t.cls.IsSocial {
		return ModeSocial
	}
	return ModeResponses
}

// afterAnswer starts the detached side effects of a successful turn. They run on their own
// context and their failures are only logged.
func (s *Service) afterAnswer(ctx context.Context, t *turn, clean string, usage domain.TokenUsage) {
	domain.UsageFromContext(ctx).AddModelTokens(usage.TotalTokens)

	log := logger.FromContext(ctx)
	s.background(ctx, func(bgCtx context.Context) {
		if n := s.deps.Sources.Observe(clean, t.message); n > 0 {
			log.Info("non-official sources detected", zap.Int("links", n))
		}
		if err := s.deps.Quota.RecordTokens(bgCtx, t.req.UserID, usage.TotalTokens); err != nil {
			log.Warn("failed to record token usage",
				zap.Int("tokens", usage.TotalTokens),
				zap.Error(err),
			)
		}
	})
}

func (s *Service) background(ctx context.Context, fn func(context.Context)) {
	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(ctx).Error("background task panicked", zap.Any("panic", r))
			}
		}()
		fn(bgCtx)
	}()
}

// Wait blocks until detached side effects have finished.
func (s *Service) Wait() { s.bg.Wait() }
