package assistant

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/regassist/internal/domain"
	"github.com/kailas-cloud/regassist/internal/logger"
	"github.com/kailas-cloud/regassist/internal/metrics"
)

// errSinkClosed marks a failure of the event sink, i.e. the client went away.
var errSinkClosed = errors.New("event sink closed")

// Sink receives stream events in order. An error stops the turn.
type Sink func(domain.StreamEvent) error

// Stream runs one streaming turn.
//
// Admission failures (empty message, missing credential, quota) are returned before any event is sent.
// Once the start event is out, every outcome ends with exactly one done or error event; the returned
// error then only reports what happened. Deltas carry raw model text; the done event carries the
// sanitized full answer, which replaces it.
func (s *Service) Stream(ctx context.Context, req Request, sink Sink) error {
	t, perr := s.admit(ctx, req)
	if perr != nil {
		return perr
	}

	if err := sink(domain.StartEvent(s.deps.Model.Model())); err != nil {
		t.reservation.Release(ctx)
		return classify(errors.Join(errSinkClosed, err))
	}

	completion, mode, perr := s.streamWithFallback(ctx, t, sink)
	if perr != nil {
		t.reservation.Release(ctx)
		if !errors.Is(perr, errSinkClosed) {
			_ = sink(domain.ErrorEvent(perr.Message))
		}
		return perr
	}

	clean := s.deps.Sanitizer.Clean(completion.Text)
	if clean == "" {
		t.reservation.Release(ctx)
		perr = domain.NewPipelineError(domain.KindEmptyResponse, msgEmptyResponse, domain.ErrEmptyResponse)
		_ = sink(domain.ErrorEvent(perr.Message))
		return perr
	}

	t.reservation.Commit()
	s.afterAnswer(ctx, t, clean, completion.Usage)

	if err := sink(domain.DoneEvent(clean)); err != nil {
		logger.FromContext(ctx).Debug("client left before the done event", zap.Error(err))
	}
	logger.FromContext(ctx).Info("stream completed",
		zap.String("mode", mode),
		zap.Int("chars", len(clean)),
		zap.Int("total_tokens", completion.Usage.TotalTokens),
	)
	return nil
}

// streamWithFallback streams the answer. A tool failure is retried once without tools,
// but only while no delta has reached the client.
func (s *Service) streamWithFallback(ctx context.Context, t *turn, sink Sink) (domain.Completion, string, *domain.PipelineError) {
	req := domain.CompletionRequest{
		Instructions: t.prompt.Instructions,
		Input:        t.prompt.Input,
		UseTools:     t.useTools,
	}

	emitted := false
	onDelta := func(text string) error {
		emitted = true
		if err := sink(domain.DeltaEvent(text)); err != nil {
			return errors.Join(errSinkClosed, err)
		}
		return nil
	}

	completion, err := s.stream(ctx, req, onDelta)
	if err == nil {
		return completion, t.mode(), nil
	}
	if !req.UseTools || emitted || errors.Is(err, errSinkClosed) || !s.detector.IsToolError(err) {
		return domain.Completion{}, "", classify(err)
	}

	logger.FromContext(ctx).Warn("tool stream failed, retrying without tools", zap.Error(err))
	req.UseTools = false
	completion, err = s.stream(ctx, req, onDelta)
	if err != nil {
		metrics.FallbacksTotal.WithLabelValues("failure").Inc()
		if errors.Is(err, errSinkClosed) {
			return domain.Completion{}, "", classify(err)
		}
		return domain.Completion{}, "", fallbackError(err)
	}
	metrics.FallbacksTotal.WithLabelValues("success").Inc()
	return completion, ModeFallback, nil
}

func (s *Service) stream(ctx context.Context, req domain.CompletionRequest, onDelta func(string) error) (domain.Completion, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.deps.Model.Stream(ctx, req, onDelta)
}
