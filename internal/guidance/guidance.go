// Package guidance is the orchestration core: it routes each incoming
// message through intent detection, optional school search, prompt
// enrichment, and the selected response strategy.
package guidance

import (
	"context"
	"log/slog"
	"time"

	"github.com/vagledaren/vagledaren/internal/advice"
	"github.com/vagledaren/vagledaren/internal/catalog"
	"github.com/vagledaren/vagledaren/internal/chat"
	"github.com/vagledaren/vagledaren/internal/fault"
	"github.com/vagledaren/vagledaren/internal/generate"
	"github.com/vagledaren/vagledaren/internal/intent"
	"github.com/vagledaren/vagledaren/internal/prompt"
	"github.com/vagledaren/vagledaren/internal/sanitize"
)

// guidanceRetryHint is suggested after an unexpected routing failure.
const guidanceRetryHint = 30 * time.Second

// Service routes guidance requests and fronts the catalog operations for
// the transport layer.
type Service struct {
	logger      *slog.Logger
	detector    *intent.Detector
	catalog     *catalog.Cache
	builder     *prompt.Builder
	registry    *advice.Registry
	sanitizer   *sanitize.Sanitizer
	searchLimit int
}

// New creates the guidance service. searchLimit caps how many schools are
// passed to prompt enrichment.
func New(
	logger *slog.Logger,
	detector *intent.Detector,
	cat *catalog.Cache,
	builder *prompt.Builder,
	registry *advice.Registry,
	sanitizer *sanitize.Sanitizer,
	searchLimit int,
) *Service {
	if searchLimit <= 0 {
		searchLimit = 5
	}
	return &Service{
		logger:      logger.With("component", "guidance"),
		detector:    detector,
		catalog:     cat,
		builder:     builder,
		registry:    registry,
		sanitizer:   sanitizer,
		searchLimit: searchLimit,
	}
}

// GetGuidance produces one complete response for the message. Expected
// failures return structured errors; anything unexpected is converted to a
// retryable guidance failure instead of propagating.
func (s *Service) GetGuidance(ctx context.Context, message string, history []chat.Message, profile *chat.Profile) (result string, err error) {
	start := time.Now()
	branch := "unknown"
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while routing guidance request", "panic", r)
			result, err = "", fault.Retryable(fault.CodeGuidance, "guidance pipeline failed", guidanceRetryHint)
		}
		observe(branch, start, err)
	}()

	message, err = s.sanitizer.Input(message)
	if err != nil {
		return "", err
	}

	kind, in, err := s.route(ctx, message, history, profile)
	if err != nil {
		return "", err
	}
	branch = kind

	gen, err := s.registry.Get(kind)
	if err != nil {
		return "", fault.Wrap(fault.CodeGuidance, "no strategy for request", err)
	}
	return gen.Generate(ctx, in)
}

// GetGuidanceStream is the chunked variant of GetGuidance. Strategies
// without native streaming deliver their full response as one chunk.
func (s *Service) GetGuidanceStream(ctx context.Context, message string, history []chat.Message, profile *chat.Profile) (stream *generate.Stream, err error) {
	start := time.Now()
	branch := "unknown"
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while routing guidance stream", "panic", r)
			stream, err = nil, fault.Retryable(fault.CodeGuidance, "guidance pipeline failed", guidanceRetryHint)
		}
		observe(branch, start, err)
	}()

	message, err = s.sanitizer.Input(message)
	if err != nil {
		return nil, err
	}

	kind, in, err := s.route(ctx, message, history, profile)
	if err != nil {
		return nil, err
	}
	branch = kind

	if sg, sgErr := s.registry.GetStreaming(kind); sgErr == nil {
		return sg.GenerateStream(ctx, in)
	}
	gen, err := s.registry.Get(kind)
	if err != nil {
		return nil, fault.Wrap(fault.CodeGuidance, "no strategy for request", err)
	}
	text, err := gen.Generate(ctx, in)
	if err != nil {
		return nil, err
	}
	return generate.StreamOfText(text), nil
}

// GenerateTitle asks for a short conversation title. Best effort: callers
// proceed without a title on failure.
func (s *Service) GenerateTitle(ctx context.Context, history []chat.Message, profile *chat.Profile) (string, error) {
	gen, err := s.registry.Get(advice.KindTitle)
	if err != nil {
		return "", fault.Wrap(fault.CodeTitleGeneration, "title strategy missing", err)
	}
	return gen.Generate(ctx, advice.Input{Prompt: s.builder.BuildTitlePrompt(history)})
}

// route selects the response strategy and builds its enriched input.
func (s *Service) route(ctx context.Context, message string, history []chat.Message, profile *chat.Profile) (string, advice.Input, error) {
	base := s.builder.BuildContext(profile, history, message)
	in := advice.Input{Prompt: base, RawMessage: message}

	info := s.detector.Detect(message, history)
	if info == nil {
		return advice.KindCounseling, in, nil
	}

	criteria := catalog.Criteria{
		Municipality: info.Municipality,
		ProgramCodes: info.ProgramCodes,
		MaxResults:   s.searchLimit,
	}
	schools, err := s.catalog.Search(ctx, criteria)
	if err != nil {
		return "", advice.Input{}, err
	}

	in.Criteria = criteria
	if len(schools) == 0 {
		in.Prompt = s.builder.EnrichWithNoResults(base, criteria)
		return advice.KindNoResults, in, nil
	}

	in.Schools = schools
	in.Prompt = s.builder.EnrichWithSchools(base, schools)
	return advice.KindSchoolAdvice, in, nil
}

// SearchSchools runs a school search against the catalog.
func (s *Service) SearchSchools(ctx context.Context, criteria catalog.Criteria) ([]catalog.School, error) {
	return s.catalog.Search(ctx, criteria)
}

// GetSchoolByCode returns one school unit.
func (s *Service) GetSchoolByCode(ctx context.Context, code string) (*catalog.School, error) {
	return s.catalog.GetByCode(ctx, code)
}

// RefreshSchools rebuilds the school catalog and returns the new count.
func (s *Service) RefreshSchools(ctx context.Context) (int, error) {
	return s.catalog.Refresh(ctx)
}

// Programs returns the national program catalog.
func (s *Service) Programs(ctx context.Context) ([]catalog.Program, error) {
	return s.catalog.Programs(ctx)
}

// ProgramByCode returns one program.
func (s *Service) ProgramByCode(ctx context.Context, code string) (*catalog.Program, error) {
	return s.catalog.ProgramByCode(ctx, code)
}

// RefreshPrograms rebuilds the program catalog and returns the new count.
func (s *Service) RefreshPrograms(ctx context.Context) (int, error) {
	return s.catalog.RefreshPrograms(ctx)
}

func observe(branch string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	requestsTotal.WithLabelValues(branch, outcome).Inc()
	requestDuration.WithLabelValues(branch).Observe(time.Since(start).Seconds())
}
