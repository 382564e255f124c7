package advice

import (
	"context"
	"log/slog"

	"github.com/vagledaren/vagledaren/internal/generate"
	"github.com/vagledaren/vagledaren/internal/i18n"
	"github.com/vagledaren/vagledaren/internal/sanitize"
)

// SchoolAdvice composes advice about concretely matched schools. The
// generated text is followed by a deterministic school list so contact
// details are never model output. Degradation order: clarifying question
// built from the raw message, then a static apology.
type SchoolAdvice struct {
	client     generate.Client
	translator *i18n.Translator
	sanitizer  *sanitize.Sanitizer
	logger     *slog.Logger
	lang       string
}

// NewSchoolAdvice creates the school-advice strategy.
func NewSchoolAdvice(logger *slog.Logger, client generate.Client, tr *i18n.Translator, sz *sanitize.Sanitizer, lang string) *SchoolAdvice {
	return &SchoolAdvice{
		client:     client,
		translator: tr,
		sanitizer:  sz,
		logger:     logger.With("component", "advice.school"),
		lang:       lang,
	}
}

func (g *SchoolAdvice) Kind() string { return KindSchoolAdvice }

func (g *SchoolAdvice) Generate(ctx context.Context, in Input) (string, error) {
	text, err := g.client.Complete(ctx, in.Prompt)
	if err != nil {
		generationsTotal.WithLabelValues(g.Kind(), "fallback").Inc()
		g.logger.Warn("school advice generation failed, asking to clarify", "error", err)
		return g.clarify(ctx, in.RawMessage), nil
	}

	generationsTotal.WithLabelValues(g.Kind(), "success").Inc()
	result := g.sanitizer.Output(text)
	if list := formatSchoolList(g.translator, g.lang, in.Schools); list != "" {
		result += "\n\n" + list
	}
	return result, nil
}

// GenerateStream streams the generated advice and delivers the school list
// as one final chunk. A failure to open the stream degrades like Generate.
func (g *SchoolAdvice) GenerateStream(ctx context.Context, in Input) (*generate.Stream, error) {
	inner, err := g.client.CompleteStream(ctx, in.Prompt)
	if err != nil {
		generationsTotal.WithLabelValues(g.Kind(), "fallback").Inc()
		g.logger.Warn("school advice stream failed, asking to clarify", "error", err)
		return generate.StreamOfText(g.clarify(ctx, in.RawMessage)), nil
	}

	generationsTotal.WithLabelValues(g.Kind(), "success").Inc()
	if list := formatSchoolList(g.translator, g.lang, in.Schools); list != "" {
		return generate.AppendToStream(inner, "\n\n"+list), nil
	}
	return inner, nil
}

// clarify asks one short follow-up question instead of advice. Falls back
// to the static apology when generation is down entirely.
func (g *SchoolAdvice) clarify(ctx context.Context, rawMessage string) string {
	prompt, err := g.translator.GetTemplate(g.lang, "advice.clarify_instruction",
		map[string]any{"Message": rawMessage})
	if err == nil {
		if text, err := g.client.Complete(ctx, prompt); err == nil {
			return g.sanitizer.Output(text)
		}
	}
	generationsTotal.WithLabelValues(g.Kind(), "apology").Inc()
	return g.translator.Get(g.lang, "advice.apology_fallback")
}
