package advice

import (
	"context"
	"log/slog"

	"github.com/vagledaren/vagledaren/internal/generate"
	"github.com/vagledaren/vagledaren/internal/i18n"
	"github.com/vagledaren/vagledaren/internal/sanitize"
)

// NoResultsAdvice asks the model for a redirect suggestion when a school
// search came back empty. Any failure yields one fixed fallback sentence.
type NoResultsAdvice struct {
	client     generate.Client
	translator *i18n.Translator
	sanitizer  *sanitize.Sanitizer
	logger     *slog.Logger
	lang       string
}

// NewNoResultsAdvice creates the no-results strategy.
func NewNoResultsAdvice(logger *slog.Logger, client generate.Client, tr *i18n.Translator, sz *sanitize.Sanitizer, lang string) *NoResultsAdvice {
	return &NoResultsAdvice{
		client:     client,
		translator: tr,
		sanitizer:  sz,
		logger:     logger.With("component", "advice.noresults"),
		lang:       lang,
	}
}

func (g *NoResultsAdvice) Kind() string { return KindNoResults }

func (g *NoResultsAdvice) Generate(ctx context.Context, in Input) (string, error) {
	text, err := g.client.Complete(ctx, in.Prompt)
	if err != nil {
		generationsTotal.WithLabelValues(g.Kind(), "fallback").Inc()
		g.logger.Warn("no-results advice generation failed", "error", err)
		return g.translator.Get(g.lang, "advice.noresults_fallback"), nil
	}
	generationsTotal.WithLabelValues(g.Kind(), "success").Inc()
	return g.sanitizer.Output(text), nil
}
