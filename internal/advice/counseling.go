package advice

import (
	"context"
	"log/slog"

	"github.com/vagledaren/vagledaren/internal/generate"
	"github.com/vagledaren/vagledaren/internal/i18n"
	"github.com/vagledaren/vagledaren/internal/sanitize"
)

// Counseling handles the regular conversation branch. It never fails:
// generation errors and panics both degrade to a fixed fallback sentence.
type Counseling struct {
	client     generate.Client
	translator *i18n.Translator
	sanitizer  *sanitize.Sanitizer
	logger     *slog.Logger
	lang       string
}

// NewCounseling creates the regular-counseling strategy.
func NewCounseling(logger *slog.Logger, client generate.Client, tr *i18n.Translator, sz *sanitize.Sanitizer, lang string) *Counseling {
	return &Counseling{
		client:     client,
		translator: tr,
		sanitizer:  sz,
		logger:     logger.With("component", "advice.counseling"),
		lang:       lang,
	}
}

func (g *Counseling) Kind() string { return KindCounseling }

func (g *Counseling) Generate(ctx context.Context, in Input) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			generationsTotal.WithLabelValues(g.Kind(), "fallback").Inc()
			g.logger.Error("panic during counseling generation", "panic", r)
			result, err = g.fallback(), nil
		}
	}()

	text, genErr := g.client.Complete(ctx, in.Prompt)
	if genErr != nil {
		generationsTotal.WithLabelValues(g.Kind(), "fallback").Inc()
		g.logger.Warn("counseling generation failed", "error", genErr)
		return g.fallback(), nil
	}
	generationsTotal.WithLabelValues(g.Kind(), "success").Inc()
	return g.sanitizer.Output(text), nil
}

// GenerateStream degrades to a single fallback chunk when the stream
// cannot be opened.
func (g *Counseling) GenerateStream(ctx context.Context, in Input) (*generate.Stream, error) {
	stream, err := g.client.CompleteStream(ctx, in.Prompt)
	if err != nil {
		generationsTotal.WithLabelValues(g.Kind(), "fallback").Inc()
		g.logger.Warn("counseling stream failed", "error", err)
		return generate.StreamOfText(g.fallback()), nil
	}
	generationsTotal.WithLabelValues(g.Kind(), "success").Inc()
	return stream, nil
}

func (g *Counseling) fallback() string {
	return g.translator.Get(g.lang, "advice.counseling_fallback")
}
