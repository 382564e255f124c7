package advice

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vagledaren/vagledaren/internal/fault"
	"github.com/vagledaren/vagledaren/internal/generate"
	"github.com/vagledaren/vagledaren/internal/i18n"
)

// titleMaxLength bounds the returned title in runes; longer titles are
// truncated with an ellipsis.
const titleMaxLength = 100

// Title produces a short conversation title. Unlike the advice strategies
// it has no textual fallback: callers treat a failure as "no title".
type Title struct {
	client     generate.Client
	translator *i18n.Translator
	logger     *slog.Logger
	lang       string
}

// NewTitle creates the title strategy.
func NewTitle(logger *slog.Logger, client generate.Client, tr *i18n.Translator, lang string) *Title {
	return &Title{
		client:     client,
		translator: tr,
		logger:     logger.With("component", "advice.title"),
		lang:       lang,
	}
}

func (g *Title) Kind() string { return KindTitle }

func (g *Title) Generate(ctx context.Context, in Input) (string, error) {
	text, err := g.client.Complete(ctx, in.Prompt)
	if err != nil {
		generationsTotal.WithLabelValues(g.Kind(), "failure").Inc()
		return "", fault.Wrap(fault.CodeTitleGeneration, "title generation failed", err)
	}

	title := cleanTitle(text)
	if title == "" {
		generationsTotal.WithLabelValues(g.Kind(), "failure").Inc()
		return "", fault.New(fault.CodeTitleGeneration, "generated title is empty")
	}
	generationsTotal.WithLabelValues(g.Kind(), "success").Inc()
	return title, nil
}

// cleanTitle strips surrounding quotation marks and whitespace, then
// truncates to the length cap.
func cleanTitle(text string) string {
	title := strings.TrimSpace(text)
	title = strings.Trim(title, `"'”“»«`)
	title = strings.TrimSpace(title)

	runes := []rune(title)
	if len(runes) > titleMaxLength {
		title = string(runes[:titleMaxLength]) + "…"
	}
	return title
}
