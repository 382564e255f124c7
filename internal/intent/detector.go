// Package intent detects school-search requests in free-form chat messages
// using fixed keyword, municipality-alias, and program-phrase tables.
package intent

import (
	_ "embed"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/vagledaren/vagledaren/internal/chat"
)

//go:embed data.yaml
var dataYAML []byte

// wrapperTag matches structural context tags a message may arrive wrapped
// in when a prior turn's built prompt is echoed back.
var wrapperTag = regexp.MustCompile(`\[/?[A-Z_]+\]`)

// Info is a detected school-search request. At least one of Municipality
// and ProgramCodes is set.
type Info struct {
	Municipality string
	ProgramCodes []string
}

type municipalityEntry struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

type programEntry struct {
	Code    string   `yaml:"code"`
	Name    string   `yaml:"name"`
	Phrases []string `yaml:"phrases"`
}

type tables struct {
	Triggers       []string            `yaml:"triggers"`
	Municipalities []municipalityEntry `yaml:"municipalities"`
	Programs       []programEntry      `yaml:"programs"`
}

// Detector scans messages against the embedded tables. The tables are
// loaded once and never mutated; a Detector is safe for concurrent use.
type Detector struct {
	logger        *slog.Logger
	tables        tables
	historyWindow int
}

// NewDetector loads the embedded tables and derives diacritic-stripped
// variants for every alias and phrase.
func NewDetector(logger *slog.Logger, historyWindow int) (*Detector, error) {
	var tbl tables
	if err := yaml.Unmarshal(dataYAML, &tbl); err != nil {
		return nil, fmt.Errorf("failed to parse intent tables: %w", err)
	}
	if len(tbl.Triggers) == 0 || len(tbl.Municipalities) == 0 || len(tbl.Programs) == 0 {
		return nil, fmt.Errorf("intent tables are incomplete")
	}
	for i := range tbl.Municipalities {
		tbl.Municipalities[i].Aliases = expandVariants(tbl.Municipalities[i].Aliases)
	}
	for i := range tbl.Programs {
		tbl.Programs[i].Phrases = expandVariants(tbl.Programs[i].Phrases)
	}
	if historyWindow <= 0 {
		historyWindow = 5
	}
	return &Detector{
		logger:        logger.With("component", "intent"),
		tables:        tbl,
		historyWindow: historyWindow,
	}, nil
}

// Detect returns the detected request, or nil when the message should be
// handled as regular counseling. When the message carries a trigger keyword
// but no municipality or program itself, the most recent user turns are
// scanned as a secondary source.
func (d *Detector) Detect(message string, history []chat.Message) *Info {
	text := normalize(stripWrapper(message))
	if !d.triggered(text) {
		detectionsTotal.WithLabelValues("none").Inc()
		return nil
	}

	info := d.scan(text)
	if info == nil {
		info = d.scanHistory(history)
	}
	if info == nil {
		detectionsTotal.WithLabelValues("none").Inc()
		return nil
	}

	detectionsTotal.WithLabelValues("school_request").Inc()
	d.logger.Debug("school request detected",
		"municipality", info.Municipality, "programs", info.ProgramCodes)
	return info
}

// ProgramName returns the display name for a program code, or the code
// itself when unknown.
func (d *Detector) ProgramName(code string) string {
	for _, p := range d.tables.Programs {
		if p.Code == code {
			return p.Name
		}
	}
	return code
}

func (d *Detector) triggered(text string) bool {
	for _, kw := range d.tables.Triggers {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// scan applies the alias tables to normalized text. The first municipality
// entry that matches wins; every program entry with a matching phrase
// contributes its code once, in table order.
func (d *Detector) scan(text string) *Info {
	padded := " " + text + " "

	var municipality string
	for _, m := range d.tables.Municipalities {
		if matchesAny(text, m.Aliases, strings.Contains) {
			municipality = m.Name
			break
		}
	}

	var codes []string
	for _, p := range d.tables.Programs {
		if matchesAny(padded, p.Phrases, containsWord) {
			codes = append(codes, p.Code)
		}
	}

	if municipality == "" && len(codes) == 0 {
		return nil
	}
	return &Info{Municipality: municipality, ProgramCodes: codes}
}

func (d *Detector) scanHistory(history []chat.Message) *Info {
	scanned := 0
	for i := len(history) - 1; i >= 0 && scanned < d.historyWindow; i-- {
		if history[i].Role != chat.RoleUser {
			continue
		}
		scanned++
		if info := d.scan(normalize(stripWrapper(history[i].Content))); info != nil {
			return info
		}
	}
	return nil
}

func matchesAny(text string, variants []string, match func(string, string) bool) bool {
	for _, v := range variants {
		if match(text, v) {
			return true
		}
	}
	return false
}

func containsWord(padded, phrase string) bool {
	return strings.Contains(padded, " "+phrase+" ")
}

// stripWrapper unwraps a message embedded in a structured context block: the
// content of a MESSAGE section is extracted when present, then any remaining
// structural tags are removed.
func stripWrapper(message string) string {
	if start := strings.Index(message, "[MESSAGE]"); start >= 0 {
		rest := message[start+len("[MESSAGE]"):]
		if end := strings.Index(rest, "[/MESSAGE]"); end >= 0 {
			message = rest[:end]
		} else {
			message = rest
		}
	}
	return wrapperTag.ReplaceAllString(message, " ")
}

// normalize lower-cases the text and replaces punctuation with spaces so
// whole-word phrase matching sees clean boundaries.
func normalize(text string) string {
	text = strings.ToLower(text)
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '!', '?', ';', ':', '"', '\'', '(', ')':
			return ' '
		}
		return r
	}, text)
}

var diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// expandVariants appends the diacritic-stripped form of every variant that
// differs from the original, so "göteborg" also matches "goteborg".
func expandVariants(variants []string) []string {
	out := make([]string, 0, len(variants)*2)
	seen := make(map[string]struct{}, len(variants)*2)
	add := func(v string) {
		v = strings.ToLower(v)
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for _, v := range variants {
		add(v)
		if folded, _, err := transform.String(diacriticFold, v); err == nil {
			add(folded)
		}
	}
	return out
}
