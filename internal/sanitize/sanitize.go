// Package sanitize applies the pre- and post-generation text-safety
// filters: length capping, suspicious-pattern logging, and detection of
// leaked internal prompt text in generated output.
package sanitize

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vagledaren/vagledaren/internal/fault"
)

// suspiciousPatterns are logged when seen in user input. Matching input is
// not rejected; the request proceeds and the event is observable.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore (all |any )?(previous|prior|above) instructions`),
	regexp.MustCompile(`(?i)you are (now|no longer)`),
	regexp.MustCompile(`(?i)system prompt`),
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)glöm (allt|alla) (du|dina|tidigare)`),
}

// leakMarkers are fragments of the internal prompt structure that must
// never reach the end user.
var leakMarkers = []string{
	"[PERSONA]", "[/PERSONA]",
	"[PROFILE]", "[/PROFILE]",
	"[HISTORY]", "[/HISTORY]",
	"[MESSAGE]", "[/MESSAGE]",
	"[INSTRUCTION]", "[/INSTRUCTION]",
	"[SCHOOLS]", "[/SCHOOLS]",
	"[SEARCH_STATUS]", "[/SEARCH_STATUS]",
	"no_results_found",
}

// Sanitizer validates inbound messages and scrubs outbound text.
type Sanitizer struct {
	logger    *slog.Logger
	maxLength int
}

// New creates a Sanitizer. maxLength is in runes.
func New(logger *slog.Logger, maxLength int) *Sanitizer {
	if maxLength <= 0 {
		maxLength = 4000
	}
	return &Sanitizer{logger: logger.With("component", "sanitize"), maxLength: maxLength}
}

// Input validates a user message. Empty messages are rejected; overlong
// messages are rejected rather than silently truncated so the user knows
// their text was not processed in part.
func (s *Sanitizer) Input(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fault.New(fault.CodeInput, "message is empty")
	}
	if utf8.RuneCountInString(message) > s.maxLength {
		inputRejectedTotal.WithLabelValues("too_long").Inc()
		return "", fault.Newf(fault.CodeInput, "message exceeds %d characters", s.maxLength)
	}
	for _, p := range suspiciousPatterns {
		if p.MatchString(message) {
			suspiciousInputTotal.Inc()
			s.logger.Warn("suspicious pattern in user input", "pattern", p.String())
			break
		}
	}
	return message, nil
}

// Output scrubs generated text before it reaches the user: any leaked
// structural marker is removed and the event logged.
func (s *Sanitizer) Output(text string) string {
	leaked := false
	for _, marker := range leakMarkers {
		if strings.Contains(text, marker) {
			leaked = true
			text = strings.ReplaceAll(text, marker, "")
		}
	}
	if leaked {
		outputScrubbedTotal.Inc()
		s.logger.Warn("structural text leaked into generated output")
		text = strings.TrimSpace(text)
	}
	return text
}
