// Package prompt assembles the tag-delimited context blocks sent to the
// generation service. Free text entering a block is escaped so user input
// can never open or close a structural tag.
package prompt

import (
	"fmt"
	"strings"

	"github.com/vagledaren/vagledaren/internal/catalog"
	"github.com/vagledaren/vagledaren/internal/chat"
	"github.com/vagledaren/vagledaren/internal/i18n"
)

const (
	// maxSchoolsInPrompt bounds the school list embedded in a prompt.
	maxSchoolsInPrompt = 5
	// maxProgramsPerSchool bounds the programs listed per school.
	maxProgramsPerSchool = 3
)

// Builder renders conversation state into prompt text. Stateless apart from
// its configuration; safe for concurrent use.
type Builder struct {
	translator    *i18n.Translator
	lang          string
	historyWindow int
}

// NewBuilder creates a prompt builder for the given language.
func NewBuilder(translator *i18n.Translator, lang string, historyWindow int) *Builder {
	if historyWindow <= 0 {
		historyWindow = 5
	}
	return &Builder{translator: translator, lang: lang, historyWindow: historyWindow}
}

// BuildContext produces the base prompt: persona, present profile fields,
// the most recent conversation turns oldest first, and the current message.
func (b *Builder) BuildContext(profile *chat.Profile, history []chat.Message, message string) string {
	var sb strings.Builder

	sb.WriteString("[PERSONA]\n")
	sb.WriteString(b.translator.Get(b.lang, "guidance.persona"))
	sb.WriteString("\n[/PERSONA]\n")

	if block := profileBlock(profile); block != "" {
		sb.WriteString("\n[PROFILE]\n")
		sb.WriteString(block)
		sb.WriteString("[/PROFILE]\n")
	}

	if turns := chat.LastN(history, b.historyWindow); len(turns) > 0 {
		sb.WriteString("\n[HISTORY]\n")
		for _, m := range turns {
			sb.WriteString(roleLabel(m.Role))
			sb.WriteString(": ")
			sb.WriteString(Escape(m.Content))
			sb.WriteString("\n")
		}
		sb.WriteString("[/HISTORY]\n")
	}

	sb.WriteString("\n[MESSAGE]\n")
	sb.WriteString(Escape(message))
	sb.WriteString("\n[/MESSAGE]\n")

	return sb.String()
}

// BuildTitlePrompt renders the title instruction over a short transcript
// of the exchange.
func (b *Builder) BuildTitlePrompt(history []chat.Message) string {
	var sb strings.Builder
	sb.WriteString(b.translator.Get(b.lang, "advice.title_instruction"))
	sb.WriteString("\n\n[HISTORY]\n")
	for _, m := range chat.LastN(history, b.historyWindow) {
		sb.WriteString(roleLabel(m.Role))
		sb.WriteString(": ")
		sb.WriteString(Escape(m.Content))
		sb.WriteString("\n")
	}
	sb.WriteString("[/HISTORY]\n")
	return sb.String()
}

// EnrichWithSchools appends the matched schools and the advice instruction
// to an already built prompt. At most five schools are included, three
// programs each.
func (b *Builder) EnrichWithSchools(basePrompt string, schools []catalog.School) string {
	if len(schools) > maxSchoolsInPrompt {
		schools = schools[:maxSchoolsInPrompt]
	}

	var sb strings.Builder
	sb.WriteString(basePrompt)

	instruction, err := b.translator.GetTemplate(b.lang, "advice.school_instruction",
		map[string]any{"Count": len(schools)})
	if err == nil {
		sb.WriteString("\n[INSTRUCTION]\n")
		sb.WriteString(instruction)
		sb.WriteString("\n[/INSTRUCTION]\n")
	}

	sb.WriteString("\n[SCHOOLS]\n")
	for i, s := range schools {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, Escape(s.Name), Escape(s.Municipality))
		if len(s.Programs) > 0 {
			names := make([]string, 0, maxProgramsPerSchool)
			for _, p := range s.Programs {
				if len(names) == maxProgramsPerSchool {
					break
				}
				if p.Name != "" {
					names = append(names, p.Name)
				} else {
					names = append(names, p.Code)
				}
			}
			fmt.Fprintf(&sb, "   Program: %s\n", Escape(strings.Join(names, ", ")))
		}
		if s.Website != "" {
			fmt.Fprintf(&sb, "   Webbplats: %s\n", Escape(s.Website))
		}
		if s.Email != "" {
			fmt.Fprintf(&sb, "   E-post: %s\n", Escape(s.Email))
		}
		if s.Phone != "" {
			fmt.Fprintf(&sb, "   Telefon: %s\n", Escape(s.Phone))
		}
	}
	sb.WriteString("[/SCHOOLS]\n")

	return sb.String()
}

// EnrichWithNoResults appends a no-results status block echoing the search
// criteria, plus the redirect instruction, so the model can suggest an
// alternative without inventing schools.
func (b *Builder) EnrichWithNoResults(basePrompt string, criteria catalog.Criteria) string {
	described := DescribeCriteria(criteria)

	var sb strings.Builder
	sb.WriteString(basePrompt)

	instruction, err := b.translator.GetTemplate(b.lang, "advice.noresults_instruction",
		map[string]any{"Criteria": described})
	if err == nil {
		sb.WriteString("\n[INSTRUCTION]\n")
		sb.WriteString(instruction)
		sb.WriteString("\n[/INSTRUCTION]\n")
	}

	sb.WriteString("\n[SEARCH_STATUS]\n")
	sb.WriteString(b.translator.Get(b.lang, "search.no_results_marker"))
	sb.WriteString("\n")
	sb.WriteString(described)
	sb.WriteString("\n[/SEARCH_STATUS]\n")

	return sb.String()
}

// DescribeCriteria renders search criteria as a short human-readable line.
func DescribeCriteria(criteria catalog.Criteria) string {
	parts := make([]string, 0, 3)
	if criteria.Municipality != "" {
		parts = append(parts, "kommun="+Escape(criteria.Municipality))
	}
	if len(criteria.ProgramCodes) > 0 {
		parts = append(parts, "program="+Escape(strings.Join(criteria.ProgramCodes, ",")))
	}
	if criteria.FreeText != "" {
		parts = append(parts, "text="+Escape(criteria.FreeText))
	}
	if len(parts) == 0 {
		return "inga filter"
	}
	return strings.Join(parts, "; ")
}

// Escape neutralizes the structural delimiters in free text.
func Escape(s string) string {
	s = strings.ReplaceAll(s, "[", "(")
	return strings.ReplaceAll(s, "]", ")")
}

func profileBlock(profile *chat.Profile) string {
	if profile == nil {
		return ""
	}
	var sb strings.Builder
	if profile.Age > 0 {
		fmt.Fprintf(&sb, "Ålder: %d\n", profile.Age)
	}
	if profile.Education != "" {
		fmt.Fprintf(&sb, "Utbildning: %s\n", Escape(profile.Education))
	}
	if profile.Purpose != "" {
		fmt.Fprintf(&sb, "Syfte: %s\n", Escape(profile.Purpose))
	}
	if profile.Gender != "" {
		fmt.Fprintf(&sb, "Kön: %s\n", Escape(profile.Gender))
	}
	return sb.String()
}

func roleLabel(role string) string {
	switch role {
	case chat.RoleAssistant:
		return "Vägledare"
	case chat.RoleSystem:
		return "System"
	default:
		return "Elev"
	}
}
