package advice

import (
	"fmt"
	"strings"

	"github.com/vagledaren/vagledaren/internal/catalog"
	"github.com/vagledaren/vagledaren/internal/i18n"
)

// formatSchoolList renders the matched schools as deterministic text that
// is appended verbatim after the generated advice. Contact details only
// ever come from this list, never from the model.
func formatSchoolList(tr *i18n.Translator, lang string, schools []catalog.School) string {
	if len(schools) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(tr.Get(lang, "advice.school_list_header"))
	sb.WriteString("\n")

	for i, s := range schools {
		fmt.Fprintf(&sb, "\n%d. %s\n", i+1, s.Name)
		fmt.Fprintf(&sb, "   %s: %s\n", tr.Get(lang, "advice.school_list_municipality"), s.Municipality)
		if len(s.Programs) > 0 {
			names := make([]string, 0, len(s.Programs))
			for _, p := range s.Programs {
				if p.Name != "" {
					names = append(names, p.Name)
				} else {
					names = append(names, p.Code)
				}
			}
			fmt.Fprintf(&sb, "   %s: %s\n", tr.Get(lang, "advice.school_list_programs"), strings.Join(names, ", "))
		}
		if s.Website != "" {
			fmt.Fprintf(&sb, "   %s: %s\n", tr.Get(lang, "advice.school_list_website"), s.Website)
		}
		if s.Email != "" {
			fmt.Fprintf(&sb, "   %s: %s\n", tr.Get(lang, "advice.school_list_email"), s.Email)
		}
		if s.Phone != "" {
			fmt.Fprintf(&sb, "   %s: %s\n", tr.Get(lang, "advice.school_list_phone"), s.Phone)
		}
	}
	return sb.String()
}
