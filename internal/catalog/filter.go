package catalog

import "strings"

// filterSchools applies the search criteria in order: municipality
// equality, program-code intersection, free-text name match. Filters are
// AND-composed and the result keeps the input's relative order, truncated
// to max items.
func filterSchools(schools []School, criteria Criteria, max int) []School {
	if criteria.IsEmpty() && len(schools) <= max {
		return schools
	}
	matched := make([]School, 0, max)
	for _, s := range schools {
		if criteria.Municipality != "" && !strings.EqualFold(s.Municipality, criteria.Municipality) {
			continue
		}
		if len(criteria.ProgramCodes) > 0 && !s.OffersAny(criteria.ProgramCodes) {
			continue
		}
		if criteria.FreeText != "" && !containsFold(s.Name, criteria.FreeText) {
			continue
		}
		matched = append(matched, s)
		if len(matched) >= max {
			break
		}
	}
	return matched
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
