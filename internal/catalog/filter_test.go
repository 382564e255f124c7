package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleSchools() []School {
	return []School{
		{Code: "1", Name: "Anna Whitlocks Gymnasium", Municipality: "Stockholm",
			Programs: []SchoolProgram{{Code: "NA"}, {Code: "SA"}}},
		{Code: "2", Name: "Thorildsplans Gymnasium", Municipality: "Stockholm",
			Programs: []SchoolProgram{{Code: "TE"}, {Code: "EE"}}},
		{Code: "3", Name: "Katedralskolan", Municipality: "Uppsala",
			Programs: []SchoolProgram{{Code: "NA"}, {Code: "EK"}}},
		{Code: "4", Name: "Polhemskolan", Municipality: "Lund",
			Programs: []SchoolProgram{{Code: "TE"}, {Code: "NA"}}},
	}
}

func TestFilterSchools_EmptyCriteriaReturnsAll(t *testing.T) {
	got := filterSchools(sampleSchools(), Criteria{}, 100)
	assert.Len(t, got, 4)
}

func TestFilterSchools_MunicipalityIsCaseInsensitive(t *testing.T) {
	got := filterSchools(sampleSchools(), Criteria{Municipality: "stockholm"}, 100)
	assert.Len(t, got, 2)
	for _, s := range got {
		assert.Equal(t, "Stockholm", s.Municipality)
	}
}

func TestFilterSchools_ProgramIntersection(t *testing.T) {
	got := filterSchools(sampleSchools(), Criteria{ProgramCodes: []string{"TE"}}, 100)
	assert.Equal(t, []string{"2", "4"}, codes(got))

	got = filterSchools(sampleSchools(), Criteria{ProgramCodes: []string{"TE", "EK"}}, 100)
	assert.Equal(t, []string{"2", "3", "4"}, codes(got))
}

func TestFilterSchools_FreeTextMatchesNameCaseInsensitive(t *testing.T) {
	got := filterSchools(sampleSchools(), Criteria{FreeText: "skolan"}, 100)
	assert.Equal(t, []string{"3", "4"}, codes(got))
}

func TestFilterSchools_FiltersCompose(t *testing.T) {
	got := filterSchools(sampleSchools(), Criteria{
		Municipality: "Stockholm",
		ProgramCodes: []string{"NA"},
	}, 100)
	assert.Equal(t, []string{"1"}, codes(got))
}

func TestFilterSchools_TruncatesAtMaxPreservingOrder(t *testing.T) {
	got := filterSchools(sampleSchools(), Criteria{}, 2)
	assert.Equal(t, []string{"1", "2"}, codes(got))
}

func TestFilterSchools_NoMatches(t *testing.T) {
	got := filterSchools(sampleSchools(), Criteria{Municipality: "Göteborg"}, 100)
	assert.Empty(t, got)
}

func codes(schools []School) []string {
	out := make([]string, 0, len(schools))
	for _, s := range schools {
		out = append(out, s.Code)
	}
	return out
}
