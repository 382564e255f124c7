package testutil

import (
	"github.com/stretchr/testify/mock"

	"github.com/vagledaren/vagledaren/internal/registry"
)

// RegistryFixture holds a consistent registry data set for tests: two
// Stockholm schools offering the technology program and one Uppsala school.
type RegistryFixture struct {
	Summaries []registry.Summary
	Details   map[string]*registry.SchoolRecord
	Programs  []registry.ProgramRecord
}

// NewRegistryFixture returns the standard three-school data set.
func NewRegistryFixture() *RegistryFixture {
	return &RegistryFixture{
		Summaries: []registry.Summary{
			{Code: "11111111", Name: "Norra Tekniska Gymnasiet", Status: "AKTIV"},
			{Code: "22222222", Name: "Södermalms Gymnasium", Status: "AKTIV"},
			{Code: "33333333", Name: "Uppsala Tekniska Gymnasium", Status: "AKTIV"},
		},
		Details: map[string]*registry.SchoolRecord{
			"11111111": {
				Code:         "11111111",
				Name:         "Norra Tekniska Gymnasiet",
				Municipality: "Stockholm",
				Website:      "https://norra.example.se",
				Email:        "info@norra.example.se",
				Programs: []registry.ProgramRef{
					{Code: "TE", Name: "Teknikprogrammet"},
					{Code: "NA", Name: "Naturvetenskapsprogrammet"},
				},
			},
			"22222222": {
				Code:         "22222222",
				Name:         "Södermalms Gymnasium",
				Municipality: "Stockholm",
				Phone:        "08-123 45 67",
				Programs: []registry.ProgramRef{
					{Code: "TE", Name: "Teknikprogrammet"},
					{Code: "SA", Name: "Samhällsvetenskapsprogrammet"},
				},
			},
			"33333333": {
				Code:         "33333333",
				Name:         "Uppsala Tekniska Gymnasium",
				Municipality: "Uppsala",
				Website:      "https://uppsala-teknik.example.se",
				Programs: []registry.ProgramRef{
					{Code: "TE", Name: "Teknikprogrammet"},
				},
			},
		},
		Programs: []registry.ProgramRecord{
			{Code: "TE", Name: "Teknikprogrammet", StudyPaths: []registry.StudyPath{
				{Code: "TEINF", Name: "Informations- och medieteknik"},
				{Code: "TEDES", Name: "Design och produktutveckling"},
			}},
			{Code: "NA", Name: "Naturvetenskapsprogrammet"},
			{Code: "SA", Name: "Samhällsvetenskapsprogrammet"},
		},
	}
}

// Install wires the fixture into a MockRegistryAPI with permissive
// expectations.
func (f *RegistryFixture) Install(m *MockRegistryAPI) {
	m.On("ListSummaries", mock.Anything).Return(f.Summaries, nil)
	for code, rec := range f.Details {
		m.On("GetDetail", mock.Anything, code).Return(rec, nil)
	}
	m.On("GetPrograms", mock.Anything).Return(f.Programs, nil)
}
