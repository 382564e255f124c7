package catalog

// School is one school unit as served by the catalog. Instances are
// immutable once built; a refresh replaces the whole collection.
type School struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Municipality string          `json:"municipality"`
	Website      string          `json:"website,omitempty"`
	Email        string          `json:"email,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	Address      string          `json:"address,omitempty"`
	Latitude     float64         `json:"latitude,omitempty"`
	Longitude    float64         `json:"longitude,omitempty"`
	Programs     []SchoolProgram `json:"programs,omitempty"`
}

// SchoolProgram is a program offered by a school.
type SchoolProgram struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Program is a national program with its study paths.
type Program struct {
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	StudyPaths []StudyPath `json:"studyPaths,omitempty"`
}

// StudyPath is an orientation within a program.
type StudyPath struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Criteria filters a school search. Zero-valued fields are ignored; the
// remaining filters are AND-composed.
type Criteria struct {
	Municipality string
	ProgramCodes []string
	FreeText     string
	MaxResults   int
}

// IsEmpty reports whether no filter is set.
func (c Criteria) IsEmpty() bool {
	return c.Municipality == "" && len(c.ProgramCodes) == 0 && c.FreeText == ""
}

// OffersAny reports whether the school offers at least one of the codes.
func (s School) OffersAny(codes []string) bool {
	for _, p := range s.Programs {
		for _, code := range codes {
			if p.Code == code {
				return true
			}
		}
	}
	return false
}
