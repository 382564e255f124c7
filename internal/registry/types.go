package registry

// Summary is a lightweight school-unit listing entry.
type Summary struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// SchoolRecord is the full detail record for one school unit.
type SchoolRecord struct {
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	Municipality string       `json:"municipality"`
	Website      string       `json:"website,omitempty"`
	Email        string       `json:"email,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	Address      string       `json:"address,omitempty"`
	Latitude     float64      `json:"latitude,omitempty"`
	Longitude    float64      `json:"longitude,omitempty"`
	Programs     []ProgramRef `json:"programs,omitempty"`
}

// ProgramRef is a program offering as listed on a school record.
type ProgramRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ProgramRecord describes a national program and its study paths.
type ProgramRecord struct {
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	StudyPaths []StudyPath `json:"studyPaths,omitempty"`
}

// StudyPath is an orientation within a program.
type StudyPath struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
