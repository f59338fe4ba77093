package domain

// ContactInfo is the header block of a resume. Name is the only required field.
type ContactInfo struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty" validate:"omitempty,url"`
	GitHub   string `json:"github,omitempty" validate:"omitempty,url"`
	Website  string `json:"website,omitempty" validate:"omitempty,url"`
}

// Experience is a single role. When Current is true EndDate is ignored for display.
type Experience struct {
	Company      string   `json:"company" validate:"required"`
	Position     string   `json:"position" validate:"required"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	Current      bool     `json:"current,omitempty"`
	Location     string   `json:"location,omitempty"`
	Description  []string `json:"description,omitzero"`
	Technologies []string `json:"technologies,omitzero"`
}

// Period renders the date range the way a preview shows it.
func (e Experience) Period() string {
	end := e.EndDate
	if e.Current {
		end = "Present"
	}
	switch {
	case e.StartDate == "" && end == "":
		return ""
	case end == "":
		return e.StartDate
	case e.StartDate == "":
		return end
	}
	return e.StartDate + " - " + end
}

type Project struct {
	Name         string   `json:"name" validate:"required"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies,omitzero"`
	URL          string   `json:"url,omitempty" validate:"omitempty,url"`
}

type SkillGroup struct {
	Category string   `json:"category" validate:"required"`
	Skills   []string `json:"skills,omitzero"`
}

type Education struct {
	Institution  string `json:"institution" validate:"required"`
	Degree       string `json:"degree" validate:"required"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	GPA          string `json:"gpa,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Resume is the canonical resume document exchanged with the remote service.
type Resume struct {
	Contact        ContactInfo  `json:"contact_info"`
	Summary        string       `json:"summary,omitempty"`
	Experience     []Experience `json:"experience,omitzero" validate:"dive"`
	Projects       []Project    `json:"projects,omitzero" validate:"dive"`
	Skills         []SkillGroup `json:"skills,omitzero" validate:"dive"`
	Education      []Education  `json:"education,omitzero" validate:"dive"`
	Certifications []string     `json:"certifications,omitzero"`
	Languages      []string     `json:"languages,omitzero"`
}

// Clone returns a deep copy so derived documents never alias the base. Nil
// and empty lists are kept apart.
func (r *Resume) Clone() *Resume {
	if r == nil {
		return nil
	}
	out := *r
	out.Experience = cloneSlice(r.Experience)
	for i := range out.Experience {
		out.Experience[i].Description = cloneSlice(out.Experience[i].Description)
		out.Experience[i].Technologies = cloneSlice(out.Experience[i].Technologies)
	}
	out.Projects = cloneSlice(r.Projects)
	for i := range out.Projects {
		out.Projects[i].Technologies = cloneSlice(out.Projects[i].Technologies)
	}
	out.Skills = cloneSlice(r.Skills)
	for i := range out.Skills {
		out.Skills[i].Skills = cloneSlice(out.Skills[i].Skills)
	}
	out.Education = cloneSlice(r.Education)
	out.Certifications = cloneSlice(r.Certifications)
	out.Languages = cloneSlice(r.Languages)
	return &out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}

// JobDescription is the tailoring input. Only RawText is required.
type JobDescription struct {
	RawText string `json:"raw_text"`
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
	URL     string `json:"url,omitempty"`
}
