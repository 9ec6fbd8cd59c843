package entities

// Severity is the qualitative urgency of a detected disease.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Valid reports whether s is one of the known severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityModerate, SeveritySevere:
		return true
	}
	return false
}

// Disease is one entry of the catalog the scan step draws from.
type Disease struct {
	Name     string   `json:"name" yaml:"name"`
	Severity Severity `json:"severity" yaml:"severity"`
	Weight   int      `json:"weight,omitempty" yaml:"weight,omitempty"` // draw weight, default 1
}
