package fieldsim

import (
	"math/rand"

	"github.com/greenprotect/fieldops/internal/model/entities"
)

// DefaultCatalog is used when the session config supplies no disease catalog.
func DefaultCatalog() []entities.Disease {
	return []entities.Disease{
		{Name: "Leaf Blight", Severity: entities.SeveritySevere, Weight: 2},
		{Name: "Stem Rust", Severity: entities.SeveritySevere, Weight: 1},
		{Name: "Powdery Mildew", Severity: entities.SeverityModerate, Weight: 3},
		{Name: "Downy Mildew", Severity: entities.SeverityModerate, Weight: 2},
		{Name: "Leaf Spot", Severity: entities.SeverityLow, Weight: 3},
		{Name: "Aphid Damage", Severity: entities.SeverityLow, Weight: 2},
	}
}

// doseFor maps severity to the base pesticide dose in liters.
func doseFor(sev entities.Severity) float64 {
	switch sev {
	case entities.SeveritySevere:
		return 2.0
	case entities.SeverityModerate:
		return 1.5
	default:
		return 1.0
	}
}

// catalog wraps the configured diseases with their cumulative draw weights.
type catalog struct {
	entries []entities.Disease
	total   int
}

func newCatalog(entries []entities.Disease) catalog {
	if len(entries) == 0 {
		entries = DefaultCatalog()
	}
	c := catalog{entries: entries}
	for _, d := range entries {
		c.total += weightOf(d)
	}
	return c
}

func weightOf(d entities.Disease) int {
	if d.Weight > 0 {
		return d.Weight
	}
	return 1
}

// draw picks a disease with probability proportional to its weight.
func (c catalog) draw(rng *rand.Rand) entities.Disease {
	n := rng.Intn(c.total)
	for _, d := range c.entries {
		n -= weightOf(d)
		if n < 0 {
			return d
		}
	}
	return c.entries[len(c.entries)-1]
}
