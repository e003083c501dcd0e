package risk

import (
	"errors"
	"fmt"

	"wellness-backend-go/internal/models"
)

const DefaultCeiling = 100.0

// Model is a named rule table. The name is stored with every assessment so
// scores stay reproducible after the table changes.
type Model struct {
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	Rules       []MetricRule `yaml:"rules" json:"rules"`
	Levels      []LevelBand  `yaml:"levels" json:"levels"`
	Ceiling     float64      `yaml:"ceiling,omitempty" json:"ceiling"`
}

func (m Model) Validate() error {
	if m.Name == "" {
		return errors.New("risk model: name is required")
	}
	if len(m.Rules) == 0 {
		return fmt.Errorf("risk model %s: no rules", m.Name)
	}
	if m.Ceiling <= 0 || m.Ceiling > DefaultCeiling {
		return fmt.Errorf("risk model %s: ceiling must be in (0, %g]", m.Name, DefaultCeiling)
	}
	seen := map[models.Field]bool{}
	for _, rule := range m.Rules {
		if _, err := models.ParseField(string(rule.Field)); err != nil {
			return fmt.Errorf("risk model %s: %w", m.Name, err)
		}
		if seen[rule.Field] {
			return fmt.Errorf("risk model %s: duplicate rule for %s", m.Name, rule.Field)
		}
		seen[rule.Field] = true
		if len(rule.Bands) == 0 {
			return fmt.Errorf("risk model %s: %s has no bands", m.Name, rule.Field)
		}
		for _, band := range rule.Bands {
			if !band.valid() {
				return fmt.Errorf("risk model %s: %s has unknown operator %q", m.Name, rule.Field, band.Op)
			}
		}
		if rule.Bands[len(rule.Bands)-1].Op != OpAny {
			return fmt.Errorf("risk model %s: last band of %s must be a catch-all", m.Name, rule.Field)
		}
	}
	return validateLevels(m)
}

// validateLevels keeps the level a non-decreasing function of the score:
// only lower-bound predicates, thresholds descending, catch-all last.
func validateLevels(m Model) error {
	if len(m.Levels) == 0 {
		return fmt.Errorf("risk model %s: no levels", m.Name)
	}
	for i, band := range m.Levels {
		if !band.Level.Valid() {
			return fmt.Errorf("risk model %s: unknown level %q", m.Name, band.Level)
		}
		last := i == len(m.Levels)-1
		if last {
			if band.Op != OpAny {
				return fmt.Errorf("risk model %s: last level band must be a catch-all", m.Name)
			}
			continue
		}
		if band.Op != OpGreaterEqual && band.Op != OpGreater {
			return fmt.Errorf("risk model %s: level bands must use ge or gt", m.Name)
		}
		if i > 0 && m.Levels[i-1].Threshold < band.Threshold {
			return fmt.Errorf("risk model %s: level thresholds must descend", m.Name)
		}
	}
	return nil
}

// WithMediumThreshold returns a copy of m whose medium level starts at
// threshold.
func (m Model) WithMediumThreshold(threshold float64) Model {
	out := m
	out.Levels = make([]LevelBand, len(m.Levels))
	copy(out.Levels, m.Levels)
	for i := range out.Levels {
		if out.Levels[i].Level == models.RiskMedium && out.Levels[i].Op != OpAny {
			out.Levels[i].Threshold = threshold
		}
	}
	return out
}

// MediumThreshold reports the lower bound of the medium level, if any.
func (m Model) MediumThreshold() (float64, bool) {
	for _, band := range m.Levels {
		if band.Level == models.RiskMedium && band.Op != OpAny {
			return band.Threshold, true
		}
	}
	return 0, false
}
