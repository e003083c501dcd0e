// Package risk scores a canonical daily record against a versioned,
// declarative rule table.
package risk

import (
	"fmt"

	"wellness-backend-go/internal/models"
)

type Op string

const (
	OpLess         Op = "lt"
	OpLessEqual    Op = "le"
	OpGreater      Op = "gt"
	OpGreaterEqual Op = "ge"
	OpAny          Op = "any"
)

// Predicate compares a value against a threshold. OpAny always matches and
// ends every band list.
type Predicate struct {
	Op        Op      `yaml:"op" json:"op"`
	Threshold float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
}

func (p Predicate) Matches(v float64) bool {
	switch p.Op {
	case OpLess:
		return v < p.Threshold
	case OpLessEqual:
		return v <= p.Threshold
	case OpGreater:
		return v > p.Threshold
	case OpGreaterEqual:
		return v >= p.Threshold
	case OpAny:
		return true
	}
	return false
}

func (p Predicate) String() string {
	if p.Op == OpAny {
		return "any"
	}
	return fmt.Sprintf("%s %g", p.Op, p.Threshold)
}

func (p Predicate) valid() bool {
	switch p.Op {
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpAny:
		return true
	}
	return false
}

// Band maps a matching value to the points it contributes.
type Band struct {
	Predicate `yaml:",inline"`
	Points    float64 `yaml:"points" json:"points"`
}

// MetricRule is the band table of one field. Missing is the neutral
// contribution used when the field is absent.
type MetricRule struct {
	Field   models.Field `yaml:"field" json:"field"`
	Bands   []Band       `yaml:"bands" json:"bands"`
	Missing float64      `yaml:"missing" json:"missing"`
}

// evaluate returns the points for value and the index of the band that
// matched, or -1 when the value is absent.
func (r MetricRule) evaluate(value float64, present bool) (float64, int) {
	if !present {
		return r.Missing, -1
	}
	for i, band := range r.Bands {
		if band.Matches(value) {
			return band.Points, i
		}
	}
	// unreachable for validated rules, the last band is a catch-all
	return r.Missing, -1
}

// LevelBand assigns a level to scores matching its predicate.
type LevelBand struct {
	Predicate `yaml:",inline"`
	Level     models.RiskLevel `yaml:"level" json:"level"`
}

func lt(threshold, points float64) Band {
	return Band{Predicate: Predicate{Op: OpLess, Threshold: threshold}, Points: points}
}

func gt(threshold, points float64) Band {
	return Band{Predicate: Predicate{Op: OpGreater, Threshold: threshold}, Points: points}
}

func otherwise(points float64) Band {
	return Band{Predicate: Predicate{Op: OpAny}, Points: points}
}

func atLeast(threshold float64, level models.RiskLevel) LevelBand {
	return LevelBand{Predicate: Predicate{Op: OpGreaterEqual, Threshold: threshold}, Level: level}
}

func fallback(level models.RiskLevel) LevelBand {
	return LevelBand{Predicate: Predicate{Op: OpAny}, Level: level}
}
