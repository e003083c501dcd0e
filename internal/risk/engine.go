package risk

import (
	"wellness-backend-go/internal/models"
)

type Contribution struct {
	Field   models.Field `json:"field"`
	Value   *float64     `json:"value"`
	Points  float64      `json:"points"`
	Band    string       `json:"band"`
	Missing bool         `json:"missing"`
}

type Result struct {
	ModelName     string           `json:"modelName"`
	Score         float64          `json:"score"`
	Level         models.RiskLevel `json:"level"`
	Contributions []Contribution   `json:"contributions"`
}

// Engine evaluates one model. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	model Model
}

func NewEngine(model Model) (*Engine, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return &Engine{model: model}, nil
}

func (e *Engine) Model() Model {
	return e.model
}

// Score sums the contribution of every rule, clamps the total into
// [0, ceiling] and assigns the level.
func (e *Engine) Score(record models.DailyMetricRecord) Result {
	contributions := make([]Contribution, 0, len(e.model.Rules))
	total := 0.0
	for _, rule := range e.model.Rules {
		value, present := record.Value(rule.Field)
		points, idx := rule.evaluate(value, present)
		c := Contribution{Field: rule.Field, Points: points, Missing: !present}
		if present {
			v := value
			c.Value = &v
			c.Band = rule.Bands[idx].String()
		}
		contributions = append(contributions, c)
		total += points
	}
	score := clamp(total, 0, e.model.Ceiling)
	return Result{
		ModelName:     e.model.Name,
		Score:         score,
		Level:         e.Level(score),
		Contributions: contributions,
	}
}

// Level maps a final score onto the model's level bands.
func (e *Engine) Level(score float64) models.RiskLevel {
	for _, band := range e.model.Levels {
		if band.Matches(score) {
			return band.Level
		}
	}
	return models.RiskLow
}

// Assess scores record and returns the assessment to persist.
func (e *Engine) Assess(record models.DailyMetricRecord) models.RiskAssessment {
	result := e.Score(record)
	return models.RiskAssessment{
		UserID:    record.UserID,
		Date:      record.Date,
		ModelName: result.ModelName,
		RiskScore: result.Score,
		RiskLevel: result.Level,
	}
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
