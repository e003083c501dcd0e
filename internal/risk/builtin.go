package risk

import "wellness-backend-go/internal/models"

const (
	ModelRuleBasedV1    = "rule_based_v1"
	ModelRuleBasedV1M45 = "rule_based_v1_m45"
	ModelRuleBasedV2    = "rule_based_v2"
	DefaultModel        = ModelRuleBasedV1
)

func ruleBasedV1Rules() []MetricRule {
	return []MetricRule{
		{Field: models.FieldSteps, Bands: []Band{lt(3000, 30), lt(6000, 15), otherwise(5)}},
		{Field: models.FieldSleepMinutes, Bands: []Band{lt(360, 30), lt(420, 15), otherwise(5)}},
		{Field: models.FieldRestingHR, Bands: []Band{gt(85, 30), gt(75, 15), otherwise(5)}},
		{Field: models.FieldActiveMinutes, Bands: []Band{lt(30, 20), lt(60, 10), otherwise(5)}},
		{Field: models.FieldActiveEnergyKcal, Bands: []Band{lt(300, 20), lt(600, 10), otherwise(5)}},
	}
}

// RuleBasedV1 is the reference table: missing metrics are neutral (0) and
// the medium level starts at 40.
func RuleBasedV1() Model {
	return Model{
		Name:        ModelRuleBasedV1,
		Description: "reference band table, neutral missing values, medium from 40",
		Rules:       ruleBasedV1Rules(),
		Levels: []LevelBand{
			atLeast(70, models.RiskHigh),
			atLeast(40, models.RiskMedium),
			fallback(models.RiskLow),
		},
		Ceiling: DefaultCeiling,
	}
}

// RuleBasedV1M45 is the historical variant of v1 with medium from 45.
func RuleBasedV1M45() Model {
	m := RuleBasedV1().WithMediumThreshold(45)
	m.Name = ModelRuleBasedV1M45
	m.Description = "reference band table, neutral missing values, medium from 45"
	return m
}

// weighted expands a weight and its band fractions into points.
func weighted(weight float64, bands ...Band) []Band {
	out := make([]Band, len(bands))
	for i, band := range bands {
		band.Points = weight * band.Points
		out[i] = band
	}
	return out
}

// RuleBasedV2 weights seven metrics and charges half the weight for a
// missing value instead of treating it as neutral.
func RuleBasedV2() Model {
	return Model{
		Name:        ModelRuleBasedV2,
		Description: "weighted fractional bands over seven metrics, missing charged at half weight, medium from 45",
		Rules: []MetricRule{
			{Field: models.FieldSteps, Missing: 10, Bands: weighted(20, lt(3000, 1.0), lt(6000, 0.7), lt(9000, 0.4), otherwise(0.2))},
			{Field: models.FieldSleepMinutes, Missing: 10, Bands: weighted(20, lt(360, 1.0), lt(420, 0.7), lt(540, 0.4), otherwise(0.2))},
			{Field: models.FieldRestingHR, Missing: 10, Bands: weighted(20, gt(90, 1.0), gt(80, 0.7), gt(70, 0.4), otherwise(0.2))},
			{Field: models.FieldActiveMinutes, Missing: 5, Bands: weighted(10, lt(20, 0.8), lt(40, 0.6), lt(60, 0.4), otherwise(0.2))},
			{Field: models.FieldHRVSDNN, Missing: 7.5, Bands: weighted(15, lt(20, 1.0), lt(40, 0.7), lt(60, 0.5), otherwise(0.3))},
			{Field: models.FieldVO2Max, Missing: 5, Bands: weighted(10, lt(30, 1.0), lt(35, 0.7), lt(45, 0.5), otherwise(0.3))},
			{Field: models.FieldWalkingHRAvg, Missing: 2.5, Bands: weighted(5, gt(120, 1.0), gt(110, 0.7), gt(100, 0.5), otherwise(0.3))},
		},
		Levels: []LevelBand{
			atLeast(70, models.RiskHigh),
			atLeast(45, models.RiskMedium),
			fallback(models.RiskLow),
		},
		Ceiling: DefaultCeiling,
	}
}

func BuiltinModels() []Model {
	return []Model{RuleBasedV1(), RuleBasedV1M45(), RuleBasedV2()}
}
