package httpapi

import (
	"time"

	"wellness-backend-go/internal/models"
	"wellness-backend-go/internal/risk"
)

const dateLayout = "2006-01-02"

// DailyMetricDTO renders a canonical record. Absent metrics stay null.
type DailyMetricDTO struct {
	Date             string   `json:"date"`
	Source           string   `json:"source"`
	Steps            *int     `json:"steps"`
	DistanceKM       *float64 `json:"distance_km"`
	ActiveMinutes    *int     `json:"active_minutes"`
	ActiveEnergyKcal *float64 `json:"active_energy_kcal"`
	SleepMinutes     *float64 `json:"sleep_minutes"`
	RestingHR        *float64 `json:"resting_hr"`
	VO2Max           *float64 `json:"vo2max"`
	WalkingHRAvg     *float64 `json:"walking_hr_avg"`
	HRVSDNN          *float64 `json:"hrv_sdnn"`
}

func toDailyMetricDTO(r models.DailyMetricRecord) DailyMetricDTO {
	return DailyMetricDTO{
		Date:             r.Date.Format(dateLayout),
		Source:           r.Source,
		Steps:            r.Steps,
		DistanceKM:       r.DistanceKM,
		ActiveMinutes:    r.ActiveMinutes,
		ActiveEnergyKcal: r.ActiveEnergyKcal,
		SleepMinutes:     r.SleepMinutes,
		RestingHR:        r.RestingHR,
		VO2Max:           r.VO2Max,
		WalkingHRAvg:     r.WalkingHRAvg,
		HRVSDNN:          r.HRVSDNN,
	}
}

// toRecord converts a posted record for preview scoring. Date and source
// are optional there.
func (d DailyMetricDTO) toRecord() (models.DailyMetricRecord, error) {
	record := models.DailyMetricRecord{
		Source:           d.Source,
		Steps:            d.Steps,
		DistanceKM:       d.DistanceKM,
		ActiveMinutes:    d.ActiveMinutes,
		ActiveEnergyKcal: d.ActiveEnergyKcal,
		SleepMinutes:     d.SleepMinutes,
		RestingHR:        d.RestingHR,
		VO2Max:           d.VO2Max,
		WalkingHRAvg:     d.WalkingHRAvg,
		HRVSDNN:          d.HRVSDNN,
	}
	if d.Date != "" {
		date, err := time.Parse(dateLayout, d.Date)
		if err != nil {
			return models.DailyMetricRecord{}, err
		}
		record.Date = date
	}
	return record, nil
}

type DailyMetricsResponse struct {
	ExternalID string           `json:"externalId"`
	Items      []DailyMetricDTO `json:"items"`
}

type RiskAssessmentDTO struct {
	Date      string           `json:"date"`
	ModelName string           `json:"modelName"`
	RiskScore float64          `json:"riskScore"`
	RiskLevel models.RiskLevel `json:"riskLevel"`
}

func toRiskAssessmentDTO(a models.RiskAssessment) RiskAssessmentDTO {
	return RiskAssessmentDTO{
		Date:      a.Date.Format(dateLayout),
		ModelName: a.ModelName,
		RiskScore: a.RiskScore,
		RiskLevel: a.RiskLevel,
	}
}

func toRiskAssessmentDTOs(items []models.RiskAssessment) []RiskAssessmentDTO {
	out := make([]RiskAssessmentDTO, 0, len(items))
	for _, a := range items {
		out = append(out, toRiskAssessmentDTO(a))
	}
	return out
}

type RiskAssessmentsResponse struct {
	ExternalID string              `json:"externalId"`
	ModelName  string              `json:"modelName"`
	Items      []RiskAssessmentDTO `json:"items"`
}

type RiskModelDTO struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Active          bool     `json:"active"`
	Ceiling         float64  `json:"ceiling"`
	MediumThreshold *float64 `json:"mediumThreshold"`
	Fields          []string `json:"fields"`
}

func toRiskModelDTO(m risk.Model, active bool) RiskModelDTO {
	dto := RiskModelDTO{
		Name:        m.Name,
		Description: m.Description,
		Active:      active,
		Ceiling:     m.Ceiling,
		Fields:      make([]string, 0, len(m.Rules)),
	}
	if threshold, ok := m.MediumThreshold(); ok {
		dto.MediumThreshold = &threshold
	}
	for _, rule := range m.Rules {
		dto.Fields = append(dto.Fields, string(rule.Field))
	}
	return dto
}
