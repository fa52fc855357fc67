package risk

import (
	"encoding/json"
	"fmt"
)

// Level is an ordered risk stratification level. Higher values dominate
// when combining sub-assessments.
type Level int

const (
	LevelLow Level = iota
	LevelModerate
	LevelHigh
	LevelVeryHigh
)

var levelNames = [...]string{"低危", "中危", "高危", "很高危"}

func (l Level) String() string {
	if l < LevelLow || l > LevelVeryHigh {
		return "低危"
	}
	return levelNames[l]
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel converts a level name back to its ordered value.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return LevelLow, fmt.Errorf("unknown risk level %q", s)
}

// Blood pressure grades.
const (
	BPGradeUnknown    = "未知"
	BPGradeNormal     = "正常血压"
	BPGradeHighNormal = "正常高值"
	BPGrade1          = "1级高血压"
	BPGrade2          = "2级高血压"
	BPGrade3          = "3级高血压"
)

// Glycemic control statuses.
const (
	ControlUnknown = "未知"
	ControlGood    = "控制良好"
	ControlFair    = "控制一般"
	ControlPoor    = "控制不佳"
)

// HypertensionRisk is the hypertension sub-assessment.
type HypertensionRisk struct {
	BPGrade            string   `json:"bp_grade"`
	RiskLevel          Level    `json:"risk_level"`
	RiskFactors        []string `json:"risk_factors"`
	TargetOrganDamage  []string `json:"target_organ_damage"`
	ClinicalConditions []string `json:"clinical_conditions"`
	EvaluationLogic    []string `json:"evaluation_logic"`
}

// DiabetesRisk is the diabetes sub-assessment.
type DiabetesRisk struct {
	ControlStatus   string   `json:"control_status"`
	RiskLevel       Level    `json:"risk_level"`
	RiskFactors     []string `json:"risk_factors"`
	Complications   []string `json:"complications"`
	EvaluationLogic []string `json:"evaluation_logic"`
}

// FollowUpPlan schedules the next visit and monitoring cadence for an
// overall risk level.
type FollowUpPlan struct {
	Frequency        string   `json:"frequency"`
	NextVisit        string   `json:"next_visit"`
	MonitoringItems  []string `json:"monitoring_items"`
	LifestyleGoals   []string `json:"lifestyle_goals"`
	MedicationReview string   `json:"medication_review"`
}

// Recommendation is a guideline-backed treatment recommendation.
type Recommendation struct {
	Category      string `json:"category"`
	Content       string `json:"content"`
	EvidenceLevel string `json:"evidence_level"`
	Source        string `json:"source"`
	Rationale     string `json:"rationale"`
}

// Warning severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Warning flags an emergency condition detected from vital signs or labs.
type Warning struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Action   string `json:"action"`
	Evidence string `json:"evidence"`
}

// Assessment is the full output of a patient risk evaluation.
type Assessment struct {
	PatientID        string            `json:"patient_id"`
	AssessmentTime   string            `json:"assessment_time"`
	HypertensionRisk *HypertensionRisk `json:"hypertension_risk"`
	DiabetesRisk     *DiabetesRisk     `json:"diabetes_risk"`
	OverallRiskLevel Level             `json:"overall_risk_level"`
	RiskFactors      []string          `json:"risk_factors"`
	FollowUpPlan     FollowUpPlan      `json:"follow_up_plan"`
	Recommendations  []Recommendation  `json:"recommendations"`
	Warnings         []Warning         `json:"warnings"`
}
