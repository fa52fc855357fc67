package diagnosis

import (
	"github.com/cdss/cdss/internal/domain/knowledge"
	"github.com/cdss/cdss/internal/domain/patient"
	"github.com/cdss/cdss/internal/domain/risk"
	"github.com/cdss/cdss/internal/domain/safety"
	"github.com/cdss/cdss/internal/domain/terminology"
	"github.com/cdss/cdss/internal/platform/llm"
)

// RiskInterpretation is a rule-based assessment plus its narrative reading.
type RiskInterpretation struct {
	PatientID      string                `json:"patient_id"`
	Assessment     *risk.Assessment      `json:"assessment"`
	Interpretation string                `json:"interpretation"`
	Sources        []knowledge.HitSource `json:"sources,omitempty"`
}

// DrugConflictReport is the combined rule and narrative medication review.
type DrugConflictReport struct {
	PatientID          string                `json:"patient_id"`
	CurrentMedications []patient.Medication  `json:"current_medications"`
	SafetyCheck        *safety.CheckResult   `json:"safety_check"`
	Analysis           string                `json:"analysis"`
	HasConflicts       bool                  `json:"has_conflicts"`
	Sources            []knowledge.HitSource `json:"sources,omitempty"`
}

// ExamData carries ad-hoc measurements supplied with a diagnosis request.
type ExamData struct {
	SBP            *int     `json:"sbp,omitempty"`
	DBP            *int     `json:"dbp,omitempty"`
	HbA1c          *float64 `json:"hba1c,omitempty"`
	FastingGlucose *float64 `json:"fasting_glucose,omitempty"`
	BMI            *float64 `json:"bmi,omitempty"`
}

type DiagnosisRequest struct {
	Symptoms  string    `json:"symptoms"`
	ExamData  *ExamData `json:"exam_data,omitempty"`
	PatientID string    `json:"patient_id,omitempty"`
}

type DiagnosisInput struct {
	Symptoms           string    `json:"symptoms"`
	NormalizedSymptoms string    `json:"normalized_symptoms"`
	ExamData           *ExamData `json:"exam_data,omitempty"`
	PatientID          string    `json:"patient_id,omitempty"`
}

// DifferentialDiagnosis is the ranked differential list with its inputs.
type DifferentialDiagnosis struct {
	Input        DiagnosisInput            `json:"input"`
	Result       string                    `json:"diagnosis_result"`
	TermMappings []terminology.Replacement `json:"term_mappings,omitempty"`
	Sources      []knowledge.HitSource     `json:"sources,omitempty"`
}

type TreatmentPlanRequest struct {
	PatientID string           `json:"patient_id,omitempty"`
	Diagnosis string           `json:"diagnosis,omitempty"`
	Profile   *patient.Profile `json:"profile,omitempty"`
}

type TreatmentPlan struct {
	PatientID      string                `json:"patient_id,omitempty"`
	Diagnosis      string                `json:"diagnosis,omitempty"`
	RiskAssessment *risk.Assessment      `json:"risk_assessment"`
	SafetyCheck    *safety.CheckResult   `json:"safety_check"`
	Plan           string                `json:"treatment_plan"`
	Sources        []knowledge.HitSource `json:"sources,omitempty"`
}

type AdjustmentRequest struct {
	PatientID         string `json:"patient_id"`
	CurrentPlan       string `json:"current_plan"`
	TreatmentResponse string `json:"treatment_response"`
	Duration          string `json:"duration,omitempty"`
}

type AdjustedPlan struct {
	PatientID         string                `json:"patient_id"`
	OriginalPlan      string                `json:"original_plan"`
	TreatmentResponse string                `json:"treatment_response"`
	Duration          string                `json:"duration"`
	AdjustedPlan      string                `json:"adjusted_plan"`
	Sources           []knowledge.HitSource `json:"sources,omitempty"`
}

type ConsultRequest struct {
	ChiefComplaint string        `json:"chief_complaint"`
	PatientID      string        `json:"patient_id,omitempty"`
	History        []llm.Message `json:"history,omitempty"`
}

// Consult statuses.
const (
	ConsultNeedClarification = "need_clarification"
	ConsultComplete          = "complete"
)

type ConsultResult struct {
	Status         string `json:"status"`
	Questions      string `json:"questions,omitempty"`
	SOAPRecord     string `json:"soap_record,omitempty"`
	ChiefComplaint string `json:"chief_complaint"`
}

type VitalSigns struct {
	SBP       *int `json:"sbp,omitempty"`
	DBP       *int `json:"dbp,omitempty"`
	HeartRate *int `json:"heart_rate,omitempty"`
}

type EmergencyRequest struct {
	Symptoms   string     `json:"symptoms"`
	VitalSigns VitalSigns `json:"vital_signs"`
}

type EmergencyResult struct {
	IsEmergency        bool                  `json:"is_emergency"`
	HasDangerSymptoms  bool                  `json:"has_danger_symptoms"`
	VitalSigns         VitalSigns            `json:"vital_signs"`
	Symptoms           string                `json:"symptoms"`
	Response           string                `json:"response"`
	ImmediateActions   []string              `json:"immediate_actions,omitempty"`
	RequiresReferral   bool                  `json:"requires_referral"`
	ReferralDepartment string                `json:"referral_department,omitempty"`
	Sources            []knowledge.HitSource `json:"sources,omitempty"`
}
