package patient

import "time"

// Info maps to the patient_info table.
type Info struct {
	PatientID  string     `db:"patient_id" json:"patient_id"`
	Name       string     `db:"name" json:"name"`
	Gender     string     `db:"gender" json:"gender"`
	Age        int        `db:"age" json:"age"`
	HeightCM   *float64   `db:"height_cm" json:"height_cm,omitempty"`
	WeightKG   *float64   `db:"weight_kg" json:"weight_kg,omitempty"`
	BMI        *float64   `db:"bmi" json:"bmi,omitempty"`
	Phone      *string    `db:"phone" json:"phone,omitempty"`
	Address    *string    `db:"address" json:"address,omitempty"`
	CreatedAt  *time.Time `db:"create_time" json:"create_time,omitempty"`
	UpdatedAt  *time.Time `db:"update_time" json:"update_time,omitempty"`
}

// Diagnosis maps to the diagnosis_records table.
type Diagnosis struct {
	DiagID        int64      `db:"diag_id" json:"diag_id"`
	DiagnosisDate *time.Time `db:"diagnosis_date" json:"diagnosis_date,omitempty"`
	DiagnosisCode *string    `db:"diagnosis_code" json:"diagnosis_code,omitempty"`
	DiagnosisName string     `db:"diagnosis_name" json:"diagnosis_name"`
	DiagnosisType *string    `db:"diagnosis_type" json:"diagnosis_type,omitempty"`
	SeverityLevel *string    `db:"severity_level" json:"severity_level,omitempty"`
	ICD10Code     *string    `db:"icd10_code" json:"icd10_code,omitempty"`
}

// Medication maps to the medication_records table.
type Medication struct {
	MedID             int64      `db:"med_id" json:"med_id"`
	MedicationDate    *time.Time `db:"medication_date" json:"medication_date,omitempty"`
	DrugName          string     `db:"drug_name" json:"drug_name"`
	DrugClass         string     `db:"drug_class" json:"drug_class"`
	Dosage            *string    `db:"dosage" json:"dosage,omitempty"`
	Frequency         *string    `db:"frequency" json:"frequency,omitempty"`
	Duration          *string    `db:"duration" json:"duration,omitempty"`
	PrescribingDoctor *string    `db:"prescribing_doctor" json:"prescribing_doctor,omitempty"`
	IsInsulin         bool       `db:"is_insulin" json:"is_insulin"`
}

// LabResult maps to the lab_results table.
type LabResult struct {
	ResultID       int64      `db:"result_id" json:"result_id"`
	TestDate       *time.Time `db:"test_date" json:"test_date,omitempty"`
	TestType       *string    `db:"test_type" json:"test_type,omitempty"`
	TestItem       string     `db:"test_item" json:"test_item"`
	ResultValue    string     `db:"result_value" json:"result_value"`
	Unit           *string    `db:"unit" json:"unit,omitempty"`
	ReferenceRange *string    `db:"reference_range" json:"reference_range,omitempty"`
	IsAbnormal     bool       `db:"is_abnormal" json:"is_abnormal"`
	TestNotes      *string    `db:"test_notes" json:"test_notes,omitempty"`
}

// HypertensionAssessment is the most recent row of
// hypertension_risk_assessment for a patient. Older rows are never
// considered for risk computation.
type HypertensionAssessment struct {
	AssessmentID       int64      `db:"assessment_id" json:"assessment_id"`
	AssessmentDate     *time.Time `db:"assessment_date" json:"assessment_date,omitempty"`
	SBP                *int       `db:"sbp" json:"sbp,omitempty"`
	DBP                *int       `db:"dbp" json:"dbp,omitempty"`
	HeartRate          *int       `db:"heart_rate" json:"heart_rate,omitempty"`
	RiskFactors        string     `db:"risk_factors" json:"risk_factors,omitempty"`
	TargetOrgansDamage string     `db:"target_organs_damage" json:"target_organs_damage,omitempty"`
	ClinicalConditions string     `db:"clinical_conditions" json:"clinical_conditions,omitempty"`
	RiskLevel          *string    `db:"risk_level" json:"risk_level,omitempty"`
	FollowUpPlan       *string    `db:"follow_up_plan" json:"follow_up_plan,omitempty"`
}

// DiabetesAssessment is the most recent row of diabetes_control_assessment
// for a patient.
type DiabetesAssessment struct {
	AssessmentID        int64      `db:"assessment_id" json:"assessment_id"`
	AssessmentDate      *time.Time `db:"assessment_date" json:"assessment_date,omitempty"`
	FastingGlucose      *float64   `db:"fasting_glucose" json:"fasting_glucose,omitempty"`
	PostprandialGlucose *float64   `db:"postprandial_glucose" json:"postprandial_glucose,omitempty"`
	HbA1c               *float64   `db:"hba1c" json:"hba1c,omitempty"`
	InsulinUsage        bool       `db:"insulin_usage" json:"insulin_usage"`
	InsulinType         *string    `db:"insulin_type" json:"insulin_type,omitempty"`
	InsulinDosage       *string    `db:"insulin_dosage" json:"insulin_dosage,omitempty"`
	ControlStatus       *string    `db:"control_status" json:"control_status,omitempty"`
	Complications       string     `db:"complications" json:"complications,omitempty"`
}

// Profile is the aggregated read model of one patient that the risk engine
// and safety guard consume. Diagnoses, medications and lab results are
// ordered most recent first.
type Profile struct {
	Info
	Diagnoses    []Diagnosis             `json:"diagnoses"`
	Medications  []Medication            `json:"medications"`
	LabResults   []LabResult             `json:"lab_results"`
	Hypertension *HypertensionAssessment `json:"hypertension_assessment,omitempty"`
	Diabetes     *DiabetesAssessment     `json:"diabetes_assessment,omitempty"`
}

// Summary is one row of a patient search result.
type Summary struct {
	PatientID        string   `db:"patient_id" json:"patient_id"`
	Name             string   `db:"name" json:"name"`
	Gender           string   `db:"gender" json:"gender"`
	Age              int      `db:"age" json:"age"`
	BMI              *float64 `db:"bmi" json:"bmi,omitempty"`
	SBP              *int     `db:"sbp" json:"sbp,omitempty"`
	DBP              *int     `db:"dbp" json:"dbp,omitempty"`
	HypertensionRisk *string  `db:"hypertension_risk" json:"hypertension_risk,omitempty"`
	HbA1c            *float64 `db:"hba1c" json:"hba1c,omitempty"`
	DiabetesStatus   *string  `db:"diabetes_status" json:"diabetes_status,omitempty"`
}
