package patient

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cdss/cdss/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const infoCols = `patient_id, name, gender, age, height_cm, weight_kg, bmi, phone, address, create_time, update_time`

func (r *repoPG) GetInfo(ctx context.Context, patientID string) (*Info, error) {
	var p Info
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+infoCols+` FROM patient_info WHERE patient_id = $1`, patientID).
		Scan(&p.PatientID, &p.Name, &p.Gender, &p.Age, &p.HeightCM, &p.WeightKG, &p.BMI, &p.Phone, &p.Address, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) ListDiagnoses(ctx context.Context, patientID string) ([]Diagnosis, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT diag_id, diagnosis_date, diagnosis_code, diagnosis_name, diagnosis_type, severity_level, icd10_code
		FROM diagnosis_records WHERE patient_id = $1 ORDER BY diagnosis_date DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Diagnosis
	for rows.Next() {
		var d Diagnosis
		if err := rows.Scan(&d.DiagID, &d.DiagnosisDate, &d.DiagnosisCode, &d.DiagnosisName, &d.DiagnosisType, &d.SeverityLevel, &d.ICD10Code); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *repoPG) ListMedications(ctx context.Context, patientID string) ([]Medication, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT med_id, medication_date, drug_name, drug_class, dosage, frequency, duration, prescribing_doctor, is_insulin
		FROM medication_records WHERE patient_id = $1 ORDER BY medication_date DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Medication
	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.MedID, &m.MedicationDate, &m.DrugName, &m.DrugClass, &m.Dosage, &m.Frequency, &m.Duration, &m.PrescribingDoctor, &m.IsInsulin); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) ListLabResults(ctx context.Context, patientID string, limit int) ([]LabResult, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT result_id, test_date, test_type, test_item, result_value, unit, reference_range, is_abnormal, test_notes
		FROM lab_results WHERE patient_id = $1 ORDER BY test_date DESC LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LabResult
	for rows.Next() {
		var l LabResult
		if err := rows.Scan(&l.ResultID, &l.TestDate, &l.TestType, &l.TestItem, &l.ResultValue, &l.Unit, &l.ReferenceRange, &l.IsAbnormal, &l.TestNotes); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func (r *repoPG) LatestHypertensionAssessment(ctx context.Context, patientID string) (*HypertensionAssessment, error) {
	var a HypertensionAssessment
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT assessment_id, assessment_date, sbp, dbp, heart_rate,
			COALESCE(risk_factors, ''), COALESCE(target_organs_damage, ''), COALESCE(clinical_conditions, ''),
			risk_level, follow_up_plan
		FROM hypertension_risk_assessment WHERE patient_id = $1
		ORDER BY assessment_date DESC LIMIT 1`, patientID).
		Scan(&a.AssessmentID, &a.AssessmentDate, &a.SBP, &a.DBP, &a.HeartRate,
			&a.RiskFactors, &a.TargetOrgansDamage, &a.ClinicalConditions,
			&a.RiskLevel, &a.FollowUpPlan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) LatestDiabetesAssessment(ctx context.Context, patientID string) (*DiabetesAssessment, error) {
	var a DiabetesAssessment
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT assessment_id, assessment_date, fasting_glucose, postprandial_glucose, hba1c,
			insulin_usage, insulin_type, insulin_dosage, control_status, COALESCE(complications, '')
		FROM diabetes_control_assessment WHERE patient_id = $1
		ORDER BY assessment_date DESC LIMIT 1`, patientID).
		Scan(&a.AssessmentID, &a.AssessmentDate, &a.FastingGlucose, &a.PostprandialGlucose, &a.HbA1c,
			&a.InsulinUsage, &a.InsulinType, &a.InsulinDosage, &a.ControlStatus, &a.Complications)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) Search(ctx context.Context, keyword string, limit, offset int) ([]Summary, int64, error) {
	pattern := "%" + keyword + "%"
	var total int64
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM patient_info p
		WHERE p.patient_id ILIKE $1 OR p.name ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT p.patient_id, p.name, p.gender, p.age, p.bmi,
			h.sbp, h.dbp, h.risk_level, d.hba1c, d.control_status
		FROM patient_info p
		LEFT JOIN LATERAL (
			SELECT sbp, dbp, risk_level FROM hypertension_risk_assessment
			WHERE patient_id = p.patient_id ORDER BY assessment_date DESC LIMIT 1
		) h ON TRUE
		LEFT JOIN LATERAL (
			SELECT hba1c, control_status FROM diabetes_control_assessment
			WHERE patient_id = p.patient_id ORDER BY assessment_date DESC LIMIT 1
		) d ON TRUE
		WHERE p.patient_id ILIKE $1 OR p.name ILIKE $1
		ORDER BY p.patient_id LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.PatientID, &s.Name, &s.Gender, &s.Age, &s.BMI,
			&s.SBP, &s.DBP, &s.HypertensionRisk, &s.HbA1c, &s.DiabetesStatus); err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
