package patient

import (
	"context"
	"errors"
	"testing"
)

type fakeRepo struct {
	info         *Info
	diagnoses    []Diagnosis
	medications  []Medication
	labs         []LabResult
	hypertension *HypertensionAssessment
	diabetes     *DiabetesAssessment

	labLimit int
	infoErr  error
}

func (f *fakeRepo) GetInfo(ctx context.Context, patientID string) (*Info, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	if f.info == nil || f.info.PatientID != patientID {
		return nil, ErrNotFound
	}
	return f.info, nil
}

func (f *fakeRepo) ListDiagnoses(ctx context.Context, patientID string) ([]Diagnosis, error) {
	return f.diagnoses, nil
}

func (f *fakeRepo) ListMedications(ctx context.Context, patientID string) ([]Medication, error) {
	return f.medications, nil
}

func (f *fakeRepo) ListLabResults(ctx context.Context, patientID string, limit int) ([]LabResult, error) {
	f.labLimit = limit
	return f.labs, nil
}

func (f *fakeRepo) LatestHypertensionAssessment(ctx context.Context, patientID string) (*HypertensionAssessment, error) {
	return f.hypertension, nil
}

func (f *fakeRepo) LatestDiabetesAssessment(ctx context.Context, patientID string) (*DiabetesAssessment, error) {
	return f.diabetes, nil
}

func (f *fakeRepo) Search(ctx context.Context, keyword string, limit, offset int) ([]Summary, int64, error) {
	return []Summary{{PatientID: "P001", Name: "王建国"}}, 1, nil
}

func strPtr(s string) *string { return &s }

func TestBuildProfileAggregatesRecords(t *testing.T) {
	sbp, dbp := 150, 95
	repo := &fakeRepo{
		info: &Info{PatientID: "P001", Name: "王建国", Gender: "男", Age: 58},
		diagnoses: []Diagnosis{
			{DiagID: 1, DiagnosisName: "原发性高血压", DiagnosisType: strPtr("高血压")},
			{DiagID: 2, DiagnosisName: "2型糖尿病", DiagnosisType: strPtr("糖尿病")},
		},
		medications: []Medication{
			{MedID: 1, DrugName: "氨氯地平", DrugClass: "CCB"},
		},
		labs: []LabResult{
			{ResultID: 1, TestItem: "糖化血红蛋白", ResultValue: "7.8", IsAbnormal: true},
		},
		hypertension: &HypertensionAssessment{AssessmentID: 1, SBP: &sbp, DBP: &dbp},
	}
	svc := NewService(repo)

	profile, err := svc.BuildProfile(context.Background(), "P001")
	if err != nil {
		t.Fatalf("BuildProfile: %v", err)
	}
	if profile.Name != "王建国" || profile.Age != 58 {
		t.Errorf("unexpected info: %+v", profile.Info)
	}
	if len(profile.Diagnoses) != 2 || len(profile.Medications) != 1 || len(profile.LabResults) != 1 {
		t.Errorf("unexpected record counts: %d diagnoses, %d medications, %d labs",
			len(profile.Diagnoses), len(profile.Medications), len(profile.LabResults))
	}
	if profile.Hypertension == nil || *profile.Hypertension.SBP != 150 {
		t.Errorf("hypertension assessment not carried: %+v", profile.Hypertension)
	}
	if profile.Diabetes != nil {
		t.Errorf("expected nil diabetes assessment, got %+v", profile.Diabetes)
	}
	if repo.labLimit != labResultLimit {
		t.Errorf("lab limit = %d, want %d", repo.labLimit, labResultLimit)
	}
}

func TestBuildProfileNotFound(t *testing.T) {
	svc := NewService(&fakeRepo{})

	_, err := svc.BuildProfile(context.Background(), "P999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildProfileRequiresID(t *testing.T) {
	svc := NewService(&fakeRepo{})

	if _, err := svc.BuildProfile(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty patient_id")
	}
}
