package patient

import (
	"context"
	"fmt"
)

const labResultLimit = 10

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// BuildProfile assembles the full clinical picture of a patient: demographics,
// diagnoses, medications, recent lab results and the latest hypertension and
// diabetes assessments. Missing assessments leave the corresponding field nil.
func (s *Service) BuildProfile(ctx context.Context, patientID string) (*Profile, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	info, err := s.repo.GetInfo(ctx, patientID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{Info: *info}

	if profile.Diagnoses, err = s.repo.ListDiagnoses(ctx, patientID); err != nil {
		return nil, fmt.Errorf("load diagnoses: %w", err)
	}
	if profile.Medications, err = s.repo.ListMedications(ctx, patientID); err != nil {
		return nil, fmt.Errorf("load medications: %w", err)
	}
	if profile.LabResults, err = s.repo.ListLabResults(ctx, patientID, labResultLimit); err != nil {
		return nil, fmt.Errorf("load lab results: %w", err)
	}
	if profile.Hypertension, err = s.repo.LatestHypertensionAssessment(ctx, patientID); err != nil {
		return nil, fmt.Errorf("load hypertension assessment: %w", err)
	}
	if profile.Diabetes, err = s.repo.LatestDiabetesAssessment(ctx, patientID); err != nil {
		return nil, fmt.Errorf("load diabetes assessment: %w", err)
	}

	return profile, nil
}

func (s *Service) Search(ctx context.Context, keyword string, limit, offset int) ([]Summary, int64, error) {
	return s.repo.Search(ctx, keyword, limit, offset)
}
