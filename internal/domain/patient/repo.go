package patient

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a patient does not exist.
var ErrNotFound = errors.New("patient not found")

// Repository abstracts patient record storage.
type Repository interface {
	GetInfo(ctx context.Context, patientID string) (*Info, error)
	ListDiagnoses(ctx context.Context, patientID string) ([]Diagnosis, error)
	ListMedications(ctx context.Context, patientID string) ([]Medication, error)
	ListLabResults(ctx context.Context, patientID string, limit int) ([]LabResult, error)
	LatestHypertensionAssessment(ctx context.Context, patientID string) (*HypertensionAssessment, error)
	LatestDiabetesAssessment(ctx context.Context, patientID string) (*DiabetesAssessment, error)
	Search(ctx context.Context, keyword string, limit, offset int) ([]Summary, int64, error)
}
