package knowledge

import "context"

// ListFilter narrows ListGuidelines. Zero values mean "no filter".
type ListFilter struct {
	DiseaseType  string
	UpdatedAfter string // YYYY-MM-DD
}

type Repository interface {
	ListGuidelines(ctx context.Context, filter ListFilter) ([]Guideline, error)
	Create(ctx context.Context, g *Guideline) error
}
