package knowledge

import "time"

// Guideline is one row of guideline_recommendations.
type Guideline struct {
	RuleID                int64      `db:"rule_id" json:"rule_id"`
	GuidelineName         string     `db:"guideline_name" json:"guideline_name"`
	DiseaseType           string     `db:"disease_type" json:"disease_type"`
	PatientCondition      *string    `db:"patient_condition" json:"patient_condition,omitempty"`
	RecommendationLevel   string     `db:"recommendation_level" json:"recommendation_level"`
	RecommendationContent string     `db:"recommendation_content" json:"recommendation_content"`
	EvidenceSource        *string    `db:"evidence_source" json:"evidence_source,omitempty"`
	UpdateDate            *time.Time `db:"update_date" json:"update_date,omitempty"`
	IsActive              bool       `db:"is_active" json:"is_active"`
}

// HitSource identifies where a search hit came from.
type HitSource struct {
	Type       string `json:"type"`
	Table      string `json:"table"`
	RuleID     int64  `json:"rule_id,omitempty"`
	UpdateDate string `json:"update_date,omitempty"`
}

// Hit is one knowledge search result.
type Hit struct {
	Content       string    `json:"content"`
	Source        HitSource `json:"source"`
	EvidenceLevel string    `json:"evidence_level,omitempty"`
	Score         float64   `json:"score"`
}

// SearchResult bundles the hits with the query that produced them.
type SearchResult struct {
	Query            string   `json:"query"`
	ExpandedQuery    string   `json:"expanded_query"`
	Hits             []Hit    `json:"hits"`
	TermReplacements []string `json:"term_replacements,omitempty"`
}
