package knowledge

import (
	"context"
	"fmt"

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

const guidelineCols = `rule_id, guideline_name, disease_type, patient_condition, recommendation_level, recommendation_content, evidence_source, update_date, is_active`

func (r *repoPG) ListGuidelines(ctx context.Context, filter ListFilter) ([]Guideline, error) {
	query := `SELECT ` + guidelineCols + ` FROM guideline_recommendations WHERE is_active = TRUE`
	args := []interface{}{}
	if filter.DiseaseType != "" {
		args = append(args, filter.DiseaseType)
		query += fmt.Sprintf(` AND disease_type = $%d`, len(args))
	}
	if filter.UpdatedAfter != "" {
		args = append(args, filter.UpdatedAfter)
		query += fmt.Sprintf(` AND update_date >= $%d`, len(args))
	}
	query += ` ORDER BY update_date DESC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Guideline
	for rows.Next() {
		var g Guideline
		if err := rows.Scan(&g.RuleID, &g.GuidelineName, &g.DiseaseType, &g.PatientCondition,
			&g.RecommendationLevel, &g.RecommendationContent, &g.EvidenceSource, &g.UpdateDate, &g.IsActive); err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, g *Guideline) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO guideline_recommendations
			(guideline_name, disease_type, patient_condition, recommendation_level, recommendation_content, evidence_source, update_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING rule_id`,
		g.GuidelineName, g.DiseaseType, g.PatientCondition, g.RecommendationLevel,
		g.RecommendationContent, g.EvidenceSource, g.UpdateDate, g.IsActive).
		Scan(&g.RuleID)
}
