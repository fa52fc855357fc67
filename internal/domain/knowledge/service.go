package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cdss/cdss/internal/domain/terminology"
	"github.com/cdss/cdss/internal/platform/cache"
)

const defaultTopK = 5

// guidelineScore is what keyword retrieval reports for a matched
// guideline. Structured rows carry no embedding distance, so every
// match gets the same fixed confidence.
const guidelineScore = 0.8

type Service struct {
	repo   Repository
	mapper *terminology.Mapper
	cache  *cache.Cache
	log    zerolog.Logger
}

func NewService(repo Repository, mapper *terminology.Mapper, c *cache.Cache, log zerolog.Logger) *Service {
	return &Service{repo: repo, mapper: mapper, cache: c, log: log}
}

// Search retrieves guideline snippets matching the query. The query is
// first normalized to standard terminology and expanded with synonyms,
// then matched word by word against guideline names and contents.
func (s *Service) Search(ctx context.Context, query string, topK int) (*SearchResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	normalized, replacements := s.mapper.NormalizeText(query)
	expanded := s.mapper.ExpandQuery(normalized)

	key := fmt.Sprintf("knowledge:search:%d:%s", topK, expanded)
	var cached SearchResult
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		cached.Query = query
		return &cached, nil
	}

	guidelines, err := s.repo.ListGuidelines(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}

	words := strings.Fields(expanded)
	var hits []Hit
	for _, g := range guidelines {
		if len(hits) >= topK {
			break
		}
		haystack := g.GuidelineName + g.RecommendationContent
		if !matchesAny(haystack, words) {
			continue
		}
		src := HitSource{Type: "guideline", Table: "guideline_recommendations", RuleID: g.RuleID}
		if g.UpdateDate != nil {
			src.UpdateDate = g.UpdateDate.Format("2006-01-02")
		}
		hits = append(hits, Hit{
			Content:       fmt.Sprintf("[%s] %s", g.GuidelineName, g.RecommendationContent),
			Source:        src,
			EvidenceLevel: g.RecommendationLevel,
			Score:         guidelineScore,
		})
	}

	result := &SearchResult{Query: query, ExpandedQuery: expanded, Hits: hits}
	for _, r := range replacements {
		result.TermReplacements = append(result.TermReplacements, fmt.Sprintf("%s → %s", r.Original, r.Normalized))
	}
	s.cache.Set(ctx, key, result)

	s.log.Debug().Str("query", query).Str("expanded", expanded).Int("hits", len(hits)).Msg("知识检索完成")
	return result, nil
}

func matchesAny(haystack string, words []string) bool {
	for _, w := range words {
		if strings.Contains(haystack, w) {
			return true
		}
	}
	return false
}

// List returns active guidelines, optionally filtered.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Guideline, error) {
	return s.repo.ListGuidelines(ctx, filter)
}

// ValidateTimeliness returns the active guidelines updated on or after
// the given date, used to confirm the knowledge base is current.
func (s *Service) ValidateTimeliness(ctx context.Context, updatedAfter string) ([]Guideline, error) {
	return s.repo.ListGuidelines(ctx, ListFilter{UpdatedAfter: updatedAfter})
}

// Add inserts a guideline and invalidates cached search results.
func (s *Service) Add(ctx context.Context, g *Guideline) error {
	if err := s.repo.Create(ctx, g); err != nil {
		return err
	}
	s.cache.Flush(ctx)
	return nil
}
