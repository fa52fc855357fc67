package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/cdss/cdss/internal/domain/terminology"
	"github.com/cdss/cdss/internal/platform/cache"
)

type fakeRepo struct {
	guidelines []Guideline
	lastFilter ListFilter
	calls      int
}

func (f *fakeRepo) ListGuidelines(_ context.Context, filter ListFilter) ([]Guideline, error) {
	f.calls++
	f.lastFilter = filter
	return f.guidelines, nil
}

func (f *fakeRepo) Create(_ context.Context, g *Guideline) error {
	g.RuleID = int64(len(f.guidelines) + 1)
	f.guidelines = append(f.guidelines, *g)
	return nil
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func testGuidelines() []Guideline {
	return []Guideline{
		{
			RuleID:                1,
			GuidelineName:         "中国高血压防治指南",
			DiseaseType:           "高血压",
			RecommendationLevel:   "ⅠA",
			RecommendationContent: "一般高血压患者血压应降至140/90 mmHg以下",
			UpdateDate:            datePtr(2024, 6, 1),
			IsActive:              true,
		},
		{
			RuleID:                2,
			GuidelineName:         "中国2型糖尿病防治指南",
			DiseaseType:           "糖尿病",
			RecommendationLevel:   "ⅠA",
			RecommendationContent: "多数成人HbA1c控制目标为<7.0%",
			UpdateDate:            datePtr(2024, 3, 15),
			IsActive:              true,
		},
		{
			RuleID:                3,
			GuidelineName:         "高血压合并糖尿病管理共识",
			DiseaseType:           "高血压",
			RecommendationLevel:   "ⅡB",
			RecommendationContent: "优先选择ACEI或ARB类药物",
			UpdateDate:            datePtr(2023, 11, 20),
			IsActive:              true,
		},
	}
}

func newTestService(t *testing.T, repo Repository, c *cache.Cache) *Service {
	t.Helper()
	mapper := terminology.NewMapper(zerolog.Nop())
	return NewService(repo, mapper, c, zerolog.Nop())
}

func TestSearchMatchesExpandedTerms(t *testing.T) {
	repo := &fakeRepo{guidelines: testGuidelines()}
	svc := newTestService(t, repo, nil)

	result, err := svc.Search(context.Background(), "高血压患者的血压控制", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Query != "高血压患者的血压控制" {
		t.Errorf("query = %q", result.Query)
	}
	// 高血压 is normalized to 高血压病 and expanded back with its alias,
	// so both guideline 1 and 3 match on the 高血压 keyword.
	if len(result.Hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(result.Hits))
	}
	want := "[中国高血压防治指南] 一般高血压患者血压应降至140/90 mmHg以下"
	if result.Hits[0].Content != want {
		t.Errorf("content = %q, want %q", result.Hits[0].Content, want)
	}
	if result.Hits[0].EvidenceLevel != "ⅠA" {
		t.Errorf("evidence level = %q", result.Hits[0].EvidenceLevel)
	}
	if result.Hits[0].Score != 0.8 {
		t.Errorf("score = %v, want 0.8", result.Hits[0].Score)
	}
	if result.Hits[0].Source.Table != "guideline_recommendations" || result.Hits[0].Source.RuleID != 1 {
		t.Errorf("source = %+v", result.Hits[0].Source)
	}
	if result.Hits[0].Source.UpdateDate != "2024-06-01" {
		t.Errorf("source update date = %q", result.Hits[0].Source.UpdateDate)
	}
	if len(result.TermReplacements) != 1 || result.TermReplacements[0] != "高血压 → 高血压病" {
		t.Errorf("term replacements = %v", result.TermReplacements)
	}
}

func TestSearchRespectsTopK(t *testing.T) {
	repo := &fakeRepo{guidelines: testGuidelines()}
	svc := newTestService(t, repo, nil)

	result, err := svc.Search(context.Background(), "高血压", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(result.Hits))
	}
	if result.Hits[0].Source.RuleID != 1 {
		t.Errorf("rule id = %d, want 1", result.Hits[0].Source.RuleID)
	}
}

func TestSearchNoMatch(t *testing.T) {
	repo := &fakeRepo{guidelines: testGuidelines()}
	svc := newTestService(t, repo, nil)

	result, err := svc.Search(context.Background(), "戒烟限酒", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Hits) != 0 {
		t.Errorf("hits = %d, want 0", len(result.Hits))
	}
}

func TestSearchUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewWithClient(client, time.Minute, zerolog.Nop())

	repo := &fakeRepo{guidelines: testGuidelines()}
	svc := newTestService(t, repo, c)

	first, err := svc.Search(context.Background(), "糖尿病", 0)
	if err != nil {
		t.Fatalf("first Search: %v", err)
	}
	second, err := svc.Search(context.Background(), "糖尿病", 0)
	if err != nil {
		t.Fatalf("second Search: %v", err)
	}
	if repo.calls != 1 {
		t.Errorf("repo calls = %d, want 1", repo.calls)
	}
	if len(second.Hits) != len(first.Hits) {
		t.Errorf("cached hits = %d, want %d", len(second.Hits), len(first.Hits))
	}
}

func TestAddFlushesCachedResults(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewWithClient(client, time.Minute, zerolog.Nop())

	repo := &fakeRepo{guidelines: testGuidelines()}
	svc := newTestService(t, repo, c)

	if _, err := svc.Search(context.Background(), "糖尿病", 0); err != nil {
		t.Fatalf("Search: %v", err)
	}
	src := "UKPDS"
	err := svc.Add(context.Background(), &Guideline{
		GuidelineName:         "糖尿病足病防治建议",
		DiseaseType:           "糖尿病",
		RecommendationLevel:   "ⅡA",
		RecommendationContent: "定期检查足部皮肤与感觉",
		EvidenceSource:        &src,
		IsActive:              true,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	result, err := svc.Search(context.Background(), "糖尿病", 0)
	if err != nil {
		t.Fatalf("Search after Add: %v", err)
	}
	if repo.calls != 2 {
		t.Errorf("repo calls = %d, want 2", repo.calls)
	}
	if len(result.Hits) != 3 {
		t.Errorf("hits = %d, want 3", len(result.Hits))
	}
}

func TestValidateTimeliness(t *testing.T) {
	repo := &fakeRepo{guidelines: testGuidelines()}
	svc := newTestService(t, repo, nil)

	if _, err := svc.ValidateTimeliness(context.Background(), "2024-01-01"); err != nil {
		t.Fatalf("ValidateTimeliness: %v", err)
	}
	if repo.lastFilter.UpdatedAfter != "2024-01-01" {
		t.Errorf("filter = %+v", repo.lastFilter)
	}
	if repo.lastFilter.DiseaseType != "" {
		t.Errorf("unexpected disease filter %q", repo.lastFilter.DiseaseType)
	}
}
