package terminology

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestMapper() *Mapper { return NewMapper(zerolog.Nop()) }

func TestNormalize(t *testing.T) {
	m := newTestMapper()

	cases := []struct{ in, want string }{
		{"心梗", "心肌梗死"},
		{"络活喜", "氨氯地平"},
		{" 中风 ", "脑血管意外"},
		{"心肌梗死", "心肌梗死"}, // already standard
		{"不存在的术语", "不存在的术语"},
	}
	for _, tc := range cases {
		if got := m.Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	m := newTestMapper()

	text := "患者自述心慌气短，既往心梗病史"
	normalized, replacements := m.NormalizeText(text)

	if !strings.Contains(normalized, "心悸") || !strings.Contains(normalized, "呼吸困难") || !strings.Contains(normalized, "心肌梗死") {
		t.Errorf("got %q", normalized)
	}
	if len(replacements) != 3 {
		t.Errorf("got %d replacements, want 3: %+v", len(replacements), replacements)
	}
	for _, r := range replacements {
		if r.Type != "direct_mapping" {
			t.Errorf("got replacement type %q", r.Type)
		}
	}
}

func TestNormalizeTextLeavesStandardTermsAlone(t *testing.T) {
	m := newTestMapper()

	// 高血压病 is already standard; only the bare alias may be expanded.
	normalized, replacements := m.NormalizeText("确诊高血压病三年")
	if normalized != "确诊高血压病三年" {
		t.Errorf("got %q", normalized)
	}
	if len(replacements) != 0 {
		t.Errorf("got replacements %+v, want none", replacements)
	}

	normalized, _ = m.NormalizeText("血压偏高，考虑高血压")
	if !strings.HasSuffix(normalized, "高血压病") {
		t.Errorf("got %q", normalized)
	}
}

func TestSuggest(t *testing.T) {
	m := newTestMapper()

	suggestions := m.Suggest("心梗", 5)
	if len(suggestions) == 0 {
		t.Fatal("expected suggestions")
	}
	if suggestions[0].Type != "exact_match" || suggestions[0].Confidence != 1.0 {
		t.Errorf("got first suggestion %+v", suggestions[0])
	}
	if suggestions[0].Term != "心肌梗死" {
		t.Errorf("got %q", suggestions[0].Term)
	}

	// Confidence ordering: exact > standard > partial.
	for i := 1; i < len(suggestions); i++ {
		if suggestions[i].Confidence > suggestions[i-1].Confidence {
			t.Errorf("suggestions not sorted by confidence: %+v", suggestions)
		}
	}

	if got := m.Suggest("完全无关的词", 5); len(got) != 0 {
		t.Errorf("got %+v, want none", got)
	}
}

func TestSuggestLimit(t *testing.T) {
	m := newTestMapper()
	if got := m.Suggest("心", 2); len(got) > 2 {
		t.Errorf("got %d suggestions, want at most 2", len(got))
	}
}

func TestAliases(t *testing.T) {
	m := newTestMapper()

	aliases := m.Aliases("脑血管意外")
	if len(aliases) != 2 || aliases[0] != "脑卒中" || aliases[1] != "中风" {
		t.Errorf("got %v", aliases)
	}
	if got := m.Aliases("不存在"); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestAddMapping(t *testing.T) {
	m := newTestMapper()

	if !m.AddMapping("波立维", "氯吡格雷") {
		t.Fatal("expected new mapping to be added")
	}
	if m.AddMapping("波立维", "别的东西") {
		t.Error("duplicate alias must be rejected")
	}
	if got := m.Normalize("波立维"); got != "氯吡格雷" {
		t.Errorf("got %q", got)
	}

	// New mapping participates in text normalization.
	normalized, _ := m.NormalizeText("长期服用波立维")
	if !strings.Contains(normalized, "氯吡格雷") {
		t.Errorf("got %q", normalized)
	}
}

func TestMappingTableCategories(t *testing.T) {
	m := newTestMapper()

	table := m.MappingTable()
	if len(table) != len(defaultMappings) {
		t.Fatalf("got %d entries, want %d", len(table), len(defaultMappings))
	}

	byAlias := make(map[string]TableEntry, len(table))
	for _, e := range table {
		byAlias[e.Alias] = e
	}
	cases := []struct{ alias, category string }{
		{"心梗", "疾病名称"},
		{"络活喜", "药物名称"},
		{"头晕", "症状名称"},
		{"心电图", "检查项目"},
	}
	for _, tc := range cases {
		if got := byAlias[tc.alias].Category; got != tc.category {
			t.Errorf("%s: got category %q, want %q", tc.alias, got, tc.category)
		}
	}
}

func TestExpandQuery(t *testing.T) {
	m := newTestMapper()

	expanded := m.ExpandQuery("心梗治疗方案")
	for _, want := range []string{"心梗", "心肌梗死", "治疗方案"} {
		if !strings.Contains(expanded, want) {
			t.Errorf("expanded query %q missing %q", expanded, want)
		}
	}

	// Standard terms pull in their aliases.
	expanded = m.ExpandQuery("脑血管意外")
	for _, want := range []string{"脑卒中", "中风"} {
		if !strings.Contains(expanded, want) {
			t.Errorf("expanded query %q missing %q", expanded, want)
		}
	}
}
