package terminology

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// defaultMappings is the built-in alias -> standard term dictionary,
// covering diseases, drug brand names, test items and symptoms.
var defaultMappings = []struct{ alias, standard string }{
	{"心梗", "心肌梗死"},
	{"脑梗", "脑梗死"},
	{"脑卒中", "脑血管意外"},
	{"中风", "脑血管意外"},
	{"高血压", "高血压病"},
	{"糖尿病", "糖尿病"},
	{"冠心病", "冠状动脉粥样硬化性心脏病"},
	{"高血脂", "血脂异常"},
	{"肾衰", "肾功能衰竭"},
	{"心衰", "心力衰竭"},
	{"阿司匹林", "乙酰水杨酸"},
	{"拜阿司匹灵", "阿司匹林肠溶片"},
	{"络活喜", "氨氯地平"},
	{"代文", "缬沙坦"},
	{"倍他乐克", "美托洛尔"},
	{"格华止", "二甲双胍"},
	{"拜唐苹", "阿卡波糖"},
	{"诺和灵", "人胰岛素"},
	{"来得时", "甘精胰岛素"},
	{"诺和锐", "门冬胰岛素"},
	{"血糖", "血葡萄糖"},
	{"血脂", "血脂谱"},
	{"肾功", "肾功能"},
	{"肝功", "肝功能"},
	{"心电图", "心电图检查"},
	{"心超", "超声心动图"},
	{"头晕", "眩晕"},
	{"胸闷", "胸部不适"},
	{"心慌", "心悸"},
	{"气短", "呼吸困难"},
}

// Replacement records one substitution made by NormalizeText.
type Replacement struct {
	Original   string `json:"original"`
	Normalized string `json:"normalized"`
	Type       string `json:"type"`
}

// Suggestion is one candidate standard term for a query.
type Suggestion struct {
	Term         string  `json:"term"`
	Type         string  `json:"type"`
	Confidence   float64 `json:"confidence"`
	MatchedAlias string  `json:"matched_alias,omitempty"`
}

// TableEntry is one row of the mapping table as shown to users.
type TableEntry struct {
	Alias    string `json:"alias"`
	Standard string `json:"standard"`
	Category string `json:"category"`
}

// Mapper normalizes colloquial medical terms to their standard forms.
// Text scanning works greedily on the longest dictionary match at each
// position, so an already-standard term is never re-expanded.
type Mapper struct {
	log zerolog.Logger

	mu      sync.RWMutex
	forward map[string]string   // alias -> standard
	reverse map[string][]string // standard -> aliases, insertion order
	aliases []string            // aliases in insertion order
	terms   []string            // aliases + standards, longest first
}

func NewMapper(log zerolog.Logger) *Mapper {
	m := &Mapper{
		log:     log,
		forward: make(map[string]string, len(defaultMappings)),
		reverse: make(map[string][]string),
	}
	for _, entry := range defaultMappings {
		m.insert(entry.alias, entry.standard)
	}
	m.rebuildTerms()
	log.Info().Int("mappings", len(m.forward)).Msg("术语映射器初始化完成")
	return m
}

func (m *Mapper) insert(alias, standard string) {
	m.forward[alias] = standard
	m.reverse[standard] = append(m.reverse[standard], alias)
	m.aliases = append(m.aliases, alias)
}

func (m *Mapper) rebuildTerms() {
	seen := make(map[string]bool, len(m.forward)*2)
	m.terms = m.terms[:0]
	for _, alias := range m.aliases {
		for _, t := range []string{alias, m.forward[alias]} {
			if !seen[t] {
				seen[t] = true
				m.terms = append(m.terms, t)
			}
		}
	}
	sort.SliceStable(m.terms, func(i, j int) bool { return len(m.terms[i]) > len(m.terms[j]) })
}

// Normalize maps a single term to its standard form. Unknown terms come
// back unchanged.
func (m *Mapper) Normalize(term string) string {
	term = strings.TrimSpace(term)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if standard, ok := m.forward[term]; ok {
		m.log.Info().Str("term", term).Str("standard", standard).Msg("术语标准化")
		return standard
	}
	if _, ok := m.reverse[term]; ok {
		return term
	}
	return term
}

// NormalizeText replaces every known alias in the text with its standard
// form and reports the substitutions made.
func (m *Mapper) NormalizeText(text string) (string, []Replacement) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		b            strings.Builder
		replacements []Replacement
		recorded     = make(map[string]bool)
	)

	for i := 0; i < len(text); {
		term := m.matchAt(text, i)
		if term == "" {
			_, size := utf8.DecodeRuneInString(text[i:])
			b.WriteString(text[i : i+size])
			i += size
			continue
		}
		if standard, ok := m.forward[term]; ok {
			b.WriteString(standard)
			if !recorded[term] {
				recorded[term] = true
				replacements = append(replacements, Replacement{
					Original:   term,
					Normalized: standard,
					Type:       "direct_mapping",
				})
			}
		} else {
			b.WriteString(term)
		}
		i += len(term)
	}

	if len(replacements) > 0 {
		m.log.Info().Int("replacements", len(replacements)).Msg("文本标准化完成")
	}
	return b.String(), replacements
}

// matchAt returns the longest dictionary term starting at byte offset i,
// or "" when nothing matches. Callers must hold at least the read lock.
func (m *Mapper) matchAt(text string, i int) string {
	for _, term := range m.terms {
		if strings.HasPrefix(text[i:], term) {
			return term
		}
	}
	return ""
}

// Suggest returns up to max candidate standard terms for a query, ranked
// by match confidence: exact 1.0, standard-term 0.9, partial 0.8.
func (m *Mapper) Suggest(term string, max int) []Suggestion {
	if max <= 0 {
		max = 5
	}
	termLower := strings.ToLower(term)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var suggestions []Suggestion
	have := func(standard string) bool {
		for _, s := range suggestions {
			if s.Term == standard {
				return true
			}
		}
		return false
	}

	if standard, ok := m.forward[term]; ok {
		suggestions = append(suggestions, Suggestion{Term: standard, Type: "exact_match", Confidence: 1.0})
	}

	for _, alias := range m.aliases {
		aliasLower := strings.ToLower(alias)
		if strings.Contains(aliasLower, termLower) || strings.Contains(termLower, aliasLower) {
			standard := m.forward[alias]
			if !have(standard) {
				suggestions = append(suggestions, Suggestion{
					Term:         standard,
					Type:         "partial_match",
					Confidence:   0.8,
					MatchedAlias: alias,
				})
			}
		}
	}

	for _, alias := range m.aliases {
		standard := m.forward[alias]
		if strings.Contains(strings.ToLower(standard), termLower) && !have(standard) {
			suggestions = append(suggestions, Suggestion{Term: standard, Type: "standard_match", Confidence: 0.9})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	if len(suggestions) > max {
		suggestions = suggestions[:max]
	}
	return suggestions
}

// Aliases returns all known aliases of a standard term.
func (m *Mapper) Aliases(standard string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.reverse[standard]...)
}

// AddMapping registers a new alias. It reports false when the alias is
// already mapped.
func (m *Mapper) AddMapping(alias, standard string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.forward[alias]; ok {
		m.log.Warn().Str("alias", alias).Str("standard", existing).Msg("映射已存在")
		return false
	}
	m.insert(alias, standard)
	m.rebuildTerms()
	m.log.Info().Str("alias", alias).Str("standard", standard).Msg("添加术语映射")
	return true
}

// Mappings returns a copy of the alias -> standard dictionary.
func (m *Mapper) Mappings() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.forward))
	for alias, standard := range m.forward {
		out[alias] = standard
	}
	return out
}

// MappingTable lists all mappings with a heuristic category, in insertion
// order.
func (m *Mapper) MappingTable() []TableEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	table := make([]TableEntry, 0, len(m.aliases))
	for _, alias := range m.aliases {
		standard := m.forward[alias]
		table = append(table, TableEntry{
			Alias:    alias,
			Standard: standard,
			Category: termCategory(standard),
		})
	}
	return table
}

var (
	diseaseKeywords = []string{"死", "病", "症", "癌", "炎", "伤", "损", "衰", "障碍", "综合征"}
	drugKeywords    = []string{"普利", "沙坦", "地平", "洛尔", "双胍", "胰岛素", "片", "注射液"}
	symptomKeywords = []string{"痛", "晕", "闷", "悸", "短", "吐", "泻"}
	testKeywords    = []string{"检查", "检验", "图", "超", "功能"}
)

func termCategory(term string) string {
	for _, kw := range diseaseKeywords {
		if strings.Contains(term, kw) {
			return "疾病名称"
		}
	}
	for _, kw := range drugKeywords {
		if strings.Contains(term, kw) {
			return "药物名称"
		}
	}
	for _, kw := range symptomKeywords {
		if strings.Contains(term, kw) {
			return "症状名称"
		}
	}
	for _, kw := range testKeywords {
		if strings.Contains(term, kw) {
			return "检查项目"
		}
	}
	return "其他"
}

// ExpandQuery appends synonyms to a search query: aliases gain their
// standard term and standard terms gain their aliases. The result keeps
// first-seen order and is space separated.
func (m *Mapper) ExpandQuery(query string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var tokens []string
	var plain strings.Builder
	flush := func() {
		if s := strings.TrimSpace(plain.String()); s != "" {
			tokens = append(tokens, s)
		}
		plain.Reset()
	}

	for i := 0; i < len(query); {
		term := m.matchAt(query, i)
		if term == "" {
			_, size := utf8.DecodeRuneInString(query[i:])
			plain.WriteString(query[i : i+size])
			i += size
			continue
		}
		flush()
		tokens = append(tokens, term)
		if standard, ok := m.forward[term]; ok {
			tokens = append(tokens, standard)
		}
		if aliases, ok := m.reverse[term]; ok {
			tokens = append(tokens, aliases...)
		}
		i += len(term)
	}
	flush()

	seen := make(map[string]bool, len(tokens))
	unique := tokens[:0]
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}
	return strings.Join(unique, " ")
}
