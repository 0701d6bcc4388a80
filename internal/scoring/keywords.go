package scoring

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Keywords holds the bilingual keyword lists the engine matches against.
// Matching is a plain substring test on lower-cased text, so short entries
// such as "it" and "ti" also hit inside longer words.
type Keywords struct {
	Title      []string `yaml:"title"`
	Department []string `yaml:"department"`
	Influence  []string `yaml:"influence"`
}

// DefaultKeywords returns the built-in pt-BR/en keyword sets.
func DefaultKeywords() Keywords {
	return Keywords{
		Title: []string{
			"ceo", "cfo", "cto",
			"diretor", "director", "head", "gerente", "manager",
			"founder", "fundador", "co-founder", "presidente", "president",
			"vp", "vice president", "owner", "chief",
			"partner", "socio", "sócio", "superintendente",
		},
		Department: []string{
			"vendas", "sales", "comercial",
			"compras", "procurement", "purchasing",
			"marketing",
			"financeiro", "finance",
			"operações", "operacoes", "operations",
			"ti", "tecnologia", "technology", "it",
			"rh", "hr", "recursos humanos", "human resources",
			"suprimentos",
		},
		Influence: []string{
			"lider", "líder", "leader",
			"estrategia", "estratégia", "strategy",
			"inovacao", "inovação", "innovation",
			"digital",
			"transformação", "transformation",
			"crescimento", "growth",
			"senior", "sênior",
			"executivo", "executive",
		},
	}
}

// LoadKeywords reads keyword lists from a YAML file with a top-level
// "keywords" key. Lists missing from the file keep their defaults.
func LoadKeywords(path string) (Keywords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Keywords{}, eris.Wrapf(err, "scoring: read keywords %s", path)
	}

	var wrapper struct {
		Keywords Keywords `yaml:"keywords"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Keywords{}, eris.Wrap(err, "scoring: parse keywords")
	}

	kw := wrapper.Keywords
	def := DefaultKeywords()
	if len(kw.Title) == 0 {
		kw.Title = def.Title
	}
	if len(kw.Department) == 0 {
		kw.Department = def.Department
	}
	if len(kw.Influence) == 0 {
		kw.Influence = def.Influence
	}
	return kw, kw.Validate()
}

// Validate rejects empty lists and blank entries.
func (k Keywords) Validate() error {
	var errs []string
	lists := []struct {
		name  string
		words []string
	}{
		{"title", k.Title},
		{"department", k.Department},
		{"influence", k.Influence},
	}
	for _, l := range lists {
		if len(l.words) == 0 {
			errs = append(errs, l.name+" keywords must not be empty")
			continue
		}
		for _, w := range l.words {
			if strings.TrimSpace(w) == "" {
				errs = append(errs, l.name+" keywords must not contain blank entries")
				break
			}
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("scoring: invalid keywords: %s", strings.Join(errs, "; "))
	}
	return nil
}

// lower returns a lower-cased copy of every list.
func (k Keywords) lower() Keywords {
	return Keywords{
		Title:      lowerAll(k.Title),
		Department: lowerAll(k.Department),
		Influence:  lowerAll(k.Influence),
	}
}

func lowerAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = lowerText(w)
	}
	return out
}

// lowerText lower-cases with Portuguese rules. A Caser keeps state, so one
// is built per call.
func lowerText(s string) string {
	return cases.Lower(language.BrazilianPortuguese).String(s)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func firstMatch(text string, words []string) string {
	for _, w := range words {
		if strings.Contains(text, w) {
			return w
		}
	}
	return ""
}

func countMatches(text string, words []string) int {
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, dup := seen[w]; dup {
			continue
		}
		if strings.Contains(text, w) {
			seen[w] = struct{}{}
		}
	}
	return len(seen)
}
