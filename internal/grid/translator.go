// internal/grid/translator.go
package grid

import (
	"regexp"
	"strings"

	"github.com/solatis/datagrid/internal/types"
)

// Translator rewrites a filter keyword before it is compiled.
type Translator interface {
	Translate(column, text string) string
}

type translation struct {
	column   string
	text     string
	synonyms []*regexp.Regexp
}

// TranslatorManager replaces synonyms typed by users with the text stored in
// a column, e.g. "yes" -> "true" for a boolean column.
type TranslatorManager struct {
	entries []translation
}

// NewTranslatorManager compiles the dictionary. Synonyms match
// case-insensitively; empty synonyms are ignored.
func NewTranslatorManager(settings []types.TranslatorSetting) *TranslatorManager {
	m := &TranslatorManager{}
	for _, s := range settings {
		t := translation{column: strings.TrimSpace(s.Column), text: s.Text}
		for _, syn := range s.Synonyms {
			if syn == "" {
				continue
			}
			t.synonyms = append(t.synonyms, regexp.MustCompile("(?i)"+regexp.QuoteMeta(syn)))
		}
		m.entries = append(m.entries, t)
	}
	return m
}

// Translate applies, in dictionary order, every entry whose column equals
// column case-insensitively.
func (m *TranslatorManager) Translate(column, text string) string {
	for _, t := range m.entries {
		if !strings.EqualFold(t.column, column) {
			continue
		}
		for _, syn := range t.synonyms {
			text = syn.ReplaceAllLiteralString(text, t.text)
		}
	}
	return text
}
