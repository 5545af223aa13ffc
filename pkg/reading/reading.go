package reading

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/kantoku-app/kantoku/pkg/task"
)

// Analyzer derives readings for Japanese text. The generation workflow
// sometimes leaves vocabulary readings or kana romanizations blank; the
// analyzer fills the gaps locally instead of waiting for a backend fix.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a new tokenizer instance.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// ReadingOf returns the katakana reading of text, concatenated across
// tokens. Tokens the dictionary has no reading for contribute their surface
// form unchanged.
func (a *Analyzer) ReadingOf(text string) string {
	var b strings.Builder
	for _, token := range a.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}
		// IPA feature 7 is the reading; "*" means unknown.
		features := token.Features()
		if len(features) > 7 && features[7] != "*" {
			b.WriteString(features[7])
			continue
		}
		b.WriteString(token.Surface)
	}
	return b.String()
}

// RomajiOf is ReadingOf followed by romanization.
func (a *Analyzer) RomajiOf(text string) string {
	return Romanize(a.ReadingOf(text))
}

// AnnotateWords fills in missing readings on vocabulary words. Words that
// already carry a reading are left untouched: the workflow's value wins over
// the local guess. The input slice is not modified.
func (a *Analyzer) AnnotateWords(words []task.VocabularyWord) []task.VocabularyWord {
	out := make([]task.VocabularyWord, len(words))
	copy(out, words)
	for i := range out {
		if out[i].Reading != "" {
			continue
		}
		source := out[i].Word
		if out[i].WordKanji != nil && *out[i].WordKanji != "" {
			source = *out[i].WordKanji
		}
		out[i].Reading = a.RomajiOf(source)
	}
	return out
}

// AnnotateKana fills in missing romanizations on kana items. Pure table
// lookup, no tokenizer involved.
func AnnotateKana(items []task.KanaItem) []task.KanaItem {
	out := make([]task.KanaItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].Romaji == "" {
			out[i].Romaji = Romanize(out[i].Kana)
		}
	}
	return out
}
