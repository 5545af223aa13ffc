package task

import "github.com/google/uuid"

// Kind identifies which content variant a task carries. It is always derived
// from the decoded content, never read from a separate wire field (the two
// can disagree on legacy payloads).
type Kind string

const (
	KindKanaLearn        Kind = "kana_learn"
	KindKanaReview       Kind = "kana_review"
	KindVocabulary       Kind = "vocabulary"
	KindExternalResource Kind = "external_resource"
)

// KanaType is the script a kana task covers.
type KanaType string

const (
	Hiragana KanaType = "hiragana"
	Katakana KanaType = "katakana"
)

// Content is one of the four task payload variants. Exactly one concrete
// type is produced per decode.
type Content interface {
	Kind() Kind
	content()
}

// KanaItem is a single character with its romanization.
type KanaItem struct {
	Kana   string `json:"kana"`
	Romaji string `json:"romaji"`
}

// KanaLearn introduces new kana characters.
type KanaLearn struct {
	KanaList []KanaItem `json:"kana_list"`
	KanaType KanaType   `json:"kana_type"`
}

// KanaReview re-drills previously learned kana. Structurally identical to
// KanaLearn; the two are told apart by which key the source JSON carries.
type KanaReview struct {
	ReviewKana []KanaItem `json:"review_kana"`
	KanaType   KanaType   `json:"kana_type"`
}

// VocabularyWord is one dictionary entry in a vocabulary task.
type VocabularyWord struct {
	ID                     uuid.UUID `json:"id"`
	Word                   string    `json:"word"`
	WordKanji              *string   `json:"word_kanji,omitempty"`
	Reading                string    `json:"reading"`
	Meaning                string    `json:"meaning"`
	Level                  string    `json:"level"`
	ExampleSentence        *string   `json:"example_sentence,omitempty"`
	ExampleSentenceMeaning *string   `json:"example_sentence_meaning,omitempty"`
}

// Vocabulary carries a list of words to study.
type Vocabulary struct {
	Words []VocabularyWord `json:"words"`
}

// ExternalResource points the learner at material outside the app.
type ExternalResource struct {
	ResourceType    string  `json:"resource_type"`
	URL             string  `json:"url"`
	Title           string  `json:"title"`
	Description     *string `json:"description,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
}

func (KanaLearn) Kind() Kind        { return KindKanaLearn }
func (KanaReview) Kind() Kind       { return KindKanaReview }
func (Vocabulary) Kind() Kind       { return KindVocabulary }
func (ExternalResource) Kind() Kind { return KindExternalResource }

func (KanaLearn) content()        {}
func (KanaReview) content()       {}
func (Vocabulary) content()       {}
func (ExternalResource) content() {}
