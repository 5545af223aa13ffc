package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// reviewMarker is the substring the legacy generation workflow put into the
// free-text description of review tasks. Classifying on it is a heuristic
// inherited from the producer; there is no better discriminant in that shape.
const reviewMarker = "複習"

// UnrecognizedShapeError reports a content object whose key set matched none
// of the known payload shapes. Keys holds the keys that were actually seen.
type UnrecognizedShapeError struct {
	Keys []string
}

func (e *UnrecognizedShapeError) Error() string {
	return fmt.Sprintf("unrecognized content shape: keys [%s]", strings.Join(e.Keys, " "))
}

// MalformedContentError reports a payload that matched a known shape but had
// a missing or mistyped field inside it.
type MalformedContentError struct {
	Kind Kind
	Err  error
}

func (e *MalformedContentError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("malformed content: %v", e.Err)
	}
	return fmt.Sprintf("malformed %s content: %v", e.Kind, e.Err)
}

func (e *MalformedContentError) Unwrap() error { return e.Err }

// DecodeContent converts a raw content payload into one of the four Content
// variants. The payload may be a JSON object or a JSON string containing an
// object: the relational store serializes content as a string while the
// generation workflow emits it pre-parsed, and that difference is invisible
// to callers.
//
// Classification is by key presence, in priority order: kana_list, then
// review_kana, then the legacy single-item shape (kana + type), then words,
// then resource_type. None of the producers emit a type tag, so the envelope
// is sniffed instead. The legacy shape is checked after the current kana
// shapes because its key space is a strict subset of theirs.
func DecodeContent(raw []byte) (Content, error) {
	obj, err := normalizeContent(raw)
	if err != nil {
		return nil, err
	}

	_, hasKanaList := obj["kana_list"]
	_, hasReviewKana := obj["review_kana"]
	_, hasKana := obj["kana"]
	_, hasType := obj["type"]
	_, hasWords := obj["words"]
	_, hasResourceType := obj["resource_type"]

	data := rawObject(obj)

	switch {
	case hasKanaList:
		var c KanaLearn
		if err := strictUnmarshal(data, &c, KindKanaLearn); err != nil {
			return nil, err
		}
		if err := validateKana(c.KanaList, c.KanaType); err != nil {
			return nil, &MalformedContentError{Kind: KindKanaLearn, Err: err}
		}
		return c, nil

	case hasReviewKana:
		var c KanaReview
		if err := strictUnmarshal(data, &c, KindKanaReview); err != nil {
			return nil, err
		}
		if err := validateKana(c.ReviewKana, c.KanaType); err != nil {
			return nil, &MalformedContentError{Kind: KindKanaReview, Err: err}
		}
		return c, nil

	case hasKana && hasType:
		return decodeLegacyKana(data)

	case hasWords:
		var c Vocabulary
		if err := strictUnmarshal(data, &c, KindVocabulary); err != nil {
			return nil, err
		}
		for i, w := range c.Words {
			if w.Word == "" || w.Reading == "" || w.Meaning == "" || w.Level == "" {
				return nil, &MalformedContentError{
					Kind: KindVocabulary,
					Err:  fmt.Errorf("word %d: word, reading, meaning and level are required", i),
				}
			}
		}
		return c, nil

	case hasResourceType:
		var c ExternalResource
		if err := strictUnmarshal(data, &c, KindExternalResource); err != nil {
			return nil, err
		}
		if c.ResourceType == "" || c.URL == "" || c.Title == "" {
			return nil, &MalformedContentError{
				Kind: KindExternalResource,
				Err:  fmt.Errorf("resource_type, url and title are required"),
			}
		}
		return c, nil
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return nil, &UnrecognizedShapeError{Keys: keys}
}

// EncodeContent renders a variant back to its canonical JSON object form.
// Decoding that output yields the same variant (the canonical form is a
// fixed point of decode∘encode).
func EncodeContent(c Content) ([]byte, error) {
	return json.Marshal(c)
}

// normalizeContent produces the canonical in-memory object the variant
// sniffing runs on, unwrapping one level of string encoding first.
func normalizeContent(raw []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &MalformedContentError{Err: fmt.Errorf("empty content")}
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, &MalformedContentError{Err: fmt.Errorf("unwrap string content: %w", err)}
		}
		trimmed = bytes.TrimSpace([]byte(s))
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, &MalformedContentError{Err: fmt.Errorf("content is not a JSON object: %w", err)}
	}
	return obj, nil
}

// rawObject re-serializes the normalized key map so each shape can be decoded
// strictly from a single canonical byte form.
func rawObject(obj map[string]json.RawMessage) []byte {
	data, _ := json.Marshal(obj)
	return data
}

func strictUnmarshal(data []byte, dst Content, kind Kind) error {
	// dst is a pointer to the concrete variant here; the Content constraint
	// just keeps callers honest about what they pass.
	if err := json.Unmarshal(data, dst); err != nil {
		return &MalformedContentError{Kind: kind, Err: err}
	}
	return nil
}

func validateKana(items []KanaItem, kt KanaType) error {
	if len(items) == 0 {
		return fmt.Errorf("kana list is empty")
	}
	if kt != Hiragana && kt != Katakana {
		return fmt.Errorf("invalid kana_type %q", kt)
	}
	for i, it := range items {
		if it.Kana == "" {
			return fmt.Errorf("kana item %d has no character", i)
		}
	}
	return nil
}

// decodeLegacyKana handles the single-item shape produced by the old
// generation workflow: {"kana": "...", "type": "...", "romaji": "...",
// "description": "..."}. It always yields exactly one list element. The
// learn/review split rests on the description text; an unrecognized type
// string falls back to hiragana.
func decodeLegacyKana(data []byte) (Content, error) {
	var legacy struct {
		Kana        string `json:"kana"`
		Type        string `json:"type"`
		Romaji      string `json:"romaji"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, &MalformedContentError{Kind: KindKanaLearn, Err: err}
	}
	if legacy.Kana == "" {
		return nil, &MalformedContentError{Kind: KindKanaLearn, Err: fmt.Errorf("legacy kana is empty")}
	}

	kt := Hiragana
	if legacy.Type == string(Katakana) {
		kt = Katakana
	}
	item := KanaItem{Kana: legacy.Kana, Romaji: legacy.Romaji}

	if strings.Contains(legacy.Description, reviewMarker) {
		return KanaReview{ReviewKana: []KanaItem{item}, KanaType: kt}, nil
	}
	return KanaLearn{KanaList: []KanaItem{item}, KanaType: kt}, nil
}
