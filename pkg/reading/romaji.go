package reading

import "strings"

// kanaRomaji maps katakana to Hepburn romaji. Hiragana input is shifted to
// katakana before lookup (the two blocks are offset by 0x60).
var kanaRomaji = map[rune]string{
	'ア': "a", 'イ': "i", 'ウ': "u", 'エ': "e", 'オ': "o",
	'カ': "ka", 'キ': "ki", 'ク': "ku", 'ケ': "ke", 'コ': "ko",
	'サ': "sa", 'シ': "shi", 'ス': "su", 'セ': "se", 'ソ': "so",
	'タ': "ta", 'チ': "chi", 'ツ': "tsu", 'テ': "te", 'ト': "to",
	'ナ': "na", 'ニ': "ni", 'ヌ': "nu", 'ネ': "ne", 'ノ': "no",
	'ハ': "ha", 'ヒ': "hi", 'フ': "fu", 'ヘ': "he", 'ホ': "ho",
	'マ': "ma", 'ミ': "mi", 'ム': "mu", 'メ': "me", 'モ': "mo",
	'ヤ': "ya", 'ユ': "yu", 'ヨ': "yo",
	'ラ': "ra", 'リ': "ri", 'ル': "ru", 'レ': "re", 'ロ': "ro",
	'ワ': "wa", 'ヲ': "o", 'ン': "n",
	'ガ': "ga", 'ギ': "gi", 'グ': "gu", 'ゲ': "ge", 'ゴ': "go",
	'ザ': "za", 'ジ': "ji", 'ズ': "zu", 'ゼ': "ze", 'ゾ': "zo",
	'ダ': "da", 'ヂ': "ji", 'ヅ': "zu", 'デ': "de", 'ド': "do",
	'バ': "ba", 'ビ': "bi", 'ブ': "bu", 'ベ': "be", 'ボ': "bo",
	'パ': "pa", 'ピ': "pi", 'プ': "pu", 'ペ': "pe", 'ポ': "po",
	'ヴ': "vu",
	'ァ': "a", 'ィ': "i", 'ゥ': "u", 'ェ': "e", 'ォ': "o",
}

var smallY = map[rune]string{'ャ': "a", 'ュ': "u", 'ョ': "o"}

// Romanize converts kana text to Hepburn romaji. Handles digraphs (キャ →
// kya), sokuon gemination (ガッコウ → gakkou), and the long vowel mark.
// Runes outside the kana blocks pass through unchanged.
func Romanize(kana string) string {
	runes := []rune(toKatakana(kana))
	var b strings.Builder
	pendingSokuon := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == 'ッ' {
			pendingSokuon = true
			continue
		}
		if r == 'ー' {
			// Long vowel: repeat the last emitted vowel.
			cur := b.String()
			if len(cur) > 0 {
				b.WriteByte(cur[len(cur)-1])
			}
			continue
		}

		syll, ok := kanaRomaji[r]
		if !ok {
			b.WriteRune(r)
			pendingSokuon = false
			continue
		}

		// Digraph: consonant kana followed by small ya/yu/yo.
		if i+1 < len(runes) {
			if v, small := smallY[runes[i+1]]; small && strings.HasSuffix(syll, "i") {
				stem := strings.TrimSuffix(syll, "i")
				if stem == "sh" || stem == "ch" || stem == "j" {
					syll = stem + v
				} else {
					syll = stem + "y" + v
				}
				i++
			}
		}

		if pendingSokuon {
			if strings.HasPrefix(syll, "ch") {
				b.WriteByte('t')
			} else {
				b.WriteByte(syll[0])
			}
			pendingSokuon = false
		}
		b.WriteString(syll)
	}
	return b.String()
}

func toKatakana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ぁ' && r <= 'ゖ' {
			return r + 0x60
		}
		return r
	}, s)
}
