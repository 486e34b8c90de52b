package proofreading

import (
	"sort"
	"strings"
	"unicode/utf16"
)

// textLength длина текста в единицах UTF-16, как ее считает LanguageTool
func textLength(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	return n
}

// SplitText делит текст на фрагменты не длиннее limit, не разрывая слова.
// Слово длиннее limit становится отдельным фрагментом. Пустые фрагменты не возвращаются.
func SplitText(text string, limit int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, word := range words {
		wordLen := textLength(word)
		if currentLen > 0 && currentLen+1+wordLen > limit {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(word)
		currentLen += wordLen
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// Replacement исправление в позиции фрагмента (смещения в единицах UTF-16)
type Replacement struct {
	Offset int
	Length int
	Value  string
}

// ApplyReplacements применяет исправления к тексту.
// Исправления, выходящие за границы текста или пересекающиеся с уже примененными, пропускаются;
// при пересечении побеждает то, что стоит раньше в тексте.
func ApplyReplacements(text string, replacements []Replacement) string {
	if len(replacements) == 0 {
		return text
	}

	units := utf16.Encode([]rune(text))
	var out []uint16
	cursor := 0

	for _, r := range sortedReplacements(replacements) {
		if r.Offset < cursor || r.Length < 0 || r.Offset+r.Length > len(units) {
			continue
		}
		out = append(out, units[cursor:r.Offset]...)
		out = append(out, utf16.Encode([]rune(r.Value))...)
		cursor = r.Offset + r.Length
	}
	out = append(out, units[cursor:]...)
	return string(utf16.Decode(out))
}

func sortedReplacements(replacements []Replacement) []Replacement {
	sorted := make([]Replacement, len(replacements))
	copy(sorted, replacements)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})
	return sorted
}
