package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxLength is the hard column limit for every slug field.
const MaxLength = 255

var cyrillicToLatin = buildTranslitTable(
	"абвгдеёжзийклмнопрстуфхцчшщыэюяАБВГДЕЁЖЗИЙКЛМНОПРСТУФХЦЧШЩЫЭЮЯ",
	"abvgdeejziiklmnoprstufhcchhieuaABVGDEEJZIIKLMNOPRSTUFHCCHHIEUA",
)

// dropped by transliteration
var cyrillicSigns = map[rune]struct{}{'ъ': {}, 'ь': {}, 'Ъ': {}, 'Ь': {}}

func buildTranslitTable(from, to string) map[rune]rune {
	src, dst := []rune(from), []rune(to)
	table := make(map[rune]rune, len(src))
	for i, r := range src {
		table[r] = dst[i]
	}
	return table
}

// Transliterate maps Cyrillic letters to Latin ones, one rune at a time.
// Hard and soft signs are removed; everything else is kept as is.
func Transliterate(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if _, drop := cyrillicSigns[r]; drop {
			continue
		}
		if latin, ok := cyrillicToLatin[r]; ok {
			b.WriteRune(latin)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsLatin reports whether every rune of text belongs to the Latin script.
func IsLatin(text string) bool {
	for _, r := range text {
		if !unicode.Is(unicode.Latin, r) {
			return false
		}
	}
	return true
}

// Slugify lowercases text, drops everything except letters, digits,
// underscores, hyphens and whitespace, then joins the words with hyphens.
// Unicode letters survive. The result is cut to maxLen runes (0 = no limit).
func Slugify(text string, maxLen int) string {
	text = strings.ToLower(norm.NFKC.String(text))

	var b strings.Builder
	b.Grow(len(text))
	pendingSep := false
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingSep = true
		}
	}

	out := strings.Trim(b.String(), "-_")
	return truncate(out, maxLen)
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
