package analyzer

import "strings"

// Stem reduces plural and -ing/-ed forms so that "sneakers" and "sneaker"
// or "running" and "run" hash to the same feature. It is intentionally
// lighter than a full Porter stemmer: product text is short and mostly nouns.
func Stem(word string) string {
	if len(word) <= 3 {
		return word
	}

	switch {
	case strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}

	for _, suffix := range []string{"ing", "ed"} {
		if !strings.HasSuffix(word, suffix) {
			continue
		}
		stem := word[:len(word)-len(suffix)]
		if len(stem) < 3 || !hasVowel(stem) {
			return word
		}
		if endsDoubleConsonant(stem) {
			stem = stem[:len(stem)-1]
		}
		return stem
	}
	return word
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

func hasVowel(s string) bool {
	for i := 0; i < len(s); i++ {
		if isVowel(s[i]) {
			return true
		}
	}
	return false
}

// endsDoubleConsonant matches "runn" or "padd" but not "fall" or "buzz".
func endsDoubleConsonant(s string) bool {
	n := len(s)
	if n < 2 || s[n-1] != s[n-2] || isVowel(s[n-1]) {
		return false
	}
	switch s[n-1] {
	case 'l', 's', 'z':
		return false
	}
	return true
}
