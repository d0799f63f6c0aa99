package typegen

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ToCamelCase convert string to CamelCase.
func ToCamelCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for i, word := range words {
		r, size := utf8.DecodeRuneInString(word)
		words[i] = string(unicode.ToUpper(r)) + word[size:]
	}

	return strings.Join(words, "")
}

// ToIdentifier strips everything that is not valid in a TypeScript identifier.
func ToIdentifier(s string) string {
	id := strings.Map(func(r rune) rune {
		if r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			return r
		}
		return -1
	}, s)
	if id == "" {
		return "Type"
	}
	if r, _ := utf8.DecodeRuneInString(id); unicode.IsNumber(r) {
		return "_" + id
	}
	return id
}
