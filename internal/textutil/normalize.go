// Package textutil repairs known character-encoding corruption in strings
// coming from the listing API.
//
// The upstream feed was historically produced by reading UTF-8 bytes as
// Latin-1, so accented characters arrive as fixed two-byte artifacts
// ("Ã¡" for "á" and so on). This is a bounded lookup-and-strip pass over a
// known defect, not a general encoding repair.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

// mojibake maps corrupted sequences to the intended character. Applied in
// order: multi-rune artifacts must come before the bare "Ã"/"Â"
// fallbacks or the fallbacks would consume their lead byte first.
var mojibake = []struct {
	bad, good string
}{
	{"Ã¡", "á"},
	{"Ã©", "é"},
	{"Ã­", "í"},
	{"Ã³", "ó"},
	{"Ãº", "ú"},
	{"Ã±", "ñ"},
	{"Ã¼", "ü"},
	{"Ã", "Á"},
	{"Ã‰", "É"},
	{"Ã", "Í"},
	{"Ã“", "Ó"},
	{"Ãš", "Ú"},
	{"Ã‘", "Ñ"},
	{"Ãœ", "Ü"},
	{"Â¡", "¡"},
	{"Â¿", "¿"},
	{"Âº", "º"},
	{"Â°", "°"},
	{"Ã", "Á"},
	{"Â", ""},
}

// allowed lists the non-ASCII characters that survive the final filter.
const allowed = "áéíóúÁÉÍÓÚñÑüÜ¡¿º°"

// gradeSection matches values like "5A" (grade five, section A) so a
// separating space can be inserted for display.
var gradeSection = regexp.MustCompile(`^([0-9]+)([A-Za-zÁÉÍÓÚÑáéíóúñ])$`)

// Clean repairs mojibake artifacts and strips everything that is not
// printable ASCII, a Spanish accented letter, inverted punctuation, a
// degree/ordinal sign or whitespace. It never fails; unknown characters
// are dropped, not substituted.
func Clean(s string) string {
	if s == "" {
		return ""
	}

	for _, m := range mojibake {
		s = strings.ReplaceAll(s, m.bad, m.good)
	}
	s = strings.ReplaceAll(s, "�", "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 0x20 && r <= 0x7E:
			b.WriteRune(r)
		case strings.ContainsRune(allowed, r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}
	out := b.String()

	if m := gradeSection.FindStringSubmatch(out); m != nil {
		out = m[1] + " " + m[2]
	}
	return out
}
