// Package format renders values the way Brazilian users expect to read them.
package format

import (
	"strings"
	"time"
	_ "time/tzdata"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Location is the zone used for user-facing timestamps.
var Location = mustLoad("America/Sao_Paulo")

var printer = message.NewPrinter(language.BrazilianPortuguese)

var lowercaseWords = map[string]bool{
	"de": true, "da": true, "do": true, "das": true, "dos": true, "e": true,
}

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WhatsAppNumber normalizes a phone number to +55DDNNNNNNNNN.
func WhatsAppNumber(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if !strings.HasPrefix(digits, "55") {
		digits = "55" + digits
	}
	return "+" + digits
}

// Currency formats a value in Brazilian reais, e.g. "R$ 1.234,56".
func Currency(value float64) string {
	return "R$ " + printer.Sprintf("%.2f", value)
}

// DateBR formats t as DD/MM/YYYY.
func DateBR(t time.Time) string {
	return t.In(Location).Format("02/01/2006")
}

// DateTimeBR formats t as DD/MM/YYYY HH:MM.
func DateTimeBR(t time.Time) string {
	return t.In(Location).Format("02/01/2006 15:04")
}

// Truncate shortens text to maxLength runes, suffix included.
func Truncate(text string, maxLength int, suffix string) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	keep := maxLength - len([]rune(suffix))
	if keep < 0 {
		keep = 0
	}
	return strings.TrimRightFunc(string(runes[:keep]), unicode.IsSpace) + suffix
}

// PoliticianName title-cases a name, keeping Portuguese connectors lowercase.
func PoliticianName(full string) string {
	words := strings.Fields(strings.ToLower(full))
	for i, w := range words {
		if i > 0 && lowercaseWords[w] {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
