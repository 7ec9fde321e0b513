package report

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/diewo77/inspection-workshop/internal/models"
)

// Plate is a parsed plate number.
type Plate struct {
	Raw       string `json:"raw"`
	Letters   string `json:"letters"`
	LettersEn string `json:"letters_en"`
	Numbers   string `json:"numbers"`
	Chassis   string `json:"chassis,omitempty"`
}

// IsChassis reports whether the plate field held a chassis number.
func (p Plate) IsChassis() bool { return p.Chassis != "" }

// ParsePlate splits a stored plate into its letter and digit blocks. Tokens
// made only of digits form the digit block; everything else is letters.
// A value carrying the chassis marker is returned as a chassis number.
func ParsePlate(raw string, table []models.PlateCharacterPair) Plate {
	p := Plate{Raw: raw}
	car := models.Car{PlateNumber: raw}
	if car.IsChassis() {
		p.Chassis = car.ChassisNumber()
		return p
	}
	var letters, numbers []string
	for _, tok := range strings.Fields(raw) {
		if isDigits(tok) {
			numbers = append(numbers, tok)
			continue
		}
		letters = append(letters, tok)
	}
	p.Letters = strings.Join(letters, " ")
	p.Numbers = asciiDigits(strings.Join(numbers, ""))
	p.LettersEn = Transliterate(p.Letters, table)
	return p
}

// FormatPlate joins a letter block and a digit block into the stored form.
func FormatPlate(letters, numbers string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(letters), " ") + " " + strings.TrimSpace(numbers))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// asciiDigits rewrites Arabic-Indic digits as ASCII digits.
func asciiDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		}
		return r
	}, s)
}

// Transliterate maps every Arabic letter of s through table. Characters
// without a mapping are kept as they are.
func Transliterate(s string, table []models.PlateCharacterPair) string {
	return translate(s, table, func(p models.PlateCharacterPair) (string, string) { return p.Ar, p.En }, false)
}

// Reverse maps English plate letters back to Arabic through table,
// ignoring case.
func Reverse(s string, table []models.PlateCharacterPair) string {
	return translate(s, table, func(p models.PlateCharacterPair) (string, string) { return p.En, p.Ar }, true)
}

// translate does a greedy longest-match replacement of from → to.
func translate(s string, table []models.PlateCharacterPair, pick func(models.PlateCharacterPair) (string, string), fold bool) string {
	var b strings.Builder
	for len(s) > 0 {
		best, repl := 0, ""
		for _, pair := range table {
			from, to := pick(pair)
			if from == "" || len(from) <= best || len(from) > len(s) {
				continue
			}
			head := s[:len(from)]
			if head == from || (fold && strings.EqualFold(head, from)) {
				best, repl = len(from), to
			}
		}
		if best == 0 {
			_, size := utf8.DecodeRuneInString(s)
			b.WriteString(s[:size])
			s = s[size:]
			continue
		}
		b.WriteString(repl)
		s = s[best:]
	}
	return b.String()
}
