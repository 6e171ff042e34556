package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// amounts: "1 234,56", "1.234,56", "1,234.56", "234.56", "234,56"
	reAmount = regexp.MustCompile(`\d{1,3}(?:[ .]\d{3})*,\d{2}|\d{1,3}(?:,\d{3})*\.\d{2}|\d+[.,]\d{2}`)

	// dates: ISO, dotted (PL), slashed
	reDateISO     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reDateDotted  = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`)
	reDateSlashed = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	reDateWords   = regexp.MustCompile(`\b(\d{1,2}) (stycznia|lutego|marca|kwietnia|maja|czerwca|lipca|sierpnia|wrzesnia|pazdziernika|listopada|grudnia|january|february|march|april|may|june|july|august|september|october|november|december) (\d{4})\b`)

	// tax ID: bare or dash/space-grouped 10-digit NIP, optional PL prefix.
	// Case-insensitive: matching runs over folded (lowercased) text.
	reTaxID = regexp.MustCompile(`(?i)\b(?:PL[\s-]?)?(\d{3}[- ]?\d{3}[- ]?\d{2}[- ]?\d{2}|\d{10})\b`)

	// bank account: 26-digit NRB, optionally IBAN-prefixed and space-grouped
	reBankAccount = regexp.MustCompile(`(?i)\b(?:PL\s?)?\d{2}(?:[ ]?\d{4}){6}\b`)

	reDigits = regexp.MustCompile(`\D`)
)

var monthNames = map[string]time.Month{
	"stycznia": time.January, "lutego": time.February, "marca": time.March,
	"kwietnia": time.April, "maja": time.May, "czerwca": time.June,
	"lipca": time.July, "sierpnia": time.August, "wrzesnia": time.September,
	"pazdziernika": time.October, "listopada": time.November, "grudnia": time.December,
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// parseAmount canonicalizes a matched amount string to "1234.56".
func parseAmount(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	var intPart, fracPart string
	switch {
	case lastComma > lastDot: // comma is the decimal separator
		intPart, fracPart = s[:lastComma], s[lastComma+1:]
	case lastDot > lastComma: // dot is the decimal separator
		intPart, fracPart = s[:lastDot], s[lastDot+1:]
	default:
		return "", false
	}
	intPart = reDigits.ReplaceAllString(intPart, "")
	fracPart = reDigits.ReplaceAllString(fracPart, "")
	if intPart == "" || len(fracPart) != 2 {
		return "", false
	}
	v, err := strconv.ParseFloat(intPart+"."+fracPart, 64)
	if err != nil || v <= 0 {
		return "", false
	}
	return fmt.Sprintf("%.2f", v), true
}

type dateMatch struct {
	raw   string
	value time.Time
}

// findDates returns every parseable date in a folded line, in match order.
func findDates(folded string) []dateMatch {
	var out []dateMatch
	for _, m := range reDateISO.FindAllStringSubmatch(folded, -1) {
		if d, ok := makeDate(m[1], m[2], m[3]); ok {
			out = append(out, dateMatch{raw: m[0], value: d})
		}
	}
	for _, m := range reDateDotted.FindAllStringSubmatch(folded, -1) {
		if d, ok := makeDate(m[3], m[2], m[1]); ok {
			out = append(out, dateMatch{raw: m[0], value: d})
		}
	}
	for _, m := range reDateSlashed.FindAllStringSubmatch(folded, -1) {
		if d, ok := makeDate(m[3], m[2], m[1]); ok {
			out = append(out, dateMatch{raw: m[0], value: d})
		}
	}
	for _, m := range reDateWords.FindAllStringSubmatch(folded, -1) {
		month, ok := monthNames[m[2]]
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if d, ok := validDate(year, int(month), day); ok {
			out = append(out, dateMatch{raw: m[0], value: d})
		}
	}
	return out
}

func makeDate(year, month, day string) (time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	return validDate(y, m, d)
}

func validDate(year, month, day int) (time.Time, bool) {
	if year < 2000 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// reject normalized rollovers like Feb 31
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, false
	}
	return d, true
}

// validTaxID checks the NIP checksum: weighted sum of the first nine digits
// mod 11 must equal the tenth digit (and never 10).
func validTaxID(digits string) bool {
	if len(digits) != 10 {
		return false
	}
	weights := [9]int{6, 5, 7, 2, 3, 4, 5, 6, 7}
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(digits[i]-'0') * weights[i]
	}
	check := sum % 11
	return check != 10 && check == int(digits[9]-'0')
}

// validBankAccount runs the IBAN mod-97 check over a 26-digit NRB, treating
// it as a Polish IBAN.
func validBankAccount(digits string) bool {
	if len(digits) != 26 {
		return false
	}
	// move country+check to the end; PL -> 2521
	rearranged := digits[2:] + "2521" + digits[:2]
	rem := 0
	for i := 0; i < len(rearranged); i++ {
		rem = (rem*10 + int(rearranged[i]-'0')) % 97
	}
	return rem == 1
}

func digitsOnly(s string) string {
	return reDigits.ReplaceAllString(s, "")
}
