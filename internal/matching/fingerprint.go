package matching

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/jzielinski/invoicescan/internal/ocr"
)

// legalSuffixes are company-form suffixes stripped before fingerprinting so
// "Acme Sp. z o.o." and "ACME sp z oo" collapse to the same key.
var legalSuffixes = []string{
	"sp z o o", "sp z oo", "spolka z o o", "spolka akcyjna",
	"s a", "s c", "sp j", "sp k",
	"ltd", "llc", "gmbh", "inc", "co",
}

// NearestFingerprintThreshold is the minimum levenshtein similarity for a
// "did you mean" fingerprint lookup.
const NearestFingerprintThreshold = 0.85

// Fingerprint derives the vendor grouping key. A valid-looking tax ID wins
// over the name, since names vary across OCR runs and the NIP does not.
func Fingerprint(vendorName, taxID string) string {
	digits := digitsOnly(taxID)
	if len(digits) == 10 {
		return "nip:" + digits
	}
	name := normalizeName(vendorName)
	if name == "" {
		return ""
	}
	return "name:" + name
}

func normalizeName(name string) string {
	tokens := ocr.Tokenize(name)
	if len(tokens) == 0 {
		return ""
	}
	joined := strings.Join(tokens, " ")
	for _, suffix := range legalSuffixes {
		joined = strings.TrimSuffix(joined, " "+suffix)
	}
	return strings.TrimSpace(joined)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NearestCandidates selects the templates a document may link to when no
// template carries its exact fingerprint: those of the closest known
// fingerprint, absorbing OCR noise in vendor names. Templates of unrelated
// vendors are never candidates, whatever their amounts. Returns nil when
// nothing is close enough.
func NearestCandidates(fingerprint string, all []Template) []Template {
	known := make([]string, 0, len(all))
	seen := make(map[string]bool, len(all))
	for _, t := range all {
		if !seen[t.VendorFingerprint] {
			seen[t.VendorFingerprint] = true
			known = append(known, t.VendorFingerprint)
		}
	}
	nearest, ok := NearestFingerprint(fingerprint, known)
	if !ok {
		return nil
	}
	var out []Template
	for _, t := range all {
		if t.VendorFingerprint == nearest {
			out = append(out, t)
		}
	}
	return out
}

// NearestFingerprint finds the closest known fingerprint by levenshtein
// similarity, for recovering from OCR-mangled vendor names. Exact matches
// return immediately; anything below the threshold reports no match.
func NearestFingerprint(fingerprint string, known []string) (string, bool) {
	bestScore := 0.0
	best := ""
	for _, k := range known {
		if k == fingerprint {
			return k, true
		}
		if score := levenshtein.Match(fingerprint, k, nil); score > bestScore {
			bestScore, best = score, k
		}
	}
	if bestScore >= NearestFingerprintThreshold {
		return best, true
	}
	return "", false
}
