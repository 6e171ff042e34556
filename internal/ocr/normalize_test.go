package ocr

import (
	"math"
	"testing"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/geometry"
)

func line(t *testing.T, text string, page int, x, y, w, h, conf float64, pass constants.PassSource) Line {
	t.Helper()
	bbox, err := geometry.NewBoundingBox(x, y, w, h)
	if err != nil {
		t.Fatalf("bbox: %v", err)
	}
	ln, err := NewLine(text, page, bbox, conf, pass)
	if err != nil {
		t.Fatalf("NewLine: %v", err)
	}
	return ln
}

func TestNewLine_Validation(t *testing.T) {
	bbox, _ := geometry.NewBoundingBox(0.1, 0.1, 0.3, 0.05)
	if _, err := NewLine("x", -1, bbox, 0.5, constants.PassStandard); err == nil {
		t.Error("expected error for negative page index")
	}
	if _, err := NewLine("x", 0, bbox, 1.2, constants.PassStandard); err == nil {
		t.Error("expected error for confidence above 1")
	}
}

func TestFold_PolishDiacritics(t *testing.T) {
	cases := map[string]string{
		"Termin PŁATNOŚCI": "termin platnosci",
		"Do zapłaty":       "do zaplaty",
		"Faktura VAT":      "faktura vat",
		"żółć":             "zolc",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Do zapłaty: 1 234,56 PLN")
	want := []string{"do", "zaplaty", "1", "234", "56", "pln"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTextSimilarity(t *testing.T) {
	if got := TextSimilarity("  Total Due ", "total due"); got != 1.0 {
		t.Errorf("trimmed lowercase equality should be 1.0, got %g", got)
	}
	// containment: min(len)/max(len)
	if got := TextSimilarity("total", "total due"); math.Abs(got-5.0/9.0) > 1e-9 {
		t.Errorf("containment ratio wrong: %g", got)
	}
	// jaccard over tokens: {amount,due} vs {amount,payable} -> 1/3
	if got := TextSimilarity("amount due", "amount payable"); math.Abs(got-1.0/3.0) > 1e-9 {
		t.Errorf("jaccard wrong: %g", got)
	}
	if got := TextSimilarity("", "anything"); got != 0 {
		t.Errorf("empty string should score 0, got %g", got)
	}
}

func TestMergePasses_DuplicateKeepsHigherConfidence(t *testing.T) {
	std := []Line{line(t, "Do zapłaty: 123,45", 0, 0.1, 0.50, 0.3, 0.03, 0.72, constants.PassStandard)}
	sen := []Line{line(t, "Do zapłaty: 123,45", 0, 0.11, 0.505, 0.3, 0.03, 0.91, constants.PassSensitive)}

	merged := MergePasses(std, sen)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged line, got %d", len(merged))
	}
	if merged[0].Confidence != 0.91 {
		t.Errorf("higher confidence should survive, got %g", merged[0].Confidence)
	}
	if merged[0].PassSource != constants.PassMerged {
		t.Errorf("merged line should be tagged %s, got %s", constants.PassMerged, merged[0].PassSource)
	}
}

func TestMergePasses_DifferentPagesNotMerged(t *testing.T) {
	std := []Line{line(t, "Suma: 99,00", 0, 0.1, 0.5, 0.3, 0.03, 0.8, constants.PassStandard)}
	sen := []Line{line(t, "Suma: 99,00", 1, 0.1, 0.5, 0.3, 0.03, 0.9, constants.PassSensitive)}
	if merged := MergePasses(std, sen); len(merged) != 2 {
		t.Fatalf("lines on different pages must not merge, got %d", len(merged))
	}
}

func TestMergePasses_DissimilarTextNotMerged(t *testing.T) {
	std := []Line{line(t, "Faktura nr 12/2024", 0, 0.1, 0.1, 0.3, 0.03, 0.8, constants.PassStandard)}
	sen := []Line{line(t, "Termin płatności", 0, 0.1, 0.1, 0.3, 0.03, 0.9, constants.PassSensitive)}
	if merged := MergePasses(std, sen); len(merged) != 2 {
		t.Fatalf("dissimilar overlapping lines must not merge, got %d", len(merged))
	}
}

func TestMergePasses_ReadingOrder(t *testing.T) {
	std := []Line{
		line(t, "bottom", 0, 0.1, 0.8, 0.2, 0.03, 0.8, constants.PassStandard),
		line(t, "top", 0, 0.1, 0.1, 0.2, 0.03, 0.8, constants.PassStandard),
	}
	sen := []Line{line(t, "page two", 1, 0.1, 0.1, 0.2, 0.03, 0.8, constants.PassSensitive)}
	merged := MergePasses(std, sen)
	if merged[0].Text != "top" || merged[1].Text != "bottom" || merged[2].Text != "page two" {
		t.Errorf("wrong reading order: %q %q %q", merged[0].Text, merged[1].Text, merged[2].Text)
	}
}

func TestStats_NoRawText(t *testing.T) {
	lines := []Line{
		line(t, "secret", 0, 0.1, 0.1, 0.2, 0.03, 0.6, constants.PassStandard),
		line(t, "secret two", 0, 0.1, 0.2, 0.2, 0.03, 0.8, constants.PassMerged),
	}
	stats := Stats(lines)
	if len(stats) != 1 {
		t.Fatalf("expected one page, got %d", len(stats))
	}
	ps := stats[0]
	if ps.LineCount != 2 || ps.StandardLines != 1 || ps.MergedLines != 1 {
		t.Errorf("wrong counts: %+v", ps)
	}
	if math.Abs(ps.MeanConfidence-0.7) > 1e-9 {
		t.Errorf("mean confidence = %g, want 0.7", ps.MeanConfidence)
	}
}
