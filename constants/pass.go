package constants

// PassSource tags which OCR recognition pass produced a line.
type PassSource string

const (
	PassStandard  PassSource = "STANDARD"  // pass tuned for normal text height
	PassSensitive PassSource = "SENSITIVE" // pass tuned for small/fine text
	PassMerged    PassSource = "MERGED"    // deduplicated across both passes
)

// KeywordCategory groups keyword rules by the signal they carry.
type KeywordCategory string

const (
	CategoryPayDue   KeywordCategory = "PAY_DUE"  // "amount due", "do zapłaty"
	CategoryDueDate  KeywordCategory = "DUE_DATE" // "payment date", "termin płatności"
	CategoryTotal    KeywordCategory = "TOTAL"    // "total", "suma", "razem"
	CategoryNegative KeywordCategory = "NEGATIVE" // "VAT", "discount"; always applied
)

// KeywordCategories returns every rule category.
func KeywordCategories() []KeywordCategory {
	return []KeywordCategory{CategoryPayDue, CategoryDueDate, CategoryTotal, CategoryNegative}
}
