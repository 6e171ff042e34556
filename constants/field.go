package constants

import (
	"fmt"
	"strings"
)

// FieldType identifies a document field the extractor can produce.
type FieldType string

// Stable values (store these exact strings in DB).
const (
	FieldAmount      FieldType = "AMOUNT"
	FieldDueDate     FieldType = "DUE_DATE"
	FieldVendorName  FieldType = "VENDOR_NAME"
	FieldTaxID       FieldType = "TAX_ID"
	FieldBankAccount FieldType = "BANK_ACCOUNT"
)

var allFieldTypes = []FieldType{
	FieldAmount,
	FieldDueDate,
	FieldVendorName,
	FieldTaxID,
	FieldBankAccount,
}

// FieldTypes returns every extractable field type.
func FieldTypes() []FieldType {
	out := make([]FieldType, len(allFieldTypes))
	copy(out, allFieldTypes)
	return out
}

// ParseFieldType canonicalizes a stored/user-supplied field name.
func ParseFieldType(input string) (FieldType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(input))
	for _, ft := range allFieldTypes {
		if normalized == string(ft) {
			return ft, nil
		}
	}
	return "", fmt.Errorf("unknown field type %q", input)
}
