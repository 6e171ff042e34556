package constants

import "testing"

func TestParseFieldType(t *testing.T) {
	cases := []struct {
		input string
		want  FieldType
	}{
		{"AMOUNT", FieldAmount},
		{"amount", FieldAmount},
		{"  due_date ", FieldDueDate},
		{"Bank_Account", FieldBankAccount},
	}
	for _, c := range cases {
		got, err := ParseFieldType(c.input)
		if err != nil {
			t.Fatalf("ParseFieldType(%q): %v", c.input, err)
		}
		if got != c.want {
			t.Errorf("ParseFieldType(%q) = %q, want %q", c.input, got, c.want)
		}
	}

	if _, err := ParseFieldType("iban"); err == nil {
		t.Error("unknown field name should not parse")
	}
}
