package parser

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func TestSanitizeName_Cases(t *testing.T) {
	cases := map[string]string{
		"Sales Amount":     "Sales_Amount",
		"  spaced   out  ": "spaced_out",
		"price (USD)":      "price__USD_",
		"a-b.c/d\\e":       "a_b_c_d_e",
		"[x]{y}":           "_x__y_",
		"2024 revenue":     "col_2024_revenue",
		"":                 UnnamedColumn,
		"\u200b\u200d":     UnnamedColumn,
		"zero\u200bwidth":  "zerowidth",
		"Café":             "Cafe",
		"growth%":          "growth_",
		"ＡＢＣ":              "ABC",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeName(in), "input %q", in)
	}
}

func TestSanitizeName_IdentifierProperty(t *testing.T) {
	inputs := []string{
		"名称", "销售额 (万元)", "9", "__", "tab\there", "new\nline", "emoji 🚀 col",
		"\x00\x01ctrl", "private", "ß", "Ω/σ", "-", "...", "١٢٣", "col#1", "á",
	}
	for _, in := range inputs {
		got := SanitizeName(in)
		if got == UnnamedColumn {
			continue
		}
		assert.Regexp(t, identifier, got, "input %q", in)
	}
}

func TestSanitizeName_NonASCIIKeepsIdentity(t *testing.T) {
	a := SanitizeName("名称")
	b := SanitizeName("数量")
	assert.NotEqual(t, a, b)
	assert.Regexp(t, identifier, a)
}

func TestSanitizeNames_Duplicates(t *testing.T) {
	got := SanitizeNames([]string{"a b", "a-b", "a_b", "a_b_2"})
	assert.Equal(t, []string{"a_b", "a_b_2", "a_b_3", "a_b_2_2"}, got)
}
