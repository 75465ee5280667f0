package symbol

import "testing"

func TestNormalize_Valid(t *testing.T) {
	cases := map[string]string{
		"AAPL":    "AAPL",
		"aapl":    "AAPL",
		" msft ":  "MSFT",
		"F":       "F",
		"GOOGL":   "GOOGL",
		"brk.b":   "BRK.B",
		"\tTSLA ": "TSLA",
	}
	for raw, want := range cases {
		got, err := Normalize(raw)
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error %v", raw, err)
			continue
		}
		if got != want {
			t.Errorf("Normalize(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalize_Invalid(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"TOOLONG",
		"AAPL1",
		"AA PL",
		"BRK.BB",
		".B",
		"AAPL.",
	}
	for _, raw := range cases {
		if _, err := Normalize(raw); err == nil {
			t.Errorf("Normalize(%q): expected error", raw)
		}
	}
}
