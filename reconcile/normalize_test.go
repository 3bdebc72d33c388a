package reconcile

import (
	"testing"

	"bitbucket.org/wescanlabs/corescan_backend/models"
)

func TestNormalizeString_TrimsWhitespace(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"H1", "H1"},
		{"  H1  ", "H1"},
		{"\tDDH-042 \n", "DDH-042"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeString(tc.in); got != tc.expected {
			t.Fatalf("NormalizeString(%q) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestNormalizeNumber_AcceptsHeterogeneousInput(t *testing.T) {
	cases := []struct {
		in       string
		expected string
		ok       bool
	}{
		{"12.5", "12.5", true},
		{" 12.50 ", "12.5", true},
		{"10", "10", true},
		{"abc", "", false},
		{"", "", false},
		{"  ", "", false},
		{"12,5", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeNumber(tc.in)
		if ok != tc.ok {
			t.Fatalf("NormalizeNumber(%q) ok expected %v, got %v", tc.in, tc.ok, ok)
		}
		if ok && got.String() != tc.expected {
			t.Fatalf("NormalizeNumber(%q) expected %s, got %s", tc.in, tc.expected, got.String())
		}
	}
}

func TestNormalizeNumber_AbsentNeverEqual(t *testing.T) {
	a, aok := NormalizeNumber("abc")
	b, bok := NormalizeNumber("xyz")
	if aok || bok {
		t.Fatalf("unparsable values must not normalize: ok=%v/%v", aok, bok)
	}
	// The ok flag is the comparison gate; two absents never match.
	if aok && bok && a.Equal(b) {
		t.Fatal("two absent values compared equal")
	}

	parsed, ok := NormalizeNumber("12.5")
	if !ok {
		t.Fatal("12.5 should parse")
	}
	if aok && parsed.Equal(a) {
		t.Fatal("absent value compared equal to a parsed number")
	}
}

func TestNormalizeDepth_StringAndNumberTokens(t *testing.T) {
	var num models.Depth
	if err := num.UnmarshalJSON([]byte(`12.5`)); err != nil {
		t.Fatalf("unmarshal number token: %v", err)
	}
	var str models.Depth
	if err := str.UnmarshalJSON([]byte(`" 12.5 "`)); err != nil {
		t.Fatalf("unmarshal string token: %v", err)
	}

	if !depthsEqual(num, str) {
		t.Fatal("number token and padded string token should normalize equal")
	}
}
