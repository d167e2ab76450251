package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{" 2.50 ", "2.50", true},
		{"", "0.00", true},
		{".5", "0.50", true},
		{"5.", "5.00", true},
		{"+3", "3.00", true},
		{"-1", "-1.00", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"--1", "", false},
		{"-", "", false},
		{".", "", false},
		{"1e5", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.StringFixed(Scale) != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got.StringFixed(Scale), err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseAmountOrZero(t *testing.T) {
	if !ParseAmountOrZero("oops").IsZero() {
		t.Fatalf("expected zero for garbage input")
	}
	if ParseAmountOrZero("4,5").StringFixed(Scale) != "4.50" {
		t.Fatalf("expected 4.50")
	}
}

func TestFormatEuros(t *testing.T) {
	if got := FormatEuros(dec("1234.5")); got != "€1234.50" {
		t.Fatalf("got %q", got)
	}
	if got := FormatEuros(dec("-0.5")); got != "-€0.50" {
		t.Fatalf("got %q", got)
	}
}
