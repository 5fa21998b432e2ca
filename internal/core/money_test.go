package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"1 250 000", "1250000", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyJSONIsBareNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{MustMoney("12.50")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"amount":12.5}` {
		t.Fatalf("unexpected json: %s", b)
	}

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":1500.25,"b":"3","c":null}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !in.A.Equal(MustMoney("1500.25")) || !in.B.Equal(MoneyFromInt(3)) || !in.C.IsZero() {
		t.Fatalf("unexpected values: %s %s %s", in.A, in.B, in.C)
	}
}

func TestMoneyPercent(t *testing.T) {
	if got := MoneyFromInt(25).Percent(MoneyFromInt(200)); got != 12.5 {
		t.Fatalf("expected 12.5, got %v", got)
	}
	if got := MoneyFromInt(25).Percent(Zero); got != 0 {
		t.Fatalf("expected 0 for zero total, got %v", got)
	}
}

func TestFormatMoney(t *testing.T) {
	s := FormatMoney(MoneyFromInt(1250000), "MGA")
	if !strings.HasSuffix(s, " Ar") {
		t.Fatalf("expected Ariary suffix, got %q", s)
	}
	if !strings.HasPrefix(s, "1") || !strings.Contains(s, "250") {
		t.Fatalf("unexpected digits in %q", s)
	}
	if got := FormatMoney(MoneyFromInt(5), "chf"); !strings.HasSuffix(got, " CHF") {
		t.Fatalf("unknown currency should print its code, got %q", got)
	}
}
