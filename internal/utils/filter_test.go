package utils

import "testing"

func TestIsWordInput(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"hello", true},
		{"don't", true},
		{"well-known", true},
		{"", false},
		{"1234", false},
		{"h3llo", false},
		{"-hello", false},
		{"hello!", false},
		{"zzz", false},
		{"zz", true},
	}
	for _, tt := range tests {
		if got := IsWordInput(tt.in); got != tt.want {
			t.Errorf("IsWordInput(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLettersOnly(t *testing.T) {
	if got := LettersOnly("He-Llo 42"); got != "hello" {
		t.Errorf("LettersOnly = %q", got)
	}
}

func TestSuggestionFilter(t *testing.T) {
	f := NewSuggestionFilter("the")
	if f.ShouldInclude("The") {
		t.Error("excluded word was included")
	}
	if !f.ShouldInclude("hello") {
		t.Error("first hello rejected")
	}
	if f.ShouldInclude("HELLO") {
		t.Error("duplicate HELLO accepted")
	}
}
