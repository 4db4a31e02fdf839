package normalize

import (
	"reflect"
	"testing"
	"time"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Will BTC Hit $100K?", "will btc hit 100k"},
		{"collapses whitespace", "fed   rate \t cut", "fed rate cut"},
		{"strips punctuation", "Trump vs. Harris: who wins?", "trump vs harris who wins"},
		{"keeps unicode letters", "Élection présidentielle", "élection présidentielle"},
		{"empty", "", ""},
		{"only punctuation", "?!...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.input); got != tt.want {
				t.Errorf("Title(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("Will BTC hit $100K?")
	want := []string{"will", "btc", "hit", "100k"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens() = %v, want %v", got, want)
	}
	if Tokens("") != nil {
		t.Error("Tokens(\"\") should be nil")
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		title string
		want  bool
	}{
		{"past month", "Will BTC hit 100k in January 2026?", true},
		{"current month", "Fed rate cut in June 2026?", false},
		{"future month", "Election result by November 2026", false},
		{"past year", "Recession by December 2025?", true},
		{"no date", "Will BTC hit 100k?", false},
		{"month without year", "Rate cut in March?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExpired(tt.title, now); got != tt.want {
				t.Errorf("IsExpired(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  string
	}{
		{"crypto", []string{"Will Bitcoin hit 100k?"}, "crypto"},
		{"politics", []string{"Presidential election winner"}, "politics"},
		{"macro", []string{"Fed cuts interest rate before CPI print"}, "macro"},
		{"no match", []string{"Something unrelated"}, ""},
		{"most hits wins", []string{"Bitcoin ETF approval", "ethereum merge", "election"}, "crypto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Category(tt.texts...); got != tt.want {
				t.Errorf("Category(%v) = %q, want %q", tt.texts, got, tt.want)
			}
		})
	}
}
