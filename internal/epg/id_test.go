package epg

import "testing"

func TestMakeStableID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "CNN", "cnn"},
		{"spaces", "ABC East", "abc.east"},
		{"mixed_separators", "Fox - News_Channel", "fox.news.channel"},
		{"consecutive_separators", "A  --  B", "a.b"},
		{"leading_trailing", " .HBO. ", "hbo"},
		{"special_chars_dropped", "E! Entertainment", "e.entertainment"},
		{"accents_kept", "Télé Québec", "télé.québec"},
		{"empty", "", ""},
		{"only_separators", " .-_ ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MakeStableID(tt.input); got != tt.expected {
				t.Errorf("MakeStableID(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMakeStableIDIsStable(t *testing.T) {
	if MakeStableID("ABC East") != MakeStableID("ABC East") {
		t.Fatal("expected identical input to produce identical IDs")
	}
}
