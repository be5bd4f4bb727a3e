package model

import "testing"

// TestParseInteractionType_ValidValues はサポートされる3種別のパースを検証する。
func TestParseInteractionType_ValidValues(t *testing.T) {
	tests := []struct {
		input string
		want  InteractionType
	}{
		{"LIKED", InteractionLiked},
		{"BOOKMARKED", InteractionBookmarked},
		{"WATCHED", InteractionWatched},
	}

	for _, tt := range tests {
		got, ok := ParseInteractionType(tt.input)
		if !ok {
			t.Errorf("ParseInteractionType(%q) ok = false, want true", tt.input)
		}
		if got != tt.want {
			t.Errorf("ParseInteractionType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// TestParseInteractionType_InvalidValues はサポート外の値が拒否されることを検証する。
// 小文字表記もサポート外として扱う（正規化はしない）。
func TestParseInteractionType_InvalidValues(t *testing.T) {
	inputs := []string{"", "liked", "FAVORITE", "WATCHED ", "Liked"}

	for _, input := range inputs {
		if _, ok := ParseInteractionType(input); ok {
			t.Errorf("ParseInteractionType(%q) ok = true, want false", input)
		}
	}
}
