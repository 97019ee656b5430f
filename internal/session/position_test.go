package session

import "testing"

func TestContentLine(t *testing.T) {
	content := "first\nsecond\n\nfourth"

	tests := []struct {
		n    int
		want string
	}{
		{0, "first"},
		{1, "second"},
		{2, ""},
		{3, "fourth"},
		{4, ""},
		{-1, ""},
	}

	for _, tt := range tests {
		if got := contentLine(content, tt.n); got != tt.want {
			t.Errorf("contentLine(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestLineCount(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 1},
		{"one line", 1},
		{"a\nb", 2},
		{"a\nb\n", 3},
	}

	for _, tt := range tests {
		if got := lineCount(tt.content); got != tt.want {
			t.Errorf("lineCount(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}

func TestRuneToUTF16(t *testing.T) {
	// "a😀b": the emoji is one rune but two UTF-16 units.
	line := "a\U0001F600b"

	tests := []struct {
		runeOff int
		want    int
	}{
		{0, 0},
		{1, 1},
		{2, 3}, // past the surrogate pair
		{3, 4},
		{99, 4}, // clamped
		{-1, 0},
	}

	for _, tt := range tests {
		if got := runeToUTF16(line, tt.runeOff); got != tt.want {
			t.Errorf("runeToUTF16(%d) = %d, want %d", tt.runeOff, got, tt.want)
		}
	}
}

func TestUTF16ToRune(t *testing.T) {
	line := "a\U0001F600b"

	tests := []struct {
		u16  int
		want int
	}{
		{0, 0},
		{1, 1},
		{2, 1}, // inside the surrogate pair resolves to the emoji
		{3, 2},
		{4, 3},
		{99, 3},
	}

	for _, tt := range tests {
		if got := utf16ToRune(line, tt.u16); got != tt.want {
			t.Errorf("utf16ToRune(%d) = %d, want %d", tt.u16, got, tt.want)
		}
	}
}

func TestUTF16RoundTrip(t *testing.T) {
	line := "héllo \U0001F680 wörld"
	for runeOff := 0; runeOff <= runeLen(line); runeOff++ {
		u16 := runeToUTF16(line, runeOff)
		if back := utf16ToRune(line, u16); back != runeOff {
			t.Errorf("round trip of rune offset %d via %d = %d", runeOff, u16, back)
		}
	}
}
