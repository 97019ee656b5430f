package session

import "strings"

// The protocol counts columns in UTF-16 code units; the editor counts
// runes. Characters outside the Basic Multilingual Plane occupy two
// UTF-16 units but one rune, so the two scales diverge exactly there.

// contentLine returns line number n (0-based) of content, without its
// trailing newline. Out-of-range lines return "".
func contentLine(content string, n int) string {
	if n < 0 {
		return ""
	}
	rest := content
	for ; n > 0; n-- {
		idx := strings.IndexByte(rest, '\n')
		if idx < 0 {
			return ""
		}
		rest = rest[idx+1:]
	}
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// lineCount returns the number of lines in content. Empty content has
// one empty line.
func lineCount(content string) int {
	return strings.Count(content, "\n") + 1
}

// runeLen returns the length of s in runes.
func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// runeToUTF16 converts a rune offset within line to UTF-16 units,
// clamping past the end of the line.
func runeToUTF16(line string, runeOff int) int {
	if runeOff <= 0 {
		return 0
	}
	u16 := 0
	count := 0
	for _, r := range line {
		if count >= runeOff {
			return u16
		}
		if r >= 0x10000 {
			u16 += 2
		} else {
			u16++
		}
		count++
	}
	return u16
}

// utf16ToRune converts a UTF-16 offset within line to a rune offset,
// clamping past the end of the line. An offset landing inside a
// surrogate pair resolves to that rune.
func utf16ToRune(line string, u16Off int) int {
	if u16Off <= 0 {
		return 0
	}
	u16 := 0
	runeOff := 0
	for _, r := range line {
		if u16 >= u16Off {
			return runeOff
		}
		if r >= 0x10000 {
			u16 += 2
		} else {
			u16++
		}
		runeOff++
	}
	return runeOff
}
