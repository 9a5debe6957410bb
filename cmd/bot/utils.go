package main

import "strings"

// chunkString splits a long string into smaller chunks, ensuring no chunk
// exceeds the specified rune count. Splits prefer paragraph breaks, then
// line breaks, so answers stay readable
func chunkString(s string, size int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var out []string
	runes := []rune(s)
	for len(runes) > size {
		split := findSplit(runes[:size])
		chunk := strings.TrimSpace(string(runes[:split]))
		if chunk != "" {
			out = append(out, chunk)
		}
		runes = runes[split:]
	}

	if rest := strings.TrimSpace(string(runes)); rest != "" {
		out = append(out, rest)
	}

	return out
}

// findSplit finds the index of a good split point in the rune slice
func findSplit(runes []rune) int {
	s := string(runes)

	if at := strings.LastIndex(s, "\n\n"); at > 0 {
		return len([]rune(s[:at+2]))
	}
	if at := strings.LastIndex(s, "\n"); at > 0 {
		return len([]rune(s[:at+1]))
	}
	if at := strings.LastIndex(s, " "); at > 0 {
		return len([]rune(s[:at+1]))
	}

	return len(runes)
}
