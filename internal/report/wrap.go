package report

import "strings"

// Wrap breaks text into lines no wider than width, splitting on spaces.
// Explicit newlines are kept and a word wider than a line on its own is
// broken between runes. Blank input yields no lines.
func Wrap(text string, width float64, measure func(string) float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		lines = append(lines, wrapParagraph(para, width, measure)...)
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}
	return lines
}

func wrapParagraph(para string, width float64, measure func(string) float64) []string {
	words := strings.Fields(para)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := ""
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measure(candidate) <= width {
			current = candidate
			continue
		}

		if current != "" {
			lines = append(lines, current)
		}
		if measure(word) <= width {
			current = word
			continue
		}

		pieces := breakWord(word, width, measure)
		lines = append(lines, pieces[:len(pieces)-1]...)
		current = pieces[len(pieces)-1]
	}
	return append(lines, current)
}

// breakWord splits a single word into pieces that each fit width. A piece
// always holds at least one rune.
func breakWord(word string, width float64, measure func(string) float64) []string {
	var pieces []string
	runes := []rune(word)
	for len(runes) > 0 {
		n := 1
		for n < len(runes) && measure(string(runes[:n+1])) <= width {
			n++
		}
		pieces = append(pieces, string(runes[:n]))
		runes = runes[n:]
	}
	return pieces
}
