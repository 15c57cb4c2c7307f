package render

import "strings"

// Wrap breaks text into lines with greedy paragraph reflow: words are
// accumulated until adding the next one would exceed maxWidth, then the
// line is flushed and accumulation continues; the trailing line is
// always flushed. Empty text yields no lines; a line measuring exactly
// maxWidth stays whole.
func Wrap(text string, maxWidth int, measure func(string) int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if measure(candidate) > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	return append(lines, line)
}
