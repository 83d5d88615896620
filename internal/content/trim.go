package content

import (
	"strings"
	"unicode/utf8"
)

var sentenceEnds = []string{"。", ". ", "! ", "？", "? "}

// fitLength shortens text to at most maxChars runes. It first tries dropping a
// trailing hashtag, then cutting at the last sentence end, and finally cuts
// hard with an ellipsis.
func fitLength(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	if i := strings.LastIndex(text, "#"); i > 0 {
		head := strings.TrimSpace(text[:i])
		if head != "" && utf8.RuneCountInString(head) <= maxChars {
			return head
		}
	}

	runes := []rune(text)
	window := string(runes[:maxChars])
	for _, sep := range sentenceEnds {
		if i := strings.LastIndex(window, sep); i > 0 {
			return strings.TrimSpace(window[:i+len(sep)])
		}
	}

	return string(runes[:maxChars-1]) + "…"
}

// splitThread splits a model response into posts on lines that contain only "---".
func splitThread(raw string) []string {
	var (
		out []string
		cur []string
	)
	flush := func() {
		if s := strings.TrimSpace(strings.Join(cur, "\n")); s != "" {
			out = append(out, s)
		}
		cur = cur[:0]
	}
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "---" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return out
}
