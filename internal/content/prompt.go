package content

import (
	"fmt"
	"strings"
)

func languageRule(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "en":
		return "Write in English."
	case "ja":
		return "日本語で書いてください。"
	default:
		return fmt.Sprintf("Write in the language with code %q.", lang)
	}
}

func writeHeader(b *strings.Builder, p Profile, cat Category) {
	fmt.Fprintf(b, "<persona>\n%s\n</persona>\n\n", strings.TrimSpace(p.Persona))
	fmt.Fprintf(b, "<topic>%s</topic>\n", cat.Name)
	if s := strings.TrimSpace(cat.Prompt); s != "" {
		fmt.Fprintf(b, "<topic_description>%s</topic_description>\n", s)
	}
	b.WriteString("\n")
}

func writeRecent(b *strings.Builder, recent []string) {
	if len(recent) == 0 {
		return
	}
	b.WriteString("\n<recent_posts>\nThese are this account's latest posts. Do not repeat their content:\n")
	for _, t := range recent {
		b.WriteString("- ")
		b.WriteString(strings.ReplaceAll(t, "\n", " "))
		b.WriteString("\n")
	}
	b.WriteString("</recent_posts>\n")
}

func singlePrompt(p Profile, cat Category, maxChars int, recent []string) string {
	var b strings.Builder
	b.WriteString("Generate a single post for the following topic.\n\n")
	writeHeader(&b, p, cat)
	b.WriteString("<rules>\n")
	fmt.Fprintf(&b, "- %s\n", languageRule(p.Language))
	fmt.Fprintf(&b, "- Maximum %d characters (strict)\n", maxChars)
	b.WriteString("- Be original, insightful and engaging\n")
	b.WriteString("- Sound like a real person, not a corporate account\n")
	b.WriteString("- Vary the format: questions, statements, observations, tips\n")
	b.WriteString("</rules>\n")
	writeRecent(&b, recent)
	b.WriteString("\nOutput ONLY the post text. No quotes, no explanation, no preamble.")
	return b.String()
}

func threadPrompt(p Profile, cat Category, maxChars, parts int, recent []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a thread of exactly %d posts.\n\n", parts)
	writeHeader(&b, p, cat)
	b.WriteString("<rules>\n")
	fmt.Fprintf(&b, "- %s\n", languageRule(p.Language))
	fmt.Fprintf(&b, "- Each post must be under %d characters\n", maxChars)
	b.WriteString("- The first post hooks the reader\n")
	b.WriteString("- Each following post adds value\n")
	b.WriteString("- The last post ends with a takeaway\n")
	b.WriteString("</rules>\n")
	writeRecent(&b, recent)
	b.WriteString("\nSeparate the posts with a line containing only \"---\".\nNo quotes, no numbering, no explanation.")
	return b.String()
}
