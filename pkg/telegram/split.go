package telegram

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageRunes is the Bot API limit for one text message.
const MaxMessageRunes = 4096

// SplitText cuts text into chunks of at most limit runes, breaking on line
// boundaries where possible.
func SplitText(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageRunes
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen+n <= limit {
			cur.WriteString(line)
			curLen += n
			continue
		}
		flush()
		for n > limit {
			head, tail := splitRunes(line, limit)
			chunks = append(chunks, head)
			line = tail
			n -= limit
		}
		cur.WriteString(line)
		curLen = n
	}
	flush()

	out := chunks[:0]
	for _, c := range chunks {
		if c = strings.Trim(c, "\n"); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func splitRunes(s string, n int) (string, string) {
	count := 0
	for i := range s {
		if count == n {
			return s[:i], s[i:]
		}
		count++
	}
	return s, ""
}
