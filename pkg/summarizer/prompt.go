package summarizer

import (
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-briefing/internal/domain"
)

// maxSnippetRunes bounds how much of each article body reaches the model.
const maxSnippetRunes = 1000

// BriefingInstruction is the system instruction for the daily briefing.
const BriefingInstruction = `You are an expert news analyst and executive assistant for a senior state administrator in Chhattisgarh.
Analyze the provided news snippets and prepare a daily briefing.

Rules:
1. Read every article, some may be in Hindi, and write strictly in English.
2. Give a clear bullet-wise summary of 10 to 15 major points.
3. Group the points under:
   - High Priority (major High Court or Cabinet decisions, major cases, significant state news).
   - Medium Priority (district collector or SP news, administrative updates).
   - Low Priority (general state updates, infrastructure).
4. Leave out low-level news such as petty crime or minor local incidents.
5. Add a "Good News" section for positive developments when there are any.
6. Do not make anything up. Use only the provided articles.
7. Mention the source name briefly for each point.

Keep the output clean, professional and easy to skim.`

const batchHeader = "Here are the top news articles collected from Chhattisgarh:\n\n"

// BatchPrompt renders the batch as numbered article blocks.
func BatchPrompt(articles []domain.Article) string {
	var b strings.Builder
	b.WriteString(batchHeader)
	for i, art := range articles {
		fmt.Fprintf(&b, "Article %d: [Source: %s]\nTitle: %s\nContent Snippet: %s\nURL: %s\n\n",
			i+1, art.Source, art.Title, truncateRunes(art.Body, maxSnippetRunes), art.URL)
	}
	return b.String()
}

// SinglePrompt asks for a concise summary of one pasted article.
func SinglePrompt(text string) string {
	return "Please provide a concise, bulleted summary in English of the following article:\n\n" + text
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
