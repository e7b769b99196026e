package bot

import (
	"fmt"
	"strings"
)

// Fixed replies of the command surface.
const (
	MsgUnauthorized   = "You are not authorized to trigger this command."
	MsgBusy           = "A briefing is already being prepared. Please try again in a few minutes."
	MsgUnavailable    = "The briefing service is not available right now. Please try again later."
	MsgTooShort       = "Please paste a longer text or article to summarize."
	MsgAnalyzing      = "Analyzing and summarizing your article... ⏳"
	MsgSummaryBusy    = "I'm already summarizing other articles. Please send yours again in a minute."
	MsgSummaryFailed  = "Sorry, I couldn't summarize that article right now. Please try again later."
	MsgUnknownCommand = "Unknown command. Type /help to see what I can do."
)

const helpText = "Here are the commands you can use:\n\n" +
	"/start - Get your Chat ID and a welcome message.\n" +
	"/help - Show this help message.\n" +
	"/news - Instantly fetch and summarize the latest news.\n" +
	"/briefing - (Alias for /news) Instantly fetch and summarize the latest news.\n" +
	"/sources - See the list of news sources I monitor.\n" +
	"/status - Check my current status and schedule.\n\n" +
	"You can also paste the full text of any article here, and I will summarize it for you!"

func startText(firstName string, chatID int64, times []string) string {
	if firstName == "" {
		firstName = "there"
	}
	return fmt.Sprintf("Hello %s! I am your Chhattisgarh News Brief bot.\n\n"+
		"Your Chat ID is: `%d`\n"+
		"Set this as TARGET_CHAT_ID to receive the scheduled briefings.\n\n"+
		"I send a briefing every day at %s. You can also send me any article text to summarize.\n"+
		"Type /help to see all available commands.",
		firstName, chatID, joinTimes(times))
}

func sourcesText(names []string) string {
	var b strings.Builder
	b.WriteString("I am currently monitoring the following sources:\n\n")
	for _, name := range names {
		fmt.Fprintf(&b, "• *%s*\n", name)
	}
	return b.String()
}

// statusView is everything /status reports.
type statusView struct {
	Times    []string
	Timezone string
	Seen     string
	State    string
	Next     string
}

func statusText(v statusView) string {
	var b strings.Builder
	b.WriteString("✅ *Bot Status: ONLINE*\n\n")
	fmt.Fprintf(&b, "Scheduled Briefings (%s):\n", v.Timezone)
	for _, t := range v.Times {
		fmt.Fprintf(&b, "• %s Daily\n", t)
	}
	if v.Next != "" {
		fmt.Fprintf(&b, "Next briefing: %s\n", v.Next)
	}
	fmt.Fprintf(&b, "\nArticles already briefed: %s\n", v.Seen)
	fmt.Fprintf(&b, "Briefing engine: %s\n\n", v.State)
	b.WriteString("I am actively monitoring news sources and ready to summarize articles on demand.")
	return b.String()
}

func joinTimes(times []string) string {
	switch len(times) {
	case 0:
		return "the scheduled times"
	case 1:
		return times[0]
	default:
		return strings.Join(times[:len(times)-1], ", ") + " and " + times[len(times)-1]
	}
}
