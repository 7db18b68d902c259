package analysis

import "fmt"

var replyTones = map[string]string{
	"professional": "professional and polite",
	"friendly":     "warm and friendly",
	"formal":       "formal and corporate",
	"short":        "short and to the point",
	"thankful":     "thankful",
}

// ToneDescription maps a reply tone to prompt wording; unknown tones read
// as professional.
func ToneDescription(tone string) string {
	if d, ok := replyTones[tone]; ok {
		return d
	}
	return replyTones["professional"]
}

func summaryPrompt(subject, text string) string {
	return fmt.Sprintf(`Analyze the email below and write a short summary of at most 2 sentences in the language of the email.
The summary must state the main purpose of the email.
Write only the summary, nothing else.

Subject: %s

Body:
%s`, subject, text)
}

func categoryPrompt(subject, text string) string {
	return fmt.Sprintf(`Analyze the email below and pick the best matching category number.

CATEGORIES:
1 = Primary (personal, general correspondence, important notices)
2 = Social (invitations, celebrations, social networks, events)
3 = Promotions (ads, discounts, campaigns, marketing)
4 = Work (professional, meetings, projects, urgent business)
5 = Spam (unsolicited, suspicious, harmful content)

Answer ONLY with the category number (1, 2, 3, 4 or 5). Write nothing else.

Subject: %s
Body: %s`, subject, text)
}

func replyPrompt(subject, text, tone string) string {
	return fmt.Sprintf(`Draft a %s reply to the email below, in the language of the email.

Rules:
- The reply must read naturally
- Start with a fitting greeting
- Address the content of the email
- Leave the signature out, the user adds their own
- Write only the reply text

Original subject: %s
Original body:
%s`, ToneDescription(tone), subject, text)
}

func analyzePrompt(subject, text string) string {
	return fmt.Sprintf(`Analyze the email below and answer in JSON.

Subject: %s
Body: %s

Answer ONLY with JSON in exactly this shape, nothing else:
{
    "summary": "summary of at most 2 sentences in the language of the email",
    "categoryId": category number (1=Primary, 2=Social, 3=Promotions, 4=Work, 5=Spam),
    "priority": priority (1=very urgent, 2=urgent, 3=normal, 4=low, 5=very low),
    "keywords": ["key", "word", "list"],
    "sentiment": "positive/negative/neutral"
}`, subject, text)
}
