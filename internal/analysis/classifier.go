package analysis

import (
	"strings"

	"mailnight/internal/htmltext"
)

type keywordSet struct {
	categoryID int
	keywords   []string
}

// keywordSets are checked in order; the first set with a hit wins.
var keywordSets = []keywordSet{
	{CategorySpam, []string{
		"kazandınız", "tıklayın", "hemen şimdi", "ücretsiz hediye", "penis", "viagra",
		"you have won", "you've won", "click here", "act now", "free gift",
	}},
	{CategoryWork, []string{
		"toplantı", "meeting", "acil", "urgent", "proje", "deadline", "rapor", "sprint",
		"server", "production", "deployment", "müşteri",
		"project", "report", "customer", "client",
	}},
	{CategoryPromotions, []string{
		"indirim", "kampanya", "fırsat", "promosyon", "% off", "sale", "teklif", "bedava", "ücretsiz",
		"discount", "coupon", "promo", "limited offer",
	}},
	{CategorySocial, []string{
		"davet", "parti", "kutlama", "doğum günü", "yemek", "buluşma", "etkinlik", "düğün", "mezuniyet",
		"invitation", "party", "birthday", "dinner", "wedding", "graduation",
	}},
}

// Classify maps subject and body to a system category id by keyword match.
// Spam is checked first, then Work, Promotions and Social; no hit is Primary.
func Classify(subject, body string) int {
	text := strings.ToLower(subject + " " + htmltext.ToPlainText(body))
	for _, set := range keywordSets {
		for _, kw := range set.keywords {
			if strings.Contains(text, kw) {
				return set.categoryID
			}
		}
	}
	return CategoryPrimary
}
