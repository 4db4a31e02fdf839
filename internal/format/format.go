// Package format renders signals as Telegram MarkdownV2 messages in the
// configured languages.
package format

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/rewired-gh/gapsentry/internal/models"
)

// supported lists the languages messages can be rendered in, in matcher
// priority order.
var supported = []language.Tag{
	language.English,
	language.Hebrew,
	language.French,
}

var matcher = language.NewMatcher(supported)

// labels holds the fixed strings of one message language.
type labels struct {
	gapTitle   string
	moveTitle  string
	corrTitle  string
	newsTitle  string
	gapLine    string // platform prices
	moveLine   string // before → after
	moved      string
	noReaction string
	category   string
	keywords   string
	source     string
}

var labelsByTag = map[language.Tag]labels{
	language.English: {
		gapTitle:   "Arbitrage alert",
		moveTitle:  "Big move",
		corrTitle:  "Correlation anomaly",
		newsTitle:  "Market news",
		gapLine:    "Polymarket %s vs Kalshi %s \\(gap %s bps\\)",
		moveLine:   "%s → %s \\(%s bps in %s min\\)",
		moved:      "Moved",
		noReaction: "No reaction",
		category:   "Category",
		keywords:   "Keywords",
		source:     "Source",
	},
	language.Hebrew: {
		gapTitle:   "התראת ארביטראז'",
		moveTitle:  "תנועה גדולה",
		corrTitle:  "התראת קורלציה חריגה",
		newsTitle:  "חדשות שוק",
		gapLine:    "פולימרקט %s מול קלשי %s \\(פער %s נ\"ב\\)",
		moveLine:   "%s → %s \\(%s נ\"ב תוך %s דקות\\)",
		moved:      "שוק שזז",
		noReaction: "שוק שלא הגיב",
		category:   "קטגוריה",
		keywords:   "מילות מפתח",
		source:     "מקור",
	},
	language.French: {
		gapTitle:   "Alerte arbitrage",
		moveTitle:  "Grand mouvement",
		corrTitle:  "Anomalie de corrélation",
		newsTitle:  "Actualité des marchés",
		gapLine:    "Polymarket %s vs Kalshi %s \\(écart %s bps\\)",
		moveLine:   "%s → %s \\(%s bps en %s min\\)",
		moved:      "A bougé",
		noReaction: "Sans réaction",
		category:   "Catégorie",
		keywords:   "Mots\\-clés",
		source:     "Source",
	},
}

// Resolve maps a configured language code to the best supported tag,
// falling back to English for codes the matcher cannot place.
func Resolve(code string) language.Tag {
	tag, err := language.Parse(code)
	if err != nil {
		return language.English
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

func labelsFor(tag language.Tag) labels {
	if l, ok := labelsByTag[tag]; ok {
		return l
	}
	return labelsByTag[language.English]
}

// RenderGap formats a gap signal for one language.
func RenderGap(sig *models.GapSignal, tag language.Tag) string {
	l := labelsFor(tag)

	var b strings.Builder
	fmt.Fprintf(&b, "⚖️ *%s*\n", EscapeMarkdownV2(l.gapTitle))
	b.WriteString(titleLink(sig.Pair.Poly.DisplayTitle, sig.Pair.Poly.URL))
	b.WriteByte('\n')
	fmt.Fprintf(&b, l.gapLine,
		EscapeMarkdownV2(pct(sig.Pair.Poly.Price)),
		EscapeMarkdownV2(pct(sig.Pair.Kalshi.Price)),
		EscapeMarkdownV2(fmt.Sprintf("%d", sig.GapBps)),
	)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "🔗 %s\n", titleLink(sig.Pair.Kalshi.DisplayTitle, sig.Pair.Kalshi.URL))
	return b.String()
}

// RenderMove formats a move signal for one language.
func RenderMove(sig *models.MoveSignal, tag language.Tag) string {
	l := labelsFor(tag)

	emoji := "📈"
	if sig.AfterPrice < sig.BeforePrice {
		emoji = "📉"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n", emoji, EscapeMarkdownV2(l.moveTitle))
	b.WriteString(titleLink(sig.Market.DisplayTitle, sig.Market.URL))
	b.WriteByte('\n')
	fmt.Fprintf(&b, l.moveLine,
		EscapeMarkdownV2(pct(sig.BeforePrice)),
		EscapeMarkdownV2(pct(sig.AfterPrice)),
		EscapeMarkdownV2(fmt.Sprintf("%d", sig.MoveBps)),
		EscapeMarkdownV2(fmt.Sprintf("%d", sig.ElapsedMinutes)),
	)
	b.WriteByte('\n')
	return b.String()
}

// RenderCorrelation formats a correlation anomaly for one language. Move
// magnitudes are signed and keep their sign in the output.
func RenderCorrelation(sig *models.CorrelationSignal, tag language.Tag) string {
	l := labelsFor(tag)

	var b strings.Builder
	fmt.Fprintf(&b, "🔀 *%s*\n", EscapeMarkdownV2(l.corrTitle))
	fmt.Fprintf(&b, "%s: %s \\(%s\\)\n",
		l.moved,
		titleLink(sig.Mover.DisplayTitle, sig.Mover.URL),
		EscapeMarkdownV2(fmt.Sprintf("%+d bps", sig.MoverMoveBps)),
	)
	fmt.Fprintf(&b, "%s: %s \\(%s\\)\n",
		l.noReaction,
		titleLink(sig.Laggard.DisplayTitle, sig.Laggard.URL),
		EscapeMarkdownV2(fmt.Sprintf("%+d bps", sig.LaggardMoveBps)),
	)
	return b.String()
}

// RenderNews formats a news signal for one language.
func RenderNews(sig *models.NewsSignal, tag language.Tag) string {
	l := labelsFor(tag)

	var b strings.Builder
	fmt.Fprintf(&b, "📰 *%s*\n", EscapeMarkdownV2(l.newsTitle))
	b.WriteString(titleLink(sig.Item.Title, sig.Item.Link))
	b.WriteByte('\n')
	if sig.Item.Source != "" {
		fmt.Fprintf(&b, "%s: %s\n", l.source, EscapeMarkdownV2(sig.Item.Source))
	}
	if sig.Category != "" {
		fmt.Fprintf(&b, "%s: %s\n", l.category, EscapeMarkdownV2(sig.Category))
	}
	if len(sig.MatchedKeywords) > 0 {
		fmt.Fprintf(&b, "%s: %s\n", l.keywords, EscapeMarkdownV2(strings.Join(sig.MatchedKeywords, ", ")))
	}
	return b.String()
}

func titleLink(title, url string) string {
	escaped := EscapeMarkdownV2(title)
	if url == "" {
		return escaped
	}
	return fmt.Sprintf("[%s](%s)", escaped, url)
}

func pct(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// EscapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
