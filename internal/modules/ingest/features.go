package ingest

import (
	"regexp"
	"strings"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/pkg/strutil"
)

var ticketPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bFE-GAME-(\d+)`),
	regexp.MustCompile(`(?i)\bFEAT-(\d+)`),
	regexp.MustCompile(`(?i)\bBUG-(\d+)`),
	regexp.MustCompile(`#(\d+)\b`),
}

var featureKeywords = []string{
	"authentication", "auth", "login", "signup", "web3auth",
	"leaderboard", "ranking", "score", "points", "xp",
	"trading", "exchange", "api", "trade", "order",
	"wallet", "payment", "transaction", "starknet",
	"ui", "interface", "component", "screen", "page",
	"database", "storage", "persistence", "cache",
	"security", "encryption", "validation", "sanitization",
	"notification", "alert", "message", "toast",
	"game", "level", "achievement", "progress",
	"social", "friend", "chat", "community",
}

var (
	wordRe   = regexp.MustCompile(`[a-z0-9]+`)
	quotedRe = regexp.MustCompile(`"([^"]+)"`)
)

const (
	maxQuotedWords     = 3
	descriptionPreview = 100
)

// ExtractFeatures finds ticket references, known feature keywords and short
// quoted names in a commit message. Results are unique by natural key, in
// order of discovery.
func ExtractFeatures(message string) []types.Feature {
	desc := "Feature extracted from commit: " + preview(message, descriptionPreview)
	var out []types.Feature
	seen := map[string]bool{}
	add := func(f types.Feature) {
		k := f.NaturalKey()
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		f.Description = desc
		out = append(out, f)
	}

	for _, re := range ticketPatterns {
		for _, m := range re.FindAllStringSubmatch(message, -1) {
			add(types.Feature{Name: "Feature " + m[1], TicketID: m[1]})
		}
	}

	words := map[string]bool{}
	for _, w := range wordRe.FindAllString(strings.ToLower(message), -1) {
		words[w] = true
	}
	for _, kw := range featureKeywords {
		if words[kw] {
			add(types.Feature{Name: kw})
		}
	}

	for _, m := range quotedRe.FindAllStringSubmatch(message, -1) {
		fields := strings.Fields(m[1])
		if len(fields) == 0 || len(fields) > maxQuotedWords {
			continue
		}
		add(types.Feature{Name: strings.ToLower(strings.Join(fields, "_"))})
	}
	return out
}

func preview(s string, n int) string {
	return strutil.Ellipsize(strings.TrimSpace(s), n)
}
