// Package narrative derives the keyword filter set from trending prediction
// market events and publishes it atomically for concurrent readers.
package narrative

import (
	"regexp"
	"sort"
	"strings"
)

// stopWords are filler tokens common in prediction market titles.
var stopWords = map[string]struct{}{
	// question words
	"will": {}, "would": {}, "could": {}, "should": {}, "can": {}, "does": {},
	"do": {}, "did": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "being": {}, "have": {}, "has": {}, "had": {}, "having": {},
	// articles and prepositions
	"the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "by": {}, "with": {}, "from": {}, "through": {},
	"during": {}, "before": {}, "after": {}, "above": {}, "below": {},
	"between": {}, "into": {}, "out": {}, "over": {}, "under": {}, "again": {},
	"further": {},
	// connectives
	"yes": {}, "no": {}, "or": {}, "and": {}, "but": {}, "if": {}, "than": {},
	"so": {}, "as": {}, "about": {}, "any": {}, "all": {}, "each": {},
	"every": {}, "either": {}, "neither": {}, "both": {}, "few": {},
	"more": {}, "most": {}, "other": {}, "some": {}, "such": {}, "only": {},
	"own": {}, "same": {},
	// time words
	"january": {}, "february": {}, "march": {}, "april": {}, "may": {},
	"june": {}, "july": {}, "august": {}, "september": {}, "october": {},
	"november": {}, "december": {}, "jan": {}, "feb": {}, "mar": {},
	"apr": {}, "jun": {}, "jul": {}, "aug": {}, "sep": {}, "oct": {},
	"nov": {}, "dec": {}, "monday": {}, "tuesday": {}, "wednesday": {},
	"thursday": {}, "friday": {}, "saturday": {}, "sunday": {}, "day": {},
	"days": {}, "week": {}, "weeks": {}, "month": {}, "months": {},
	"year": {}, "years": {}, "today": {}, "tomorrow": {}, "yesterday": {},
	"first": {}, "second": {}, "third": {}, "next": {}, "last": {},
	// question markers
	"what": {}, "who": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"which": {}, "whom": {},
	// common verbs
	"win": {}, "wins": {}, "winning": {}, "winner": {}, "leave": {},
	"hit": {}, "hits": {}, "make": {}, "get": {}, "gets": {}, "become": {},
	"becomes": {}, "announce": {}, "announced": {},
	// fillers
	"this": {}, "that": {}, "these": {}, "those": {}, "here": {}, "there": {},
}

// priorityKeywords are high-value tokens always scored to the top.
var priorityKeywords = map[string]struct{}{
	"trump": {}, "biden": {}, "musk": {}, "elon": {}, "vance": {},
	"tiktok": {}, "twitter": {}, "meta": {}, "google": {}, "apple": {},
	"nvidia": {}, "tesla": {},
	"war": {}, "russia": {}, "ukraine": {}, "china": {}, "israel": {}, "iran": {},
	"fed": {}, "inflation": {}, "recession": {}, "election": {},
	"scandal": {}, "resign": {}, "impeach": {}, "arrest": {}, "indicted": {},
}

// blacklist phrases mark whole titles as noise: sports, raw crypto price
// bets, and pop culture rarely produce narrative launches.
var blacklist = []string{
	"nfl", "nba", "mlb", "nhl", "ufc", "wwe",
	"premier league", "champions league", "la liga", "bundesliga",
	"super bowl", "world cup", "world series",
	"lakers", "celtics", "warriors", "yankees", "cowboys", "patriots",
	"man city", "manchester", "liverpool", "arsenal", "chelsea",
	"barcelona", "real madrid",
	"playoffs", "championship", "finals", "mvp",
	"bitcoin", "btc", "ethereum", "eth", "solana", "sol",
	"price", "above", "below", "ath", "all-time high",
	"$100k", "$50k", "$10k",
	"taylor swift", "grammys", "oscars", "emmys",
	"box office", "album", "tour",
	"temperature", "weather", "hurricane",
}

var (
	yearPattern    = regexp.MustCompile(`\b20[2-3][0-9]\b`)
	ordinalPattern = regexp.MustCompile(`\b\d{1,2}(st|nd|rd|th)?\b`)
	specialPattern = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// ExtractKeywords returns up to three uppercase keywords from an event title,
// ranked by priority-list membership, proper-noun capitalization, and length.
// Blacklisted titles yield no keywords at all.
func ExtractKeywords(title string) []string {
	lower := strings.ToLower(title)
	for _, banned := range blacklist {
		if strings.Contains(lower, banned) {
			return nil
		}
	}

	cleaned := yearPattern.ReplaceAllString(title, "")
	cleaned = ordinalPattern.ReplaceAllString(cleaned, "")
	cleaned = specialPattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(spacePattern.ReplaceAllString(cleaned, " "))

	type scored struct {
		word  string
		score int
	}
	var candidates []scored

	for _, word := range strings.Fields(cleaned) {
		wordLower := strings.ToLower(word)

		if _, ok := stopWords[wordLower]; ok {
			continue
		}
		if len(word) < 2 {
			continue
		}
		if isDigits(word) {
			continue
		}

		score := 0
		if _, ok := priorityKeywords[wordLower]; ok {
			score += 100
		}
		proper := word[0] >= 'A' && word[0] <= 'Z'
		if proper {
			score += 50
		}
		if n := len(word); n < 10 {
			score += n
		} else {
			score += 10
		}

		if score > 0 || proper {
			candidates = append(candidates, scored{wordLower, score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].word < candidates[j].word
	})

	seen := make(map[string]struct{}, len(candidates))
	var keywords []string
	for _, c := range candidates {
		if _, ok := seen[c.word]; ok {
			continue
		}
		seen[c.word] = struct{}{}
		keywords = append(keywords, strings.ToUpper(c.word))
		if len(keywords) == 3 {
			break
		}
	}
	return keywords
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
