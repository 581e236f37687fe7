package match

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/moritz/grantflow/internal/models"
)

// ScoredPartner wraps a partner with its relevance score against a proposal
// context. Score is a sort key, not a probability.
type ScoredPartner struct {
	models.Partner
	RelevanceScore int      `json:"relevance_score"`
	MatchReasons   []string `json:"match_reasons"`
}

const (
	keywordWeight  = 10
	tokenWeight    = 1
	maxReasons     = 3
	minTokenLength = 4
)

var tokenSplitter = regexp.MustCompile(`\W+`)

// Rank scores each partner against the free-text proposal context and
// returns them sorted by descending relevance. Keyword hits count ten times
// a stray token overlap because keywords are curated signal. The sort is
// stable: partners with equal scores keep their input order. An empty
// context returns every partner with score zero in the original order.
func Rank(partners []models.Partner, context string) []ScoredPartner {
	scored := make([]ScoredPartner, 0, len(partners))

	if strings.TrimSpace(context) == "" {
		for _, p := range partners {
			scored = append(scored, ScoredPartner{Partner: p, MatchReasons: []string{}})
		}
		return scored
	}

	contextLower := strings.ToLower(context)
	tokens := uniqueTokens(contextLower)

	for _, p := range partners {
		score := 0
		reasons := []string{}

		for _, kw := range p.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(contextLower, strings.ToLower(kw)) {
				score += keywordWeight
				reasons = append(reasons, fmt.Sprintf("Keyword match: %s", kw))
			}
		}

		if p.Description != "" {
			descLower := strings.ToLower(p.Description)
			for _, token := range tokens {
				if strings.Contains(descLower, token) {
					score += tokenWeight
				}
			}
		}

		if p.Experience != "" {
			expLower := strings.ToLower(p.Experience)
			for _, token := range tokens {
				if strings.Contains(expLower, token) {
					score += tokenWeight
				}
			}
		}

		if len(reasons) > maxReasons {
			reasons = reasons[:maxReasons]
		}

		scored = append(scored, ScoredPartner{
			Partner:        p,
			RelevanceScore: score,
			MatchReasons:   reasons,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})

	return scored
}

// uniqueTokens splits on non-word runs and keeps tokens longer than three
// characters, deduplicated in first-seen order. The length cutoff drops
// stop-words without needing a stop-word list.
func uniqueTokens(textLower string) []string {
	var tokens []string
	seen := make(map[string]struct{})

	for _, t := range tokenSplitter.Split(textLower, -1) {
		if len(t) < minTokenLength {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}

	return tokens
}
