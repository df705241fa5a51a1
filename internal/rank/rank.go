// Package rank scores articles for the top-stories view with a recency,
// source-tier and keyword heuristic.
package rank

import (
	"sort"
	"strings"
	"time"

	"gridbrief/internal/config"
	"gridbrief/internal/core"
	"gridbrief/internal/fetch"
)

const (
	recencyMax = 40.0

	tier1Score = 30.0
	tier2Score = 20.0
	tier3Score = 10.0

	keywordHitWeight = 3
	keywordScoreMax  = 30.0
)

// Ranker scores articles. Tier membership is by URL host substring, so
// "reuters.com" also matches "www.reuters.com".
type Ranker struct {
	tier1    []string
	tier2    []string
	keywords []string
}

// New builds a Ranker from the rank configuration.
func New(cfg config.Rank) *Ranker {
	return &Ranker{
		tier1:    lowerAll(cfg.Tier1Hosts),
		tier2:    lowerAll(cfg.Tier2Hosts),
		keywords: lowerAll(cfg.PriorityKeywords),
	}
}

// Score computes the ranking score for one article at time now within a
// lookback window of days: recency up to 40 points falling linearly with
// age, source tier 30/20/10, and priority keyword hits (title double,
// body single) tripled and capped at 30.
func (r *Ranker) Score(article core.Article, now time.Time, days int) float64 {
	var score float64

	if article.PublishedAt != nil {
		ageHours := now.Sub(*article.PublishedAt).Hours()
		maxAgeHours := float64(days) * 24
		frac := ageHours / maxAgeHours
		if frac > 1 {
			frac = 1
		}
		if frac < 0 {
			frac = 0
		}
		score += recencyMax * (1 - frac)
	}

	host := strings.ToLower(fetch.Host(article.URL))
	switch {
	case hostInTier(host, r.tier1):
		score += tier1Score
	case hostInTier(host, r.tier2):
		score += tier2Score
	default:
		score += tier3Score
	}

	title := strings.ToLower(article.Title)
	body := strings.ToLower(article.ContentText)
	hits := 0
	for _, kw := range r.keywords {
		if strings.Contains(title, kw) {
			hits += 2
		} else if strings.Contains(body, kw) {
			hits++
		}
	}
	keywordScore := float64(hits * keywordHitWeight)
	if keywordScore > keywordScoreMax {
		keywordScore = keywordScoreMax
	}
	score += keywordScore

	return score
}

// TopStories scores the articles and returns the top limit by score,
// breaking ties by publication time, newest first.
func (r *Ranker) TopStories(articles []core.Article, now time.Time, days, limit int) []core.TopStory {
	stories := make([]core.TopStory, 0, len(articles))
	for _, a := range articles {
		stories = append(stories, core.TopStory{
			Article: a,
			Score:   r.Score(a, now, days),
		})
	}

	sort.SliceStable(stories, func(i, j int) bool {
		if stories[i].Score != stories[j].Score {
			return stories[i].Score > stories[j].Score
		}
		pi, pj := stories[i].PublishedAt, stories[j].PublishedAt
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return pi.After(*pj)
		}
	})

	if limit > 0 && len(stories) > limit {
		stories = stories[:limit]
	}
	return stories
}

func hostInTier(host string, tier []string) bool {
	for _, t := range tier {
		if strings.Contains(host, t) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
