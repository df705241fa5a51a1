// Package tagging classifies article text into country codes, regions and
// energy-transition topics using keyword n-gram scoring.
package tagging

import (
	"regexp"
	"sort"
	"strings"
)

const (
	maxCountryTags = 3
	maxTopicTags   = 3
	maxNGram       = 5
)

var wordRe = regexp.MustCompile(`\w+`)

// tokenize lowercases text and emits word n-grams for n in [1,5], so
// multi-word keywords like "south korea" match as single tokens.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(words)*maxNGram)
	tokens = append(tokens, words...)
	for n := 2; n <= maxNGram; n++ {
		for i := 0; i+n <= len(words); i++ {
			tokens = append(tokens, strings.Join(words[i:i+n], " "))
		}
	}
	return tokens
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// normalizeKeyword rewrites a keyword into the token form the tokenizer
// produces, so "u.s." and "lithium-ion" can match "u s" and "lithium ion"
// n-grams.
func normalizeKeyword(kw string) string {
	return strings.Join(wordRe.FindAllString(strings.ToLower(kw), -1), " ")
}

func phraseWords(token string) int {
	return strings.Count(token, " ") + 1
}

// rankTags returns up to max ids with positive score, highest score first,
// ties broken by id so output is stable.
func rankTags(scores map[string]int, max int) []string {
	type scored struct {
		id    string
		score int
	}
	ranked := make([]scored, 0, len(scores))
	for id, score := range scores {
		if score > 0 {
			ranked = append(ranked, scored{id, score})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	ids := make([]string, len(ranked))
	for i, s := range ranked {
		ids[i] = s.id
	}
	return ids
}

// CountryTagger scores country mentions in article text.
type CountryTagger struct {
	keywordToCountry map[string]string
	keywordToRegion  map[string]string
	rules            []DisambiguationRule
}

// NewCountryTagger builds the reverse keyword indices.
func NewCountryTagger() *CountryTagger {
	t := &CountryTagger{
		keywordToCountry: make(map[string]string),
		keywordToRegion:  make(map[string]string),
		rules:            disambiguationRules,
	}
	for code, keywords := range countryKeywords {
		for _, kw := range keywords {
			if norm := normalizeKeyword(kw); norm != "" {
				t.keywordToCountry[norm] = code
			}
		}
	}
	for kw, code := range ambiguousKeywords {
		t.keywordToCountry[normalizeKeyword(kw)] = code
	}
	for region, keywords := range regionKeywords {
		for _, kw := range keywords {
			if norm := normalizeKeyword(kw); norm != "" {
				t.keywordToRegion[norm] = region
			}
		}
	}
	return t
}

// Tag scores title and content and returns up to three country codes plus
// any regions found. Title hits weigh x3; longer phrases weigh by their
// word count so "south korea" outranks a bare "korea".
func (t *CountryTagger) Tag(title, content string) ([]string, []string) {
	fullText := title
	if content != "" {
		fullText += " " + content
	}
	if strings.TrimSpace(fullText) == "" {
		return nil, nil
	}

	titleTokens := tokenSet(tokenize(title))
	scores := make(map[string]int)
	regionSet := make(map[string]bool)

	for _, token := range tokenize(fullText) {
		if code, ok := t.keywordToCountry[token]; ok {
			weight := 1
			if titleTokens[token] {
				weight = 3
			}
			weight *= phraseWords(token)
			scores[code] += weight
		}
		if region, ok := t.keywordToRegion[token]; ok {
			regionSet[region] = true
		}
	}

	t.applyRules(strings.ToLower(fullText), scores)

	var regions []string
	for region := range regionSet {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return rankTags(scores, maxCountryTags), regions
}

// applyRules zeroes scores for matches the surrounding text contradicts.
func (t *CountryTagger) applyRules(lowerText string, scores map[string]int) {
	for _, rule := range t.rules {
		if scores[rule.Country] <= 0 {
			continue
		}
		for _, evidence := range rule.Evidence {
			if strings.Contains(lowerText, evidence) {
				scores[rule.Country] = 0
				break
			}
		}
	}
}

// CountriesInText returns every country code mentioned in free text, in
// code order. Used to lift structured filters out of user questions.
func (t *CountryTagger) CountriesInText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	scores := make(map[string]int)
	for _, token := range tokenize(text) {
		if code, ok := t.keywordToCountry[token]; ok {
			scores[code]++
		}
	}
	t.applyRules(strings.ToLower(text), scores)

	var codes []string
	for code, score := range scores {
		if score > 0 {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// TopicTagger scores topic keywords in article text.
type TopicTagger struct {
	positive map[string][]string // keyword -> topic ids it supports
	negative map[string][]string // keyword -> topic ids it demotes
}

// NewTopicTagger builds the reverse keyword indices.
func NewTopicTagger() *TopicTagger {
	t := &TopicTagger{
		positive: make(map[string][]string),
		negative: make(map[string][]string),
	}
	for id, entry := range topicKeywords {
		for _, kw := range entry.Positive {
			if norm := normalizeKeyword(kw); norm != "" {
				t.positive[norm] = appendUnique(t.positive[norm], id)
			}
		}
		for _, kw := range entry.Negative {
			if norm := normalizeKeyword(kw); norm != "" {
				t.negative[norm] = appendUnique(t.negative[norm], id)
			}
		}
	}
	return t
}

// appendUnique guards against keyword variants that normalize to the same
// token form registering a topic twice.
func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// Tag returns up to three topics with strictly positive score. Positive
// hits weigh like country hits; negative hits subtract 2 in the title and
// 1 in the body, demoting but never blacklisting a topic.
func (t *TopicTagger) Tag(title, content string) []string {
	fullText := title
	if content != "" {
		fullText += " " + content
	}
	if strings.TrimSpace(fullText) == "" {
		return nil
	}

	titleTokens := tokenSet(tokenize(title))
	scores := make(map[string]int)

	for _, token := range tokenize(fullText) {
		if ids, ok := t.positive[token]; ok {
			weight := 1
			if titleTokens[token] {
				weight = 3
			}
			weight *= phraseWords(token)
			for _, id := range ids {
				scores[id] += weight
			}
		}
		if ids, ok := t.negative[token]; ok {
			penalty := 1
			if titleTokens[token] {
				penalty = 2
			}
			for _, id := range ids {
				scores[id] -= penalty
			}
		}
	}

	return rankTags(scores, maxTopicTags)
}

// TopicsInText returns every topic with at least one positive-keyword hit,
// in id order. Negative keywords are ignored here: a question asking about
// batteries in cars still wants battery content.
func (t *TopicTagger) TopicsInText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	found := make(map[string]bool)
	for _, token := range tokenize(text) {
		for _, id := range t.positive[token] {
			found[id] = true
		}
	}
	var topics []string
	for id := range found {
		topics = append(topics, id)
	}
	sort.Strings(topics)
	return topics
}
