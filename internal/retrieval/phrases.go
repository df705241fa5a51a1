package retrieval

import "strings"

// stopwords are question scaffolding that carries no search signal.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"were": true, "will": true, "what": true, "when": true, "where": true,
	"which": true, "who": true, "how": true, "why": true, "does": true,
	"did": true, "has": true, "have": true, "had": true, "about": true,
	"with": true, "from": true, "into": true, "that": true, "this": true,
	"these": true, "those": true, "there": true, "their": true, "they": true,
	"been": true, "being": true, "latest": true, "recent": true, "news": true,
	"tell": true, "happening": true, "going": true, "most": true, "much": true,
	"many": true, "any": true, "some": true, "can": true, "could": true,
	"would": true, "should": true,
}

// questionPhrases derives title-search phrases from a question, most
// specific first: the full keyword phrase, then adjacent pairs, then
// single keywords. Tokens of four or more letters survive; stopwords and
// punctuation do not.
func questionPhrases(question string) []string {
	var tokens []string
	for _, raw := range strings.Fields(strings.ToLower(question)) {
		tok := strings.Trim(raw, ".,;:!?'\"()[]")
		if len(tok) <= 3 || stopwords[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		return nil
	}

	var phrases []string
	seen := map[string]bool{}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			phrases = append(phrases, p)
		}
	}

	if len(tokens) > 1 {
		add(strings.Join(tokens, " "))
		for i := 0; i+1 < len(tokens); i++ {
			add(tokens[i] + " " + tokens[i+1])
		}
	}
	for _, tok := range tokens {
		add(tok)
	}
	return phrases
}
