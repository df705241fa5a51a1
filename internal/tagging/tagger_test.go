package tagging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountryTaggerSimpleName(t *testing.T) {
	tagger := NewCountryTagger()
	codes, _ := tagger.Tag("Germany announces new energy policy", "")
	assert.Contains(t, codes, "DE")
	assert.LessOrEqual(t, len(codes), 3)
}

func TestCountryTaggerMultipleCountries(t *testing.T) {
	tagger := NewCountryTagger()
	codes, _ := tagger.Tag(
		"US and China sign trade agreement",
		"The United States and China have agreed to new terms.",
	)
	assert.Contains(t, codes, "US")
	assert.Contains(t, codes, "CN")
}

func TestCountryTaggerCityAndDemonym(t *testing.T) {
	tagger := NewCountryTagger()

	codes, _ := tagger.Tag("Paris climate summit concludes", "Leaders gathered in Paris.")
	assert.Contains(t, codes, "FR")

	codes, _ = tagger.Tag("British scientists develop new turbine coating", "")
	assert.Contains(t, codes, "GB")
}

func TestCountryTaggerDottedAbbreviations(t *testing.T) {
	tagger := NewCountryTagger()
	codes, _ := tagger.Tag("U.S. and U.K. sign energy pact", "")
	assert.Contains(t, codes, "US")
	assert.Contains(t, codes, "GB")
}

func TestCountryTaggerKoreaDefaultsSouth(t *testing.T) {
	tagger := NewCountryTagger()
	codes, _ := tagger.Tag("Korea invests in solar energy", "Korean companies lead in panel production.")
	assert.Contains(t, codes, "KR")
}

func TestCountryTaggerNorthKoreaExplicit(t *testing.T) {
	tagger := NewCountryTagger()
	codes, _ := tagger.Tag("North Korea energy policy", "North Korea announced new plans.")
	assert.Contains(t, codes, "KP")
}

func TestCountryTaggerGeorgiaUSState(t *testing.T) {
	tagger := NewCountryTagger()
	codes, _ := tagger.Tag(
		"Georgia power company expands in Atlanta",
		"The Atlanta-based utility serving Georgia announced expansion.",
	)
	assert.NotContains(t, codes, "GE", "US-state evidence zeroes the GE score")
}

func TestCountryTaggerGeorgiaCountry(t *testing.T) {
	tagger := NewCountryTagger()
	codes, _ := tagger.Tag(
		"Georgia announces renewable energy targets",
		"The nation of Georgia plans new hydropower capacity.",
	)
	assert.Contains(t, codes, "GE", "no US-state evidence keeps the country")
}

func TestCountryTaggerEURegionMetadataOnly(t *testing.T) {
	tagger := NewCountryTagger()
	codes, regions := tagger.Tag(
		"EU policy on renewable energy",
		"The European Union has announced new directives.",
	)
	assert.NotContains(t, codes, "EU")
	assert.Contains(t, regions, "EU")
}

func TestCountryTaggerBrusselsScoresBelgiumAndEU(t *testing.T) {
	tagger := NewCountryTagger()
	codes, regions := tagger.Tag("Brussels unveils grid funding package", "")
	assert.Contains(t, codes, "BE")
	assert.Contains(t, regions, "EU")
}

func TestCountryTaggerEmptyAndUnrelatedText(t *testing.T) {
	tagger := NewCountryTagger()

	codes, regions := tagger.Tag("", "")
	assert.Empty(t, codes)
	assert.Empty(t, regions)

	codes, _ = tagger.Tag("New solar panel technology increases efficiency", "A new photovoltaic cell design.")
	assert.Empty(t, codes)
}

func TestCountryTaggerTopThreeLimit(t *testing.T) {
	tagger := NewCountryTagger()
	codes, _ := tagger.Tag(
		"Global summit",
		`Representatives from the United States, China, Germany, France,
		United Kingdom, Japan, and Australia discussed climate policy.
		The American delegation met with Chinese officials.
		German Chancellor spoke with British Prime Minister.`,
	)
	assert.LessOrEqual(t, len(codes), 3)
}

func TestCountryTaggerTitleWeight(t *testing.T) {
	tagger := NewCountryTagger()
	codes, _ := tagger.Tag(
		"Germany leads renewable transition",
		"France is also making progress but Germany is ahead.",
	)
	require.NotEmpty(t, codes)
	assert.Equal(t, "DE", codes[0], "title hits outrank body hits")
}

func TestCountryTaggerPhraseBeatsWord(t *testing.T) {
	tagger := NewCountryTagger()
	// "south korea" scores as a 2-word phrase plus "korea" alone; the
	// phrase pushes KR decisively above single-word noise.
	codes, _ := tagger.Tag("South Korea expands battery exports", "")
	require.NotEmpty(t, codes)
	assert.Equal(t, "KR", codes[0])
}

func TestCountriesInText(t *testing.T) {
	tagger := NewCountryTagger()

	assert.Equal(t, []string{"DE", "FR"}, tagger.CountriesInText("How do Germany and France compare on wind?"))
	assert.Empty(t, tagger.CountriesInText("What is the latest on solar prices?"))
	assert.Empty(t, tagger.CountriesInText(""))
	assert.NotContains(t, tagger.CountriesInText("News from Atlanta, Georgia"), "GE")
}

func TestTopicTaggerSolar(t *testing.T) {
	tagger := NewTopicTagger()
	topics := tagger.Tag(
		"Solar farm construction begins in the desert",
		"The photovoltaic plant will produce 500 MW of solar power at peak.",
	)
	require.NotEmpty(t, topics)
	assert.Equal(t, "renewables_solar", topics[0])
}

func TestTopicTaggerWindVsSolar(t *testing.T) {
	tagger := NewTopicTagger()
	topics := tagger.Tag(
		"Offshore wind farm reaches financial close",
		"The wind project will install eighty turbines. Wind capacity in the region doubles.",
	)
	require.NotEmpty(t, topics)
	assert.Equal(t, "renewables_wind", topics[0])
	assert.NotContains(t, topics, "renewables_solar")
}

func TestTopicTaggerNegativeKeywordsDemoteNotBlacklist(t *testing.T) {
	tagger := NewTopicTagger()
	// An EV story mentioning batteries keeps ev_transport on top; the
	// battery topic is demoted by its automotive negatives but a strong
	// battery signal can still surface it.
	topics := tagger.Tag(
		"Electric vehicle sales double as battery costs fall",
		"EV adoption accelerated last quarter. The battery pack price per kilowatt hour dropped again, and charging infrastructure spending rose.",
	)
	require.NotEmpty(t, topics)
	assert.Equal(t, "ev_transport", topics[0])
}

func TestTopicTaggerHyphenatedKeywords(t *testing.T) {
	tagger := NewTopicTagger()
	topics := tagger.Tag(
		"Lithium-ion battery plant announced",
		"The gigafactory will make lithium-ion battery cells for stationary storage.",
	)
	assert.Contains(t, topics, "storage_batteries")
}

func TestTopicTaggerEmptyText(t *testing.T) {
	tagger := NewTopicTagger()
	assert.Empty(t, tagger.Tag("", ""))
}

func TestTopicTaggerTopThree(t *testing.T) {
	tagger := NewTopicTagger()
	topics := tagger.Tag(
		"Grid operators plan hydrogen storage with solar and wind backup",
		`Transmission upgrades will link the electrolyzer to the power grid.
		Solar capacity and wind capacity both feed the hydrogen production site.
		Battery storage smooths the output while carbon capture handles the rest.`,
	)
	assert.LessOrEqual(t, len(topics), 3)
}

func TestTopicsInText(t *testing.T) {
	tagger := NewTopicTagger()

	topics := tagger.TopicsInText("What happened with offshore wind this week?")
	assert.Contains(t, topics, "renewables_wind")

	assert.Empty(t, tagger.TopicsInText("Tell me about the weather"))
	assert.Empty(t, tagger.TopicsInText(""))
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("South Korea wins")
	assert.Contains(t, tokens, "south")
	assert.Contains(t, tokens, "korea")
	assert.Contains(t, tokens, "south korea")
	assert.Contains(t, tokens, "south korea wins")
	assert.Empty(t, tokenize(""))
}

func TestNormalizeKeyword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"u.s.", "u s"},
		{"lithium-ion", "lithium ion"},
		{"south korea", "south korea"},
		{"M&A", "m a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeKeyword(tt.in))
	}
}

func TestRankTagsOrdering(t *testing.T) {
	scores := map[string]int{"b": 5, "a": 5, "c": 9, "d": 0, "e": -2}
	assert.Equal(t, []string{"c", "a", "b"}, rankTags(scores, 3), "score desc, then id asc; non-positive dropped")
}

func TestAllTopicsAndNames(t *testing.T) {
	topics := AllTopics()
	assert.Len(t, topics, 11)
	assert.Contains(t, topics, "power_grid")

	assert.Equal(t, "Battery Storage", TopicName("storage_batteries"))
	assert.Equal(t, "unknown_id", TopicName("unknown_id"))
}
