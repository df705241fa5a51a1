package tagging

// countryKeywords maps ISO-3166 alpha-2 codes to the names, demonyms,
// major cities and abbreviations that indicate them.
var countryKeywords = map[string][]string{
	"US": {
		"united states", "usa", "u.s.", "u.s.a", "america", "american", "americans",
		"washington dc", "new york", "california", "texas", "florida",
	},
	"GB": {
		"united kingdom", "uk", "u.k.", "britain", "great britain", "british",
		"england", "english", "scotland", "scottish", "wales", "welsh",
		"northern ireland", "london", "manchester", "birmingham",
	},
	"DE": {
		"germany", "german", "germans", "deutschland",
		"berlin", "munich", "hamburg", "frankfurt",
	},
	"FR": {
		"france", "french", "paris", "lyon", "marseille",
	},
	"CN": {
		"china", "chinese", "beijing", "shanghai", "guangzhou", "shenzhen",
		"prc", "people's republic of china",
	},
	"IN": {
		"india", "indian", "indians", "new delhi", "delhi", "mumbai",
		"bangalore", "bengaluru", "hyderabad",
	},
	"JP": {
		"japan", "japanese", "tokyo", "osaka", "kyoto",
	},
	"KR": {
		"south korea", "korea", "korean", "koreans", "seoul", "busan",
		"republic of korea", "rok",
	},
	"KP": {
		"north korea", "dprk", "pyongyang", "democratic people's republic of korea",
	},
	"AU": {
		"australia", "australian", "australians", "sydney", "melbourne",
		"brisbane", "perth", "canberra",
	},
	"CA": {
		"canada", "canadian", "canadians", "toronto", "montreal", "vancouver",
		"ottawa", "calgary",
	},
	"ES": {
		"spain", "spanish", "madrid", "barcelona", "seville",
	},
	"IT": {
		"italy", "italian", "italians", "rome", "milan", "naples",
		"florence", "venice",
	},
	"NL": {
		"netherlands", "dutch", "holland", "amsterdam", "rotterdam",
		"the hague",
	},
	"BE": {
		"belgium", "belgian", "belgians", "brussels", "antwerp",
	},
	"PL": {
		"poland", "polish", "poles", "warsaw", "krakow", "gdansk",
	},
	"SE": {
		"sweden", "swedish", "swedes", "stockholm", "gothenburg",
	},
	"NO": {
		"norway", "norwegian", "norwegians", "oslo", "bergen",
	},
	"DK": {
		"denmark", "danish", "danes", "copenhagen",
	},
	"BR": {
		"brazil", "brazilian", "brazilians", "brasilia", "sao paulo",
		"rio de janeiro", "rio",
	},
	"MX": {
		"mexico", "mexican", "mexicans", "mexico city", "guadalajara",
	},
	"AR": {
		"argentina", "argentinian", "argentinians", "buenos aires",
	},
	"CL": {
		"chile", "chilean", "chileans", "santiago",
	},
	"ZA": {
		"south africa", "south african", "south africans",
		"johannesburg", "cape town", "pretoria", "durban",
	},
	"SA": {
		"saudi arabia", "saudi", "saudis", "riyadh", "jeddah",
	},
	"AE": {
		"united arab emirates", "uae", "u.a.e", "emirates", "dubai", "abu dhabi",
	},
	"IL": {
		"israel", "israeli", "israelis", "jerusalem", "tel aviv",
	},
	"TR": {
		"turkey", "turkish", "turks", "ankara", "istanbul",
	},
	"RU": {
		"russia", "russian", "russians", "moscow", "st petersburg",
		"petersburg", "soviet", "ussr",
	},
	"UA": {
		"ukraine", "ukrainian", "ukrainians", "kyiv", "kiev", "odessa",
	},
	"EG": {
		"egypt", "egyptian", "egyptians", "cairo",
	},
	"NG": {
		"nigeria", "nigerian", "nigerians", "lagos", "abuja",
	},
	"KE": {
		"kenya", "kenyan", "kenyans", "nairobi",
	},
	"ID": {
		"indonesia", "indonesian", "indonesians", "jakarta",
	},
	"MY": {
		"malaysia", "malaysian", "malaysians", "kuala lumpur",
	},
	"SG": {
		"singapore", "singaporean", "singaporeans",
	},
	"VN": {
		"vietnam", "vietnamese", "hanoi", "ho chi minh",
	},
	"TH": {
		"thailand", "thai", "bangkok",
	},
	"PH": {
		"philippines", "filipino", "filipinos", "manila",
	},
	"NZ": {
		"new zealand", "new zealander", "new zealanders", "kiwi", "kiwis",
		"wellington", "auckland",
	},
	"IE": {
		"ireland", "irish", "dublin",
	},
	"PT": {
		"portugal", "portuguese", "lisbon", "porto",
	},
	"GR": {
		"greece", "greek", "greeks", "athens",
	},
	"AT": {
		"austria", "austrian", "austrians", "vienna",
	},
	"CH": {
		"switzerland", "swiss", "zurich", "geneva", "bern",
	},
	"FI": {
		"finland", "finnish", "finns", "helsinki",
	},
	"CZ": {
		"czech republic", "czech", "czechs", "czechia", "prague",
	},
	"HU": {
		"hungary", "hungarian", "hungarians", "budapest",
	},
	"RO": {
		"romania", "romanian", "romanians", "bucharest",
	},
}

// ambiguousKeywords score like regular country keywords but are subject
// to disambiguation rules afterwards.
var ambiguousKeywords = map[string]string{
	"georgia": "GE",
}

// regionKeywords mark supranational regions. Hits land in article
// metadata, never in the country set.
var regionKeywords = map[string][]string{
	"EU": {
		"european union", "eu", "e.u.", "brussels", "european commission",
		"european parliament", "eurozone",
	},
}

// DisambiguationRule zeroes a country's score when the surrounding text
// carries evidence that the match means something else.
type DisambiguationRule struct {
	Country  string   // code whose score is corrected
	Evidence []string // lowercase substrings that trigger the correction
}

// disambiguationRules correct known keyword collisions.
var disambiguationRules = []DisambiguationRule{
	// "Georgia" the US state, not the country.
	{Country: "GE", Evidence: []string{"atlanta", "savannah", "peach state", "georgian state"}},
}

// countryNames are display names for the codes the tagger can emit.
var countryNames = map[string]string{
	"US": "United States", "GB": "United Kingdom", "DE": "Germany",
	"FR": "France", "CN": "China", "IN": "India", "JP": "Japan",
	"KR": "South Korea", "KP": "North Korea", "AU": "Australia",
	"CA": "Canada", "ES": "Spain", "IT": "Italy", "NL": "Netherlands",
	"BE": "Belgium", "PL": "Poland", "SE": "Sweden", "NO": "Norway",
	"DK": "Denmark", "BR": "Brazil", "MX": "Mexico", "AR": "Argentina",
	"CL": "Chile", "ZA": "South Africa", "SA": "Saudi Arabia",
	"AE": "United Arab Emirates", "IL": "Israel", "TR": "Turkey",
	"RU": "Russia", "UA": "Ukraine", "EG": "Egypt", "NG": "Nigeria",
	"KE": "Kenya", "ID": "Indonesia", "MY": "Malaysia", "SG": "Singapore",
	"VN": "Vietnam", "TH": "Thailand", "PH": "Philippines",
	"NZ": "New Zealand", "IE": "Ireland", "PT": "Portugal", "GR": "Greece",
	"AT": "Austria", "CH": "Switzerland", "FI": "Finland",
	"CZ": "Czech Republic", "HU": "Hungary", "RO": "Romania", "GE": "Georgia",
}

// CountryName returns the display name for a code, or the code itself when
// unknown.
func CountryName(code string) string {
	if name, ok := countryNames[code]; ok {
		return name
	}
	return code
}
