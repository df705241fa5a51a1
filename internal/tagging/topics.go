package tagging

import "sort"

// topicEntry pairs the keywords that indicate a topic with the ones that
// argue against it. Negative keywords only demote the topic's own score;
// they never blacklist an article.
type topicEntry struct {
	Positive []string
	Negative []string
}

// topicKeywords is the closed energy-transition taxonomy.
var topicKeywords = map[string]topicEntry{
	"policy_regulation": {
		Positive: []string{
			"policy", "regulation", "regulatory", "legislation", "law", "mandate",
			"government", "federal", "state", "national", "parliament", "congress",
			"directive", "compliance", "subsidy", "subsidies", "tax credit",
			"incentive", "carbon tax", "emissions trading", "cap and trade",
			"net zero", "climate target", "climate goal", "climate pledge",
			"paris agreement", "cop27", "cop28", "cop29", "climate summit",
			"renewable energy standard", "res", "clean energy standard",
			"energy policy", "climate policy", "environmental policy",
		},
		Negative: []string{"technical", "engineering", "manufacturing"},
	},
	"power_grid": {
		Positive: []string{
			"grid", "power grid", "electricity grid", "transmission", "distribution",
			"grid infrastructure", "grid modernization", "smart grid",
			"interconnection", "interconnector", "grid connection",
			"transmission line", "power line", "substation",
			"grid operator", "grid stability", "grid reliability",
			"grid congestion", "grid capacity", "grid expansion",
			"energy storage grid", "grid scale", "utility scale",
			"load balancing", "frequency regulation", "ancillary services",
			"demand response", "virtual power plant", "vpp",
		},
		Negative: []string{"solar panel", "wind turbine", "battery cell"},
	},
	"renewables_solar": {
		Positive: []string{
			"solar", "photovoltaic", "pv", "solar panel", "solar farm",
			"solar power", "solar energy", "solar project", "solar plant",
			"solar installation", "rooftop solar", "utility scale solar",
			"concentrated solar", "csp", "solar thermal",
			"solar cell", "solar module", "bifacial", "perovskite",
			"solar capacity", "solar generation", "solar irradiance",
		},
		Negative: []string{"wind", "battery", "hydrogen"},
	},
	"renewables_wind": {
		Positive: []string{
			"wind", "wind power", "wind energy", "wind farm", "wind turbine",
			"wind project", "wind installation", "wind capacity",
			"onshore wind", "offshore wind", "floating wind",
			"wind generation", "wind developer", "wind industry",
			"turbine blade", "nacelle", "wind speed", "capacity factor",
		},
		Negative: []string{"solar", "battery", "hydrogen"},
	},
	"storage_batteries": {
		Positive: []string{
			"battery", "batteries", "energy storage", "battery storage",
			"lithium ion", "lithium-ion", "li-ion", "solid state battery",
			"battery cell", "battery pack", "battery system",
			"battery technology", "battery chemistry", "battery capacity",
			"battery manufacturer", "battery plant", "gigafactory",
			"flow battery", "vanadium", "grid scale storage",
			"stationary storage", "utility scale battery",
			"charge", "discharge", "cycling", "degradation",
		},
		Negative: []string{"electric vehicle", "ev", "car", "automotive"},
	},
	"hydrogen": {
		Positive: []string{
			"hydrogen", "h2", "green hydrogen", "blue hydrogen", "grey hydrogen",
			"hydrogen production", "electrolyzer", "electrolysis",
			"hydrogen fuel", "hydrogen economy", "hydrogen strategy",
			"fuel cell", "hydrogen storage", "hydrogen transport",
			"ammonia", "synthetic fuel", "e-fuel", "power to gas",
			"hydrogen pipeline", "hydrogen infrastructure",
		},
		Negative: []string{"battery", "solar", "wind"},
	},
	"ev_transport": {
		Positive: []string{
			"electric vehicle", "ev", "evs", "electric car", "electric truck",
			"electric bus", "battery electric vehicle", "bev",
			"plug-in hybrid", "phev", "hybrid electric",
			"charging station", "charging infrastructure", "ev charger",
			"fast charging", "dc fast charging", "level 2 charging",
			"vehicle to grid", "v2g", "bidirectional charging",
			"automotive", "automobile", "passenger vehicle",
			"tesla", "rivian", "lucid", "nio", "byd electric",
			"ev adoption", "ev sales", "ev market", "ev battery",
		},
		Negative: []string{"stationary storage", "grid scale"},
	},
	"carbon_markets_ccus": {
		Positive: []string{
			"carbon capture", "ccs", "ccus", "carbon storage",
			"carbon sequestration", "direct air capture", "dac",
			"carbon removal", "carbon credit", "carbon offset",
			"carbon market", "carbon trading", "carbon price",
			"emissions reduction", "co2 capture", "carbon dioxide removal",
			"negative emissions", "carbon neutral", "carbon negative",
			"voluntary carbon market", "compliance carbon market",
		},
	},
	"oil_gas_transition": {
		Positive: []string{
			"oil and gas", "fossil fuel", "petroleum", "natural gas",
			"oil company", "gas company", "oil major", "supermajor",
			"bp", "shell", "exxon", "chevron", "totalenergies", "equinor",
			"energy transition", "diversification", "renewable transition",
			"fossil fuel phase out", "stranded assets",
			"oil production", "gas production", "upstream", "downstream",
			"refinery", "petrochemical", "lng", "liquefied natural gas",
		},
		Negative: []string{"renewable only", "clean energy only"},
	},
	"corporate_finance": {
		Positive: []string{
			"investment", "financing", "funding", "capital",
			"merger", "acquisition", "m&a", "deal", "transaction",
			"ipo", "initial public offering", "private equity", "venture capital",
			"stock", "share price", "valuation", "market cap",
			"earnings", "revenue", "profit", "loss", "financial results",
			"investor", "shareholder", "dividend", "bond", "debt",
			"fundraising", "capital raise", "series a", "series b",
			"billion dollar", "million dollar", "usd", "eur",
		},
	},
	"critical_minerals_supply_chain": {
		Positive: []string{
			"lithium", "cobalt", "nickel", "rare earth", "graphite",
			"copper", "manganese", "vanadium",
			"mining", "mineral", "supply chain", "raw material",
			"critical mineral", "strategic mineral",
			"mineral processing", "refining", "smelting",
			"mineral exploration", "mineral deposit", "mineral reserves",
			"supply security", "supply risk", "geopolitical risk",
			"mineral demand", "mineral shortage", "mineral price",
		},
	},
}

// TopicNames maps topic identifiers to display names for the API.
var TopicNames = map[string]string{
	"policy_regulation":              "Policy & Regulation",
	"power_grid":                     "Power Grid & Infrastructure",
	"renewables_solar":               "Solar Energy",
	"renewables_wind":                "Wind Energy",
	"storage_batteries":              "Battery Storage",
	"hydrogen":                       "Hydrogen & Fuel Cells",
	"ev_transport":                   "Electric Vehicles & Transport",
	"carbon_markets_ccus":            "Carbon Markets & CCUS",
	"oil_gas_transition":             "Oil & Gas Transition",
	"corporate_finance":              "Corporate & Finance",
	"critical_minerals_supply_chain": "Critical Minerals & Supply Chain",
}

// AllTopics returns every topic identifier in sorted order.
func AllTopics() []string {
	topics := make([]string, 0, len(topicKeywords))
	for id := range topicKeywords {
		topics = append(topics, id)
	}
	sort.Strings(topics)
	return topics
}

// TopicName returns the display name for a topic, falling back to the id.
func TopicName(id string) string {
	if name, ok := TopicNames[id]; ok {
		return name
	}
	return id
}
