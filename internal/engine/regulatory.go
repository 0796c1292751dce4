package engine

// regulatoryFrameworks is the per-region compliance reference the prompts
// and rendered documents draw from. Unknown regions fall back to Global.
var regulatoryFrameworks = map[string]RegulatoryDetails{
	"EU": {
		Regulations:      "EU Green Claims Directive, CSRD, EU Taxonomy Regulation",
		Description:      "European Union sustainability regulations focusing on green claims substantiation",
		EnforcementFocus: "Mandatory substantiation, corporate transparency, taxonomy alignment",
	},
	"USA": {
		Regulations:      "FTC Green Guides, SEC Climate Disclosure Rules, EPA Green Power Partnership",
		Description:      "US federal guidance and rules for environmental marketing claims",
		EnforcementFocus: "Truthful advertising, climate risk disclosure, renewable energy verification",
	},
	"UK": {
		Regulations:      "CMA Green Claims Code, FCA Sustainability Disclosure Requirements, ASA CAP Code",
		Description:      "UK-specific guidance for environmental claims and financial sustainability disclosures",
		EnforcementFocus: "Consumer protection, financial product sustainability, advertising standards",
	},
	"Global": {
		Regulations:      "ISO 14021, GRI Standards, TCFD Recommendations, ISSB Standards",
		Description:      "International standards and frameworks for sustainability communication",
		EnforcementFocus: "Voluntary compliance, standardized reporting, best practice adoption",
	},
}

// RegulatoryFor returns the compliance details for a region, defaulting to
// the Global entry.
func RegulatoryFor(region string) RegulatoryDetails {
	if details, ok := regulatoryFrameworks[region]; ok {
		return details
	}
	return regulatoryFrameworks["Global"]
}
