package engine

import (
	"encoding/json"
	"fmt"
)

func buildScenarioPrompt(in Inputs) string {
	return fmt.Sprintf(`You are a sustainability marketing consultant. Create a realistic business scenario for greenwashing-avoidance training in the %s industry (%s region, %s).

Output ONLY valid JSON with this exact structure (no markdown, no explanation):
{"company_name": "...", "industry": "...", "company_size": "...", "location": "...", "product_service": "...", "target_audience": "...", "sustainability_context": "...", "regulatory_context": "...", "marketing_objectives": ["..."], "preliminary_claims": ["..."], "current_practices": ["..."], "challenges_faced": ["..."], "market_research_sources": ["..."]}

Rules:
- Every string field non-empty, every list with at least 2 entries
- regulatory_context must reference: %s
- preliminary_claims should be plausible but risky marketing claims
- Ground everything in the %s industry, training level %s`,
		in.Industry, in.Region, in.Year, in.Regulatory.Regulations, in.Industry, in.TrainingLevel)
}

func buildProblemsPrompt(in Inputs, scenario any) string {
	return fmt.Sprintf(`You are a greenwashing auditor. Given this business scenario, write exactly 4 problematic marketing messages the company might publish, each violating the regulatory guidance.

Scenario: %s
Enforcement focus: %s

Output ONLY valid JSON with this exact structure:
{"problematic_messages": [{"id": "msg1", "message": "...", "why_problematic": "...", "problems_identified": ["..."], "regulatory_violations": ["..."], "potential_consequences": ["..."]}], "scenario_reference": "..."}

Rules:
- Exactly 4 entries with ids msg1 through msg4
- scenario_reference must mention the company by name
- why_problematic must name the specific regulatory failure`,
		mustJSON(scenario), in.Regulatory.EnforcementFocus)
}

func buildCorrectionsPrompt(in Inputs, problems any) string {
	return fmt.Sprintf(`You are a compliance copywriter. Rewrite each problematic message below into a compliant version.

Problematic messages: %s
Applicable regulations: %s

Output ONLY valid JSON with this exact structure:
{"corrected_messages": [{"original_message_id": "msg1", "corrected_message": "...", "changes_made": ["..."], "compliance_notes": "..."}]}

Rules:
- Exactly 4 entries, one per original id, no duplicates
- changes_made lists the concrete edits, never empty
- Claims must be specific, measurable and substantiated`,
		mustJSON(problems), in.Regulatory.Regulations)
}

func buildImplementationPrompt(in Inputs, scenario any) string {
	return fmt.Sprintf(`You are a sustainability compliance advisor. Produce an implementation plan that operationalises compliant marketing for this company.

Scenario: %s
Regulatory landscape: %s

Output ONLY valid JSON with this exact structure:
{"implementation_roadmap": ["..."], "success_metrics": ["..."], "timeline_milestones": ["..."], "team_training_requirements": ["..."], "tools_and_resources": ["..."], "industry_specific_considerations": "...", "regulatory_compliance_schedule": "..."}

Rules:
- Every list with at least 3 entries
- timeline_milestones phrased as "Month N: ..."
- regulatory_compliance_schedule names review cadence against: %s`,
		mustJSON(scenario), in.Regulatory.Description, in.Regulatory.Regulations)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
