// Package integrate joins the per-stage payloads into one coherent view:
// problem messages paired with their corrections, scenario context lifted
// for cross-referencing, and a consistency assessment across stages.
package integrate

import (
	"fmt"
	"strings"

	"playbookd/internal/model"
)

// ScenarioContext is the slice of scenario data the later stages are
// expected to stay consistent with.
type ScenarioContext struct {
	CompanyName         string `json:"company_name"`
	Industry            string `json:"industry"`
	RegulatoryContext   string `json:"regulatory_context"`
	SustainabilityFocus string `json:"sustainability_focus"`
	TargetClaims        []any  `json:"target_claims"`
}

// MessagePair joins one problematic message with the correction that
// addresses it, matched by shared identifier.
type MessagePair struct {
	PairID        string        `json:"pair_id"`
	Problematic   model.Payload `json:"problematic"`
	Correction    model.Payload `json:"correction"`
	HasCorrection bool          `json:"has_correction"`
	Complete      bool          `json:"integration_complete"`
}

// CrossReferences records whether the problems stage actually grounded
// itself in the scenario it was given.
type CrossReferences struct {
	ScenarioReferenced bool   `json:"scenario_referenced"`
	CompanyMentioned   string `json:"company_mentioned"`
	ReferenceText      string `json:"reference_text"`
}

// Quality scores how well the stages hang together.
type Quality struct {
	CrossReferenceScore int      `json:"cross_reference_score"`
	CompletenessScore   int      `json:"completeness_score"`
	Issues              []string `json:"issues"`
	Strengths           []string `json:"strengths"`
}

// Result is the integrated dataset handed to the document assembler.
type Result struct {
	Context   ScenarioContext `json:"scenario_context"`
	Pairs     []MessagePair   `json:"integrated_messages"`
	CrossRefs CrossReferences `json:"cross_references"`
	Quality   Quality         `json:"integration_quality"`
}

func str(data model.Payload, field string) string {
	s, _ := data[field].(string)
	return s
}

func list(data model.Payload, field string) []any {
	l, _ := data[field].([]any)
	return l
}

// Integrate builds the cross-stage view. Nil payloads degrade gracefully:
// missing corrections leave pairs uncorrected, a missing scenario leaves the
// context empty.
func Integrate(scenario, problems, corrections model.Payload) Result {
	res := Result{
		Context: ScenarioContext{
			CompanyName:         str(scenario, "company_name"),
			Industry:            str(scenario, "industry"),
			RegulatoryContext:   str(scenario, "regulatory_context"),
			SustainabilityFocus: str(scenario, "sustainability_context"),
			TargetClaims:        list(scenario, "preliminary_claims"),
		},
	}

	res.Pairs = pairMessages(problems, corrections)
	res.CrossRefs = crossReference(res.Context.CompanyName, problems)
	res.Quality = assess(res.Pairs, res.CrossRefs)
	return res
}

// pairMessages matches each problematic message to its correction by the
// correction's original_message_id. A message without an id falls back to
// its 1-based position.
func pairMessages(problems, corrections model.Payload) []MessagePair {
	byOriginalID := map[string]model.Payload{}
	for _, entry := range list(corrections, "corrected_messages") {
		corr, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if id := str(corr, "original_message_id"); id != "" {
			byOriginalID[id] = corr
		}
	}

	var pairs []MessagePair
	for i, entry := range list(problems, "problematic_messages") {
		prob, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id := str(prob, "id")
		if id == "" {
			id = fmt.Sprintf("%d", i+1)
		}

		corr := byOriginalID[id]
		pairs = append(pairs, MessagePair{
			PairID:        id,
			Problematic:   prob,
			Correction:    corr,
			HasCorrection: corr != nil,
			Complete:      pairComplete(prob, corr),
		})
	}
	return pairs
}

// pairComplete requires a correction that names its changes and a problem
// analysis that names its findings.
func pairComplete(prob, corr model.Payload) bool {
	if corr == nil {
		return false
	}
	return len(list(corr, "changes_made")) > 0 && len(list(prob, "problems_identified")) > 0
}

// crossReference checks that the problems stage's scenario_reference text
// mentions the scenario's company, case-insensitive.
func crossReference(companyName string, problems model.Payload) CrossReferences {
	refs := CrossReferences{CompanyMentioned: companyName}
	if problems == nil {
		return refs
	}
	refs.ReferenceText = str(problems, "scenario_reference")
	if refs.ReferenceText != "" && companyName != "" {
		refs.ScenarioReferenced = strings.Contains(
			strings.ToLower(refs.ReferenceText), strings.ToLower(companyName))
	}
	return refs
}

func assess(pairs []MessagePair, refs CrossReferences) Quality {
	var q Quality

	if refs.ScenarioReferenced {
		q.CrossReferenceScore = 50
		q.Strengths = append(q.Strengths, "Messages properly reference scenario")
	} else {
		q.Issues = append(q.Issues, "Messages don't reference scenario context")
	}

	if len(pairs) > 0 {
		complete := 0
		for _, p := range pairs {
			if p.Complete {
				complete++
			}
		}
		ratio := float64(complete) / float64(len(pairs))
		q.CompletenessScore = int(ratio * 100)
		if ratio > 0.8 {
			q.Strengths = append(q.Strengths, "Most messages have proper corrections")
		} else {
			q.Issues = append(q.Issues, "Some messages lack proper corrections")
		}
	}

	return q
}
