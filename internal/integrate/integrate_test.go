package integrate

import (
	"testing"

	"playbookd/internal/model"
)

func scenario() model.Payload {
	return model.Payload{
		"company_name":           "GreenCart Retail",
		"industry":               "retail",
		"regulatory_context":     "EU Green Claims Directive",
		"sustainability_context": "Recycled packaging rollout",
		"preliminary_claims":     []any{"100% recyclable packaging"},
	}
}

func problems(ids ...string) model.Payload {
	var msgs []any
	for _, id := range ids {
		msgs = append(msgs, map[string]any{
			"id":                  id,
			"message":             "Our delivery is 100% green!",
			"why_problematic":     "Absolute claim without proof",
			"problems_identified": []any{"Unqualified absolute claim"},
		})
	}
	return model.Payload{
		"problematic_messages": msgs,
		"scenario_reference":   "Campaign messaging for GreenCart Retail",
	}
}

func corrections(originalIDs ...string) model.Payload {
	var msgs []any
	for _, id := range originalIDs {
		msgs = append(msgs, map[string]any{
			"original_message_id": id,
			"corrected_message":   "90% of deliveries use low-emission couriers",
			"changes_made":        []any{"Replaced absolute claim"},
		})
	}
	return model.Payload{"corrected_messages": msgs}
}

func TestIntegrateFullPairing(t *testing.T) {
	res := Integrate(scenario(), problems("msg1", "msg2"), corrections("msg1", "msg2"))

	if res.Context.CompanyName != "GreenCart Retail" {
		t.Errorf("CompanyName = %q", res.Context.CompanyName)
	}
	if len(res.Pairs) != 2 {
		t.Fatalf("Pairs = %d, want 2", len(res.Pairs))
	}
	for _, p := range res.Pairs {
		if !p.HasCorrection || !p.Complete {
			t.Errorf("pair %s: HasCorrection=%v Complete=%v", p.PairID, p.HasCorrection, p.Complete)
		}
	}
	if !res.CrossRefs.ScenarioReferenced {
		t.Error("ScenarioReferenced = false")
	}
	if res.Quality.CrossReferenceScore != 50 {
		t.Errorf("CrossReferenceScore = %d, want 50", res.Quality.CrossReferenceScore)
	}
	if res.Quality.CompletenessScore != 100 {
		t.Errorf("CompletenessScore = %d, want 100", res.Quality.CompletenessScore)
	}
}

func TestIntegrateUnmatchedMessage(t *testing.T) {
	res := Integrate(scenario(), problems("msg1", "msg2"), corrections("msg1"))

	if len(res.Pairs) != 2 {
		t.Fatalf("Pairs = %d, want 2", len(res.Pairs))
	}
	if !res.Pairs[0].Complete {
		t.Error("matched pair marked incomplete")
	}
	if res.Pairs[1].HasCorrection || res.Pairs[1].Complete {
		t.Error("unmatched pair marked corrected")
	}
	if res.Quality.CompletenessScore != 50 {
		t.Errorf("CompletenessScore = %d, want 50", res.Quality.CompletenessScore)
	}
	if len(res.Quality.Issues) == 0 {
		t.Error("no issues recorded for incomplete pairing")
	}
}

func TestIntegrateEmptyChangesIncomplete(t *testing.T) {
	corr := corrections("msg1")
	corr["corrected_messages"].([]any)[0].(map[string]any)["changes_made"] = []any{}

	res := Integrate(scenario(), problems("msg1"), corr)
	if !res.Pairs[0].HasCorrection {
		t.Error("HasCorrection = false for matched correction")
	}
	if res.Pairs[0].Complete {
		t.Error("Complete = true with empty changes_made")
	}
}

func TestIntegrateCrossReferenceCaseInsensitive(t *testing.T) {
	probs := problems("msg1")
	probs["scenario_reference"] = "messaging drafted for GREENCART retail's campaign"

	res := Integrate(scenario(), probs, corrections("msg1"))
	if !res.CrossRefs.ScenarioReferenced {
		t.Error("case-insensitive company match failed")
	}
}

func TestIntegrateMissingScenario(t *testing.T) {
	res := Integrate(nil, problems("msg1"), corrections("msg1"))

	if res.Context.CompanyName != "" {
		t.Errorf("CompanyName = %q, want empty", res.Context.CompanyName)
	}
	if res.CrossRefs.ScenarioReferenced {
		t.Error("ScenarioReferenced = true with no scenario")
	}
	if len(res.Pairs) != 1 || !res.Pairs[0].Complete {
		t.Error("pairing should still work without a scenario")
	}
}

func TestIntegrateIDFallsBackToPosition(t *testing.T) {
	probs := model.Payload{
		"problematic_messages": []any{
			map[string]any{"message": "no id here", "problems_identified": []any{"x"}},
		},
	}

	res := Integrate(scenario(), probs, corrections("1"))
	if res.Pairs[0].PairID != "1" {
		t.Errorf("PairID = %q, want 1", res.Pairs[0].PairID)
	}
	if !res.Pairs[0].HasCorrection {
		t.Error("positional id did not match correction")
	}
}
