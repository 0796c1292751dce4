package playbook

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"playbookd/internal/model"
)

func sampleInputs() (model.Payload, model.Payload, model.Payload, model.Payload) {
	scenario := model.Payload{
		"company_name":    "EverGreen Collective",
		"industry":        "retail",
		"company_size":    "mid-size",
		"location":        "Rotterdam, Netherlands",
		"product_service": "Household goods",
		"target_audience": "Conscious consumers",
		"marketing_objectives": []any{"Grow repeat purchases", "Differentiate on credentials"},
		"preliminary_claims":   []any{"100% eco-friendly packaging"},
	}

	var probEntries, corrEntries []any
	for i := 1; i <= 4; i++ {
		id := fmt.Sprintf("msg%d", i)
		probEntries = append(probEntries, map[string]any{
			"id":                  id,
			"message":             "Problematic claim " + id,
			"why_problematic":     "Unsubstantiated",
			"problems_identified": []any{"Vague terminology"},
		})
		corrEntries = append(corrEntries, map[string]any{
			"original_message_id": id,
			"corrected_message":   "Corrected claim " + id,
			"changes_made":        []any{"Added evidence"},
			"compliance_notes":    "Now verifiable",
		})
	}
	problems := model.Payload{"problematic_messages": probEntries}
	corrections := model.Payload{"corrected_messages": corrEntries}
	implementation := model.Payload{
		"implementation_roadmap": []any{"Audit claims", "Build register", "Review workflow"},
		"success_metrics":        []any{"Zero inquiries"},
	}
	return scenario, problems, corrections, implementation
}

func TestBuildContainsAllSections(t *testing.T) {
	scenario, problems, corrections, implementation := sampleInputs()
	req := model.TrainingRequest{IndustryFocus: "retail", RegulatoryFramework: "EU", TrainingLevel: "intermediate"}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	doc := Build(scenario, problems, corrections, implementation, req, "sess-1", at)

	for _, want := range []string{
		"EverGreen Collective",
		"## Table of Contents",
		"## Executive Summary",
		"## Business Scenario & Context",
		"## Problematic Messaging Analysis",
		"## Best Practice Corrections",
		"## Message Transformations",
		"## Implementation Roadmap",
		"## Success Metrics & Monitoring",
		"## Regulatory Compliance Guide",
		"## Quick Reference Tools",
		"## Session Information",
		"EU Green Claims Directive",
		"**Session ID:** sess-1",
		"2026-03-01 12:00:00",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}

	for i := 1; i <= 4; i++ {
		if !strings.Contains(doc, fmt.Sprintf("Problematic Message #%d (ID: msg%d)", i, i)) {
			t.Errorf("missing problem subsection %d", i)
		}
		if !strings.Contains(doc, fmt.Sprintf("Correction #%d (Original ID: msg%d)", i, i)) {
			t.Errorf("missing correction subsection %d", i)
		}
		if !strings.Contains(doc, fmt.Sprintf("### Transformation msg%d", i)) {
			t.Errorf("missing transformation msg%d", i)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	scenario, problems, corrections, implementation := sampleInputs()
	req := model.TrainingRequest{IndustryFocus: "retail", RegulatoryFramework: "EU", TrainingLevel: "beginner"}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := Build(scenario, problems, corrections, implementation, req, "sess-1", at)
	second := Build(scenario, problems, corrections, implementation, req, "sess-1", at)
	if first != second {
		t.Fatal("identical inputs produced different documents")
	}
}

func TestBuildNilPayloads(t *testing.T) {
	req := model.TrainingRequest{IndustryFocus: "finance", RegulatoryFramework: "USA", TrainingLevel: "beginner"}
	doc := Build(nil, nil, nil, nil, req, "sess-2", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	if !strings.Contains(doc, "Your Organization") {
		t.Error("expected fallback company name")
	}
	if !strings.Contains(doc, "*No data available*") {
		t.Error("expected placeholder markers for missing data")
	}
	if !strings.Contains(doc, "FTC Green Guides") {
		t.Error("expected USA regulatory guide")
	}
}

func TestBuildUnknownFrameworkFallsBackToGlobal(t *testing.T) {
	scenario, problems, corrections, implementation := sampleInputs()
	req := model.TrainingRequest{IndustryFocus: "retail", RegulatoryFramework: "Mars", TrainingLevel: "advanced"}
	doc := Build(scenario, problems, corrections, implementation, req, "sess-3", time.Now())

	if !strings.Contains(doc, "ISO 14021") {
		t.Error("expected Global guide for unknown framework")
	}
}

func TestTransformationsSkipUnpairedMessages(t *testing.T) {
	scenario, problems, _, implementation := sampleInputs()
	corrections := model.Payload{"corrected_messages": []any{map[string]any{
		"original_message_id": "msg2",
		"corrected_message":   "Only msg2 corrected",
		"changes_made":        []any{"Edit"},
	}}}
	req := model.TrainingRequest{IndustryFocus: "retail", RegulatoryFramework: "UK", TrainingLevel: "beginner"}

	doc := Build(scenario, problems, corrections, implementation, req, "sess-4", time.Now())
	if !strings.Contains(doc, "### Transformation msg2") {
		t.Error("expected paired transformation for msg2")
	}
	if strings.Contains(doc, "### Transformation msg1") {
		t.Error("unpaired msg1 should not render a transformation")
	}
}
