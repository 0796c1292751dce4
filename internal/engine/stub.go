package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"playbookd/internal/artifact"
	"playbookd/internal/extract"
	"playbookd/internal/model"
)

// StubEngine produces deterministic canned payloads, for development and
// tests when no model API is configured. In artifact mode it writes the
// four stage artifacts directly; in transcript mode it only writes a
// session transcript, exercising the degraded log-extraction path.
type StubEngine struct {
	// Transcript switches the stub from direct artifact writes to
	// transcript-only output.
	Transcript bool
}

var _ Engine = (*StubEngine)(nil)

// RunPipeline generates the canned stage payloads and persists them
// according to the configured mode.
func (e *StubEngine) RunPipeline(_ context.Context, in Inputs) (*RunResult, error) {
	outputs := map[string]TaskOutput{
		model.KindScenario:       {Payload: stubScenario(in)},
		model.KindProblems:       {Payload: stubProblems(in)},
		model.KindCorrections:    {Payload: stubCorrections()},
		model.KindImplementation: {Payload: stubImplementation(in)},
	}

	if e.Transcript {
		if err := writeStubTranscript(in.LogFile, outputs); err != nil {
			return nil, fmt.Errorf("write transcript: %w", err)
		}
		return &RunResult{Outputs: outputs, WroteTranscript: true}, nil
	}

	for _, kind := range model.Kinds {
		if err := artifact.Write(in.ArtifactDir, model.ArtifactFile(kind), outputs[kind].Payload); err != nil {
			return nil, err
		}
		if err := artifact.Write(in.BackupDir, extract.BackupFile(kind), outputs[kind].Payload); err != nil {
			return nil, err
		}
	}
	return &RunResult{Outputs: outputs, WroteArtifacts: true}, nil
}

// transcriptStages maps artifact kinds to the stage names a transcript
// carries.
var transcriptStages = map[string]string{
	model.KindScenario:       "scenario_creation_task",
	model.KindProblems:       "mistake_generation_task",
	model.KindCorrections:    "best_practice_transformation_task",
	model.KindImplementation: "playbook_task",
}

func writeStubTranscript(path string, outputs map[string]TaskOutput) error {
	var b strings.Builder
	stamp := time.Now().UTC().Format("2006-01-02 15:04:05")
	fmt.Fprintf(&b, "%s: session started\n", stamp)
	for _, kind := range model.Kinds {
		escaped := strings.ReplaceAll(mustJSON(outputs[kind].Payload), `"`, `\"`)
		fmt.Fprintf(&b, "%s: task_name=%q status=\"completed\" output=\"%s\"\n",
			stamp, transcriptStages[kind], escaped)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func stubScenario(in Inputs) model.Payload {
	industry := in.Industry
	if industry == "" {
		industry = "retail"
	}
	return model.Payload{
		"company_name":           "EverGreen Collective",
		"industry":               industry,
		"company_size":           "mid-size, around 600 employees",
		"location":               "Rotterdam, Netherlands",
		"product_service":        "Direct-to-consumer household goods with a sustainability-first brand",
		"target_audience":        "Environmentally conscious consumers aged 25-45",
		"sustainability_context": "Rolling out recycled packaging and a carbon reduction program across logistics",
		"regulatory_context":     in.Regulatory.Regulations,
		"marketing_objectives": []any{
			"Grow repeat purchases through sustainability positioning",
			"Differentiate from competitors on verified green credentials",
		},
		"preliminary_claims": []any{
			"100% eco-friendly packaging",
			"Carbon neutral delivery on every order",
			"The most sustainable choice in " + industry,
		},
		"current_practices": []any{
			"Recycled cardboard mailers for most shipments",
			"Partial renewable electricity in warehouses",
		},
		"challenges_faced": []any{
			"Incomplete supplier emissions data",
			"Marketing pressure to make bold claims ahead of evidence",
		},
		"market_research_sources": []any{
			"Regional consumer sustainability survey " + in.Year,
			"Industry benchmark report on green claims",
		},
	}
}

func stubProblems(in Inputs) model.Payload {
	msg := func(id, text, why string, problems ...string) map[string]any {
		list := make([]any, len(problems))
		for i, p := range problems {
			list[i] = p
		}
		return map[string]any{
			"id":                     id,
			"message":                text,
			"why_problematic":        why,
			"problems_identified":    list,
			"regulatory_violations":  []any{in.Regulatory.Regulations},
			"potential_consequences": []any{"Regulator inquiry", "Forced claim withdrawal"},
		}
	}
	return model.Payload{
		"problematic_messages": []any{
			msg("msg1",
				"Our packaging is 100% eco-friendly!",
				"Absolute claim with no substantiation or definition of eco-friendly",
				"Unqualified absolute claim", "Vague terminology"),
			msg("msg2",
				"Every delivery is carbon neutral.",
				"Neutrality claimed via unverified offsets without disclosure",
				"Unverified offsetting", "Missing material information"),
			msg("msg3",
				"The greenest brand in the market.",
				"Comparative superiority claim with no comparison basis",
				"Unsubstantiated comparative claim"),
			msg("msg4",
				"Certified sustainable by independent experts.",
				"Implies third-party certification that does not exist",
				"Fabricated endorsement", "Misleading certification claim"),
		},
		"scenario_reference": "Marketing drafts prepared for EverGreen Collective's seasonal campaign",
	}
}

func stubCorrections() model.Payload {
	corr := func(id, text, notes string, changes ...string) map[string]any {
		list := make([]any, len(changes))
		for i, c := range changes {
			list[i] = c
		}
		return map[string]any{
			"original_message_id": id,
			"corrected_message":   text,
			"changes_made":        list,
			"compliance_notes":    notes,
		}
	}
	return model.Payload{
		"corrected_messages": []any{
			corr("msg1",
				"90% of our packaging is made from certified recycled cardboard.",
				"Specific, measurable and backed by supplier certificates",
				"Replaced absolute claim with measured share", "Named the material and certification"),
			corr("msg2",
				"We cut delivery emissions by 40% since 2022 and offset the remainder through verified projects.",
				"Reduction-first framing with disclosed offsetting",
				"Disclosed the offset mechanism", "Added baseline year and measured reduction"),
			corr("msg3",
				"Rated among the top performers in the independent regional sustainability benchmark.",
				"Comparative claim tied to a named, verifiable benchmark",
				"Anchored comparison to a published benchmark"),
			corr("msg4",
				"Our warehouse energy program is audited annually; the report is published on our website.",
				"Replaces implied certification with a real, verifiable audit",
				"Removed fabricated endorsement", "Pointed to published evidence"),
		},
	}
}

func stubImplementation(in Inputs) model.Payload {
	return model.Payload{
		"implementation_roadmap": []any{
			"Audit all live marketing claims against the evidence register",
			"Stand up a claim substantiation register owned by legal and marketing",
			"Introduce pre-publication compliance review for campaigns",
		},
		"success_metrics": []any{
			"Zero regulator inquiries on environmental claims",
			"100% of published claims linked to evidence",
			"Quarterly review completion rate",
		},
		"timeline_milestones": []any{
			"Month 1: claim audit complete",
			"Month 2: substantiation register live",
			"Month 3: review workflow embedded in campaign planning",
		},
		"team_training_requirements": []any{
			"Greenwashing-patterns workshop for the marketing team",
			"Evidence-standards briefing for product owners",
			"Annual refresher tied to regulatory updates",
		},
		"tools_and_resources": []any{
			"Claim review checklist",
			"Substantiation register template",
			"Regulatory watchlist for " + in.Region,
		},
		"industry_specific_considerations": "Claims in this sector face close scrutiny; comparative and absolute claims need third-party evidence before publication.",
		"regulatory_compliance_schedule":   "Quarterly claim reviews aligned with " + in.Regulatory.Regulations,
	}
}
