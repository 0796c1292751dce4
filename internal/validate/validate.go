// Package validate applies structural safety-net checks to pipeline
// artifacts. Policy is intentionally shallow: presence, type and cardinality
// of named fields. Content quality is the upstream pipeline's problem.
package validate

import (
	"fmt"
	"strings"

	"playbookd/internal/artifact"
	"playbookd/internal/model"
)

func isNonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

// checkStringField appends an error unless data[field] is a non-empty string.
func checkStringField(data model.Payload, field string, errs []string) []string {
	v, ok := data[field]
	if !ok {
		return append(errs, fmt.Sprintf("Missing required field: %s", field))
	}
	if !isNonEmptyString(v) {
		return append(errs, fmt.Sprintf("Field '%s' must be a non-empty string", field))
	}
	return errs
}

// checkStringListField appends errors unless data[field] is a non-empty list
// of non-empty strings.
func checkStringListField(data model.Payload, field string, errs []string) []string {
	v, ok := data[field]
	if !ok {
		return append(errs, fmt.Sprintf("Missing required field: %s", field))
	}
	list, ok := v.([]any)
	if !ok {
		return append(errs, fmt.Sprintf("Field '%s' must be a list", field))
	}
	if len(list) == 0 {
		return append(errs, fmt.Sprintf("Field '%s' cannot be empty", field))
	}
	for i, item := range list {
		if !isNonEmptyString(item) {
			errs = append(errs, fmt.Sprintf("Field '%s' item %d must be a non-empty string", field, i+1))
		}
	}
	return errs
}

// Scenario validates the business-scenario artifact.
func Scenario(data model.Payload) (bool, []string) {
	var errs []string

	for _, field := range []string{
		"company_name", "industry", "company_size", "location",
		"product_service", "target_audience", "sustainability_context",
		"regulatory_context",
	} {
		errs = checkStringField(data, field, errs)
	}

	for _, field := range []string{
		"marketing_objectives", "preliminary_claims", "current_practices",
		"challenges_faced", "market_research_sources",
	} {
		errs = checkStringListField(data, field, errs)
	}

	return len(errs) == 0, errs
}

// Problems validates the problematic-messages artifact: exactly 4 entries,
// each with id, message and why_problematic, ids unique.
func Problems(data model.Payload) (bool, []string) {
	var errs []string

	raw, ok := data["problematic_messages"]
	if !ok {
		return false, []string{"Missing required field: problematic_messages"}
	}
	messages, ok := raw.([]any)
	if !ok {
		return false, []string{"Field 'problematic_messages' must be a list"}
	}
	if len(messages) != 4 {
		return false, []string{fmt.Sprintf("Must have exactly 4 problematic messages, got %d", len(messages))}
	}

	seen := map[string]bool{}
	for i, entry := range messages {
		msg, ok := entry.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("Message %d: must be an object", i+1))
			continue
		}
		for _, field := range []string{"id", "message", "why_problematic"} {
			if _, ok := msg[field]; !ok {
				errs = append(errs, fmt.Sprintf("Message %d: Missing required field '%s'", i+1, field))
			} else if !isNonEmptyString(msg[field]) {
				errs = append(errs, fmt.Sprintf("Message %d: Field '%s' must be a non-empty string", i+1, field))
			}
		}
		if id, ok := msg["id"].(string); ok {
			if seen[id] {
				errs = append(errs, fmt.Sprintf("Message %d: Duplicate message ID '%s'", i+1, id))
			}
			seen[id] = true
		}
		for _, field := range []string{"problems_identified", "regulatory_violations", "potential_consequences"} {
			if v, ok := msg[field]; ok {
				if _, isList := v.([]any); !isList {
					errs = append(errs, fmt.Sprintf("Message %d: Field '%s' must be a list", i+1, field))
				}
			}
		}
	}

	return len(errs) == 0, errs
}

// Corrections validates the corrected-messages artifact: exactly 4 entries,
// each addressing a distinct original message.
func Corrections(data model.Payload) (bool, []string) {
	var errs []string

	raw, ok := data["corrected_messages"]
	if !ok {
		return false, []string{"Missing required field: corrected_messages"}
	}
	corrections, ok := raw.([]any)
	if !ok {
		return false, []string{"Field 'corrected_messages' must be a list"}
	}
	if len(corrections) != 4 {
		return false, []string{fmt.Sprintf("Must have exactly 4 corrected messages, got %d", len(corrections))}
	}

	seen := map[string]bool{}
	duplicate := false
	for i, entry := range corrections {
		corr, ok := entry.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("Correction %d: must be an object", i+1))
			continue
		}
		for _, field := range []string{"original_message_id", "corrected_message", "compliance_notes"} {
			if _, ok := corr[field]; !ok {
				errs = append(errs, fmt.Sprintf("Correction %d: Missing required field '%s'", i+1, field))
			} else if !isNonEmptyString(corr[field]) {
				errs = append(errs, fmt.Sprintf("Correction %d: Field '%s' must be a non-empty string", i+1, field))
			}
		}
		if v, ok := corr["changes_made"]; !ok {
			errs = append(errs, fmt.Sprintf("Correction %d: Missing required field 'changes_made'", i+1))
		} else if list, isList := v.([]any); !isList || len(list) == 0 {
			errs = append(errs, fmt.Sprintf("Correction %d: Field 'changes_made' must be a non-empty list", i+1))
		}
		if id, ok := corr["original_message_id"].(string); ok {
			if seen[id] {
				duplicate = true
			}
			seen[id] = true
		}
	}
	if duplicate {
		errs = append(errs, "Duplicate original_message_id found - each correction should be for a different message")
	}

	return len(errs) == 0, errs
}

// Implementation validates the implementation-guidance artifact.
func Implementation(data model.Payload) (bool, []string) {
	var errs []string

	for _, field := range []string{
		"implementation_roadmap", "success_metrics", "timeline_milestones",
		"team_training_requirements", "tools_and_resources",
	} {
		errs = checkStringListField(data, field, errs)
	}
	for _, field := range []string{"industry_specific_considerations", "regulatory_compliance_schedule"} {
		errs = checkStringField(data, field, errs)
	}

	return len(errs) == 0, errs
}

// validators maps artifact filename to its kind validator.
var validators = map[string]func(model.Payload) (bool, []string){
	model.ArtifactFile(model.KindScenario):       Scenario,
	model.ArtifactFile(model.KindProblems):       Problems,
	model.ArtifactFile(model.KindCorrections):    Corrections,
	model.ArtifactFile(model.KindImplementation): Implementation,
}

// ForKind returns the validator for an artifact kind, or nil.
func ForKind(kind string) func(model.Payload) (bool, []string) {
	return validators[model.ArtifactFile(kind)]
}

// FileResult is the outcome for one artifact file.
type FileResult struct {
	Exists bool     `json:"exists"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Result aggregates validation across all four artifact kinds.
type Result struct {
	AllValid    bool                  `json:"all_valid"`
	Artifacts   map[string]FileResult `json:"artifacts"`
	Missing     []string              `json:"missing_artifacts"`
	TotalErrors int                   `json:"total_errors"`
}

// All runs every kind's validator against the artifacts in dir.
func All(dir string) Result {
	res := Result{Artifacts: map[string]FileResult{}}

	for _, kind := range model.Kinds {
		filename := model.ArtifactFile(kind)
		validator := validators[filename]

		if !artifact.Exists(dir, filename) {
			res.Missing = append(res.Missing, filename)
			res.Artifacts[filename] = FileResult{
				Errors: []string{fmt.Sprintf("Artifact file %s not found", filename)},
			}
		} else if data, err := artifact.Read(dir, filename); err != nil || data == nil {
			res.Artifacts[filename] = FileResult{
				Exists: true,
				Errors: []string{fmt.Sprintf("Could not read or parse %s", filename)},
			}
		} else {
			valid, errs := validator(data)
			res.Artifacts[filename] = FileResult{Exists: true, Valid: valid, Errors: errs}
		}

		res.TotalErrors += len(res.Artifacts[filename].Errors)
	}

	res.AllValid = len(res.Missing) == 0 && res.TotalErrors == 0
	return res
}

// Summary renders a short human-readable report of a validation result.
func Summary(res Result) string {
	if res.AllValid {
		return "All artifacts are structurally valid"
	}

	lines := []string{"Artifact validation failed:"}
	if len(res.Missing) > 0 {
		lines = append(lines, fmt.Sprintf("  Missing artifacts: %s", strings.Join(res.Missing, ", ")))
	}
	for _, kind := range model.Kinds {
		filename := model.ArtifactFile(kind)
		fr, ok := res.Artifacts[filename]
		if !ok || fr.Valid {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s: %d errors", filename, len(fr.Errors)))
		for i, e := range fr.Errors {
			if i == 3 {
				lines = append(lines, fmt.Sprintf("    - ... and %d more errors", len(fr.Errors)-3))
				break
			}
			lines = append(lines, "    - "+e)
		}
	}
	lines = append(lines, fmt.Sprintf("  Total errors: %d", res.TotalErrors))
	return strings.Join(lines, "\n")
}
