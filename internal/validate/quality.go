package validate

import (
	"fmt"

	"playbookd/internal/model"
)

// KindQuality scores one artifact kind's completeness on a 0-100 scale.
type KindQuality struct {
	Score     int      `json:"score"`
	Issues    []string `json:"issues"`
	Strengths []string `json:"strengths"`
}

// DatasetQuality aggregates quality across all recovered artifact kinds.
type DatasetQuality struct {
	QualityScore float64                `json:"quality_score"`
	Completeness float64                `json:"completeness_percentage"`
	IsComplete   bool                   `json:"is_complete"`
	Kinds        map[string]KindQuality `json:"task_validations"`
	Issues       []string               `json:"overall_issues"`
}

func clamp100(score int) int {
	if score > 100 {
		return 100
	}
	return score
}

func listLen(v any) int {
	list, ok := v.([]any)
	if !ok {
		return 0
	}
	return len(list)
}

// ScoreScenario rates scenario completeness: required fields weigh 20 each,
// quality fields 5 each.
func ScoreScenario(data model.Payload) KindQuality {
	q := KindQuality{}
	for _, field := range []string{"company_name", "industry", "product_service", "target_audience"} {
		if isNonEmptyString(data[field]) {
			q.Score += 20
			if s, _ := data[field].(string); len(s) > 50 {
				q.Strengths = append(q.Strengths, "Detailed "+field)
			}
		} else {
			q.Issues = append(q.Issues, "Missing "+field)
		}
	}
	for _, field := range []string{"marketing_objectives", "sustainability_context", "preliminary_claims"} {
		v, ok := data[field]
		if !ok || v == nil {
			continue
		}
		q.Score += 5
		if listLen(v) > 2 {
			q.Strengths = append(q.Strengths, "Rich "+field)
		}
	}
	q.Score = clamp100(q.Score)
	return q
}

// ScoreProblems rates problematic-message completeness: 40 for having at
// least 3 messages, 15 per fully detailed message.
func ScoreProblems(data model.Payload) KindQuality {
	q := KindQuality{}
	raw, ok := data["problematic_messages"].([]any)
	if !ok {
		q.Issues = append(q.Issues, "No problematic messages found")
		return q
	}

	if len(raw) >= 3 {
		q.Score += 40
		q.Strengths = append(q.Strengths, fmt.Sprintf("%d problematic messages", len(raw)))
	} else {
		q.Issues = append(q.Issues, fmt.Sprintf("Only %d messages (need 3+)", len(raw)))
	}

	detailed := 0
	for _, entry := range raw {
		msg, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if hasAll(msg, "message", "why_problematic", "problems_identified") {
			detailed++
		}
	}
	q.Score += detailed * 15
	if detailed == len(raw) && len(raw) > 0 {
		q.Strengths = append(q.Strengths, "All messages have detailed analysis")
	}

	q.Score = clamp100(q.Score)
	return q
}

// ScoreCorrections rates correction completeness, weighted like problems.
func ScoreCorrections(data model.Payload) KindQuality {
	q := KindQuality{}
	raw, ok := data["corrected_messages"].([]any)
	if !ok {
		q.Issues = append(q.Issues, "No corrections found")
		return q
	}

	if len(raw) >= 3 {
		q.Score += 40
		q.Strengths = append(q.Strengths, fmt.Sprintf("%d corrections provided", len(raw)))
	} else {
		q.Issues = append(q.Issues, fmt.Sprintf("Only %d corrections", len(raw)))
	}

	detailed := 0
	for _, entry := range raw {
		corr, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if hasAll(corr, "corrected_message", "changes_made", "compliance_notes") {
			detailed++
		}
	}
	q.Score += detailed * 15
	if detailed == len(raw) && len(raw) > 0 {
		q.Strengths = append(q.Strengths, "All corrections have detailed explanations")
	}

	q.Score = clamp100(q.Score)
	return q
}

// ScoreImplementation rates implementation-guidance completeness.
func ScoreImplementation(data model.Payload) KindQuality {
	q := KindQuality{}
	for _, field := range []string{
		"implementation_roadmap", "success_metrics", "timeline_milestones", "team_training_requirements",
	} {
		if listLen(data[field]) > 0 {
			q.Score += 20
			q.Strengths = append(q.Strengths, "Complete "+field)
		} else {
			q.Issues = append(q.Issues, "Missing "+field)
		}
	}
	if listLen(data["tools_and_resources"]) > 0 {
		q.Score += 10
	}
	if isNonEmptyString(data["regulatory_compliance_schedule"]) {
		q.Score += 10
	}
	q.Score = clamp100(q.Score)
	return q
}

func hasAll(m map[string]any, fields ...string) bool {
	for _, f := range fields {
		if _, ok := m[f]; !ok {
			return false
		}
	}
	return true
}

// minKindsForComplete is how many of the four artifact kinds must be
// present (with acceptable quality) before the dataset counts as complete.
const minKindsForComplete = 3

// ScoreDataset scores the recovered payloads as a whole. Nil payloads count
// as missing kinds and drag completeness down; the dataset is complete when
// at least 3 of 4 kinds are present and the mean quality is at least 60.
func ScoreDataset(scenario, problems, corrections, implementation model.Payload) DatasetQuality {
	dq := DatasetQuality{Kinds: map[string]KindQuality{}}

	var scores []int
	score := func(kind string, data model.Payload, fn func(model.Payload) KindQuality, missingMsg string) {
		if data == nil {
			dq.Issues = append(dq.Issues, missingMsg)
			return
		}
		kq := fn(data)
		dq.Kinds[kind] = kq
		scores = append(scores, kq.Score)
	}

	score(model.KindScenario, scenario, ScoreScenario, "Missing scenario data")
	score(model.KindProblems, problems, ScoreProblems, "Missing problematic messages data")
	score(model.KindCorrections, corrections, ScoreCorrections, "Missing corrections data")
	score(model.KindImplementation, implementation, ScoreImplementation, "Missing implementation data")

	if len(scores) > 0 {
		sum := 0
		for _, s := range scores {
			sum += s
		}
		dq.QualityScore = float64(sum) / float64(len(scores))
		dq.Completeness = float64(len(scores)) / 4 * 100
		dq.IsComplete = len(scores) >= minKindsForComplete && dq.QualityScore >= 60
	}

	return dq
}
