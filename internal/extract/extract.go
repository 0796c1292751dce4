// Package extract recovers pipeline stage payloads when the stages did not
// write their artifacts. The primary source is the session transcript, a log
// whose completed-stage lines embed each stage's JSON output; the fallback
// is the per-stage backup directory. Extraction never fails hard: an empty
// or unreadable source yields a Result with every bucket nil.
package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"playbookd/internal/artifact"
	"playbookd/internal/model"
)

// minBuckets is how many of the four stage buckets must be recovered before
// an extraction counts as successful.
const minBuckets = 3

// Result holds whatever stage payloads a scan recovered. Absent buckets are
// nil. Success reflects the minimum-bucket threshold, never an error.
type Result struct {
	Scenario       model.Payload `json:"scenario_data"`
	Problems       model.Payload `json:"problematic_messages"`
	Corrections    model.Payload `json:"corrected_messages"`
	Implementation model.Payload `json:"implementation_data"`
	Log            []string      `json:"extraction_log"`
	TasksFound     int           `json:"total_tasks_found"`
	Success        bool          `json:"parsing_success"`
}

func (r *Result) logf(format string, args ...any) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

// Payload returns the bucket for an artifact kind, nil when absent.
func (r Result) Payload(kind string) model.Payload {
	switch kind {
	case model.KindScenario:
		return r.Scenario
	case model.KindProblems:
		return r.Problems
	case model.KindCorrections:
		return r.Corrections
	case model.KindImplementation:
		return r.Implementation
	}
	return nil
}

func (r *Result) setKind(kind string, data model.Payload) {
	switch kind {
	case model.KindScenario:
		r.Scenario = data
	case model.KindProblems:
		r.Problems = data
	case model.KindCorrections:
		r.Corrections = data
	case model.KindImplementation:
		r.Implementation = data
	}
}

// Recovered counts non-nil buckets.
func (r Result) Recovered() int {
	n := 0
	for _, kind := range model.Kinds {
		if r.Payload(kind) != nil {
			n++
		}
	}
	return n
}

// Fill copies buckets from other into any bucket r is missing and
// recomputes the counters. Used to layer backup-file data under a partial
// transcript scan.
func (r *Result) Fill(other Result) {
	for _, kind := range model.Kinds {
		if r.Payload(kind) == nil && other.Payload(kind) != nil {
			r.setKind(kind, other.Payload(kind))
		}
	}
	r.Log = append(r.Log, other.Log...)
	r.TasksFound = r.Recovered()
	r.Success = r.TasksFound >= minBuckets
}

// bucketFor maps a stage name to the artifact kind it fills by keyword
// match, or "" when no bucket matches.
func bucketFor(taskName string) string {
	switch {
	case strings.Contains(taskName, "scenario"):
		return model.KindScenario
	case strings.Contains(taskName, "mistake"):
		return model.KindProblems
	case strings.Contains(taskName, "best_practice"):
		return model.KindCorrections
	case strings.Contains(taskName, "playbook"):
		return model.KindImplementation
	}
	return ""
}

// ParseTranscript scans the transcript at path for completed-stage output
// blocks and routes each parsed payload into its bucket. A missing file,
// unparseable block or unmatched stage name is logged and skipped.
func ParseTranscript(path string) Result {
	var res Result

	raw, err := os.ReadFile(path)
	if err != nil {
		res.logf("Log file not found: %s", path)
		return res
	}
	lines := strings.Split(string(raw), "\n")
	res.logf("Log file read: %d lines", len(lines))

	for _, b := range scanBlocks(lines) {
		res.logf("Found completed task: %s", b.taskName)
		if b.truncated {
			res.logf("%s: output block did not close within %d lines, abandoned", b.taskName, maxBlockLines)
			continue
		}

		data, ok := decodeBlock(&res, b)
		if !ok {
			continue
		}

		kind := bucketFor(b.taskName)
		if kind == "" {
			res.logf("%s: no bucket matches this stage name", b.taskName)
			continue
		}
		if res.Payload(kind) != nil {
			res.logf("%s: bucket %s already filled, keeping first", b.taskName, kind)
			continue
		}
		res.setKind(kind, data)
		res.TasksFound++
	}

	res.Success = res.TasksFound >= minBuckets
	res.logf("Total tasks extracted: %d", res.TasksFound)
	return res
}

// decodeBlock cleans and parses one output block, falling back to targeted
// JSON repair when the cleaned text does not decode.
func decodeBlock(res *Result, b block) (model.Payload, bool) {
	text := clean(b.text)
	if text == "" {
		res.logf("%s: no JSON content after cleaning", b.taskName)
		return nil, false
	}

	var data model.Payload
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		repaired, ok := repair(text)
		if !ok {
			res.logf("%s: JSON parse error: %v", b.taskName, err)
			return nil, false
		}
		res.logf("%s: repaired and parsed", b.taskName)
		data = repaired
	} else {
		res.logf("%s: extracted %d characters", b.taskName, len(text))
	}

	if !plausibleShape(b.taskName, data) {
		res.logf("%s: unexpected structure, proceeding with available data", b.taskName)
	}
	return data, true
}

// plausibleShape is a shallow sanity check per stage. Failures are advisory:
// the payload is kept either way and the structural validator has the final
// word.
func plausibleShape(taskName string, data model.Payload) bool {
	switch bucketFor(taskName) {
	case model.KindScenario:
		for _, field := range []string{"company_name", "industry", "product_service"} {
			if s, _ := data[field].(string); s == "" {
				return false
			}
		}
	case model.KindProblems:
		if _, ok := data["problematic_messages"].([]any); !ok {
			return false
		}
	case model.KindCorrections:
		if _, ok := data["corrected_messages"].([]any); !ok {
			return false
		}
	case model.KindImplementation:
		if _, ok := data["implementation_roadmap"]; !ok {
			return false
		}
	}
	return true
}

// backupStages maps each stage's backup filename to the bucket it fills.
var backupStages = []struct {
	kind string
	file string
}{
	{model.KindScenario, "scenario_creation_task_backup.json"},
	{model.KindProblems, "mistake_generation_task_backup.json"},
	{model.KindCorrections, "best_practice_transformation_task_backup.json"},
	{model.KindImplementation, "playbook_task_backup.json"},
}

// BackupFile returns the backup filename a stage writes for an artifact
// kind, or "" for an unknown kind.
func BackupFile(kind string) string {
	for _, stage := range backupStages {
		if stage.kind == kind {
			return stage.file
		}
	}
	return ""
}

// FromBackups recovers stage payloads from the per-stage backup files the
// pipeline drops alongside artifacts. Used when the transcript scan comes up
// short. One unreadable backup does not stop the others.
func FromBackups(dir string) Result {
	res := Result{Log: []string{"Using backup file extraction"}}

	if _, err := os.Stat(dir); err != nil {
		res.logf("Backup directory not found: %s", dir)
		return res
	}

	for _, stage := range backupStages {
		data, err := artifact.Read(dir, stage.file)
		if err != nil {
			res.logf("Failed to load %s backup: %v", stage.kind, err)
			continue
		}
		if data == nil {
			continue
		}
		res.setKind(stage.kind, data)
		res.TasksFound++
		res.logf("Loaded %s from backup", stage.kind)
	}

	res.Success = res.TasksFound >= minBuckets
	return res
}
