package model

// Artifact kind constants. One JSON artifact per pipeline stage; the whole
// system keys off these four buckets regardless of whether the data came
// from direct artifact files or from transcript scraping.
const (
	KindScenario       = "scenario"
	KindProblems       = "problems"
	KindCorrections    = "corrections"
	KindImplementation = "implementation"
)

// Kinds lists all artifact kinds in pipeline order.
var Kinds = []string{KindScenario, KindProblems, KindCorrections, KindImplementation}

// ArtifactFile returns the on-disk filename for an artifact kind.
func ArtifactFile(kind string) string {
	return kind + ".json"
}

// PlaybookFile is the rendered document's filename inside a session's
// artifact directory.
const PlaybookFile = "playbook.md"

// Payload is one artifact's JSON-compatible content. Agent output is
// semi-structured; payloads stay as maps so shallow structural validation
// can report precisely which fields are missing or mistyped.
type Payload = map[string]any
