package extract

import (
	"encoding/json"
	"regexp"

	"playbookd/internal/model"
)

var (
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	bareKeyRe       = regexp.MustCompile(`(\w+):`)
)

// repair retries a failed decode with targeted fixes: trailing commas before
// a closing brace or bracket, then bare object keys. Each fix applies to the
// original text independently; the first decodable variant wins.
func repair(text string) (model.Payload, bool) {
	fixes := []func(string) string{
		func(s string) string { return trailingCommaRe.ReplaceAllString(s, "${1}") },
		func(s string) string { return bareKeyRe.ReplaceAllString(s, `"${1}":`) },
	}

	for _, fix := range fixes {
		var data model.Payload
		if err := json.Unmarshal([]byte(fix(text)), &data); err == nil {
			return data, true
		}
	}
	return nil, false
}
