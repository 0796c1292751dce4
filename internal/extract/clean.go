package extract

import (
	"regexp"
	"strings"
)

var (
	timestampPrefixRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}:`)
	wrapperRe         = regexp.MustCompile(`task_name="[^"]*"[^"]*status="[^"]*"[^"]*output="`)
)

// clean strips transcript artifacts from a collected block: per-line
// timestamp prefixes, repeated wrapper fields, the trailing quote the log
// format appends when a line closes the output attribute, and the escaping
// the transcript applies to embedded JSON. The result is trimmed to the
// outermost braces.
func clean(raw string) string {
	if raw == "" {
		return ""
	}

	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		line = timestampPrefixRe.ReplaceAllString(line, "")
		line = wrapperRe.ReplaceAllString(line, "")

		// A line with an odd quote count that ends in a quote carries the
		// log format's closing quote, not JSON content.
		if strings.HasSuffix(line, `"`) && strings.Count(line, `"`)%2 == 1 {
			line = line[:len(line)-1]
		}

		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}

	out := strings.Join(kept, "\n")
	out = strings.ReplaceAll(out, `\"`, `"`)
	out = strings.ReplaceAll(out, `\n`, "\n")
	out = strings.ReplaceAll(out, `\\`, `\`)

	start := strings.Index(out, "{")
	if start == -1 {
		return ""
	}
	out = out[start:]
	if end := strings.LastIndex(out, "}"); end != -1 {
		out = out[:end+1]
	}
	return out
}
